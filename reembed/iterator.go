// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"

	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/storage"
)

const (
	// DefaultBatchSize is the default number of records to fetch in each batch
	DefaultBatchSize = 100
)

// RecordIterator iterates over the records of a collection in batches.
type RecordIterator struct {
	store      storage.VectorStore
	collection string
	batchSize  int
}

// NewRecordIterator creates a new record iterator.
// batchSize: number of records in each batch (defaults when <= 0)
func NewRecordIterator(store storage.VectorStore, collection string, batchSize int) *RecordIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &RecordIterator{
		store:      store,
		collection: collection,
		batchSize:  batchSize,
	}
}

// ForEach iterates over the collection in insertion order, calling fn for each batch.
// Iteration stops on first error from fn or when all records are processed.
// Context cancellation is checked between batches.
func (it *RecordIterator) ForEach(ctx context.Context, fn func([]*core.VectorRecord) error) error {
	// Check context before starting
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	records, err := it.store.Records(ctx, it.collection)
	if err != nil {
		return err
	}

	// Process records in batches of batchSize
	for i := 0; i < len(records); i += it.batchSize {
		end := min(i+it.batchSize, len(records))

		if err := fn(records[i:end]); err != nil {
			return err
		}

		// Check context after each batch
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}
