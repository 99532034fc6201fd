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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of records to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder copies a collection into another collection with a new embedder.
type Reembedder struct {
	store     storage.VectorStore
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(store storage.VectorStore, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries < 1 {
		return nil, ai.ErrInvalidMaxAttempts
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		store:     store,
		embedder:  embedder,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(store, embedder, config.MaxRetries, config.RetryDelay),
		logger:    slog.Default().With("component", "reembedder"),
	}, nil
}

// Run embeds every record of source with the configured embedder and writes
// the results to target under the same IDs, preserving insertion order.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context, source, target string) error {
	if err := core.ValidateCollectionName(source); err != nil {
		return err
	}
	if err := core.ValidateCollectionName(target); err != nil {
		return err
	}
	if source == target {
		return fmt.Errorf("%w: %q", ErrSameCollection, source)
	}

	// First, count total records
	totalRecords, err := r.store.Count(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}

	if totalRecords == 0 {
		fmt.Fprintf(r.progress, "No records found in collection %q (0 records)\n", source)
		return nil
	}

	if err := r.store.EnsureCollection(ctx, target); err != nil {
		return fmt.Errorf("failed to create collection %q: %w", target, err)
	}

	fmt.Fprintf(r.progress, "Reembedding %d records from %q into %q (batch size: %d)\n",
		totalRecords, source, target, r.config.BatchSize)
	r.logger.Info("reembedding collection", "source", source, "target", target, "records", totalRecords)

	progress := NewProgress(r.progress, fmt.Sprintf("%s -> %s", source, target), totalRecords, r.config.ReportInterval)
	progress.Start()

	processed := 0
	iterator := NewRecordIterator(r.store, source, r.config.BatchSize)

	err = iterator.ForEach(ctx, func(records []*core.VectorRecord) error {
		if err := r.processor.Process(ctx, target, records); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		processed += len(records)
		progress.Add(len(records))
		return nil
	})

	if err != nil {
		r.logger.Error("reembedding failed", "source", source, "target", target, "processed", processed, "err", err)
		return err
	}

	summary := progress.Done()
	fmt.Fprintf(r.progress, "Reembedding complete: %s\n", summary)
	r.logger.Info("reembedding complete", "source", source, "target", target, "records", summary.Records, "elapsed", summary.Elapsed)

	return nil
}
