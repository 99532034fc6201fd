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


package storage

import (
	"context"

	"github.com/poiesic/ragchat/core"
)

// VectorStore stores vector records in named collections.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist.
	// Calling it on an existing collection is a no-op.
	EnsureCollection(ctx context.Context, collection string) error

	// Upsert inserts or replaces the record with the given ID.
	// The first vector written to a collection fixes its dimension.
	Upsert(ctx context.Context, collection, id, text string, vector []float32) error

	// Search returns at most limit records whose cosine similarity to query is
	// at least minScore, best first. An unknown collection yields no results.
	Search(ctx context.Context, collection string, query []float32, limit int, minScore float32) ([]*core.SearchResult, error)

	// Exists reports whether the collection has been created.
	Exists(ctx context.Context, collection string) (bool, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Records returns every record of the collection in insertion order.
	Records(ctx context.Context, collection string) ([]*core.VectorRecord, error)

	// Collections lists collection names in lexical order.
	Collections(ctx context.Context) ([]string, error)

	// Delete removes the records with the given IDs. Unknown IDs and an
	// unknown collection are ignored. The collection keeps its dimension.
	Delete(ctx context.Context, collection string, ids ...string) error

	// DeleteCollection drops the collection and its records.
	DeleteCollection(ctx context.Context, collection string) error

	// Close releases the store's resources.
	Close() error
}
