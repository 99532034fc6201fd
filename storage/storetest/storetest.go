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


// Package storetest holds the behavioural suite shared by every
// storage.VectorStore backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) storage.VectorStore

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store storage.VectorStore)
	}{
		{"EnsureCollectionIdempotent", testEnsureCollectionIdempotent},
		{"UpsertCreatesCollection", testUpsertCreatesCollection},
		{"UpsertReplaces", testUpsertReplaces},
		{"DimensionMismatch", testDimensionMismatch},
		{"RejectsInvalidInput", testRejectsInvalidInput},
		{"SearchOrderLimitThreshold", testSearchOrderLimitThreshold},
		{"SearchSelfSimilarity", testSearchSelfSimilarity},
		{"SearchTiesKeepInsertionOrder", testSearchTiesKeepInsertionOrder},
		{"SearchUnknownCollection", testSearchUnknownCollection},
		{"SearchZeroNormVector", testSearchZeroNormVector},
		{"SearchQueryDimensionMismatch", testSearchQueryDimensionMismatch},
		{"RecordsInInsertionOrder", testRecordsInInsertionOrder},
		{"CollectionsAndDelete", testCollectionsAndDelete},
		{"DeleteRecords", testDeleteRecords},
		{"ConcurrentUpserts", testConcurrentUpserts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()
			tt.fn(t, store)
		})
	}
}

func testEnsureCollectionIdempotent(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()

	exists, err := store.Exists(ctx, "facts")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.EnsureCollection(ctx, "facts"))
	require.NoError(t, store.EnsureCollection(ctx, "facts"))

	exists, err = store.Exists(ctx, "facts")
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := store.Count(ctx, "facts")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Records survive a repeated ensure.
	require.NoError(t, store.Upsert(ctx, "facts", "a", "alpha", []float32{1, 0}))
	require.NoError(t, store.EnsureCollection(ctx, "facts"))
	count, err = store.Count(ctx, "facts")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func testUpsertCreatesCollection(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "implicit", "a", "alpha", []float32{1, 2, 3}))

	exists, err := store.Exists(ctx, "implicit")
	require.NoError(t, err)
	assert.True(t, exists)
}

func testUpsertReplaces(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "facts", "a", "first", []float32{1, 0}))
	require.NoError(t, store.Upsert(ctx, "facts", "a", "second", []float32{0, 1}))

	count, err := store.Count(ctx, "facts")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := store.Search(ctx, "facts", []float32{0, 1}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Record.ID)
	assert.Equal(t, "second", results[0].Record.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func testDimensionMismatch(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "facts"))
	require.NoError(t, store.Upsert(ctx, "facts", "a", "alpha", []float32{1, 0, 0}))

	err := store.Upsert(ctx, "facts", "b", "beta", []float32{1, 0})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	// Replacing an existing record with the wrong length fails too.
	err = store.Upsert(ctx, "facts", "a", "alpha", []float32{1, 0, 0, 0})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	count, err := store.Count(ctx, "facts")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Another collection may use another dimension.
	require.NoError(t, store.Upsert(ctx, "other", "a", "alpha", []float32{1, 0}))
}

func testRejectsInvalidInput(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()

	assert.ErrorIs(t, store.Upsert(ctx, "facts", "", "text", []float32{1}), core.ErrInvalidRecord)
	assert.ErrorIs(t, store.Upsert(ctx, "facts", "a", "text", nil), core.ErrEmptyVector)
	assert.ErrorIs(t, store.Upsert(ctx, "", "a", "text", []float32{1}), core.ErrInvalidCollection)
	assert.ErrorIs(t, store.EnsureCollection(ctx, ""), core.ErrInvalidCollection)
}

func testSearchOrderLimitThreshold(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()

	records := []struct {
		id     string
		vector []float32
	}{
		{"far", []float32{0, 1}},
		{"near", []float32{1, 0.1}},
		{"exact", []float32{1, 0}},
		{"mid", []float32{1, 1}},
		{"opposite", []float32{-1, 0}},
	}
	for _, r := range records {
		require.NoError(t, store.Upsert(ctx, "facts", r.id, "text of "+r.id, r.vector))
	}

	results, err := store.Search(ctx, "facts", []float32{1, 0}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].Record.ID)
	assert.Equal(t, "near", results[1].Record.ID)
	assert.Equal(t, "mid", results[2].Record.ID)
	assert.Equal(t, "text of near", results[1].Record.Text)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, float32(0.5))
	}

	limited, err := store.Search(ctx, "facts", []float32{1, 0}, 2, -1)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "exact", limited[0].Record.ID)
	assert.Equal(t, "near", limited[1].Record.ID)

	all, err := store.Search(ctx, "facts", []float32{1, 0}, 100, -1)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, "opposite", all[4].Record.ID)

	none, err := store.Search(ctx, "facts", []float32{1, 0}, 0, -1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testSearchSelfSimilarity(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()

	vectors := map[string][]float32{
		"a": {0.3, -0.7, 0.2, 0.9},
		"b": {-0.5, 0.1, 0.8, 0.05},
		"c": {0.25, 0.25, -0.25, 0.25},
	}
	for id, v := range vectors {
		require.NoError(t, store.Upsert(ctx, "facts", id, id, v))
	}

	for id, v := range vectors {
		results, err := store.Search(ctx, "facts", v, 1, 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, id, results[0].Record.ID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	}
}

func testSearchTiesKeepInsertionOrder(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()

	// IDs are deliberately not in lexical order.
	ids := []string{"zeta", "alpha", "mu", "beta"}
	for _, id := range ids {
		require.NoError(t, store.Upsert(ctx, "facts", id, id, []float32{2, 2}))
	}
	// Replacing keeps the original slot.
	require.NoError(t, store.Upsert(ctx, "facts", "zeta", "zeta again", []float32{2, 2}))

	results, err := store.Search(ctx, "facts", []float32{1, 1}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, results[i].Record.ID, "position %d", i)
	}
}

func testSearchUnknownCollection(t *testing.T, store storage.VectorStore) {
	results, err := store.Search(context.Background(), "missing", []float32{1, 0}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	count, err := store.Count(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func testSearchZeroNormVector(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "facts", "zero", "nothing", []float32{0, 0}))
	require.NoError(t, store.Upsert(ctx, "facts", "one", "something", []float32{1, 0}))

	results, err := store.Search(ctx, "facts", []float32{1, 0}, 10, -1)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "one", results[0].Record.ID)
	assert.Equal(t, "zero", results[1].Record.ID)
	assert.Equal(t, float32(0), results[1].Score)

	results, err = store.Search(ctx, "facts", []float32{0, 0}, 10, -1)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, float32(0), r.Score)
	}
}

func testSearchQueryDimensionMismatch(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "facts", "a", "alpha", []float32{1, 0, 0}))

	_, err := store.Search(ctx, "facts", []float32{1, 0}, 5, 0)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func testRecordsInInsertionOrder(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()

	ids := []string{"c", "a", "b"}
	for i, id := range ids {
		require.NoError(t, store.Upsert(ctx, "facts", id, "text "+id, []float32{float32(i + 1), 1}))
	}

	records, err := store.Records(ctx, "facts")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, id := range ids {
		assert.Equal(t, id, records[i].ID)
		assert.Equal(t, "facts", records[i].Collection)
		assert.Equal(t, "text "+id, records[i].Text)
		assert.Equal(t, []float32{float32(i + 1), 1}, records[i].Vector)
		assert.False(t, records[i].InsertedAt.IsZero())
	}
	assert.Less(t, records[0].Seq, records[1].Seq)
	assert.Less(t, records[1].Seq, records[2].Seq)

	missing, err := store.Records(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func testCollectionsAndDelete(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "beta"))
	require.NoError(t, store.Upsert(ctx, "alpha", "a", "alpha", []float32{1}))
	require.NoError(t, store.Upsert(ctx, "alphabet", "a", "alphabet", []float32{1}))

	names, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "alphabet", "beta"}, names)

	require.NoError(t, store.DeleteCollection(ctx, "alpha"))
	require.NoError(t, store.DeleteCollection(ctx, "never-existed"))

	exists, err := store.Exists(ctx, "alpha")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting a collection leaves collections sharing its prefix alone.
	count, err := store.Count(ctx, "alphabet")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A dropped collection can come back with a new dimension.
	require.NoError(t, store.Upsert(ctx, "alpha", "a", "alpha", []float32{1, 2}))
}

func testDeleteRecords(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "facts", "a", "alpha", []float32{1, 0, 0}))
	require.NoError(t, store.Upsert(ctx, "facts", "b", "beta", []float32{0, 1, 0}))
	require.NoError(t, store.Upsert(ctx, "facts", "c", "gamma", []float32{0, 0, 1}))

	require.NoError(t, store.Delete(ctx, "facts", "b", "missing"))
	require.NoError(t, store.Delete(ctx, "facts"))
	require.NoError(t, store.Delete(ctx, "never-existed", "a"))

	records, err := store.Records(ctx, "facts")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "c", records[1].ID)

	results, err := store.Search(ctx, "facts", []float32{0, 1, 0}, 3, 0.5)
	require.NoError(t, err)
	assert.Empty(t, results)

	// The collection keeps its dimension.
	err = store.Upsert(ctx, "facts", "d", "delta", []float32{1, 1})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	// A deleted ID written again is a new record at the end of the order.
	require.NoError(t, store.Upsert(ctx, "facts", "b", "beta again", []float32{0, 1, 0}))
	records, err = store.Records(ctx, "facts")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "b", records[2].ID)
	assert.Equal(t, "beta again", records[2].Text)
}

func testConcurrentUpserts(t *testing.T, store storage.VectorStore) {
	ctx := context.Background()
	const (
		workers   = 8
		perWorker = 25
	)

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				id := fmt.Sprintf("w%d-%d", w, i)
				if err := store.Upsert(ctx, "facts", id, id, []float32{float32(w + 1), float32(i + 1), 1}); err != nil {
					errs <- err
				}
			}
		}()
	}

	// Concurrent readers only ever see complete records.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 20 {
			results, err := store.Search(ctx, "facts", []float32{1, 1, 1}, 5, -1)
			if err != nil {
				continue
			}
			for _, r := range results {
				if len(r.Record.Vector) != 3 || r.Record.Text != r.Record.ID {
					errs <- fmt.Errorf("partial record %q", r.Record.ID)
				}
			}
		}
	}()

	wg.Wait()
	<-done
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	count, err := store.Count(ctx, "facts")
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, count)
}
