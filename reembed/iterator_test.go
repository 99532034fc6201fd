package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/storage"
	"github.com/poiesic/ragchat/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (storage.VectorStore, func()) {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	return store, func() { store.Close() }
}

// seedCollection adds n records with two-dimensional vectors to collection
func seedCollection(t *testing.T, store storage.VectorStore, collection string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("rec-%03d", i)
		require.NoError(t, store.Upsert(ctx, collection, id, fmt.Sprintf("text %d", i), []float32{1, float32(i)}))
	}
}

func TestRecordIterator_Basic(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	seedCollection(t, store, "docs", 5)

	iterator := NewRecordIterator(store, "docs", 2)

	var batches [][]string
	err := iterator.ForEach(context.Background(), func(records []*core.VectorRecord) error {
		ids := make([]string, len(records))
		for i, r := range records {
			ids[i] = r.ID
		}
		batches = append(batches, ids)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"rec-000", "rec-001"},
		{"rec-002", "rec-003"},
		{"rec-004"},
	}, batches)
}

func TestRecordIterator_BatchSizes(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	seedCollection(t, store, "docs", 10)

	tests := []struct {
		batchSize       int
		expectedBatches int
	}{
		{1, 10},
		{3, 4},
		{10, 1},
		{50, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("batch_%d", tt.batchSize), func(t *testing.T) {
			batches, total := 0, 0
			err := NewRecordIterator(store, "docs", tt.batchSize).ForEach(context.Background(), func(records []*core.VectorRecord) error {
				batches++
				total += len(records)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedBatches, batches)
			assert.Equal(t, 10, total)
		})
	}
}

func TestRecordIterator_EmptyCollection(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	called := false
	err := NewRecordIterator(store, "missing", 10).ForEach(context.Background(), func(records []*core.VectorRecord) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called, "should not call fn for an empty collection")
}

func TestRecordIterator_ErrorHandling(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	seedCollection(t, store, "docs", 6)

	expected := errors.New("stop here")
	calls := 0
	err := NewRecordIterator(store, "docs", 2).ForEach(context.Background(), func(records []*core.VectorRecord) error {
		calls++
		if calls == 2 {
			return expected
		}
		return nil
	})
	assert.ErrorIs(t, err, expected)
	assert.Equal(t, 2, calls, "iteration should stop at the first error")
}

func TestRecordIterator_ContextCancellation(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	seedCollection(t, store, "docs", 6)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := NewRecordIterator(store, "docs", 2).ForEach(ctx, func(records []*core.VectorRecord) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)

	err = NewRecordIterator(store, "docs", 2).ForEach(ctx, func(records []*core.VectorRecord) error {
		t.Fatal("should not be called with a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordIterator_InvalidBatchSize(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	assert.Equal(t, DefaultBatchSize, NewRecordIterator(store, "docs", 0).batchSize)
	assert.Equal(t, DefaultBatchSize, NewRecordIterator(store, "docs", -5).batchSize)
}
