package badger

import (
	"context"
	"testing"

	"github.com/poiesic/ragchat/storage"
	"github.com/poiesic/ragchat/storage/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ConformanceInMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.VectorStore {
		store, err := NewMemoryStore()
		require.NoError(t, err)
		return store
	})
}

func TestStore_ConformanceOnDisk(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.VectorStore {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)
		return store
	})
}

func TestStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, "facts", "first", "A turtle is a reptile.", []float32{1, 0}))
	require.NoError(t, store.Upsert(ctx, "facts", "second", "A cat is a mammal.", []float32{1, 0}))
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	exists, err := store.Exists(ctx, "facts")
	require.NoError(t, err)
	assert.True(t, exists)

	// Records added after reopening sort after the existing ones.
	require.NoError(t, store.Upsert(ctx, "facts", "third", "My best friend is Mike.", []float32{1, 0}))

	results, err := store.Search(ctx, "facts", []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Record.ID)
	assert.Equal(t, "second", results[1].Record.ID)
	assert.Equal(t, "third", results[2].Record.ID)

	err = store.Upsert(ctx, "facts", "fourth", "wrong size", []float32{1, 0, 0})
	assert.Error(t, err)
}

func TestStore_SharedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	store, err := NewStoreWithBackend(backend)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(context.Background(), "facts", "a", "alpha", []float32{1}))
	require.NoError(t, store.Close())

	assert.False(t, backend.IsClosed())
}

func TestStore_Closed(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Search(context.Background(), "facts", []float32{1}, 1, 0)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.NoError(t, store.Close())
}
