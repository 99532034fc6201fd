package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/ragchat/core"
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
		store, err := NewStore(filepath.Join(t.TempDir(), "vectors.db"))
		require.NoError(t, err)
		return store
	})
}

func TestStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "vectors.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, "facts", "a", "A turtle is a reptile.", []float32{0.25, 0.5}))
	require.NoError(t, store.Close())

	store, err = NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	records, err := store.Records(ctx, "facts")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A turtle is a reptile.", records[0].Text)
	assert.Equal(t, []float32{0.25, 0.5}, records[0].Vector)

	err = store.Upsert(ctx, "facts", "b", "wrong size", []float32{1})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestStore_Closed(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.Exists(context.Background(), "facts")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
