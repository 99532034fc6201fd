package ragchat

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/ai/mock"
	"github.com/poiesic/ragchat/config"
	"github.com/poiesic/ragchat/conversation"
	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/fetch"
	"github.com/poiesic/ragchat/ingestion"
	"github.com/poiesic/ragchat/reembed"
	"github.com/poiesic/ragchat/storage/memory"
)

type mapFetcher map[string]string

func (m mapFetcher) Fetch(_ context.Context, uri string) (string, error) {
	text, ok := m[uri]
	if !ok {
		return "", fmt.Errorf("%w: %s not found", fetch.ErrFetch, uri)
	}
	return text, nil
}

var testDocs = mapFetcher{
	"turtles": "A turtle is a reptile.",
	"cats":    "A cat is a mammal.",
	"mike":    "My best friend is Mike.",
}

func setupTestEngine(t *testing.T) (*Engine, *mock.MockProvider) {
	t.Helper()
	embedder := mock.NewKeywordEmbedder(64, "turtle", "reptile", "cat", "mammal", "friend", "mike")
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockChat("Turtles ", "are reptiles."))
	engine, err := NewEngine(WithProvider(provider), WithFetcher(testDocs))
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine, provider
}

func TestNewEngine_Defaults(t *testing.T) {
	engine, err := NewEngine(WithAIConfig(ai.NewConfig(ai.WithHost("http://localhost:11434/v1"))))
	require.NoError(t, err)
	defer engine.Close()

	assert.NotNil(t, engine.Store())
	assert.NotNil(t, engine.Provider())
	assert.IsType(t, &fetch.HTTPFetcher{}, engine.Fetcher())
}

func TestNewEngine_InvalidAIConfig(t *testing.T) {
	_, err := NewEngine(WithAIConfig(ai.NewConfig(ai.WithHost(""))))
	assert.Error(t, err)
}

func TestEngine_Close(t *testing.T) {
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockChat())
	store := memory.NewStore()
	defer store.Close()

	engine, err := NewEngine(WithProvider(provider), WithStore(store), WithFetcher(testDocs))
	require.NoError(t, err)
	require.NoError(t, engine.Close())
	assert.True(t, provider.Closed())

	// The engine did not open the store, so it stays usable.
	require.NoError(t, store.EnsureCollection(context.Background(), "kb"))
}

func TestEngine_EnsureIndexed(t *testing.T) {
	ctx := context.Background()
	engine, _ := setupTestEngine(t)

	report, err := engine.EnsureIndexed(ctx, "kb", []string{"turtles", "cats", "missing"}, 2)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, []string{"turtles", "cats"}, report.Succeeded)
	assert.Equal(t, []string{"missing"}, report.Failed)
	assert.Contains(t, report.Errors, "missing")

	count, err := engine.Store().Count(ctx, "kb")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	t.Run("populated collection is skipped", func(t *testing.T) {
		report, err := engine.EnsureIndexed(ctx, "kb", []string{"mike"}, 2)
		require.NoError(t, err)
		assert.True(t, report.Skipped)

		count, err := engine.Store().Count(ctx, "kb")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("empty collection is indexed", func(t *testing.T) {
		require.NoError(t, engine.Store().EnsureCollection(ctx, "empty"))
		report, err := engine.EnsureIndexed(ctx, "empty", []string{"mike"}, 1)
		require.NoError(t, err)
		assert.False(t, report.Skipped)
		assert.Equal(t, []string{"mike"}, report.Succeeded)
	})
}

func TestEngine_EnsureIndexedWithOptions(t *testing.T) {
	ctx := context.Background()
	engine, _ := setupTestEngine(t)

	_, err := engine.EnsureIndexed(ctx, "kb", []string{"turtles"}, 1, ingestion.WithDeterministicIDs(true))
	require.NoError(t, err)

	records, err := engine.Store().Records(ctx, "kb")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, core.RecordID("kb", "turtles", 0), records[0].ID)
}

func TestEngine_NewTurnManager(t *testing.T) {
	ctx := context.Background()
	engine, provider := setupTestEngine(t)

	_, err := engine.EnsureIndexed(ctx, "kb", []string{"turtles", "cats", "mike"}, 3)
	require.NoError(t, err)

	manager, err := engine.NewTurnManager(conversation.WithMinScore(0.1))
	require.NoError(t, err)

	conv := conversation.New("You are a helpful assistant.")
	reply, err := manager.RunTurn(ctx, conv, "What is a reptile?", manager.Retrieval("kb"))
	require.NoError(t, err)

	assert.Equal(t, "Turtles are reptiles.", reply.Content)
	assert.True(t, reply.Committed)
	require.NotEmpty(t, reply.Context)
	assert.Equal(t, "A turtle is a reptile.", reply.Context[0].Record.Text)
	assert.Equal(t, 3, conv.Len())

	sent := provider.GetMockChat().LastHistory()
	require.Len(t, sent, 3)
	assert.Contains(t, sent[1].Content, "A turtle is a reptile.")
}

func TestEngine_NewReembedder(t *testing.T) {
	ctx := context.Background()
	engine, _ := setupTestEngine(t)

	_, err := engine.EnsureIndexed(ctx, "kb", []string{"turtles", "cats"}, 2)
	require.NoError(t, err)

	reembedder, err := engine.NewReembedder(mock.NewMockEmbedder(), reembed.DefaultConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, reembedder.Run(ctx, "kb", "kb-v2"))

	count, err := engine.Store().Count(ctx, "kb-v2")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	for _, kind := range []string{config.StoreMemory, config.StoreBadger, config.StoreSQLite} {
		t.Run(kind, func(t *testing.T) {
			store, err := OpenStore(kind, filepath.Join(dir, kind))
			require.NoError(t, err)
			defer store.Close()

			ctx := context.Background()
			require.NoError(t, store.Upsert(ctx, "kb", "a", "hello", []float32{1, 0}))
			count, err := store.Count(ctx, "kb")
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		_, err := OpenStore("postgres", "")
		assert.ErrorIs(t, err, ErrUnknownStore)
	})
}
