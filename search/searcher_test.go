package search

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/ai/mock"
	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/storage"
	"github.com/poiesic/ragchat/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"A turtle is a reptile.",
	"A cat is a mammal.",
	"My best friend is Mike.",
}

func newKeywordEmbedder() *mock.KeywordEmbedder {
	return mock.NewKeywordEmbedder(64,
		"what", "turtle", "reptile", "cat", "mammal", "my", "best", "friend", "mike")
}

func setupCorpus(t *testing.T, embedder ai.Embedder) storage.VectorStore {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	t.Cleanup(func() { store.Close() })

	vectors, err := embedder.EmbedTexts(ctx, corpus)
	require.NoError(t, err)
	for i, text := range corpus {
		require.NoError(t, store.Upsert(ctx, "facts", core.RecordID("facts", "corpus", i), text, vectors[i]))
	}
	return store
}

func TestNewSearcher(t *testing.T) {
	store := memory.NewStore()
	defer store.Close()
	embedder := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(store, embedder)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with custom logger", func(t *testing.T) {
		searcher, err := NewSearcher(store, embedder, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(store, embedder, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := NewSearcher(nil, embedder)
		assert.Equal(t, ErrStoreRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(store, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})
}

func TestSearcher_RanksReptileQuery(t *testing.T) {
	embedder := newKeywordEmbedder()
	store := setupCorpus(t, embedder)

	searcher, err := NewSearcher(store, embedder)
	require.NoError(t, err)

	results, err := searcher.FindSimilar(context.Background(), "facts", "What is a reptile?", 3, -1)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "A turtle is a reptile.", results[0].Record.Text)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[0].Score, results[2].Score)
}

func TestSearcher_DefaultThresholdKeepsOnlyRelevant(t *testing.T) {
	embedder := newKeywordEmbedder()
	store := setupCorpus(t, embedder)

	searcher, err := NewSearcher(store, embedder)
	require.NoError(t, err)

	results, err := searcher.FindSimilar(context.Background(), "facts", "What is a reptile?", DefaultLimit, DefaultMinScore)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A turtle is a reptile.", results[0].Record.Text)
	assert.InDelta(t, 0.5, results[0].Score, 1e-6)
}

func TestSearcher_UnknownCollection(t *testing.T) {
	embedder := newKeywordEmbedder()
	store := setupCorpus(t, embedder)

	searcher, err := NewSearcher(store, embedder)
	require.NoError(t, err)

	results, err := searcher.FindSimilar(context.Background(), "missing", "reptile", 3, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearcher_EmbeddingError(t *testing.T) {
	store := memory.NewStore()
	defer store.Close()

	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("service down")
	})
	searcher, err := NewSearcher(store, embedder)
	require.NoError(t, err)

	_, err = searcher.FindSimilar(context.Background(), "facts", "query", 3, 0)
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestSearcher_WithMonitor(t *testing.T) {
	embedder := newKeywordEmbedder()
	store := setupCorpus(t, embedder)

	searcher, err := NewSearcher(store, embedder)
	require.NoError(t, err)

	var out bytes.Buffer
	results, err := searcher.FindSimilarWithMonitor(context.Background(), "facts", "turtle reptile", 1, 0,
		NewWriterMonitor(&out))
	require.NoError(t, err)
	require.Len(t, results, 1)

	report := out.String()
	assert.Contains(t, report, `searching "facts" for "turtle reptile"`)
	assert.Contains(t, report, "query embedded (")
	assert.Contains(t, report, "1 results")
	assert.Contains(t, report, "A turtle is a reptile.")
}

func TestCompare(t *testing.T) {
	embedder := newKeywordEmbedder()
	searcher, err := NewSearcher(memory.NewStore(), embedder)
	require.NoError(t, err)

	scores, err := searcher.Compare(context.Background(), "What is a reptile?", corpus)
	require.NoError(t, err)
	require.Len(t, scores, 3)

	assert.Equal(t, "A turtle is a reptile.", scores[0].Text)
	assert.InDelta(t, 0.5, scores[0].Score, 1e-6)
	// The two unrelated sentences tie at zero and keep their input order.
	assert.Equal(t, "A cat is a mammal.", scores[1].Text)
	assert.Equal(t, "My best friend is Mike.", scores[2].Text)
	assert.Equal(t, 1, embedder.CallCount())
}

func TestCompare_NoExamples(t *testing.T) {
	scores, err := Compare(context.Background(), newKeywordEmbedder(), "input", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestCompare_EmbeddingError(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, ai.ErrService
	})
	_, err := Compare(context.Background(), embedder, "input", []string{"one"})
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.ErrorIs(t, err, ai.ErrService)
}
