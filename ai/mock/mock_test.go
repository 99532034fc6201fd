package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/ragchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	m := NewMockEmbedder()

	v1, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	v2, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	v3, err := m.EmbedText(ctx, "goodbye")
	require.NoError(t, err)

	assert.Len(t, v1, DefaultDimension)
	assert.Equal(t, v1, v2)
	assert.NotEqual(t, v1, v3)
	assert.InDelta(t, 1.0, core.CosineSimilarity(v1, v2), 1e-5)
	assert.Equal(t, 3, m.CallCount())

	var sum float64
	for _, x := range v1 {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sum, 1e-4, "vectors are unit length")
}

func TestMockEmbedder_InjectedFuncs(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	m := NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		if text == "bad" {
			return nil, boom
		}
		return []float32{1, 2}, nil
	})

	vectors, err := m.EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {1, 2}}, vectors)

	_, err = m.EmbedTexts(ctx, []string{"a", "bad"})
	assert.ErrorIs(t, err, boom)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	v, err := m.EmbedText(ctx, "bad")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimension)
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"what", "reptile"}, Keywords("What is a reptile?"))
	assert.Equal(t, []string{"turtle", "reptile"}, Keywords("A turtle is a reptile."))
	assert.Empty(t, Keywords("the a an"))
}

func TestKeywordEmbedder(t *testing.T) {
	ctx := context.Background()
	k := NewKeywordEmbedder(64, "turtle", "reptile", "cat", "mammal")

	query, err := k.EmbedText(ctx, "What is a reptile?")
	require.NoError(t, err)
	docs, err := k.EmbedTexts(ctx, []string{"A turtle is a reptile.", "A cat is a mammal."})
	require.NoError(t, err)

	assert.Len(t, query, 64)
	assert.Greater(t, core.CosineSimilarity(query, docs[0]), core.CosineSimilarity(query, docs[1]))
	assert.Equal(t, float32(0), core.CosineSimilarity(docs[0], docs[1]))
	assert.Equal(t, 2, k.CallCount())
}

func TestKeywordEmbedder_RaisesSmallDimension(t *testing.T) {
	k := NewKeywordEmbedder(2, "one", "two", "three")
	assert.Equal(t, 19, k.Dimension())
}

func collect(t *testing.T, c *MockChat, history []core.Message) ([]string, error) {
	t.Helper()
	var out []string
	for fragment, err := range c.StreamReply(context.Background(), history) {
		if err != nil {
			return out, err
		}
		out = append(out, fragment)
	}
	return out, nil
}

func TestMockChat(t *testing.T) {
	history := []core.Message{core.UserMessage("hi")}

	t.Run("default reply", func(t *testing.T) {
		c := NewMockChat()
		out, err := collect(t, c, history)
		require.NoError(t, err)
		assert.Equal(t, []string{"ok"}, out)
		assert.Equal(t, 1, c.CallCount())
		assert.Equal(t, history, c.LastHistory())
	})

	t.Run("scripted failure after fragments", func(t *testing.T) {
		boom := errors.New("boom")
		c := NewMockChat().WithReplyFunc(func(ctx context.Context, h []core.Message) ([]string, error) {
			return []string{"par", "tial"}, boom
		})
		out, err := collect(t, c, history)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"par", "tial"}, out)
	})

	t.Run("history is copied", func(t *testing.T) {
		c := NewMockChat()
		h := []core.Message{core.UserMessage("original")}
		_, err := collect(t, c, h)
		require.NoError(t, err)
		h[0].Content = "changed"
		assert.Equal(t, "original", c.Histories()[0][0].Content)
	})
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	assert.NotNil(t, p.Embedder())
	assert.NotNil(t, p.Chat())

	mp := p.(*MockProvider)
	assert.NotNil(t, mp.GetMockEmbedder())
	assert.NotNil(t, mp.GetMockChat())
	require.NoError(t, p.Close())
	assert.True(t, mp.Closed())
}
