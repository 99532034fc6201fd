package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ragchat/ai/mock"
	"github.com/poiesic/ragchat/conversation"
	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/search"
	"github.com/poiesic/ragchat/storage/memory"
)

func setupTestSession(t *testing.T, chat *mock.MockChat, input string) (*session, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()

	embedder := mock.NewKeywordEmbedder(64, "turtle", "reptile", "cat", "mammal")
	store := memory.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	for i, text := range []string{"A turtle is a reptile.", "A cat is a mammal."} {
		vector, err := embedder.EmbedText(ctx, text)
		require.NoError(t, err)
		require.NoError(t, store.Upsert(ctx, "kb", core.RecordID("kb", "doc", i), text, vector))
	}

	searcher, err := search.NewSearcher(store, embedder)
	require.NoError(t, err)
	manager, err := conversation.NewManager(searcher, chat)
	require.NoError(t, err)

	retrieval := manager.Retrieval("kb")
	clock := func() time.Time { return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC) }
	tools, err := conversation.NewRegistry(
		conversation.NewRetrievalTool(searcher, retrieval),
		conversation.NewNowTool(clock),
	)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return &session{
		manager:   manager,
		conv:      conversation.New("You are a helpful assistant."),
		tools:     tools,
		retrieval: retrieval,
		in:        strings.NewReader(input),
		out:       out,
	}, out
}

func TestSession_Turn(t *testing.T) {
	chat := mock.NewMockChat("Turtles ", "are reptiles.")
	s, out := setupTestSession(t, chat, "What is a reptile?\nexit\n")

	require.NoError(t, s.run(context.Background()))

	assert.Contains(t, out.String(), "Turtles are reptiles.")
	assert.Equal(t, 1, chat.CallCount())
	assert.Equal(t, 3, s.conv.Len())

	sent := chat.LastHistory()
	require.Len(t, sent, 3)
	assert.Contains(t, sent[1].Content, "A turtle is a reptile.")
}

func TestSession_ExitIgnoresCase(t *testing.T) {
	for _, word := range []string{"exit", "EXIT", "Exit", "  eXiT  "} {
		t.Run(word, func(t *testing.T) {
			chat := mock.NewMockChat()
			s, _ := setupTestSession(t, chat, word+"\nWhat is a reptile?\n")

			require.NoError(t, s.run(context.Background()))
			assert.Equal(t, 0, chat.CallCount())
			assert.Equal(t, 1, s.conv.Len())
		})
	}
}

func TestSession_EndOfInput(t *testing.T) {
	chat := mock.NewMockChat()
	s, _ := setupTestSession(t, chat, "\n\n")

	require.NoError(t, s.run(context.Background()))
	assert.Equal(t, 0, chat.CallCount())
}

func TestSession_FailedTurnContinues(t *testing.T) {
	calls := 0
	chat := mock.NewMockChat().WithReplyFunc(func(ctx context.Context, history []core.Message) ([]string, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("service unavailable")
		}
		return []string{"Cats are mammals."}, nil
	})
	s, out := setupTestSession(t, chat, "What is a reptile?\nWhat is a cat?\n")

	require.NoError(t, s.run(context.Background()))

	assert.Contains(t, out.String(), "error:")
	assert.Contains(t, out.String(), "service unavailable")
	assert.Contains(t, out.String(), "Cats are mammals.")
	assert.Equal(t, 2, chat.CallCount())

	// Only the successful turn is in the log.
	messages := s.conv.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, "What is a cat?", messages[1].Content)
	assert.Equal(t, "Cats are mammals.", messages[2].Content)
}

func TestSession_Tools(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		s, out := setupTestSession(t, mock.NewMockChat(), "/tools\n")
		require.NoError(t, s.run(context.Background()))

		assert.Contains(t, out.String(), "/now")
		assert.Contains(t, out.String(), "/retrieve")
	})

	t.Run("call", func(t *testing.T) {
		chat := mock.NewMockChat()
		s, out := setupTestSession(t, chat, "/now\n/retrieve turtle reptile\n")
		require.NoError(t, s.run(context.Background()))

		assert.Contains(t, out.String(), "Fri, 14 Mar 2025 15:09:26 UTC")
		assert.Contains(t, out.String(), "A turtle is a reptile.")
		assert.Equal(t, 0, chat.CallCount())
		assert.Equal(t, 1, s.conv.Len())
	})

	t.Run("unregistered name goes to the model", func(t *testing.T) {
		chat := mock.NewMockChat("It maps host names to addresses.")
		s, out := setupTestSession(t, chat, "/etc/hosts is what?\n/weather today\n")
		require.NoError(t, s.run(context.Background()))

		assert.NotContains(t, out.String(), "error:")
		assert.Equal(t, 2, chat.CallCount())
		assert.Equal(t, 5, s.conv.Len())

		messages := s.conv.Messages()
		assert.Equal(t, "/etc/hosts is what?", messages[1].Content)
		assert.Equal(t, "/weather today", messages[3].Content)
	})

	t.Run("tool failure keeps the loop", func(t *testing.T) {
		chat := mock.NewMockChat()
		s, out := setupTestSession(t, chat, "/retrieve\nexit\n")
		s.tools = mustRegistry(t, conversation.Tool{
			Name:        "retrieve",
			Description: "always fails",
			Func: func(ctx context.Context, query string) (string, error) {
				return "", errors.New("index offline")
			},
		})
		require.NoError(t, s.run(context.Background()))

		assert.Contains(t, out.String(), "error:")
		assert.Contains(t, out.String(), "index offline")
		assert.Equal(t, 0, chat.CallCount())
	})
}

func mustRegistry(t *testing.T, tools ...conversation.Tool) *conversation.Registry {
	t.Helper()
	registry, err := conversation.NewRegistry(tools...)
	require.NoError(t, err)
	return registry
}
