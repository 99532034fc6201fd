package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/ragchat/storage/memory"
)

func findStringFlag(cmd *cli.Command, name string) *cli.StringFlag {
	for _, flag := range cmd.Flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
			return f
		}
	}
	return nil
}

func findCommand(app *cli.App, name string) *cli.Command {
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func TestAppCommands(t *testing.T) {
	app := newApp()
	for _, name := range []string{"chat", "ingest", "similarity", "reembed", "collections"} {
		assert.NotNil(t, findCommand(app, name), name)
	}
}

func TestChatCommandFlags(t *testing.T) {
	cmd := findCommand(newApp(), "chat")
	require.NotNil(t, cmd)

	var names []string
	for _, flag := range cmd.Flags {
		names = append(names, flag.Names()...)
	}
	assert.Contains(t, names, "verbose")
	assert.Contains(t, names, "no-retrieval")
}

func TestReembedCommandFlags(t *testing.T) {
	cmd := findCommand(newApp(), "reembed")
	require.NotNil(t, cmd)

	t.Run("embedding-model is required", func(t *testing.T) {
		flag := findStringFlag(cmd, "embedding-model")
		require.NotNil(t, flag)
		assert.True(t, flag.Required)
		assert.Empty(t, flag.Value)
	})

	t.Run("embedding-host defaults to configuration", func(t *testing.T) {
		flag := findStringFlag(cmd, "embedding-host")
		require.NotNil(t, flag)
		assert.False(t, flag.Required)
		assert.Empty(t, flag.Value)
	})

	t.Run("missing required flags", func(t *testing.T) {
		err := newApp().Run([]string{"ragchat", "reembed", "--from", "a", "--to", "b"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding-model")
	})
}

func TestSimilarityRequiresInput(t *testing.T) {
	err := newApp().Run([]string{"ragchat", "similarity", "a cat"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}

func TestSetupLogger(t *testing.T) {
	t.Run("invalid level", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.yaml")
		err := newApp().Run([]string{"ragchat", "--log-level", "loud", "--config", path, "collections"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("level is case insensitive", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.yaml")
		err := newApp().Run([]string{"ragchat", "--log-level", "DEBUG", "--config", path, "collections"})
		require.NoError(t, err)
	})
}

func TestListCollections(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	defer store.Close()

	out := &bytes.Buffer{}
	require.NoError(t, listCollections(ctx, store, out))
	assert.Equal(t, "no collections\n", out.String())

	require.NoError(t, store.Upsert(ctx, "kb", "a", "first", []float32{1, 0}))
	require.NoError(t, store.Upsert(ctx, "kb", "b", "second", []float32{0, 1}))
	require.NoError(t, store.EnsureCollection(ctx, "empty"))

	out.Reset()
	require.NoError(t, listCollections(ctx, store, out))
	assert.Contains(t, out.String(), "Collection")
	assert.Regexp(t, `kb\s+2`, out.String())
	assert.Regexp(t, `empty\s+0`, out.String())
}
