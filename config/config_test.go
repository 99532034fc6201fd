package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/ragchat/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:11434/v1", cfg.AI.EmbeddingHost)
	assert.Equal(t, cfg.AI.EmbeddingHost, cfg.AI.ChatHost)
	assert.Equal(t, "OPENAI_API_KEY", cfg.AI.APIKeyEnv)
	assert.Equal(t, 64, cfg.Chunker.MaxTokensPerLine)
	assert.Equal(t, 512, cfg.Chunker.MaxTokensPerParagraph)
	assert.Equal(t, TokenizerWords, cfg.Chunker.Tokenizer)
	assert.Equal(t, 3, cfg.Retrieval.Limit)
	assert.InDelta(t, 0.4, cfg.Retrieval.MinScore, 1e-6)
	assert.Equal(t, "system", cfg.Retrieval.ContextRole)
	assert.Equal(t, 30*time.Second, cfg.Ingestion.SourceTimeout())
	assert.Equal(t, StoreMemory, cfg.Store.Type)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_AppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragchat.yaml")
	data := `
ai:
  embedding_host: http://embed.local:8080
  chat_model: llama3
retrieval:
  collection: animals
  context_role: user
  context_prefix: "Here's some additional information: "
store:
  type: sqlite
  path: /tmp/vectors.db
ingestion:
  sources:
    - https://example.com/turtles
    - ./notes.md
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://embed.local:8080", cfg.AI.EmbeddingHost)
	assert.Equal(t, "http://embed.local:8080", cfg.AI.ChatHost)
	assert.Equal(t, "llama3", cfg.AI.ChatModel)
	assert.Equal(t, "embeddinggemma", cfg.AI.EmbeddingModel)
	assert.Equal(t, "animals", cfg.Retrieval.Collection)
	assert.Equal(t, "user", cfg.Retrieval.ContextRole)
	assert.Equal(t, "Here's some additional information: ", cfg.Retrieval.ContextPrefix)
	assert.Equal(t, 3, cfg.Retrieval.Limit)
	assert.Equal(t, StoreSQLite, cfg.Store.Type)
	assert.Equal(t, []string{"https://example.com/turtles", "./notes.md"}, cfg.Ingestion.Sources)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown store", "store:\n  type: redis\n"},
		{"badger without path", "store:\n  type: badger\n"},
		{"bad context role", "retrieval:\n  context_role: assistant\n"},
		{"negative overlap", "chunker:\n  overlap: -1\n"},
		{"negative rate limit", "ingestion:\n  rate_limit: -2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ragchat.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o600))
			_, err := Load(path)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai: [unclosed"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Retrieval.Collection = "saved"
	cfg.Ingestion.DeterministicIDs = true

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadDefault_PrefersWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile("ragchat.yaml", []byte("retrieval:\n  collection: local\n"), 0o600))

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "ragchat.yaml", path)
	assert.Equal(t, "local", cfg.Retrieval.Collection)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "ragchat", "config.yaml"), path)
	assert.Equal(t, Default(), cfg)
	assert.FileExists(t, path)
}

func TestAIConfig_APIKey(t *testing.T) {
	cfg := Default().AI
	cfg.APIKeyEnv = "RAGCHAT_TEST_KEY"

	t.Setenv("RAGCHAT_TEST_KEY", "")
	assert.Equal(t, "none", cfg.APIKey())

	t.Setenv("RAGCHAT_TEST_KEY", "secret")
	assert.Equal(t, "secret", cfg.APIKey())

	aiCfg := ai.NewConfig(cfg.Options()...)
	assert.Equal(t, "secret", aiCfg.APIKey)
	assert.Equal(t, cfg.ChatModel, aiCfg.ChatModel)
}

func TestChunkerConfig_Options(t *testing.T) {
	opts, err := Default().Chunker.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 3)
}
