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


// Package config loads the ragchat application configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/chunker"
	"gopkg.in/yaml.v3"
)

// Store backend types.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

// TokenizerWords selects whitespace word counting for the chunker.
const TokenizerWords = "words"

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// AIConfig configures the OpenAI-compatible embedding and chat services.
type AIConfig struct {
	EmbeddingHost  string `yaml:"embedding_host"`
	ChatHost       string `yaml:"chat_host"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	APIKeyEnv      string `yaml:"api_key_env"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	MaxTokensPerLine      int    `yaml:"max_tokens_per_line"`
	MaxTokensPerParagraph int    `yaml:"max_tokens_per_paragraph"`
	Overlap               int    `yaml:"overlap"`
	Tokenizer             string `yaml:"tokenizer"`
}

// RetrievalConfig configures per-turn context retrieval.
type RetrievalConfig struct {
	Collection    string  `yaml:"collection"`
	Limit         int     `yaml:"limit"`
	MinScore      float32 `yaml:"min_score"`
	ContextRole   string  `yaml:"context_role"`
	ContextPrefix string  `yaml:"context_prefix"`
	SystemPrompt  string  `yaml:"system_prompt"`
}

// IngestionConfig configures how sources are fetched and indexed.
type IngestionConfig struct {
	Sources            []string `yaml:"sources,omitempty"`
	Concurrency        int      `yaml:"concurrency"`
	SourceTimeoutSecs  int      `yaml:"source_timeout_secs"`
	EmbeddingBatchSize int      `yaml:"embedding_batch_size"`
	RateLimit          float64  `yaml:"rate_limit"`
	DeterministicIDs   bool     `yaml:"deterministic_ids"`
}

// StoreConfig selects and configures the vector store implementation.
type StoreConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	AI        AIConfig        `yaml:"ai"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Store     StoreConfig     `yaml:"store"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./ragchat.yaml first, then ~/.config/ragchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "ragchat.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragchat", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	defaults := ai.DefaultConfig()
	if cfg.AI.EmbeddingHost == "" {
		cfg.AI.EmbeddingHost = defaults.EmbeddingHost
	}
	if cfg.AI.ChatHost == "" {
		cfg.AI.ChatHost = cfg.AI.EmbeddingHost
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = defaults.EmbeddingModel
	}
	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = defaults.ChatModel
	}
	if cfg.AI.APIKeyEnv == "" {
		cfg.AI.APIKeyEnv = "OPENAI_API_KEY"
	}

	if cfg.Chunker.MaxTokensPerLine == 0 {
		cfg.Chunker.MaxTokensPerLine = chunker.DefaultMaxTokensPerLine
	}
	if cfg.Chunker.MaxTokensPerParagraph == 0 {
		cfg.Chunker.MaxTokensPerParagraph = chunker.DefaultMaxTokensPerParagraph
	}
	if cfg.Chunker.Tokenizer == "" {
		cfg.Chunker.Tokenizer = TokenizerWords
	}

	if cfg.Retrieval.Collection == "" {
		cfg.Retrieval.Collection = "knowledge"
	}
	if cfg.Retrieval.Limit == 0 {
		cfg.Retrieval.Limit = 3
	}
	if cfg.Retrieval.MinScore == 0 {
		cfg.Retrieval.MinScore = 0.4
	}
	if cfg.Retrieval.ContextRole == "" {
		cfg.Retrieval.ContextRole = "system"
	}
	if cfg.Retrieval.SystemPrompt == "" {
		cfg.Retrieval.SystemPrompt = "You are a helpful assistant. Answer using the provided information when it is relevant."
	}

	if cfg.Ingestion.Concurrency == 0 {
		cfg.Ingestion.Concurrency = 4
	}
	if cfg.Ingestion.SourceTimeoutSecs == 0 {
		cfg.Ingestion.SourceTimeoutSecs = 30
	}
	if cfg.Ingestion.EmbeddingBatchSize == 0 {
		cfg.Ingestion.EmbeddingBatchSize = 64
	}

	if cfg.Store.Type == "" {
		cfg.Store.Type = StoreMemory
	}
}

// Validate checks that the configuration is usable.
func (c *AppConfig) Validate() error {
	switch c.Store.Type {
	case StoreMemory:
	case StoreBadger, StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store type %q requires a path", ErrInvalidConfig, c.Store.Type)
		}
	default:
		return fmt.Errorf("%w: unknown store type %q", ErrInvalidConfig, c.Store.Type)
	}
	if c.Retrieval.ContextRole != "system" && c.Retrieval.ContextRole != "user" {
		return fmt.Errorf("%w: context_role must be system or user, got %q", ErrInvalidConfig, c.Retrieval.ContextRole)
	}
	if c.Retrieval.Limit < 0 {
		return fmt.Errorf("%w: negative retrieval limit", ErrInvalidConfig)
	}
	if c.Chunker.MaxTokensPerLine < 0 || c.Chunker.MaxTokensPerParagraph < 0 || c.Chunker.Overlap < 0 {
		return fmt.Errorf("%w: chunker limits must not be negative", ErrInvalidConfig)
	}
	if c.Ingestion.Concurrency < 0 || c.Ingestion.SourceTimeoutSecs < 0 || c.Ingestion.EmbeddingBatchSize < 0 {
		return fmt.Errorf("%w: ingestion settings must not be negative", ErrInvalidConfig)
	}
	if c.Ingestion.RateLimit < 0 {
		return fmt.Errorf("%w: negative rate limit", ErrInvalidConfig)
	}
	return nil
}

// APIKey returns the value of the environment variable named by APIKeyEnv,
// or "none" when it is unset.
func (c AIConfig) APIKey() string {
	if key := os.Getenv(c.APIKeyEnv); key != "" {
		return key
	}
	return "none"
}

// Options converts the section into ai.Config options.
func (c AIConfig) Options() []ai.ConfigOption {
	return []ai.ConfigOption{
		ai.WithEmbeddingHost(c.EmbeddingHost),
		ai.WithChatHost(c.ChatHost),
		ai.WithEmbeddingModel(c.EmbeddingModel),
		ai.WithChatModel(c.ChatModel),
		ai.WithAPIKey(c.APIKey()),
	}
}

// Options converts the section into chunker options. Any tokenizer other
// than "words" is treated as a tiktoken encoding name, such as "cl100k_base".
func (c ChunkerConfig) Options() ([]chunker.Option, error) {
	opts := []chunker.Option{
		chunker.WithMaxTokensPerLine(c.MaxTokensPerLine),
		chunker.WithMaxTokensPerParagraph(c.MaxTokensPerParagraph),
		chunker.WithOverlap(c.Overlap),
	}
	if c.Tokenizer != "" && c.Tokenizer != TokenizerWords {
		counter, err := chunker.NewTiktokenCounter(c.Tokenizer)
		if err != nil {
			return nil, fmt.Errorf("%w: tokenizer %q: %w", ErrInvalidConfig, c.Tokenizer, err)
		}
		opts = append(opts, chunker.WithCounter(counter))
	}
	return opts, nil
}

// SourceTimeout returns the per-source fetch timeout.
func (c IngestionConfig) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutSecs) * time.Second
}
