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


// Package ragchat wires a vector store, an AI provider, and a document fetcher
// into a retrieval-augmented chat engine.
package ragchat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/ai/openai"
	"github.com/poiesic/ragchat/config"
	"github.com/poiesic/ragchat/conversation"
	"github.com/poiesic/ragchat/fetch"
	"github.com/poiesic/ragchat/ingestion"
	"github.com/poiesic/ragchat/reembed"
	"github.com/poiesic/ragchat/search"
	"github.com/poiesic/ragchat/storage"
	"github.com/poiesic/ragchat/storage/badger"
	"github.com/poiesic/ragchat/storage/memory"
	"github.com/poiesic/ragchat/storage/sqlite"
)

// ErrUnknownStore is returned by OpenStore for an unrecognized store kind.
var ErrUnknownStore = errors.New("unknown store kind")

// OpenStore opens a vector store of the given kind, one of the config.Store*
// constants. path is ignored for the memory store.
func OpenStore(kind, path string) (storage.VectorStore, error) {
	switch kind {
	case config.StoreMemory, "":
		return memory.NewStore(), nil
	case config.StoreBadger:
		return badger.NewStore(path)
	case config.StoreSQLite:
		return sqlite.NewStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, kind)
	}
}

// Engine owns the collaborators shared by ingestion, search, and chat.
type Engine struct {
	store     storage.VectorStore
	ownsStore bool
	provider  ai.AIProvider
	fetcher   fetch.Fetcher
	base      *slog.Logger
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	store    storage.VectorStore
	fetcher  fetch.Fetcher
	logger   *slog.Logger
}

// WithAIConfig sets the configuration of the default OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of creating an OpenAI-compatible one.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithStore uses store instead of a new in-memory store.
// The caller keeps ownership and must close it.
func WithStore(store storage.VectorStore) EngineOption {
	return func(o *engineOptions) {
		o.store = store
	}
}

// WithFetcher uses fetcher instead of a default HTTP fetcher.
func WithFetcher(fetcher fetch.Fetcher) EngineOption {
	return func(o *engineOptions) {
		o.fetcher = fetcher
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine creates an engine. Collaborators not supplied through options
// are created with their defaults.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	// Apply options
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	fetcher := options.fetcher
	if fetcher == nil {
		httpFetcher, err := fetch.NewHTTPFetcher(fetch.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		fetcher = httpFetcher
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		options.aiConfig.Normalize()
		var err error
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	store, ownsStore := options.store, false
	if store == nil {
		store, ownsStore = memory.NewStore(), true
	}

	return &Engine{
		store:     store,
		ownsStore: ownsStore,
		provider:  provider,
		fetcher:   fetcher,
		base:      logger,
		logger:    logger.With("component", "engine"),
	}, nil
}

// Close releases the provider and any store the engine created.
func (e *Engine) Close() error {
	// Close AI provider first
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	if e.ownsStore {
		if err := e.store.Close(); err != nil {
			e.logger.Error("error closing vector store", "err", err)
			return err
		}
	}
	return nil
}

func (e *Engine) Store() storage.VectorStore {
	return e.store
}

func (e *Engine) Provider() ai.AIProvider {
	return e.provider
}

func (e *Engine) Fetcher() fetch.Fetcher {
	return e.fetcher
}

func (e *Engine) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(e.base)}, opts...)
	return ingestion.NewPipeline(e.store, e.fetcher, e.provider.Embedder(), opts...)
}

func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithLogger(e.base)}, opts...)
	return search.NewSearcher(e.store, e.provider.Embedder(), opts...)
}

// NewTurnManager creates a conversation manager that retrieves from the
// engine's store and replies with the provider's chat model.
func (e *Engine) NewTurnManager(opts ...conversation.Option) (*conversation.Manager, error) {
	searcher, err := e.NewSearcher()
	if err != nil {
		return nil, err
	}
	opts = append([]conversation.Option{conversation.WithLogger(e.base)}, opts...)
	return conversation.NewManager(searcher, e.provider.Chat(), opts...)
}

// NewReembedder creates a reembedder that writes vectors produced by embedder.
func (e *Engine) NewReembedder(embedder ai.Embedder, config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(e.store, embedder, config, progress)
}

// EnsureIndexed ingests sources into collection unless the collection
// already holds records, in which case a skipped report is returned.
func (e *Engine) EnsureIndexed(
	ctx context.Context,
	collection string,
	sources []string,
	concurrency int,
	opts ...ingestion.Option,
) (*ingestion.Report, error) {
	exists, err := e.store.Exists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if exists {
		count, err := e.store.Count(ctx, collection)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			e.logger.Info("collection already indexed, skipping ingestion", "collection", collection, "records", count)
			return ingestion.NewSkippedReport(collection), nil
		}
	}

	pipeline, err := e.NewIngestionPipeline(opts...)
	if err != nil {
		return nil, err
	}
	defer pipeline.Release()

	return pipeline.Ingest(ctx, collection, sources, concurrency)
}
