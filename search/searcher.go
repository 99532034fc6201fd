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


package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/storage"
)

const (
	// DefaultLimit is the number of results returned when no limit is given.
	DefaultLimit = 3

	// DefaultMinScore is the relevance threshold used when none is given.
	DefaultMinScore float32 = 0.4
)

// Searcher provides semantic search over vector collections.
type Searcher struct {
	store    storage.VectorStore
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:    store,
		embedder: embedder,
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.logger = s.logger.With("component", "searcher")
	return s, nil
}

// FindSimilar returns up to limit records of collection whose similarity to
// query is at least minScore, best first.
func (s *Searcher) FindSimilar(ctx context.Context, collection, query string, limit int, minScore float32) ([]*core.SearchResult, error) {
	return s.FindSimilarWithMonitor(ctx, collection, query, limit, minScore, nil)
}

// FindSimilarWithMonitor is FindSimilar with a monitor receiving callbacks
// at each stage of the search.
func (s *Searcher) FindSimilarWithMonitor(
	ctx context.Context,
	collection, query string,
	limit int,
	minScore float32,
	monitor SearchMonitor,
) ([]*core.SearchResult, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(collection, query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	monitor.AfterEmbedding(embedding)

	results, err := s.store.Search(ctx, collection, embedding, limit, minScore)
	if err != nil {
		s.logger.Error("error querying for similar records", "collection", collection, "err", err)
		return nil, err
	}

	s.logger.Debug("search complete", "collection", collection, "results", len(results))
	monitor.Finish(results)
	return results, nil
}

// Similarity is the score of one example against an input.
type Similarity struct {
	Text  string
	Score float32
}

// Compare embeds input and every example in one request and returns the
// examples ranked by cosine similarity to input, best first. Equal scores
// keep the order of examples.
func (s *Searcher) Compare(ctx context.Context, input string, examples []string) ([]Similarity, error) {
	return Compare(ctx, s.embedder, input, examples)
}

// Compare ranks examples by their similarity to input using embedder.
func Compare(ctx context.Context, embedder ai.Embedder, input string, examples []string) ([]Similarity, error) {
	if len(examples) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(examples)+1)
	texts = append(texts, input)
	texts = append(texts, examples...)

	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %w: sent %d texts, got %d embeddings",
			ErrEmbedding, ai.ErrEmbeddingCount, len(texts), len(vectors))
	}

	scores := make([]Similarity, len(examples))
	for i, example := range examples {
		scores[i] = Similarity{
			Text:  example,
			Score: core.CosineSimilarity(vectors[0], vectors[i+1]),
		}
	}
	slices.SortStableFunc(scores, func(a, b Similarity) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return scores, nil
}
