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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/chunker"
	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/fetch"
	"github.com/poiesic/ragchat/storage"
)

const (
	// DefaultSourceTimeout bounds the fetch of a single source.
	DefaultSourceTimeout = 30 * time.Second

	// DefaultEmbeddingBatchSize is the number of chunks sent per embedding request.
	DefaultEmbeddingBatchSize = 64

	// DefaultRetryAttempts is the number of attempts per embedding request.
	DefaultRetryAttempts = 3

	// DefaultRetryDelay is the base delay between embedding retries.
	DefaultRetryDelay = 100 * time.Millisecond
)

// Pipeline orchestrates fetching, chunking, embedding, and storing of sources.
// It processes sources concurrently on a bounded worker pool.
type Pipeline struct {
	store            storage.VectorStore
	fetcher          fetch.Fetcher
	embedder         ai.Embedder
	chunker          *chunker.Chunker
	pool             *ants.Pool
	sourceTimeout    time.Duration
	batchSize        int
	retryAttempts    int
	retryDelay       time.Duration
	deterministicIDs bool
	logger           *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size used when Ingest is called without
// an explicit concurrency limit.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunker sets the chunker used to split source text.
// Default is chunker.New().
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c == nil {
			return fmt.Errorf("%w: nil chunker", ErrInvalidOption)
		}
		p.chunker = c
		return nil
	}
}

// WithSourceTimeout bounds the fetch of each source. Zero disables the bound.
func WithSourceTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout < 0 {
			return fmt.Errorf("%w: negative source timeout", ErrInvalidOption)
		}
		p.sourceTimeout = timeout
		return nil
	}
}

// WithEmbeddingBatchSize sets the number of chunks per embedding request.
func WithEmbeddingBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: batch size %d", ErrInvalidOption, size)
		}
		p.batchSize = size
		return nil
	}
}

// WithRetry sets how embedding requests are retried.
// maxAttempts of 1 disables retries.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return fmt.Errorf("%w: %w", ErrInvalidOption, ai.ErrInvalidMaxAttempts)
		}
		p.retryAttempts = maxAttempts
		p.retryDelay = baseDelay
		return nil
	}
}

// WithDeterministicIDs derives record IDs from (collection, source, ordinal)
// so re-ingesting a source replaces its records instead of duplicating them.
func WithDeterministicIDs(enabled bool) Option {
	return func(p *Pipeline) error {
		p.deterministicIDs = enabled
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	store storage.VectorStore,
	fetcher fetch.Fetcher,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		store:         store,
		fetcher:       fetcher,
		embedder:      embedder,
		chunker:       chunker.New(),
		pool:          pool,
		sourceTimeout: DefaultSourceTimeout,
		batchSize:     DefaultEmbeddingBatchSize,
		retryAttempts: DefaultRetryAttempts,
		retryDelay:    DefaultRetryDelay,
		logger:        slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.embedder = ai.WithRetry(embedder, p.retryAttempts, p.retryDelay)
	p.logger = p.logger.With("component", "ingestion")
	return p, nil
}

// idGenerator assigns record IDs for one run.
type idGenerator struct {
	prefix        string
	next          atomic.Uint64
	deterministic bool
}

func (p *Pipeline) newIDGenerator() *idGenerator {
	return &idGenerator{
		prefix:        strings.ToLower(ulid.Make().String()),
		deterministic: p.deterministicIDs,
	}
}

func (g *idGenerator) id(collection string, chunk core.Chunk) string {
	if g.deterministic {
		return core.RecordID(collection, chunk.Source, chunk.Ordinal)
	}
	return fmt.Sprintf("%s-%06d", g.prefix, g.next.Add(1))
}

type sourceResult struct {
	chunks int
	err    error
}

// Ingest indexes every source into collection. At most concurrencyLimit
// sources are processed at once; a limit of 0 or less uses the pipeline's
// pool. Per-source failures are recorded in the report. The returned error
// is non-nil only for failures that violate the collection's invariants,
// such as a dimension mismatch; the report is returned in every case where
// processing started.
func (p *Pipeline) Ingest(ctx context.Context, collection string, sources []string, concurrencyLimit int) (*Report, error) {
	if err := core.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if err := p.store.EnsureCollection(ctx, collection); err != nil {
		return nil, err
	}

	pool := p.pool
	if concurrencyLimit > 0 {
		runPool, err := ants.NewPool(concurrencyLimit)
		if err != nil {
			return nil, err
		}
		defer runPool.Release()
		pool = runPool
	}

	start := time.Now()
	ids := p.newIDGenerator()
	results := make([]sourceResult, len(sources))

	p.logger.Info("ingesting sources",
		"collection", collection,
		"sources", len(sources),
		"concurrency", pool.Cap())

	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			n, err := p.ingestSource(ctx, ids, collection, source)
			results[i] = sourceResult{chunks: n, err: err}
		})
		if err != nil {
			wg.Done()
			results[i] = sourceResult{err: err}
		}
	}
	wg.Wait()

	report := &Report{
		Collection: collection,
		Errors:     make(map[string]error),
	}
	var fatal []error
	for i, source := range sources {
		res := results[i]
		if res.err != nil {
			report.Failed = append(report.Failed, source)
			report.Errors[source] = res.err
			if errors.Is(res.err, core.ErrDimensionMismatch) {
				fatal = append(fatal, res.err)
			}
			continue
		}
		report.Succeeded = append(report.Succeeded, source)
		report.ChunksIndexed += res.chunks
	}
	report.Elapsed = time.Since(start)

	p.logger.Info("ingestion complete",
		"collection", collection,
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
		"chunks", report.ChunksIndexed,
		"elapsed", report.Elapsed)

	return report, errors.Join(fatal...)
}

// IngestText indexes already-fetched text under source and returns the
// number of records written.
func (p *Pipeline) IngestText(ctx context.Context, collection, source, text string) (int, error) {
	if err := core.ValidateCollectionName(collection); err != nil {
		return 0, err
	}
	return p.index(ctx, p.newIDGenerator(), collection, source, text)
}

func (p *Pipeline) ingestSource(ctx context.Context, ids *idGenerator, collection, source string) (int, error) {
	fetchCtx := ctx
	if p.sourceTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.sourceTimeout)
		defer cancel()
	}

	text, err := p.fetcher.Fetch(fetchCtx, source)
	if err != nil {
		p.logger.Warn("error fetching source", "source", source, "err", err)
		return 0, err
	}

	n, err := p.index(ctx, ids, collection, source, text)
	if err != nil {
		p.logger.Warn("error indexing source", "source", source, "err", err)
		return n, err
	}

	p.logger.Debug("indexed source", "source", source, "chunks", n)
	return n, nil
}

// index chunks, embeds, and stores text. A source is stored all or
// nothing: records already written are removed if a later one fails.
func (p *Pipeline) index(ctx context.Context, ids *idGenerator, collection, source, text string) (int, error) {
	chunks := p.chunker.Split(source, text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoChunks, source)
	}

	vectors, err := embedChunks(ctx, p.embedder, chunks, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrEmbedding, source, err)
	}

	written := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		id := ids.id(collection, chunk)
		if err := p.store.Upsert(ctx, collection, id, chunk.Text, vectors[i]); err != nil {
			err = fmt.Errorf("storing chunk %d of %s: %w", chunk.Ordinal, source, err)
			return 0, errors.Join(err, p.rollback(ctx, collection, source, written))
		}
		written = append(written, id)
	}
	return len(chunks), nil
}

// rollback removes the records of a source that failed part way through
// storing. It runs even when ctx is already cancelled.
func (p *Pipeline) rollback(ctx context.Context, collection, source string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := p.store.Delete(context.WithoutCancel(ctx), collection, ids...); err != nil {
		p.logger.Error("error removing partially indexed source", "source", source, "records", len(ids), "err", err)
		return fmt.Errorf("removing %d partial records of %s: %w", len(ids), source, err)
	}
	p.logger.Debug("removed partially indexed source", "source", source, "records", len(ids))
	return nil
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
