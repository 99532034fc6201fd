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


package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/ragchat"
	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/ai/openai"
	"github.com/poiesic/ragchat/chunker"
	"github.com/poiesic/ragchat/config"
	"github.com/poiesic/ragchat/conversation"
	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/fetch"
	"github.com/poiesic/ragchat/ingestion"
	"github.com/poiesic/ragchat/reembed"
	"github.com/poiesic/ragchat/search"
	"github.com/poiesic/ragchat/storage"
)

func loadConfig(c *cli.Context) (*config.AppConfig, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	cfg, path, err := config.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Debug("loaded configuration", "path", path)
	return cfg, nil
}

// openEngine opens the configured store and an engine over it. The
// returned func closes both.
func openEngine(cfg *config.AppConfig) (*ragchat.Engine, func(), error) {
	store, err := ragchat.OpenStore(cfg.Store.Type, cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Type, err)
	}

	fetchOpts := []fetch.Option{fetch.WithTimeout(cfg.Ingestion.SourceTimeout())}
	if cfg.Ingestion.RateLimit > 0 {
		fetchOpts = append(fetchOpts, fetch.WithRateLimit(cfg.Ingestion.RateLimit, 1))
	}
	fetcher, err := fetch.NewHTTPFetcher(fetchOpts...)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	engine, err := ragchat.NewEngine(
		ragchat.WithAIConfig(ai.NewConfig(cfg.AI.Options()...)),
		ragchat.WithStore(store),
		ragchat.WithFetcher(fetcher),
	)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return engine, func() {
		engine.Close()
		if err := store.Close(); err != nil {
			slog.Error("error closing store", "err", err)
		}
	}, nil
}

func ingestionOptions(cfg *config.AppConfig) ([]ingestion.Option, error) {
	chunkerOpts, err := cfg.Chunker.Options()
	if err != nil {
		return nil, err
	}
	return []ingestion.Option{
		ingestion.WithChunker(chunker.New(chunkerOpts...)),
		ingestion.WithSourceTimeout(cfg.Ingestion.SourceTimeout()),
		ingestion.WithEmbeddingBatchSize(cfg.Ingestion.EmbeddingBatchSize),
		ingestion.WithDeterministicIDs(cfg.Ingestion.DeterministicIDs),
	}, nil
}

func managerOptions(cfg *config.AppConfig) []conversation.Option {
	return []conversation.Option{
		conversation.WithLimit(cfg.Retrieval.Limit),
		conversation.WithMinScore(cfg.Retrieval.MinScore),
		conversation.WithContextRole(core.Role(cfg.Retrieval.ContextRole)),
		conversation.WithContextPrefix(cfg.Retrieval.ContextPrefix),
	}
}

func printReport(report *ingestion.Report) {
	fmt.Println(report)
	if len(report.Failed) > 0 {
		fmt.Fprint(os.Stderr, report.Details())
	}
}

func chatCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("collection") {
		cfg.Retrieval.Collection = c.String("collection")
	}
	sources := cfg.Ingestion.Sources
	if c.IsSet("source") {
		sources = c.StringSlice("source")
	}

	engine, closeEngine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer closeEngine()

	if len(sources) > 0 {
		opts, err := ingestionOptions(cfg)
		if err != nil {
			return err
		}
		report, err := engine.EnsureIndexed(ctx, cfg.Retrieval.Collection, sources, cfg.Ingestion.Concurrency, opts...)
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
		printReport(report)
	}

	mopts := managerOptions(cfg)
	if c.Bool("verbose") {
		mopts = append(mopts,
			conversation.WithMonitor(conversation.NewWriterMonitor(os.Stderr)),
			conversation.WithSearchMonitor(search.NewWriterMonitor(os.Stderr)),
		)
	}
	manager, err := engine.NewTurnManager(mopts...)
	if err != nil {
		return err
	}
	searcher, err := engine.NewSearcher()
	if err != nil {
		return err
	}

	retrieval := manager.Retrieval(cfg.Retrieval.Collection)
	tools, err := conversation.NewRegistry(
		conversation.NewRetrievalTool(searcher, retrieval),
		conversation.NewNowTool(nil),
	)
	if err != nil {
		return err
	}
	if c.Bool("no-retrieval") {
		retrieval.Collection = ""
	}

	fmt.Println(mutedStyle.Render("Type a message, /tools to list tools, or exit to quit."))
	s := &session{
		manager:   manager,
		conv:      conversation.New(cfg.Retrieval.SystemPrompt),
		tools:     tools,
		retrieval: retrieval,
		in:        os.Stdin,
		out:       os.Stdout,
	}
	if err := s.run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	ctx := c.Context
	sources := c.Args().Slice()
	if len(sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	collection := cfg.Retrieval.Collection
	if c.IsSet("collection") {
		collection = c.String("collection")
	}
	concurrency := cfg.Ingestion.Concurrency
	if c.IsSet("concurrency") {
		concurrency = c.Int("concurrency")
	}

	engine, closeEngine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer closeEngine()

	opts, err := ingestionOptions(cfg)
	if err != nil {
		return err
	}
	pipeline, err := engine.NewIngestionPipeline(opts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	report, err := pipeline.Ingest(ctx, collection, sources, concurrency)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	printReport(report)
	return nil
}

func similarityCommand(c *cli.Context) error {
	examples := c.Args().Slice()
	if len(examples) == 0 {
		return fmt.Errorf("at least one example is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, closeEngine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer closeEngine()

	searcher, err := engine.NewSearcher()
	if err != nil {
		return err
	}
	ranked, err := searcher.Compare(c.Context, c.String("input"), examples)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Similarity\tExample")
	for _, sim := range ranked {
		fmt.Fprintf(w, "%.4f\t%s\n", sim.Score, sim.Text)
	}
	return w.Flush()
}

func reembedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	host := cfg.AI.EmbeddingHost
	if c.IsSet("embedding-host") {
		host = c.String("embedding-host")
	}
	aiConfig := ai.NewConfig(append(cfg.AI.Options(),
		ai.WithEmbeddingHost(host),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)...)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	engine, closeEngine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer closeEngine()

	reembedder, err := engine.NewReembedder(embedder, reembedConfig, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Store: %s %s\n", cfg.Store.Type, cfg.Store.Path)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", aiConfig.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", aiConfig.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(c.Context, c.String("from"), c.String("to")); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func collectionsCommand(c *cli.Context) error {
	ctx := c.Context
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, closeEngine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer closeEngine()

	if name := c.String("drop"); name != "" {
		if err := engine.Store().DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to delete %q: %w", name, err)
		}
		fmt.Printf("deleted collection %q\n", name)
		return nil
	}

	return listCollections(ctx, engine.Store(), os.Stdout)
}

func listCollections(ctx context.Context, store storage.VectorStore, out io.Writer) error {
	names, err := store.Collections(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "no collections")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Collection\tRecords")
	for _, name := range names {
		count, err := store.Count(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\n", name, count)
	}
	return w.Flush()
}
