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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ragchat",
		Usage: "Retrieval-augmented chat over your own documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file (default ./ragchat.yaml or ~/.config/ragchat/config.yaml)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "chat",
				Usage:  "Index sources if needed, then chat with retrieval over them",
				Action: chatCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "source",
						Aliases: []string{"s"},
						Usage:   "URL or file to index before chatting (repeatable)",
					},
					&cli.StringFlag{
						Name:  "collection",
						Usage: "Collection to retrieve context from",
					},
					&cli.BoolFlag{
						Name:  "no-retrieval",
						Usage: "Chat without retrieving context",
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Report turn phases and retrieval results on stderr",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Fetch, chunk, embed, and index sources into a collection",
				ArgsUsage: "SOURCE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "collection",
						Usage: "Collection to index into",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Maximum number of sources processed at once",
					},
				},
			},
			{
				Name:      "similarity",
				Usage:     "Rank example texts by semantic similarity to an input",
				ArgsUsage: "EXAMPLE...",
				Action:    similarityCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Text to compare the examples against",
						Required: true,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Copy a collection into a new one using a different embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "from",
						Usage:    "Source collection",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Target collection",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL (defaults to the configured host)",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "collections",
				Usage:  "List collections and their record counts",
				Action: collectionsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "drop",
						Usage: "Delete the named collection",
					},
				},
			},
		},
	}
}

func setup(c *cli.Context) error {
	// A missing .env file is not an error.
	_ = godotenv.Load()
	return setupLogger(c)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
