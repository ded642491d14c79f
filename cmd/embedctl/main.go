// Command embedctl is the operator tool for bug embeddings: it backfills
// missing vectors, regenerates single records and mints test tokens.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/bugtracker/server/internal/config"
	"github.com/bugtracker/server/internal/database"
	"github.com/bugtracker/server/internal/middleware"
	"github.com/bugtracker/server/internal/repository"
	"github.com/bugtracker/server/internal/service"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("embedctl failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	userFlag := &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Owner (user ID) whose bugs are processed",
		Required: true,
	}

	return &cli.App{
		Name:  "embedctl",
		Usage: "Manage bug embeddings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "backfill",
				Usage:  "Embed every bug of a user that has no embedding yet",
				Action: backfillCommand,
				Flags: []cli.Flag{
					userFlag,
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records embedded concurrently per batch (0 = configured)",
					},
					&cli.DurationFlag{
						Name:  "delay",
						Usage: "Pause between batches (0 = configured)",
					},
				},
			},
			{
				Name:   "regenerate",
				Usage:  "Recompute the embedding of one bug",
				Action: regenerateCommand,
				Flags: []cli.Flag{
					userFlag,
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Bug ID (hex ObjectID)",
						Required: true,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show embedding coverage for a user",
				Action: statsCommand,
				Flags:  []cli.Flag{userFlag},
			},
			{
				Name:   "token",
				Usage:  "Print a signed session token for a user (testing only)",
				Action: tokenCommand,
				Flags: []cli.Flag{
					userFlag,
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime",
						Value: time.Hour,
					},
				},
			},
		},
	}
}

// env holds what every database-backed command needs.
type env struct {
	embeddings service.EmbeddingService
	close      func()
}

func openEnv(ctx context.Context, c *cli.Context) (*env, error) {
	cfg := config.Load()

	client, err := database.NewMongo(cfg.MongoURI, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	embedder, closeEmbedder, err := service.NewEmbedder(ctx, cfg.EmbedderConfig())
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	tuning := cfg.Tuning()
	if n := c.Int("batch-size"); n > 0 {
		tuning.BackfillBatchSize = n
	}
	if d := c.Duration("delay"); d > 0 {
		tuning.BackfillDelay = d
	}

	repo := repository.NewBugRepository(client.Database(cfg.DBName))
	return &env{
		embeddings: service.NewEmbeddingService(repo, embedder, tuning),
		close: func() {
			_ = closeEmbedder()
			_ = client.Disconnect(context.Background())
		},
	}, nil
}

func backfillCommand(c *cli.Context) error {
	ctx := c.Context
	e, err := openEnv(ctx, c)
	if err != nil {
		return err
	}
	defer e.close()

	summary, err := e.embeddings.Backfill(ctx, c.String("user"))
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	return printJSON(c, summary)
}

func regenerateCommand(c *cli.Context) error {
	ctx := c.Context
	e, err := openEnv(ctx, c)
	if err != nil {
		return err
	}
	defer e.close()

	bug, err := e.embeddings.Regenerate(ctx, c.String("user"), c.String("id"))
	if err != nil {
		return fmt.Errorf("regenerate %s: %w", c.String("id"), err)
	}
	fmt.Fprintf(c.App.Writer, "regenerated %s (%d dimensions)\n", bug.ID.Hex(), len(bug.Embedding))
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := c.Context
	e, err := openEnv(ctx, c)
	if err != nil {
		return err
	}
	defer e.close()

	st, err := e.embeddings.Stats(ctx, c.String("user"))
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	return printJSON(c, st)
}

func tokenCommand(c *cli.Context) error {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	token, err := middleware.IssueToken(secret, c.String("user"), c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.String("log-level"))
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}
