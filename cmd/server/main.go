package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/panjf2000/ants/v2"

	"github.com/bugtracker/server/internal/config"
	"github.com/bugtracker/server/internal/database"
	"github.com/bugtracker/server/internal/handler"
	"github.com/bugtracker/server/internal/middleware"
	"github.com/bugtracker/server/internal/repository"
	"github.com/bugtracker/server/internal/service"
)

// main is the single entry-point for the REST API.
func main() {
	cfg := config.Load()
	setupLogger(cfg.IsProduction())
	log := slog.Default().With("component", "main")
	log.Info("configuration loaded",
		"db", cfg.DBName,
		"env", cfg.Env,
		"embedding_provider", cfg.EmbeddingProvider,
	)

	client, err := database.NewMongo(cfg.MongoURI, 10*time.Second)
	if err != nil {
		fatal(log, "failed to connect to MongoDB", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()
	db := client.Database(cfg.DBName)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Warn("index setup failed", "error", err)
	}
	cancel()

	bugRepo := repository.NewBugRepository(db)
	reportRepo := repository.NewReportRepository(db)

	embedder, closeEmbedder, err := service.NewEmbedder(context.Background(), cfg.EmbedderConfig())
	if err != nil {
		fatal(log, "failed to initialize embedder", err)
	}
	defer closeEmbedder()

	var llm service.LLM
	if cfg.ReportLLMModel != "" {
		vllm, err := service.NewVertexLLM(context.Background(), cfg.ProjectID, cfg.Location, cfg.ReportLLMModel, cfg.CredentialsFile)
		if err != nil {
			log.Warn("report narratives disabled", "error", err)
		} else {
			defer vllm.Close()
			llm = vllm
		}
	}

	pool, err := ants.NewPool(cfg.EmbedWorkers)
	if err != nil {
		fatal(log, "failed to create embedding pool", err)
	}
	defer pool.Release()

	tuning := cfg.Tuning()
	embeddingSvc := service.NewEmbeddingService(bugRepo, embedder, tuning)
	services := handler.Services{
		Analysis:   service.NewAnalysisService(service.RulesAnalyzer{Rules: tuning.Rules}, bugRepo, embedder, tuning),
		Search:     service.NewSearchService(bugRepo, bugRepo, embedder, tuning),
		Embeddings: embeddingSvc,
		Bugs:       service.NewBugService(bugRepo, embeddingSvc, pool, tuning),
		Reports:    service.NewReportService(reportRepo, bugRepo, llm, tuning),
	}

	app := handler.NewApp(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))

	handler.NewHealthHandler(client, service.ModelOf(embedder)).Register(app)
	handler.RegisterRoutes(app, services,
		middleware.RequireAuth(middleware.AuthConfig{Secret: cfg.JWTSecret, CookieName: cfg.JWTCookieName}),
		cfg.IsProduction(),
	)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		fatal(log, "server failed", err)
	}
}

func setupLogger(production bool) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if production {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
