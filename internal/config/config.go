// Package config centralises all environment configuration for the API and
// the embedctl tool. It should be imported only by cmd/ (and test code).
// Business-logic layers receive already-built values via dependency injection.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bugtracker/server/internal/service"
)

// Config holds every runtime option the server needs.
// Keep it flat and simple; prefer primitive types over embedding structs.
type Config struct {
	// Network
	Port        string
	Env         string
	CORSOrigins string

	// Data stores
	MongoURI string
	DBName   string

	// Auth
	JWTSecret     string
	JWTCookieName string

	// Server tuning
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Embeddings
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingTimeout    time.Duration
	EmbeddingCacheSize  int
	EmbedWorkers        int

	// Google Cloud
	ProjectID       string
	Location        string
	CredentialsFile string
	ReportLLMModel  string

	// Pipeline tuning
	DuplicateThreshold float64
	SearchThreshold    float64
	RecentWindow       time.Duration
	BackfillBatchSize  int
	BackfillDelay      time.Duration
}

// IsProduction reports whether error details must be hidden from clients.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Tuning returns the pipeline defaults overridden by the configured
// thresholds, windows and batch sizes.
func (c Config) Tuning() service.PipelineConfig {
	p := service.DefaultPipelineConfig()
	p.Duplicate.Threshold = c.DuplicateThreshold
	p.Duplicate.RecentWindow = c.RecentWindow
	p.Search.Threshold = c.SearchThreshold
	p.Search.RecentWindow = c.RecentWindow
	p.BackfillBatchSize = c.BackfillBatchSize
	p.BackfillDelay = c.BackfillDelay
	p.EmbeddingDimensions = c.EmbeddingDimensions
	if c.EmbeddingTimeout > 0 {
		p.EmbedTimeout = 2 * c.EmbeddingTimeout
	}
	return p
}

// EmbedderConfig maps the embedding keys onto the provider factory.
func (c Config) EmbedderConfig() service.EmbedderConfig {
	return service.EmbedderConfig{
		Provider:        c.EmbeddingProvider,
		Model:           c.EmbeddingModel,
		Dimensions:      c.EmbeddingDimensions,
		ProjectID:       c.ProjectID,
		Location:        c.Location,
		CredentialsFile: c.CredentialsFile,
		Timeout:         c.EmbeddingTimeout,
		CacheSize:       c.EmbeddingCacheSize,
	}
}

// Load parses the environment (and an optional .env file) into Config.
// It exits on missing critical variables so mis-configurations fail fast.
func Load() Config {
	// godotenv.Load() is a no-op if .env doesn't exist; safe in production.
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

// FromEnv builds a Config from the current environment without touching
// .env files. Every missing required key is reported at once.
func FromEnv() (Config, error) {
	var missing []string
	must := func(key string) string {
		val := os.Getenv(key)
		if val == "" {
			missing = append(missing, key)
		}
		return val
	}

	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("APP_ENV", "development"),
		CORSOrigins:         getEnv("CORS_ORIGINS", "http://localhost:3000"),
		MongoURI:            must("MONGODB_URI"),
		DBName:              getEnv("MONGODB_DB", "bugtracker"),
		JWTSecret:           must("JWT_SECRET"),
		JWTCookieName:       getEnv("JWT_COOKIE_NAME", "token"),
		ReadTimeout:         getDuration("READ_TIMEOUT_SEC", 5),
		WriteTimeout:        getDuration("WRITE_TIMEOUT_SEC", 30),
		EmbeddingProvider:   strings.ToLower(getEnv("EMBEDDING_PROVIDER", "vertex")),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", ""),
		EmbeddingDimensions: getInt("EMBEDDING_DIMENSIONS", 0),
		EmbeddingTimeout:    getDuration("EMBEDDING_TIMEOUT_SEC", 15),
		EmbeddingCacheSize:  getInt("EMBEDDING_CACHE_SIZE", 1024),
		EmbedWorkers:        getInt("EMBED_WORKERS", 4),
		ProjectID:           getEnv("GCP_PROJECT_ID", ""),
		Location:            getEnv("GCP_LOCATION", "us-central1"),
		CredentialsFile:     getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		ReportLLMModel:      getEnv("REPORT_LLM_MODEL", ""),
		DuplicateThreshold:  getFloat("DUPLICATE_THRESHOLD", 0.75),
		SearchThreshold:     getFloat("SEARCH_THRESHOLD", 0.3),
		RecentWindow:        time.Duration(getInt("RECENT_WINDOW_DAYS", 7)) * 24 * time.Hour,
		BackfillBatchSize:   getInt("BACKFILL_BATCH_SIZE", 10),
		BackfillDelay:       time.Duration(getInt("BACKFILL_DELAY_MS", 100)) * time.Millisecond,
	}

	needsGCP := cfg.EmbeddingProvider == "vertex" || cfg.ReportLLMModel != ""
	if needsGCP && cfg.ProjectID == "" {
		missing = append(missing, "GCP_PROJECT_ID")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required env vars not set: %s", strings.Join(missing, ", "))
	}

	var errs []error
	if cfg.DuplicateThreshold < 0 || cfg.DuplicateThreshold >= 1 {
		errs = append(errs, fmt.Errorf("DUPLICATE_THRESHOLD must be in [0, 1), got %v", cfg.DuplicateThreshold))
	}
	if cfg.SearchThreshold < 0 || cfg.SearchThreshold >= 1 {
		errs = append(errs, fmt.Errorf("SEARCH_THRESHOLD must be in [0, 1), got %v", cfg.SearchThreshold))
	}
	if cfg.EmbedWorkers <= 0 {
		errs = append(errs, fmt.Errorf("EMBED_WORKERS must be positive, got %d", cfg.EmbedWorkers))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// getEnv returns env[key] if set, otherwise defaultVal.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getDuration reads an integer (seconds) from env, falling back to defaultSec.
func getDuration(key string, defaultSec int) time.Duration {
	return time.Duration(getInt(key, defaultSec)) * time.Second
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("invalid integer env var; using default", "key", key, "value", v, "default", defaultVal)
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Warn("invalid number env var; using default", "key", key, "value", v, "default", defaultVal)
	}
	return defaultVal
}
