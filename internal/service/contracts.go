package service

import (
	"context"
	"errors"
	"time"

	"github.com/bugtracker/server/internal/models"
)

var (
	// ErrInvalidInput marks a request that failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a record does not exist for the caller.
	ErrNotFound = errors.New("not found")
)

// ---- Repository contracts ---------------------------------------------------

// BugRepository is the persistence the pipeline needs. Every read is scoped
// to an owner so one user's records never leak into another's results.
type BugRepository interface {
	Create(ctx context.Context, bug *models.Bug) error
	FindByID(ctx context.Context, owner, id string) (models.Bug, error)
	ListByOwner(ctx context.Context, owner string, limit int) ([]models.Bug, error)
	// FindWithEmbedding returns the owner's records with a non-empty embedding.
	FindWithEmbedding(ctx context.Context, owner string) ([]models.Bug, error)
	// FindMissingEmbedding returns the owner's records without an embedding,
	// oldest first. limit <= 0 means all.
	FindMissingEmbedding(ctx context.Context, owner string, limit int) ([]models.Bug, error)
	// UpdateEmbedding replaces the stored vector wholesale.
	UpdateEmbedding(ctx context.Context, id string, vec []float64, at time.Time) error
	EmbeddingStats(ctx context.Context, owner string) (models.EmbeddingStats, error)
}

// KeywordSearcher is the primary (tier 1) search.
type KeywordSearcher interface {
	KeywordSearch(ctx context.Context, owner, query string, limit int) ([]models.SearchResult, error)
}

// ReportRepository caches rendered bug reports.
type ReportRepository interface {
	// FindByBugID returns the zero Report and a nil error when nothing is cached.
	FindByBugID(ctx context.Context, owner, bugID string) (models.Report, error)
	Upsert(ctx context.Context, r models.Report) error
}

// Submitter runs a task in the background. *ants.Pool satisfies it.
type Submitter interface {
	Submit(task func()) error
}
