package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bugtracker/server/internal/ai"
	"github.com/bugtracker/server/internal/models"
)

// BugService covers the bug operations the AI pipeline depends on.
type BugService interface {
	Create(ctx context.Context, owner string, req models.CreateBugRequest) (models.Bug, error)
	Get(ctx context.Context, owner, id string) (models.Bug, error)
	List(ctx context.Context, owner string, limit int) ([]models.Bug, error)
}

type bugService struct {
	bugs       BugRepository
	embeddings EmbeddingService
	pool       Submitter
	cfg        PipelineConfig
	log        *slog.Logger
	now        func() time.Time
}

// NewBugService wires dependencies. Embeddings for new bugs are computed on
// pool so creation never waits on the provider.
func NewBugService(bugs BugRepository, embeddings EmbeddingService, pool Submitter, cfg PipelineConfig) BugService {
	return &bugService{
		bugs:       bugs,
		embeddings: embeddings,
		pool:       pool,
		cfg:        cfg,
		log:        slog.Default().With("component", "bug_service"),
		now:        time.Now,
	}
}

// Create stores a new bug. Missing priority and tags are filled from the
// heuristic rules; the embedding is computed in the background and its
// failure only gets logged.
func (s *bugService) Create(ctx context.Context, owner string, req models.CreateBugRequest) (models.Bug, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" || req.Description == "" {
		return models.Bug{}, fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	if req.Status != "" && !req.Status.Valid() {
		return models.Bug{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Status)
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return models.Bug{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, req.Priority)
	}

	analysis := s.cfg.Rules.Analyze(ai.AnalysisInput{
		Title:       req.Title,
		Description: req.Description,
		Component:   req.Component,
	})

	now := s.now().UTC()
	bug := models.Bug{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Component:   req.Component,
		Tags:        req.Tags,
		CreatedBy:   owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if bug.Status == "" {
		bug.Status = models.StatusOpen
	}
	if bug.Priority == "" {
		bug.Priority = analysis.Priority
	}
	if len(bug.Tags) == 0 {
		bug.Tags = analysis.Tags
	}

	if err := s.bugs.Create(ctx, &bug); err != nil {
		return models.Bug{}, fmt.Errorf("create bug: %w", err)
	}

	s.scheduleEmbedding(bug)
	return bug, nil
}

func (s *bugService) scheduleEmbedding(bug models.Bug) {
	if s.pool == nil || s.embeddings == nil {
		return
	}
	timeout := s.cfg.EmbedTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	err := s.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.embeddings.EmbedBug(ctx, bug); err != nil {
			s.log.Warn("embedding new bug failed", "bug_id", bug.ID.Hex(), "error", err)
		}
	})
	if err != nil {
		s.log.Warn("could not schedule embedding", "bug_id", bug.ID.Hex(), "error", err)
	}
}

func (s *bugService) Get(ctx context.Context, owner, id string) (models.Bug, error) {
	return s.bugs.FindByID(ctx, owner, id)
}

func (s *bugService) List(ctx context.Context, owner string, limit int) ([]models.Bug, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.bugs.ListByOwner(ctx, owner, limit)
}
