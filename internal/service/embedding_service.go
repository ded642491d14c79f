package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bugtracker/server/internal/models"
)

// BackfillFailure records one record that could not be embedded.
type BackfillFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BackfillSummary is returned once every batch has run.
type BackfillSummary struct {
	Total      int               `json:"total"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Batches    int               `json:"batches"`
	Failures   []BackfillFailure `json:"failures"`
	DurationMs int64             `json:"durationMs"`
}

// EmbeddingService computes and stores bug embeddings.
type EmbeddingService interface {
	// EmbedBug computes bug's embedding and stores it.
	EmbedBug(ctx context.Context, bug models.Bug) error
	// Regenerate recomputes one of owner's records from scratch.
	Regenerate(ctx context.Context, owner, id string) (models.Bug, error)
	// Backfill embeds every record of owner that has no embedding yet.
	Backfill(ctx context.Context, owner string) (BackfillSummary, error)
	Stats(ctx context.Context, owner string) (models.EmbeddingStats, error)
}

type embeddingService struct {
	bugs     BugRepository
	embedder Embedder
	cfg      PipelineConfig
	log      *slog.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewEmbeddingService wires dependencies.
func NewEmbeddingService(bugs BugRepository, embedder Embedder, cfg PipelineConfig) EmbeddingService {
	return &embeddingService{
		bugs:     bugs,
		embedder: embedder,
		cfg:      cfg,
		log:      slog.Default().With("component", "embedding_service"),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func (s *embeddingService) EmbedBug(ctx context.Context, bug models.Bug) error {
	vec, err := s.embedder.Embed(ctx, bug.EmbeddingText())
	if err != nil {
		return fmt.Errorf("embed bug %s: %w: %w", bug.ID.Hex(), ErrEmbeddingUnavailable, err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("embed bug %s: %w: %w", bug.ID.Hex(), ErrEmbeddingUnavailable, ErrEmptyEmbedding)
	}
	if want := s.cfg.EmbeddingDimensions; want > 0 && len(vec) != want {
		return fmt.Errorf("embed bug %s: %w: got %d dimensions, want %d",
			bug.ID.Hex(), ErrEmbeddingUnavailable, len(vec), want)
	}

	if err := s.bugs.UpdateEmbedding(ctx, bug.ID.Hex(), vec, s.now().UTC()); err != nil {
		return fmt.Errorf("store embedding for %s: %w", bug.ID.Hex(), err)
	}
	return nil
}

func (s *embeddingService) Regenerate(ctx context.Context, owner, id string) (models.Bug, error) {
	bug, err := s.bugs.FindByID(ctx, owner, id)
	if err != nil {
		return models.Bug{}, err
	}
	if err := s.EmbedBug(ctx, bug); err != nil {
		return models.Bug{}, err
	}
	return s.bugs.FindByID(ctx, owner, id)
}

// Backfill walks the missing records in fixed-size batches. Records inside
// a batch are embedded concurrently; batches run one after another with a
// pause in between to go easy on the provider. A failing record is noted in
// the summary and left for the next run.
func (s *embeddingService) Backfill(ctx context.Context, owner string) (BackfillSummary, error) {
	start := s.now()
	summary := BackfillSummary{Failures: []BackfillFailure{}}

	pending, err := s.bugs.FindMissingEmbedding(ctx, owner, 0)
	if err != nil {
		return summary, fmt.Errorf("load records without embeddings: %w", err)
	}
	summary.Total = len(pending)

	size := s.cfg.BackfillBatchSize
	if size <= 0 {
		size = 10
	}

	var mu sync.Mutex
	for i := 0; i < len(pending); i += size {
		if i > 0 {
			if err := s.sleep(ctx, s.cfg.BackfillDelay); err != nil {
				summary.DurationMs = s.now().Sub(start).Milliseconds()
				return summary, err
			}
		}

		end := min(i+size, len(pending))
		var g errgroup.Group
		for _, bug := range pending[i:end] {
			g.Go(func() error {
				err := s.EmbedBug(ctx, bug)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					summary.Failed++
					summary.Failures = append(summary.Failures, BackfillFailure{ID: bug.ID.Hex(), Error: err.Error()})
					return nil
				}
				summary.Succeeded++
				return nil
			})
		}
		_ = g.Wait()
		summary.Batches++

		s.log.Info("backfill batch done",
			"owner", owner,
			"batch", summary.Batches,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
		)
	}

	summary.DurationMs = s.now().Sub(start).Milliseconds()
	s.log.Info("backfill finished",
		"owner", owner,
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration_ms", summary.DurationMs,
	)
	return summary, nil
}

func (s *embeddingService) Stats(ctx context.Context, owner string) (models.EmbeddingStats, error) {
	return s.bugs.EmbeddingStats(ctx, owner)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
