package service

import (
	"time"

	"github.com/bugtracker/server/internal/ai"
)

// PipelineConfig carries every tunable of the analyze, search and backfill
// paths. DefaultPipelineConfig holds the product defaults.
type PipelineConfig struct {
	Duplicate ai.RankOptions
	Search    ai.RankOptions
	Weights   ai.ConfidenceWeights
	Rules     ai.Rules

	KeywordLimit int

	BackfillBatchSize int
	BackfillDelay     time.Duration

	// EmbeddingDimensions, when set, rejects provider output of another length.
	EmbeddingDimensions int
	// EmbedTimeout bounds background embedding jobs started on bug creation.
	EmbedTimeout time.Duration
}

// DefaultPipelineConfig returns the production defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Duplicate:         ai.DuplicateRankOptions(),
		Search:            ai.SearchRankOptions(),
		Weights:           ai.DefaultConfidenceWeights(),
		Rules:             ai.DefaultRules(),
		KeywordLimit:      10,
		BackfillBatchSize: 10,
		BackfillDelay:     100 * time.Millisecond,
		EmbedTimeout:      30 * time.Second,
	}
}

// RecentWindow is the "recent" window used for result flags.
func (c PipelineConfig) RecentWindow() time.Duration {
	return c.Search.RecentWindow
}
