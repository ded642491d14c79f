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

// Analyzer produces the base heuristic analysis.
type Analyzer interface {
	Analyze(ctx context.Context, in ai.AnalysisInput) (ai.Analysis, error)
}

// RulesAnalyzer adapts an ai.Rules table to Analyzer.
type RulesAnalyzer struct {
	Rules ai.Rules
}

// Analyze runs the rules table.
func (r RulesAnalyzer) Analyze(ctx context.Context, in ai.AnalysisInput) (ai.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return ai.Analysis{}, err
	}
	return r.Rules.Analyze(in), nil
}

// AnalysisResult is the analysis plus duplicate enrichment. The embedded
// heuristic fields are flattened into the JSON object; Confidence here is
// the fused score.
type AnalysisResult struct {
	ai.Analysis
	Duplicates []models.DuplicateCandidate `json:"duplicates"`
	Confidence int                         `json:"confidence"`
	Metadata   AnalysisMetadata            `json:"metadata"`
}

// Duplicate check outcomes reported in AnalysisMetadata.
const (
	DuplicateCheckCompleted = "completed"
	DuplicateCheckSkipped   = "skipped"
)

// AnalysisMetadata describes how the result was produced.
type AnalysisMetadata struct {
	AnalyzedAt          time.Time `json:"analyzedAt"`
	HeuristicConfidence int       `json:"heuristicConfidence"`
	DuplicateCheck      string    `json:"duplicateCheck"`
	SkipReason          string    `json:"skipReason,omitempty"`
	DuplicateThreshold  float64   `json:"duplicateThreshold"`
	CandidatesScanned   int       `json:"candidatesScanned"`
	CandidatesSkipped   int       `json:"candidatesSkipped"`
	EmbeddingModel      string    `json:"embeddingModel"`
	EmbeddingDimensions int       `json:"embeddingDimensions"`
	ProcessingMs        int64     `json:"processingMs"`
}

// AnalysisService analyzes a new bug description and looks for duplicates
// among the caller's own records.
type AnalysisService interface {
	Analyze(ctx context.Context, owner string, req models.AnalyzeRequest) (AnalysisResult, error)
}

type analysisService struct {
	analyzer Analyzer
	bugs     BugRepository
	embedder Embedder
	cfg      PipelineConfig
	log      *slog.Logger
	now      func() time.Time
}

// NewAnalysisService wires dependencies.
func NewAnalysisService(analyzer Analyzer, bugs BugRepository, embedder Embedder, cfg PipelineConfig) AnalysisService {
	return &analysisService{
		analyzer: analyzer,
		bugs:     bugs,
		embedder: embedder,
		cfg:      cfg,
		log:      slog.Default().With("component", "analysis_service"),
		now:      time.Now,
	}
}

// Analyze runs the heuristic analysis and, when an embedding can be
// computed, enriches it with duplicates and a fused confidence. Only a
// failure of the heuristic analysis is returned as an error.
func (s *analysisService) Analyze(ctx context.Context, owner string, req models.AnalyzeRequest) (AnalysisResult, error) {
	if strings.TrimSpace(req.Description) == "" {
		return AnalysisResult{}, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	start := s.now()

	base, err := s.analyzer.Analyze(ctx, ai.AnalysisInput{
		Title:       req.Title,
		Description: req.Description,
		Component:   req.Component,
	})
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("heuristic analysis: %w", err)
	}

	res := AnalysisResult{
		Analysis:   base,
		Duplicates: []models.DuplicateCandidate{},
		Metadata: AnalysisMetadata{
			AnalyzedAt:          start,
			HeuristicConfidence: base.Confidence,
			DuplicateCheck:      DuplicateCheckSkipped,
			DuplicateThreshold:  s.cfg.Duplicate.Threshold,
			EmbeddingModel:      ModelOf(s.embedder),
		},
	}

	s.findDuplicates(ctx, owner, req, &res)

	sims := make([]float64, len(res.Duplicates))
	for i, d := range res.Duplicates {
		sims[i] = d.Similarity
	}
	res.Confidence = ai.FuseConfidence(base.Confidence, base.Severity, len(base.Tags), sims, s.cfg.Weights)
	res.Metadata.ProcessingMs = s.now().Sub(start).Milliseconds()

	s.log.Info("bug analyzed",
		"owner", owner,
		"severity", base.Severity,
		"duplicates", len(res.Duplicates),
		"confidence", res.Confidence,
		"duplicate_check", res.Metadata.DuplicateCheck,
	)
	return res, nil
}

// findDuplicates fills res.Duplicates. Every failure here is logged and
// downgrades the result to "skipped" instead of failing the request.
func (s *analysisService) findDuplicates(ctx context.Context, owner string, req models.AnalyzeRequest, res *AnalysisResult) {
	query, err := s.embedder.Embed(ctx, models.EmbeddingText(req.Title, req.Description))
	if err != nil {
		s.log.Warn("embedding failed, skipping duplicate detection", "owner", owner, "error", err)
		res.Metadata.SkipReason = "embedding unavailable"
		return
	}
	if len(query) == 0 {
		res.Metadata.SkipReason = "embedding unavailable"
		return
	}
	res.Metadata.EmbeddingDimensions = len(query)

	stored, err := s.bugs.FindWithEmbedding(ctx, owner)
	if err != nil {
		s.log.Warn("loading duplicate candidates failed", "owner", owner, "error", err)
		res.Metadata.SkipReason = "candidates unavailable"
		return
	}

	opts := s.cfg.Duplicate
	opts.Now = res.Metadata.AnalyzedAt
	ranked := ai.Rank(query, candidatesFromBugs(stored, ""), opts)
	if ranked.Skipped > 0 {
		s.log.Warn("candidates with incompatible embeddings ignored", "owner", owner, "count", ranked.Skipped)
	}

	for _, m := range ranked.Matches {
		res.Duplicates = append(res.Duplicates, duplicateFromMatch(m))
	}
	res.Metadata.DuplicateCheck = DuplicateCheckCompleted
	res.Metadata.CandidatesScanned = ranked.Scanned
	res.Metadata.CandidatesSkipped = ranked.Skipped
}

// ---- Helpers shared by the AI services -------------------------------------

const snippetRunes = 150

// candidatesFromBugs converts stored records to ranker candidates, leaving
// out excludeID.
func candidatesFromBugs(bugs []models.Bug, excludeID string) []ai.Candidate {
	out := make([]ai.Candidate, 0, len(bugs))
	for _, b := range bugs {
		id := b.ID.Hex()
		if id == excludeID {
			continue
		}
		out = append(out, ai.Candidate{
			ID:           id,
			Vector:       b.Embedding,
			HighPriority: b.Priority == models.PriorityCritical,
			CreatedAt:    b.CreatedAt,
			Ref:          b,
		})
	}
	return out
}

func duplicateFromMatch(m ai.Match) models.DuplicateCandidate {
	b, _ := m.Ref.(models.Bug)
	return models.DuplicateCandidate{
		ID:                 m.ID,
		Title:              b.Title,
		DescriptionSnippet: ai.Truncate(b.Description, snippetRunes),
		Status:             b.Status,
		Priority:           b.Priority,
		CreatedAt:          b.CreatedAt,
		Similarity:         m.Similarity,
	}
}
