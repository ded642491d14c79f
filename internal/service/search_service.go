package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/bugtracker/server/internal/ai"
	"github.com/bugtracker/server/internal/models"
)

// Search methods reported in SearchMetadata.
const (
	SearchMethodKeyword  = "keyword"
	SearchMethodSemantic = "semantic"
)

// SearchMetadata describes how a search was answered.
type SearchMetadata struct {
	Query        string    `json:"query"`
	TotalResults int       `json:"totalResults"`
	SearchMethod string    `json:"searchMethod"`
	FallbackUsed bool      `json:"fallbackUsed"`
	Confidence   int       `json:"confidence"`
	Degraded     bool      `json:"degraded,omitempty"`
	SearchedAt   time.Time `json:"searchedAt"`
	ProcessingMs int64     `json:"processingMs"`
}

// SearchInsights summarises the final result set.
type SearchInsights struct {
	HighPriorityCount int                   `json:"highPriorityCount"`
	RecentCount       int                   `json:"recentCount"`
	StatusBreakdown   map[models.Status]int `json:"statusBreakdown"`
	Suggestions       []string              `json:"suggestions"`
}

// SearchResponse is the outcome of SearchWithAI.
type SearchResponse struct {
	Results  []models.SearchResult
	Metadata SearchMetadata
	Insights SearchInsights
}

// SearchService runs keyword search with a semantic fallback.
type SearchService interface {
	SearchWithAI(ctx context.Context, owner, query string) (SearchResponse, error)
}

type searchService struct {
	keyword  KeywordSearcher
	bugs     BugRepository
	embedder Embedder
	cfg      PipelineConfig
	log      *slog.Logger
	now      func() time.Time
}

// NewSearchService wires the keyword searcher, the repository used for
// semantic candidates and the embedder.
func NewSearchService(keyword KeywordSearcher, bugs BugRepository, embedder Embedder, cfg PipelineConfig) SearchService {
	return &searchService{
		keyword:  keyword,
		bugs:     bugs,
		embedder: embedder,
		cfg:      cfg,
		log:      slog.Default().With("component", "search_service"),
		now:      time.Now,
	}
}

// SearchWithAI answers query from the keyword tier; only when that tier has
// nothing does it try the embedding tier. Errors from the embedding tier
// never escape: the keyword results (possibly empty) are returned instead.
func (s *searchService) SearchWithAI(ctx context.Context, owner, query string) (SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResponse{}, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	now := s.now()

	results, err := s.keyword.KeywordSearch(ctx, owner, query, s.cfg.KeywordLimit)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("keyword search: %w", err)
	}
	if results == nil {
		results = []models.SearchResult{}
	}

	meta := SearchMetadata{
		Query:        query,
		SearchMethod: SearchMethodKeyword,
		Confidence:   keywordConfidence(results),
		SearchedAt:   now,
	}

	if len(results) == 0 {
		meta.FallbackUsed = true
		semantic, confidence, err := s.semanticSearch(ctx, owner, query, now)
		if err != nil {
			s.log.Warn("semantic fallback failed, returning keyword results", "owner", owner, "error", err)
			meta.Degraded = true
		} else {
			results = semantic
			meta.SearchMethod = SearchMethodSemantic
			meta.Confidence = confidence
		}
	}

	window := s.cfg.RecentWindow()
	for i := range results {
		results[i].IsHighPriority = results[i].Priority == models.PriorityCritical
		results[i].IsRecent = ai.IsRecent(results[i].CreatedAt, now, window)
	}

	meta.TotalResults = len(results)
	meta.ProcessingMs = s.now().Sub(now).Milliseconds()

	s.log.Info("search finished",
		"owner", owner,
		"method", meta.SearchMethod,
		"results", meta.TotalResults,
		"degraded", meta.Degraded,
	)

	return SearchResponse{
		Results:  results,
		Metadata: meta,
		Insights: buildInsights(results, meta),
	}, nil
}

// semanticSearch is the fallback tier.
func (s *searchService) semanticSearch(ctx context.Context, owner, query string, now time.Time) ([]models.SearchResult, int, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) == 0 {
		return nil, 0, ErrEmptyEmbedding
	}

	stored, err := s.bugs.FindWithEmbedding(ctx, owner)
	if err != nil {
		return nil, 0, fmt.Errorf("load candidates: %w", err)
	}

	opts := s.cfg.Search
	opts.Now = now
	ranked := ai.Rank(vec, candidatesFromBugs(stored, ""), opts)

	out := make([]models.SearchResult, 0, len(ranked.Matches))
	for _, m := range ranked.Matches {
		b, _ := m.Ref.(models.Bug)
		out = append(out, models.SearchResult{
			ID:             m.ID,
			Title:          b.Title,
			Description:    b.Description,
			Status:         b.Status,
			Priority:       b.Priority,
			Tags:           nonNilTags(b.Tags),
			CreatedAt:      b.CreatedAt,
			Similarity:     m.Similarity,
			RelevanceScore: m.Similarity,
		})
	}
	return out, ai.MeanSimilarityPercent(ranked.Matches), nil
}

// keywordConfidence is the mean relevance × 100 of keyword hits.
func keywordConfidence(results []models.SearchResult) int {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.RelevanceScore
	}
	c := int(math.Round(sum / float64(len(results)) * 100))
	if c > 100 {
		c = 100
	}
	return c
}

func buildInsights(results []models.SearchResult, meta SearchMetadata) SearchInsights {
	in := SearchInsights{
		StatusBreakdown: map[models.Status]int{},
		Suggestions:     []string{},
	}
	for _, r := range results {
		if r.IsHighPriority {
			in.HighPriorityCount++
		}
		if r.IsRecent {
			in.RecentCount++
		}
		in.StatusBreakdown[r.Status]++
	}

	switch {
	case len(results) == 0:
		in.Suggestions = append(in.Suggestions,
			"No matching bugs found. Try fewer or more general keywords.",
			"Describe the symptom rather than the suspected cause.")
	case meta.SearchMethod == SearchMethodSemantic:
		in.Suggestions = append(in.Suggestions,
			"No exact keyword matches; showing bugs with similar meaning.")
	}
	if in.HighPriorityCount > 0 {
		in.Suggestions = append(in.Suggestions,
			fmt.Sprintf("%d critical bug(s) match this search.", in.HighPriorityCount))
	}
	if open := in.StatusBreakdown[models.StatusOpen]; open > 0 {
		in.Suggestions = append(in.Suggestions,
			fmt.Sprintf("%d open bug(s) may already cover this issue.", open))
	}
	return in
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
