package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugtracker/server/internal/models"
)

func newTestSearchService(repo *fakeBugRepo, emb Embedder, now time.Time) *searchService {
	svc := NewSearchService(repo, repo, emb, DefaultPipelineConfig()).(*searchService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestSearchWithAI_KeywordTier(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := newFakeBugRepo()
	repo.keywordResults = []models.SearchResult{
		{ID: "a", Title: "Login broken", Status: models.StatusOpen, Priority: models.PriorityCritical,
			CreatedAt: now.Add(-time.Hour), RelevanceScore: 1},
		{ID: "b", Title: "Login slow", Status: models.StatusResolved, Priority: models.PriorityLow,
			CreatedAt: now.Add(-30 * 24 * time.Hour), RelevanceScore: 0.6},
	}
	emb := &fakeEmbedder{}

	res, err := newTestSearchService(repo, emb, now).SearchWithAI(context.Background(), owner, "  login ")
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.True(t, res.Results[0].IsHighPriority)
	assert.True(t, res.Results[0].IsRecent)
	assert.False(t, res.Results[1].IsHighPriority)
	assert.False(t, res.Results[1].IsRecent)

	assert.Equal(t, "login", res.Metadata.Query)
	assert.Equal(t, SearchMethodKeyword, res.Metadata.SearchMethod)
	assert.False(t, res.Metadata.FallbackUsed)
	assert.Equal(t, 80, res.Metadata.Confidence)
	assert.Equal(t, 2, res.Metadata.TotalResults)
	assert.Equal(t, 0, emb.Calls(), "fallback must not run when keywords match")

	assert.Equal(t, 1, res.Insights.HighPriorityCount)
	assert.Equal(t, 1, res.Insights.RecentCount)
	assert.Equal(t, 1, res.Insights.StatusBreakdown[models.StatusOpen])
}

func TestSearchWithAI_SemanticFallback(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := newFakeBugRepo(
		models.Bug{Title: "near", CreatedBy: owner, Embedding: unitVec(0.8), CreatedAt: now.Add(-48 * time.Hour)},
		models.Bug{Title: "far", CreatedBy: owner, Embedding: unitVec(0.2), CreatedAt: now},
		models.Bug{Title: "closer", CreatedBy: owner, Embedding: unitVec(0.6), CreatedAt: now.Add(-20 * 24 * time.Hour)},
	)
	emb := &fakeEmbedder{vectors: map[string][]float64{"app freezes": {1, 0}}}

	res, err := newTestSearchService(repo, emb, now).SearchWithAI(context.Background(), owner, "app freezes")
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.Equal(t, "near", res.Results[0].Title)
	assert.Equal(t, "closer", res.Results[1].Title)
	assert.True(t, res.Results[0].IsRecent)
	assert.NotNil(t, res.Results[0].Tags)

	assert.Equal(t, SearchMethodSemantic, res.Metadata.SearchMethod)
	assert.True(t, res.Metadata.FallbackUsed)
	assert.False(t, res.Metadata.Degraded)
	assert.Equal(t, 70, res.Metadata.Confidence)
	assert.Equal(t, 1, repo.keywordCalls)
}

func TestSearchWithAI_ProviderFailureReturnsEmpty(t *testing.T) {
	repo := newFakeBugRepo(models.Bug{Title: "x", CreatedBy: owner, Embedding: unitVec(1)})

	res, err := newTestSearchService(repo, failingEmbedder(), time.Now()).
		SearchWithAI(context.Background(), owner, "anything")
	require.NoError(t, err)

	assert.NotNil(t, res.Results)
	assert.Empty(t, res.Results)
	assert.True(t, res.Metadata.FallbackUsed)
	assert.True(t, res.Metadata.Degraded)
	assert.Equal(t, SearchMethodKeyword, res.Metadata.SearchMethod)
	assert.Equal(t, 0, res.Metadata.Confidence)
	assert.NotEmpty(t, res.Insights.Suggestions)
}

func TestSearchWithAI_CandidateLookupFailureDegrades(t *testing.T) {
	repo := newFakeBugRepo()
	repo.findWithEmbeddingErr = errors.New("mongo unavailable")
	emb := &fakeEmbedder{vectors: map[string][]float64{"q": {1, 0}}}

	res, err := newTestSearchService(repo, emb, time.Now()).SearchWithAI(context.Background(), owner, "q")
	require.NoError(t, err)

	assert.Empty(t, res.Results)
	assert.True(t, res.Metadata.Degraded)
}

func TestSearchWithAI_KeywordErrorIsReturned(t *testing.T) {
	repo := newFakeBugRepo()
	repo.keywordErr = errors.New("regex failed")
	emb := &fakeEmbedder{}

	_, err := newTestSearchService(repo, emb, time.Now()).SearchWithAI(context.Background(), owner, "q")

	assert.ErrorIs(t, err, repo.keywordErr)
	assert.Equal(t, 0, emb.Calls())
}

func TestSearchWithAI_RejectsEmptyQuery(t *testing.T) {
	repo := newFakeBugRepo()

	_, err := newTestSearchService(repo, &fakeEmbedder{}, time.Now()).SearchWithAI(context.Background(), owner, " ")

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, repo.keywordCalls)
}

func TestSearchWithAI_HighPriorityWinsCloseScores(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := newFakeBugRepo(
		models.Bug{Title: "older", CreatedBy: owner, Priority: models.PriorityMedium,
			Embedding: unitVec(0.82), CreatedAt: now.Add(-10 * 24 * time.Hour)},
		models.Bug{Title: "urgent", CreatedBy: owner, Priority: models.PriorityCritical,
			Embedding: unitVec(0.79), CreatedAt: now},
	)
	emb := &fakeEmbedder{vectors: map[string][]float64{"q": {1, 0}}}

	res, err := newTestSearchService(repo, emb, now).SearchWithAI(context.Background(), owner, "q")
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.Equal(t, "urgent", res.Results[0].Title)
	assert.True(t, res.Results[0].IsHighPriority)
	assert.Equal(t, "older", res.Results[1].Title)
}

func TestKeywordConfidence(t *testing.T) {
	assert.Equal(t, 0, keywordConfidence(nil))
	assert.Equal(t, 100, keywordConfidence([]models.SearchResult{{RelevanceScore: 1}}))
	assert.Equal(t, 50, keywordConfidence([]models.SearchResult{{RelevanceScore: 0.4}, {RelevanceScore: 0.6}}))
}
