package ai

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(ms []Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func TestRank_DuplicateExample(t *testing.T) {
	cands := []Candidate{
		{ID: "A", Vector: []float64{1, 0}},
		{ID: "B", Vector: []float64{0, 1}},
		{ID: "C", Vector: []float64{0.9, 0.1}},
	}

	res := Rank([]float64{1, 0}, cands, DuplicateRankOptions())

	require.Equal(t, []string{"A", "C"}, ids(res.Matches))
	assert.InDelta(t, 1.0, res.Matches[0].Similarity, 1e-12)
	assert.InDelta(t, 0.9939, res.Matches[1].Similarity, 1e-3)
	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 0, res.Skipped)
}

func TestRank_ThresholdIsExclusive(t *testing.T) {
	query := []float64{1, 0}
	cands := []Candidate{{ID: "edge", Vector: []float64{0.6, 0.8}}}
	edge, err := Cosine(query, cands[0].Vector)
	require.NoError(t, err)

	res := Rank(query, cands, RankOptions{Threshold: edge})
	assert.Empty(t, res.Matches)

	res = Rank(query, cands, RankOptions{Threshold: edge - 0.01})
	assert.Len(t, res.Matches, 1)
}

func TestRank_SkipsInvalidVectors(t *testing.T) {
	cands := []Candidate{
		{ID: "short", Vector: []float64{1}},
		{ID: "empty"},
		{ID: "ok", Vector: []float64{1, 0}},
	}

	res := Rank([]float64{1, 0}, cands, DuplicateRankOptions())

	assert.Equal(t, []string{"ok"}, ids(res.Matches))
	assert.Equal(t, 2, res.Skipped)
}

func TestRank_SkipsNonFiniteVectors(t *testing.T) {
	cands := []Candidate{
		{ID: "nan", Vector: []float64{math.NaN(), 1}},
		{ID: "inf", Vector: []float64{math.Inf(1), 1}},
		{ID: "ok", Vector: []float64{1, 1}},
	}

	res := Rank([]float64{1, 1}, cands, DuplicateRankOptions())

	assert.Equal(t, []string{"ok"}, ids(res.Matches))
	assert.Equal(t, 2, res.Skipped)
	for _, m := range res.Matches {
		assert.False(t, math.IsNaN(m.Similarity))
	}
}

func TestRank_EmptyInputs(t *testing.T) {
	res := Rank([]float64{1, 0}, nil, DuplicateRankOptions())
	assert.NotNil(t, res.Matches)
	assert.Empty(t, res.Matches)

	res = Rank(nil, []Candidate{{ID: "A", Vector: []float64{1, 0}}}, DuplicateRankOptions())
	assert.Empty(t, res.Matches)
}

func TestRank_CountCap(t *testing.T) {
	var cands []Candidate
	for i := 0; i < 40; i++ {
		cands = append(cands, Candidate{
			ID:     fmt.Sprintf("c%d", i),
			Vector: []float64{1, float64(i) * 0.01},
		})
	}

	dup := Rank([]float64{1, 0}, cands, DuplicateRankOptions())
	assert.Len(t, dup.Matches, 5)

	search := Rank([]float64{1, 0}, cands, SearchRankOptions())
	assert.Len(t, search.Matches, 10)
}

func TestRank_SortedDescendingAboveThreshold(t *testing.T) {
	query := []float64{0.2, 0.9, -0.1}
	cands := []Candidate{
		{ID: "1", Vector: []float64{0.1, 0.8, 0}},
		{ID: "2", Vector: []float64{-0.5, 0.2, 0.9}},
		{ID: "3", Vector: []float64{0.3, 0.7, -0.2}},
		{ID: "4", Vector: []float64{1, 0, 0}},
		{ID: "5", Vector: []float64{0.25, 0.85, -0.05}},
	}
	opts := DuplicateRankOptions()

	res := Rank(query, cands, opts)

	require.NotEmpty(t, res.Matches)
	for i, m := range res.Matches {
		assert.Greater(t, m.Similarity, opts.Threshold)
		if i > 0 {
			assert.GreaterOrEqual(t, res.Matches[i-1].Similarity, m.Similarity)
		}
	}
}

func TestRank_SearchTieBreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	query := []float64{1, 0}
	// Pick vectors whose cosine to {1,0} is exactly the wanted similarity.
	vec := func(sim float64) []float64 { return []float64{sim, sqrt1m(sim)} }

	cands := []Candidate{
		{ID: "older", Vector: vec(0.82), CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{ID: "urgent", Vector: vec(0.79), HighPriority: true, CreatedAt: now},
	}
	opts := SearchRankOptions()
	opts.Now = now

	res := Rank(query, cands, opts)

	require.Equal(t, []string{"urgent", "older"}, ids(res.Matches))
	assert.True(t, res.Matches[0].Recent)
	assert.False(t, res.Matches[1].Recent)
}

func TestRank_SearchTieBreakPrefersRecentNext(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	vec := func(sim float64) []float64 { return []float64{sim, sqrt1m(sim)} }

	cands := []Candidate{
		{ID: "stale", Vector: vec(0.70), CreatedAt: now.Add(-30 * 24 * time.Hour)},
		{ID: "fresh", Vector: vec(0.65), CreatedAt: now.Add(-time.Hour)},
		{ID: "far", Vector: vec(0.40), HighPriority: true, CreatedAt: now},
	}
	opts := SearchRankOptions()
	opts.Now = now

	res := Rank([]float64{1, 0}, cands, opts)

	// "far" is outside the window of the leading group and stays last.
	assert.Equal(t, []string{"fresh", "stale", "far"}, ids(res.Matches))
}

func TestRank_DuplicateVariantIgnoresPriority(t *testing.T) {
	vec := func(sim float64) []float64 { return []float64{sim, sqrt1m(sim)} }
	cands := []Candidate{
		{ID: "low", Vector: vec(0.80)},
		{ID: "high", Vector: vec(0.78), HighPriority: true},
	}

	res := Rank([]float64{1, 0}, cands, DuplicateRankOptions())

	assert.Equal(t, []string{"low", "high"}, ids(res.Matches))
}

func TestIsRecent(t *testing.T) {
	now := time.Now()
	week := 7 * 24 * time.Hour

	assert.True(t, IsRecent(now.Add(-time.Hour), now, week))
	assert.True(t, IsRecent(now.Add(-week), now, week))
	assert.False(t, IsRecent(now.Add(-week-time.Second), now, week))
	assert.False(t, IsRecent(time.Time{}, now, week))
	assert.False(t, IsRecent(now, now, 0))
}

func TestMeanSimilarityPercent(t *testing.T) {
	assert.Equal(t, 0, MeanSimilarityPercent(nil))
	assert.Equal(t, 80, MeanSimilarityPercent([]Match{{Similarity: 0.9}, {Similarity: 0.7}}))
	assert.Equal(t, 67, MeanSimilarityPercent([]Match{{Similarity: 0.665}, {Similarity: 0.675}}))
}
