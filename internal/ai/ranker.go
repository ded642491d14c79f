package ai

import (
	"math"
	"sort"
	"time"
)

// Candidate is a stored record offered to the ranker. Ref carries whatever
// the caller needs to build its response and is returned untouched.
type Candidate struct {
	ID           string
	Vector       []float64
	HighPriority bool
	CreatedAt    time.Time
	Ref          any
}

// Match is a candidate that survived the threshold.
type Match struct {
	Candidate
	Similarity float64
	Recent     bool
}

// RankOptions configures one ranking call site.
type RankOptions struct {
	// Threshold is exclusive: a similarity equal to it is dropped.
	Threshold float64
	// Limit caps the output length. Zero or negative means no cap.
	Limit int
	// TieWindow groups similarities that lie within this distance of the
	// group's best score; inside a group high-priority then recent records
	// win. Zero disables the secondary ordering.
	TieWindow float64
	// RecentWindow decides Match.Recent relative to Now.
	RecentWindow time.Duration
	// Now defaults to time.Now() when zero.
	Now time.Time
}

// DuplicateRankOptions is the duplicate-detection call site.
func DuplicateRankOptions() RankOptions {
	return RankOptions{
		Threshold:    0.75,
		Limit:        5,
		RecentWindow: 7 * 24 * time.Hour,
	}
}

// SearchRankOptions is the semantic-search fallback call site.
func SearchRankOptions() RankOptions {
	return RankOptions{
		Threshold:    0.3,
		Limit:        10,
		TieWindow:    0.1,
		RecentWindow: 7 * 24 * time.Hour,
	}
}

// RankResult is the ranker output plus bookkeeping for response metadata.
type RankResult struct {
	Matches []Match
	// Scanned counts every candidate offered.
	Scanned int
	// Skipped counts candidates whose vector could not be compared
	// (empty, non-finite or a different dimension than the query).
	Skipped int
}

// Rank scores every candidate against query, drops invalid comparisons and
// anything at or below the threshold, orders the rest by descending
// similarity and truncates to the limit.
//
// Callers must not call Rank with an empty query; it returns an empty
// result in that case so a slip cannot produce bogus matches.
func Rank(query []float64, candidates []Candidate, opts RankOptions) RankResult {
	res := RankResult{Scanned: len(candidates), Matches: []Match{}}
	if len(query) == 0 || len(candidates) == 0 {
		return res
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	for _, c := range candidates {
		sim, err := Cosine(query, c.Vector)
		if err != nil {
			res.Skipped++
			continue
		}
		if sim <= opts.Threshold {
			continue
		}
		res.Matches = append(res.Matches, Match{
			Candidate:  c,
			Similarity: sim,
			Recent:     IsRecent(c.CreatedAt, now, opts.RecentWindow),
		})
	}

	sortMatches(res.Matches, opts.TieWindow)

	if opts.Limit > 0 && len(res.Matches) > opts.Limit {
		res.Matches = res.Matches[:opts.Limit]
	}
	return res
}

// IsRecent reports whether created falls inside window before now.
func IsRecent(created, now time.Time, window time.Duration) bool {
	if created.IsZero() || window <= 0 {
		return false
	}
	return now.Sub(created) <= window
}

// MeanSimilarityPercent is the mean similarity × 100 rounded to the nearest
// integer, or 0 for no matches.
func MeanSimilarityPercent(matches []Match) int {
	if len(matches) == 0 {
		return 0
	}
	var sum float64
	for _, m := range matches {
		sum += m.Similarity
	}
	return int(math.Round(sum / float64(len(matches)) * 100))
}

// sortMatches orders by similarity, then regroups runs whose scores sit
// within window of the run's leader and orders each run by
// (high priority, recent, similarity). Grouping against the leader keeps
// the ordering transitive, which a pairwise "within 0.1" comparator is not.
func sortMatches(ms []Match, window float64) {
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].Similarity > ms[j].Similarity
	})
	if window <= 0 {
		return
	}

	for start := 0; start < len(ms); {
		end := start + 1
		for end < len(ms) && ms[start].Similarity-ms[end].Similarity <= window {
			end++
		}
		group := ms[start:end]
		sort.SliceStable(group, func(i, j int) bool {
			a, b := group[i], group[j]
			if a.HighPriority != b.HighPriority {
				return a.HighPriority
			}
			if a.Recent != b.Recent {
				return a.Recent
			}
			return a.Similarity > b.Similarity
		})
		start = end
	}
}
