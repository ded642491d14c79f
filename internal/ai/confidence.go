package ai

// ConfidenceWeights are the additive adjustments applied on top of the
// heuristic confidence. The defaults are product constants; change them only
// when the product intent changes.
type ConfidenceWeights struct {
	Base                      int
	DuplicateFound            int
	StrongDuplicate           int
	StrongDuplicateSimilarity float64
	ManyTags                  int
	ManyTagsOver              int
	NonMediumSeverity         int
	Max                       int
}

// DefaultConfidenceWeights returns the production weights.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{
		Base:                      50,
		DuplicateFound:            15,
		StrongDuplicate:           10,
		StrongDuplicateSimilarity: 0.9,
		ManyTags:                  5,
		ManyTagsOver:              2,
		NonMediumSeverity:         10,
		Max:                       100,
	}
}

// FuseConfidence folds duplicate and heuristic signals into one score.
//
// base <= 0 is treated as absent and replaced with w.Base. duplicates holds
// the similarity of each duplicate match; the highest one is the "top"
// duplicate. The clamp to w.Max is applied last.
func FuseConfidence(base int, severity string, tagCount int, duplicates []float64, w ConfidenceWeights) int {
	score := base
	if score <= 0 {
		score = w.Base
	}

	if len(duplicates) > 0 {
		score += w.DuplicateFound

		top := duplicates[0]
		for _, s := range duplicates[1:] {
			if s > top {
				top = s
			}
		}
		if top > w.StrongDuplicateSimilarity {
			score += w.StrongDuplicate
		}
	}

	if tagCount > w.ManyTagsOver {
		score += w.ManyTags
	}

	if severity != SeverityMedium {
		score += w.NonMediumSeverity
	}

	if score > w.Max {
		score = w.Max
	}
	return score
}
