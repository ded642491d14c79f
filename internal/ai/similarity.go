// Package ai holds the pure scoring pieces of the bug pipeline: vector
// similarity, duplicate ranking, confidence fusion, keyword rules and report
// rendering. Nothing in here talks to the network or the database, so every
// function is safe to call concurrently.
package ai

import (
	"errors"
	"math"
)

var (
	// ErrEmptyVector is returned when either side of a comparison has no values.
	ErrEmptyVector = errors.New("ai: empty vector")
	// ErrDimensionMismatch is returned when two vectors differ in length.
	ErrDimensionMismatch = errors.New("ai: vector dimension mismatch")
	// ErrNonFiniteVector is returned when a vector holds NaN or ±Inf, or its
	// magnitude overflows.
	ErrNonFiniteVector = errors.New("ai: non-finite vector")
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
//
// Both vectors must be non-empty and of equal length; lengths are never
// coerced. A zero-magnitude vector yields 0 with a nil error. The result is
// never NaN.
func Cosine(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyVector
	}
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if !finite(dot) || !finite(normA) || !finite(normB) {
		return 0, ErrNonFiniteVector
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Rounding can push |sim| a hair past 1 for near-parallel vectors.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
