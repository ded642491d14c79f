package ai

import "math"

// sqrt1m returns sqrt(1 - x²), the second component of a unit vector whose
// first component is x.
func sqrt1m(x float64) float64 {
	return math.Sqrt(1 - x*x)
}
