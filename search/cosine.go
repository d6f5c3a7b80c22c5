package search

import (
	"fmt"
	"math"
)

// Cosine returns the cosine similarity of a and b, computed in float64.
//
// Vectors of different lengths are a contract error (ErrDimensionMismatch),
// as are NaN or Inf components (ErrNonFiniteVector). If either vector has zero
// magnitude the similarity is exactly 0. The result is clamped to [-1, 1] to
// absorb rounding.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			return 0, fmt.Errorf("%w: component %d", ErrNonFiniteVector, i)
		}
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return max(-1, min(1, score)), nil
}
