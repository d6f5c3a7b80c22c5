package reembed

import (
	"math"

	"github.com/MohanGuptaKoduru/ServiceLink/core"
)

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sum)

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// NeedsEmbedding reports whether t's stored embedding must be regenerated for
// an embedder of dims dimensions identified by model.
func NeedsEmbedding(t *core.Technician, dims int, model string) bool {
	if len(t.Embedding) != dims || !core.IsFinite(t.Embedding) {
		return true
	}
	return t.EmbeddingHash != core.EmbeddingHashFor(t, model)
}
