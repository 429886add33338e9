package pipeline

import (
	"fmt"
	"math"
)

// Cosine returns the cosine similarity of a and b, clamped to [-1, 1].
// A zero-magnitude vector, or vectors of different lengths, yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim))
}

// Mean returns the elementwise average of vecs. All vectors must have the
// same length.
func Mean(vecs [][]float32) ([]float32, error) {
	if len(vecs) == 0 {
		return nil, nil
	}

	dim := len(vecs[0])
	sum := make([]float64, dim)
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(v), dim)
		}
		for j, x := range v {
			sum[j] += float64(x)
		}
	}

	mean := make([]float32, dim)
	n := float64(len(vecs))
	for j, s := range sum {
		mean[j] = float32(s / n)
	}
	return mean, nil
}
