// Package vecmath holds the vector arithmetic used for similarity ranking.
package vecmath

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/pagevec/internal/domain"
)

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, mismatch(a, b)
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum, nil
}

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns dot(a, b) / (|a| * |b|).
// A zero vector has similarity 0 with everything.
func Cosine(a, b []float32) (float64, error) {
	dot, err := Dot(a, b)
	if err != nil {
		return 0, err
	}
	denom := Norm(a) * Norm(b)
	if denom == 0 {
		return 0, nil
	}
	sim := dot / denom
	// clamp rounding drift
	return math.Max(-1, math.Min(1, sim)), nil
}

// CosineDistance returns 1 - Cosine(a, b), the metric Redis reports for COSINE indexes.
func CosineDistance(a, b []float32) (float64, error) {
	sim, err := Cosine(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

// Normalize scales v to unit length in place. Zero vectors are left unchanged.
func Normalize(v []float32) []float32 {
	n := Norm(v)
	if n == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / n)
	}
	return v
}

func mismatch(a, b []float32) error {
	return fmt.Errorf("got %d and %d: %w", len(a), len(b), domain.ErrVectorDimMismatch)
}
