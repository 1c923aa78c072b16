package store

import "math"

// Cosine returns the cosine similarity of a and b: dot product over the
// product of norms, in [-1, 1]. Zero or mismatched vectors score zero.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// rounding can push the ratio a hair past the bounds
	return math.Max(-1, math.Min(1, sim))
}
