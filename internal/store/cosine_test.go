package store

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func randVector(n int, r *rand.Rand) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = r.Float32()*2 - 1
	}
	return v
}

func TestCosineSymmetricAndBounded(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		a := randVector(16, r)
		b := randVector(16, r)
		ab := Cosine(a, b)
		ba := Cosine(b, a)
		assert.InDelta(t, ab, ba, 1e-12)
		assert.GreaterOrEqual(t, ab, -1.0)
		assert.LessOrEqual(t, ab, 1.0)
	}
}

func TestCosineSelfSimilarity(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 20; i++ {
		v := randVector(8, r)
		assert.InDelta(t, 1.0, Cosine(v, v), 1e-6)
	}
}

func TestCosineDegenerateInputs(t *testing.T) {
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine([]float32{1, 2}, []float32{1}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestCosineOpposedVectors(t *testing.T) {
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
}
