package simindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerializeVectorRoundTrip(t *testing.T) {
	vec := []float32{0.1, -2.5, 0, 1e-7, 42}
	assert.Equal(t, vec, DeserializeVector(SerializeVector(vec)))
	assert.Empty(t, DeserializeVector(SerializeVector(nil)))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Mismatched dimensions and zero vectors return 0, not NaN.
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
