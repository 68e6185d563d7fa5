package reduction

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
)

// sampleSet generates a deterministic pseudo-random training sample.
func sampleSet(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	samples := make([][]float32, n)
	for i := range samples {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = float32(rng.NormFloat64())
		}
		samples[i] = vec
	}
	return samples
}

func TestFitRejectsInsufficientSample(t *testing.T) {
	r := New(8, 32)

	_, err := r.Fit(sampleSet(31, 16, 1))
	assert.ErrorIs(t, err, domain.ErrInsufficientSample)

	_, err = r.Fit(nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientSample)
}

func TestFitRejectsInconsistentDimensions(t *testing.T) {
	r := New(8, 4)

	samples := sampleSet(6, 16, 1)
	samples[3] = make([]float32, 12)

	_, err := r.Fit(samples)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestFitGenerationIncreases(t *testing.T) {
	r := New(8, 4)

	m1, err := r.Fit(sampleSet(40, 16, 1))
	require.NoError(t, err)
	m2, err := r.Fit(sampleSet(40, 16, 2))
	require.NoError(t, err)

	assert.Equal(t, m1.Generation()+1, m2.Generation())
}

func TestFitIsDeterministic(t *testing.T) {
	samples := sampleSet(40, 16, 7)

	r1 := New(8, 4)
	m1, err := r1.Fit(samples)
	require.NoError(t, err)

	r2 := New(8, 4)
	m2, err := r2.Fit(samples)
	require.NoError(t, err)

	probe := sampleSet(1, 16, 99)[0]
	p1, err := m1.Project(probe)
	require.NoError(t, err)
	p2, err := m2.Project(probe)
	require.NoError(t, err)

	require.Len(t, p2, len(p1))
	for i := range p1 {
		assert.InDelta(t, p1[i], p2[i], 1e-5)
	}
}

func TestProjectRejectsWrongDimension(t *testing.T) {
	r := New(8, 4)
	m, err := r.Fit(sampleSet(40, 16, 1))
	require.NoError(t, err)

	_, err = m.Project(make([]float32, 17))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = m.Project(nil)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestProjectOutputDimensionStable(t *testing.T) {
	// Sample rank (4 vectors) is below the requested output dimension, so
	// trailing components are zero-padded; the output length must not vary.
	r := New(8, 4)
	m, err := r.Fit(sampleSet(4, 16, 1))
	require.NoError(t, err)

	out, err := m.Project(sampleSet(1, 16, 2)[0])
	require.NoError(t, err)
	assert.Len(t, out, 8)
}

func TestProjectPreservesNeighborhoods(t *testing.T) {
	// Two well-separated clusters must stay separated after projection.
	rng := rand.New(rand.NewSource(3))
	dim := 32
	makeCluster := func(center float32, n int) [][]float32 {
		out := make([][]float32, n)
		for i := range out {
			vec := make([]float32, dim)
			for j := range vec {
				vec[j] = center + float32(rng.NormFloat64())*0.1
			}
			out[i] = vec
		}
		return out
	}

	clusterA := makeCluster(1.0, 20)
	clusterB := makeCluster(-1.0, 20)
	samples := append(append([][]float32{}, clusterA...), clusterB...)

	r := New(4, 4)
	m, err := r.Fit(samples)
	require.NoError(t, err)

	projA, err := m.Project(clusterA[0])
	require.NoError(t, err)
	projA2, err := m.Project(clusterA[1])
	require.NoError(t, err)
	projB, err := m.Project(clusterB[0])
	require.NoError(t, err)

	dist := func(a, b []float32) float64 {
		var sum float64
		for i := range a {
			d := float64(a[i] - b[i])
			sum += d * d
		}
		return sum
	}

	assert.Less(t, dist(projA, projA2), dist(projA, projB))
}

func TestNewDefaults(t *testing.T) {
	r := New(0, 0)
	assert.Equal(t, domain.ReducedEmbeddingDim, r.outputDim)
	assert.Equal(t, DefaultMinSample, r.minSample)
}
