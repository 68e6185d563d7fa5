// Package reduction maintains the linear projection (PCA) that maps
// provider embeddings into the compact vector space shared by users and
// content.
//
// The model is an explicit, versioned object: every Fit produces a new
// Model with a monotonically increasing generation id, and callers inject
// the model into index builds and profile projections. Vectors projected
// with different generations must never be compared.
package reduction

import (
	"math"
	"sync/atomic"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
)

const (
	// DefaultMinSample is the minimum training sample size below which Fit
	// refuses to train.
	DefaultMinSample = 32
	// DefaultMaxSample caps the combined training sample drawn from the
	// corpus.
	DefaultMaxSample = 512

	powerIterations = 200
	convergenceTol  = 1e-8
)

// Model is a trained PCA projection. Immutable after Fit.
type Model struct {
	generation int64
	inputDim   int
	outputDim  int
	mean       []float64
	// components holds outputDim rows of length inputDim, orthonormal in
	// feature space. Rows past the sample rank are zero so projection stays
	// dimension-stable.
	components [][]float64
}

// Generation returns the model's generation id.
func (m *Model) Generation() int64 { return m.generation }

// InputDim returns the expected input vector dimension.
func (m *Model) InputDim() int { return m.inputDim }

// OutputDim returns the projected vector dimension.
func (m *Model) OutputDim() int { return m.outputDim }

// Project maps a full-precision vector into the reduced space. Input
// vectors of incorrect dimensionality are rejected, never truncated or
// padded. Output length always equals OutputDim.
func (m *Model) Project(vec []float32) ([]float32, error) {
	if len(vec) != m.inputDim {
		return nil, domain.DimensionError(m.inputDim, len(vec))
	}

	centered := make([]float64, m.inputDim)
	for i, v := range vec {
		centered[i] = float64(v) - m.mean[i]
	}

	out := make([]float32, m.outputDim)
	for j, component := range m.components {
		var dot float64
		for i, c := range component {
			dot += centered[i] * c
		}
		out[j] = float32(dot)
	}
	return out, nil
}

// Reducer trains projection models. Retraining happens only on explicit
// rebuild triggers, never implicitly mid-request.
type Reducer struct {
	outputDim  int
	minSample  int
	generation atomic.Int64
}

// New creates a Reducer producing outputDim-dimensional projections.
func New(outputDim, minSample int) *Reducer {
	if outputDim <= 0 {
		outputDim = domain.ReducedEmbeddingDim
	}
	if minSample <= 0 {
		minSample = DefaultMinSample
	}
	return &Reducer{outputDim: outputDim, minSample: minSample}
}

// Fit trains a new model from a representative sample of corpus embeddings.
// The sample is mean-centered but not scaled, matching the corpus's natural
// variance. Returns domain.ErrInsufficientSample when the sample is below
// the minimum threshold and domain.ErrDimensionMismatch when sample vectors
// disagree on dimension.
func (r *Reducer) Fit(samples [][]float32) (*Model, error) {
	if len(samples) < r.minSample {
		return nil, domain.ErrInsufficientSample
	}

	inputDim := len(samples[0])
	if inputDim == 0 {
		return nil, domain.DimensionError(1, 0)
	}
	for _, s := range samples {
		if len(s) != inputDim {
			return nil, domain.DimensionError(inputDim, len(s))
		}
	}

	n := len(samples)
	mean := make([]float64, inputDim)
	for _, s := range samples {
		for i, v := range s {
			mean[i] += float64(v)
		}
	}
	for i := range mean {
		mean[i] /= float64(n)
	}

	// Centered sample matrix, row-major.
	centered := make([][]float64, n)
	for row, s := range samples {
		centered[row] = make([]float64, inputDim)
		for i, v := range s {
			centered[row][i] = float64(v) - mean[i]
		}
	}

	// PCA via the Gram matrix (n x n): eigenvectors of X*Xt map onto
	// feature-space components as Xt*v. Cheaper than decomposing the
	// (inputDim x inputDim) covariance when n << inputDim.
	gram := gramMatrix(centered)
	components := make([][]float64, 0, r.outputDim)
	eigenvectors := make([][]float64, 0, r.outputDim)

	for len(components) < r.outputDim && len(components) < n {
		v, lambda := dominantEigenvector(gram, eigenvectors)
		if lambda < convergenceTol {
			break
		}
		eigenvectors = append(eigenvectors, v)

		component := make([]float64, inputDim)
		for row := range centered {
			for i := range component {
				component[i] += v[row] * centered[row][i]
			}
		}
		normalize(component)
		components = append(components, component)
	}

	// Pad with zero components so Project output stays dimension-stable
	// even when the sample rank is below outputDim.
	for len(components) < r.outputDim {
		components = append(components, make([]float64, inputDim))
	}

	return &Model{
		generation: r.generation.Add(1),
		inputDim:   inputDim,
		outputDim:  r.outputDim,
		mean:       mean,
		components: components,
	}, nil
}

func gramMatrix(centered [][]float64) [][]float64 {
	n := len(centered)
	gram := make([][]float64, n)
	for i := range gram {
		gram[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var dot float64
			for k := range centered[i] {
				dot += centered[i][k] * centered[j][k]
			}
			gram[i][j] = dot
			gram[j][i] = dot
		}
	}
	return gram
}

// dominantEigenvector extracts the largest remaining eigenpair of gram via
// power iteration, deflating against previously extracted eigenvectors.
// Initialization is deterministic so Fit is reproducible for a given sample.
func dominantEigenvector(gram [][]float64, previous [][]float64) ([]float64, float64) {
	n := len(gram)
	v := make([]float64, n)
	for i := range v {
		// Varying seed values keep the start vector from being orthogonal
		// to the target eigenvector.
		v[i] = 1.0 + float64(i%7)*0.1
	}
	orthogonalize(v, previous)
	normalize(v)

	next := make([]float64, n)
	lambda := 0.0
	for iter := 0; iter < powerIterations; iter++ {
		for i := range next {
			var sum float64
			for j := range v {
				sum += gram[i][j] * v[j]
			}
			next[i] = sum
		}
		orthogonalize(next, previous)

		newLambda := norm(next)
		if newLambda < convergenceTol {
			return v, 0
		}
		for i := range next {
			next[i] /= newLambda
		}

		converged := math.Abs(newLambda-lambda) < convergenceTol*math.Max(1, newLambda)
		lambda = newLambda
		copy(v, next)
		if converged {
			break
		}
	}
	return v, lambda
}

func orthogonalize(v []float64, basis [][]float64) {
	for _, b := range basis {
		var dot float64
		for i := range v {
			dot += v[i] * b[i]
		}
		for i := range v {
			v[i] -= dot * b[i]
		}
	}
}

func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func normalize(v []float64) {
	n := norm(v)
	if n == 0 {
		return
	}
	for i := range v {
		v[i] /= n
	}
}
