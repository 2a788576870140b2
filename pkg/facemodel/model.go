// Package facemodel learns an eigenface subspace from face vectors and
// projects new faces into it.
//
// Matrices follow one convention throughout: each column is a face sample and
// each row is a pixel/feature dimension (dimensions x samples). Fit centers the
// training matrix, runs an economy SVD and keeps the leading left singular
// vectors as the component basis. Transform subtracts the training mean and
// projects onto that basis.
//
// A FaceModel is not safe for concurrent use when Fit may run; callers that
// share a model across goroutines must serialize Fit against everything else.
package facemodel

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FaceModel holds the state learned by Fit.
type FaceModel struct {
	rank Rank

	fitted bool

	// mean is the per-feature training mean (length dims).
	mean []float64

	// components is dims x k; column i is the i-th basis vector.
	components *mat.Dense

	// singularValues holds the singular values of the kept components.
	singularValues []float64

	// varianceExplained holds each kept component's share of total variance.
	varianceExplained []float64
}

// New returns an unfitted model that will keep components according to rank.
func New(rank Rank) (*FaceModel, error) {
	if err := rank.Validate(); err != nil {
		return nil, err
	}
	return &FaceModel{rank: rank}, nil
}

// Fit learns the mean and component basis from a dimensions x samples matrix.
//
// A TopK rank above min(dimensions, samples) is clamped to that value. Fitting
// again discards the previous state; a failed Fit leaves it untouched.
func (m *FaceModel) Fit(data mat.Matrix) error {
	centered, mean, err := Normalize(data)
	if err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	d, n := centered.Dims()

	// Economy SVD: U is d x min(d, n), never the full d x d basis.
	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThinU); !ok {
		return fmt.Errorf("fit: %w: SVD of %dx%d matrix did not converge", ErrComputation, d, n)
	}

	sv := svd.Values(nil)
	var u mat.Dense
	svd.UTo(&u)

	k := m.rank.resolve(len(sv))
	components := mat.DenseCopyOf(u.Slice(0, d, 0, k))

	var totalVar float64
	for _, s := range sv {
		totalVar += s * s
	}
	singularValues := make([]float64, k)
	copy(singularValues, sv[:k])
	varianceExplained := make([]float64, k)
	if totalVar > 0 {
		for i, s := range singularValues {
			varianceExplained[i] = s * s / totalVar
		}
	}

	m.mean = mean
	m.components = components
	m.singularValues = singularValues
	m.varianceExplained = varianceExplained
	m.fitted = true
	return nil
}

// Transform projects a dimensions x n batch of faces onto the component basis
// and returns the k x n coordinate matrix.
func (m *FaceModel) Transform(faces mat.Matrix) (*mat.Dense, error) {
	if !m.fitted {
		return nil, fmt.Errorf("transform: %w", ErrNotFitted)
	}
	d, n, err := checkShape(faces)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	if d != len(m.mean) {
		return nil, fmt.Errorf("transform: %w: expected %d dimensions, got %d", ErrInvalidInput, len(m.mean), d)
	}

	centered := mat.NewDense(d, n, nil)
	centered.Apply(func(i, _ int, v float64) float64 {
		return v - m.mean[i]
	}, faces)

	_, k := m.components.Dims()
	coords := mat.NewDense(k, n, nil)
	coords.Mul(m.components.T(), centered)
	return coords, nil
}

// TransformVector projects a single face of length dimensions and returns
// its k coordinates.
func (m *FaceModel) TransformVector(face []float64) ([]float64, error) {
	if !m.fitted {
		return nil, fmt.Errorf("transform: %w", ErrNotFitted)
	}
	if len(face) == 0 {
		return nil, fmt.Errorf("transform: %w: empty vector", ErrInvalidInput)
	}

	v := make([]float64, len(face))
	copy(v, face)
	coords, err := m.Transform(mat.NewVecDense(len(v), v))
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, coords), nil
}

// Fitted reports whether the model has completed a successful Fit.
func (m *FaceModel) Fitted() bool {
	return m.fitted
}

// Rank returns the rank configuration the model was built with.
func (m *FaceModel) Rank() Rank {
	return m.rank
}

// NumComponents returns the number of components kept by the last Fit.
func (m *FaceModel) NumComponents() int {
	if !m.fitted {
		return 0
	}
	_, k := m.components.Dims()
	return k
}

// Dims returns the training dimensionality, or 0 before Fit.
func (m *FaceModel) Dims() int {
	return len(m.mean)
}

// Mean returns a copy of the training mean.
func (m *FaceModel) Mean() ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(m.mean))
	copy(out, m.mean)
	return out, nil
}

// Components returns a copy of the dimensions x k component basis.
func (m *FaceModel) Components() (*mat.Dense, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	return mat.DenseCopyOf(m.components), nil
}

// SingularValues returns the singular values of the kept components,
// in descending order.
func (m *FaceModel) SingularValues() ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(m.singularValues))
	copy(out, m.singularValues)
	return out, nil
}

// VarianceExplained returns each kept component's fraction of total variance.
func (m *FaceModel) VarianceExplained() ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(m.varianceExplained))
	copy(out, m.varianceExplained)
	return out, nil
}

// TotalVarianceExplained returns the cumulative variance explained by all
// kept components.
func (m *FaceModel) TotalVarianceExplained() (float64, error) {
	if !m.fitted {
		return 0, ErrNotFitted
	}
	return floats.Sum(m.varianceExplained), nil
}
