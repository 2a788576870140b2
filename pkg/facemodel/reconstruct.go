package facemodel

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// InverseTransform maps k x n coordinates back to the dimensions x n face
// space: components * coords + mean. The result is the closest point in the
// learned subspace, not the original face.
func (m *FaceModel) InverseTransform(coords mat.Matrix) (*mat.Dense, error) {
	if !m.fitted {
		return nil, fmt.Errorf("inverse transform: %w", ErrNotFitted)
	}
	k, n, err := checkShape(coords)
	if err != nil {
		return nil, fmt.Errorf("inverse transform: %w", err)
	}
	d, want := m.components.Dims()
	if k != want {
		return nil, fmt.Errorf("inverse transform: %w: expected %d coordinates, got %d", ErrInvalidInput, want, k)
	}

	faces := mat.NewDense(d, n, nil)
	faces.Mul(m.components, coords)
	faces.Apply(func(i, _ int, v float64) float64 {
		return v + m.mean[i]
	}, faces)
	return faces, nil
}

// ReconstructionError returns the mean squared per-element error between
// faces and their round trip through Transform and InverseTransform.
// Lower values mean the subspace preserves more of the input.
func (m *FaceModel) ReconstructionError(faces mat.Matrix) (float64, error) {
	coords, err := m.Transform(faces)
	if err != nil {
		return 0, err
	}
	rebuilt, err := m.InverseTransform(coords)
	if err != nil {
		return 0, err
	}

	d, n := rebuilt.Dims()
	var sqErr float64
	for i := 0; i < d; i++ {
		for j := 0; j < n; j++ {
			diff := faces.At(i, j) - rebuilt.At(i, j)
			sqErr += diff * diff
		}
	}
	return sqErr / float64(d*n), nil
}

// NormalizeTransformed scales projected coordinates to unit length so that
// dot products between them are cosine similarities. A zero vector is
// returned unchanged.
func NormalizeTransformed(coords []float64) []float64 {
	norm := floats.Norm(coords, 2)
	if norm == 0 {
		return coords
	}

	out := make([]float64, len(coords))
	floats.ScaleTo(out, 1/norm, coords)
	return out
}
