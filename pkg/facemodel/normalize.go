package facemodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Normalize centers a dimensions x samples matrix to zero mean per feature.
//
// It returns a newly allocated centered copy and the per-row mean. The input
// is never modified.
func Normalize(data mat.Matrix) (*mat.Dense, []float64, error) {
	d, n, err := checkShape(data)
	if err != nil {
		return nil, nil, err
	}

	centered := mat.DenseCopyOf(data)
	mean := make([]float64, d)
	row := make([]float64, n)
	for i := 0; i < d; i++ {
		mat.Row(row, i, centered)
		if !allFinite(row) {
			return nil, nil, fmt.Errorf("%w: non-finite value in feature row %d", ErrInvalidInput, i)
		}
		mean[i] = stat.Mean(row, nil)
		floats.AddConst(-mean[i], row)
		centered.SetRow(i, row)
	}

	return centered, mean, nil
}

// checkShape rejects nil and empty matrices.
func checkShape(data mat.Matrix) (int, int, error) {
	if data == nil {
		return 0, 0, fmt.Errorf("%w: nil matrix", ErrInvalidInput)
	}
	d, n := data.Dims()
	if d == 0 || n == 0 {
		return 0, 0, fmt.Errorf("%w: empty matrix (%d dimensions x %d samples)", ErrInvalidInput, d, n)
	}
	return d, n, nil
}

func allFinite(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
