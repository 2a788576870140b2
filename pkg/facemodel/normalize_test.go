package facemodel

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNormalizeCentersRows(t *testing.T) {
	faces := generateFaces(10, 25, 42)
	// Shift each feature so the means are far from zero.
	faces.Apply(func(i, _ int, v float64) float64 { return v + float64(i*10) }, faces)

	centered, mean, err := Normalize(faces)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(mean) != 10 {
		t.Fatalf("expected mean of length 10, got %d", len(mean))
	}

	d, n := centered.Dims()
	for i := 0; i < d; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			sum += centered.At(i, j)
		}
		if math.Abs(sum/float64(n)) > 1e-12 {
			t.Errorf("row %d mean after centering = %.2e", i, sum/float64(n))
		}
		if math.Abs(mean[i]-float64(i*10)) > 1 {
			t.Errorf("row %d mean = %.3f, expected near %d", i, mean[i], i*10)
		}
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	faces := generateFaces(4, 6, 1)
	original := mat.DenseCopyOf(faces)

	centered, _, err := Normalize(faces)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !mat.Equal(faces, original) {
		t.Error("Normalize modified its input")
	}

	centered.Set(0, 0, 1e9)
	if faces.At(0, 0) == 1e9 {
		t.Error("centered result aliases the input")
	}
}

func TestNormalizeIntegerValuedData(t *testing.T) {
	// Integer-valued samples whose mean is fractional.
	faces := mat.NewDense(2, 2, []float64{
		1, 2,
		3, 6,
	})
	centered, mean, err := Normalize(faces)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if mean[0] != 1.5 || mean[1] != 4.5 {
		t.Errorf("mean = %v, want [1.5 4.5]", mean)
	}
	want := mat.NewDense(2, 2, []float64{
		-0.5, 0.5,
		-1.5, 1.5,
	})
	if !mat.EqualApprox(centered, want, 1e-15) {
		t.Errorf("centered = %v, want %v", mat.Formatted(centered), mat.Formatted(want))
	}
}

func TestNormalizeRejectsEmpty(t *testing.T) {
	if _, _, err := Normalize(&mat.Dense{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := Normalize(nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil, got %v", err)
	}
}
