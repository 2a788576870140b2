package facemodel

import "errors"

var (
	// ErrInvalidConfiguration is returned for a rank that cannot be used.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidInput is returned for empty, malformed or mismatched matrices.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFitted is returned by every read operation on a model that has
	// not completed a successful Fit.
	ErrNotFitted = errors.New("model not fitted")

	// ErrComputation is returned when the SVD fails to converge.
	ErrComputation = errors.New("computation failed")
)
