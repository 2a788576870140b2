// Package service implements the facerec projection service.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/mat"

	"github.com/opaque/facerec/pkg/dataset"
	"github.com/opaque/facerec/pkg/facemodel"
	"github.com/opaque/facerec/pkg/seal"
)

// ErrBatchTooLarge is returned when a request holds more faces than MaxBatch.
var ErrBatchTooLarge = errors.New("batch too large")

// Config holds service configuration.
type Config struct {
	// Rank selects how many components each fit keeps.
	Rank facemodel.Rank

	// MaxBatch caps the number of faces in one projection request.
	MaxBatch int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Rank:     facemodel.FullRank(),
		MaxBatch: 1024,
	}
}

// FitSummary describes the outcome of a successful fit.
type FitSummary struct {
	Dims              int
	Samples           int
	Components        int
	Rank              string
	VarianceExplained float64
	Duration          time.Duration
	FittedAt          time.Time
}

// Status is a snapshot of the service's model.
type Status struct {
	Fitted            bool
	Rank              string
	Dims              int
	Components        int
	Samples           int
	VarianceExplained float64
	FittedAt          time.Time
}

// ProjectionService owns one FaceModel and serializes access to it:
// fits take the write lock, projections share the read lock.
type ProjectionService struct {
	config  Config
	model   *facemodel.FaceModel
	metrics *metrics
	last    FitSummary

	mu sync.RWMutex
}

// NewProjectionService creates a service with an unfitted model. Metrics are
// registered with reg when it is non-nil.
func NewProjectionService(cfg Config, reg prometheus.Registerer) (*ProjectionService, error) {
	if cfg.MaxBatch < 1 {
		return nil, fmt.Errorf("%w: max batch must be >= 1, got %d", facemodel.ErrInvalidConfiguration, cfg.MaxBatch)
	}
	model, err := facemodel.New(cfg.Rank)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	m := newMetrics()
	if reg != nil {
		if err := m.register(reg); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return &ProjectionService{
		config:  cfg,
		model:   model,
		metrics: m,
	}, nil
}

// Fit learns a new subspace from a dimensions x samples matrix, replacing the
// current one. A failed fit keeps the previous model in service.
func (s *ProjectionService) Fit(ctx context.Context, faces mat.Matrix) (FitSummary, error) {
	if err := ctx.Err(); err != nil {
		return FitSummary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	err := s.model.Fit(faces)
	elapsed := time.Since(start)
	s.metrics.observeFit(err, elapsed)
	if err != nil {
		log.Printf("facerec: fit failed after %v: %v", elapsed, err)
		return FitSummary{}, err
	}

	_, n := faces.Dims()
	total, _ := s.model.TotalVarianceExplained()
	s.last = FitSummary{
		Dims:              s.model.Dims(),
		Samples:           n,
		Components:        s.model.NumComponents(),
		Rank:              s.config.Rank.String(),
		VarianceExplained: total,
		Duration:          elapsed,
		FittedAt:          start,
	}

	log.Printf("facerec: fitted %d faces of %d dims (rank %s): %d components, %.2f%% variance explained in %v",
		n, s.last.Dims, s.last.Rank, s.last.Components, total*100, elapsed)
	return s.last, nil
}

// FitRows is Fit for faces given one per row.
func (s *ProjectionService) FitRows(ctx context.Context, rows [][]float64) (FitSummary, error) {
	faces, err := facesFromRows(rows)
	if err != nil {
		s.metrics.observeFit(err, 0)
		return FitSummary{}, err
	}
	return s.Fit(ctx, faces)
}

// Project maps a dimensions x n batch of faces to k x n coordinates.
func (s *ProjectionService) Project(ctx context.Context, faces mat.Matrix) (*mat.Dense, error) {
	coords, err := s.project(ctx, faces)
	s.metrics.observeProjection(err, faces)
	return coords, err
}

func (s *ProjectionService) project(ctx context.Context, faces mat.Matrix) (*mat.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if faces != nil {
		if _, n := faces.Dims(); n > s.config.MaxBatch {
			return nil, fmt.Errorf("%w: %d faces, limit %d", ErrBatchTooLarge, n, s.config.MaxBatch)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model.Transform(faces)
}

// ProjectRows projects faces given one per row and returns one coordinate
// slice per face.
func (s *ProjectionService) ProjectRows(ctx context.Context, rows [][]float64) ([][]float64, error) {
	faces, err := facesFromRows(rows)
	if err != nil {
		s.metrics.observeProjection(err, nil)
		return nil, err
	}
	coords, err := s.Project(ctx, faces)
	if err != nil {
		return nil, err
	}

	_, n := coords.Dims()
	out := make([][]float64, n)
	for j := range out {
		out[j] = mat.Col(nil, j, coords)
	}
	return out, nil
}

// ProjectVector projects a single face.
func (s *ProjectionService) ProjectVector(ctx context.Context, face []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	coords, err := s.model.TransformVector(face)
	s.mu.RUnlock()

	s.metrics.observeVector(err)
	return coords, err
}

// ProjectSealed projects a single face and seals the coordinates under the
// caller's CKKS public key. It returns the ciphertext and the number of
// coordinates it holds.
func (s *ProjectionService) ProjectSealed(ctx context.Context, face []float64, publicKey []byte) ([]byte, int, error) {
	sealer, err := seal.NewSealer(publicKey)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", facemodel.ErrInvalidInput, err)
	}

	coords, err := s.ProjectVector(ctx, face)
	if err != nil {
		return nil, 0, err
	}

	sealed, err := sealer.Seal(coords)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to seal coordinates: %w", err)
	}
	return sealed, len(coords), nil
}

// Reconstruct maps coordinates back to the closest face in the learned subspace.
func (s *ProjectionService) Reconstruct(ctx context.Context, coords []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(coords) == 0 {
		return nil, fmt.Errorf("%w: no coordinates", facemodel.ErrInvalidInput)
	}

	v := make([]float64, len(coords))
	copy(v, coords)

	s.mu.RLock()
	defer s.mu.RUnlock()

	face, err := s.model.InverseTransform(mat.NewVecDense(len(v), v))
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, face), nil
}

// Status returns a snapshot of the current model.
func (s *ProjectionService) Status(ctx context.Context) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		Fitted:            s.model.Fitted(),
		Rank:              s.config.Rank.String(),
		Dims:              s.model.Dims(),
		Components:        s.model.NumComponents(),
		Samples:           s.last.Samples,
		VarianceExplained: s.last.VarianceExplained,
		FittedAt:          s.last.FittedAt,
	}
}

// HealthCheck reports whether the service can serve projections.
func (s *ProjectionService) HealthCheck(ctx context.Context) (bool, string) {
	st := s.Status(ctx)
	if !st.Fitted {
		return false, "model not fitted"
	}
	return true, fmt.Sprintf("serving %d components over %d dims", st.Components, st.Dims)
}

func facesFromRows(rows [][]float64) (*mat.Dense, error) {
	ds, err := dataset.FromRows("request", nil, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", facemodel.ErrInvalidInput, err)
	}
	return ds.Faces, nil
}
