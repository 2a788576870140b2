// Package grpcserver implements the gRPC service for face projection.
//
// It delegates all business logic to internal/service.ProjectionService,
// translating between wire messages and service-layer types. Messages are
// plain Go structs carried by a JSON codec, so clients must call with the
// "json" content-subtype; Client does this for them.
package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/opaque/facerec/internal/service"
	"github.com/opaque/facerec/pkg/facemodel"
)

// Server implements FaceProjectionServer.
type Server struct {
	svc *service.ProjectionService
}

// New creates a new gRPC server backed by the given ProjectionService.
func New(svc *service.ProjectionService) *Server {
	return &Server{svc: svc}
}

func (s *Server) Fit(ctx context.Context, req *FitRequest) (*FitResponse, error) {
	if len(req.Faces) == 0 {
		return nil, status.Error(codes.InvalidArgument, "faces are required")
	}

	summary, err := s.svc.FitRows(ctx, req.Faces)
	if err != nil {
		return nil, mapError(err)
	}

	return &FitResponse{
		Dims:              int32(summary.Dims),
		Samples:           int32(summary.Samples),
		Components:        int32(summary.Components),
		Rank:              summary.Rank,
		VarianceExplained: summary.VarianceExplained,
		DurationMs:        summary.Duration.Milliseconds(),
	}, nil
}

func (s *Server) Project(ctx context.Context, req *ProjectRequest) (*ProjectResponse, error) {
	if len(req.Faces) == 0 {
		return nil, status.Error(codes.InvalidArgument, "faces are required")
	}

	coords, err := s.svc.ProjectRows(ctx, req.Faces)
	if err != nil {
		return nil, mapError(err)
	}

	return &ProjectResponse{Coordinates: coords}, nil
}

func (s *Server) ProjectSealed(ctx context.Context, req *ProjectSealedRequest) (*ProjectSealedResponse, error) {
	if len(req.Face) == 0 {
		return nil, status.Error(codes.InvalidArgument, "face is required")
	}
	if len(req.PublicKey) == 0 {
		return nil, status.Error(codes.InvalidArgument, "public_key is required")
	}

	sealed, n, err := s.svc.ProjectSealed(ctx, req.Face, req.PublicKey)
	if err != nil {
		return nil, mapError(err)
	}

	return &ProjectSealedResponse{
		Sealed:     sealed,
		Components: int32(n),
	}, nil
}

func (s *Server) Reconstruct(ctx context.Context, req *ReconstructRequest) (*ReconstructResponse, error) {
	if len(req.Coordinates) == 0 {
		return nil, status.Error(codes.InvalidArgument, "coordinates are required")
	}

	face, err := s.svc.Reconstruct(ctx, req.Coordinates)
	if err != nil {
		return nil, mapError(err)
	}

	return &ReconstructResponse{Face: face}, nil
}

func (s *Server) Status(ctx context.Context, _ *StatusRequest) (*StatusResponse, error) {
	st := s.svc.Status(ctx)

	resp := &StatusResponse{
		Fitted:            st.Fitted,
		Rank:              st.Rank,
		Dims:              int32(st.Dims),
		Components:        int32(st.Components),
		Samples:           int32(st.Samples),
		VarianceExplained: st.VarianceExplained,
	}
	if st.Fitted {
		resp.FittedAtUnix = st.FittedAt.Unix()
	}
	return resp, nil
}

// mapError translates service-layer errors to gRPC status codes.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, facemodel.ErrNotFitted):
		return status.Errorf(codes.FailedPrecondition, "%v", err)
	case errors.Is(err, facemodel.ErrInvalidInput),
		errors.Is(err, facemodel.ErrInvalidConfiguration):
		return status.Errorf(codes.InvalidArgument, "%v", err)
	case errors.Is(err, service.ErrBatchTooLarge):
		return status.Errorf(codes.ResourceExhausted, "%v", err)
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%v", err)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%v", err)
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}
