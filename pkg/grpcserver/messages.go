package grpcserver

// Faces travel one per row: Faces[i] is the i-th face vector.

type FitRequest struct {
	Faces [][]float64 `json:"faces"`
}

type FitResponse struct {
	Dims              int32   `json:"dims"`
	Samples           int32   `json:"samples"`
	Components        int32   `json:"components"`
	Rank              string  `json:"rank"`
	VarianceExplained float64 `json:"variance_explained"`
	DurationMs        int64   `json:"duration_ms"`
}

type ProjectRequest struct {
	Faces [][]float64 `json:"faces"`
}

type ProjectResponse struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type ProjectSealedRequest struct {
	Face      []float64 `json:"face"`
	PublicKey []byte    `json:"public_key"`
}

type ProjectSealedResponse struct {
	Sealed     []byte `json:"sealed"`
	Components int32  `json:"components"`
}

type ReconstructRequest struct {
	Coordinates []float64 `json:"coordinates"`
}

type ReconstructResponse struct {
	Face []float64 `json:"face"`
}

type StatusRequest struct{}

type StatusResponse struct {
	Fitted            bool    `json:"fitted"`
	Rank              string  `json:"rank"`
	Dims              int32   `json:"dims"`
	Components        int32   `json:"components"`
	Samples           int32   `json:"samples"`
	VarianceExplained float64 `json:"variance_explained"`
	FittedAtUnix      int64   `json:"fitted_at_unix,omitempty"`
}
