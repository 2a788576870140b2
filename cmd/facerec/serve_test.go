package main

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/opaque/facerec/internal/service"
	"github.com/opaque/facerec/pkg/grpcserver"
)

func newTestService(t *testing.T, reg prometheus.Registerer) *service.ProjectionService {
	t.Helper()
	svc, err := service.NewProjectionService(service.DefaultConfig(), reg)
	if err != nil {
		t.Fatalf("failed to create projection service: %v", err)
	}
	return svc
}

func fitRandom(t *testing.T, svc *service.ProjectionService) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	rows := make([][]float64, 10)
	for i := range rows {
		rows[i] = []float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
	}
	if _, err := svc.FitRows(context.Background(), rows); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, _ := io.ReadAll(rec.Result().Body)
	return rec.Code, string(body)
}

func TestHTTPHandlerReadiness(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := newTestService(t, reg)
	h := newHTTPHandler(svc, reg)

	code, body := get(t, h, "/readyz")
	if code != http.StatusServiceUnavailable || !strings.Contains(body, "not fitted") {
		t.Errorf("unfitted /readyz = %d %q, want 503 not fitted", code, body)
	}
	code, body = get(t, h, "/healthz")
	if code != http.StatusOK || !strings.Contains(body, "Fitted: false") {
		t.Errorf("unfitted /healthz = %d %q", code, body)
	}

	fitRandom(t, svc)

	code, body = get(t, h, "/readyz")
	if code != http.StatusOK || !strings.Contains(body, "3 components over 3 dims") {
		t.Errorf("fitted /readyz = %d %q, want 200", code, body)
	}
	code, body = get(t, h, "/healthz")
	if code != http.StatusOK || !strings.Contains(body, "Fitted: true") {
		t.Errorf("fitted /healthz = %d %q", code, body)
	}
}

func TestHTTPHandlerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := newTestService(t, reg)
	fitRandom(t, svc)

	code, body := get(t, newHTTPHandler(svc, reg), "/metrics")
	if code != http.StatusOK {
		t.Fatalf("/metrics returned %d", code)
	}
	if !strings.Contains(body, `facerec_fits_total{outcome="ok"} 1`) {
		t.Errorf("/metrics missing fit counter:\n%s", body)
	}
}

func TestSyncHealth(t *testing.T) {
	svc := newTestService(t, nil)
	hs := health.NewServer()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		syncHealth(ctx, svc, hs, 5*time.Millisecond)
		close(done)
	}()

	waitFor := func(want grpc_health_v1.HealthCheckResponse_ServingStatus) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for {
			resp, err := hs.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: grpcserver.ServiceName})
			if err == nil && resp.Status == want {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("health status never reached %v (last %v, err %v)", want, resp, err)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	waitFor(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	fitRandom(t, svc)
	waitFor(grpc_health_v1.HealthCheckResponse_SERVING)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("syncHealth did not return after cancel")
	}
}
