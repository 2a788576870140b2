package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/opaque/facerec/internal/service"
	"github.com/opaque/facerec/pkg/dataset"
	"github.com/opaque/facerec/pkg/facemodel"
	"github.com/opaque/facerec/pkg/grpcserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the FaceProjection gRPC service",
	Long: `Run the FaceProjection gRPC service together with an HTTP server for
/healthz, /readyz and /metrics. With --train (or server.train_path) the model
is fitted before the service starts accepting requests; otherwise clients fit
it through the Fit RPC.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("train", "", "Dataset to fit at startup (overrides server.train_path)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if path := mustGetString(cmd, "train"); path != "" {
		cfg.Server.TrainPath = path
	}

	log.Println("facerec: starting projection service...")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := service.NewProjectionService(service.Config{
		Rank:     facemodel.RankFromInt(cfg.Model.Rank),
		MaxBatch: cfg.Model.MaxBatch,
	}, reg)
	if err != nil {
		return fmt.Errorf("failed to create projection service: %w", err)
	}

	if cfg.Server.TrainPath != "" {
		ds, err := dataset.Load(cfg.Server.TrainPath)
		if err != nil {
			return err
		}
		if _, err := svc.Fit(cmd.Context(), ds.Faces); err != nil {
			return fmt.Errorf("failed to fit %s: %w", ds.Name, err)
		}
	}

	serverOpts, err := grpcserver.ServerOptions(cfg.Server.MaxMessageBytes, reg)
	if err != nil {
		return err
	}
	if cfg.TLSEnabled() {
		creds, err := grpcserver.LoadTLSCredentials(cfg.Server.TLSCert, cfg.Server.TLSKey)
		if err != nil {
			return err
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
		log.Println("facerec: TLS enabled")
	}
	grpcServer := grpc.NewServer(serverOpts...)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	grpcserver.RegisterFaceProjectionServer(grpcServer, grpcserver.New(svc))

	grpcLis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.GRPCPort, err)
	}

	go func() {
		log.Printf("facerec: gRPC server listening on :%d", cfg.Server.GRPCPort)
		if err := grpcServer.Serve(grpcLis); err != nil {
			log.Fatalf("facerec: gRPC server failed: %v", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           newHTTPHandler(svc, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("facerec: HTTP server listening on :%d", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("facerec: HTTP server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The model can be fitted over RPC at any time; keep the per-service
	// health status in step with it.
	go syncHealth(ctx, svc, healthServer, 2*time.Second)

	<-ctx.Done()
	log.Println("facerec: shutting down...")

	healthServer.Shutdown()
	grpcServer.GracefulStop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("facerec: HTTP shutdown: %v", err)
	}

	log.Println("facerec: shutdown complete")
	return nil
}

func newHTTPHandler(svc *service.ProjectionService, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		st := svc.Status(r.Context())
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK\n")
		fmt.Fprintf(w, "Fitted: %t\n", st.Fitted)
		fmt.Fprintf(w, "Rank: %s\n", st.Rank)
		fmt.Fprintf(w, "Components: %d\n", st.Components)
		fmt.Fprintf(w, "Dims: %d\n", st.Dims)
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		healthy, msg := svc.HealthCheck(r.Context())
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "NOT READY: %s\n", msg)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Ready: %s\n", msg)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

// syncHealth mirrors the service's fitted state into hs every interval until
// ctx is done.
func syncHealth(ctx context.Context, svc *service.ProjectionService, hs *health.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
		if healthy, _ := svc.HealthCheck(ctx); healthy {
			st = grpc_health_v1.HealthCheckResponse_SERVING
		}
		hs.SetServingStatus(grpcserver.ServiceName, st)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
