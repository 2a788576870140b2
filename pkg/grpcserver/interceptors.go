package grpcserver

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"path"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
)

// RecoveryUnaryInterceptor returns a unary interceptor that turns a panicking
// handler into an Internal error instead of a dead server.
func RecoveryUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("facerec: panic in %s: %v\n%s", methodName(info.FullMethod), r, debug.Stack())
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingUnaryInterceptor logs one line per call with the short method name,
// its outcome and latency. Failures carry the status message.
func LoggingUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		method, code := methodName(info.FullMethod), status.Code(err)
		if code != codes.OK {
			log.Printf("facerec: rpc %s %s (%s) %v: %s", method, outcome(code), code, time.Since(start), status.Convert(err).Message())
		} else {
			log.Printf("facerec: rpc %s ok %v", method, time.Since(start))
		}
		return resp, err
	}
}

// MetricsUnaryInterceptor counts calls and observes latency per method. The
// outcome label uses the same values as the projection service's own
// counters, so the two can be compared directly.
func MetricsUnaryInterceptor(reg prometheus.Registerer) (grpc.UnaryServerInterceptor, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facerec",
		Name:      "rpc_requests_total",
		Help:      "FaceProjection RPCs by method and outcome.",
	}, []string{"method", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facerec",
		Name:      "rpc_duration_seconds",
		Help:      "FaceProjection RPC latency by method.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
	}, []string{"method"})
	for _, c := range []prometheus.Collector{requests, latency} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register rpc metrics: %w", err)
		}
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		method := methodName(info.FullMethod)
		requests.WithLabelValues(method, outcome(status.Code(err))).Inc()
		latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
		return resp, err
	}, nil
}

// ServerOptions returns the options every facerec gRPC server uses: message
// size limits, then metrics (when reg is non-nil), logging and recovery.
// Recovery is innermost so a panic reaches the outer two as Internal.
func ServerOptions(maxMessageBytes int, reg prometheus.Registerer) ([]grpc.ServerOption, error) {
	var interceptors []grpc.UnaryServerInterceptor
	if reg != nil {
		m, err := MetricsUnaryInterceptor(reg)
		if err != nil {
			return nil, err
		}
		interceptors = append(interceptors, m)
	}
	interceptors = append(interceptors, LoggingUnaryInterceptor(), RecoveryUnaryInterceptor())

	return []grpc.ServerOption{
		grpc.MaxRecvMsgSize(maxMessageBytes),
		grpc.MaxSendMsgSize(maxMessageBytes),
		grpc.ChainUnaryInterceptor(interceptors...),
	}, nil
}

// LoadTLSCredentials loads a TLS certificate and key for server-side TLS.
func LoadTLSCredentials(certFile, keyFile string) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
	}
	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}), nil
}

// methodName trims "/facerec.v1.FaceProjection/Fit" to "Fit".
func methodName(fullMethod string) string {
	return path.Base(fullMethod)
}

// outcome is the inverse of mapError, collapsed onto the service's labels.
func outcome(code codes.Code) string {
	switch code {
	case codes.OK:
		return "ok"
	case codes.FailedPrecondition:
		return "not_fitted"
	case codes.InvalidArgument, codes.ResourceExhausted:
		return "invalid"
	default:
		return "error"
	}
}
