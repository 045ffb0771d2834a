package api

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported for the chat API.
const ServiceName = "autostream.Chat"

// NewGRPCHealthServer returns a gRPC server exposing the standard health
// service, plus the health server so callers can drive its status.
func NewGRPCHealthServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	return srv, hs
}

// UpdateHealth sets the overall and ServiceName status from one store ping.
func UpdateHealth(ctx context.Context, hs *health.Server, store Pinger) grpc_health_v1.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, defaultHealthCheckTimeout)
	defer cancel()

	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err := store.Ping(pingCtx); err != nil {
		slog.Warn("gRPC health: store unreachable", "error", err)
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(ServiceName, status)
	return status
}

// WatchHealth refreshes the health status every interval until ctx is done,
// then marks everything NOT_SERVING.
func WatchHealth(ctx context.Context, hs *health.Server, store Pinger, interval time.Duration) {
	UpdateHealth(ctx, hs, store)
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				UpdateHealth(ctx, hs, store)
			case <-ctx.Done():
				hs.Shutdown()
				return
			}
		}
	}()
}
