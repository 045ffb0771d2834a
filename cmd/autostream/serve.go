package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/shweta09111/autostream-agent/internal/agent"
	"github.com/shweta09111/autostream-agent/internal/api"
	"github.com/shweta09111/autostream-agent/internal/app"
	"github.com/shweta09111/autostream-agent/internal/config"
	"github.com/shweta09111/autostream-agent/internal/identity"
	"github.com/shweta09111/autostream-agent/internal/middleware"
	"github.com/shweta09111/autostream-agent/internal/store"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout    = 10 * time.Second
	grpcHealthInterval = 30 * time.Second
	readTimeout        = 30 * time.Second
	idleTimeout        = 120 * time.Second
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(os.Stdout, opts.logLevel)

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "HTTP port (overrides PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "mode", cfg.Mode)

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := a.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}
	slog.Info("Store connected", "driver", cfg.StoreDriver)

	conversationLogger, err := agent.NewConversationLogger(agent.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize conversation logger: %w", err)
	}

	chatHandler := agent.NewHandler(agent.NewService(a.Controller, conversationLogger), a.Repo, agent.NewConnectionManager(), cfg)
	defer chatHandler.Close()

	healthHandler := api.NewHealthHandler(a.Repo, cfg.Mode)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(allowedOrigins(cfg)))
	r.Use(identity.Middleware)

	healthHandler.RegisterHealth(r)
	chatHandler.RegisterRoutes(r)

	// No WriteTimeout: WebSocket connections are long-lived.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
	}

	store.StartTTLWorker(ctx, a.Repo, cfg.SessionTTL, cfg.SweepInterval, chatHandler.Connections().CloseThread)

	stopGRPC, err := startGRPCHealth(ctx, cfg, a.Repo)
	if err != nil {
		return err
	}
	defer stopGRPC()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped successfully")
	return nil
}

// startGRPCHealth serves the gRPC health service on GRPC_PORT. An empty
// port disables it.
func startGRPCHealth(ctx context.Context, cfg *config.Config, pinger api.Pinger) (func(), error) {
	if cfg.GRPCPort == "" {
		slog.Info("gRPC health endpoint disabled")
		return func() {}, nil
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return nil, fmt.Errorf("listen for gRPC health: %w", err)
	}

	grpcSrv, hs := api.NewGRPCHealthServer()
	api.WatchHealth(ctx, hs, pinger, grpcHealthInterval)

	go func() {
		slog.Info("gRPC health listening", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC health server stopped", "error", err)
		}
	}()

	return grpcSrv.GracefulStop, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
