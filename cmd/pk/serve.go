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

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/alfredjeanlab/panelkit/internal/backup"
	"github.com/alfredjeanlab/panelkit/internal/events"
	"github.com/alfredjeanlab/panelkit/internal/server"
)

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the admin HTTP API and gRPC health service",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		healthInterval, _ := cmd.Flags().GetDuration("health-interval")
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, serveLogger(), healthInterval)
	},
}

// serveLogger logs at info, or debug with -v, regardless of the CLI level.
func serveLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func servePublisher(logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("events disabled (PANELKIT_NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("events enabled", "nats_url", cfg.NATSURL)
	return pub, nil
}

// runServe blocks until ctx is cancelled or a listener fails.
func runServe(ctx context.Context, logger *slog.Logger, healthInterval time.Duration) error {
	publisher, err := servePublisher(logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("close publisher", "err", err)
		}
	}()

	dests := backupDestinations(ctx)
	srv := server.New(db, catalog, server.Options{
		ComponentsDir: cfg.ComponentsDir,
		AdminBaseURL:  cfg.AdminBaseURL,
		Publisher:     publisher,
		Destinations:  dests,
		Logger:        logger,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}
	hs := health.NewServer()
	grpcServer := server.NewGRPCServer(hs, cfg.AuthToken)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.NewHTTPHandler(cfg.AuthToken),
		ReadHeaderTimeout: 10 * time.Second,
	}

	failed := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			failed <- fmt.Errorf("gRPC server: %w", err)
		}
	}()
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go server.WatchHealth(watchCtx, db, hs, healthInterval, logger)

	if cfg.SnapshotInterval > 0 {
		scheduler := backup.NewScheduler(db, catalog, cfg.ComponentsDir, dests, cfg.SnapshotInterval, logger)
		scheduler.Start()
		defer scheduler.Stop()
		logger.Info("snapshot scheduler started", "interval", cfg.SnapshotInterval, "destinations", len(dests))
	}

	logger.Info("panelkit server started", "components", catalog.Names())

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-failed:
		logger.Error("server failed, shutting down", "err", runErr)
	}

	stopWatch()
	grpcServer.GracefulStop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", "err", err)
	}
	logger.Info("servers stopped")
	return runErr
}

func init() {
	serveCmd.Flags().Duration("health-interval", 10*time.Second, "how often the gRPC health status re-checks the database")
}
