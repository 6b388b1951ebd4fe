package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/capacity-engine/api"
)

// serveCmd starts the HTTP API.
//
// GRACEFUL SHUTDOWN:
//
//	On SIGINT/SIGTERM:
//	1. Stop the snapshot scheduler
//	2. Stop accepting new connections
//	3. Wait for active requests to complete (30s timeout)
//	4. Close the history store (PersistentPostRun)
func serveCmd() *cobra.Command {
	var (
		port         int
		scenario     string
		autoSnapshot bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = app.cfg.Server.Port
			}
			if !cmd.Flags().Changed("auto-snapshot") {
				autoSnapshot = app.cfg.Periods.AutoSnapshot
			}
			return runServe(port, scenario, autoSnapshot)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP server port (default from config)")
	cmd.Flags().StringVar(&scenario, "scenario", "", "Demo scenario to load at startup")
	cmd.Flags().BoolVar(&autoSnapshot, "auto-snapshot", false, "Append one snapshot per reporting period automatically")
	return cmd
}

func runServe(port int, scenario string, autoSnapshot bool) error {
	logger := app.logger

	handler := api.NewHandler(app.session, logger.Named("api"))
	if scenario != "" {
		if err := handler.Preload(app.ctx, scenario); err != nil {
			return fmt.Errorf("failed to load scenario %q: %w", scenario, err)
		}
	}

	scheduler := api.NewSnapshotScheduler(app.session, logger)
	scheduler.Enabled = autoSnapshot
	if app.cfg.Periods.CheckInterval > 0 {
		scheduler.CheckInterval = app.cfg.Periods.CheckInterval
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      api.NewRouter(handler, app.cfg.Server.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			zap.String("url", fmt.Sprintf("http://localhost:%d", port)),
			zap.String("store", app.cfg.Store.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-quit:
	}

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}
