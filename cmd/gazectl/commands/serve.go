package commands

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gazekit/platform/internal/display"
	"github.com/gazekit/platform/internal/pipeline"
	"github.com/gazekit/platform/internal/scorer"
	"github.com/gazekit/platform/internal/server"
)

// serve: run the platform server until interrupted.
func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gaze analytics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.HTTPAddr = addr
			}

			var remote pipeline.RemoteScorer
			if cfg.ScorerURL != "" {
				remote = scorer.New(cfg.ScorerURL)
			}

			pipe := pipeline.New(cfg, remote)
			srv := server.New(cfg, pipe, display.NewRegistry())

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if err := pipe.Start(ctx); err != nil {
				return err
			}

			httpServer := &http.Server{
				Addr:         cfg.HTTPAddr,
				Handler:      srv.Handler(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}

			go func() {
				slog.Info("platform server starting", "http", cfg.HTTPAddr, "scorer", cfg.ScorerURL)
				if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
					slog.Error("http server error", "error", err)
				}
			}()

			// Wait for shutdown signal
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			slog.Info("shutting down...")
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("http shutdown error", "error", err)
			}

			pipe.Stop()
			slog.Info("shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}
