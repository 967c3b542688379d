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

	"github.com/oakridge-association/sitesearch/internal/log"
	"github.com/oakridge-association/sitesearch/internal/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the artifacts and a JSON query API",
	Long: `Serves search-index.json and search-documents.json under /search/ with
ETags, plus /api/search, /api/suggest and /api/filters over the same index.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address (overrides listen)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	logger := log.ForService("server")

	engine, l := newEngine(cfg)
	defer l.Close()

	srv := server.New(engine, server.Options{
		ArtifactsDir: cfg.OutputDir,
		RateLimit:    cfg.RateLimit,
	})
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the index so the first request doesn't pay for the load. A
	// failure here is retried by the first query.
	go func() {
		if err := engine.Initialize(ctx); err != nil {
			logger.Warnf("index not loaded yet: %v", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("✓ Listening on http://%s", cfg.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Infof("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
