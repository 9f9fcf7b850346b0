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

	"github.com/featuremill/featuremill/internal/transport/httpserve"
	"github.com/featuremill/featuremill/internal/version"
)

var paramsName string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve fitted transform parameters over HTTP",
	Long: `Loads previously persisted analyzer parameters and answers
POST /v1/transform requests with the exact arithmetic the batch pipeline
applied at training time.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&paramsName, "params", "", "artifact name to load (default: pipeline name from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	spec, err := cfg.Spec()
	if err != nil {
		return err
	}

	store, cleanup, err := newStore(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	name := paramsName
	if name == "" {
		name = cfg.Pipeline.Name
	}
	p, err := store.Load(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("load analyzer params %q: %w", name, err)
	}
	log.Info("analyzer params loaded", zap.String("name", name), zap.Int("features", p.Len()))

	server := httpserve.NewServer(spec, p, log)

	port := cfg.HTTP.Port
	if port == 0 {
		port = 8080
	}
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server",
			zap.String("addr", addr),
			zap.String("version", version.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
	}
	log.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}

	log.Info("server stopped gracefully")
	return nil
}
