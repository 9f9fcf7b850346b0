package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/featuremill/featuremill/internal/config"
	"github.com/featuremill/featuremill/internal/logger"
	"github.com/featuremill/featuremill/internal/repository/artifact"
	artifactfs "github.com/featuremill/featuremill/internal/repository/artifact/fs"
	artifactredis "github.com/featuremill/featuremill/internal/repository/artifact/redis"
	"github.com/featuremill/featuremill/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "featuremill",
	Short: "Analyze-then-transform feature engineering pipeline",
	Long: `featuremill fits deterministic per-feature transform parameters from a
training split and applies them to records in batch or over HTTP.

A run computes streaming statistics over the train and eval splits, infers a
schema from train, checks eval against it, derives analyzer parameters from
train alone, and writes fully numeric output for both splits.

Examples:
  # Full pipeline run with the config from ./config/<ENV>.yaml
  featuremill run

  # Fail the run when the eval split drifts from the train schema
  featuremill run --fail-on-anomaly

  # Serve previously fitted parameters over HTTP
  featuremill serve`,
	Version: version.Version,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: config/<ENV>.yaml)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(config.GetEnv())
}

func buildLogger(cfg config.Config) (*zap.Logger, error) {
	return logger.New(config.GetEnv(), cfg.Logging.Level)
}

// newStore builds the artifact store from config. The returned cleanup is
// safe to defer immediately.
func newStore(cfg config.Config, log *zap.Logger) (artifact.Store, func(), error) {
	switch cfg.Artifacts.Backend {
	case "redis":
		store, err := artifactredis.NewStore(artifactredis.Config{
			Addrs:     cfg.Artifacts.Redis.Addrs,
			Password:  cfg.Artifacts.Redis.Password,
			KeyPrefix: cfg.Artifacts.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create redis store: %w", err)
		}
		timeout := time.Duration(cfg.Artifacts.Redis.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(context.Background(), timeout); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("redis not ready: %w", err)
		}
		log.Info("connected to redis artifact store", zap.Strings("addrs", cfg.Artifacts.Redis.Addrs))
		return store, store.Close, nil
	default:
		store, err := artifactfs.New(cfg.Artifacts.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("create fs store: %w", err)
		}
		return store, func() {}, nil
	}
}
