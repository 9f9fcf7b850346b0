package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/featuremill/featuremill/internal/config"
	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/metrics"
	csvsink "github.com/featuremill/featuremill/internal/sink/csv"
	"github.com/featuremill/featuremill/internal/source"
	csvsource "github.com/featuremill/featuremill/internal/source/csv"
	parquetsource "github.com/featuremill/featuremill/internal/source/parquet"
	"github.com/featuremill/featuremill/internal/usecase/pipeline"
	"github.com/featuremill/featuremill/internal/version"
)

var failOnAnomaly bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the full analyze-then-transform pipeline",
	Args:  cobra.NoArgs,
	RunE:  runPipeline,
}

func init() {
	runCmd.Flags().BoolVar(&failOnAnomaly, "fail-on-anomaly", false, "fail the run when the eval split violates the inferred schema")
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting featuremill run",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("pipeline", cfg.Pipeline.Name),
	)

	spec, err := cfg.Spec()
	if err != nil {
		return err
	}

	metrics.Register()

	store, cleanup, err := newStore(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	train, err := splitInput(cfg, spec, "train")
	if err != nil {
		return err
	}
	eval, err := splitInput(cfg, spec, "eval")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	sinks := func(split string) (pipeline.Sink, error) {
		return csvsink.Create(filepath.Join(cfg.Output.Dir, split+".csv"))
	}

	svc := pipeline.New(spec, store, log,
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithFailOnAnomaly(failOnAnomaly || cfg.Pipeline.FailOnAnomaly),
	)

	res, err := svc.Run(cmd.Context(), cfg.Pipeline.Name, train, eval, sinks)
	if err != nil {
		return err
	}

	fmt.Printf("run %s finished: %d anomalies, train=%d eval=%d records transformed\n",
		res.RunID, len(res.Anomalies), res.Transformed["train"], res.Transformed["eval"])
	return nil
}

// splitInput builds a reopenable source for one configured split.
func splitInput(cfg config.Config, spec feature.Spec, name string) (pipeline.SplitInput, error) {
	sc, ok := cfg.Splits[name]
	if !ok {
		return pipeline.SplitInput{}, fmt.Errorf("splits.%s is not configured", name)
	}
	open := func(ctx context.Context) (source.Source, error) {
		switch sc.Format {
		case "parquet":
			return parquetsource.Open(sc.Path, spec)
		default:
			return csvsource.Open(sc.Path, spec)
		}
	}
	return pipeline.SplitInput{Name: name, Open: open}, nil
}
