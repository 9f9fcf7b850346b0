// Package pipeline orchestrates a full analyze-then-transform run: streaming
// statistics over the train and eval splits, schema inference, drift
// detection, analyzer fitting, and the transform pass over both splits.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/params"
	"github.com/featuremill/featuremill/internal/domain/record"
	"github.com/featuremill/featuremill/internal/domain/schema"
	"github.com/featuremill/featuremill/internal/domain/stats"
	"github.com/featuremill/featuremill/internal/metrics"
	"github.com/featuremill/featuremill/internal/repository/artifact"
	"github.com/featuremill/featuremill/internal/usecase/analyze"
	"github.com/featuremill/featuremill/internal/usecase/anomaly"
	"github.com/featuremill/featuremill/internal/usecase/schemainfer"
	"github.com/featuremill/featuremill/internal/usecase/statistics"
	"github.com/featuremill/featuremill/internal/usecase/transform"
)

// ErrAnomaliesFound is returned when anomalies are detected and the run is
// configured to fail instead of proceeding.
var ErrAnomaliesFound = errors.New("anomalies detected in evaluation split")

// Service runs the pipeline. Analyzer parameters are always fitted from the
// train split alone; the eval split is only validated and transformed.
type Service struct {
	spec          feature.Spec
	store         artifact.Store
	logger        *zap.Logger
	workers       int
	failOnAnomaly bool
}

// Option configures a Service.
type Option func(*Service)

// WithWorkers sets the number of statistics partitions and transform workers.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithFailOnAnomaly makes Run return ErrAnomaliesFound instead of proceeding
// when the eval split violates the inferred schema.
func WithFailOnAnomaly(fail bool) Option {
	return func(s *Service) { s.failOnAnomaly = fail }
}

// New creates a pipeline service.
func New(spec feature.Spec, store artifact.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		spec:    spec,
		store:   store,
		logger:  logger,
		workers: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID       string
	Schema      schema.Schema
	Anomalies   []schema.Anomaly
	Params      params.Params
	TrainStats  stats.Split
	EvalStats   stats.Split
	Transformed map[string]int64 // records written per split
}

// Run executes the full pipeline: statistics over both splits, schema
// inference from train, anomaly detection on eval, analyzer fitting from
// train, then a transform pass over both splits. The fitted parameters are
// persisted under name before any transform output is written.
func (s *Service) Run(ctx context.Context, name string, train, eval SplitInput, sinks SinkFactory) (*Result, error) {
	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID), zap.String("pipeline", name))
	log.Info("pipeline run started",
		zap.String("train", train.Name),
		zap.String("eval", eval.Name),
		zap.Int("workers", s.workers),
	)

	res := &Result{RunID: runID, Transformed: make(map[string]int64)}

	trainStats, err := s.computeStats(ctx, train)
	if err != nil {
		return nil, fmt.Errorf("statistics over %s: %w", train.Name, err)
	}
	res.TrainStats = trainStats

	evalStats, err := s.computeStats(ctx, eval)
	if err != nil {
		return nil, fmt.Errorf("statistics over %s: %w", eval.Name, err)
	}
	res.EvalStats = evalStats

	sch, err := schemainfer.Infer(trainStats, s.spec)
	if err != nil {
		return nil, fmt.Errorf("schema inference: %w", err)
	}
	res.Schema = sch

	res.Anomalies = anomaly.Detect(evalStats, sch)
	for _, a := range res.Anomalies {
		metrics.AnomaliesTotal.WithLabelValues(string(a.Kind)).Inc()
		log.Warn("anomaly detected",
			zap.String("split", eval.Name),
			zap.String("feature", a.FeatureName),
			zap.String("kind", string(a.Kind)),
			zap.String("description", a.Description),
		)
	}
	if len(res.Anomalies) > 0 && s.failOnAnomaly {
		return res, fmt.Errorf("%w: %d anomalies in %s", ErrAnomaliesFound, len(res.Anomalies), eval.Name)
	}

	start := time.Now()
	p, err := analyze.Analyze(trainStats, s.spec)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", train.Name, err)
	}
	metrics.RunDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	res.Params = p

	if err := s.store.Save(ctx, name, p); err != nil {
		return nil, fmt.Errorf("save analyzer params: %w", err)
	}
	log.Info("analyzer params persisted", zap.String("name", name))

	for _, split := range []SplitInput{train, eval} {
		n, err := s.transformSplit(ctx, split, p, sinks)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", split.Name, err)
		}
		res.Transformed[split.Name] = n
		log.Info("split transformed", zap.String("split", split.Name), zap.Int64("records", n))
	}

	log.Info("pipeline run finished", zap.Int("anomalies", len(res.Anomalies)))
	return res, nil
}

type item struct {
	seq int64
	rec record.Record
}

// computeStats streams the split through a pool of statistics partitions and
// merges the partial snapshots. Records carry their global sequence number so
// the merged result matches a sequential pass regardless of partitioning.
func (s *Service) computeStats(ctx context.Context, split SplitInput) (stats.Split, error) {
	start := time.Now()
	defer func() {
		metrics.RunDuration.WithLabelValues("statistics").Observe(time.Since(start).Seconds())
	}()

	src, err := split.Open(ctx)
	if err != nil {
		return stats.Split{}, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	computers := make([]*statistics.Computer, s.workers)
	for i := range computers {
		computers[i] = statistics.NewComputer(split.Name, s.spec)
	}

	ch := make(chan item, 64)
	errOnce := make(chan error, s.workers)
	var wg sync.WaitGroup
	for _, c := range computers {
		wg.Add(1)
		go func(c *statistics.Computer) {
			defer wg.Done()
			failed := false
			for it := range ch {
				// Keep draining after a failure so the reader never blocks.
				if failed {
					continue
				}
				if err := c.Observe(it.seq, it.rec); err != nil {
					failed = true
					select {
					case errOnce <- err:
					default:
					}
				}
			}
		}(c)
	}

	var seq int64
	var readErr error
	for {
		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = err
			break
		}
		ch <- item{seq: seq, rec: rec}
		seq++
	}
	close(ch)
	wg.Wait()

	if readErr != nil {
		return stats.Split{}, readErr
	}
	select {
	case err := <-errOnce:
		return stats.Split{}, err
	default:
	}

	merged := computers[0].Snapshot()
	for _, c := range computers[1:] {
		merged, err = statistics.Merge(merged, c.Snapshot())
		if err != nil {
			return stats.Split{}, err
		}
	}
	metrics.RecordsProcessedTotal.WithLabelValues(split.Name, "statistics").Add(float64(seq))
	return merged, nil
}

// transformSplit applies fitted params to every record of the split. Workers
// transform concurrently; the writer reorders by sequence number so the sink
// sees records in input order.
func (s *Service) transformSplit(ctx context.Context, split SplitInput, p params.Params, sinks SinkFactory) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.RunDuration.WithLabelValues("transform").Observe(time.Since(start).Seconds())
	}()

	src, err := split.Open(ctx)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	var sink Sink
	if sinks != nil {
		sink, err = sinks(split.Name)
		if err != nil {
			return 0, fmt.Errorf("open sink: %w", err)
		}
		defer sink.Close()
	}

	type out struct {
		seq int64
		t   record.Transformed
	}

	in := make(chan item, 64)
	results := make(chan out, 64)
	errOnce := make(chan error, s.workers+1)

	var workerWg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			failed := false
			for it := range in {
				if failed {
					continue
				}
				tStart := time.Now()
				t, err := transform.Apply(it.rec, p, s.spec)
				if err != nil {
					failed = true
					select {
					case errOnce <- err:
					default:
					}
					continue
				}
				metrics.TransformDuration.Observe(time.Since(tStart).Seconds())
				results <- out{seq: it.seq, t: t}
			}
		}()
	}

	var writerWg sync.WaitGroup
	writerWg.Add(1)
	go func() {
		defer writerWg.Done()
		pending := make(map[int64]record.Transformed)
		next := int64(0)
		failed := false
		for r := range results {
			if failed || sink == nil {
				continue
			}
			pending[r.seq] = r.t
			for {
				t, ok := pending[next]
				if !ok {
					break
				}
				if err := sink.Write(t); err != nil {
					failed = true
					select {
					case errOnce <- err:
					default:
					}
					break
				}
				delete(pending, next)
				next++
			}
		}
	}()

	var seq int64
	var readErr error
	for {
		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = err
			break
		}
		in <- item{seq: seq, rec: rec}
		seq++
	}
	close(in)
	workerWg.Wait()
	close(results)
	writerWg.Wait()

	if readErr != nil {
		return 0, readErr
	}
	select {
	case err := <-errOnce:
		return 0, err
	default:
	}

	metrics.RecordsProcessedTotal.WithLabelValues(split.Name, "transform").Add(float64(seq))
	return seq, nil
}
