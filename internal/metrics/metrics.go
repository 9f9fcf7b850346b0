// Package metrics holds the Prometheus instrumentation for pipeline runs and
// the transform service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	RecordsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "featuremill",
			Name:      "records_processed_total",
			Help:      "Total records processed per split and stage",
		},
		[]string{"split", "stage"}, // stage: "statistics" / "transform"
	)

	AnomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "featuremill",
			Name:      "anomalies_total",
			Help:      "Total anomalies reported per kind",
		},
		[]string{"kind"},
	)

	TransformDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "featuremill",
			Name:      "transform_duration_seconds",
			Help:      "Per-record transform duration in seconds",
			Buckets:   []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 1e-2},
		},
	)

	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "featuremill",
			Name:      "run_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"stage"},
	)
)

var registered = false

// Register registers the pipeline metrics explicitly (no init()).
// Safe to call once per process; callers own that discipline.
func Register() {
	if registered {
		return
	}
	registered = true
	prometheus.MustRegister(
		RecordsProcessedTotal,
		AnomaliesTotal,
		TransformDuration,
		RunDuration,
	)
}
