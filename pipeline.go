// Package featuremill is a typed, schema-first facade over the analyze and
// transform engine. Feature declarations live in struct tags; fitting a
// pipeline over a slice of items yields deterministic per-feature transform
// parameters that can then be applied to any item of the same type.
//
//	type Person struct {
//		Age    float64 `feature:"age,numeric"`
//		Sex    string  `feature:"sex,categorical"`
//		Hours  float64 `feature:"hours,bucketized=4"`
//		Income string  `feature:"income,label"`
//	}
//
//	p, _ := featuremill.NewPipeline[Person]()
//	fitted, _ := p.Fit(trainItems)
//	out, _ := fitted.Transform(Person{Age: 39, Sex: "Male", Hours: 40})
package featuremill

import (
	"fmt"

	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/params"
	"github.com/featuremill/featuremill/internal/domain/record"
	"github.com/featuremill/featuremill/internal/domain/schema"
	"github.com/featuremill/featuremill/internal/domain/stats"
	"github.com/featuremill/featuremill/internal/usecase/analyze"
	"github.com/featuremill/featuremill/internal/usecase/anomaly"
	"github.com/featuremill/featuremill/internal/usecase/schemainfer"
	"github.com/featuremill/featuremill/internal/usecase/statistics"
	"github.com/featuremill/featuremill/internal/usecase/transform"
)

// Re-exported domain types so facade callers need no internal imports.
type (
	// Anomaly is one detected disagreement between fitted expectations and
	// fresh data.
	Anomaly = schema.Anomaly
	// AnomalyKind classifies an Anomaly.
	AnomalyKind = schema.AnomalyKind
	// Params is the fitted per-feature transform parameter set.
	Params = params.Params
	// Transformed is one fully numeric output record.
	Transformed = record.Transformed
)

// Pipeline is a reusable fitting handle for item type T. Schema is parsed
// from T's struct tags once at construction time.
type Pipeline[T any] struct {
	meta *schemaMeta
}

// NewPipeline creates a pipeline for T. T must be a struct with feature tags.
func NewPipeline[T any]() (*Pipeline[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, err
	}
	return &Pipeline[T]{meta: meta}, nil
}

// Spec returns the feature spec parsed from T's struct tags.
func (p *Pipeline[T]) Spec() feature.Spec { return p.meta.spec }

// Fit computes statistics over items and derives transform parameters.
// Everything downstream of Fit depends only on the items passed here; data
// checked or transformed later never shifts the fitted parameters.
func (p *Pipeline[T]) Fit(items []T) (*Fitted[T], error) {
	st, err := p.observe("train", items)
	if err != nil {
		return nil, err
	}

	sch, err := schemainfer.Infer(st, p.meta.spec)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	prm, err := analyze.Analyze(st, p.meta.spec)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	return &Fitted[T]{meta: p.meta, schema: sch, params: prm}, nil
}

func (p *Pipeline[T]) observe(split string, items []T) (stats.Split, error) {
	c := statistics.NewComputer(split, p.meta.spec)
	for i, item := range items {
		if err := c.Observe(int64(i), p.meta.toRecord(item)); err != nil {
			return stats.Split{}, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return c.Snapshot(), nil
}

// Fitted holds the frozen outcome of one Fit call.
type Fitted[T any] struct {
	meta   *schemaMeta
	schema schema.Schema
	params params.Params
}

// Transform applies the fitted parameters to one item. The output is fully
// numeric and deterministic for a given Fitted.
func (f *Fitted[T]) Transform(item T) (Transformed, error) {
	return transform.Apply(f.meta.toRecord(item), f.params, f.meta.spec)
}

// Check validates a fresh slice of items against the expectations inferred at
// fit time and reports anomalies in a stable order. An empty result means the
// items are consistent with the fitted data.
func (f *Fitted[T]) Check(items []T) ([]Anomaly, error) {
	p := &Pipeline[T]{meta: f.meta}
	st, err := p.observe("check", items)
	if err != nil {
		return nil, err
	}
	return anomaly.Detect(st, f.schema), nil
}

// Params returns the fitted parameter set, e.g. for persistence through an
// artifact store.
func (f *Fitted[T]) Params() Params { return f.params }

// Schema returns the expectations inferred from the fitted items.
func (f *Fitted[T]) Schema() schema.Schema { return f.schema }
