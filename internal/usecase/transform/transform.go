// Package transform implements the per-record "transform" phase: applying
// previously computed analyzer parameters to raw records. Apply is pure,
// stateless and idempotent, so calls may run concurrently across any number
// of workers with no locking.
package transform

import (
	"fmt"
	"sort"

	"github.com/featuremill/featuremill/internal/domain"
	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/params"
	"github.com/featuremill/featuremill/internal/domain/record"
)

// Apply transforms one record using the analyzer parameters.
//
// Data drift never fails a record: out-of-range numerics clamp to [0, 1],
// unseen categories map to the out-of-vocabulary index, and missing values
// emit record.MissingSentinel. Only structurally malformed input (a feature
// name absent from the spec, or a value whose type disagrees with the
// feature's declared role) returns a schema mismatch error.
func Apply(rec record.Record, p params.Params, spec feature.Spec) (record.Transformed, error) {
	for _, name := range rec.Names() {
		if !spec.Has(name) {
			return record.Transformed{}, domain.NewSchemaMismatch(name, "not declared in feature spec")
		}
	}

	names := make([]string, 0, spec.Len())
	values := make(map[string]float64, spec.Len())
	for _, f := range spec.Features() {
		outName := f.Name() + record.TransformedSuffix
		names = append(names, outName)

		pf, ok := p.Feature(f.Name())
		if !ok {
			return record.Transformed{}, domain.NewSchemaMismatch(f.Name(), "no analyzer parameters")
		}

		out, err := applyFeature(rec.Get(f.Name()), f, pf)
		if err != nil {
			return record.Transformed{}, err
		}
		values[outName] = out
	}
	return record.NewTransformed(names, values), nil
}

func applyFeature(v record.Value, f feature.Feature, pf params.Feature) (float64, error) {
	if v.IsMissing() {
		return record.MissingSentinel, nil
	}

	if f.Role().TakesNumber() && v.Kind() != record.KindNumber {
		return 0, domain.NewSchemaMismatch(f.Name(),
			fmt.Sprintf("expected numeric value for %s feature, got %q", f.Role(), v.Display()))
	}
	if f.Role().HasVocabulary() && v.Kind() != record.KindString {
		return 0, domain.NewSchemaMismatch(f.Name(),
			fmt.Sprintf("expected string value for %s feature, got %q", f.Role(), v.Display()))
	}

	switch f.Role() {
	case feature.Numeric:
		return scale(v.Num(), pf.Scale()), nil
	case feature.Bucketized:
		return float64(bucket(v.Num(), pf.Buckets())), nil
	default: // Categorical, Label
		return float64(pf.Vocabulary().Index(v.Str())), nil
	}
}

// scale maps v to (v-min)/(max-min), clamped to [0, 1] for serving-time
// drift outside the analyzed range. A degenerate range emits a constant 0.
func scale(v float64, s params.Scale) float64 {
	if s.Degenerate {
		return 0
	}
	out := (v - s.Min) / (s.Max - s.Min)
	if out < 0 {
		return 0
	}
	if out > 1 {
		return 1
	}
	return out
}

// bucket returns the 0-based bucket index: the number of boundaries strictly
// less than v. Values equal to a boundary land in the lower bucket.
func bucket(v float64, b params.Buckets) int {
	return sort.SearchFloat64s(b.Boundaries, v)
}
