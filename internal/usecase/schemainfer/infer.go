// Package schemainfer derives a declarative schema from training-split statistics.
package schemainfer

import (
	"fmt"

	"github.com/featuremill/featuremill/internal/domain"
	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/schema"
	"github.com/featuremill/featuremill/internal/domain/stats"
)

// Infer derives a schema from split statistics. Pure and deterministic:
// numeric domains are the observed [min, max] exactly (no slack), category
// domains are the exact observed value set, and presence is required iff no
// missing values were observed.
func Infer(split stats.Split, spec feature.Spec) (schema.Schema, error) {
	features := make([]schema.FeatureSchema, 0, spec.Len())
	for _, f := range spec.Features() {
		fs, ok := split.Feature(f.Name())
		if !ok {
			return schema.Schema{}, fmt.Errorf("%w: no statistics for feature %q", domain.ErrUnknownFeature, f.Name())
		}

		presence := schema.Required
		if fs.MissingCount() > 0 {
			presence = schema.Optional
		}

		if f.Role().TakesNumber() {
			agg := fs.Numeric()
			features = append(features, schema.NewNumeric(f.Name(), f.Role(), presence, agg.Min, agg.Max))
			continue
		}

		values := fs.Values()
		categories := make([]string, 0, len(values))
		for _, vc := range values {
			if vc.Count > 0 {
				categories = append(categories, vc.Value)
			}
		}
		features = append(features, schema.NewCategorical(f.Name(), f.Role(), presence, categories))
	}
	return schema.New(features), nil
}
