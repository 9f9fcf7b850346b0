// Package anomaly compares split statistics against an inferred schema and
// reports drift. Anomalies are findings, not errors: the caller decides
// whether a run should halt.
package anomaly

import (
	"fmt"

	"github.com/featuremill/featuremill/internal/domain/schema"
	"github.com/featuremill/featuremill/internal/domain/stats"
)

// Detect compares evaluation-split statistics against the schema.
// Side-effect free. The returned anomalies are grouped by feature in schema
// (spec declaration) order, then by kind, then by first-observed value order,
// so assertions on the output are reproducible. No findings means an empty
// slice, never an error.
func Detect(split stats.Split, sch schema.Schema) []schema.Anomaly {
	var out []schema.Anomaly
	for _, name := range sch.FeatureNames() {
		fsch, _ := sch.Feature(name)
		fstats, ok := split.Feature(name)
		if !ok {
			out = append(out, schema.Anomaly{
				FeatureName: name,
				Kind:        schema.UnexpectedlyMissing,
				Description: fmt.Sprintf("feature %q has no statistics in split %q", name, split.Name()),
			})
			continue
		}
		out = append(out, checkFeature(fsch, fstats)...)
	}
	return out
}

// checkFeature emits a feature's anomalies in fixed kind order:
// unexpectedly_missing, out_of_range, new_category.
func checkFeature(fsch schema.FeatureSchema, fstats stats.Feature) []schema.Anomaly {
	var out []schema.Anomaly

	if fsch.Presence() == schema.Required && fstats.MissingCount() > 0 {
		out = append(out, schema.Anomaly{
			FeatureName: fsch.Name(),
			Kind:        schema.UnexpectedlyMissing,
			Description: fmt.Sprintf("required feature %q has %d missing values", fsch.Name(), fstats.MissingCount()),
		})
	}

	if fsch.Role().TakesNumber() {
		out = append(out, checkRange(fsch, fstats)...)
		return out
	}

	// Values() is first-observed order, which fixes the reported order of
	// new categories.
	for _, vc := range fstats.Values() {
		if vc.Count > 0 && !fsch.HasCategory(vc.Value) {
			out = append(out, schema.Anomaly{
				FeatureName: fsch.Name(),
				Kind:        schema.NewCategory,
				Description: fmt.Sprintf("feature %q has unexpected category %q (%d occurrences)", fsch.Name(), vc.Value, vc.Count),
			})
		}
	}
	return out
}

func checkRange(fsch schema.FeatureSchema, fstats stats.Feature) []schema.Anomaly {
	if fstats.Observed() == 0 {
		return nil
	}
	min, max := fsch.Range()
	agg := fstats.Numeric()

	var out []schema.Anomaly
	if agg.Min < min {
		out = append(out, schema.Anomaly{
			FeatureName: fsch.Name(),
			Kind:        schema.OutOfRange,
			Description: fmt.Sprintf("feature %q has min %v below schema domain [%v, %v]", fsch.Name(), agg.Min, min, max),
		})
	}
	if agg.Max > max {
		out = append(out, schema.Anomaly{
			FeatureName: fsch.Name(),
			Kind:        schema.OutOfRange,
			Description: fmt.Sprintf("feature %q has max %v above schema domain [%v, %v]", fsch.Name(), agg.Max, min, max),
		})
	}
	return out
}
