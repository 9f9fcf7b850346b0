// Package analyze implements the one-time "analyze" phase: computing the
// global transform parameters from training-split statistics.
package analyze

import (
	"sort"

	"github.com/featuremill/featuremill/internal/domain"
	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/params"
	"github.com/featuremill/featuremill/internal/domain/stats"
)

// Analyze computes analyzer parameters from training-split statistics.
// Must only ever be fed the training split; feeding evaluation data here
// leaks it into the transform (the driver guards this).
// Fails with an insufficient data error when a feature has zero non-missing
// observations.
func Analyze(split stats.Split, spec feature.Spec) (params.Params, error) {
	features := make([]params.Feature, 0, spec.Len())
	for _, f := range spec.Features() {
		fstats, ok := split.Feature(f.Name())
		if !ok || fstats.Observed() == 0 {
			return params.Params{}, domain.NewInsufficientData(f.Name())
		}

		switch f.Role() {
		case feature.Numeric:
			agg := fstats.Numeric()
			features = append(features, params.NewScaleFeature(f.Name(), params.NewScale(agg.Min, agg.Max)))
		case feature.Bucketized:
			b := params.Buckets{Boundaries: boundaries(fstats.Histogram(), f.BucketCount())}
			features = append(features, params.NewBucketFeature(f.Name(), b))
		case feature.Categorical, feature.Label:
			features = append(features, params.NewVocabFeature(f.Name(), f.Role(), vocabulary(fstats.Values())))
		}
	}
	return params.New(features), nil
}

// boundaries computes bucketCount-1 non-decreasing equal-frequency cut points
// from the observed value histogram. Each boundary is the largest value of its
// bucket; values equal to a boundary land in the lower bucket.
func boundaries(hist []stats.Bin, bucketCount int) []float64 {
	var total int64
	for _, bin := range hist {
		total += bin.Count
	}

	out := make([]float64, 0, bucketCount-1)
	var cum int64
	cut := 1
	for _, bin := range hist {
		cum += bin.Count
		for cut < bucketCount && float64(cum) >= float64(cut)*float64(total)/float64(bucketCount) {
			out = append(out, bin.Value)
			cut++
		}
	}
	// Fewer distinct values than cut points: repeat the top value so the
	// boundary count stays bucketCount-1 and the sequence stays non-decreasing.
	for len(out) < bucketCount-1 {
		out = append(out, hist[len(hist)-1].Value)
	}
	return out
}

// vocabulary orders distinct values by descending frequency, ties broken by
// first occurrence in the training pass. Index 1..N follows that order;
// index 0 stays reserved for out-of-vocabulary values. This ordering is
// load-bearing: it fixes training-time label indices and must reproduce
// bit-for-bit at serving time.
func vocabulary(values []stats.ValueCount) params.Vocabulary {
	ordered := make([]stats.ValueCount, len(values))
	copy(ordered, values)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Count != ordered[j].Count {
			return ordered[i].Count > ordered[j].Count
		}
		return ordered[i].FirstSeen < ordered[j].FirstSeen
	})

	vs := make([]string, len(ordered))
	for i, vc := range ordered {
		vs[i] = vc.Value
	}
	return params.NewVocabulary(vs)
}
