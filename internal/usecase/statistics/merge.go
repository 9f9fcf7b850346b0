package statistics

import (
	"fmt"
	"sort"

	"github.com/featuremill/featuremill/internal/domain/stats"
)

// Merge combines two partition snapshots of the same split into one.
// The operation is commutative and associative: min of mins, max of maxes,
// sums and counts add, frequency maps add, first-seen positions take the
// minimum. Merging partitions of a stream therefore yields the identical
// result to a single sequential pass over the whole stream.
func Merge(a, b stats.Split) (stats.Split, error) {
	if a.Name() != b.Name() {
		return stats.Split{}, fmt.Errorf("cannot merge statistics of splits %q and %q", a.Name(), b.Name())
	}
	namesA := a.FeatureNames()
	namesB := b.FeatureNames()
	if len(namesA) != len(namesB) {
		return stats.Split{}, fmt.Errorf("cannot merge statistics over different feature sets (%d vs %d)", len(namesA), len(namesB))
	}

	features := make([]stats.Feature, 0, len(namesA))
	for i, name := range namesA {
		if namesB[i] != name {
			return stats.Split{}, fmt.Errorf("feature order mismatch at %d: %q vs %q", i, name, namesB[i])
		}
		fa, _ := a.Feature(name)
		fb, _ := b.Feature(name)
		features = append(features, mergeFeature(fa, fb))
	}
	return stats.NewSplit(a.Name(), features), nil
}

func mergeFeature(a, b stats.Feature) stats.Feature {
	count := a.Count() + b.Count()
	missing := a.MissingCount() + b.MissingCount()

	numeric := mergeNumeric(a, b)
	values := mergeValues(a.Values(), b.Values())
	hist := mergeHist(a.Histogram(), b.Histogram())

	return stats.NewFeature(a.Name(), count, missing, numeric, values, hist)
}

func mergeNumeric(a, b stats.Feature) stats.Numeric {
	// A side with no observations contributes nothing to min/max.
	if a.Observed() == 0 {
		return b.Numeric()
	}
	if b.Observed() == 0 {
		return a.Numeric()
	}
	na, nb := a.Numeric(), b.Numeric()
	out := stats.Numeric{
		Min:   na.Min,
		Max:   na.Max,
		Sum:   na.Sum + nb.Sum,
		SumSq: na.SumSq + nb.SumSq,
	}
	if nb.Min < out.Min {
		out.Min = nb.Min
	}
	if nb.Max > out.Max {
		out.Max = nb.Max
	}
	return out
}

func mergeValues(a, b []stats.ValueCount) []stats.ValueCount {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	byValue := make(map[string]stats.ValueCount, len(a)+len(b))
	for _, vc := range a {
		byValue[vc.Value] = vc
	}
	for _, vc := range b {
		if prev, ok := byValue[vc.Value]; ok {
			vc.Count += prev.Count
			if prev.FirstSeen < vc.FirstSeen {
				vc.FirstSeen = prev.FirstSeen
			}
		}
		byValue[vc.Value] = vc
	}
	out := make([]stats.ValueCount, 0, len(byValue))
	for _, vc := range byValue {
		out = append(out, vc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen < out[j].FirstSeen })
	return out
}

func mergeHist(a, b []stats.Bin) []stats.Bin {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	byValue := make(map[float64]int64, len(a)+len(b))
	for _, bin := range a {
		byValue[bin.Value] += bin.Count
	}
	for _, bin := range b {
		byValue[bin.Value] += bin.Count
	}
	out := make([]stats.Bin, 0, len(byValue))
	for v, n := range byValue {
		out = append(out, stats.Bin{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
