package stats

// Numeric holds the commutative numeric aggregates for a feature.
// All four fields merge associatively: min of mins, max of maxes, sums add.
type Numeric struct {
	Min   float64
	Max   float64
	Sum   float64
	SumSq float64
}

// Mean returns the mean over n observations.
func (a Numeric) Mean(n int64) float64 {
	if n == 0 {
		return 0
	}
	return a.Sum / float64(n)
}

// Variance returns the population variance over n observations.
func (a Numeric) Variance(n int64) float64 {
	if n == 0 {
		return 0
	}
	mean := a.Sum / float64(n)
	return a.SumSq/float64(n) - mean*mean
}

// ValueCount is one distinct categorical value with its frequency and the
// position of its first observation in the pass. FirstSeen makes vocabulary
// tie-breaking reproducible under partitioned accumulation.
type ValueCount struct {
	Value     string
	Count     int64
	FirstSeen int64
}

// Bin is one distinct observed numeric value with its frequency
// (exact histogram for quantile boundary computation).
type Bin struct {
	Value float64
	Count int64
}

// Feature is an immutable per-feature, per-split statistics snapshot.
type Feature struct {
	name    string
	count   int64
	missing int64
	numeric Numeric
	values  []ValueCount
	hist    []Bin
}

// NewFeature creates a snapshot from accumulated aggregates.
// values must be ordered by FirstSeen, hist by Value; callers hand over
// ownership of both slices.
func NewFeature(name string, count, missing int64, numeric Numeric, values []ValueCount, hist []Bin) Feature {
	return Feature{name: name, count: count, missing: missing, numeric: numeric, values: values, hist: hist}
}

// Name returns the feature name.
func (f Feature) Name() string { return f.name }

// Count returns the number of records observed, including missing ones.
func (f Feature) Count() int64 { return f.count }

// MissingCount returns the number of records with an absent value.
func (f Feature) MissingCount() int64 { return f.missing }

// Observed returns the number of non-missing observations.
func (f Feature) Observed() int64 { return f.count - f.missing }

// Numeric returns the numeric aggregates. Only meaningful when Observed() > 0
// and the feature role takes numbers.
func (f Feature) Numeric() Numeric { return f.numeric }

// Values returns distinct categorical values ordered by first observation.
func (f Feature) Values() []ValueCount {
	out := make([]ValueCount, len(f.values))
	copy(out, f.values)
	return out
}

// Histogram returns the distinct observed numeric values ordered ascending.
func (f Feature) Histogram() []Bin {
	out := make([]Bin, len(f.hist))
	copy(out, f.hist)
	return out
}

// Split is an immutable statistics snapshot over one named data split.
type Split struct {
	name     string
	order    []string
	features map[string]Feature
}

// NewSplit creates a split snapshot from per-feature snapshots in spec order.
func NewSplit(name string, features []Feature) Split {
	order := make([]string, len(features))
	byName := make(map[string]Feature, len(features))
	for i, f := range features {
		order[i] = f.Name()
		byName[f.Name()] = f
	}
	return Split{name: name, order: order, features: byName}
}

// Name returns the split name (conventionally "train" or "eval").
func (s Split) Name() string { return s.name }

// FeatureNames returns the feature names in spec declaration order.
func (s Split) FeatureNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Feature looks up the snapshot for a feature name.
func (s Split) Feature(name string) (Feature, bool) {
	f, ok := s.features[name]
	return f, ok
}
