package statistics

import (
	"fmt"
	"sort"

	"github.com/featuremill/featuremill/internal/domain"
	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/record"
	"github.com/featuremill/featuremill/internal/domain/stats"
)

// Computer is a single-pass streaming statistics accumulator for one split.
// Not safe for concurrent use; for partitioned accumulation run one Computer
// per partition and combine snapshots with Merge.
type Computer struct {
	split string
	spec  feature.Spec
	accs  []*acc
}

type catEntry struct {
	count     int64
	firstSeen int64
}

type acc struct {
	feat    feature.Feature
	count   int64
	missing int64
	numeric stats.Numeric
	cats    map[string]*catEntry
	hist    map[float64]int64
}

// NewComputer creates a statistics computer for a named split.
func NewComputer(split string, spec feature.Spec) *Computer {
	accs := make([]*acc, 0, spec.Len())
	for _, f := range spec.Features() {
		a := &acc{feat: f}
		if f.Role().HasVocabulary() {
			a.cats = make(map[string]*catEntry)
		}
		if f.Role() == feature.Bucketized {
			a.hist = make(map[float64]int64)
		}
		accs = append(accs, a)
	}
	return &Computer{split: split, spec: spec, accs: accs}
}

// Split returns the split name the computer accumulates for.
func (c *Computer) Split() string { return c.split }

// Observe folds one record into the running statistics. seq is the record's
// position in the overall stream; it fixes first-occurrence order so that
// partitioned accumulation merges to the same result as a sequential pass.
// A record carrying a feature name absent from the spec, or a value whose type
// disagrees with the feature's role, hard-stops with a schema mismatch.
func (c *Computer) Observe(seq int64, rec record.Record) error {
	for _, name := range rec.Names() {
		if !c.spec.Has(name) {
			return domain.NewSchemaMismatch(name, "not declared in feature spec")
		}
	}

	for _, a := range c.accs {
		v := rec.Get(a.feat.Name())
		a.count++
		if v.IsMissing() {
			a.missing++
			continue
		}
		if err := a.observe(seq, v); err != nil {
			return err
		}
	}
	return nil
}

func (a *acc) observe(seq int64, v record.Value) error {
	role := a.feat.Role()
	if role.TakesNumber() {
		if v.Kind() != record.KindNumber {
			return domain.NewSchemaMismatch(a.feat.Name(),
				fmt.Sprintf("expected numeric value for %s feature, got %q", role, v.Display()))
		}
		a.addNumber(v.Num())
		return nil
	}

	if v.Kind() != record.KindString {
		return domain.NewSchemaMismatch(a.feat.Name(),
			fmt.Sprintf("expected string value for %s feature, got %q", role, v.Display()))
	}
	e, ok := a.cats[v.Str()]
	if !ok {
		a.cats[v.Str()] = &catEntry{count: 1, firstSeen: seq}
		return nil
	}
	e.count++
	if seq < e.firstSeen {
		e.firstSeen = seq
	}
	return nil
}

func (a *acc) addNumber(x float64) {
	observed := a.count - a.missing - 1 // before this observation
	if observed == 0 {
		a.numeric.Min = x
		a.numeric.Max = x
	} else {
		if x < a.numeric.Min {
			a.numeric.Min = x
		}
		if x > a.numeric.Max {
			a.numeric.Max = x
		}
	}
	a.numeric.Sum += x
	a.numeric.SumSq += x * x
	if a.hist != nil {
		a.hist[x]++
	}
}

// Snapshot hands out the accumulated statistics as an immutable split snapshot.
// The computer can keep observing afterwards; the snapshot does not alias it.
func (c *Computer) Snapshot() stats.Split {
	features := make([]stats.Feature, 0, len(c.accs))
	for _, a := range c.accs {
		features = append(features, a.snapshot())
	}
	return stats.NewSplit(c.split, features)
}

func (a *acc) snapshot() stats.Feature {
	var values []stats.ValueCount
	if len(a.cats) > 0 {
		values = make([]stats.ValueCount, 0, len(a.cats))
		for v, e := range a.cats {
			values = append(values, stats.ValueCount{Value: v, Count: e.count, FirstSeen: e.firstSeen})
		}
		sort.Slice(values, func(i, j int) bool { return values[i].FirstSeen < values[j].FirstSeen })
	}

	var hist []stats.Bin
	if len(a.hist) > 0 {
		hist = make([]stats.Bin, 0, len(a.hist))
		for v, n := range a.hist {
			hist = append(hist, stats.Bin{Value: v, Count: n})
		}
		sort.Slice(hist, func(i, j int) bool { return hist[i].Value < hist[j].Value })
	}

	return stats.NewFeature(a.feat.Name(), a.count, a.missing, a.numeric, values, hist)
}
