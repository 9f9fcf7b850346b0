package params

import "github.com/featuremill/featuremill/internal/domain/feature"

// Version is the persisted layout version of analyzer parameters.
// Consumers must reject any other version rather than reinterpret fields.
const Version = 1

// OOVIndex is the vocabulary index reserved for out-of-vocabulary values.
const OOVIndex = 0

// Scale holds min/max scaling parameters for a numeric feature.
type Scale struct {
	Min float64
	Max float64
	// Degenerate is set when min == max in the training data; the transformer
	// then emits a constant 0 instead of dividing by zero.
	Degenerate bool
}

// NewScale creates scaling parameters, flagging a degenerate range.
func NewScale(min, max float64) Scale {
	return Scale{Min: min, Max: max, Degenerate: min == max}
}

// Buckets holds the ordered quantile boundaries for a bucketized feature.
// len(Boundaries) == bucketCount - 1; boundaries are non-decreasing and
// upper-exclusive: a value equal to a boundary lands in the lower bucket.
type Buckets struct {
	Boundaries []float64
}

// BucketCount returns the number of buckets the boundaries define.
func (b Buckets) BucketCount() int { return len(b.Boundaries) + 1 }

// Vocabulary is an ordered index assignment for categorical values.
// Values[i] carries index i+1; index 0 is reserved for out-of-vocabulary.
type Vocabulary struct {
	values []string
	index  map[string]int
}

// NewVocabulary creates a vocabulary from values already in index order
// (descending training frequency, ties by first occurrence).
func NewVocabulary(values []string) Vocabulary {
	vs := make([]string, len(values))
	copy(vs, values)
	index := make(map[string]int, len(vs))
	for i, v := range vs {
		index[v] = i + 1
	}
	return Vocabulary{values: vs, index: index}
}

// Values returns the vocabulary values in index order.
func (v Vocabulary) Values() []string {
	out := make([]string, len(v.values))
	copy(out, v.values)
	return out
}

// Index returns the assigned index for a value, or OOVIndex when absent.
func (v Vocabulary) Index(value string) int {
	if i, ok := v.index[value]; ok {
		return i
	}
	return OOVIndex
}

// Len returns the number of in-vocabulary values.
func (v Vocabulary) Len() int { return len(v.values) }

// Feature holds the analyzer output for one feature. Exactly one of the
// role-specific payloads is meaningful, selected by Role.
type Feature struct {
	name  string
	role  feature.Role
	scale Scale
	bkts  Buckets
	vocab Vocabulary
}

// NewScaleFeature creates numeric scaling parameters for a feature.
func NewScaleFeature(name string, s Scale) Feature {
	return Feature{name: name, role: feature.Numeric, scale: s}
}

// NewBucketFeature creates bucket boundary parameters for a feature.
func NewBucketFeature(name string, b Buckets) Feature {
	return Feature{name: name, role: feature.Bucketized, bkts: b}
}

// NewVocabFeature creates vocabulary parameters for a categorical or label feature.
func NewVocabFeature(name string, role feature.Role, v Vocabulary) Feature {
	return Feature{name: name, role: role, vocab: v}
}

// Name returns the feature name.
func (f Feature) Name() string { return f.name }

// Role returns the feature role the parameters were computed for.
func (f Feature) Role() feature.Role { return f.role }

// Scale returns the scaling parameters (numeric role).
func (f Feature) Scale() Scale { return f.scale }

// Buckets returns the bucket boundaries (bucketized role).
func (f Feature) Buckets() Buckets { return f.bkts }

// Vocabulary returns the vocabulary (categorical/label roles).
func (f Feature) Vocabulary() Vocabulary { return f.vocab }

// Params is the complete, immutable analyzer output for one training split.
// Training and serving must share the identical object or a byte-identical
// persisted copy.
type Params struct {
	order    []string
	features map[string]Feature
}

// New creates Params from per-feature parameters in spec order.
func New(features []Feature) Params {
	order := make([]string, len(features))
	byName := make(map[string]Feature, len(features))
	for i, f := range features {
		order[i] = f.Name()
		byName[f.Name()] = f
	}
	return Params{order: order, features: byName}
}

// FeatureNames returns the feature names in spec declaration order.
func (p Params) FeatureNames() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Feature looks up the parameters for a feature name.
func (p Params) Feature(name string) (Feature, bool) {
	f, ok := p.features[name]
	return f, ok
}

// Len returns the number of features covered by the parameters.
func (p Params) Len() int { return len(p.order) }
