package schema

import "github.com/featuremill/featuremill/internal/domain/feature"

// Presence is the inferred presence requirement for a feature.
type Presence string

const (
	// Required means the training split had no missing values for the feature.
	Required Presence = "required"
	// Optional means missing values were observed during training.
	Optional Presence = "optional"
)

// FeatureSchema is the inferred, read-only description of one feature:
// its value domain and presence requirement.
type FeatureSchema struct {
	name     string
	role     feature.Role
	presence Presence

	// Numeric domain, valid for numeric/bucketized roles.
	min float64
	max float64

	// Category domain, valid for categorical/label roles.
	categories []string
	catSet     map[string]struct{}
}

// NewNumeric creates a feature schema with a numeric [min, max] domain.
func NewNumeric(name string, role feature.Role, presence Presence, min, max float64) FeatureSchema {
	return FeatureSchema{name: name, role: role, presence: presence, min: min, max: max}
}

// NewCategorical creates a feature schema with a finite category domain.
// categories keep their observed order.
func NewCategorical(name string, role feature.Role, presence Presence, categories []string) FeatureSchema {
	cs := make([]string, len(categories))
	copy(cs, categories)
	set := make(map[string]struct{}, len(cs))
	for _, c := range cs {
		set[c] = struct{}{}
	}
	return FeatureSchema{name: name, role: role, presence: presence, categories: cs, catSet: set}
}

// Name returns the feature name.
func (f FeatureSchema) Name() string { return f.name }

// Role returns the declared feature role.
func (f FeatureSchema) Role() feature.Role { return f.role }

// Presence returns the presence requirement.
func (f FeatureSchema) Presence() Presence { return f.presence }

// Range returns the numeric domain bounds.
func (f FeatureSchema) Range() (min, max float64) { return f.min, f.max }

// Categories returns the category domain in observed order.
func (f FeatureSchema) Categories() []string {
	out := make([]string, len(f.categories))
	copy(out, f.categories)
	return out
}

// HasCategory reports whether a value is inside the category domain.
func (f FeatureSchema) HasCategory(value string) bool {
	_, ok := f.catSet[value]
	return ok
}

// Schema is the inferred dataset schema: one FeatureSchema per declared
// feature, in spec declaration order. Produced once from the training split
// and read-only thereafter.
type Schema struct {
	order    []string
	features map[string]FeatureSchema
}

// New creates a Schema from per-feature schemas in spec order.
func New(features []FeatureSchema) Schema {
	order := make([]string, len(features))
	byName := make(map[string]FeatureSchema, len(features))
	for i, f := range features {
		order[i] = f.Name()
		byName[f.Name()] = f
	}
	return Schema{order: order, features: byName}
}

// FeatureNames returns the feature names in spec declaration order.
func (s Schema) FeatureNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Feature looks up the schema for a feature name.
func (s Schema) Feature(name string) (FeatureSchema, bool) {
	f, ok := s.features[name]
	return f, ok
}

// Len returns the number of features in the schema.
func (s Schema) Len() int { return len(s.order) }
