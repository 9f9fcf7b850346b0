package feature

import (
	"fmt"

	"github.com/featuremill/featuremill/internal/domain"
)

// Spec is the ordered, immutable set of declared features.
// Declaration order is load-bearing: it drives anomaly ordering and output ordering.
type Spec struct {
	features []Feature
	byName   map[string]int
}

// NewSpec validates and creates a Spec. Feature names must be unique and at
// most one feature may carry the label role.
func NewSpec(features []Feature) (Spec, error) {
	if len(features) == 0 {
		return Spec{}, fmt.Errorf("%w: at least one feature is required", domain.ErrInvalidSpec)
	}
	byName := make(map[string]int, len(features))
	labels := 0
	for i, f := range features {
		if _, dup := byName[f.Name()]; dup {
			return Spec{}, fmt.Errorf("%w: duplicate feature name %q", domain.ErrInvalidSpec, f.Name())
		}
		byName[f.Name()] = i
		if f.Role() == Label {
			labels++
		}
	}
	if labels > 1 {
		return Spec{}, fmt.Errorf("%w: at most one label feature, got %d", domain.ErrInvalidSpec, labels)
	}
	fs := make([]Feature, len(features))
	copy(fs, features)
	return Spec{features: fs, byName: byName}, nil
}

// Len returns the number of declared features.
func (s Spec) Len() int { return len(s.features) }

// Features returns the features in declaration order.
func (s Spec) Features() []Feature {
	out := make([]Feature, len(s.features))
	copy(out, s.features)
	return out
}

// ByName looks up a feature by name.
func (s Spec) ByName(name string) (Feature, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Feature{}, false
	}
	return s.features[i], true
}

// Has reports whether a feature with the given name is declared.
func (s Spec) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}
