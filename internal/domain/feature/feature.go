package feature

import (
	"fmt"
	"regexp"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Role is the declared role of a feature in the pipeline.
type Role string

const (
	// Numeric is a real-valued feature scaled to [0, 1].
	Numeric Role = "numeric"
	// Categorical is a string-valued feature encoded via a vocabulary.
	Categorical Role = "categorical"
	// Bucketized is a real-valued feature discretized into quantile buckets.
	Bucketized Role = "bucketized"
	// Label is the prediction target, encoded via a vocabulary like Categorical.
	Label Role = "label"
)

// IsValid checks if the role is one of the supported kinds.
func (r Role) IsValid() bool {
	switch r {
	case Numeric, Categorical, Bucketized, Label:
		return true
	}
	return false
}

// TakesNumber reports whether the role consumes numeric raw values.
func (r Role) TakesNumber() bool { return r == Numeric || r == Bucketized }

// HasVocabulary reports whether the role is encoded through a vocabulary.
func (r Role) HasVocabulary() bool { return r == Categorical || r == Label }

// Feature is an immutable value object describing one declared feature.
type Feature struct {
	name        string
	role        Role
	bucketCount int
}

// New validates and creates a Feature.
// Name: ^[a-zA-Z0-9_-]+$, 1-64 chars. Bucketized features need bucketCount >= 2;
// all other roles must leave it at 0.
func New(name string, role Role, bucketCount int) (Feature, error) {
	if name == "" {
		return Feature{}, fmt.Errorf("feature name is required")
	}
	if len(name) > 64 {
		return Feature{}, fmt.Errorf("feature name %q too long (max 64)", name)
	}
	if !nameRegex.MatchString(name) {
		return Feature{}, fmt.Errorf("feature name %q must be alphanumeric with underscores and hyphens", name)
	}
	if !role.IsValid() {
		return Feature{}, fmt.Errorf("invalid role %q for feature %q", role, name)
	}
	if role == Bucketized {
		if bucketCount < 2 {
			return Feature{}, fmt.Errorf("bucketized feature %q needs bucket count >= 2, got %d", name, bucketCount)
		}
	} else if bucketCount != 0 {
		return Feature{}, fmt.Errorf("bucket count is only valid for bucketized features, got %d on %q", bucketCount, name)
	}
	return Feature{name: name, role: role, bucketCount: bucketCount}, nil
}

// Reconstruct creates a Feature without validation (artifact hydration).
func Reconstruct(name string, role Role, bucketCount int) Feature {
	return Feature{name: name, role: role, bucketCount: bucketCount}
}

// Name returns the feature name.
func (f Feature) Name() string { return f.name }

// Role returns the declared feature role.
func (f Feature) Role() Role { return f.role }

// BucketCount returns the bucket count (0 unless bucketized).
func (f Feature) BucketCount() int { return f.bucketCount }
