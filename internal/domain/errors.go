package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaMismatch signals a structural disagreement between a record and the feature spec.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrInsufficientData signals a feature with zero usable observations at analyze time.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrVersionMismatch signals a persisted artifact with an unsupported layout version.
	ErrVersionMismatch = errors.New("artifact version mismatch")
	// ErrUnknownFeature signals a lookup for a feature name absent from the spec.
	ErrUnknownFeature = errors.New("unknown feature")
	// ErrInvalidSpec signals an invalid feature spec definition.
	ErrInvalidSpec = errors.New("invalid feature spec")
)

// SchemaMismatchError wraps ErrSchemaMismatch with the offending feature and detail.
type SchemaMismatchError struct {
	Feature string
	Detail  string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: feature %q: %s", ErrSchemaMismatch.Error(), e.Feature, e.Detail)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// NewSchemaMismatch creates a schema mismatch error for a feature.
func NewSchemaMismatch(feature, detail string) error {
	return &SchemaMismatchError{Feature: feature, Detail: detail}
}

// InsufficientDataError wraps ErrInsufficientData with the feature that had no observations.
type InsufficientDataError struct {
	Feature string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: feature %q has no non-missing observations", ErrInsufficientData.Error(), e.Feature)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// NewInsufficientData creates an insufficient data error for a feature.
func NewInsufficientData(feature string) error {
	return &InsufficientDataError{Feature: feature}
}

// VersionMismatchError wraps ErrVersionMismatch with the found and supported versions.
type VersionMismatchError struct {
	Found     int
	Supported int
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("%s: found version %d, supported %d", ErrVersionMismatch.Error(), e.Found, e.Supported)
}

func (e *VersionMismatchError) Unwrap() error { return ErrVersionMismatch }

// NewVersionMismatch creates a version mismatch error.
func NewVersionMismatch(found, supported int) error {
	return &VersionMismatchError{Found: found, Supported: supported}
}
