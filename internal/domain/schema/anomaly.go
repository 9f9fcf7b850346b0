package schema

// AnomalyKind classifies a statistical disagreement between a split and the schema.
type AnomalyKind string

const (
	// UnexpectedlyMissing: a required feature had missing values.
	UnexpectedlyMissing AnomalyKind = "unexpectedly_missing"
	// OutOfRange: an observed numeric min/max fell outside the schema domain.
	OutOfRange AnomalyKind = "out_of_range"
	// UnexpectedValue: an observed value disagreed with the feature's declared shape.
	UnexpectedValue AnomalyKind = "unexpected_value"
	// NewCategory: a categorical value absent from the schema domain.
	NewCategory AnomalyKind = "new_category"
)

// rank fixes the within-feature ordering of reported anomalies.
func (k AnomalyKind) rank() int {
	switch k {
	case UnexpectedlyMissing:
		return 0
	case OutOfRange:
		return 1
	case UnexpectedValue:
		return 2
	case NewCategory:
		return 3
	}
	return 4
}

// Before reports whether k sorts ahead of other within one feature's anomalies.
func (k AnomalyKind) Before(other AnomalyKind) bool { return k.rank() < other.rank() }

// Anomaly is one reported disagreement. Anomalies are data, not errors:
// the pipeline proceeds regardless and the operator decides whether to halt.
type Anomaly struct {
	FeatureName string
	Kind        AnomalyKind
	Description string
}
