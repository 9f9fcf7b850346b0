package record

import "strconv"

// Kind discriminates the raw value variants.
type Kind int

const (
	// KindMissing is an absent value.
	KindMissing Kind = iota
	// KindNumber is a scalar numeric value.
	KindNumber
	// KindString is a scalar string value.
	KindString
)

// Value is a tagged raw feature value: number, string, or missing.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// Number creates a numeric value.
func Number(v float64) Value { return Value{kind: KindNumber, num: v} }

// String creates a string value.
func String(v string) Value { return Value{kind: KindString, str: v} }

// Missing creates an absent value.
func Missing() Value { return Value{kind: KindMissing} }

// Kind returns the value variant.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the value is absent.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Num returns the numeric payload (0 unless KindNumber).
func (v Value) Num() float64 { return v.num }

// Str returns the string payload ("" unless KindString).
func (v Value) Str() string { return v.str }

// Display renders the value for anomaly descriptions and logs.
func (v Value) Display() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	default:
		return "<missing>"
	}
}

// Record is an ordered mapping from feature name to raw value,
// immutable once built.
type Record struct {
	names  []string
	values map[string]Value
}

// New creates a Record from name/value pairs in the given order.
// Later duplicates of a name overwrite earlier ones.
func New(names []string, values map[string]Value) Record {
	ns := make([]string, len(names))
	copy(ns, names)
	vs := make(map[string]Value, len(values))
	for k, v := range values {
		vs[k] = v
	}
	return Record{names: ns, values: vs}
}

// Names returns the feature names in record order.
func (r Record) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Get returns the value for a feature name. Absent names read as Missing.
func (r Record) Get(name string) Value {
	v, ok := r.values[name]
	if !ok {
		return Missing()
	}
	return v
}

// Len returns the number of features carried by the record.
func (r Record) Len() int { return len(r.names) }
