package record

// TransformedSuffix is appended to every feature name in transformer output.
const TransformedSuffix = "_xf"

// MissingSentinel is the transformed output for a missing input value.
// Every legitimate transformed value is >= 0 (scaled range, bucket index,
// vocabulary index), so -1 is unambiguous.
const MissingSentinel = -1.0

// Transformed is the per-record transformer output: an ordered mapping from
// "<feature>_xf" to the transformed numeric value.
type Transformed struct {
	names  []string
	values map[string]float64
}

// NewTransformed creates a Transformed result preserving the given name order.
func NewTransformed(names []string, values map[string]float64) Transformed {
	ns := make([]string, len(names))
	copy(ns, names)
	vs := make(map[string]float64, len(values))
	for k, v := range values {
		vs[k] = v
	}
	return Transformed{names: ns, values: vs}
}

// Names returns the output feature names ("<feature>_xf") in spec order.
func (t Transformed) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Get returns the transformed value for an output name.
func (t Transformed) Get(name string) (float64, bool) {
	v, ok := t.values[name]
	return v, ok
}

// Values returns a copy of the name -> value mapping.
func (t Transformed) Values() map[string]float64 {
	out := make(map[string]float64, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// Len returns the number of output features.
func (t Transformed) Len() int { return len(t.names) }
