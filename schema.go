package featuremill

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/record"
)

const tagKey = "feature"

// schemaMeta holds parsed struct tag metadata, cached per Pipeline.
type schemaMeta struct {
	typ  reflect.Type
	spec feature.Spec

	// Mapping from struct field index to declared feature.
	fields []fieldMapping
}

type fieldMapping struct {
	structIdx int
	name      string
	role      feature.Role
}

// parseSchema reflects on T and extracts feature struct tag metadata.
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("featuremill: type %v is not a struct", t)
	}

	meta := &schemaMeta{typ: t}
	features := make([]feature.Feature, 0, t.NumField())

	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		feat, err := parseTag(f, tag)
		if err != nil {
			return nil, err
		}
		features = append(features, feat)
		meta.fields = append(meta.fields, fieldMapping{structIdx: i, name: feat.Name(), role: feat.Role()})
	}

	spec, err := feature.NewSpec(features)
	if err != nil {
		return nil, fmt.Errorf("featuremill: %w", err)
	}
	meta.spec = spec
	return meta, nil
}

// parseTag processes a single struct field's feature tag: "name,role" or
// "name,bucketized=N".
func parseTag(f reflect.StructField, tag string) (feature.Feature, error) {
	parts := strings.SplitN(tag, ",", 2)
	name := parts[0]
	if len(parts) != 2 || parts[1] == "" {
		return feature.Feature{}, fmt.Errorf("featuremill: field %s: tag must declare a role, e.g. `feature:\"%s,numeric\"`", f.Name, name)
	}

	roleStr, bucketStr, hasBuckets := strings.Cut(parts[1], "=")
	role := feature.Role(roleStr)
	buckets := 0
	if hasBuckets {
		if role != feature.Bucketized {
			return feature.Feature{}, fmt.Errorf("featuremill: field %s: only the bucketized role takes a bucket count", f.Name)
		}
		n, err := strconv.Atoi(bucketStr)
		if err != nil {
			return feature.Feature{}, fmt.Errorf("featuremill: field %s: invalid bucket count %q", f.Name, bucketStr)
		}
		buckets = n
	}

	if err := checkFieldKind(f.Type, role); err != nil {
		return feature.Feature{}, fmt.Errorf("featuremill: field %s: %w", f.Name, err)
	}

	feat, err := feature.New(name, role, buckets)
	if err != nil {
		return feature.Feature{}, fmt.Errorf("featuremill: field %s: %w", f.Name, err)
	}
	return feat, nil
}

// checkFieldKind validates the Go type against the declared role up front so
// that conversion never fails per item. Pointer fields mark optional
// features: a nil pointer reads as missing.
func checkFieldKind(t reflect.Type, role feature.Role) error {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if role.TakesNumber() {
		switch t.Kind() {
		case reflect.Float32, reflect.Float64,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return nil
		default:
			return fmt.Errorf("role %s requires a numeric Go type, got %s", role, t)
		}
	}
	if t.Kind() != reflect.String {
		return fmt.Errorf("role %s requires a string Go type, got %s", role, t)
	}
	return nil
}

// toRecord converts a typed struct to a domain record using schema metadata.
func (m *schemaMeta) toRecord(item any) record.Record {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	names := make([]string, 0, len(m.fields))
	values := make(map[string]record.Value, len(m.fields))
	for _, fm := range m.fields {
		names = append(names, fm.name)
		values[fm.name] = fieldValue(v.Field(fm.structIdx), fm.role)
	}
	return record.New(names, values)
}

func fieldValue(v reflect.Value, role feature.Role) record.Value {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return record.Missing()
		}
		v = v.Elem()
	}
	if role.TakesNumber() {
		return record.Number(toFloat64(v))
	}
	return record.String(v.String())
}

func toFloat64(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	default:
		return float64(v.Uint())
	}
}
