package statistics

import (
	"testing"

	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/record"
)

// censusSpec builds the spec used across the package tests:
// numeric age, categorical sex, bucketized hours (4 buckets), label income.
func censusSpec(t *testing.T) feature.Spec {
	t.Helper()
	age, err := feature.New("age", feature.Numeric, 0)
	if err != nil {
		t.Fatal(err)
	}
	sex, err := feature.New("sex", feature.Categorical, 0)
	if err != nil {
		t.Fatal(err)
	}
	hours, err := feature.New("hours", feature.Bucketized, 4)
	if err != nil {
		t.Fatal(err)
	}
	income, err := feature.New("income", feature.Label, 0)
	if err != nil {
		t.Fatal(err)
	}
	spec, err := feature.NewSpec([]feature.Feature{age, sex, hours, income})
	if err != nil {
		t.Fatal(err)
	}
	return spec
}

// censusRecord builds a full record; pass record.Missing() for absent values.
func censusRecord(age, sex, hours, income record.Value) record.Record {
	return record.New(
		[]string{"age", "sex", "hours", "income"},
		map[string]record.Value{"age": age, "sex": sex, "hours": hours, "income": income},
	)
}

func num(v float64) record.Value { return record.Number(v) }
func str(v string) record.Value  { return record.String(v) }
