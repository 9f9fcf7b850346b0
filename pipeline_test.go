package featuremill

import (
	"testing"

	"github.com/featuremill/featuremill/internal/domain/record"
	"github.com/featuremill/featuremill/internal/domain/schema"
)

type person struct {
	Age    float64  `feature:"age,numeric"`
	Sex    string   `feature:"sex,categorical"`
	Hours  *float64 `feature:"hours,bucketized=4"`
	Income string   `feature:"income,label"`

	Note string // untagged, ignored
}

func hours(v float64) *float64 { return &v }

func trainPeople() []person {
	return []person{
		{Age: 17, Sex: "Male", Hours: hours(20), Income: "<=50K"},
		{Age: 40, Sex: "Female", Hours: hours(40), Income: ">50K"},
		{Age: 90, Sex: "Male", Hours: hours(60), Income: "<=50K"},
		{Age: 35, Sex: "Male", Hours: hours(35), Income: ">50K"},
	}
}

func TestNewPipeline_ParsesTags(t *testing.T) {
	p, err := NewPipeline[person]()
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	spec := p.Spec()
	if spec.Len() != 4 {
		t.Fatalf("spec has %d features, want 4", spec.Len())
	}
	hoursFeat, ok := spec.ByName("hours")
	if !ok || hoursFeat.BucketCount() != 4 {
		t.Errorf("hours = %+v, want bucketized with 4 buckets", hoursFeat)
	}
}

func TestNewPipeline_Invalid(t *testing.T) {
	t.Run("not a struct", func(t *testing.T) {
		if _, err := NewPipeline[int](); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("missing role", func(t *testing.T) {
		type bad struct {
			Age float64 `feature:"age"`
		}
		if _, err := NewPipeline[bad](); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("numeric role on string field", func(t *testing.T) {
		type bad struct {
			Age string `feature:"age,numeric"`
		}
		if _, err := NewPipeline[bad](); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("bucket count on numeric role", func(t *testing.T) {
		type bad struct {
			Age float64 `feature:"age,numeric=4"`
		}
		if _, err := NewPipeline[bad](); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("two labels", func(t *testing.T) {
		type bad struct {
			A string `feature:"a,label"`
			B string `feature:"b,label"`
		}
		if _, err := NewPipeline[bad](); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestFitTransform(t *testing.T) {
	p, err := NewPipeline[person]()
	if err != nil {
		t.Fatal(err)
	}
	fitted, err := p.Fit(trainPeople())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	out, err := fitted.Transform(person{Age: 53.5, Sex: "Female", Hours: hours(50), Income: "<=50K"})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if v, _ := out.Get("age" + record.TransformedSuffix); v != 0.5 {
		t.Errorf("age_xf = %v, want 0.5", v)
	}
	if v, _ := out.Get("sex" + record.TransformedSuffix); v != 2 {
		t.Errorf("sex_xf = %v, want 2 (second most frequent)", v)
	}

	// Out-of-vocabulary maps to the reserved index 0.
	out, err = fitted.Transform(person{Age: 30, Sex: "Other", Hours: hours(40), Income: "<=50K"})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := out.Get("sex" + record.TransformedSuffix); v != 0 {
		t.Errorf("sex_xf = %v, want 0 for unseen value", v)
	}
}

func TestFitTransform_NilPointerIsMissing(t *testing.T) {
	p, err := NewPipeline[person]()
	if err != nil {
		t.Fatal(err)
	}
	fitted, err := p.Fit(trainPeople())
	if err != nil {
		t.Fatal(err)
	}

	out, err := fitted.Transform(person{Age: 30, Sex: "Male", Income: "<=50K"})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := out.Get("hours" + record.TransformedSuffix); v != record.MissingSentinel {
		t.Errorf("hours_xf = %v, want missing sentinel %v", v, record.MissingSentinel)
	}
}

func TestCheck(t *testing.T) {
	p, err := NewPipeline[person]()
	if err != nil {
		t.Fatal(err)
	}
	fitted, err := p.Fit(trainPeople())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("fitted data is self-consistent", func(t *testing.T) {
		anomalies, err := fitted.Check(trainPeople())
		if err != nil {
			t.Fatal(err)
		}
		if len(anomalies) != 0 {
			t.Errorf("anomalies = %v, want none", anomalies)
		}
	})

	t.Run("drifted data is reported", func(t *testing.T) {
		anomalies, err := fitted.Check([]person{
			{Age: 120, Sex: "Other", Hours: hours(40), Income: "<=50K"},
		})
		if err != nil {
			t.Fatal(err)
		}
		kinds := map[AnomalyKind]bool{}
		for _, a := range anomalies {
			kinds[a.Kind] = true
		}
		if !kinds[schema.OutOfRange] || !kinds[schema.NewCategory] {
			t.Errorf("kinds = %v, want out_of_range and new_category", kinds)
		}
	})
}

func TestFit_Deterministic(t *testing.T) {
	p, err := NewPipeline[person]()
	if err != nil {
		t.Fatal(err)
	}

	f1, err := p.Fit(trainPeople())
	if err != nil {
		t.Fatal(err)
	}
	f2, err := p.Fit(trainPeople())
	if err != nil {
		t.Fatal(err)
	}

	item := person{Age: 44, Sex: "Female", Hours: hours(38), Income: ">50K"}
	o1, err := f1.Transform(item)
	if err != nil {
		t.Fatal(err)
	}
	o2, err := f2.Transform(item)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range o1.Names() {
		v1, _ := o1.Get(name)
		v2, _ := o2.Get(name)
		if v1 != v2 {
			t.Errorf("%s: %v != %v across identical fits", name, v1, v2)
		}
	}
}
