package pipeline

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/params"
	"github.com/featuremill/featuremill/internal/domain/record"
	"github.com/featuremill/featuremill/internal/domain/schema"
	"github.com/featuremill/featuremill/internal/source"
)

func censusSpec(t *testing.T) feature.Spec {
	t.Helper()
	mk := func(name string, role feature.Role, buckets int) feature.Feature {
		f, err := feature.New(name, role, buckets)
		if err != nil {
			t.Fatal(err)
		}
		return f
	}
	spec, err := feature.NewSpec([]feature.Feature{
		mk("age", feature.Numeric, 0),
		mk("sex", feature.Categorical, 0),
		mk("hours", feature.Bucketized, 4),
	})
	if err != nil {
		t.Fatal(err)
	}
	return spec
}

func censusRecord(age, sex, hours record.Value) record.Record {
	return record.New([]string{"age", "sex", "hours"}, map[string]record.Value{
		"age": age, "sex": sex, "hours": hours,
	})
}

type memSource struct {
	records []record.Record
	pos     int
	readErr error
}

func (m *memSource) Next(ctx context.Context) (record.Record, error) {
	if m.pos >= len(m.records) {
		if m.readErr != nil {
			return record.Record{}, m.readErr
		}
		return record.Record{}, io.EOF
	}
	rec := m.records[m.pos]
	m.pos++
	return rec, nil
}

func (m *memSource) Close() error { return nil }

func memSplit(name string, records []record.Record) SplitInput {
	return SplitInput{
		Name: name,
		Open: func(ctx context.Context) (source.Source, error) {
			return &memSource{records: records}, nil
		},
	}
}

type memSink struct {
	mu   sync.Mutex
	rows []record.Transformed
}

func (m *memSink) Write(t record.Transformed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, t)
	return nil
}

func (m *memSink) Close() error { return nil }

type memStore struct {
	mu    sync.Mutex
	saved map[string]params.Params
}

func (m *memStore) Save(ctx context.Context, name string, p params.Params) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string]params.Params)
	}
	m.saved[name] = p
	return nil
}

func (m *memStore) Load(ctx context.Context, name string) (params.Params, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.saved[name]
	if !ok {
		return params.Params{}, errors.New("not found")
	}
	return p, nil
}

func trainRecords() []record.Record {
	return []record.Record{
		censusRecord(record.Number(17), record.String("Male"), record.Number(20)),
		censusRecord(record.Number(40), record.String("Female"), record.Number(40)),
		censusRecord(record.Number(90), record.String("Male"), record.Number(60)),
		censusRecord(record.Number(35), record.String("Male"), record.Number(35)),
	}
}

func evalRecords() []record.Record {
	return []record.Record{
		censusRecord(record.Number(25), record.String("Female"), record.Number(40)),
		censusRecord(record.Number(60), record.String("Male"), record.Number(50)),
	}
}

func TestRun_EndToEnd(t *testing.T) {
	spec := censusSpec(t)
	store := &memStore{}
	sinksByName := map[string]*memSink{}
	factory := func(split string) (Sink, error) {
		s := &memSink{}
		sinksByName[split] = s
		return s, nil
	}

	svc := New(spec, store, zap.NewNop(), WithWorkers(3))
	res, err := svc.Run(context.Background(), "census",
		memSplit("train", trainRecords()), memSplit("eval", evalRecords()), factory)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.RunID == "" {
		t.Error("empty run ID")
	}
	if len(res.Anomalies) != 0 {
		t.Errorf("anomalies = %v, want none", res.Anomalies)
	}

	// Params come from the train split alone.
	age, ok := res.Params.Feature("age")
	if !ok {
		t.Fatal("no params for age")
	}
	if s := age.Scale(); s.Min != 17 || s.Max != 90 {
		t.Errorf("age scale = [%v, %v], want [17, 90]", s.Min, s.Max)
	}

	if _, ok := store.saved["census"]; !ok {
		t.Error("params were not persisted")
	}

	if res.Transformed["train"] != 4 || res.Transformed["eval"] != 2 {
		t.Errorf("transformed counts = %v, want train=4 eval=2", res.Transformed)
	}
	if got := len(sinksByName["train"].rows); got != 4 {
		t.Errorf("train sink rows = %d, want 4", got)
	}

	// Output preserves input order: first train record has age 17, the
	// split minimum, which scales to 0.
	first := sinksByName["train"].rows[0]
	if v, _ := first.Get("age" + record.TransformedSuffix); v != 0 {
		t.Errorf("first transformed age = %v, want 0", v)
	}
}

func TestRun_WorkerCountDoesNotChangeOutput(t *testing.T) {
	spec := censusSpec(t)

	runWith := func(workers int) (*Result, []record.Transformed) {
		var trainRows []record.Transformed
		factory := func(split string) (Sink, error) {
			s := &memSink{}
			if split == "train" {
				return sinkTap{s, &trainRows}, nil
			}
			return s, nil
		}
		svc := New(spec, &memStore{}, zap.NewNop(), WithWorkers(workers))
		res, err := svc.Run(context.Background(), "census",
			memSplit("train", trainRecords()), memSplit("eval", evalRecords()), factory)
		if err != nil {
			t.Fatalf("Run with %d workers: %v", workers, err)
		}
		return res, trainRows
	}

	res1, rows1 := runWith(1)
	res4, rows4 := runWith(4)

	if !reflect.DeepEqual(res1.Params, res4.Params) {
		t.Error("params differ between 1 and 4 workers")
	}
	if !reflect.DeepEqual(res1.TrainStats, res4.TrainStats) {
		t.Error("train statistics differ between 1 and 4 workers")
	}
	if !reflect.DeepEqual(rows1, rows4) {
		t.Error("transformed output differs between 1 and 4 workers")
	}
}

type sinkTap struct {
	inner *memSink
	out   *[]record.Transformed
}

func (s sinkTap) Write(t record.Transformed) error {
	*s.out = append(*s.out, t)
	return s.inner.Write(t)
}

func (s sinkTap) Close() error { return s.inner.Close() }

func TestRun_FailOnAnomaly(t *testing.T) {
	spec := censusSpec(t)
	drifted := []record.Record{
		censusRecord(record.Number(120), record.String("Other"), record.Number(40)),
	}

	svc := New(spec, &memStore{}, zap.NewNop(), WithWorkers(2), WithFailOnAnomaly(true))
	res, err := svc.Run(context.Background(), "census",
		memSplit("train", trainRecords()), memSplit("eval", drifted), nil)
	if !errors.Is(err, ErrAnomaliesFound) {
		t.Fatalf("err = %v, want ErrAnomaliesFound", err)
	}
	if res == nil || len(res.Anomalies) == 0 {
		t.Fatal("expected anomalies in the result")
	}

	kinds := map[schema.AnomalyKind]bool{}
	for _, a := range res.Anomalies {
		kinds[a.Kind] = true
	}
	if !kinds[schema.OutOfRange] || !kinds[schema.NewCategory] {
		t.Errorf("anomaly kinds = %v, want out_of_range and new_category", kinds)
	}
}

func TestRun_ReportAndProceed(t *testing.T) {
	spec := censusSpec(t)
	drifted := []record.Record{
		censusRecord(record.Number(120), record.String("Male"), record.Number(40)),
	}

	svc := New(spec, &memStore{}, zap.NewNop())
	res, err := svc.Run(context.Background(), "census",
		memSplit("train", trainRecords()), memSplit("eval", drifted), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Anomalies) == 0 {
		t.Error("expected anomalies to be reported")
	}
	if res.Transformed["eval"] != 1 {
		t.Errorf("eval transformed = %d, want 1 (run proceeds past anomalies)", res.Transformed["eval"])
	}
}

func TestRun_SourceErrorPropagates(t *testing.T) {
	spec := censusSpec(t)
	broken := SplitInput{
		Name: "train",
		Open: func(ctx context.Context) (source.Source, error) {
			return &memSource{records: trainRecords()[:1], readErr: errors.New("disk gone")}, nil
		},
	}

	svc := New(spec, &memStore{}, zap.NewNop(), WithWorkers(2))
	_, err := svc.Run(context.Background(), "census", broken, memSplit("eval", evalRecords()), nil)
	if err == nil || !strings.Contains(err.Error(), "disk gone") {
		t.Fatalf("err = %v, want wrapped source error", err)
	}
}

func TestRun_TypeMismatchFailsStatistics(t *testing.T) {
	spec := censusSpec(t)
	bad := []record.Record{
		censusRecord(record.String("seventeen"), record.String("Male"), record.Number(20)),
	}

	svc := New(spec, &memStore{}, zap.NewNop(), WithWorkers(2))
	_, err := svc.Run(context.Background(), "census",
		memSplit("train", bad), memSplit("eval", evalRecords()), nil)
	if err == nil {
		t.Fatal("expected a schema mismatch error")
	}
}
