package fs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/featuremill/featuremill/internal/domain/params"
	"github.com/featuremill/featuremill/internal/repository/artifact"
)

func testParams(min, max float64) params.Params {
	return params.New([]params.Feature{
		params.NewScaleFeature("age", params.NewScale(min, max)),
	})
}

func TestStore_SaveLoad(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "census", testParams(17, 90)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p, err := store.Load(ctx, "census")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	age, ok := p.Feature("age")
	if !ok {
		t.Fatal("no age params")
	}
	if s := age.Scale(); s.Min != 17 || s.Max != 90 {
		t.Errorf("scale = %+v, want {17 90}", s)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Load(context.Background(), "nope")
	if !errors.Is(err, artifact.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestStore_OverwriteReplacesEnvelope(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "census", testParams(17, 90)); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, "census", testParams(0, 100)); err != nil {
		t.Fatal(err)
	}

	p, err := store.Load(ctx, "census")
	if err != nil {
		t.Fatal(err)
	}
	age, _ := p.Feature("age")
	if s := age.Scale(); s.Min != 0 || s.Max != 100 {
		t.Errorf("scale = %+v, want the overwritten {0 100}", s)
	}
}

func TestStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "artifacts")
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := store.Save(context.Background(), "census", testParams(1, 2)); err != nil {
		t.Fatalf("Save into created dir: %v", err)
	}
}

func TestNew_RequiresDir(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}
