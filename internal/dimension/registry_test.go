package dimension_test

import (
	"errors"
	"testing"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/dimension/dimensiontest"
)

func TestRegisterAndGet(t *testing.T) {
	r := dimension.NewRegistry()
	if err := r.Register(dimensiontest.New("Burstiness", dimension.TierCore, 15, 70)); err != nil {
		t.Fatalf("register: %v", err)
	}

	d, ok := r.Get("burstiness")
	if !ok {
		t.Fatal("expected case-insensitive lookup to succeed")
	}
	if d.Name() != "Burstiness" {
		t.Errorf("expected declared name, got %s", d.Name())
	}
	if _, ok := r.Get("perplexity"); ok {
		t.Error("expected unknown dimension to be absent")
	}
	if !r.Has("BURSTINESS") {
		t.Error("expected Has to ignore case")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := dimension.NewRegistry()
	_ = r.Register(dimensiontest.New("voice", dimension.TierSupporting, 8, 50))

	err := r.Register(dimensiontest.New("Voice", dimension.TierCore, 10, 50))
	var dup *dimension.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 dimension, got %d", r.Len())
	}
	names, _ := r.ByTier(dimension.TierCore)
	if len(names) != 0 {
		t.Errorf("duplicate must not be tier-indexed, got %v", names)
	}
}

func TestRegisterInvalidTier(t *testing.T) {
	r := dimension.NewRegistry()
	err := r.Register(dimensiontest.New("odd", dimension.Tier("EXPERIMENTAL"), 5, 50))
	var tierErr *dimension.InvalidTierError
	if !errors.As(err, &tierErr) {
		t.Fatalf("expected InvalidTierError, got %v", err)
	}
	if r.Len() != 0 {
		t.Error("invalid dimension must not be registered")
	}
}

func TestAllPreservesRegistrationOrder(t *testing.T) {
	r := dimension.NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mu"} {
		if err := r.Register(dimensiontest.New(name, dimension.TierCore, 10, 50)); err != nil {
			t.Fatal(err)
		}
	}
	all := r.All()
	want := []string{"zeta", "alpha", "mu"}
	for i, d := range all {
		if d.Name() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], d.Name())
		}
	}
}

func TestByTier(t *testing.T) {
	r := dimension.NewRegistry()
	_ = r.Register(dimensiontest.New("a", dimension.TierCore, 10, 50))
	_ = r.Register(dimensiontest.New("b", dimension.TierAdvanced, 10, 50))
	_ = r.Register(dimensiontest.New("c", dimension.TierCore, 10, 50))

	core, err := r.ByTier(dimension.TierCore)
	if err != nil {
		t.Fatal(err)
	}
	if len(core) != 2 || core[0] != "a" || core[1] != "c" {
		t.Errorf("unexpected core tier %v", core)
	}

	if _, err := r.ByTier(dimension.Tier("NOPE")); err == nil {
		t.Error("expected error for unknown tier")
	}

	summary := r.TierSummary()
	if summary[dimension.TierStructural].Count != 0 {
		t.Error("expected empty structural tier in summary")
	}
	if summary[dimension.TierCore].Count != 2 {
		t.Errorf("expected 2 core dimensions, got %d", summary[dimension.TierCore].Count)
	}
}

func TestClear(t *testing.T) {
	r := dimension.NewRegistry()
	_ = r.Register(dimensiontest.New("a", dimension.TierCore, 10, 50))
	r.Clear()

	if r.Len() != 0 || len(r.All()) != 0 {
		t.Error("expected empty registry after Clear")
	}
	names, _ := r.ByTier(dimension.TierCore)
	if len(names) != 0 {
		t.Error("expected tier index cleared")
	}
	if err := r.Register(dimensiontest.New("A", dimension.TierCore, 10, 50)); err != nil {
		t.Errorf("re-register after clear: %v", err)
	}
}

func TestParseTierAndRating(t *testing.T) {
	tier, err := dimension.ParseTier(" core ")
	if err != nil || tier != dimension.TierCore {
		t.Errorf("expected CORE, got %s (%v)", tier, err)
	}
	if _, err := dimension.ParseTier("unknown"); err == nil {
		t.Error("UNKNOWN is not a registrable tier")
	}

	bands := dimension.DefaultBands()
	tests := []struct {
		score float64
		want  string
	}{
		{0, "low"},
		{39.9, "low"},
		{40, "medium"},
		{69, "medium"},
		{70, "high"},
		{100, "high"},
	}
	for _, tt := range tests {
		if got := dimension.Rating(bands, tt.score); got != tt.want {
			t.Errorf("Rating(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
