package display

import (
	"testing"

	"github.com/gazekit/platform/internal/errors"
	"github.com/gazekit/platform/internal/geometry"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	info, err := r.Lookup("iphone-14-pro")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Profile.PixelsPerInch != 460 {
		t.Errorf("PixelsPerInch = %f, want 460", info.Profile.PixelsPerInch)
	}
	if info.Scale != 3 {
		t.Errorf("Scale = %f, want 3", info.Scale)
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("nokia-3310")
	if !errors.IsCode(err, errors.NotFound) {
		t.Errorf("want NotFound, got %v", err)
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	custom := Info{
		Model:   "test-device",
		Profile: geometry.DisplayProfile{PixelsPerInch: 300, WidthMeters: 0.07, HeightMeters: 0.15},
		Scale:   2,
	}
	if err := r.Register(custom); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := r.Lookup("test-device")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Profile.PixelsPerInch != 300 {
		t.Errorf("PixelsPerInch = %f, want 300", got.Profile.PixelsPerInch)
	}
}

func TestRegistryRegisterInvalid(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Info{Model: "bad", Scale: 2})
	if !errors.IsCode(err, errors.InvalidDisplayProfile) {
		t.Errorf("want InvalidDisplayProfile, got %v", err)
	}
	err = r.Register(Info{
		Profile: geometry.DisplayProfile{PixelsPerInch: 300, WidthMeters: 0.07, HeightMeters: 0.15},
		Scale:   2,
	})
	if !errors.IsCode(err, errors.InvalidArgument) {
		t.Errorf("want InvalidArgument for missing model, got %v", err)
	}
}

func TestRegistryModels(t *testing.T) {
	r := NewRegistry()
	models := r.Models()
	if len(models) < 4 {
		t.Fatalf("expected at least 4 known models, got %d", len(models))
	}
	for i := 1; i < len(models); i++ {
		if models[i-1] >= models[i] {
			t.Fatal("models should be sorted")
		}
	}
}

func TestStaticProvider(t *testing.T) {
	info := Info{
		Model:   "fixed",
		Profile: geometry.DisplayProfile{PixelsPerInch: 460, WidthMeters: 0.065, HeightMeters: 0.14},
		Scale:   3,
	}
	p, err := NewStaticProvider(info)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := p.Info()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Model != "fixed" {
		t.Errorf("Model = %q, want %q", got.Model, "fixed")
	}
}

func TestStaticProviderRejectsInvalid(t *testing.T) {
	_, err := NewStaticProvider(Info{Model: "bad"})
	if err == nil {
		t.Error("expected error for invalid info")
	}
}

func TestOrientationString(t *testing.T) {
	tests := []struct {
		o    Orientation
		want string
	}{
		{Portrait, "portrait"},
		{PortraitUpsideDown, "portrait-upside-down"},
		{LandscapeLeft, "landscape-left"},
		{LandscapeRight, "landscape-right"},
		{Orientation(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", int(tt.o), got, tt.want)
		}
	}
}
