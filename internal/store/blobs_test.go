package store

import (
	"context"
	"testing"
	"time"

	"github.com/vizstack/rendertune/internal/models"
)

func TestProfilesRoundTrip(t *testing.T) {
	b := NewBlobs(NewMemoryProvider(), nil)
	ctx := context.Background()

	in := []models.ModuleProfile{
		{ModuleID: "starfield", FirstSeen: time.Now().UTC().Truncate(time.Second), PerformanceScore: 87},
		{ModuleID: "particles", PerformanceScore: 42},
	}
	if err := b.SaveProfiles(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out := b.LoadProfiles(ctx)
	if len(out) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(out))
	}
	if out[0].ModuleID != "starfield" || out[0].PerformanceScore != 87 {
		t.Fatalf("profile round trip lost data: %+v", out[0])
	}
}

func TestLoadProfilesAbsentIsNil(t *testing.T) {
	b := NewBlobs(NewMemoryProvider(), nil)
	if got := b.LoadProfiles(context.Background()); got != nil {
		t.Fatalf("expected nil for an empty store, got %v", got)
	}
}

func TestLoadProfilesCorruptIsNil(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()
	if err := provider.Set(ctx, KeyProfiles, []byte("{not json")); err != nil {
		t.Fatalf("seed corrupt blob: %v", err)
	}

	b := NewBlobs(provider, nil)
	if got := b.LoadProfiles(ctx); got != nil {
		t.Fatalf("corrupt blob must load as nil, got %v", got)
	}
}

func TestAlertConfigRoundTrip(t *testing.T) {
	b := NewBlobs(NewMemoryProvider(), nil)
	ctx := context.Background()

	in := []models.AlertRule{{ID: "low-fps", Name: "Low FPS", Enabled: true}}
	if err := b.SaveAlertConfig(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out := b.LoadAlertConfig(ctx)
	if len(out) != 1 || out[0].ID != "low-fps" || !out[0].Enabled {
		t.Fatalf("rule round trip lost data: %+v", out)
	}
}

func TestNoopProviderNeverStores(t *testing.T) {
	b := NewBlobs(NoopProvider{}, nil)
	ctx := context.Background()

	if err := b.SaveProfiles(ctx, []models.ModuleProfile{{ModuleID: "x"}}); err != nil {
		t.Fatalf("noop save errored: %v", err)
	}
	if got := b.LoadProfiles(ctx); got != nil {
		t.Fatalf("noop provider returned data: %v", got)
	}
}

func TestMemoryProviderDelete(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	if err := p.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := p.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := p.Get(ctx, "k"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
