package conflict

import (
	"testing"
	"time"

	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/utils"
)

func profileWithMemory(id string, memMB float64) models.ModuleProfile {
	return models.ModuleProfile{
		ModuleID: id,
		Rollup:   models.MetricRollup{AvgMemoryMB: memMB, SampleCount: 10},
	}
}

func TestDetectRequiresTwoModules(t *testing.T) {
	d := NewDetector(utils.NewManualClock(time.Now()), nil)
	conflicts := d.Detect([]models.ModuleProfile{profileWithMemory("solo", 900)})
	if conflicts != nil {
		t.Fatalf("single module produced conflicts: %v", conflicts)
	}
}

func TestMemoryConflictSeverities(t *testing.T) {
	d := NewDetector(utils.NewManualClock(time.Now()), nil)

	cases := []struct {
		name     string
		perMod   float64
		severity models.Severity
	}{
		{"medium over budget", 200, models.SeverityMedium},     // 600MB total
		{"high over budget", 230, models.SeverityHigh},         // 690MB total
		{"critical over budget", 300, models.SeverityCritical}, // 900MB total
	}
	for _, tc := range cases {
		active := []models.ModuleProfile{
			profileWithMemory("a", tc.perMod),
			profileWithMemory("b", tc.perMod),
			profileWithMemory("c", tc.perMod),
		}
		conflicts := d.Detect(active)
		if len(conflicts) != 1 {
			t.Fatalf("%s: expected exactly 1 conflict, got %d", tc.name, len(conflicts))
		}
		c := conflicts[0]
		if c.Type != models.ConflictMemory {
			t.Fatalf("%s: expected memory conflict, got %s", tc.name, c.Type)
		}
		if c.Severity != tc.severity {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.severity, c.Severity)
		}
		if len(c.InvolvedModules) != 3 {
			t.Fatalf("%s: expected 3 involved modules, got %v", tc.name, c.InvolvedModules)
		}
		if len(c.Resolutions) == 0 {
			t.Fatalf("%s: conflict without resolutions", tc.name)
		}
		if c.ID == "" {
			t.Fatalf("%s: conflict without id", tc.name)
		}
	}
}

func TestMemoryConflictFromManyHeavyModules(t *testing.T) {
	d := NewDetector(utils.NewManualClock(time.Now()), nil)
	// Under the 500MB total budget, but three modules each above 100MB.
	active := []models.ModuleProfile{
		profileWithMemory("a", 120),
		profileWithMemory("b", 130),
		profileWithMemory("c", 140),
	}
	conflicts := d.Detect(active)
	if len(conflicts) != 1 || conflicts[0].Type != models.ConflictMemory {
		t.Fatalf("expected heavy-module memory conflict, got %v", conflicts)
	}
}

func TestNoConflictUnderBudget(t *testing.T) {
	d := NewDetector(utils.NewManualClock(time.Now()), nil)
	active := []models.ModuleProfile{
		profileWithMemory("a", 120),
		profileWithMemory("b", 130),
	}
	if conflicts := d.Detect(active); len(conflicts) != 0 {
		t.Fatalf("two heavy modules under budget flagged: %v", conflicts)
	}
}

func TestGPUConflictOnCombinedResources(t *testing.T) {
	d := NewDetector(utils.NewManualClock(time.Now()), nil)
	active := []models.ModuleProfile{
		{ModuleID: "a", Resources: models.ResourceUsage{ShaderCount: 12, TextureCount: 10}},
		{ModuleID: "b", Resources: models.ResourceUsage{ShaderCount: 11, TextureCount: 10}},
	}
	conflicts := d.Detect(active)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].Type != models.ConflictGPU || conflicts[0].Severity != models.SeverityHigh {
		t.Fatalf("unexpected conflict: %+v", conflicts[0])
	}
}

func TestCPUConflictSeverities(t *testing.T) {
	d := NewDetector(utils.NewManualClock(time.Now()), nil)

	medium := d.Detect([]models.ModuleProfile{
		{ModuleID: "a", Resources: models.ResourceUsage{CPUPct: 45}},
		{ModuleID: "b", Resources: models.ResourceUsage{CPUPct: 40}},
	})
	if len(medium) != 1 || medium[0].Type != models.ConflictCPU || medium[0].Severity != models.SeverityMedium {
		t.Fatalf("expected medium cpu conflict, got %v", medium)
	}

	high := d.Detect([]models.ModuleProfile{
		{ModuleID: "a", Resources: models.ResourceUsage{CPUPct: 60}},
		{ModuleID: "b", Resources: models.ResourceUsage{CPUPct: 40}},
	})
	if len(high) != 1 || high[0].Severity != models.SeverityHigh {
		t.Fatalf("expected high cpu conflict, got %v", high)
	}
}

func TestIndependentConflictsReportedTogether(t *testing.T) {
	d := NewDetector(utils.NewManualClock(time.Now()), nil)
	active := []models.ModuleProfile{
		{
			ModuleID:  "a",
			Rollup:    models.MetricRollup{AvgMemoryMB: 400},
			Resources: models.ResourceUsage{ShaderCount: 15, CPUPct: 50},
		},
		{
			ModuleID:  "b",
			Rollup:    models.MetricRollup{AvgMemoryMB: 350},
			Resources: models.ResourceUsage{ShaderCount: 10, CPUPct: 45},
		},
	}
	conflicts := d.Detect(active)
	if len(conflicts) != 3 {
		t.Fatalf("expected memory+gpu+cpu conflicts, got %d: %v", len(conflicts), conflicts)
	}
}
