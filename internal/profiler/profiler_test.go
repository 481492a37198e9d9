package profiler

import (
	"testing"
	"time"

	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/utils"
)

func feed(p *Profiler, moduleID string, fps, memMB float64, n int) {
	for i := 0; i < n; i++ {
		p.RecordMetrics(moduleID, models.Snapshot{
			ComputedFPS:  fps,
			FrameTimeMs:  1000 / fps,
			MemoryUsedMB: memMB,
			BatteryLevel: models.UnknownBatteryLevel,
			Timestamp:    time.Now(),
		})
	}
}

func TestRollupAveragesAndPeaks(t *testing.T) {
	clock := utils.NewManualClock(time.Now())
	p := New(clock, nil)
	p.Register("particles", "background")

	p.RecordMetrics("particles", models.Snapshot{ComputedFPS: 30, MemoryUsedMB: 100, Timestamp: clock.Now()})
	p.RecordMetrics("particles", models.Snapshot{ComputedFPS: 60, MemoryUsedMB: 200, Timestamp: clock.Now()})

	profile, ok := p.Profile("particles")
	if !ok {
		t.Fatal("profile missing")
	}
	if profile.Rollup.AvgFPS != 45 {
		t.Fatalf("expected avg fps 45, got %.1f", profile.Rollup.AvgFPS)
	}
	if profile.Rollup.PeakFPS != 60 || profile.Rollup.PeakMemoryMB != 200 {
		t.Fatalf("peaks wrong: %+v", profile.Rollup)
	}
	if profile.Rollup.SampleCount != 2 {
		t.Fatalf("expected 2 samples, got %d", profile.Rollup.SampleCount)
	}
}

func TestRankingWithinCategory(t *testing.T) {
	p := New(utils.NewManualClock(time.Now()), nil)
	for _, id := range []string{"fast", "middle", "slow"} {
		p.Register(id, "background")
	}
	feed(p, "fast", 60, 100, 5)
	feed(p, "middle", 45, 150, 5)
	feed(p, "slow", 25, 300, 5)

	p.UpdateRelativePerformance()

	fast, _ := p.Profile("fast")
	middle, _ := p.Profile("middle")
	slow, _ := p.Profile("slow")

	if fast.Rank != 1 || slow.Rank != 3 {
		t.Fatalf("ranks wrong: fast=%d middle=%d slow=%d", fast.Rank, middle.Rank, slow.Rank)
	}
	// First on fps and memory, tied stability still yields first rank term.
	if fast.PerformanceScore != 100 {
		t.Fatalf("expected top score 100, got %.0f", fast.PerformanceScore)
	}
	if !(fast.PerformanceScore > middle.PerformanceScore && middle.PerformanceScore > slow.PerformanceScore) {
		t.Fatalf("scores not ordered: %.0f %.0f %.0f",
			fast.PerformanceScore, middle.PerformanceScore, slow.PerformanceScore)
	}
}

func TestStabilityIncidentsLowerRank(t *testing.T) {
	p := New(utils.NewManualClock(time.Now()), nil)
	p.Register("steady", "widgets")
	p.Register("crashy", "widgets")
	feed(p, "steady", 50, 100, 5)
	feed(p, "crashy", 50, 100, 5)

	p.RecordIncident("crashy", models.SeverityCritical)
	p.RecordIncident("crashy", models.SeverityHigh)
	p.RecordIncident("crashy", models.SeverityLow)

	p.UpdateRelativePerformance()

	steady, _ := p.Profile("steady")
	crashy, _ := p.Profile("crashy")
	if crashy.Stability.Crashes != 1 || crashy.Stability.Errors != 1 || crashy.Stability.Warnings != 1 {
		t.Fatalf("counters wrong: %+v", crashy.Stability)
	}
	if steady.PerformanceScore <= crashy.PerformanceScore {
		t.Fatalf("incidents must cost score: steady=%.0f crashy=%.0f",
			steady.PerformanceScore, crashy.PerformanceScore)
	}
}

func TestPeerComparisons(t *testing.T) {
	p := New(utils.NewManualClock(time.Now()), nil)
	p.Register("lean", "background")
	p.Register("hungry", "background")
	feed(p, "lean", 60, 100, 5)
	feed(p, "hungry", 30, 400, 5)

	p.UpdateRelativePerformance()

	lean, _ := p.Profile("lean")
	if len(lean.Comparisons) != 1 {
		t.Fatalf("expected 1 comparison, got %d", len(lean.Comparisons))
	}
	cmp := lean.Comparisons[0]
	if cmp.PeerID != "hungry" || cmp.Advantage != "this" {
		t.Fatalf("unexpected comparison: %+v", cmp)
	}
	if len(cmp.Reasoning) == 0 {
		t.Fatal("comparison should explain its advantage")
	}

	hungry, _ := p.Profile("hungry")
	if hungry.Comparisons[0].Advantage != "other" {
		t.Fatalf("reverse comparison wrong: %+v", hungry.Comparisons[0])
	}
}

func TestBaselineCapturedOnFirstDeactivate(t *testing.T) {
	p := New(utils.NewManualClock(time.Now()), nil)
	p.Activate("particles")
	feed(p, "particles", 60, 100, 3)
	p.Deactivate("particles")

	profile, _ := p.Profile("particles")
	if profile.Baseline.SampleCount != 3 {
		t.Fatalf("baseline not captured: %+v", profile.Baseline)
	}
	if profile.Active {
		t.Fatal("profile still active after deactivation")
	}

	// A later, worse session must not overwrite the baseline.
	p.Activate("particles")
	feed(p, "particles", 20, 300, 10)
	p.Deactivate("particles")

	profile, _ = p.Profile("particles")
	if profile.Baseline.SampleCount != 3 {
		t.Fatalf("baseline overwritten: %+v", profile.Baseline)
	}
}

func TestRestoreDropsActivity(t *testing.T) {
	p := New(utils.NewManualClock(time.Now()), nil)
	p.Restore([]models.ModuleProfile{{ModuleID: "particles", Category: "background", Active: true}})

	if got := p.ActiveProfiles(); len(got) != 0 {
		t.Fatalf("restored profiles must start inactive, got %d active", len(got))
	}
	if _, ok := p.Profile("particles"); !ok {
		t.Fatal("restored profile missing")
	}
}

func TestActiveProfilesFiltersInactive(t *testing.T) {
	p := New(utils.NewManualClock(time.Now()), nil)
	p.Activate("a")
	p.Activate("b")
	p.Deactivate("a")

	active := p.ActiveProfiles()
	if len(active) != 1 || active[0].ModuleID != "b" {
		t.Fatalf("unexpected active set: %+v", active)
	}
}
