package aggregator

import (
	"testing"
	"time"

	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/platform"
	"github.com/vizstack/rendertune/internal/sampler"
	"github.com/vizstack/rendertune/internal/utils"
)

type fakePlatform struct {
	memory       platform.MemoryInfo
	memErr       error
	battery      platform.BatteryInfo
	hasBattery   bool
	batteryCalls int
}

func (f *fakePlatform) GPU() (platform.GPUInfo, error) {
	return platform.GPUInfo{}, platform.ErrUnavailable
}
func (f *fakePlatform) Memory() (platform.MemoryInfo, error) { return f.memory, f.memErr }
func (f *fakePlatform) Battery() (platform.BatteryInfo, error) {
	f.batteryCalls++
	if !f.hasBattery {
		return platform.BatteryInfo{}, platform.ErrUnavailable
	}
	return f.battery, nil
}
func (f *fakePlatform) Network() (platform.NetworkInfo, error) {
	return platform.NetworkInfo{}, platform.ErrUnavailable
}
func (f *fakePlatform) Preferences() (platform.PreferenceInfo, error) {
	return platform.PreferenceInfo{}, platform.ErrUnavailable
}
func (f *fakePlatform) LogicalCores() int { return 8 }
func (f *fakePlatform) Mobile() bool      { return false }

var allMonitoring = Monitoring{Battery: true, Thermal: true}

func newSamplers(p platform.Platform) Samplers {
	return Samplers{
		Frame:       sampler.NewFrameSampler(120),
		GPU:         sampler.NewGPUSampler(120),
		Thermal:     sampler.NewThermalSampler(120),
		Battery:     sampler.NewBatterySampler(p, 120),
		Network:     sampler.NewNetworkSampler(120),
		Interaction: sampler.NewInteractionSampler(120),
	}
}

func TestTickMergesSamplerReadings(t *testing.T) {
	clock := utils.NewManualClock(time.Now())
	p := &fakePlatform{memory: platform.MemoryInfo{UsedMB: 250}}
	s := newSamplers(p)
	a := New(s, p, clock, 10, nil)

	// Two frames 20ms apart: 50 FPS.
	at := clock.Now()
	s.Frame.RecordFrame(at)
	s.Frame.RecordFrame(at.Add(20 * time.Millisecond))
	s.GPU.RecordRenderTime(8)

	snap := a.Tick(allMonitoring)
	if snap.FPS != 50 {
		t.Fatalf("expected 50 fps, got %.1f", snap.FPS)
	}
	if snap.MemoryUsedMB != 250 {
		t.Fatalf("expected 250MB, got %.1f", snap.MemoryUsedMB)
	}
	if snap.RenderTimeMs != 8 {
		t.Fatalf("expected 8ms render time, got %.1f", snap.RenderTimeMs)
	}
	if snap.BatteryLevel != models.UnknownBatteryLevel {
		t.Fatalf("battery unreadable should report unknown, got %.2f", snap.BatteryLevel)
	}
	if !snap.Valid() {
		t.Fatalf("merged snapshot invalid: %+v", snap)
	}
}

func TestTickCarriesForwardStaleFields(t *testing.T) {
	clock := utils.NewManualClock(time.Now())
	p := &fakePlatform{memory: platform.MemoryInfo{UsedMB: 100}}
	s := newSamplers(p)
	a := New(s, p, clock, 10, nil)

	at := clock.Now()
	s.Frame.RecordFrame(at)
	s.Frame.RecordFrame(at.Add(20 * time.Millisecond))
	first := a.Tick(allMonitoring)

	// Memory probing breaks; the previous reading must carry forward.
	p.memErr = platform.ErrUnavailable
	clock.Advance(time.Second)
	second := a.Tick(allMonitoring)
	if second.MemoryUsedMB != first.MemoryUsedMB {
		t.Fatalf("stale memory not carried forward: %.1f vs %.1f", second.MemoryUsedMB, first.MemoryUsedMB)
	}
}

func TestHistoryFiltersByModule(t *testing.T) {
	clock := utils.NewManualClock(time.Now())
	p := &fakePlatform{memory: platform.MemoryInfo{UsedMB: 100}}
	a := New(newSamplers(p), p, clock, 10, nil)

	a.SetActiveModule("particles")
	a.Tick(allMonitoring)
	clock.Advance(time.Second)
	a.SetActiveModule("")
	a.Tick(allMonitoring)

	all := a.History("")
	if len(all) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(all))
	}
	tagged := a.History("particles")
	if len(tagged) != 1 || tagged[0].ModuleID != "particles" {
		t.Fatalf("module filter wrong: %+v", tagged)
	}
}

func TestMemoryEfficiencyBounds(t *testing.T) {
	if got := memoryEfficiency(60, 0); got != 0 {
		t.Fatalf("zero memory should score 0, got %.1f", got)
	}
	if got := memoryEfficiency(60, 6); got != 100 {
		t.Fatalf("score must cap at 100, got %.1f", got)
	}
	if got := memoryEfficiency(60, 120); got != 5 {
		t.Fatalf("expected 5, got %.1f", got)
	}
}

func TestPerceivedPerformanceBlend(t *testing.T) {
	clock := utils.NewManualClock(time.Now())
	p := &fakePlatform{memory: platform.MemoryInfo{UsedMB: 100}}
	s := newSamplers(p)
	a := New(s, p, clock, 10, nil)

	// 60 FPS steady: fps term 100, no thermal pressure, no input latency.
	at := clock.Now()
	for i := 0; i <= 10; i++ {
		s.Frame.RecordFrame(at.Add(time.Duration(i) * 16667 * time.Microsecond))
	}
	snap := a.Tick(allMonitoring)
	if snap.PerformanceScore < 99 || snap.PerformanceScore > 100 {
		t.Fatalf("healthy session should score ~100, got %.0f", snap.PerformanceScore)
	}
}

func TestDisabledBatteryMonitoringSkipsPolling(t *testing.T) {
	clock := utils.NewManualClock(time.Now())
	p := &fakePlatform{
		memory:     platform.MemoryInfo{UsedMB: 100},
		battery:    platform.BatteryInfo{Level: 0.9},
		hasBattery: true,
	}
	a := New(newSamplers(p), p, clock, 10, nil)

	for i := 0; i < 3; i++ {
		snap := a.Tick(Monitoring{Thermal: true})
		if snap.BatteryLevel != models.UnknownBatteryLevel {
			t.Fatalf("disabled battery monitoring leaked a level: %.2f", snap.BatteryLevel)
		}
		clock.Advance(time.Second)
	}
	if p.batteryCalls != 0 {
		t.Fatalf("battery polled %d times while disabled", p.batteryCalls)
	}

	snap := a.Tick(allMonitoring)
	if p.batteryCalls != 1 {
		t.Fatalf("expected one battery poll after enabling, got %d", p.batteryCalls)
	}
	if snap.BatteryLevel != 0.9 {
		t.Fatalf("expected battery level 0.9, got %.2f", snap.BatteryLevel)
	}
}

func TestDisabledThermalMonitoringIgnoresPressure(t *testing.T) {
	clock := utils.NewManualClock(time.Now())
	p := &fakePlatform{memory: platform.MemoryInfo{UsedMB: 100}}
	s := newSamplers(p)
	a := New(s, p, clock, 10, nil)

	// Feed the sampler a session that collapsed from 60 to 36 FPS; it
	// would classify this as critical pressure if consulted.
	at := clock.Now()
	s.Thermal.Observe(60, at)
	for i := 0; i < 29; i++ {
		s.Thermal.Observe(36, at.Add(time.Duration(i)*time.Second))
	}

	snap := a.Tick(Monitoring{})
	if snap.ThermalState != models.ThermalNormal {
		t.Fatalf("disabled thermal monitoring reported %s", snap.ThermalState)
	}
	if snap.PerformanceScore != 50 {
		t.Fatalf("thermal term must be neutral while disabled, score %.0f", snap.PerformanceScore)
	}

	clock.Advance(time.Second)
	degraded := a.Tick(Monitoring{Thermal: true})
	if degraded.ThermalState == models.ThermalNormal {
		t.Fatal("enabled thermal monitoring should surface the degradation")
	}
	if degraded.PerformanceScore >= snap.PerformanceScore {
		t.Fatalf("thermal pressure should lower the score: %.0f vs %.0f",
			degraded.PerformanceScore, snap.PerformanceScore)
	}
}

func TestInvalidSnapshotDropped(t *testing.T) {
	clock := utils.NewManualClock(time.Now())
	p := &fakePlatform{memory: platform.MemoryInfo{UsedMB: 100}}
	a := New(newSamplers(p), p, clock, 10, nil)

	first := a.Tick(allMonitoring)

	// A negative memory reading fails validation; the previous snapshot
	// is returned and the drop is counted.
	p.memory = platform.MemoryInfo{UsedMB: -5}
	clock.Advance(time.Second)
	second := a.Tick(allMonitoring)

	if second.Timestamp != first.Timestamp {
		t.Fatalf("invalid tick must return the previous snapshot: %+v", second)
	}
	if a.Dropped() != 1 {
		t.Fatalf("expected 1 dropped snapshot, got %d", a.Dropped())
	}
	if got := len(a.History("")); got != 1 {
		t.Fatalf("dropped snapshot must not enter history, got %d entries", got)
	}
}

func TestLowFPSGeneratesRecommendation(t *testing.T) {
	snap := models.Snapshot{ComputedFPS: 20, BatteryLevel: models.UnknownBatteryLevel}
	recs := recommendationsFor(snap)
	if len(recs) == 0 {
		t.Fatal("low fps should recommend reducing quality")
	}
}
