package sampler

import (
	"math"
	"testing"
	"time"

	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/platform"
)

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	if r.Len() != 3 {
		t.Fatalf("len %d", r.Len())
	}
	got := r.Slice()
	want := []int{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slice %v, want %v", got, want)
		}
	}
	if last, ok := r.Last(); !ok || last != 5 {
		t.Fatalf("last=%d ok=%v", last, ok)
	}
}

func TestFrameSamplerInstantAndWindow(t *testing.T) {
	s := NewFrameSampler(120)
	base := time.Now()

	if _, _, ok := s.Instant(); ok {
		t.Fatal("instant before any frame")
	}
	s.RecordFrame(base)
	if _, _, ok := s.Instant(); ok {
		t.Fatal("first frame should only set the time base")
	}

	s.RecordFrame(base.Add(10 * time.Millisecond))
	s.RecordFrame(base.Add(30 * time.Millisecond))

	fps, frameMs, ok := s.Instant()
	if !ok || fps != 50 || frameMs != 20 {
		t.Fatalf("instant fps=%.1f frame=%.1f ok=%v", fps, frameMs, ok)
	}
	// Window averages per-frame FPS: (100 + 50) / 2.
	avg, ok := s.WindowAverage()
	if !ok || avg != 75 {
		t.Fatalf("window avg %.1f", avg)
	}
}

func TestFrameSamplerIgnoresNonMonotonicFrames(t *testing.T) {
	s := NewFrameSampler(120)
	base := time.Now()
	s.RecordFrame(base)
	s.RecordFrame(base) // zero delta
	if _, _, ok := s.Instant(); ok {
		t.Fatal("zero-delta frame produced a reading")
	}
}

func TestGPUUtilizationCapsAtFull(t *testing.T) {
	s := NewGPUSampler(60)
	if _, ok := s.Utilization(); ok {
		t.Fatal("utilization without readings")
	}

	s.RecordRenderTime(8.335) // half of the 16.67ms budget
	util, ok := s.Utilization()
	if !ok || math.Abs(util-50) > 0.1 {
		t.Fatalf("expected ~50%%, got %.2f", util)
	}

	s = NewGPUSampler(60)
	s.RecordRenderTime(100)
	if util, _ = s.Utilization(); util != 100 {
		t.Fatalf("utilization must cap at 100, got %.1f", util)
	}

	s.RecordRenderTime(-5)
	if avg, _ := s.AvgRenderTime(); avg != 100 {
		t.Fatalf("negative reading recorded: avg %.1f", avg)
	}
}

func TestThermalTiers(t *testing.T) {
	cases := []struct {
		name     string
		fps      float64
		want     models.ThermalState
		wantLoss float64
	}{
		{"steady", 60, models.ThermalNormal, 0},
		{"fair", 52, models.ThermalFair, 0.13},
		{"serious", 46, models.ThermalSerious, 0.23},
		{"critical", 40, models.ThermalCritical, 0.33},
	}
	for _, tc := range cases {
		s := NewThermalSampler(120)
		base := time.Now()
		// Establish a 60 FPS baseline inside the learning window.
		s.Observe(60, base)
		// Degraded readings arrive after the window closes, filling the
		// ring so the rolling average converges on the degraded rate.
		for i := 0; i < 200; i++ {
			s.Observe(tc.fps, base.Add(baselineWindow+time.Duration(i+1)*time.Second))
		}
		if got := s.State(); got != tc.want {
			t.Fatalf("%s: state %s, want %s", tc.name, got, tc.want)
		}
		if loss := s.PerformanceReduction(); math.Abs(loss-tc.wantLoss) > 0.01 {
			t.Fatalf("%s: reduction %.3f, want %.3f", tc.name, loss, tc.wantLoss)
		}
	}
}

func TestThermalBaselineStopsRising(t *testing.T) {
	s := NewThermalSampler(120)
	base := time.Now()
	s.Observe(60, base)
	// A higher reading after the learning window must not raise the baseline.
	s.Observe(120, base.Add(baselineWindow+time.Minute))
	for i := 0; i < 200; i++ {
		s.Observe(60, base.Add(baselineWindow+time.Minute+time.Duration(i+1)*time.Second))
	}
	if got := s.State(); got != models.ThermalNormal {
		t.Fatalf("late spike corrupted the baseline: %s", got)
	}
}

type batteryPlatform struct {
	platform.Platform
	level    float64
	charging bool
	err      error
}

func (p *batteryPlatform) Battery() (platform.BatteryInfo, error) {
	return platform.BatteryInfo{Level: p.level, Charging: p.charging}, p.err
}

func TestBatterySamplerUnknownOnFailure(t *testing.T) {
	p := &batteryPlatform{err: platform.ErrUnavailable}
	s := NewBatterySampler(p, 60)
	level, _ := s.Sample(time.Now())
	if level != models.UnknownBatteryLevel {
		t.Fatalf("expected unknown level, got %.2f", level)
	}
}

func TestBatteryDrainRate(t *testing.T) {
	p := &batteryPlatform{level: 1.0}
	s := NewBatterySampler(p, 120)
	base := time.Now()

	// 1% drop per minute: 60%/hour drain.
	for i := 0; i < 10; i++ {
		p.level = 1.0 - float64(i)*0.01
		s.Sample(base.Add(time.Duration(i) * time.Minute))
	}
	rate, ok := s.DrainRatePerHour(base.Add(9 * time.Minute))
	if !ok {
		t.Fatal("drain rate unavailable")
	}
	if math.Abs(rate-60) > 0.5 {
		t.Fatalf("drain rate %.2f%%/h, want ~60", rate)
	}
}

func TestBatteryDrainRequiresTwoReadings(t *testing.T) {
	p := &batteryPlatform{level: 0.5}
	s := NewBatterySampler(p, 60)
	s.Sample(time.Now())
	if _, ok := s.DrainRatePerHour(time.Now()); ok {
		t.Fatal("single reading produced a drain rate")
	}
}

func TestNetworkLatencyPrefersRTT(t *testing.T) {
	s := NewNetworkSampler(60)
	if _, ok := s.Latency(); ok {
		t.Fatal("latency without entries")
	}

	s.Record(TimingEntry{RTTMs: 40})
	s.Record(TimingEntry{DNSMs: 10, ConnectMs: 20, TLSMs: 15, DownloadMs: 15}) // total 60
	lat, ok := s.Latency()
	if !ok || lat != 50 {
		t.Fatalf("latency %.1f, want 50", lat)
	}

	dns, connect, tls, download, ok := s.Phases()
	if !ok || dns != 5 || connect != 10 || tls != 7.5 || download != 7.5 {
		t.Fatalf("phases %v %v %v %v", dns, connect, tls, download)
	}
}

func TestNetworkDiscardsEmptyEntries(t *testing.T) {
	s := NewNetworkSampler(60)
	s.Record(TimingEntry{})
	if _, ok := s.Latency(); ok {
		t.Fatal("empty entry recorded")
	}
}

func TestInteractionLatencyStats(t *testing.T) {
	s := NewInteractionSampler(120)
	if _, ok := s.AvgLatencyMs(); ok {
		t.Fatal("average without samples")
	}

	s.RecordInput(10 * time.Millisecond)
	s.RecordInput(20 * time.Millisecond)
	s.RecordInput(30 * time.Millisecond)
	s.RecordInput(-time.Millisecond) // ignored

	avg, ok := s.AvgLatencyMs()
	if !ok || avg != 20 {
		t.Fatalf("avg %.1f, want 20", avg)
	}
	if p95 := s.P95LatencyMs(); p95 < 20 || p95 > 30 {
		t.Fatalf("p95 %.1f out of range", p95)
	}
}
