package trend

import (
	"math"
	"testing"
	"time"
)

func points(start time.Time, step time.Duration, values ...float64) []Point {
	out := make([]Point, len(values))
	for i, v := range values {
		out[i] = Point{At: start.Add(time.Duration(i) * step), Value: v}
	}
	return out
}

func TestAnalyzeTooFewSamples(t *testing.T) {
	res := Analyze(points(time.Now(), time.Second, 1, 2))
	if res.Direction != DirectionStable {
		t.Fatalf("expected stable for short series, got %s", res.Direction)
	}
	if res.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %.2f", res.Confidence)
	}
}

func TestAnalyzeDetectsGrowth(t *testing.T) {
	start := time.Now()
	// +10 per hour = +240 per day, well past the dead zone.
	res := Analyze(points(start, time.Hour, 100, 110, 120, 130, 140))

	if res.Direction != DirectionImproving {
		t.Fatalf("expected improving, got %s", res.Direction)
	}
	if math.Abs(res.SlopePerDay-240) > 1e-6 {
		t.Fatalf("expected slope 240/day, got %.4f", res.SlopePerDay)
	}
	if res.Confidence < 0.999 {
		t.Fatalf("perfectly linear series should have confidence ~1, got %.4f", res.Confidence)
	}
	if res.Significance != SignificanceHigh {
		t.Fatalf("expected high significance, got %s", res.Significance)
	}
}

func TestAnalyzeDeclining(t *testing.T) {
	res := Analyze(points(time.Now(), time.Hour, 60, 55, 50, 45))
	if res.Direction != DirectionDeclining {
		t.Fatalf("expected declining, got %s", res.Direction)
	}
}

func TestAnalyzeDeadZone(t *testing.T) {
	start := time.Now()
	// +0.02 per day: inside the 0.1/day dead zone.
	samples := []Point{
		{At: start, Value: 100},
		{At: start.Add(24 * time.Hour), Value: 100.02},
		{At: start.Add(48 * time.Hour), Value: 100.04},
	}
	res := Analyze(samples)
	if res.Direction != DirectionStable {
		t.Fatalf("slope inside dead zone must be stable, got %s (slope %.4f)", res.Direction, res.SlopePerDay)
	}
}

func TestAnalyzeFlatSeriesZeroConfidence(t *testing.T) {
	res := Analyze(points(time.Now(), time.Minute, 50, 50, 50, 50))
	if res.Direction != DirectionStable {
		t.Fatalf("expected stable, got %s", res.Direction)
	}
	if res.Confidence != 0 {
		t.Fatalf("flat series carries no correlation evidence, got confidence %.4f", res.Confidence)
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	samples := points(time.Now(), time.Minute, 10, 12, 11, 14, 13, 16)
	first := Analyze(samples)
	for i := 0; i < 5; i++ {
		if got := Analyze(samples); got != first {
			t.Fatalf("run %d diverged: %+v vs %+v", i, got, first)
		}
	}
}

func TestDetectLeaksSustainedGrowth(t *testing.T) {
	start := time.Now()
	// +1 MB every 30-second sample, perfectly linear over ten minutes.
	samples := make([]Point, 20)
	for i := range samples {
		samples[i] = Point{At: start.Add(time.Duration(i) * 30 * time.Second), Value: 100 + float64(i)}
	}

	report := DetectLeaks(samples)
	if !report.HasLeaks {
		t.Fatalf("expected leak for 1MB per sample growth: %+v", report)
	}
	if math.Abs(report.SlopeMBps-1.0/30) > 1e-6 {
		t.Fatalf("expected slope 1/30 MB/s, got %.4f", report.SlopeMBps)
	}
	if report.Confidence <= 70 {
		t.Fatalf("expected confidence above 70, got %.2f", report.Confidence)
	}
}

func TestDetectLeaksFastCadence(t *testing.T) {
	start := time.Now()
	// Same per-sample growth at a one-second cadence must also trip.
	samples := make([]Point, 20)
	for i := range samples {
		samples[i] = Point{At: start.Add(time.Duration(i) * time.Second), Value: 100 + float64(i)}
	}
	if report := DetectLeaks(samples); !report.HasLeaks {
		t.Fatalf("expected leak for 1MB/s growth: %+v", report)
	}
}

func TestDetectLeaksFlatMemory(t *testing.T) {
	report := DetectLeaks(points(time.Now(), time.Second, 200, 200, 200, 200, 200))
	if report.HasLeaks {
		t.Fatalf("flat memory flagged as leak: %+v", report)
	}
}

func TestDetectLeaksSlowGrowthBelowThreshold(t *testing.T) {
	start := time.Now()
	// +0.05 MB per 30-second sample: linear and confident, but the
	// per-sample growth stays under the gate.
	samples := make([]Point, 20)
	for i := range samples {
		samples[i] = Point{At: start.Add(time.Duration(i) * 30 * time.Second), Value: 100 + 0.05*float64(i)}
	}
	if report := DetectLeaks(samples); report.HasLeaks {
		t.Fatalf("growth below 0.1 MB per sample flagged as leak: %+v", report)
	}
}
