package sampler

import (
	"sync"
	"time"

	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/platform"
)

// drainWindow is how much level history feeds the drain-rate fit.
const drainWindow = time.Hour

type batteryReading struct {
	at       time.Time
	level    float64
	charging bool
}

// BatterySampler wraps the platform battery facility and estimates the
// drain rate from recent level history.
type BatterySampler struct {
	platform platform.Platform

	mu      sync.Mutex
	history *Ring[batteryReading]
}

// NewBatterySampler creates a sampler keeping the last capacity readings.
func NewBatterySampler(p platform.Platform, capacity int) *BatterySampler {
	return &BatterySampler{platform: p, history: NewRing[batteryReading](capacity)}
}

// Sample reads the battery. A failing platform yields an unknown level
// rather than an error; absence of a battery is not a fault.
func (s *BatterySampler) Sample(at time.Time) (level float64, charging bool) {
	info, err := s.platform.Battery()
	if err != nil {
		return models.UnknownBatteryLevel, false
	}
	s.mu.Lock()
	s.history.Push(batteryReading{at: at, level: info.Level, charging: info.Charging})
	s.mu.Unlock()
	return info.Level, info.Charging
}

// DrainRatePerHour estimates battery loss in percent per hour via a least
// squares fit over the last hour of readings. Positive values mean the
// battery is draining. Requires at least two readings.
func (s *BatterySampler) DrainRatePerHour(now time.Time) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-drainWindow)
	var xs, ys []float64
	for i := 0; i < s.history.Len(); i++ {
		r := s.history.At(i)
		if r.at.Before(cutoff) {
			continue
		}
		xs = append(xs, r.at.Sub(cutoff).Hours())
		ys = append(ys, r.level*100)
	}
	if len(xs) < 2 {
		return 0, false
	}

	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	slope := (n*sumXY - sumX*sumY) / denom
	return -slope, true
}
