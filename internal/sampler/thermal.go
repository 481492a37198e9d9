package sampler

import (
	"sync"
	"time"

	"github.com/vizstack/rendertune/internal/models"
)

// Thermal degradation tiers, expressed as fractional FPS loss against the
// session baseline. Empirically chosen defaults; tunable via config.
const (
	fairDegradation     = 0.10
	seriousDegradation  = 0.20
	criticalDegradation = 0.30
)

// baselineWindow is how long the sampler keeps raising its FPS baseline
// after the first observation.
const baselineWindow = 10 * time.Second

// ThermalSampler infers throttling without sensor access: the highest FPS
// seen early in the session becomes the baseline, and sustained degradation
// of the rolling average against it maps onto thermal tiers.
type ThermalSampler struct {
	mu          sync.Mutex
	recent      *Ring[float64]
	baseline    float64
	firstSample time.Time
}

// NewThermalSampler creates a sampler averaging the last capacity readings.
func NewThermalSampler(capacity int) *ThermalSampler {
	return &ThermalSampler{recent: NewRing[float64](capacity)}
}

// Observe feeds one FPS reading taken at the given instant.
func (s *ThermalSampler) Observe(fps float64, at time.Time) {
	if fps <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstSample.IsZero() {
		s.firstSample = at
	}
	if fps > s.baseline && at.Sub(s.firstSample) <= baselineWindow {
		s.baseline = fps
	}
	s.recent.Push(fps)
}

// State classifies current thermal pressure.
func (s *ThermalSampler) State() models.ThermalState {
	reduction := s.PerformanceReduction()
	switch {
	case reduction >= criticalDegradation:
		return models.ThermalCritical
	case reduction >= seriousDegradation:
		return models.ThermalSerious
	case reduction >= fairDegradation:
		return models.ThermalFair
	default:
		return models.ThermalNormal
	}
}

// PerformanceReduction returns the fractional FPS loss against the session
// baseline, in [0,1]. Zero until a baseline exists.
func (s *ThermalSampler) PerformanceReduction() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseline <= 0 || s.recent.Len() == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < s.recent.Len(); i++ {
		total += s.recent.At(i)
	}
	avg := total / float64(s.recent.Len())
	reduction := (s.baseline - avg) / s.baseline
	if reduction < 0 {
		return 0
	}
	if reduction > 1 {
		return 1
	}
	return reduction
}
