package sampler

import (
	"time"

	"github.com/vizstack/rendertune/internal/utils"
)

// InteractionSampler tracks input-to-paint latency reported by the page
// layer. It reuses the shared latency tracker for percentile queries.
type InteractionSampler struct {
	tracker *utils.LatencyTracker
}

// NewInteractionSampler creates a sampler keeping up to capacity samples.
func NewInteractionSampler(capacity int) *InteractionSampler {
	return &InteractionSampler{tracker: utils.NewLatencyTracker(capacity)}
}

// RecordInput notes the latency of one handled input event.
func (s *InteractionSampler) RecordInput(d time.Duration) {
	if d < 0 {
		return
	}
	s.tracker.Observe(d)
}

// AvgLatencyMs returns the mean input latency in milliseconds.
func (s *InteractionSampler) AvgLatencyMs() (float64, bool) {
	if s.tracker.Count() == 0 {
		return 0, false
	}
	return float64(s.tracker.Average()) / float64(time.Millisecond), true
}

// P95LatencyMs returns the 95th percentile input latency in milliseconds.
func (s *InteractionSampler) P95LatencyMs() float64 {
	return float64(s.tracker.Percentile(95)) / float64(time.Millisecond)
}
