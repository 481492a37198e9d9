package sampler

import "sync"

// targetFrameMs is the 60 FPS frame budget the utilization proxy is
// measured against.
const targetFrameMs = 16.67

// GPUSampler estimates GPU load from render times. The utilization figure
// is a render-time-vs-budget heuristic, not a true occupancy measurement:
// the host exposes no GPU counters, so time spent producing a frame stands
// in for how busy the GPU is.
type GPUSampler struct {
	mu       sync.Mutex
	renderMs *Ring[float64]
}

// NewGPUSampler creates a sampler keeping the last capacity render times.
func NewGPUSampler(capacity int) *GPUSampler {
	return &GPUSampler{renderMs: NewRing[float64](capacity)}
}

// RecordRenderTime notes one frame's render duration in milliseconds.
// Negative readings are discarded.
func (s *GPUSampler) RecordRenderTime(ms float64) {
	if ms < 0 {
		return
	}
	s.mu.Lock()
	s.renderMs.Push(ms)
	s.mu.Unlock()
}

// Utilization returns the estimated GPU utilization percentage in [0,100].
func (s *GPUSampler) Utilization() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.renderMs.Len()
	if n == 0 {
		return 0, false
	}
	total := 0.0
	for i := 0; i < n; i++ {
		total += s.renderMs.At(i)
	}
	avg := total / float64(n)
	util := 100 * avg / targetFrameMs
	if util > 100 {
		util = 100
	}
	return util, true
}

// AvgRenderTime returns the mean render time in milliseconds.
func (s *GPUSampler) AvgRenderTime() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.renderMs.Len()
	if n == 0 {
		return 0, false
	}
	total := 0.0
	for i := 0; i < n; i++ {
		total += s.renderMs.At(i)
	}
	return total / float64(n), true
}
