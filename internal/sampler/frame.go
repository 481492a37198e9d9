package sampler

import (
	"sync"
	"time"
)

// fpsWindow is the number of frames averaged for the windowed FPS reading.
const fpsWindow = 60

type frameReading struct {
	at      time.Time
	deltaMs float64
	fps     float64
}

// FrameSampler derives instantaneous and windowed FPS from frame callbacks.
type FrameSampler struct {
	mu       sync.Mutex
	readings *Ring[frameReading]
	lastAt   time.Time
}

// NewFrameSampler creates a sampler keeping the last capacity frames.
func NewFrameSampler(capacity int) *FrameSampler {
	if capacity < fpsWindow {
		capacity = fpsWindow
	}
	return &FrameSampler{readings: NewRing[frameReading](capacity)}
}

// RecordFrame notes a frame presented at the given instant. The first frame
// establishes the time base and produces no reading.
func (s *FrameSampler) RecordFrame(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAt.IsZero() {
		s.lastAt = at
		return
	}
	deltaMs := float64(at.Sub(s.lastAt)) / float64(time.Millisecond)
	s.lastAt = at
	if deltaMs <= 0 {
		return
	}
	s.readings.Push(frameReading{at: at, deltaMs: deltaMs, fps: 1000 / deltaMs})
}

// Instant returns the most recent instantaneous FPS and frame delta.
func (s *FrameSampler) Instant() (fps, frameTimeMs float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.readings.Last()
	if !ok {
		return 0, 0, false
	}
	return last.fps, last.deltaMs, true
}

// WindowAverage returns the FPS averaged over the last fpsWindow frames.
func (s *FrameSampler) WindowAverage() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.readings.Len()
	if n == 0 {
		return 0, false
	}
	start := 0
	if n > fpsWindow {
		start = n - fpsWindow
	}
	total := 0.0
	for i := start; i < n; i++ {
		total += s.readings.At(i).fps
	}
	return total / float64(n-start), true
}
