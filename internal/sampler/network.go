package sampler

import (
	"sync"
	"time"
)

// TimingEntry is one resource or navigation timing record reported by the
// page layer, broken into connection phases.
type TimingEntry struct {
	At         time.Time
	DNSMs      float64
	ConnectMs  float64
	TLSMs      float64
	DownloadMs float64
	RTTMs      float64
}

// Total returns the combined duration of all phases.
func (e TimingEntry) Total() float64 {
	return e.DNSMs + e.ConnectMs + e.TLSMs + e.DownloadMs
}

// NetworkSampler collects timing entries fed in by the page layer and
// derives a rolling latency estimate. No entries means no network data,
// which downstream consumers treat as unknown rather than zero.
type NetworkSampler struct {
	mu      sync.Mutex
	entries *Ring[TimingEntry]
}

// NewNetworkSampler creates a sampler keeping the last capacity entries.
func NewNetworkSampler(capacity int) *NetworkSampler {
	return &NetworkSampler{entries: NewRing[TimingEntry](capacity)}
}

// Record stores one timing entry. Entries with no positive phase are
// discarded.
func (s *NetworkSampler) Record(entry TimingEntry) {
	if entry.Total() <= 0 && entry.RTTMs <= 0 {
		return
	}
	s.mu.Lock()
	s.entries.Push(entry)
	s.mu.Unlock()
}

// Latency returns the rolling average round-trip estimate in milliseconds.
// Prefers explicit RTT readings, falling back to connection-phase totals.
func (s *NetworkSampler) Latency() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries.Len() == 0 {
		return 0, false
	}
	total := 0.0
	for i := 0; i < s.entries.Len(); i++ {
		e := s.entries.At(i)
		if e.RTTMs > 0 {
			total += e.RTTMs
		} else {
			total += e.Total()
		}
	}
	return total / float64(s.entries.Len()), true
}

// Phases returns the rolling average of each connection phase.
func (s *NetworkSampler) Phases() (dns, connect, tls, download float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.entries.Len()
	if n == 0 {
		return 0, 0, 0, 0, false
	}
	for i := 0; i < n; i++ {
		e := s.entries.At(i)
		dns += e.DNSMs
		connect += e.ConnectMs
		tls += e.TLSMs
		download += e.DownloadMs
	}
	f := float64(n)
	return dns / f, connect / f, tls / f, download / f, true
}
