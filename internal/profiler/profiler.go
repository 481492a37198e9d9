// Package profiler maintains per-module performance rollups and ranks
// modules against their category peers.
package profiler

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/sampler"
	"github.com/vizstack/rendertune/internal/utils"
)

const (
	// rollupWindow bounds the snapshots contributing to rolling averages.
	rollupWindow = 50
	// comparisonPeers is how many top category peers comparisons cover.
	comparisonPeers = 3
)

type moduleState struct {
	profile models.ModuleProfile
	window  *sampler.Ring[models.Snapshot]
}

// Profiler owns every module profile. Profiles are created on registration
// and retained after deactivation for historical comparison.
type Profiler struct {
	logger *slog.Logger
	clock  utils.Clock

	mu      sync.Mutex
	modules map[string]*moduleState
}

// New constructs a Profiler.
func New(clock utils.Clock, logger *slog.Logger) *Profiler {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Profiler{logger: logger, clock: clock, modules: make(map[string]*moduleState)}
}

// Register creates a profile for the module if none exists.
func (p *Profiler) Register(moduleID, category string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.modules[moduleID]; ok {
		return
	}
	now := p.clock.Now()
	p.modules[moduleID] = &moduleState{
		profile: models.ModuleProfile{
			ModuleID:    moduleID,
			Category:    category,
			FirstSeen:   now,
			LastUpdated: now,
		},
		window: sampler.NewRing[models.Snapshot](rollupWindow),
	}
}

// Activate marks the module active. Unknown modules are registered first.
func (p *Profiler) Activate(moduleID string) {
	p.Register(moduleID, "")
	p.mu.Lock()
	p.modules[moduleID].profile.Active = true
	p.mu.Unlock()
}

// Deactivate marks the module inactive; its profile survives for history.
func (p *Profiler) Deactivate(moduleID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.modules[moduleID]; ok {
		st.profile.Active = false
		// First full run becomes the baseline for later sessions.
		if st.profile.Baseline.SampleCount == 0 && st.profile.Rollup.SampleCount > 0 {
			st.profile.Baseline = st.profile.Rollup
		}
	}
}

// RecordMetrics folds a module-tagged snapshot into the rollup.
func (p *Profiler) RecordMetrics(moduleID string, snap models.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.modules[moduleID]
	if !ok {
		return
	}
	st.window.Push(snap)
	st.profile.Rollup = rollup(st.window)
	st.profile.LastUpdated = p.clock.Now()
}

// RecordResources overwrites the module's resource attribution.
func (p *Profiler) RecordResources(moduleID string, usage models.ResourceUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.modules[moduleID]; ok {
		st.profile.Resources = usage
		st.profile.LastUpdated = p.clock.Now()
	}
}

// RecordIncident bumps the matching stability counter.
func (p *Profiler) RecordIncident(moduleID string, severity models.Severity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.modules[moduleID]
	if !ok {
		return
	}
	switch severity {
	case models.SeverityCritical:
		st.profile.Stability.Crashes++
	case models.SeverityHigh:
		st.profile.Stability.Errors++
	default:
		st.profile.Stability.Warnings++
	}
}

// UpdateRelativePerformance recomputes ranks, scores and peer comparisons
// for every category with at least one profiled module.
func (p *Profiler) UpdateRelativePerformance() {
	p.mu.Lock()
	defer p.mu.Unlock()

	byCategory := make(map[string][]*moduleState)
	for _, st := range p.modules {
		byCategory[st.profile.Category] = append(byCategory[st.profile.Category], st)
	}

	for _, group := range byCategory {
		rankGroup(group)
	}
}

// rankGroup scores one category. Each rank term is normalised to
// (N-rank+1)/N so first place contributes 1.0 and last place 1/N.
func rankGroup(group []*moduleState) {
	n := len(group)
	if n == 0 {
		return
	}

	fpsRank := rankBy(group, func(a, b *moduleState) bool {
		return a.profile.Rollup.AvgFPS > b.profile.Rollup.AvgFPS
	})
	memRank := rankBy(group, func(a, b *moduleState) bool {
		return a.profile.Rollup.AvgMemoryMB < b.profile.Rollup.AvgMemoryMB
	})
	stabRank := rankBy(group, func(a, b *moduleState) bool {
		return stabilityPenalty(a.profile.Stability) < stabilityPenalty(b.profile.Stability)
	})

	for _, st := range group {
		id := st.profile.ModuleID
		fpsTerm := float64(n-fpsRank[id]+1) / float64(n)
		memTerm := float64(n-memRank[id]+1) / float64(n)
		stabTerm := float64(n-stabRank[id]+1) / float64(n)
		st.profile.PerformanceScore = math.Round(100 * (0.4*fpsTerm + 0.3*memTerm + 0.3*stabTerm))
	}

	byScore := append([]*moduleState(nil), group...)
	sort.SliceStable(byScore, func(i, j int) bool {
		if byScore[i].profile.PerformanceScore != byScore[j].profile.PerformanceScore {
			return byScore[i].profile.PerformanceScore > byScore[j].profile.PerformanceScore
		}
		return byScore[i].profile.ModuleID < byScore[j].profile.ModuleID
	})
	for i, st := range byScore {
		st.profile.Rank = i + 1
	}

	peers := byScore
	if len(peers) > comparisonPeers {
		peers = peers[:comparisonPeers]
	}
	for _, st := range group {
		st.profile.Comparisons = compareAgainst(st, peers)
	}
}

// rankBy assigns competition ranks: tied modules share the better rank, so
// a tie never penalises either side arbitrarily.
func rankBy(group []*moduleState, less func(a, b *moduleState) bool) map[string]int {
	sorted := append([]*moduleState(nil), group...)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	ranks := make(map[string]int, len(sorted))
	rank := 1
	for i, st := range sorted {
		if i > 0 && less(sorted[i-1], st) {
			rank = i + 1
		}
		ranks[st.profile.ModuleID] = rank
	}
	return ranks
}

// stabilityPenalty weights incidents by how disruptive they are.
func stabilityPenalty(s models.StabilityCounters) int {
	return s.Crashes*10 + s.Errors*3 + s.Warnings
}

func compareAgainst(st *moduleState, peers []*moduleState) []models.PeerComparison {
	var out []models.PeerComparison
	for _, peer := range peers {
		if peer.profile.ModuleID == st.profile.ModuleID {
			continue
		}
		out = append(out, comparePair(st.profile, peer.profile))
	}
	return out
}

// comparePair annotates the relationship between two profiles with the
// directional advantage and human-readable reasoning.
func comparePair(this, other models.ModuleProfile) models.PeerComparison {
	var reasoning []string
	score := 0

	if diff := relativeDiff(this.Rollup.AvgFPS, other.Rollup.AvgFPS); diff > 5 {
		score++
		reasoning = append(reasoning, fmt.Sprintf("%.0f%% higher frame rate than %s", diff, other.ModuleID))
	} else if diff < -5 {
		score--
		reasoning = append(reasoning, fmt.Sprintf("%.0f%% lower frame rate than %s", -diff, other.ModuleID))
	}

	if diff := relativeDiff(this.Rollup.AvgMemoryMB, other.Rollup.AvgMemoryMB); diff < -5 {
		score++
		reasoning = append(reasoning, fmt.Sprintf("uses %.0f%% less memory than %s", -diff, other.ModuleID))
	} else if diff > 5 {
		score--
		reasoning = append(reasoning, fmt.Sprintf("uses %.0f%% more memory than %s", diff, other.ModuleID))
	}

	thisPenalty := stabilityPenalty(this.Stability)
	otherPenalty := stabilityPenalty(other.Stability)
	if thisPenalty < otherPenalty {
		score++
		reasoning = append(reasoning, fmt.Sprintf("fewer stability incidents than %s", other.ModuleID))
	} else if thisPenalty > otherPenalty {
		score--
		reasoning = append(reasoning, fmt.Sprintf("more stability incidents than %s", other.ModuleID))
	}

	advantage := "neutral"
	if score > 0 {
		advantage = "this"
	} else if score < 0 {
		advantage = "other"
	}
	return models.PeerComparison{PeerID: other.ModuleID, Advantage: advantage, Reasoning: reasoning}
}

func relativeDiff(a, b float64) float64 {
	if b == 0 {
		if a == 0 {
			return 0
		}
		return 100
	}
	return (a - b) / b * 100
}

// Profile returns a copy of the module's profile.
func (p *Profiler) Profile(moduleID string) (models.ModuleProfile, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.modules[moduleID]
	if !ok {
		return models.ModuleProfile{}, false
	}
	return st.profile, true
}

// Profiles returns copies of all profiles sorted by module id.
func (p *Profiler) Profiles() []models.ModuleProfile {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.ModuleProfile, 0, len(p.modules))
	for _, st := range p.modules {
		out = append(out, st.profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleID < out[j].ModuleID })
	return out
}

// ActiveProfiles returns copies of the currently active profiles.
func (p *Profiler) ActiveProfiles() []models.ModuleProfile {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.ModuleProfile
	for _, st := range p.modules {
		if st.profile.Active {
			out = append(out, st.profile)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleID < out[j].ModuleID })
	return out
}

// Restore seeds profiles from persisted history. Live state (activity) is
// not restored.
func (p *Profiler) Restore(profiles []models.ModuleProfile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, profile := range profiles {
		profile.Active = false
		p.modules[profile.ModuleID] = &moduleState{
			profile: profile,
			window:  sampler.NewRing[models.Snapshot](rollupWindow),
		}
	}
}

func rollup(window *sampler.Ring[models.Snapshot]) models.MetricRollup {
	n := window.Len()
	if n == 0 {
		return models.MetricRollup{}
	}
	var r models.MetricRollup
	for i := 0; i < n; i++ {
		s := window.At(i)
		r.AvgFPS += s.ComputedFPS
		r.AvgFrameTime += s.FrameTimeMs
		r.AvgMemoryMB += s.MemoryUsedMB
		r.AvgRenderTime += s.RenderTimeMs
		if s.ComputedFPS > r.PeakFPS {
			r.PeakFPS = s.ComputedFPS
		}
		if s.FrameTimeMs > r.PeakFrameTime {
			r.PeakFrameTime = s.FrameTimeMs
		}
		if s.MemoryUsedMB > r.PeakMemoryMB {
			r.PeakMemoryMB = s.MemoryUsedMB
		}
	}
	f := float64(n)
	r.AvgFPS /= f
	r.AvgFrameTime /= f
	r.AvgMemoryMB /= f
	r.AvgRenderTime /= f
	r.SampleCount = n
	return r
}
