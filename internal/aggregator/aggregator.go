// Package aggregator merges sampler outputs into one Snapshot per tick and
// computes the derived scores downstream analyzers consume.
package aggregator

import (
	"log/slog"
	"math"
	"sync"

	"github.com/vizstack/rendertune/internal/metrics"
	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/platform"
	"github.com/vizstack/rendertune/internal/sampler"
	"github.com/vizstack/rendertune/internal/utils"
)

// Monitoring selects which optional collectors Tick consults. A disabled
// collector is not polled at all; its fields report unknown rather than a
// stale carry-forward.
type Monitoring struct {
	Battery bool
	Thermal bool
}

// Samplers bundles the collectors the aggregator reads each tick.
type Samplers struct {
	Frame       *sampler.FrameSampler
	GPU         *sampler.GPUSampler
	Thermal     *sampler.ThermalSampler
	Battery     *sampler.BatterySampler
	Network     *sampler.NetworkSampler
	Interaction *sampler.InteractionSampler
}

// Aggregator produces validated snapshots from the sampler set. Fields a
// sampler cannot refresh carry forward from the previous snapshot so a
// stale sampler never injects a false zero into the analysis pipeline.
type Aggregator struct {
	samplers Samplers
	platform platform.Platform
	clock    utils.Clock
	logger   *slog.Logger

	mu           sync.Mutex
	activeModule string
	last         models.Snapshot
	hasLast      bool
	history      *sampler.Ring[models.Snapshot]
	dropped      int
}

// New constructs an Aggregator keeping historySize snapshots.
func New(s Samplers, p platform.Platform, clock utils.Clock, historySize int, logger *slog.Logger) *Aggregator {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if historySize <= 0 {
		historySize = 300
	}
	return &Aggregator{
		samplers: s,
		platform: p,
		clock:    clock,
		logger:   logger,
		history:  sampler.NewRing[models.Snapshot](historySize),
	}
}

// SetActiveModule tags subsequent snapshots with the module id.
func (a *Aggregator) SetActiveModule(id string) {
	a.mu.Lock()
	a.activeModule = id
	a.mu.Unlock()
}

// Tick merges the latest sampler readings into a snapshot, validates it and
// appends it to history. Invalid snapshots are dropped and logged, and the
// previous snapshot is returned so callers always see a coherent value.
func (a *Aggregator) Tick(m Monitoring) models.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	snap := models.Snapshot{
		ModuleID:     a.activeModule,
		Timestamp:    now,
		BatteryLevel: models.UnknownBatteryLevel,
		ThermalState: models.ThermalNormal,
	}
	if a.hasLast {
		// Carry forward before overlaying fresh readings.
		snap.FPS = a.last.FPS
		snap.FrameTimeMs = a.last.FrameTimeMs
		snap.RenderTimeMs = a.last.RenderTimeMs
		snap.MemoryUsedMB = a.last.MemoryUsedMB
		snap.GPUUtilizationPct = a.last.GPUUtilizationPct
		snap.WebGLHealthy = a.last.WebGLHealthy
		snap.BatteryLevel = a.last.BatteryLevel
		snap.BatteryCharging = a.last.BatteryCharging
		snap.NetworkLatencyMs = a.last.NetworkLatencyMs
		snap.InputLatencyMs = a.last.InputLatencyMs
		snap.ComputedFPS = a.last.ComputedFPS
	}

	if fps, frameMs, ok := a.samplers.Frame.Instant(); ok {
		snap.FPS = fps
		snap.FrameTimeMs = frameMs
	}
	if avg, ok := a.samplers.Frame.WindowAverage(); ok {
		snap.ComputedFPS = avg
	}
	if renderMs, ok := a.samplers.GPU.AvgRenderTime(); ok {
		snap.RenderTimeMs = renderMs
	}
	if util, ok := a.samplers.GPU.Utilization(); ok {
		snap.GPUUtilizationPct = util
	}
	if mem, err := a.platform.Memory(); err == nil {
		snap.MemoryUsedMB = mem.UsedMB
	}
	if m.Battery {
		if level, charging := a.samplers.Battery.Sample(now); level != models.UnknownBatteryLevel {
			snap.BatteryLevel = level
			snap.BatteryCharging = charging
		}
	} else {
		snap.BatteryLevel = models.UnknownBatteryLevel
		snap.BatteryCharging = false
	}
	if latency, ok := a.samplers.Network.Latency(); ok {
		snap.NetworkLatencyMs = latency
	}
	if input, ok := a.samplers.Interaction.AvgLatencyMs(); ok {
		snap.InputLatencyMs = input
	}

	if m.Thermal {
		a.samplers.Thermal.Observe(snap.ComputedFPS, now)
		snap.ThermalState = a.samplers.Thermal.State()
	}

	snap.MemoryEfficiency = memoryEfficiency(snap.ComputedFPS, snap.MemoryUsedMB)
	snap.PerformanceScore = a.perceivedPerformance(snap, m)
	snap.Recommendations = recommendationsFor(snap)

	if !snap.Valid() {
		a.dropped++
		metrics.ObserveDroppedSample()
		a.logger.Warn("dropping invalid snapshot",
			slog.Float64("fps", snap.FPS),
			slog.Float64("memoryMB", snap.MemoryUsedMB))
		return a.last
	}

	a.last = snap
	a.hasLast = true
	a.history.Push(snap)
	return snap
}

// History returns the retained snapshots oldest-first. When moduleID is
// non-empty only snapshots tagged with that module are returned.
func (a *Aggregator) History(moduleID string) []models.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	all := a.history.Slice()
	if moduleID == "" {
		return all
	}
	out := make([]models.Snapshot, 0, len(all))
	for _, s := range all {
		if s.ModuleID == moduleID {
			out = append(out, s)
		}
	}
	return out
}

// Dropped returns how many snapshots failed validation.
func (a *Aggregator) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// memoryEfficiency scores frames delivered per MB consumed, capped at 100.
func memoryEfficiency(avgFPS, memoryMB float64) float64 {
	if memoryMB <= 0 {
		return 0
	}
	eff := (avgFPS / memoryMB) * 10
	if eff > 100 {
		eff = 100
	}
	if eff < 0 {
		eff = 0
	}
	return eff
}

// perceivedPerformance blends frame rate, thermal pressure and input
// responsiveness into one 0-100 score. With thermal monitoring off the
// thermal term is neutral.
func (a *Aggregator) perceivedPerformance(snap models.Snapshot, m Monitoring) float64 {
	fpsScore := snap.ComputedFPS / 60 * 100
	if fpsScore > 100 {
		fpsScore = 100
	}
	thermalScore := 100.0
	if m.Thermal {
		thermalScore = (1 - a.samplers.Thermal.PerformanceReduction()) * 100
	}
	interactionScore := 100 - snap.InputLatencyMs/10
	if interactionScore < 0 {
		interactionScore = 0
	}
	return math.Round(0.5*fpsScore + 0.3*thermalScore + 0.2*interactionScore)
}

func recommendationsFor(snap models.Snapshot) []string {
	var recs []string
	if snap.ComputedFPS > 0 && snap.ComputedFPS < 30 {
		recs = append(recs, "Reduce render quality or particle density")
	}
	if snap.ThermalState == models.ThermalSerious || snap.ThermalState == models.ThermalCritical {
		recs = append(recs, "Throttle animation to ease thermal pressure")
	}
	if snap.BatteryLevel != models.UnknownBatteryLevel && snap.BatteryLevel < 0.2 && !snap.BatteryCharging {
		recs = append(recs, "Pause decorative animation on low battery")
	}
	if snap.InputLatencyMs > 100 {
		recs = append(recs, "Defer non-essential work off the input path")
	}
	return recs
}
