// Package engine wires the samplers, aggregator and analyzers into the
// adaptive control loop and owns their lifecycle.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vizstack/rendertune/internal/aggregator"
	"github.com/vizstack/rendertune/internal/alerting"
	"github.com/vizstack/rendertune/internal/bus"
	"github.com/vizstack/rendertune/internal/capability"
	"github.com/vizstack/rendertune/internal/config"
	"github.com/vizstack/rendertune/internal/conflict"
	"github.com/vizstack/rendertune/internal/metrics"
	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/patterns"
	"github.com/vizstack/rendertune/internal/platform"
	"github.com/vizstack/rendertune/internal/profiler"
	"github.com/vizstack/rendertune/internal/registry"
	"github.com/vizstack/rendertune/internal/sampler"
	"github.com/vizstack/rendertune/internal/store"
	"github.com/vizstack/rendertune/internal/strategy"
	"github.com/vizstack/rendertune/internal/threshold"
	"github.com/vizstack/rendertune/internal/trend"
	"github.com/vizstack/rendertune/internal/utils"
)

// Analysis is the outcome of one analysis pass.
type Analysis struct {
	GeneratedAt time.Time                          `json:"generatedAt"`
	Trends      map[models.MetricKind]trend.Result `json:"trends"`
	Leak        trend.LeakReport                   `json:"leak"`
	Patterns    []models.AlertPattern              `json:"patterns"`
	Conflicts   []models.ResourceConflict          `json:"conflicts"`
	Thresholds  []threshold.Adaptive               `json:"thresholds"`
	Scores      map[string]float64                 `json:"scores,omitempty"`
}

type runState int

const (
	stateIdle runState = iota
	stateRunning
	statePaused
	stateStopped
)

// Engine coordinates sampling, aggregation, analysis, alerting and
// persistence. All exported methods are safe for concurrent use.
type Engine struct {
	cfg      config.TelemetryConfig
	logger   *slog.Logger
	clock    utils.Clock
	platform platform.Platform

	probe      *capability.Probe
	samplers   aggregator.Samplers
	agg        *aggregator.Aggregator
	thresholds *threshold.Manager
	alerts     *alerting.Engine
	miner      *patterns.Miner
	profiler   *profiler.Profiler
	detector   *conflict.Detector
	registry   *registry.Registry
	blobs      *store.Blobs
	events     *bus.Bus

	// reconfigure wakes the run loop after ApplyOptions changes a cadence.
	reconfigure chan struct{}

	mu           sync.Mutex
	state        runState
	activeModule string
	selector     *strategy.Selector
	switchCount  int
	lastAnalysis Analysis
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// New assembles an Engine from its configuration. The platform supplies
// host facts; blobs may wrap a NoopProvider when persistence is disabled.
func New(cfg config.TelemetryConfig, p platform.Platform, rules []models.AlertRule, blobs *store.Blobs, events *bus.Bus, clock utils.Clock, logger *slog.Logger) *Engine {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if events == nil {
		events = bus.New(64)
	}
	if blobs == nil {
		blobs = store.NewBlobs(store.NoopProvider{}, logger)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = time.Second
	}
	if cfg.AnalysisInterval <= 0 {
		cfg.AnalysisInterval = 10 * time.Second
	}

	s := aggregator.Samplers{
		Frame:       sampler.NewFrameSampler(cfg.HistorySize),
		GPU:         sampler.NewGPUSampler(cfg.HistorySize),
		Thermal:     sampler.NewThermalSampler(cfg.HistorySize),
		Battery:     sampler.NewBatterySampler(p, cfg.HistorySize),
		Network:     sampler.NewNetworkSampler(cfg.HistorySize),
		Interaction: sampler.NewInteractionSampler(cfg.HistorySize),
	}

	static := make(map[models.MetricKind]float64, len(cfg.AlertThresholds))
	for name, value := range cfg.AlertThresholds {
		static[models.MetricKind(name)] = value
	}
	thresholds := threshold.NewManager(static, cfg.ThresholdLearningRate, cfg.ThresholdWindow)

	if len(rules) == 0 {
		rules = alerting.DefaultRules()
	}

	return &Engine{
		cfg:         cfg,
		logger:      logger,
		clock:       clock,
		platform:    p,
		probe:       capability.NewProbe(p, logger, cfg.CapabilityRefresh),
		samplers:    s,
		agg:         aggregator.New(s, p, clock, cfg.HistorySize, logger),
		thresholds:  thresholds,
		alerts:      alerting.NewEngine(rules, thresholds, clock, logger),
		miner:       patterns.NewMiner(logger),
		profiler:    profiler.New(clock, logger),
		detector:    conflict.NewDetector(clock, logger),
		registry:    registry.New(logger),
		blobs:       blobs,
		events:      events,
		reconfigure: make(chan struct{}, 1),
	}
}

// Start probes capabilities, restores persisted state and launches the
// sampling and analysis loops. Calling Start on a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == stateRunning || e.state == statePaused {
		e.mu.Unlock()
		return nil
	}
	e.state = stateRunning
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.mu.Unlock()

	caps := e.probe.Detect()
	e.logger.Info("capability probe complete",
		slog.Bool("lowEnd", caps.LowEnd),
		slog.Bool("webgl", caps.WebGL),
		slog.Float64("deviceMemoryGB", caps.DeviceMemoryGB),
		slog.Int("logicalCores", caps.LogicalCores),
		slog.String("recommendedQuality", string(caps.RecommendedQuality())))
	e.probe.Monitor(func(updated models.CapabilitySet) {
		e.events.Publish(bus.TopicCapability, updated)
	})

	if restored := e.blobs.LoadProfiles(ctx); len(restored) > 0 {
		e.profiler.Restore(restored)
		e.logger.Info("restored module profiles", slog.Int("count", len(restored)))
	}
	if rules := e.blobs.LoadAlertConfig(ctx); len(rules) > 0 {
		for _, rule := range rules {
			e.alerts.UpsertRule(rule)
		}
		e.logger.Info("restored alert configuration", slog.Int("rules", len(rules)))
	}

	go e.run()
	return nil
}

// Pause suspends sampling and analysis without discarding state.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.state == stateRunning {
		e.state = statePaused
	}
	e.mu.Unlock()
}

// Resume restarts a paused engine.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.state == statePaused {
		e.state = stateRunning
	}
	e.mu.Unlock()
}

// Stop halts the loops, persists state and releases the probe. Idempotent.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	if e.state == stateStopped || e.state == stateIdle {
		e.state = stateStopped
		e.mu.Unlock()
		return
	}
	e.state = stateStopped
	close(e.stopCh)
	done := e.doneCh
	selector := e.selector
	e.mu.Unlock()

	<-done
	e.probe.Close()
	if selector != nil {
		selector.Destroy()
	}

	if err := e.blobs.SaveProfiles(ctx, e.profiler.Profiles()); err != nil {
		e.logger.Warn("profile persistence failed", slog.Any("error", err))
	}
	if err := e.blobs.SaveAlertConfig(ctx, e.alerts.Rules()); err != nil {
		e.logger.Warn("alert configuration persistence failed", slog.Any("error", err))
	}
}

func (e *Engine) run() {
	defer close(e.doneCh)

	cfg := e.telemetry()
	sampleTicker := time.NewTicker(cfg.SampleRate)
	defer sampleTicker.Stop()
	analysisTicker := time.NewTicker(cfg.AnalysisInterval)
	defer analysisTicker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-e.reconfigure:
			cfg = e.telemetry()
			sampleTicker.Reset(cfg.SampleRate)
			analysisTicker.Reset(cfg.AnalysisInterval)
		case <-sampleTicker.C:
			if e.paused() {
				continue
			}
			e.tick()
		case <-analysisTicker.C:
			if e.paused() {
				continue
			}
			e.analyze()
		}
	}
}

func (e *Engine) paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != stateRunning
}

// telemetry snapshots the current configuration; ApplyOptions can mutate
// it at runtime.
func (e *Engine) telemetry() config.TelemetryConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// tick merges sampler output into a snapshot, feeds the adaptive
// thresholds and evaluates alert rules.
func (e *Engine) tick() {
	cfg := e.telemetry()
	snap := e.agg.Tick(aggregator.Monitoring{
		Battery: cfg.EnableBatteryMonitoring,
		Thermal: cfg.EnableThermalMonitoring,
	})
	metrics.ObserveTick()

	now := e.clock.Now()
	e.thresholds.Observe(models.MetricFPS, snap.ComputedFPS, now)
	e.thresholds.Observe(models.MetricMemory, snap.MemoryUsedMB, now)
	e.thresholds.Observe(models.MetricInputLatency, snap.InputLatencyMs, now)
	if cfg.EnableGPUMonitoring {
		e.thresholds.Observe(models.MetricGPU, snap.GPUUtilizationPct, now)
	}

	if snap.ModuleID != "" {
		e.profiler.RecordMetrics(snap.ModuleID, snap)
	}

	caps := e.probe.Detect()
	fired := e.alerts.Evaluate(snap, e.agg.History(""), caps)
	for _, event := range fired {
		metrics.ObserveAlert(string(event.Severity))
		e.events.Publish(bus.TopicAlert, event)
		e.logger.Warn("alert fired",
			slog.String("rule", event.RuleID),
			slog.String("severity", string(event.Severity)),
			slog.String("message", event.Message))
	}
	e.events.Publish(bus.TopicSnapshot, snap)
}

// analyze runs the heavier periodic pass: trends, leak detection, pattern
// mining, relative module ranking and conflict detection.
func (e *Engine) analyze() {
	started := time.Now()
	history := e.agg.History("")

	analysis := Analysis{
		GeneratedAt: e.clock.Now(),
		Trends:      make(map[models.MetricKind]trend.Result, 3),
	}

	for _, kind := range []models.MetricKind{models.MetricFPS, models.MetricMemory, models.MetricInputLatency} {
		analysis.Trends[kind] = trend.Analyze(series(history, kind))
	}
	analysis.Leak = trend.DetectLeaks(series(history, models.MetricMemory))
	if analysis.Leak.HasLeaks {
		e.logger.Warn("sustained memory growth detected",
			slog.Float64("slopeMBps", analysis.Leak.SlopeMBps),
			slog.Float64("confidence", analysis.Leak.Confidence))
	}

	analysis.Patterns = e.miner.Mine(e.alerts.History())
	for _, p := range analysis.Patterns {
		e.events.Publish(bus.TopicPattern, p)
	}

	e.profiler.UpdateRelativePerformance()
	active := e.profiler.ActiveProfiles()
	analysis.Conflicts = e.detector.Detect(active)
	for _, c := range analysis.Conflicts {
		metrics.ObserveConflict(string(c.Type))
		e.events.Publish(bus.TopicConflict, c)
	}

	analysis.Thresholds = e.thresholds.Snapshot()
	analysis.Scores = make(map[string]float64, len(active))
	for _, profile := range active {
		analysis.Scores[profile.ModuleID] = profile.PerformanceScore
	}

	e.mu.Lock()
	e.lastAnalysis = analysis
	if e.selector != nil {
		if n := e.selector.SwitchCount(); n > e.switchCount {
			for i := e.switchCount; i < n; i++ {
				metrics.ObserveStrategySwitch()
			}
			e.switchCount = n
			e.events.Publish(bus.TopicStrategy, e.selector.Active())
		}
	}
	e.mu.Unlock()

	if err := e.blobs.SaveProfiles(context.Background(), e.profiler.Profiles()); err != nil {
		e.logger.Warn("profile persistence failed", slog.Any("error", err))
	}
	metrics.ObserveAnalysis(time.Since(started))
}

// series projects one metric out of the snapshot history.
func series(history []models.Snapshot, kind models.MetricKind) []trend.Point {
	points := make([]trend.Point, 0, len(history))
	for _, snap := range history {
		if v, ok := snap.MetricValue(kind); ok {
			points = append(points, trend.Point{At: snap.Timestamp, Value: v})
		}
	}
	return points
}

// RecordFrame notes one rendered frame at the current instant.
func (e *Engine) RecordFrame() {
	e.samplers.Frame.RecordFrame(e.clock.Now())
}

// RecordRenderTime notes one render pass duration and, when a strategy
// selector is attached, feeds its evaluation window.
func (e *Engine) RecordRenderTime(ms float64, nodeCount int) {
	if e.telemetry().EnableGPUMonitoring {
		e.samplers.GPU.RecordRenderTime(ms)
	}
	e.mu.Lock()
	selector := e.selector
	e.mu.Unlock()
	if selector != nil {
		if fps, ok := e.samplers.Frame.WindowAverage(); ok {
			selector.AfterRender(fps, ms, nodeCount)
		}
	}
}

// RecordInputLatency notes one input-to-response duration.
func (e *Engine) RecordInputLatency(d time.Duration) {
	if e.telemetry().EnableInteractionTracking {
		e.samplers.Interaction.RecordInput(d)
	}
}

// RecordNetworkTiming notes one resource fetch timing breakdown.
func (e *Engine) RecordNetworkTiming(entry sampler.TimingEntry) {
	if e.telemetry().EnableNetworkMonitoring {
		e.samplers.Network.Record(entry)
	}
}

// RecordModuleResources attributes resource usage to a module profile.
func (e *Engine) RecordModuleResources(moduleID string, usage models.ResourceUsage) {
	e.profiler.RecordResources(moduleID, usage)
}

// RecordIncident attributes a stability incident to a module profile.
func (e *Engine) RecordIncident(moduleID string, severity models.Severity) {
	e.profiler.RecordIncident(moduleID, severity)
}

// AttachSelector hands the engine a rendering strategy selector to feed
// from render timings and to tear down on Stop.
func (e *Engine) AttachSelector(s *strategy.Selector) {
	e.mu.Lock()
	e.selector = s
	e.switchCount = 0
	if s != nil {
		e.switchCount = s.SwitchCount()
	}
	e.mu.Unlock()
}

// RegisterModule adds a module to both the registry and the profiler.
func (e *Engine) RegisterModule(entry registry.Entry) error {
	if err := e.registry.Register(entry); err != nil {
		return err
	}
	e.profiler.Register(entry.ID, entry.Category)
	return nil
}

// ActivateModule marks the module active and tags subsequent snapshots.
func (e *Engine) ActivateModule(moduleID string) {
	e.mu.Lock()
	e.activeModule = moduleID
	e.mu.Unlock()
	e.profiler.Activate(moduleID)
	e.registry.MarkLoaded(moduleID)
	e.agg.SetActiveModule(moduleID)
}

// DeactivateModule ends the module's active session.
func (e *Engine) DeactivateModule(moduleID string) {
	e.profiler.Deactivate(moduleID)
	e.mu.Lock()
	if e.activeModule == moduleID {
		e.activeModule = ""
	}
	current := e.activeModule
	e.mu.Unlock()
	e.agg.SetActiveModule(current)
}

// Snapshot returns the most recent merged snapshot.
func (e *Engine) Snapshot() models.Snapshot {
	history := e.agg.History("")
	if len(history) == 0 {
		return models.Snapshot{BatteryLevel: models.UnknownBatteryLevel, ThermalState: models.ThermalNormal}
	}
	return history[len(history)-1]
}

// History returns retained snapshots, optionally filtered by module.
func (e *Engine) History(moduleID string) []models.Snapshot {
	return e.agg.History(moduleID)
}

// Capabilities returns the detected device capability set.
func (e *Engine) Capabilities() models.CapabilitySet {
	return e.probe.Detect()
}

// Alerts exposes the alert engine for rule management and ack/dismiss.
func (e *Engine) Alerts() *alerting.Engine {
	return e.alerts
}

// Registry exposes module discovery and loading-order resolution.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Profiles returns all module profiles, ranked at the last analysis pass.
func (e *Engine) Profiles() []models.ModuleProfile {
	return e.profiler.Profiles()
}

// LastAnalysis returns the outcome of the most recent analysis pass.
func (e *Engine) LastAnalysis() Analysis {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAnalysis
}

// Subscribe registers a bus subscription for the given topics.
func (e *Engine) Subscribe(topics ...bus.Topic) (<-chan bus.Message, func()) {
	return e.events.Subscribe(topics...)
}

// ApplyOptions merges runtime option changes into the telemetry
// configuration, returning per-field rejections. Accepted cadence changes
// re-arm the running sample and analysis tickers.
func (e *Engine) ApplyOptions(opts config.Options, atomic bool) []config.FieldError {
	e.mu.Lock()
	before := e.cfg
	errs := e.cfg.Merge(opts, atomic)
	rearm := e.cfg.SampleRate != before.SampleRate || e.cfg.AnalysisInterval != before.AnalysisInterval
	e.mu.Unlock()

	if rearm {
		select {
		case e.reconfigure <- struct{}{}:
		default:
		}
	}
	return errs
}
