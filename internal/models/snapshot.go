package models

import "time"

// ThermalState classifies inferred thermal pressure.
type ThermalState string

const (
	ThermalNormal   ThermalState = "normal"
	ThermalFair     ThermalState = "fair"
	ThermalSerious  ThermalState = "serious"
	ThermalCritical ThermalState = "critical"
)

// Snapshot is one timestamped bundle of merged performance readings.
// Instances are immutable once created; downstream analyzers hold
// references, never mutate.
type Snapshot struct {
	ModuleID          string       `json:"moduleId,omitempty"`
	FPS               float64      `json:"fps"`
	FrameTimeMs       float64      `json:"frameTimeMs"`
	RenderTimeMs      float64      `json:"renderTimeMs"`
	MemoryUsedMB      float64      `json:"memoryUsedMB"`
	GPUUtilizationPct float64      `json:"gpuUtilizationPct"`
	WebGLHealthy      bool         `json:"webglHealthy"`
	BatteryLevel      float64      `json:"batteryLevel"` // 0..1, UnknownBatteryLevel when unreadable
	BatteryCharging   bool         `json:"batteryCharging"`
	ThermalState      ThermalState `json:"thermalState"`
	NetworkLatencyMs  float64      `json:"networkLatencyMs"`
	InputLatencyMs    float64      `json:"inputLatencyMs"`
	Timestamp         time.Time    `json:"timestamp"`

	// Derived fields, filled by the aggregator.
	ComputedFPS      float64  `json:"computedFPS"`
	MemoryEfficiency float64  `json:"memoryEfficiency"`
	PerformanceScore float64  `json:"performanceScore"`
	Recommendations  []string `json:"recommendations,omitempty"`
}

// UnknownBatteryLevel marks a battery reading the platform could not supply.
const UnknownBatteryLevel = -1

// Valid reports whether the snapshot passes range validation. Invalid
// snapshots are dropped before they can poison trend or threshold state.
func (s Snapshot) Valid() bool {
	if s.Timestamp.IsZero() {
		return false
	}
	if s.FPS < 0 || s.FrameTimeMs < 0 || s.RenderTimeMs < 0 || s.MemoryUsedMB < 0 {
		return false
	}
	if s.GPUUtilizationPct < 0 || s.GPUUtilizationPct > 100 {
		return false
	}
	if s.BatteryLevel != UnknownBatteryLevel && (s.BatteryLevel < 0 || s.BatteryLevel > 1) {
		return false
	}
	return true
}

// Severity captures impact levels.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// MetricKind enumerates the metrics tracked by adaptive thresholds.
type MetricKind string

const (
	MetricFPS          MetricKind = "fps"
	MetricFrameTime    MetricKind = "frameTimeMs"
	MetricRenderTime   MetricKind = "renderTimeMs"
	MetricMemory       MetricKind = "memoryUsedMB"
	MetricGPU          MetricKind = "gpuUtilizationPct"
	MetricInputLatency MetricKind = "inputLatencyMs"
	MetricNetwork      MetricKind = "networkLatencyMs"
)

// MetricValue extracts the named metric from a snapshot.
func (s Snapshot) MetricValue(kind MetricKind) (float64, bool) {
	switch kind {
	case MetricFPS:
		return s.ComputedFPS, true
	case MetricFrameTime:
		return s.FrameTimeMs, true
	case MetricRenderTime:
		return s.RenderTimeMs, true
	case MetricMemory:
		return s.MemoryUsedMB, true
	case MetricGPU:
		return s.GPUUtilizationPct, true
	case MetricInputLatency:
		return s.InputLatencyMs, true
	case MetricNetwork:
		return s.NetworkLatencyMs, true
	}
	return 0, false
}
