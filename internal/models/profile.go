package models

import "time"

// ResourceUsage attributes consumption to a single module.
type ResourceUsage struct {
	MemoryMB     float64 `json:"memoryMB"`
	GPUPct       float64 `json:"gpuPct"`
	CPUPct       float64 `json:"cpuPct"`
	NetworkKBps  float64 `json:"networkKBps"`
	StorageKB    float64 `json:"storageKB"`
	ShaderCount  int     `json:"shaderCount"`
	TextureCount int     `json:"textureCount"`
	BufferCount  int     `json:"bufferCount"`
}

// StabilityCounters track how often a module misbehaves.
type StabilityCounters struct {
	Crashes  int `json:"crashes"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// MetricRollup holds rolling average and peak values for a module.
type MetricRollup struct {
	AvgFPS        float64 `json:"avgFPS"`
	PeakFPS       float64 `json:"peakFPS"`
	AvgFrameTime  float64 `json:"avgFrameTimeMs"`
	PeakFrameTime float64 `json:"peakFrameTimeMs"`
	AvgMemoryMB   float64 `json:"avgMemoryMB"`
	PeakMemoryMB  float64 `json:"peakMemoryMB"`
	AvgRenderTime float64 `json:"avgRenderTimeMs"`
	SampleCount   int     `json:"sampleCount"`
}

// PeerComparison relates a module to one of its category peers.
type PeerComparison struct {
	PeerID    string   `json:"peerId"`
	Advantage string   `json:"advantage"` // "this", "other" or "neutral"
	Reasoning []string `json:"reasoning"`
}

// ModuleProfile is the persistent per-module performance record. It survives
// deactivation so historical comparisons remain possible.
type ModuleProfile struct {
	ModuleID         string            `json:"moduleId"`
	Category         string            `json:"category"`
	Rollup           MetricRollup      `json:"rollup"`
	Baseline         MetricRollup      `json:"baseline"`
	Resources        ResourceUsage     `json:"resources"`
	Stability        StabilityCounters `json:"stability"`
	Rank             int               `json:"rank"`
	PerformanceScore float64           `json:"performanceScore"`
	Comparisons      []PeerComparison  `json:"comparisons,omitempty"`
	Active           bool              `json:"-"`
	FirstSeen        time.Time         `json:"firstSeen"`
	LastUpdated      time.Time         `json:"lastUpdated"`
}

// ConflictType names the shared resource a conflict concerns.
type ConflictType string

const (
	ConflictMemory ConflictType = "memory"
	ConflictGPU    ConflictType = "gpu"
	ConflictCPU    ConflictType = "cpu"
)

// ResolutionStrategy is one way of easing a resource conflict, with a rough
// estimate of the performance delta applying it would cost or recover.
type ResolutionStrategy struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	ImpactEstimate float64 `json:"impactEstimate"`
	Automatic      bool    `json:"automatic"`
}

// ResourceConflict is a transient finding over the currently active module
// set. Removed once resolved or superseded by a newer scan.
type ResourceConflict struct {
	ID              string               `json:"id"`
	Type            ConflictType         `json:"type"`
	Severity        Severity             `json:"severity"`
	InvolvedModules []string             `json:"involvedModules"`
	ImpactEstimate  float64              `json:"impactEstimate"`
	Detail          string               `json:"detail"`
	Resolutions     []ResolutionStrategy `json:"resolutions"`
	DetectedAt      time.Time            `json:"detectedAt"`
}
