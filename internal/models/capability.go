package models

import "time"

// NetworkClass buckets effective connection quality.
type NetworkClass string

const (
	NetworkSlow2G  NetworkClass = "slow-2g"
	Network2G      NetworkClass = "2g"
	Network3G      NetworkClass = "3g"
	Network4G      NetworkClass = "4g"
	NetworkUnknown NetworkClass = "unknown"
)

// Slow reports whether the class counts as a slow network for low-end
// device classification.
func (c NetworkClass) Slow() bool {
	return c == NetworkSlow2G || c == Network2G
}

// QualityLevel is the coarse rendering quality recommendation.
type QualityLevel string

const (
	QualityLow    QualityLevel = "low"
	QualityMedium QualityLevel = "medium"
	QualityHigh   QualityLevel = "high"
)

// CapabilitySet is the per-session device description. Computed once at
// startup; only the volatile fields (battery, network, preferences) are
// refreshed afterwards. Consumers receive copies, never the owner's value.
type CapabilitySet struct {
	WebGL            bool         `json:"webgl"`
	WebGL2           bool         `json:"webgl2"`
	GPUAccelerated   bool         `json:"gpuAccelerated"`
	GPUVendor        string       `json:"gpuVendor,omitempty"`
	GPURenderer      string       `json:"gpuRenderer,omitempty"`
	MaxTextureSize   int          `json:"maxTextureSize"`
	DeviceMemoryGB   float64      `json:"deviceMemoryGB"`
	LogicalCores     int          `json:"logicalCores"`
	Mobile           bool         `json:"mobile"`
	LowEnd           bool         `json:"lowEnd"`
	NetworkClass     NetworkClass `json:"networkClass"`
	NetworkRTTMs     float64      `json:"networkRTTMs"`
	BatteryLevel     float64      `json:"batteryLevel"`
	BatteryCharging  bool         `json:"batteryCharging"`
	BatterySupported bool         `json:"batterySupported"`
	ImageFormats     []string     `json:"imageFormats,omitempty"`
	VideoCodecs      []string     `json:"videoCodecs,omitempty"`
	ReducedMotion    bool         `json:"reducedMotion"`
	DarkScheme       bool         `json:"darkScheme"`
	DetectedAt       time.Time    `json:"detectedAt"`
}

// RecommendedQuality maps the capability profile onto a quality tier.
func (c CapabilitySet) RecommendedQuality() QualityLevel {
	if c.LowEnd {
		return QualityLow
	}
	if c.Mobile || c.DeviceMemoryGB < 8 || c.LogicalCores < 8 {
		return QualityMedium
	}
	return QualityHigh
}
