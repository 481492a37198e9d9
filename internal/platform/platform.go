// Package platform abstracts the host facilities the telemetry core probes.
// Every accessor is best-effort: a missing or failing facility yields an
// error the caller maps onto a documented conservative default, never a
// crash of the sampling path.
package platform

import (
	"errors"
	"time"
)

// ErrUnavailable signals that the host cannot supply the requested reading.
var ErrUnavailable = errors.New("platform facility unavailable")

// GPUInfo describes the graphics capability of the host.
type GPUInfo struct {
	WebGL          bool
	WebGL2         bool
	Accelerated    bool
	Vendor         string
	Renderer       string
	MaxTextureSize int
}

// MemoryInfo describes installed and currently used memory.
type MemoryInfo struct {
	TotalGB float64
	UsedMB  float64
}

// BatteryInfo is a point-in-time battery reading.
type BatteryInfo struct {
	Level    float64 // 0..1
	Charging bool
	ReadAt   time.Time
}

// NetworkInfo is the effective connection estimate.
type NetworkInfo struct {
	Class        string // slow-2g, 2g, 3g, 4g
	RTTMs        float64
	DownlinkMbps float64
	DNSMs        float64
	ConnectMs    float64
	TLSMs        float64
	DownloadMs   float64
}

// PreferenceInfo carries user-level presentation preferences.
type PreferenceInfo struct {
	ReducedMotion bool
	DarkScheme    bool
}

// Platform is the read-only window onto host facilities. Implementations
// must be safe for concurrent use; individual probes may fail independently.
type Platform interface {
	GPU() (GPUInfo, error)
	Memory() (MemoryInfo, error)
	Battery() (BatteryInfo, error)
	Network() (NetworkInfo, error)
	Preferences() (PreferenceInfo, error)
	LogicalCores() int
	Mobile() bool
}
