// Package capability detects device characteristics once per session and
// keeps the volatile subset (battery, network, preferences) fresh.
package capability

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/platform"
)

// Defaults substituted when an individual probe fails. Deliberately
// conservative so an unreadable host is treated as a modest device.
const (
	fallbackMemoryGB   = 4
	fallbackTextureMax = 2048
)

// Probe detects and caches the device capability set.
type Probe struct {
	platform        platform.Platform
	logger          *slog.Logger
	refreshInterval time.Duration

	mu        sync.Mutex
	detected  bool
	caps      models.CapabilitySet
	listeners []func(models.CapabilitySet)
	stopCh    chan struct{}
	stopped   bool
}

// NewProbe constructs a Probe over the given platform.
func NewProbe(p platform.Platform, logger *slog.Logger, refreshInterval time.Duration) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	if refreshInterval <= 0 {
		refreshInterval = 30 * time.Second
	}
	return &Probe{
		platform:        p,
		logger:          logger,
		refreshInterval: refreshInterval,
		stopCh:          make(chan struct{}),
	}
}

// Detect returns the capability set, probing the platform on first call and
// serving the cached copy afterwards. Never fails: unreadable facilities
// fall back to conservative defaults.
func (p *Probe) Detect() models.CapabilitySet {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detected {
		return p.caps
	}
	p.caps = p.probeAll()
	p.detected = true
	return p.caps
}

// Monitor subscribes to capability refreshes. The callback receives a copy
// of the updated set whenever a volatile field changes. The first call
// starts the refresh loop.
func (p *Probe) Monitor(cb func(models.CapabilitySet)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	start := len(p.listeners) == 0 && !p.stopped
	p.listeners = append(p.listeners, cb)
	if start {
		go p.refreshLoop()
	}
}

// Close stops the refresh loop. Idempotent.
func (p *Probe) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.stopCh)
}

func (p *Probe) refreshLoop() {
	ticker := time.NewTicker(p.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.refreshVolatile()
		}
	}
}

func (p *Probe) refreshVolatile() {
	p.mu.Lock()
	if !p.detected {
		p.mu.Unlock()
		return
	}
	updated := p.caps
	changed := false

	if battery, err := p.platform.Battery(); err == nil {
		if battery.Level != updated.BatteryLevel || battery.Charging != updated.BatteryCharging {
			updated.BatteryLevel = battery.Level
			updated.BatteryCharging = battery.Charging
			updated.BatterySupported = true
			changed = true
		}
	}
	if network, err := p.platform.Network(); err == nil {
		class := classifyNetwork(network)
		if class != updated.NetworkClass || network.RTTMs != updated.NetworkRTTMs {
			updated.NetworkClass = class
			updated.NetworkRTTMs = network.RTTMs
			changed = true
		}
	}
	if prefs, err := p.platform.Preferences(); err == nil {
		if prefs.ReducedMotion != updated.ReducedMotion || prefs.DarkScheme != updated.DarkScheme {
			updated.ReducedMotion = prefs.ReducedMotion
			updated.DarkScheme = prefs.DarkScheme
			changed = true
		}
	}

	if changed {
		updated.LowEnd = classifyLowEnd(updated)
		p.caps = updated
	}
	listeners := make([]func(models.CapabilitySet), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	if changed {
		for _, cb := range listeners {
			cb(updated)
		}
	}
}

func (p *Probe) probeAll() models.CapabilitySet {
	caps := models.CapabilitySet{
		NetworkClass: models.NetworkUnknown,
		BatteryLevel: models.UnknownBatteryLevel,
		ImageFormats: []string{"png", "jpeg", "webp"},
		VideoCodecs:  []string{"h264", "vp9"},
		DetectedAt:   time.Now(),
	}

	if gpu, err := p.platform.GPU(); err == nil {
		caps.WebGL = gpu.WebGL
		caps.WebGL2 = gpu.WebGL2
		caps.GPUAccelerated = gpu.Accelerated
		caps.GPUVendor = gpu.Vendor
		caps.GPURenderer = gpu.Renderer
		caps.MaxTextureSize = gpu.MaxTextureSize
	} else {
		p.logger.Warn("gpu probe failed, assuming no acceleration", slog.Any("error", err))
		caps.MaxTextureSize = fallbackTextureMax
	}

	if mem, err := p.platform.Memory(); err == nil && mem.TotalGB > 0 {
		caps.DeviceMemoryGB = mem.TotalGB
	} else {
		caps.DeviceMemoryGB = fallbackMemoryGB
	}

	caps.LogicalCores = p.platform.LogicalCores()
	if caps.LogicalCores <= 0 {
		caps.LogicalCores = 2
	}
	caps.Mobile = p.platform.Mobile()

	if battery, err := p.platform.Battery(); err == nil {
		caps.BatteryLevel = battery.Level
		caps.BatteryCharging = battery.Charging
		caps.BatterySupported = true
	}
	if network, err := p.platform.Network(); err == nil {
		caps.NetworkClass = classifyNetwork(network)
		caps.NetworkRTTMs = network.RTTMs
	}
	if prefs, err := p.platform.Preferences(); err == nil {
		caps.ReducedMotion = prefs.ReducedMotion
		caps.DarkScheme = prefs.DarkScheme
	}

	caps.LowEnd = classifyLowEnd(caps)
	return caps
}

// classifyLowEnd applies the low-end device rule: any single condition
// suffices, there is no weighting.
func classifyLowEnd(caps models.CapabilitySet) bool {
	switch {
	case caps.DeviceMemoryGB < 4:
		return true
	case caps.LogicalCores < 4:
		return true
	case !caps.GPUAccelerated:
		return true
	case caps.Mobile && caps.NetworkClass.Slow():
		return true
	case caps.Mobile && caps.DeviceMemoryGB < 3:
		return true
	}
	return false
}

func classifyNetwork(info platform.NetworkInfo) models.NetworkClass {
	if info.Class != "" {
		return models.NetworkClass(info.Class)
	}
	switch {
	case info.RTTMs <= 0:
		return models.NetworkUnknown
	case info.RTTMs > 1400:
		return models.NetworkSlow2G
	case info.RTTMs > 700:
		return models.Network2G
	case info.RTTMs > 270:
		return models.Network3G
	default:
		return models.Network4G
	}
}
