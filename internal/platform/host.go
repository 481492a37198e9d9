package platform

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Host probes the local machine. Readings that the OS cannot supply return
// ErrUnavailable; the capability layer substitutes conservative defaults.
type Host struct {
	mu       sync.Mutex
	memTotal float64
	memOnce  bool
}

// NewHost constructs the default host platform.
func NewHost() *Host {
	return &Host{}
}

// GPU reports graphics capability. The host build has no GPU context of its
// own; acceleration is assumed present unless RENDERTUNE_NO_GPU is set,
// which lets deployments on headless boxes force the conservative path.
func (h *Host) GPU() (GPUInfo, error) {
	if os.Getenv("RENDERTUNE_NO_GPU") != "" {
		return GPUInfo{}, ErrUnavailable
	}
	info := GPUInfo{
		WebGL:          true,
		WebGL2:         true,
		Accelerated:    true,
		MaxTextureSize: 4096,
	}
	if v := os.Getenv("RENDERTUNE_GPU_VENDOR"); v != "" {
		info.Vendor = v
	}
	if r := os.Getenv("RENDERTUNE_GPU_RENDERER"); r != "" {
		info.Renderer = r
	}
	return info, nil
}

// Memory reads total memory from /proc/meminfo (cached) and current usage
// from the Go runtime.
func (h *Host) Memory() (MemoryInfo, error) {
	h.mu.Lock()
	if !h.memOnce {
		h.memTotal = readMemTotalGB()
		h.memOnce = true
	}
	total := h.memTotal
	h.mu.Unlock()

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	info := MemoryInfo{
		TotalGB: total,
		UsedMB:  float64(stats.HeapAlloc) / (1024 * 1024),
	}
	if total <= 0 {
		return info, ErrUnavailable
	}
	return info, nil
}

// Battery reads the first power-supply battery exposed by sysfs.
func (h *Host) Battery() (BatteryInfo, error) {
	entries, err := os.ReadDir("/sys/class/power_supply")
	if err != nil {
		return BatteryInfo{}, ErrUnavailable
	}
	for _, entry := range entries {
		base := "/sys/class/power_supply/" + entry.Name()
		capRaw, err := os.ReadFile(base + "/capacity")
		if err != nil {
			continue
		}
		pct, err := strconv.Atoi(strings.TrimSpace(string(capRaw)))
		if err != nil {
			continue
		}
		info := BatteryInfo{Level: float64(pct) / 100, ReadAt: time.Now()}
		if status, err := os.ReadFile(base + "/status"); err == nil {
			info.Charging = strings.TrimSpace(string(status)) == "Charging"
		}
		return info, nil
	}
	return BatteryInfo{}, ErrUnavailable
}

// Network has no passive probe on the host build; timing entries arrive via
// the engine's RecordNetworkTiming surface instead.
func (h *Host) Network() (NetworkInfo, error) {
	return NetworkInfo{}, ErrUnavailable
}

// Preferences reads presentation preferences from the environment.
func (h *Host) Preferences() (PreferenceInfo, error) {
	return PreferenceInfo{
		ReducedMotion: os.Getenv("RENDERTUNE_REDUCED_MOTION") != "",
		DarkScheme:    os.Getenv("RENDERTUNE_DARK_SCHEME") != "",
	}, nil
}

// LogicalCores reports the scheduler-visible core count.
func (h *Host) LogicalCores() int {
	return runtime.NumCPU()
}

// Mobile reports whether the host identifies as a mobile-class device.
func (h *Host) Mobile() bool {
	return os.Getenv("RENDERTUNE_MOBILE") != ""
}

func readMemTotalGB() float64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0
		}
		return kb / (1024 * 1024)
	}
	return 0
}
