// Package threshold maintains adaptive warning and critical cutoffs that
// track each metric's own baseline and variance instead of fixed limits.
package threshold

import (
	"math"
	"sync"
	"time"

	"github.com/vizstack/rendertune/internal/models"
)

const (
	defaultLearningRate = 0.1
	defaultWindow       = 100
	minSamples          = 10
	criticalFactor      = 1.5
	warningSigma        = 2
	anomalySigma        = 3
)

// Adaptive is the published view of one metric's threshold state.
type Adaptive struct {
	Metric     models.MetricKind `json:"metric"`
	Baseline   float64           `json:"baseline"`
	StdDev     float64           `json:"stdDev"`
	Warning    float64           `json:"warning"`
	Critical   float64           `json:"critical"`
	Samples    int               `json:"samples"`
	LastUpdate time.Time         `json:"lastUpdate"`
}

type metricState struct {
	baseline   float64
	seeded     bool
	window     []float64
	lastUpdate time.Time
}

// Manager owns the per-metric adaptive threshold state. Entries are created
// lazily on the first sample and bounded by the rolling window; they are
// never explicitly destroyed.
type Manager struct {
	mu           sync.RWMutex
	learningRate float64
	windowSize   int
	static       map[models.MetricKind]float64
	state        map[models.MetricKind]*metricState
}

// NewManager constructs a Manager with the given static warning floors.
// learningRate and windowSize fall back to defaults when non-positive.
func NewManager(static map[models.MetricKind]float64, learningRate float64, windowSize int) *Manager {
	if learningRate <= 0 || learningRate >= 1 {
		learningRate = defaultLearningRate
	}
	if windowSize <= 0 {
		windowSize = defaultWindow
	}
	floors := make(map[models.MetricKind]float64, len(static))
	for k, v := range static {
		floors[k] = v
	}
	return &Manager{
		learningRate: learningRate,
		windowSize:   windowSize,
		static:       floors,
		state:        make(map[models.MetricKind]*metricState),
	}
}

// Observe feeds one sample into the metric's baseline and variance window.
func (m *Manager) Observe(metric models.MetricKind, value float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.state[metric]
	if !ok {
		st = &metricState{}
		m.state[metric] = st
	}
	if !st.seeded {
		st.baseline = value
		st.seeded = true
	} else {
		st.baseline = st.baseline*(1-m.learningRate) + value*m.learningRate
	}
	st.window = append(st.window, value)
	if len(st.window) > m.windowSize {
		st.window = st.window[len(st.window)-m.windowSize:]
	}
	st.lastUpdate = at
}

// Warning returns the adaptive warning threshold for the metric. Until the
// minimum sample count is reached this is the static floor; afterwards it is
// baseline + 2 standard deviations, never below the floor.
func (m *Manager) Warning(metric models.MetricKind) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.warningLocked(metric)
}

// Critical returns 1.5x the warning threshold.
func (m *Manager) Critical(metric models.MetricKind) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.warningLocked(metric) * criticalFactor
}

// IsAnomaly reports whether the value sits beyond three standard deviations
// of the adaptive baseline. Always false before the minimum sample count.
func (m *Manager) IsAnomaly(metric models.MetricKind, value float64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.state[metric]
	if !ok || len(st.window) < minSamples {
		return false
	}
	sd := stdDev(st.window)
	if sd == 0 {
		return false
	}
	return math.Abs(value-st.baseline) > anomalySigma*sd
}

// Snapshot returns the published state of every tracked metric.
func (m *Manager) Snapshot() []Adaptive {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Adaptive, 0, len(m.state))
	for metric, st := range m.state {
		warning := m.warningLocked(metric)
		out = append(out, Adaptive{
			Metric:     metric,
			Baseline:   st.baseline,
			StdDev:     stdDev(st.window),
			Warning:    warning,
			Critical:   warning * criticalFactor,
			Samples:    len(st.window),
			LastUpdate: st.lastUpdate,
		})
	}
	return out
}

func (m *Manager) warningLocked(metric models.MetricKind) float64 {
	floor := m.static[metric]
	st, ok := m.state[metric]
	if !ok || len(st.window) < minSamples {
		return floor
	}
	adaptive := st.baseline + warningSigma*stdDev(st.window)
	if adaptive < floor {
		return floor
	}
	return adaptive
}

// stdDev computes the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
