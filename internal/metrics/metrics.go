package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rendertune",
			Name:      "ticks_total",
			Help:      "Total number of telemetry aggregation ticks.",
		},
	)

	droppedSamplesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rendertune",
			Name:      "dropped_samples_total",
			Help:      "Total number of snapshots dropped by validation.",
		},
	)

	alertsFiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rendertune",
			Name:      "alerts_fired_total",
			Help:      "Total number of alerts fired, partitioned by severity.",
		},
		[]string{"severity"},
	)

	conflictsDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rendertune",
			Name:      "conflicts_detected_total",
			Help:      "Total number of resource conflicts detected, partitioned by type.",
		},
		[]string{"type"},
	)

	strategySwitchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rendertune",
			Name:      "strategy_switches_total",
			Help:      "Total number of rendering backend switches.",
		},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rendertune",
			Name:      "analysis_seconds",
			Help:      "Analysis pass latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)
)

// Register attaches rendertune collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		ticksTotal,
		droppedSamplesTotal,
		alertsFiredTotal,
		conflictsDetectedTotal,
		strategySwitchesTotal,
		analysisDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveTick counts one aggregation tick.
func ObserveTick() {
	ticksTotal.Inc()
}

// ObserveDroppedSample counts one snapshot rejected by validation.
func ObserveDroppedSample() {
	droppedSamplesTotal.Inc()
}

// ObserveAlert counts one fired alert by severity.
func ObserveAlert(severity string) {
	alertsFiredTotal.WithLabelValues(severity).Inc()
}

// ObserveConflict counts one detected resource conflict by type.
func ObserveConflict(conflictType string) {
	conflictsDetectedTotal.WithLabelValues(conflictType).Inc()
}

// ObserveStrategySwitch counts one rendering backend switch.
func ObserveStrategySwitch() {
	strategySwitchesTotal.Inc()
}

// ObserveAnalysis records the duration of one analysis pass.
func ObserveAnalysis(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}
