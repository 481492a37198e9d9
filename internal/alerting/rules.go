package alerting

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vizstack/rendertune/internal/models"
)

// DefaultRules returns the built-in rule set covering the core health
// signals. Users override or extend these via a YAML rule pack.
func DefaultRules() []models.AlertRule {
	return []models.AlertRule{
		{
			ID:       "low-fps",
			Name:     "Low frame rate",
			Severity: models.SeverityWarning,
			Category: models.CategoryPerformance,
			Condition: models.AlertCondition{
				Type:     models.ConditionThreshold,
				Metric:   models.MetricFPS,
				Operator: models.OpLT,
				Value:    30,
				Duration: 3 * time.Second,
			},
			Cooldown:   30 * time.Second,
			MaxAlerts:  3,
			TimeWindow: 5 * time.Minute,
			Enabled:    true,
		},
		{
			ID:       "critical-fps",
			Name:     "Critical frame rate",
			Severity: models.SeverityCritical,
			Category: models.CategoryPerformance,
			Condition: models.AlertCondition{
				Type:     models.ConditionThreshold,
				Metric:   models.MetricFPS,
				Operator: models.OpLT,
				Value:    15,
			},
			Cooldown:   time.Minute,
			MaxAlerts:  2,
			TimeWindow: 5 * time.Minute,
			Enabled:    true,
		},
		{
			ID:       "memory-pressure",
			Name:     "Memory pressure",
			Severity: models.SeverityWarning,
			Category: models.CategoryMemory,
			Condition: models.AlertCondition{
				Type:     models.ConditionThreshold,
				Metric:   models.MetricMemory,
				Operator: models.OpGT,
				Value:    300,
			},
			Cooldown:   time.Minute,
			MaxAlerts:  3,
			TimeWindow: 10 * time.Minute,
			Adaptive:   true,
			Enabled:    true,
		},
		{
			ID:       "memory-growth",
			Name:     "Sustained memory growth",
			Severity: models.SeverityHigh,
			Category: models.CategoryMemory,
			Condition: models.AlertCondition{
				Type:   models.ConditionTrend,
				Metric: models.MetricMemory,
				Delta:  50,
				Window: 2 * time.Minute,
			},
			Cooldown:   2 * time.Minute,
			MaxAlerts:  2,
			TimeWindow: 10 * time.Minute,
			Enabled:    true,
		},
		{
			ID:       "gpu-saturated",
			Name:     "GPU budget saturated",
			Severity: models.SeverityWarning,
			Category: models.CategoryGPU,
			Condition: models.AlertCondition{
				Type:     models.ConditionThreshold,
				Metric:   models.MetricGPU,
				Operator: models.OpGTE,
				Value:    95,
				Duration: 5 * time.Second,
			},
			Cooldown:   time.Minute,
			MaxAlerts:  3,
			TimeWindow: 10 * time.Minute,
			Enabled:    true,
		},
		{
			ID:       "thermal-throttling",
			Name:     "Thermal throttling",
			Severity: models.SeverityHigh,
			Category: models.CategoryThermal,
			Condition: models.AlertCondition{
				Type:  models.ConditionPattern,
				Match: string(models.ThermalSerious),
			},
			Cooldown:   2 * time.Minute,
			MaxAlerts:  2,
			TimeWindow: 15 * time.Minute,
			Enabled:    true,
		},
		{
			ID:       "input-latency-anomaly",
			Name:     "Input latency anomaly",
			Severity: models.SeverityWarning,
			Category: models.CategoryInteraction,
			Condition: models.AlertCondition{
				Type:   models.ConditionAnomaly,
				Metric: models.MetricInputLatency,
			},
			Cooldown:   time.Minute,
			MaxAlerts:  3,
			TimeWindow: 10 * time.Minute,
			Enabled:    true,
		},
	}
}

// rulePackFile is the YAML root for user rule packs.
type rulePackFile struct {
	Rules []models.AlertRule `yaml:"rules"`
}

// LoadRulePack reads additional or overriding rules from a YAML file. A
// missing file is not an error; an unparsable one is.
func LoadRulePack(path string, logger *slog.Logger) ([]models.AlertRule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read rule pack: %w", err)
	}
	var pack rulePackFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse rule pack: %w", err)
	}
	if logger != nil {
		logger.Info("loaded alert rule pack", slog.String("path", path), slog.Int("rules", len(pack.Rules)))
	}
	return pack.Rules, nil
}

// categoryRecommendations maps alert categories onto remediation hints
// attached to fired events.
var categoryRecommendations = map[models.AlertCategory][]string{
	models.CategoryPerformance: {
		"Lower particle count or animation quality",
		"Switch the module to its Canvas2D fallback",
	},
	models.CategoryMemory: {
		"Deactivate background modules that are not visible",
		"Check for detached canvases holding GPU buffers",
	},
	models.CategoryGPU: {
		"Reduce shader complexity or texture resolution",
		"Cap the render loop below the display refresh rate",
	},
	models.CategoryBattery: {
		"Pause decorative animation until charging resumes",
	},
	models.CategoryThermal: {
		"Halve the frame rate target to let the device cool",
		"Suspend the most expensive active module",
	},
	models.CategoryNetwork: {
		"Defer asset prefetching while latency is elevated",
	},
	models.CategoryInteraction: {
		"Move heavy computation off the input handling path",
	},
}
