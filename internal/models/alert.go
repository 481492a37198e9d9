package models

import "time"

// AlertCategory groups rules by the subsystem they watch.
type AlertCategory string

const (
	CategoryPerformance AlertCategory = "performance"
	CategoryMemory      AlertCategory = "memory"
	CategoryGPU         AlertCategory = "gpu"
	CategoryBattery     AlertCategory = "battery"
	CategoryThermal     AlertCategory = "thermal"
	CategoryNetwork     AlertCategory = "network"
	CategoryInteraction AlertCategory = "interaction"
)

// ConditionType selects how a rule condition is evaluated.
type ConditionType string

const (
	ConditionThreshold ConditionType = "threshold"
	ConditionTrend     ConditionType = "trend"
	ConditionPattern   ConditionType = "pattern"
	ConditionAnomaly   ConditionType = "anomaly"
)

// Operator is the comparison applied by threshold conditions.
type Operator string

const (
	OpGT  Operator = "gt"
	OpGTE Operator = "gte"
	OpLT  Operator = "lt"
	OpLTE Operator = "lte"
	OpEQ  Operator = "eq"
)

// AlertCondition describes what a rule tests on each snapshot.
type AlertCondition struct {
	Type     ConditionType `json:"type" yaml:"type"`
	Metric   MetricKind    `json:"metric" yaml:"metric"`
	Operator Operator      `json:"operator,omitempty" yaml:"operator"`
	Value    float64       `json:"value,omitempty" yaml:"value"`
	// Pattern conditions match a categorical state, e.g. a thermal tier.
	Match string `json:"match,omitempty" yaml:"match"`
	// Trend conditions fire when the absolute change across the window
	// exceeds Delta.
	Delta    float64       `json:"delta,omitempty" yaml:"delta"`
	Window   time.Duration `json:"window,omitempty" yaml:"window"`
	Duration time.Duration `json:"duration,omitempty" yaml:"duration"`
}

// AlertRule is a static but user-overridable alert definition.
type AlertRule struct {
	ID         string         `json:"id" yaml:"id"`
	Name       string         `json:"name" yaml:"name"`
	Condition  AlertCondition `json:"condition" yaml:"condition"`
	Severity   Severity       `json:"severity" yaml:"severity"`
	Category   AlertCategory  `json:"category" yaml:"category"`
	Cooldown   time.Duration  `json:"cooldown" yaml:"cooldown"`
	MaxAlerts  int            `json:"maxAlerts" yaml:"maxAlerts"`
	TimeWindow time.Duration  `json:"timeWindow" yaml:"timeWindow"`
	Adaptive   bool           `json:"adaptive" yaml:"adaptive"`
	Enabled    bool           `json:"enabled" yaml:"enabled"`
}

// AlertContext captures the state surrounding a firing.
type AlertContext struct {
	Snapshot     Snapshot      `json:"snapshot"`
	Capabilities CapabilitySet `json:"capabilities"`
	ActiveModule string        `json:"activeModule,omitempty"`
}

// AlertEvent records a single rule firing. Acknowledge/dismiss are the only
// mutations after creation; both are terminal and idempotent.
type AlertEvent struct {
	ID              string        `json:"id"`
	RuleID          string        `json:"ruleId"`
	Timestamp       time.Time     `json:"timestamp"`
	Severity        Severity      `json:"severity"`
	Category        AlertCategory `json:"category"`
	Message         string        `json:"message"`
	Context         AlertContext  `json:"context"`
	Recommendations []string      `json:"recommendations,omitempty"`
	Acknowledged    bool          `json:"acknowledged"`
	Dismissed       bool          `json:"dismissed"`
}

// PatternKind distinguishes mined alert patterns.
type PatternKind string

const (
	PatternRecurring PatternKind = "recurring"
	PatternCascade   PatternKind = "cascade"
)

// AlertPattern is a derived, read-only summary of recurring or cascading
// alert groups. Superseded wholesale on each analysis pass.
type AlertPattern struct {
	Kind           PatternKind   `json:"kind"`
	RuleID         string        `json:"ruleId"`
	Occurrences    int           `json:"occurrences"`
	MeanInterval   time.Duration `json:"meanInterval,omitempty"`
	Confidence     float64       `json:"confidence"`
	NextPredicted  time.Time     `json:"nextPredicted,omitempty"`
	CascadeRuleIDs []string      `json:"cascadeRuleIds,omitempty"`
	Description    string        `json:"description"`
}
