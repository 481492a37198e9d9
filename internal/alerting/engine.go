// Package alerting evaluates alert rules against the snapshot stream and
// manages the lifecycle of fired events, including cooldown, fatigue and
// dismissal-driven suppression.
package alerting

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vizstack/rendertune/internal/models"
	"github.com/vizstack/rendertune/internal/threshold"
	"github.com/vizstack/rendertune/internal/utils"
)

const (
	defaultHistorySize    = 200
	maxDismissSuppression = time.Hour
)

// ruleState tracks the per-rule alert state machine:
// idle -> candidate -> fired -> cooling-down -> idle.
type ruleState struct {
	rule            models.AlertRule
	candidateSince  time.Time
	candidate       bool
	firedAt         []time.Time
	suppressedUntil time.Time
	dismissals      int
}

// Engine is the alert rule evaluator. All mutation happens under one lock;
// callers receive copies of events and rules.
type Engine struct {
	logger     *slog.Logger
	thresholds *threshold.Manager
	clock      utils.Clock

	mu          sync.Mutex
	rules       map[string]*ruleState
	history     []models.AlertEvent
	historySize int
}

// NewEngine constructs an Engine seeded with the given rules. Later rules
// with duplicate IDs override earlier ones, which lets a user pack override
// built-in defaults.
func NewEngine(rules []models.AlertRule, thresholds *threshold.Manager, clock utils.Clock, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	e := &Engine{
		logger:      logger,
		thresholds:  thresholds,
		clock:       clock,
		rules:       make(map[string]*ruleState, len(rules)),
		historySize: defaultHistorySize,
	}
	for _, r := range rules {
		e.rules[r.ID] = &ruleState{rule: r}
	}
	return e
}

// Evaluate runs every enabled rule against the snapshot and returns the
// events fired this pass. history is the recent snapshot suffix used by
// trend conditions, oldest-first.
func (e *Engine) Evaluate(snap models.Snapshot, history []models.Snapshot, caps models.CapabilitySet) []models.AlertEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var fired []models.AlertEvent

	ids := make([]string, 0, len(e.rules))
	for id := range e.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		st := e.rules[id]
		if !st.rule.Enabled {
			st.candidate = false
			continue
		}

		holds := e.conditionHolds(st.rule, snap, history)
		if !holds {
			st.candidate = false
			continue
		}

		if !st.candidate {
			st.candidate = true
			st.candidateSince = now
		}
		if hold := st.rule.Condition.Duration; hold > 0 && now.Sub(st.candidateSince) < hold {
			continue
		}
		if now.Before(st.suppressedUntil) {
			continue
		}

		// Fatigue prevention: once the firing budget inside the window is
		// exhausted the rule is silenced for twice its cooldown. Checked
		// before firing so the budget is a hard bound.
		if st.rule.MaxAlerts > 0 && st.rule.TimeWindow > 0 {
			cutoff := now.Add(-st.rule.TimeWindow)
			recent := st.firedAt[:0]
			for _, t := range st.firedAt {
				if t.After(cutoff) {
					recent = append(recent, t)
				}
			}
			st.firedAt = recent
			if len(recent) >= st.rule.MaxAlerts {
				until := now.Add(2 * st.rule.Cooldown)
				if until.After(st.suppressedUntil) {
					st.suppressedUntil = until
				}
				continue
			}
		}

		event := e.fire(st, snap, caps, now)
		fired = append(fired, event)
	}
	return fired
}

func (e *Engine) fire(st *ruleState, snap models.Snapshot, caps models.CapabilitySet, now time.Time) models.AlertEvent {
	event := models.AlertEvent{
		ID:        uuid.NewString(),
		RuleID:    st.rule.ID,
		Timestamp: now,
		Severity:  st.rule.Severity,
		Category:  st.rule.Category,
		Message:   e.message(st.rule, snap),
		Context: models.AlertContext{
			Snapshot:     snap,
			Capabilities: caps,
			ActiveModule: snap.ModuleID,
		},
		Recommendations: categoryRecommendations[st.rule.Category],
	}

	e.history = append(e.history, event)
	if len(e.history) > e.historySize {
		e.history = e.history[len(e.history)-e.historySize:]
	}

	st.candidate = false
	st.firedAt = append(st.firedAt, now)
	st.suppressedUntil = now.Add(st.rule.Cooldown)

	e.logger.Info("alert fired",
		slog.String("rule", st.rule.ID),
		slog.String("severity", string(st.rule.Severity)),
		slog.String("message", event.Message))
	return event
}

func (e *Engine) conditionHolds(rule models.AlertRule, snap models.Snapshot, history []models.Snapshot) bool {
	cond := rule.Condition
	switch cond.Type {
	case models.ConditionThreshold:
		value, ok := snap.MetricValue(cond.Metric)
		if !ok {
			return false
		}
		limit := cond.Value
		if rule.Adaptive && e.thresholds != nil {
			if adaptive := e.thresholds.Warning(cond.Metric); adaptive > limit {
				limit = adaptive
			}
		}
		return compare(cond.Operator, value, limit)

	case models.ConditionTrend:
		if cond.Window <= 0 || len(history) == 0 {
			return false
		}
		value, ok := snap.MetricValue(cond.Metric)
		if !ok {
			return false
		}
		cutoff := snap.Timestamp.Add(-cond.Window)
		for _, past := range history {
			if past.Timestamp.Before(cutoff) {
				continue
			}
			earlier, ok := past.MetricValue(cond.Metric)
			if !ok {
				return false
			}
			change := value - earlier
			if change < 0 {
				change = -change
			}
			return change > cond.Delta
		}
		return false

	case models.ConditionPattern:
		return string(snap.ThermalState) == cond.Match

	case models.ConditionAnomaly:
		if e.thresholds == nil {
			return false
		}
		value, ok := snap.MetricValue(cond.Metric)
		if !ok {
			return false
		}
		return e.thresholds.IsAnomaly(cond.Metric, value)
	}
	return false
}

func (e *Engine) message(rule models.AlertRule, snap models.Snapshot) string {
	cond := rule.Condition
	switch cond.Type {
	case models.ConditionThreshold:
		value, _ := snap.MetricValue(cond.Metric)
		return fmt.Sprintf("%s: %s is %.1f (limit %.1f)", rule.Name, cond.Metric, value, cond.Value)
	case models.ConditionTrend:
		return fmt.Sprintf("%s: %s changed more than %.1f within %s", rule.Name, cond.Metric, cond.Delta, cond.Window)
	case models.ConditionPattern:
		return fmt.Sprintf("%s: state %q observed", rule.Name, cond.Match)
	case models.ConditionAnomaly:
		value, _ := snap.MetricValue(cond.Metric)
		return fmt.Sprintf("%s: %s value %.1f deviates from baseline", rule.Name, cond.Metric, value)
	}
	return rule.Name
}

// Acknowledge marks the event as seen. Idempotent; unknown IDs are ignored.
func (e *Engine) Acknowledge(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.history {
		if e.history[i].ID == id {
			e.history[i].Acknowledged = true
			return true
		}
	}
	return false
}

// Dismiss marks the event dismissed and extends the rule's suppression
// exponentially with each dismissal, capped at one hour. Idempotent.
func (e *Engine) Dismiss(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.history {
		if e.history[i].ID != id {
			continue
		}
		if e.history[i].Dismissed {
			return true
		}
		e.history[i].Dismissed = true

		st, ok := e.rules[e.history[i].RuleID]
		if !ok {
			return true
		}
		st.dismissals++
		suppression := st.rule.Cooldown << uint(st.dismissals)
		if suppression > maxDismissSuppression || suppression <= 0 {
			suppression = maxDismissSuppression
		}
		until := e.clock.Now().Add(suppression)
		if until.After(st.suppressedUntil) {
			st.suppressedUntil = until
		}
		return true
	}
	return false
}

// History returns a copy of the retained events, oldest-first.
func (e *Engine) History() []models.AlertEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.AlertEvent(nil), e.history...)
}

// SetRuleEnabled toggles a rule. Unknown IDs are ignored.
func (e *Engine) SetRuleEnabled(id string, enabled bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.rules[id]
	if !ok {
		return false
	}
	st.rule.Enabled = enabled
	return true
}

// UpsertRule adds or replaces a rule definition, resetting its state.
func (e *Engine) UpsertRule(rule models.AlertRule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules[rule.ID] = &ruleState{rule: rule}
}

// Rules returns a copy of the current rule definitions.
func (e *Engine) Rules() []models.AlertRule {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.AlertRule, 0, len(e.rules))
	for _, st := range e.rules {
		out = append(out, st.rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func compare(op models.Operator, value, limit float64) bool {
	switch op {
	case models.OpGT:
		return value > limit
	case models.OpGTE:
		return value >= limit
	case models.OpLT:
		return value < limit
	case models.OpLTE:
		return value <= limit
	case models.OpEQ:
		return value == limit
	}
	return false
}
