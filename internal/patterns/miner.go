// Package patterns mines the alert event history for recurring and
// cascading structure, producing predictions the UI can surface.
package patterns

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/vizstack/rendertune/internal/models"
)

const (
	// minEvents gates pattern search: fewer events per rule carry no signal.
	minEvents = 3
	// maxIntervalCoV is the coefficient-of-variation ceiling below which
	// inter-event intervals count as periodic.
	maxIntervalCoV = 0.2
	// minRecurringConfidence filters weak periodicity findings.
	minRecurringConfidence = 0.7
	// cascadeWindow is how long after a primary event secondary alerts are
	// attributed to it.
	cascadeWindow = 30 * time.Second
	// minCascadeEvents is the secondary-alert count required per primary.
	minCascadeEvents = 3
)

// Miner analyses alert history. Stateless between runs: each Mine pass
// supersedes the previous pattern set wholesale.
type Miner struct {
	logger *slog.Logger
}

// NewMiner constructs a Miner.
func NewMiner(logger *slog.Logger) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{logger: logger}
}

// Mine groups events by rule and extracts recurring and cascade patterns.
// Events may arrive in any order; they are sorted by timestamp first.
func (m *Miner) Mine(events []models.AlertEvent) []models.AlertPattern {
	if len(events) == 0 {
		return nil
	}

	sorted := append([]models.AlertEvent(nil), events...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	byRule := make(map[string][]models.AlertEvent)
	for _, ev := range sorted {
		byRule[ev.RuleID] = append(byRule[ev.RuleID], ev)
	}

	var patterns []models.AlertPattern
	for ruleID, ruleEvents := range byRule {
		if len(ruleEvents) < minEvents {
			continue
		}
		if p, ok := recurringPattern(ruleID, ruleEvents); ok {
			patterns = append(patterns, p)
		}
		if p, ok := cascadePattern(ruleID, ruleEvents, sorted); ok {
			patterns = append(patterns, p)
		}
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Confidence != patterns[j].Confidence {
			return patterns[i].Confidence > patterns[j].Confidence
		}
		return patterns[i].RuleID < patterns[j].RuleID
	})
	return patterns
}

// recurringPattern flags low-variance inter-event intervals as periodic and
// predicts the next occurrence.
func recurringPattern(ruleID string, events []models.AlertEvent) (models.AlertPattern, bool) {
	intervals := make([]float64, 0, len(events)-1)
	for i := 1; i < len(events); i++ {
		intervals = append(intervals, events[i].Timestamp.Sub(events[i-1].Timestamp).Seconds())
	}

	mean := 0.0
	for _, v := range intervals {
		mean += v
	}
	mean /= float64(len(intervals))
	if mean <= 0 {
		return models.AlertPattern{}, false
	}

	variance := 0.0
	for _, v := range intervals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(intervals))
	cov := math.Sqrt(variance) / mean
	if cov >= maxIntervalCoV {
		return models.AlertPattern{}, false
	}

	confidence := 1 - cov
	if confidence < minRecurringConfidence {
		return models.AlertPattern{}, false
	}

	meanInterval := time.Duration(mean * float64(time.Second))
	last := events[len(events)-1].Timestamp
	return models.AlertPattern{
		Kind:          models.PatternRecurring,
		RuleID:        ruleID,
		Occurrences:   len(events),
		MeanInterval:  meanInterval,
		Confidence:    confidence,
		NextPredicted: last.Add(meanInterval),
		Description:   fmt.Sprintf("%s recurs about every %s", ruleID, meanInterval.Round(time.Second)),
	}, true
}

// cascadePattern flags rules whose firings are reliably followed by a burst
// of other rules' alerts inside the cascade window.
func cascadePattern(ruleID string, primaries []models.AlertEvent, all []models.AlertEvent) (models.AlertPattern, bool) {
	cascadeCount := 0
	followers := make(map[string]struct{})

	for _, primary := range primaries {
		windowEnd := primary.Timestamp.Add(cascadeWindow)
		secondary := 0
		for _, ev := range all {
			if ev.RuleID == ruleID {
				continue
			}
			if ev.Timestamp.After(primary.Timestamp) && !ev.Timestamp.After(windowEnd) {
				secondary++
				followers[ev.RuleID] = struct{}{}
			}
		}
		if secondary >= minCascadeEvents {
			cascadeCount++
		}
	}
	if cascadeCount == 0 {
		return models.AlertPattern{}, false
	}

	confidence := float64(cascadeCount) / float64(len(primaries))
	if confidence > 0.9 {
		confidence = 0.9
	}

	ids := make([]string, 0, len(followers))
	for id := range followers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return models.AlertPattern{
		Kind:           models.PatternCascade,
		RuleID:         ruleID,
		Occurrences:    len(primaries),
		Confidence:     confidence,
		CascadeRuleIDs: ids,
		Description:    fmt.Sprintf("%s triggers follow-on alerts within %s", ruleID, cascadeWindow),
	}, true
}
