// Package trend computes least-squares trend estimates over metric
// histories. All entry points are pure functions over immutable sample
// slices, so repeated calls on the same input yield identical results.
package trend

import (
	"math"
	"time"
)

// Point is one (timestamp, value) observation.
type Point struct {
	At    time.Time
	Value float64
}

// Direction labels the overall movement of a series.
type Direction string

const (
	DirectionImproving Direction = "improving"
	DirectionDeclining Direction = "declining"
	DirectionStable    Direction = "stable"
)

// Significance buckets the confidence of a trend estimate.
type Significance string

const (
	SignificanceHigh   Significance = "high"
	SignificanceMedium Significance = "medium"
	SignificanceLow    Significance = "low"
)

// slopeDeadZone is the per-day slope magnitude below which a series counts
// as stable.
const slopeDeadZone = 0.1

// Result summarises a trend computation. Direction follows the sign of the
// slope: rising values report improving, falling values declining. Callers
// tracking lower-is-better metrics interpret accordingly.
type Result struct {
	Direction        Direction    `json:"direction"`
	SlopePerDay      float64      `json:"ratePerDay"`
	Confidence       float64      `json:"confidence"` // |Pearson r|, 0..1
	Significance     Significance `json:"significance"`
	ProjectedIn7Days float64      `json:"projectedValueIn7Days"`
}

// Analyze fits an ordinary least-squares line through the samples. Fewer
// than three points yields a stable, zero-confidence result rather than an
// error.
func Analyze(samples []Point) Result {
	if len(samples) < 3 {
		return Result{Direction: DirectionStable, Significance: SignificanceLow}
	}

	slopePerSec, intercept, r := fit(samples)
	slopePerDay := slopePerSec * 86400

	direction := DirectionStable
	if slopePerDay > slopeDeadZone {
		direction = DirectionImproving
	} else if slopePerDay < -slopeDeadZone {
		direction = DirectionDeclining
	}

	confidence := math.Abs(r)
	lastX := samples[len(samples)-1].At.Sub(samples[0].At).Seconds()
	projected := intercept + slopePerSec*(lastX+7*86400)

	return Result{
		Direction:        direction,
		SlopePerDay:      slopePerDay,
		Confidence:       confidence,
		Significance:     significanceFor(confidence),
		ProjectedIn7Days: projected,
	}
}

// LeakReport is the outcome of memory-leak detection.
type LeakReport struct {
	HasLeaks   bool    `json:"hasLeaks"`
	SlopeMBps  float64 `json:"slopeMBps"`
	Confidence float64 `json:"confidence"` // percent, 0..100
}

// leakGrowthMB is the minimum sustained per-sample growth considered a
// leak. At a one-second sampling cadence this equals 0.1 MB/s; at slower
// cadences the gate scales so the same per-sample growth still trips it.
const leakGrowthMB = 0.1

// DetectLeaks flags sustained memory growth: per-sample growth above
// 0.1 MB with regression confidence above 70%.
func DetectLeaks(samples []Point) LeakReport {
	if len(samples) < 3 {
		return LeakReport{}
	}
	slopePerSec, _, r := fit(samples)
	confidence := math.Abs(r) * 100

	span := samples[len(samples)-1].At.Sub(samples[0].At).Seconds()
	meanInterval := span / float64(len(samples)-1)
	growthPerSample := slopePerSec * meanInterval

	return LeakReport{
		HasLeaks:   growthPerSample > leakGrowthMB && confidence > 70,
		SlopeMBps:  slopePerSec,
		Confidence: confidence,
	}
}

// fit returns the OLS slope per second, intercept and Pearson correlation.
// X values are seconds since the first sample.
func fit(samples []Point) (slope, intercept, r float64) {
	n := float64(len(samples))
	base := samples[0].At

	var sumX, sumY, sumXY, sumXX, sumYY float64
	for _, p := range samples {
		x := p.At.Sub(base).Seconds()
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumXX += x * x
		sumYY += p.Value * p.Value
	}

	denomX := n*sumXX - sumX*sumX
	if denomX == 0 {
		return 0, sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / denomX
	intercept = (sumY - slope*sumX) / n

	denomY := n*sumYY - sumY*sumY
	if denomY <= 0 {
		// Zero variance in Y: a perfectly flat series carries no
		// correlation evidence.
		return slope, intercept, 0
	}
	r = (n*sumXY - sumX*sumY) / math.Sqrt(denomX*denomY)
	return slope, intercept, r
}

func significanceFor(confidence float64) Significance {
	switch {
	case confidence > 0.7:
		return SignificanceHigh
	case confidence > 0.5:
		return SignificanceMedium
	default:
		return SignificanceLow
	}
}
