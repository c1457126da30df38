package analysis

import (
	"math"

	"github.com/gazekit/platform/internal/display"
	"github.com/gazekit/platform/internal/errors"
	"github.com/gazekit/platform/internal/gaze"
	"github.com/gazekit/platform/internal/geometry"
)

// Metrics holds screen-space statistics for a gaze trace.
type Metrics struct {
	TotalPoints     int     `json:"total_points"`
	DurationSeconds float64 `json:"duration_seconds"`
	AverageMovement float64 `json:"average_movement"` // points between consecutive samples
	TotalMovement   float64 `json:"total_movement"`   // points
	StabilityScore  float64 `json:"stability_score"`  // 0-100
	CoverageArea    float64 `json:"coverage_area"`    // points squared
}

// Angular re-expresses movement in physical and visual-angle units.
type Angular struct {
	AverageMovementCm      float64 `json:"average_movement_cm"`
	AverageMovementDegrees float64 `json:"average_movement_degrees"`
	TotalMovementCm        float64 `json:"total_movement_cm"`
	ViewingDistanceCm      float64 `json:"viewing_distance_cm"`
}

// Result is a complete trace analysis.
type Result struct {
	Score   int      `json:"score"`
	Metrics Metrics  `json:"analysis"`
	Angular *Angular `json:"angular,omitempty"`
	Message string   `json:"message"`
}

// Analyze computes screen-space metrics and the attention score for a trace.
func Analyze(trace gaze.Trace) (*Result, error) {
	if len(trace) < MinSamples {
		return nil, errors.Newf(errors.InvalidTrace, "need at least %d samples, got %d", MinSamples, len(trace))
	}

	m := computeMetrics(trace)
	score := attentionScore(m)
	return &Result{
		Score:   score,
		Metrics: m,
		Message: "Analysis completed: " + Description(score),
	}, nil
}

// AnalyzeWithDisplay additionally converts movement into physical centimeters
// and visual-angle degrees for the given display and viewing distance.
func AnalyzeWithDisplay(trace gaze.Trace, info display.Info, viewingDistanceCm float64) (*Result, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}

	result, err := Analyze(trace)
	if err != nil {
		return nil, err
	}

	avgCm, err := geometry.PointsToCentimeters(result.Metrics.AverageMovement, info.Scale, info.Profile)
	if err != nil {
		return nil, err
	}
	avgDeg, err := geometry.CentimetersToDegrees(avgCm, viewingDistanceCm)
	if err != nil {
		return nil, err
	}
	totalCm, err := geometry.PointsToCentimeters(result.Metrics.TotalMovement, info.Scale, info.Profile)
	if err != nil {
		return nil, err
	}

	result.Angular = &Angular{
		AverageMovementCm:      avgCm,
		AverageMovementDegrees: avgDeg,
		TotalMovementCm:        totalCm,
		ViewingDistanceCm:      viewingDistanceCm,
	}
	return result, nil
}

func computeMetrics(trace gaze.Trace) Metrics {
	distances := make([]float64, 0, len(trace)-1)
	total := 0.0
	for i := 1; i < len(trace); i++ {
		d := gaze.Distance(trace[i-1], trace[i])
		distances = append(distances, d)
		total += d
	}

	avg := 0.0
	if len(distances) > 0 {
		avg = total / float64(len(distances))
	}

	xRange, yRange := trace.Bounds()

	return Metrics{
		TotalPoints:     len(trace),
		DurationSeconds: trace.Duration(),
		AverageMovement: avg,
		TotalMovement:   total,
		StabilityScore:  stability(trace, distances),
		CoverageArea:    xRange * yRange,
	}
}

// stability measures how steady the gaze velocity is: 100 minus the scaled
// population standard deviation of point-to-point speeds, floored at 0.
// Traces with fewer than two movements get a neutral default.
func stability(trace gaze.Trace, distances []float64) float64 {
	if len(distances) < 2 {
		return DefaultStability
	}

	speeds := make([]float64, 0, len(distances))
	for i, d := range distances {
		dt := trace[i+1].Elapsed - trace[i].Elapsed
		if dt <= 0 {
			continue
		}
		speeds = append(speeds, d/dt)
	}
	if len(speeds) < 2 {
		return DefaultStability
	}

	return math.Max(0, 100-math.Min(stddev(speeds)*SpeedStdWeight, 100))
}

func stddev(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		dev := v - mean
		variance += dev * dev
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// attentionScore combines duration, stability, data quality, and movement
// plausibility into a 1-100 score.
func attentionScore(m Metrics) int {
	var durationScore float64
	switch {
	case m.DurationSeconds >= OptimalDurationMin && m.DurationSeconds <= OptimalDurationMax:
		durationScore = MaxDurationScore
	case m.DurationSeconds > OptimalDurationMax:
		durationScore = MaxDurationScore - math.Min((m.DurationSeconds-OptimalDurationMax)*LongDurationPenalty, MaxLongDurationLoss)
	default:
		durationScore = m.DurationSeconds * ShortDurationFactor
	}

	stabilityScore := math.Min(m.StabilityScore*StabilityWeight, MaxStabilityScore)
	qualityScore := math.Min(float64(m.TotalPoints)/QualityFullCreditPoints, 1) * MaxQualityScore

	var movementScore float64
	if m.AverageMovement >= PlausibleMovementMin && m.AverageMovement <= PlausibleMovementMax {
		movementScore = MovementScore
	} else {
		movementScore = math.Max(MovementScore-math.Abs(m.AverageMovement-MovementMidpoint)*MovementPenalty, 0)
	}

	total := BaseScore + durationScore + stabilityScore + qualityScore + movementScore
	return int(math.Max(MinScore, math.Min(MaxScore, total)))
}

// Description maps a score to its human-readable summary.
func Description(score int) string {
	switch {
	case score >= ExcellentThreshold:
		return "Excellent attention patterns"
	case score >= GoodThreshold:
		return "Good attention stability"
	case score >= ModerateThreshold:
		return "Moderate attention focus"
	case score >= WeakThreshold:
		return "Needs attention improvement"
	default:
		return "Poor attention patterns"
	}
}
