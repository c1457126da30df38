// Package analysis computes attention metrics from gaze traces.
package analysis

// Attention score weights and thresholds.
const (
	BaseScore = 50.0

	// Duration scoring: 10-30 seconds is optimal.
	OptimalDurationMin   = 10.0
	OptimalDurationMax   = 30.0
	MaxDurationScore     = 25.0
	LongDurationPenalty  = 0.5 // per second beyond optimal
	MaxLongDurationLoss  = 15.0
	ShortDurationFactor  = 2.5 // per second below optimal

	// Stability contribution.
	StabilityWeight   = 0.3
	MaxStabilityScore = 20.0
	DefaultStability  = 50.0 // when too few movements to measure
	SpeedStdWeight    = 10.0

	// Data quality: full credit at 100 samples.
	QualityFullCreditPoints = 100.0
	MaxQualityScore         = 15.0

	// Movement-range scoring: 50-200 points average movement is plausible.
	PlausibleMovementMin = 50.0
	PlausibleMovementMax = 200.0
	MovementScore        = 10.0
	MovementMidpoint     = 125.0
	MovementPenalty      = 0.05

	MinScore = 1.0
	MaxScore = 100.0

	// MinSamples is the smallest trace that can be analyzed.
	MinSamples = 2
)

// Score description boundaries.
const (
	ExcellentThreshold = 85
	GoodThreshold      = 70
	ModerateThreshold  = 55
	WeakThreshold      = 40
)
