// Package geometry converts device-relative screen measurements into physical
// and angular units. All functions are pure and safe for concurrent use.
package geometry

import (
	"math"

	"github.com/gazekit/platform/internal/errors"
)

const (
	// CentimetersPerInch is the exact inch-to-centimeter conversion factor.
	CentimetersPerInch = 2.54

	// DefaultEyeToScreenDistanceCm is the assumed viewing distance when no
	// live estimate is available.
	DefaultEyeToScreenDistanceCm = 30.0

	degreesPerRadian = 180.0 / math.Pi
)

// DisplayProfile describes one physical device's display. Constant for a
// given device model; never mutated at runtime.
type DisplayProfile struct {
	PixelsPerInch float64 `json:"pixels_per_inch"`
	WidthMeters   float64 `json:"width_meters"`
	HeightMeters  float64 `json:"height_meters"`
}

// Validate checks that all profile fields are positive.
func (p DisplayProfile) Validate() error {
	if p.PixelsPerInch <= 0 {
		return errors.Newf(errors.InvalidDisplayProfile, "pixels per inch must be positive, got %g", p.PixelsPerInch)
	}
	if p.WidthMeters <= 0 || p.HeightMeters <= 0 {
		return errors.Newf(errors.InvalidDisplayProfile, "physical dimensions must be positive, got %gx%g m", p.WidthMeters, p.HeightMeters)
	}
	return nil
}

// ViewingContext holds the eye-to-screen distance used for angular
// conversions. May come from a sensor in the future; defaults to 30 cm.
type ViewingContext struct {
	EyeToScreenDistanceCm float64 `json:"eye_to_screen_distance_cm"`
}

// DefaultViewingContext returns the unmeasured default viewing context.
func DefaultViewingContext() ViewingContext {
	return ViewingContext{EyeToScreenDistanceCm: DefaultEyeToScreenDistanceCm}
}

// PointsToCentimeters converts a logical on-screen length in points to
// physical centimeters. scale is the display scale factor (pixels per point).
// Callers must supply non-negative magnitudes; negative input produces a
// negative, non-meaningful result rather than an error.
func PointsToCentimeters(points, scale float64, profile DisplayProfile) (float64, error) {
	if err := profile.Validate(); err != nil {
		return 0, err
	}
	if scale <= 0 {
		return 0, errors.Newf(errors.InvalidArgument, "display scale factor must be positive, got %g", scale)
	}
	pixels := points * scale
	inches := pixels / profile.PixelsPerInch
	return inches * CentimetersPerInch, nil
}

// CentimetersToDegrees converts a physical on-screen length to the visual
// angle it subtends at the eye: atan(cm / distance) in degrees. This is the
// exact arctangent definition used in eye-tracking accuracy reporting, not a
// small-angle approximation.
func CentimetersToDegrees(centimeters, eyeToScreenDistanceCm float64) (float64, error) {
	if eyeToScreenDistanceCm <= 0 {
		return 0, errors.Newf(errors.InvalidDistance, "eye-to-screen distance must be positive, got %g cm", eyeToScreenDistanceCm)
	}
	return math.Atan(centimeters/eyeToScreenDistanceCm) * degreesPerRadian, nil
}

// PointsToDegrees converts a screen-space length in points end to end into a
// visual angle in degrees. This is the composite pipeline consumed by the
// gaze accuracy reporting path.
func PointsToDegrees(points, scale float64, profile DisplayProfile, eyeToScreenDistanceCm float64) (float64, error) {
	cm, err := PointsToCentimeters(points, scale, profile)
	if err != nil {
		return 0, err
	}
	return CentimetersToDegrees(cm, eyeToScreenDistanceCm)
}
