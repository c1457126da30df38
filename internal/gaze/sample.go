// Package gaze defines gaze sample types and the CSV interchange format.
package gaze

import "math"

// Sample is one gaze estimate in screen space.
type Sample struct {
	Elapsed float64 `json:"t"` // seconds since recording start
	X       float64 `json:"x"` // points
	Y       float64 `json:"y"` // points
}

// Trace is an ordered sequence of samples from one recording.
type Trace []Sample

// Duration returns elapsed time between first and last sample.
func (t Trace) Duration() float64 {
	if len(t) == 0 {
		return 0
	}
	min, max := t[0].Elapsed, t[0].Elapsed
	for _, s := range t[1:] {
		if s.Elapsed < min {
			min = s.Elapsed
		}
		if s.Elapsed > max {
			max = s.Elapsed
		}
	}
	return max - min
}

// Distance returns the euclidean screen-space distance between two samples.
func Distance(a, b Sample) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Bounds returns the bounding box of the trace as x-range and y-range.
func (t Trace) Bounds() (xRange, yRange float64) {
	if len(t) == 0 {
		return 0, 0
	}
	minX, maxX := t[0].X, t[0].X
	minY, maxY := t[0].Y, t[0].Y
	for _, s := range t[1:] {
		minX = math.Min(minX, s.X)
		maxX = math.Max(maxX, s.X)
		minY = math.Min(minY, s.Y)
		maxY = math.Max(maxY, s.Y)
	}
	return maxX - minX, maxY - minY
}
