// Package heatmap renders gaze density images and deduplicates successive
// frames using perceptual hashing.
package heatmap

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/corona10/goimagehash"

	"github.com/gazekit/platform/internal/errors"
	"github.com/gazekit/platform/internal/gaze"
)

const (
	// DefaultWidth and DefaultHeight are the rendered image dimensions.
	DefaultWidth  = 256
	DefaultHeight = 256

	// DefaultMaxHashDistance is the pHash Hamming distance at or below which
	// two frames are considered the same.
	DefaultMaxHashDistance = 8
)

// Renderer accumulates gaze samples into a density image.
type Renderer struct {
	width  int
	height int
}

// NewRenderer creates a renderer with the given output dimensions.
// Non-positive dimensions fall back to the defaults.
func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Renderer{width: width, height: height}
}

// Render maps samples from a screen of screenW x screenH points onto the
// output grid and colors cells by visit density. When screen dimensions are
// not positive they are derived from the trace bounds.
func (r *Renderer) Render(trace gaze.Trace, screenW, screenH float64) (*image.RGBA, error) {
	if len(trace) == 0 {
		return nil, errors.New(errors.InvalidTrace, "cannot render empty trace")
	}

	minX, minY := 0.0, 0.0
	if screenW <= 0 || screenH <= 0 {
		minX, minY, screenW, screenH = traceExtent(trace)
	}

	counts := make([]float64, r.width*r.height)
	maxCount := 0.0
	for _, s := range trace {
		px := cellIndex(s.X-minX, screenW, r.width)
		py := cellIndex(s.Y-minY, screenH, r.height)
		if px < 0 || px >= r.width || py < 0 || py >= r.height {
			continue
		}
		// Splat onto the cell and its 8-neighborhood for mild smoothing.
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				x, y := px+dx, py+dy
				if x < 0 || x >= r.width || y < 0 || y >= r.height {
					continue
				}
				weight := 1.0
				if dx != 0 || dy != 0 {
					weight = 0.25
				}
				idx := y*r.width + x
				counts[idx] += weight
				if counts[idx] > maxCount {
					maxCount = counts[idx]
				}
			}
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	for y := 0; y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			img.SetRGBA(x, y, densityColor(counts[y*r.width+x], maxCount))
		}
	}
	return img, nil
}

// cellIndex maps an offset within extent onto a grid of cells. An offset
// exactly on the far edge lands in the last cell rather than falling off it.
func cellIndex(offset, extent float64, cells int) int {
	idx := int(offset / extent * float64(cells))
	if idx == cells && offset == extent {
		return cells - 1
	}
	return idx
}

// traceExtent returns the bounding box of a trace with a minimal extent so a
// stationary gaze still maps into the grid.
func traceExtent(trace gaze.Trace) (minX, minY, w, h float64) {
	minX, minY = trace[0].X, trace[0].Y
	maxX, maxY := minX, minY
	for _, s := range trace[1:] {
		minX = math.Min(minX, s.X)
		maxX = math.Max(maxX, s.X)
		minY = math.Min(minY, s.Y)
		maxY = math.Max(maxY, s.Y)
	}
	w = math.Max(maxX-minX, 1)
	h = math.Max(maxY-minY, 1)
	return minX, minY, w, h
}

// densityColor maps normalized density onto a cold-to-hot gradient.
func densityColor(count, maxCount float64) color.RGBA {
	if maxCount == 0 || count == 0 {
		return color.RGBA{R: 16, G: 16, B: 48, A: 255}
	}
	t := count / maxCount
	return color.RGBA{
		R: uint8(255 * t),
		G: uint8(64 * (1 - math.Abs(2*t-1))),
		B: uint8(255 * (1 - t)),
		A: 255,
	}
}

// EncodePNG serializes an image as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "encoding heatmap PNG")
	}
	return buf.Bytes(), nil
}

// Deduper skips frames perceptually similar to the previous one.
type Deduper struct {
	mu          sync.Mutex
	lastHash    *goimagehash.ImageHash
	maxDistance int
}

// NewDeduper creates a deduper; maxDistance <= 0 uses the default threshold.
func NewDeduper(maxDistance int) *Deduper {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxHashDistance
	}
	return &Deduper{maxDistance: maxDistance}
}

// Changed reports whether img differs perceptually from the previous frame.
// Hash failures count as changed so frames are never silently dropped.
func (d *Deduper) Changed(img image.Image) bool {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastHash == nil {
		d.lastHash = hash
		return true
	}

	dist, err := d.lastHash.Distance(hash)
	if err != nil {
		d.lastHash = hash
		return true
	}
	if dist <= d.maxDistance {
		return false
	}
	d.lastHash = hash
	return true
}
