// Package display supplies per-device display characteristics behind a
// capability interface so the conversion core never queries a platform layer.
package display

import (
	"sort"
	"sync"

	"github.com/gazekit/platform/internal/errors"
	"github.com/gazekit/platform/internal/geometry"
)

// Orientation is the device interface orientation.
type Orientation int

const (
	Portrait Orientation = iota
	PortraitUpsideDown
	LandscapeLeft
	LandscapeRight
)

func (o Orientation) String() string {
	switch o {
	case Portrait:
		return "portrait"
	case PortraitUpsideDown:
		return "portrait-upside-down"
	case LandscapeLeft:
		return "landscape-left"
	case LandscapeRight:
		return "landscape-right"
	default:
		return "unknown"
	}
}

// Info describes the display a gaze trace was recorded on.
type Info struct {
	Model       string                  `json:"model"`
	Profile     geometry.DisplayProfile `json:"profile"`
	Scale       float64                 `json:"scale"`
	Orientation Orientation             `json:"orientation"`
}

// Validate checks profile and scale.
func (i Info) Validate() error {
	if err := i.Profile.Validate(); err != nil {
		return err
	}
	if i.Scale <= 0 {
		return errors.Newf(errors.InvalidArgument, "display scale factor must be positive, got %g", i.Scale)
	}
	return nil
}

// SizePoints returns the display's physical extent expressed in logical
// points, derived from its metric dimensions, pixel density, and scale.
func (i Info) SizePoints() (width, height float64) {
	const metersPerInch = 0.0254
	width = i.Profile.WidthMeters / metersPerInch * i.Profile.PixelsPerInch / i.Scale
	height = i.Profile.HeightMeters / metersPerInch * i.Profile.PixelsPerInch / i.Scale
	return width, height
}

// Provider supplies display info for the current device.
type Provider interface {
	Info() (Info, error)
}

// StaticProvider returns a fixed Info, typically resolved from config.
type StaticProvider struct {
	info Info
}

// NewStaticProvider creates a provider that always returns info.
func NewStaticProvider(info Info) (*StaticProvider, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return &StaticProvider{info: info}, nil
}

// Info returns the fixed display info.
func (p *StaticProvider) Info() (Info, error) {
	return p.info, nil
}

// Registry maps device model names to display info.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Info
}

// NewRegistry creates a registry seeded with known device models.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]Info)}
	for model, info := range knownModels {
		r.profiles[model] = info
	}
	return r
}

// Lookup returns display info for a model name.
func (r *Registry) Lookup(model string) (Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.profiles[model]
	if !ok {
		return Info{}, errors.Newf(errors.NotFound, "unknown device model %q", model)
	}
	return info, nil
}

// Register adds or replaces a model entry.
func (r *Registry) Register(info Info) error {
	if info.Model == "" {
		return errors.New(errors.InvalidArgument, "device model name required")
	}
	if err := info.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.profiles[info.Model] = info
	r.mu.Unlock()
	return nil
}

// Models returns all registered model names, sorted.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	models := make([]string, 0, len(r.profiles))
	for m := range r.profiles {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// knownModels holds physical display characteristics per device model.
// Measured portrait dimensions of the active display area.
var knownModels = map[string]Info{
	"iphone-14-pro": {
		Model:   "iphone-14-pro",
		Profile: geometry.DisplayProfile{PixelsPerInch: 460, WidthMeters: 0.0647, HeightMeters: 0.1411},
		Scale:   3,
	},
	"iphone-14": {
		Model:   "iphone-14",
		Profile: geometry.DisplayProfile{PixelsPerInch: 460, WidthMeters: 0.0644, HeightMeters: 0.1393},
		Scale:   3,
	},
	"iphone-se-3": {
		Model:   "iphone-se-3",
		Profile: geometry.DisplayProfile{PixelsPerInch: 326, WidthMeters: 0.0585, HeightMeters: 0.1040},
		Scale:   2,
	},
	"ipad-pro-11": {
		Model:   "ipad-pro-11",
		Profile: geometry.DisplayProfile{PixelsPerInch: 264, WidthMeters: 0.1605, HeightMeters: 0.2294},
		Scale:   2,
	},
}
