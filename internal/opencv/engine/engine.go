package engine

import (
	"fmt"
	"sort"
	"sync"

	"photo-filters/internal/opencv/conversion"
	"photo-filters/internal/opencv/safe"
	"photo-filters/internal/processing/pixel"
)

// Transform is one named pixel operation over an 8-bit BGR Mat. Apply never
// modifies src and returns a Mat the caller must Close.
type Transform interface {
	Name() string
	Apply(src *safe.Mat, param float64) (*safe.Mat, error)
}

// Engine decodes, transforms and re-encodes images with OpenCV.
type Engine struct {
	format      string
	contentType string

	mu         sync.RWMutex
	transforms map[string]Transform
}

func New(format string) (*Engine, error) {
	contentType, err := conversion.ContentType(format)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		format:      format,
		contentType: contentType,
		transforms:  make(map[string]Transform),
	}

	for _, t := range DefaultTransforms() {
		if err := e.Register(t); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func DefaultTransforms() []Transform {
	return []Transform{
		NewGrayscale(),
		NewInvert(),
		newTint("pinkify", pixel.Pinkify),
		newTint("blueify", pixel.Blueify),
		newTint("sepia", pixel.Sepia),
		newTint("vintage", pixel.Vintage),
		newTint("technicolor", pixel.Technicolor),
		NewGaussianBlur(),
		NewBrighten(),
		NewContrast(),
		NewVignette(),
	}
}

func (e *Engine) Register(t Transform) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.transforms[t.Name()]; exists {
		return fmt.Errorf("transform %s already registered", t.Name())
	}
	e.transforms[t.Name()] = t
	return nil
}

func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.transforms))
	for name := range e.transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) ContentType() string {
	return e.contentType
}

func (e *Engine) Transform(name string, input []byte, param float64) ([]byte, error) {
	e.mu.RLock()
	t, ok := e.transforms[name]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported filter %q", name)
	}

	src, err := conversion.Decode(input)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst, err := t.Apply(src, param)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	defer dst.Close()

	return conversion.Encode(dst, e.format)
}
