package engine

import (
	"photo-filters/internal/opencv/conversion"
	"photo-filters/internal/opencv/safe"
	"photo-filters/internal/processing/pixel"
)

type tint struct {
	name string
	fn   pixel.Func
}

func newTint(name string, fn pixel.Func) *tint {
	return &tint{name: name, fn: fn}
}

func (t *tint) Name() string {
	return t.name
}

func (t *tint) Apply(src *safe.Mat, _ float64) (*safe.Mat, error) {
	return mapPixels(src, t.name, func(_, _ int, r, g, b float64) (float64, float64, float64) {
		return t.fn(r, g, b)
	})
}

// Vignette darkens towards the corners. Strength scales the falloff.
type Vignette struct{}

func NewVignette() *Vignette {
	return &Vignette{}
}

func (v *Vignette) Name() string {
	return "vignette"
}

func (v *Vignette) Apply(src *safe.Mat, strength float64) (*safe.Mat, error) {
	rows, cols := src.Rows(), src.Cols()
	return mapPixels(src, "vignette", func(x, y int, r, g, b float64) (float64, float64, float64) {
		factor := pixel.Vignette(x, y, cols, rows, strength)
		return r * factor, g * factor, b * factor
	})
}

func mapPixels(src *safe.Mat, operation string, fn func(x, y int, r, g, b float64) (float64, float64, float64)) (*safe.Mat, error) {
	if err := safe.ValidateBGR(src, operation); err != nil {
		return nil, err
	}

	rows, cols := src.Rows(), src.Cols()
	data, err := src.Bytes()
	if err != nil {
		return nil, err
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := (y*cols + x) * 3
			r, g, b := fn(x, y, float64(data[i+2]), float64(data[i+1]), float64(data[i]))
			data[i] = pixel.Clamp(b)
			data[i+1] = pixel.Clamp(g)
			data[i+2] = pixel.Clamp(r)
		}
	}

	return conversion.FromBGR(rows, cols, data)
}
