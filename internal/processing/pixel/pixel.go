// Package pixel holds the per-pixel colour formulas shared by the transform
// engines. Channels are floats in 0..255; callers clamp with Clamp.
package pixel

import "math"

// Func maps one RGB pixel.
type Func func(r, g, b float64) (float64, float64, float64)

// Tints lists the zero-argument colour filters by name.
var Tints = map[string]Func{
	"pinkify":     Pinkify,
	"blueify":     Blueify,
	"sepia":       Sepia,
	"vintage":     Vintage,
	"technicolor": Technicolor,
}

func Pinkify(r, g, b float64) (float64, float64, float64) {
	return r + 60, g - 10, b + 40
}

func Blueify(r, g, b float64) (float64, float64, float64) {
	return r - 20, g + 10, b + 70
}

func Sepia(r, g, b float64) (float64, float64, float64) {
	return 0.393*r + 0.769*g + 0.189*b,
		0.349*r + 0.686*g + 0.168*b,
		0.272*r + 0.534*g + 0.131*b
}

// Vintage is a faded, partial sepia with lifted blacks.
func Vintage(r, g, b float64) (float64, float64, float64) {
	sr, sg, sb := Sepia(r, g, b)
	fade := func(orig, toned float64) float64 {
		return (0.4*orig+0.6*math.Min(toned, 255))*0.85 + 25
	}
	return fade(r, sr), fade(g, sg), fade(b, sb)
}

func Technicolor(r, g, b float64) (float64, float64, float64) {
	return 1.3*r - 0.15*g - 0.15*b,
		1.2*g - 0.1*r - 0.1*b,
		1.2*b - 0.1*r - 0.1*g
}

// Luma is the BT.601 weighting OpenCV uses for BGR to grey.
func Luma(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// ContrastFactor returns the gain for a contrast amount; zero gives 1.
// The matching offset is 128*(1-factor).
func ContrastFactor(amount float64) float64 {
	return (259 * (amount + 255)) / (255 * (259 - amount))
}

// Vignette returns the brightness factor for pixel (x, y) of a cols x rows
// image at the given strength. The centre keeps factor 1.
func Vignette(x, y, cols, rows int, strength float64) float64 {
	cx := float64(cols-1) / 2
	cy := float64(rows-1) / 2
	reach := math.Hypot(cx, cy)
	if reach == 0 {
		reach = 1
	}

	d := math.Hypot(float64(x)-cx, float64(y)-cy) / reach
	return math.Max(0, 1-strength*0.55*d*d)
}

// BlurKernel maps a blur radius onto an odd kernel size; 0 means no blur.
func BlurKernel(radius float64) int {
	r := int(math.Round(radius))
	if r <= 0 {
		return 0
	}
	return 2*r + 1
}

func Clamp(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}
