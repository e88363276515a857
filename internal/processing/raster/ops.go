package raster

import (
	"image"
	"math"

	"photo-filters/internal/processing/pixel"
)

func defaultOps() map[string]Op {
	ops := map[string]Op{
		"grayscale": grayscale,
		"invert":    invert,
		"blur":      gaussianBlur,
		"brighten":  brighten,
		"contrast":  contrast,
		"vignette":  vignette,
	}
	for name, fn := range pixel.Tints {
		ops[name] = tint(fn)
	}
	return ops
}

func mapPixels(src *image.NRGBA, fn func(x, y int, r, g, b float64) (float64, float64, float64)) *image.NRGBA {
	dst := image.NewNRGBA(src.Rect)
	w := src.Rect.Dx()
	for y := 0; y < src.Rect.Dy(); y++ {
		for x := 0; x < w; x++ {
			i := y*src.Stride + x*4
			r, g, b := fn(x, y, float64(src.Pix[i]), float64(src.Pix[i+1]), float64(src.Pix[i+2]))
			dst.Pix[i] = pixel.Clamp(r)
			dst.Pix[i+1] = pixel.Clamp(g)
			dst.Pix[i+2] = pixel.Clamp(b)
			dst.Pix[i+3] = 0xff
		}
	}
	return dst
}

func tint(fn pixel.Func) Op {
	return func(src *image.NRGBA, _ float64) *image.NRGBA {
		return mapPixels(src, func(_, _ int, r, g, b float64) (float64, float64, float64) {
			return fn(r, g, b)
		})
	}
}

// grayscale keeps three equal channels.
func grayscale(src *image.NRGBA, _ float64) *image.NRGBA {
	return mapPixels(src, func(_, _ int, r, g, b float64) (float64, float64, float64) {
		v := math.Round(pixel.Luma(r, g, b))
		return v, v, v
	})
}

func invert(src *image.NRGBA, _ float64) *image.NRGBA {
	return mapPixels(src, func(_, _ int, r, g, b float64) (float64, float64, float64) {
		return 255 - r, 255 - g, 255 - b
	})
}

func brighten(src *image.NRGBA, amount float64) *image.NRGBA {
	return linear(src, 1, amount)
}

func contrast(src *image.NRGBA, amount float64) *image.NRGBA {
	factor := pixel.ContrastFactor(amount)
	return linear(src, factor, 128*(1-factor))
}

func linear(src *image.NRGBA, alpha, beta float64) *image.NRGBA {
	return mapPixels(src, func(_, _ int, r, g, b float64) (float64, float64, float64) {
		return alpha*r + beta, alpha*g + beta, alpha*b + beta
	})
}

func vignette(src *image.NRGBA, strength float64) *image.NRGBA {
	cols, rows := src.Rect.Dx(), src.Rect.Dy()
	return mapPixels(src, func(x, y int, r, g, b float64) (float64, float64, float64) {
		factor := pixel.Vignette(x, y, cols, rows, strength)
		return r * factor, g * factor, b * factor
	})
}

// gaussianBlur is separable, with the sigma OpenCV derives from the kernel
// size and a reflect-101 border.
func gaussianBlur(src *image.NRGBA, radius float64) *image.NRGBA {
	size := pixel.BlurKernel(radius)
	if size == 0 {
		dst := image.NewNRGBA(src.Rect)
		copy(dst.Pix, src.Pix)
		return dst
	}

	kernel := gaussianKernel(size)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	half := size / 2

	tmp := make([]float64, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [3]float64
			for k := -half; k <= half; k++ {
				i := y*src.Stride + reflect101(x+k, w)*4
				for c := 0; c < 3; c++ {
					acc[c] += kernel[k+half] * float64(src.Pix[i+c])
				}
			}
			copy(tmp[(y*w+x)*3:], acc[:])
		}
	}

	dst := image.NewNRGBA(src.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [3]float64
			for k := -half; k <= half; k++ {
				j := (reflect101(y+k, h)*w + x) * 3
				for c := 0; c < 3; c++ {
					acc[c] += kernel[k+half] * tmp[j+c]
				}
			}
			i := y*dst.Stride + x*4
			for c := 0; c < 3; c++ {
				dst.Pix[i+c] = pixel.Clamp(acc[c])
			}
			dst.Pix[i+3] = 0xff
		}
	}
	return dst
}

func gaussianKernel(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	half := size / 2
	kernel := make([]float64, size)
	var sum float64
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
