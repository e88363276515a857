package engine

import (
	"fmt"
	"image"

	"photo-filters/internal/opencv/safe"
	"photo-filters/internal/processing/pixel"

	"gocv.io/x/gocv"
)

type Grayscale struct{}

func NewGrayscale() *Grayscale {
	return &Grayscale{}
}

func (g *Grayscale) Name() string {
	return "grayscale"
}

// Apply keeps three channels so every filter sees the same layout.
func (g *Grayscale) Apply(src *safe.Mat, _ float64) (*safe.Mat, error) {
	if err := safe.ValidateBGR(src, "grayscale"); err != nil {
		return nil, err
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src.GetMat(), &gray, gocv.ColorBGRToGray)

	out := gocv.NewMat()
	gocv.CvtColor(gray, &out, gocv.ColorGrayToBGR)
	return safe.Adopt(out)
}

type Invert struct{}

func NewInvert() *Invert {
	return &Invert{}
}

func (i *Invert) Name() string {
	return "invert"
}

func (i *Invert) Apply(src *safe.Mat, _ float64) (*safe.Mat, error) {
	if err := safe.ValidateBGR(src, "invert"); err != nil {
		return nil, err
	}

	out := gocv.NewMat()
	gocv.BitwiseNot(src.GetMat(), &out)
	return safe.Adopt(out)
}

// GaussianBlur treats its parameter as a radius in pixels.
type GaussianBlur struct{}

func NewGaussianBlur() *GaussianBlur {
	return &GaussianBlur{}
}

func (g *GaussianBlur) Name() string {
	return "blur"
}

func (g *GaussianBlur) Apply(src *safe.Mat, radius float64) (*safe.Mat, error) {
	if err := safe.ValidateBGR(src, "blur"); err != nil {
		return nil, err
	}

	kernelSize := pixel.BlurKernel(radius)
	if kernelSize == 0 {
		return src.Clone()
	}

	dst, err := safe.NewMat(src.Rows(), src.Cols(), src.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	dstMat := dst.GetMat()
	gocv.GaussianBlur(src.GetMat(), &dstMat, image.Point{X: kernelSize, Y: kernelSize}, 0, 0, gocv.BorderDefault)

	return dst, nil
}

// Brighten adds its parameter to every channel, saturating at 0 and 255.
type Brighten struct{}

func NewBrighten() *Brighten {
	return &Brighten{}
}

func (b *Brighten) Name() string {
	return "brighten"
}

func (b *Brighten) Apply(src *safe.Mat, amount float64) (*safe.Mat, error) {
	return linear(src, "brighten", 1, amount)
}

// Contrast stretches channels around mid-grey. Zero leaves the image as is.
type Contrast struct{}

func NewContrast() *Contrast {
	return &Contrast{}
}

func (c *Contrast) Name() string {
	return "contrast"
}

func (c *Contrast) Apply(src *safe.Mat, amount float64) (*safe.Mat, error) {
	factor := pixel.ContrastFactor(amount)
	return linear(src, "contrast", factor, 128*(1-factor))
}

func linear(src *safe.Mat, operation string, alpha, beta float64) (*safe.Mat, error) {
	if err := safe.ValidateBGR(src, operation); err != nil {
		return nil, err
	}

	srcMat := src.GetMat()
	out := gocv.NewMat()
	srcMat.ConvertToWithParams(&out, gocv.MatTypeCV8UC3, float32(alpha), float32(beta))
	return safe.Adopt(out)
}
