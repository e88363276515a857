// Package raster is a pure-Go transform engine. It implements the same
// filter set as the OpenCV engine on decoded Go images and is the engine
// for builds where cgo is unavailable.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"sort"
	"strings"

	// Registered for Decode.
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"
)

const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"

	jpegQuality  = 95
	maxDimension = 32768
)

// Op maps src to a new image. It must not modify src.
type Op func(src *image.NRGBA, param float64) *image.NRGBA

type Engine struct {
	format      string
	contentType string
	ops         map[string]Op
}

func New(format string) (*Engine, error) {
	contentType, err := ContentType(format)
	if err != nil {
		return nil, err
	}

	return &Engine{
		format:      strings.ToLower(format),
		contentType: contentType,
		ops:         defaultOps(),
	}, nil
}

func (e *Engine) ContentType() string {
	return e.contentType
}

func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.ops))
	for name := range e.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) Transform(name string, input []byte, param float64) ([]byte, error) {
	op, ok := e.ops[name]
	if !ok {
		return nil, fmt.Errorf("unsupported filter %q", name)
	}

	src, err := Decode(input)
	if err != nil {
		return nil, err
	}

	return Encode(op(src, param), e.format)
}

// Decode reads any registered format into an opaque NRGBA image with its
// origin at zero. Alpha is discarded.
func Decode(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, errors.New("no image data")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || b.Dx() > maxDimension || b.Dy() > maxDimension {
		return nil, fmt.Errorf("invalid dimensions %dx%d for operation: decode", b.Dx(), b.Dy())
	}

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst, nil
}

func Encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode %s failed: %w", format, err)
		}
	case FormatJPEG, "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode %s failed: %w", format, err)
		}
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	return buf.Bytes(), nil
}

func ContentType(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatPNG:
		return "image/png", nil
	case FormatJPEG, "jpg":
		return "image/jpeg", nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}
