package models

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"time"

	// Registered for DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImagePrefix is the MIME prefix every ingested image must carry.
const ImagePrefix = "image/"

// RasterImage is an immutable encoded image buffer with its declared
// content type. The buffer is copied on the way in and on the way out.
type RasterImage struct {
	data []byte
	mime string
}

func NewRasterImage(data []byte, mime string) RasterImage {
	return RasterImage{
		data: bytes.Clone(data),
		mime: mime,
	}
}

// Bytes returns a copy of the encoded buffer.
func (r RasterImage) Bytes() []byte {
	return bytes.Clone(r.data)
}

func (r RasterImage) MIME() string { return r.mime }

func (r RasterImage) Len() int { return len(r.data) }

func (r RasterImage) IsZero() bool { return r.data == nil && r.mime == "" }

// Config decodes only the image header.
func (r RasterImage) Config() (ImageInfo, error) {
	return DecodeConfig(r.data)
}

// SavedImage is a record of the persistent store. Data is owned by the
// record and never aliases session buffers.
type SavedImage struct {
	ID        int64
	Data      []byte
	CreatedAt time.Time
}

// ImageInfo contains header information about an encoded image
type ImageInfo struct {
	Width  int
	Height int
	Format string
}

func (i ImageInfo) String() string {
	return fmt.Sprintf("%s %dx%d", i.Format, i.Width, i.Height)
}

// DecodeConfig reads dimensions and format from an encoded buffer without
// decoding pixel data.
func DecodeConfig(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	return ImageInfo{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}, nil
}

// IsImageType reports whether mime names an image content type. Parameters
// ("; charset=...") and case are ignored.
func IsImageType(mime string) bool {
	base, _, _ := strings.Cut(mime, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	return strings.HasPrefix(base, ImagePrefix) && len(base) > len(ImagePrefix)
}
