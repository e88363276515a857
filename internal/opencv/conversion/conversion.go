package conversion

import (
	"bytes"
	"fmt"
	"image"
	"runtime"
	"strings"

	"photo-filters/internal/opencv/safe"

	"gocv.io/x/gocv"

	// Registered for the Go decode fallback.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Output formats accepted by Encode.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

const jpegQuality = 95

// Decode reads any format OpenCV understands into an 8-bit BGR Mat. Data
// OpenCV cannot read is retried through the Go image decoders.
func Decode(data []byte) (*safe.Mat, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no image data")
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		mat.Close()
		return decodeWithGo(data)
	}

	result, err := safe.Adopt(mat)
	if err != nil {
		return nil, err
	}

	if err := safe.ValidateDimensions(result.Cols(), result.Rows(), "decode"); err != nil {
		result.Close()
		return nil, err
	}

	return result, nil
}

func decodeWithGo(data []byte) (*safe.Mat, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode failed: unrecognised image data")
	}
	if err := safe.ValidateDimensions(cfg.Width, cfg.Height, "decode"); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return ImageToMat(img)
}

// Encode writes src in the given format and returns a Go-owned copy.
func Encode(src *safe.Mat, format string) ([]byte, error) {
	if err := safe.ValidateMatForOperation(src, "encode"); err != nil {
		return nil, err
	}

	var (
		buf *gocv.NativeByteBuffer
		err error
	)

	switch strings.ToLower(format) {
	case FormatPNG:
		buf, err = gocv.IMEncode(gocv.PNGFileExt, src.GetMat())
	case FormatJPEG, "jpg":
		buf, err = gocv.IMEncodeWithParams(gocv.JPEGFileExt, src.GetMat(), []int{int(gocv.IMWriteJpegQuality), jpegQuality})
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s failed: %w", format, err)
	}
	defer buf.Close()

	return bytes.Clone(buf.GetBytes()), nil
}

// ContentType maps an output format onto its MIME type.
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

// FromBGR builds a Mat from packed BGR rows. The data is copied.
func FromBGR(rows, cols int, data []byte) (*safe.Mat, error) {
	if err := safe.ValidateDimensions(cols, rows, "FromBGR"); err != nil {
		return nil, err
	}
	if len(data) != rows*cols*3 {
		return nil, fmt.Errorf("expected %d bytes for %dx%d BGR, got %d", rows*cols*3, cols, rows, len(data))
	}

	view, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return nil, fmt.Errorf("Mat creation failed: %w", err)
	}
	defer view.Close()

	// view may alias data; the clone does not.
	result, err := safe.NewMatFromMat(view)
	runtime.KeepAlive(data)
	return result, err
}

// ImageToMat converts any image into a BGR Mat, dropping alpha.
func ImageToMat(img image.Image) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	data := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			i := (y*width + x) * 3
			data[i] = uint8(b >> 8)
			data[i+1] = uint8(g >> 8)
			data[i+2] = uint8(r >> 8)
		}
	}

	return FromBGR(height, width, data)
}
