package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"photo-filters/internal/logger"
	"photo-filters/internal/models"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/storage"
	"github.com/gabriel-vasile/mimetype"
)

// Loader is the part of a session that accepts new images.
type Loader interface {
	Load(ctx context.Context, data []byte, mime string) (models.RasterImage, error)
}

// ImageService adapts ingestion surfaces (file picker, drag and drop, CLI
// paths, clipboard) to a session load.
type ImageService struct {
	session Loader
	logger  logger.Logger
}

func NewImageService(session Loader, log logger.Logger) *ImageService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ImageService{
		session: session,
		logger:  log,
	}
}

// LoadFromReader loads an image handed over by a fyne file dialog or drop
// target. The reader is closed.
func (is *ImageService) LoadFromReader(ctx context.Context, reader fyne.URIReadCloser) (models.RasterImage, error) {
	defer reader.Close()

	select {
	case <-ctx.Done():
		return models.RasterImage{}, ctx.Err()
	default:
	}

	data, err := io.ReadAll(bufio.NewReader(reader))
	if err != nil {
		return models.RasterImage{}, fmt.Errorf("failed to read image data: %w", err)
	}

	return is.LoadFromBytes(ctx, data, guessedType(reader.URI()))
}

// LoadFromFile loads an image from a local path.
func (is *ImageService) LoadFromFile(ctx context.Context, path string) (models.RasterImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.RasterImage{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return is.LoadFromBytes(ctx, data, guessedType(storage.NewFileURI(path)))
}

// LoadFromBytes loads raw bytes with a declared content type. A declared
// type is passed on as is; only an empty one is sniffed from the content.
func (is *ImageService) LoadFromBytes(ctx context.Context, data []byte, declared string) (models.RasterImage, error) {
	mime := declared
	if strings.TrimSpace(declared) == "" && len(data) > 0 {
		mime = mimetype.Detect(data).String()
		is.logger.Debug("ImageService", "content type sniffed", map[string]interface{}{
			"declared": declared,
			"detected": mime,
		})
	}

	return is.session.Load(ctx, data, mime)
}

// guessedType returns the extension-derived type of uri, or "" when fyne
// fell back to text/plain or application/octet-stream for an unknown
// extension.
func guessedType(uri fyne.URI) string {
	if uri == nil {
		return ""
	}
	guess := uri.MimeType()
	base, _, _ := strings.Cut(guess, ";")
	switch strings.ToLower(strings.TrimSpace(base)) {
	case "", "application/octet-stream", "text/plain":
		return ""
	default:
		return guess
	}
}
