package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"photo-filters/internal/commonerr"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type uriReader struct {
	io.Reader
	uri    fyne.URI
	closed bool
}

func (r *uriReader) URI() fyne.URI { return r.uri }
func (r *uriReader) Close() error {
	r.closed = true
	return nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("device removed") }

func newImageService(t *testing.T) (*ImageService, *FilterSession) {
	t.Helper()
	session, _, _ := newSession(t)
	return NewImageService(session, nil), session
}

func TestLoadFromReaderUsesURIType(t *testing.T) {
	svc, session := newImageService(t)
	data := pngBytes(t)

	reader := &uriReader{Reader: bytes.NewReader(data), uri: storage.NewFileURI("/photos/cat.png")}
	img, err := svc.LoadFromReader(context.Background(), reader)
	require.NoError(t, err)

	assert.True(t, reader.closed)
	assert.Equal(t, "image/png", img.MIME())
	assert.Equal(t, data, session.Original().Bytes())
}

func TestLoadFromReaderPropagatesReadErrors(t *testing.T) {
	svc, session := newImageService(t)

	reader := &uriReader{Reader: failingReader{}, uri: storage.NewFileURI("/photos/cat.png")}
	_, err := svc.LoadFromReader(context.Background(), reader)
	assert.Error(t, err)
	assert.True(t, reader.closed)
	assert.Equal(t, "empty", session.State().String())
}

func TestLoadFromFile(t *testing.T) {
	svc, _ := newImageService(t)
	dir := t.TempDir()
	data := pngBytes(t)

	named := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(named, data, 0644))
	img, err := svc.LoadFromFile(context.Background(), named)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIME())

	unnamed := filepath.Join(dir, "photo.unknownext")
	require.NoError(t, os.WriteFile(unnamed, data, 0644))
	img, err = svc.LoadFromFile(context.Background(), unnamed)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIME(), "content is sniffed when the extension says nothing")

	_, err = svc.LoadFromFile(context.Background(), filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestLoadFromBytesSniffsUndeclaredContent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newImageService(t)
	data := pngBytes(t)

	img, err := svc.LoadFromBytes(ctx, data, "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIME())

	img, err = svc.LoadFromBytes(ctx, []byte("raw"), "image/x-custom")
	require.NoError(t, err)
	assert.Equal(t, "image/x-custom", img.MIME(), "declared image types are trusted")

	_, err = svc.LoadFromBytes(ctx, []byte("just some text"), "")
	assert.ErrorIs(t, err, commonerr.ErrInvalidInput)
}

func TestLoadFromBytesRejectsDeclaredNonImageTypes(t *testing.T) {
	ctx := context.Background()
	svc, session := newImageService(t)
	data := pngBytes(t)

	for _, declared := range []string{"text/plain", "application/octet-stream", "application/pdf"} {
		t.Run(declared, func(t *testing.T) {
			_, err := svc.LoadFromBytes(ctx, data, declared)
			assert.ErrorIs(t, err, commonerr.ErrInvalidInput)
			assert.Equal(t, "empty", session.State().String())
		})
	}
}

func TestLoadFromReaderSniffsUnknownExtension(t *testing.T) {
	svc, _ := newImageService(t)
	data := pngBytes(t)

	reader := &uriReader{Reader: bytes.NewReader(data), uri: storage.NewFileURI("/photos/cat.unknownext")}
	img, err := svc.LoadFromReader(context.Background(), reader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIME())
}
