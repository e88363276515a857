package services

import (
	"context"
	"errors"

	"photo-filters/internal/commonerr"
	"photo-filters/internal/events"
	"photo-filters/internal/logger"
	"photo-filters/internal/models"
)

const galleryComponent = "GalleryService"

// ImageStore is the persistence contract the gallery works against.
type ImageStore interface {
	Save(ctx context.Context, data []byte) (int64, error)
	Get(ctx context.Context, id int64) (models.SavedImage, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]models.SavedImage, error)
}

// GalleryService saves session results and drives the saved image list.
type GalleryService struct {
	store  ImageStore
	logger logger.Logger
	events events.Publisher
}

func NewGalleryService(store ImageStore, log logger.Logger, bus events.Publisher) *GalleryService {
	if log == nil {
		log = logger.NewNop()
	}
	return &GalleryService{
		store:  store,
		logger: log,
		events: bus,
	}
}

// Snapshotter is the session surface SaveCurrent reads.
type Snapshotter interface {
	Snapshot() models.Snapshot
}

// SaveCurrent persists the session's current image. State and image come
// from one snapshot, so a concurrent filter cannot split them.
func (g *GalleryService) SaveCurrent(ctx context.Context, session Snapshotter) (int64, error) {
	snap := session.Snapshot()
	if snap.State != models.StateLoaded || snap.Current.IsZero() {
		err := &commonerr.NotLoadedError{Op: "save"}
		g.publish(events.SaveFailed, map[string]interface{}{"error": err.Error()})
		return 0, err
	}
	return g.Save(ctx, snap.Current.Bytes())
}

func (g *GalleryService) Save(ctx context.Context, data []byte) (int64, error) {
	id, err := g.store.Save(ctx, data)
	if err != nil {
		g.logger.Error(galleryComponent, err, map[string]interface{}{"op": "save"})
		g.publish(events.SaveFailed, map[string]interface{}{"error": err.Error()})
		return 0, err
	}

	g.logger.Info(galleryComponent, "image saved", map[string]interface{}{"id": id, "bytes": len(data)})
	g.publish(events.ImageSaved, map[string]interface{}{"id": id})
	return id, nil
}

func (g *GalleryService) Get(ctx context.Context, id int64) (models.SavedImage, error) {
	rec, err := g.store.Get(ctx, id)
	if err != nil {
		g.logFailure("get", id, err)
	}
	return rec, err
}

// Delete removes a saved image. A missing id is reported as
// *commonerr.NotFoundError and logged as a warning.
func (g *GalleryService) Delete(ctx context.Context, id int64) error {
	if err := g.store.Delete(ctx, id); err != nil {
		g.logFailure("delete", id, err)
		return err
	}

	g.logger.Info(galleryComponent, "image deleted", map[string]interface{}{"id": id})
	g.publish(events.ImageDeleted, map[string]interface{}{"id": id})
	return nil
}

func (g *GalleryService) List(ctx context.Context) ([]models.SavedImage, error) {
	records, err := g.store.List(ctx)
	if err != nil {
		g.logger.Error(galleryComponent, err, map[string]interface{}{"op": "list"})
		return nil, err
	}
	return records, nil
}

// Entry pairs a saved record with its decoded header, when readable.
type Entry struct {
	Record models.SavedImage
	Info   models.ImageInfo
	Err    error
}

// Entries lists saved images with their dimensions for a gallery view.
func (g *GalleryService) Entries(ctx context.Context) ([]Entry, error) {
	records, err := g.List(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(records))
	for i, rec := range records {
		info, infoErr := models.DecodeConfig(rec.Data)
		entries[i] = Entry{Record: rec, Info: info, Err: infoErr}
	}
	return entries, nil
}

func (g *GalleryService) logFailure(op string, id int64, err error) {
	fields := map[string]interface{}{"op": op, "id": id}
	if errors.Is(err, commonerr.ErrNotFound) {
		fields["error"] = err.Error()
		g.logger.Warning(galleryComponent, "saved image not found", fields)
		return
	}
	g.logger.Error(galleryComponent, err, fields)
}

func (g *GalleryService) publish(eventType string, data map[string]interface{}) {
	if g.events == nil {
		return
	}
	g.events.Publish(events.Event{Type: eventType, Data: data})
}
