package storage

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"

	"photo-filters/internal/commonerr"
	"photo-filters/internal/logger"
	"photo-filters/internal/models"
	"photo-filters/internal/timing"

	lru "github.com/hashicorp/golang-lru"
)

const storeComponent = "PersistentStore"

// PersistentStore wraps a Backend with lazy, init-once opening, error
// mapping and an optional read cache. Records returned to callers never
// share memory with the store.
type PersistentStore struct {
	backend Backend
	logger  logger.Logger
	cache   *lru.ARCCache
	tracker *timing.Tracker

	openMu sync.Mutex
	opened bool

	// invalidations counts deletes so a Get racing a Delete does not
	// cache the record it read before the delete.
	cacheMu       sync.Mutex
	invalidations uint64
}

// NewPersistentStore creates a store over backend. cacheSize 0 disables the
// read cache.
func NewPersistentStore(backend Backend, cacheSize int, log logger.Logger) (*PersistentStore, error) {
	if backend == nil {
		return nil, errors.New("storage: nil backend")
	}
	if log == nil {
		log = logger.NewNop()
	}

	s := &PersistentStore{
		backend: backend,
		logger:  log,
	}

	if cacheSize > 0 {
		cache, err := lru.NewARC(cacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}

	return s, nil
}

// New builds a store from a driver configuration without opening it.
func New(cfg DriverConfig, cacheSize int, log logger.Logger) (*PersistentStore, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return NewPersistentStore(backend, cacheSize, log)
}

func (s *PersistentStore) SetTracker(tracker *timing.Tracker) {
	s.tracker = tracker
}

// Open prepares the backend on first use. It is safe to call repeatedly and
// concurrently; a failed attempt is retried by the next call.
func (s *PersistentStore) Open(ctx context.Context) error {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	if s.opened {
		return nil
	}

	if err := s.backend.Open(ctx); err != nil {
		s.logger.Error(storeComponent, err, map[string]interface{}{"op": "open"})
		return &commonerr.StoreError{Op: "open", Err: err}
	}

	s.opened = true
	s.logger.Debug(storeComponent, "store opened", nil)
	return nil
}

// Save stores a copy of data and returns its new id.
func (s *PersistentStore) Save(ctx context.Context, data []byte) (int64, error) {
	if len(data) == 0 {
		return 0, &commonerr.InvalidInputError{}
	}
	if err := s.Open(ctx); err != nil {
		return 0, err
	}
	defer s.time("store.save")()

	id, err := s.backend.Put(ctx, bytes.Clone(data))
	if err != nil {
		return 0, &commonerr.StoreError{Op: "put", Err: err}
	}
	return id, nil
}

func (s *PersistentStore) Get(ctx context.Context, id int64) (models.SavedImage, error) {
	if err := s.Open(ctx); err != nil {
		return models.SavedImage{}, err
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(id); ok {
			return cloneImage(cached.(models.SavedImage)), nil
		}
	}
	defer s.time("store.get")()

	seen := s.invalidationCount()
	rec, ok, err := s.backend.Get(ctx, id)
	if err != nil {
		return models.SavedImage{}, &commonerr.StoreError{Op: "get", ID: id, Err: err}
	}
	if !ok {
		return models.SavedImage{}, &commonerr.NotFoundError{ID: id}
	}

	img := toModel(rec)
	if s.cache != nil {
		s.cacheMu.Lock()
		if s.invalidations == seen {
			s.cache.Add(id, cloneImage(img))
		}
		s.cacheMu.Unlock()
	}
	return img, nil
}

// Delete removes a record. Of several concurrent deletes of one id exactly
// one succeeds; the rest get *commonerr.NotFoundError.
func (s *PersistentStore) Delete(ctx context.Context, id int64) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	defer s.time("store.delete")()

	ok, err := s.backend.Delete(ctx, id)
	s.cacheMu.Lock()
	s.invalidations++
	if s.cache != nil {
		s.cache.Remove(id)
	}
	s.cacheMu.Unlock()
	if err != nil {
		return &commonerr.StoreError{Op: "delete", ID: id, Err: err}
	}
	if !ok {
		return &commonerr.NotFoundError{ID: id}
	}
	return nil
}

// List returns every record ordered by ascending id.
func (s *PersistentStore) List(ctx context.Context) ([]models.SavedImage, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	defer s.time("store.list")()

	records, err := s.backend.List(ctx)
	if err != nil {
		return nil, &commonerr.StoreError{Op: "list", Err: err}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	out := make([]models.SavedImage, len(records))
	for i, rec := range records {
		out[i] = toModel(rec)
	}
	return out, nil
}

// Close releases the backend. A later call reopens it.
func (s *PersistentStore) Close() error {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	if s.cache != nil {
		s.cache.Purge()
	}
	if !s.opened {
		return nil
	}
	s.opened = false

	if err := s.backend.Close(); err != nil {
		return &commonerr.StoreError{Op: "close", Err: err}
	}
	return nil
}

// Shutdown lets the store be registered with the shutdown manager.
func (s *PersistentStore) Shutdown() {
	if err := s.Close(); err != nil {
		s.logger.Error(storeComponent, err, map[string]interface{}{"op": "close"})
	}
}

func (s *PersistentStore) invalidationCount() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.invalidations
}

func (s *PersistentStore) time(op string) func() {
	if s.tracker == nil {
		return func() {}
	}
	span := s.tracker.StartTiming(op)
	return func() { s.tracker.EndTiming(span) }
}

func toModel(rec Record) models.SavedImage {
	return models.SavedImage{
		ID:        rec.ID,
		Data:      bytes.Clone(rec.Data),
		CreatedAt: rec.CreatedAt,
	}
}

func cloneImage(img models.SavedImage) models.SavedImage {
	img.Data = bytes.Clone(img.Data)
	return img
}
