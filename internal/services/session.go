package services

import (
	"context"
	"strings"
	"sync"

	"photo-filters/internal/commonerr"
	"photo-filters/internal/events"
	"photo-filters/internal/logger"
	"photo-filters/internal/models"
	"photo-filters/internal/processing/filters"
)

const sessionComponent = "FilterSession"

// FilterApplier is the part of the filter catalog a session needs.
type FilterApplier interface {
	Apply(name string, input []byte, param *float64) (filters.Result, error)
}

// FilterSession holds the original and current image of one editing
// session. Apply, AdjustParametric and Restore run one at a time in arrival
// order; Load never waits and invalidates whatever is queued or running.
type FilterSession struct {
	catalog FilterApplier
	logger  logger.Logger
	events  events.Publisher
	queue   opQueue

	mu         sync.RWMutex
	state      models.SessionState
	original   models.RasterImage
	current    models.RasterImage
	cumulative bool
	active     *models.ActiveParametric
	generation uint64
}

func NewFilterSession(catalog FilterApplier, log logger.Logger, bus events.Publisher) *FilterSession {
	if log == nil {
		log = logger.NewNop()
	}
	return &FilterSession{
		catalog: catalog,
		logger:  log,
		events:  bus,
	}
}

// Load replaces the original and current image. The cumulative flag is
// kept. On failure the session is left as it was.
func (s *FilterSession) Load(ctx context.Context, data []byte, mime string) (models.RasterImage, error) {
	select {
	case <-ctx.Done():
		return models.RasterImage{}, ctx.Err()
	default:
	}

	mime = strings.TrimSpace(mime)
	if len(data) == 0 {
		return models.RasterImage{}, s.fail("load", "", &commonerr.InvalidInputError{MIME: mime})
	}
	if !models.IsImageType(mime) {
		return models.RasterImage{}, s.fail("load", "", &commonerr.InvalidInputError{MIME: mime, Size: len(data)})
	}

	img := models.NewRasterImage(data, mime)

	s.mu.Lock()
	s.generation++
	s.original = img
	s.current = img
	s.active = nil
	s.state = models.StateLoaded
	s.mu.Unlock()

	s.logger.Info(sessionComponent, "image loaded", map[string]interface{}{
		"mime":  mime,
		"bytes": img.Len(),
	})
	s.publish(events.ImageLoaded, map[string]interface{}{"mime": mime, "bytes": img.Len()})

	return img, nil
}

// Apply runs a filter over the selected source and makes the result
// current. A nil param means the filter default.
func (s *FilterSession) Apply(ctx context.Context, name string, param *float64) (models.RasterImage, error) {
	gen := s.issue()
	if err := s.queue.acquire(ctx); err != nil {
		return models.RasterImage{}, err
	}
	defer s.queue.release()

	s.mu.RLock()
	if s.generation != gen {
		s.mu.RUnlock()
		return models.RasterImage{}, s.fail("apply", name, &commonerr.SupersededError{Op: "apply", Filter: name})
	}
	if s.state != models.StateLoaded {
		s.mu.RUnlock()
		return models.RasterImage{}, s.fail("apply", name, &commonerr.NotLoadedError{Op: "apply"})
	}
	source := s.selectSource()
	s.mu.RUnlock()

	result, err := s.catalog.Apply(name, source.Bytes(), param)
	if err != nil {
		return models.RasterImage{}, s.fail("apply", name, err)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return models.RasterImage{}, s.fail("apply", name, &commonerr.SupersededError{Op: "apply", Filter: name})
	}
	s.current = models.NewRasterImage(result.Bytes, result.MIME)
	if result.Descriptor.IsParametric() {
		s.active = &models.ActiveParametric{Filter: result.Descriptor.Name, Value: result.Param}
	} else {
		s.active = nil
	}
	current := s.current
	s.mu.Unlock()

	fields := map[string]interface{}{"filter": result.Descriptor.Name}
	if result.Descriptor.IsParametric() {
		fields["param"] = result.Param
	}
	s.logger.Debug(sessionComponent, "filter applied", fields)
	s.publish(events.FilterApplied, fields)

	return current, nil
}

// AdjustParametric re-runs the active parametric filter with value. The
// source is selected with the cumulative flag as it is now, not as it was
// when the filter was first applied.
func (s *FilterSession) AdjustParametric(ctx context.Context, value float64) (models.RasterImage, error) {
	gen := s.issue()
	if err := s.queue.acquire(ctx); err != nil {
		return models.RasterImage{}, err
	}
	defer s.queue.release()

	s.mu.RLock()
	if s.generation != gen {
		s.mu.RUnlock()
		return models.RasterImage{}, s.fail("adjust", "", &commonerr.SupersededError{Op: "adjust"})
	}
	if s.active == nil {
		s.mu.RUnlock()
		return models.RasterImage{}, s.fail("adjust", "", &commonerr.NoActiveParametricFilterError{Value: value})
	}
	name := s.active.Filter
	source := s.selectSource()
	s.mu.RUnlock()

	result, err := s.catalog.Apply(name, source.Bytes(), &value)
	if err != nil {
		return models.RasterImage{}, s.fail("adjust", name, err)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return models.RasterImage{}, s.fail("adjust", name, &commonerr.SupersededError{Op: "adjust", Filter: name})
	}
	s.current = models.NewRasterImage(result.Bytes, result.MIME)
	s.active = &models.ActiveParametric{Filter: name, Value: result.Param}
	current := s.current
	s.mu.Unlock()

	fields := map[string]interface{}{"filter": name, "param": result.Param}
	s.logger.Debug(sessionComponent, "filter adjusted", fields)
	s.publish(events.FilterAdjusted, fields)

	return current, nil
}

// Restore makes the original current again.
func (s *FilterSession) Restore(ctx context.Context) (models.RasterImage, error) {
	gen := s.issue()
	if err := s.queue.acquire(ctx); err != nil {
		return models.RasterImage{}, err
	}
	defer s.queue.release()

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return models.RasterImage{}, s.fail("restore", "", &commonerr.SupersededError{Op: "restore"})
	}
	if s.state != models.StateLoaded {
		s.mu.Unlock()
		return models.RasterImage{}, s.fail("restore", "", &commonerr.NotLoadedError{Op: "restore"})
	}
	s.current = s.original
	s.active = nil
	current := s.current
	s.mu.Unlock()

	s.logger.Debug(sessionComponent, "image restored", nil)
	s.publish(events.ImageRestored, nil)

	return current, nil
}

func (s *FilterSession) SetCumulative(flag bool) {
	s.mu.Lock()
	s.cumulative = flag
	s.mu.Unlock()

	s.logger.Debug(sessionComponent, "cumulative mode changed", map[string]interface{}{"cumulative": flag})
	s.publish(events.CumulativeToggled, map[string]interface{}{"cumulative": flag})
}

func (s *FilterSession) State() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns the current image; the zero RasterImage when nothing is
// loaded.
func (s *FilterSession) Current() models.RasterImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *FilterSession) Original() models.RasterImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.original
}

func (s *FilterSession) Cumulative() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cumulative
}

func (s *FilterSession) ActiveParametric() (models.ActiveParametric, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return models.ActiveParametric{}, false
	}
	return *s.active, true
}

func (s *FilterSession) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.Snapshot{
		State:      s.state,
		Original:   s.original,
		Current:    s.current,
		Cumulative: s.cumulative,
	}
	if s.active != nil {
		active := *s.active
		snap.ActiveParametric = &active
	}
	return snap
}

// selectSource must be called with mu held.
func (s *FilterSession) selectSource() models.RasterImage {
	if s.cumulative {
		return s.current
	}
	return s.original
}

// issue captures the generation a filter operation belongs to.
func (s *FilterSession) issue() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *FilterSession) fail(op, filter string, err error) error {
	fields := map[string]interface{}{"op": op}
	if filter != "" {
		fields["filter"] = filter
	}
	s.logger.Error(sessionComponent, err, fields)

	data := map[string]interface{}{"op": op, "error": err.Error()}
	if filter != "" {
		data["filter"] = filter
	}
	s.publish(events.FilterFailed, data)
	return err
}

func (s *FilterSession) publish(eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(events.Event{Type: eventType, Data: data})
}
