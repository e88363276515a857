package events

import (
	"sync"
	"time"

	"photo-filters/internal/logger"
)

// Event types published by the session and gallery services.
const (
	ImageLoaded       = "image_loaded"
	FilterApplied     = "filter_applied"
	FilterAdjusted    = "filter_adjusted"
	ImageRestored     = "image_restored"
	CumulativeToggled = "cumulative_toggled"
	FilterFailed      = "filter_failed"
	ImageSaved        = "image_saved"
	ImageDeleted      = "image_deleted"
	SaveFailed        = "save_failed"
	TimingCompleted   = "timing_completed"
)

// AllTypes lists every event type above.
func AllTypes() []string {
	return []string{
		ImageLoaded, FilterApplied, FilterAdjusted, ImageRestored, CumulativeToggled,
		FilterFailed, ImageSaved, ImageDeleted, SaveFailed, TimingCompleted,
	}
}

type Event struct {
	Type      string
	Timestamp time.Time
	Data      map[string]interface{}
}

// Publisher is the sending half of the bus.
type Publisher interface {
	Publish(event Event)
}

type Handler interface {
	Handle(event Event)
	ID() string
}

type handlerFunc struct {
	id string
	fn func(Event)
}

func (h handlerFunc) Handle(event Event) { h.fn(event) }
func (h handlerFunc) ID() string         { return h.id }

// NewHandler wraps fn as a Handler identified by id.
func NewHandler(id string, fn func(Event)) Handler {
	return handlerFunc{id: id, fn: fn}
}

// Bus delivers events asynchronously. Publish never blocks: when the buffer
// is full or the bus is shut down the event is dropped.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
	buffer      chan Event
	closed      bool
	closeMu     sync.RWMutex
	worker      sync.WaitGroup
	handlers    sync.WaitGroup
	logger      logger.Logger
	dropped     int64
}

func NewBus(bufferSize int, log logger.Logger) *Bus {
	if log == nil {
		log = logger.NewNop()
	}

	bus := &Bus{
		subscribers: make(map[string][]Handler),
		buffer:      make(chan Event, bufferSize),
		logger:      log,
	}

	bus.startWorker()
	return bus
}

func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return
	}

	select {
	case b.buffer <- event:
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
	}
}

func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

func (b *Bus) Unsubscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.subscribers[eventType]
	for i, h := range handlers {
		if h.ID() == handler.ID() {
			b.subscribers[eventType] = append(handlers[:i:i], handlers[i+1:]...)
			break
		}
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (b *Bus) Dropped() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Shutdown stops accepting events, delivers what is buffered and waits for
// running handlers. Safe to call more than once.
func (b *Bus) Shutdown() {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return
	}
	b.closed = true
	close(b.buffer)
	b.closeMu.Unlock()

	b.worker.Wait()
	b.handlers.Wait()
}

func (b *Bus) startWorker() {
	b.worker.Add(1)
	go func() {
		defer b.worker.Done()

		for event := range b.buffer {
			b.dispatchEvent(event)
		}
	}()
}

func (b *Bus) dispatchEvent(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.subscribers[event.Type]))
	copy(handlers, b.subscribers[event.Type])
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.handlers.Add(1)
		go func(h Handler) {
			defer b.handlers.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Warning("EventBus", "handler panicked", map[string]interface{}{
						"handler": h.ID(),
						"event":   event.Type,
						"panic":   r,
					})
				}
			}()
			h.Handle(event)
		}(handler)
	}
}
