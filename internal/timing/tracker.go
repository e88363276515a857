package timing

import (
	"sort"
	"sync"
	"time"

	"photo-filters/internal/events"
)

// Span marks a started measurement.
type Span struct {
	Operation string
	StartTime time.Time
}

// Stats summarizes the recorded durations of one operation.
type Stats struct {
	Count int
	Mean  time.Duration
	Max   time.Duration
}

// Observer receives every recorded duration as it is recorded.
type Observer interface {
	ObserveOperation(operation string, duration time.Duration)
}

type Tracker struct {
	timings  map[string][]time.Duration
	mu       sync.RWMutex
	eventBus events.Publisher
	observer Observer
	enabled  bool
}

func NewTracker(eventBus events.Publisher) *Tracker {
	return &Tracker{
		timings:  make(map[string][]time.Duration),
		eventBus: eventBus,
		enabled:  true,
	}
}

func (tt *Tracker) StartTiming(operation string) Span {
	return Span{Operation: operation, StartTime: time.Now()}
}

// EndTiming records the elapsed time of span and returns it.
func (tt *Tracker) EndTiming(span Span) time.Duration {
	duration := time.Since(span.StartTime)

	tt.mu.Lock()
	if !tt.enabled {
		tt.mu.Unlock()
		return duration
	}
	tt.timings[span.Operation] = append(tt.timings[span.Operation], duration)
	observer := tt.observer
	tt.mu.Unlock()

	if observer != nil {
		observer.ObserveOperation(span.Operation, duration)
	}

	if tt.eventBus != nil {
		tt.eventBus.Publish(events.Event{
			Type: events.TimingCompleted,
			Data: map[string]interface{}{
				"operation": span.Operation,
				"duration":  duration,
				"start":     span.StartTime,
			},
		})
	}

	return duration
}

func (tt *Tracker) GetTimings(operation string) []time.Duration {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	timings := tt.timings[operation]
	if timings == nil {
		return nil
	}

	result := make([]time.Duration, len(timings))
	copy(result, timings)
	return result
}

func (tt *Tracker) GetAverageTime(operation string) time.Duration {
	return summarize(tt.GetTimings(operation)).Mean
}

// Summary returns per-operation statistics.
func (tt *Tracker) Summary() map[string]Stats {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	result := make(map[string]Stats, len(tt.timings))
	for operation, timings := range tt.timings {
		result[operation] = summarize(timings)
	}
	return result
}

// Operations lists recorded operation names in sorted order.
func (tt *Tracker) Operations() []string {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	names := make([]string, 0, len(tt.timings))
	for name := range tt.timings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (tt *Tracker) SetObserver(observer Observer) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.observer = observer
}

func (tt *Tracker) SetEnabled(enabled bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.enabled = enabled
}

func (tt *Tracker) Reset(operation string) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if operation == "" {
		tt.timings = make(map[string][]time.Duration)
	} else {
		delete(tt.timings, operation)
	}
}

func summarize(timings []time.Duration) Stats {
	if len(timings) == 0 {
		return Stats{}
	}

	var total, longest time.Duration
	for _, d := range timings {
		total += d
		if d > longest {
			longest = d
		}
	}

	return Stats{
		Count: len(timings),
		Mean:  total / time.Duration(len(timings)),
		Max:   longest,
	}
}
