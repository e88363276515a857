package shutdown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdownRunsInReverseOrderOnce(t *testing.T) {
	m := NewManager(nil, time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) Func {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}

	m.Register("store", record("store"))
	m.Register("events", record("events"))
	m.Register("", record("tracker"))

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, []string{"tracker", "events", "store"}, order)
	assert.Error(t, m.Context().Err())

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestShutdownSurvivesSlowAndPanickingComponents(t *testing.T) {
	m := NewManager(nil, 20*time.Millisecond)

	release := make(chan struct{})
	defer close(release)

	var reached bool
	m.Register("first", Func(func() { reached = true }))
	m.Register("slow", Func(func() { <-release }))
	m.Register("broken", Func(func() { panic("boom") }))

	start := time.Now()
	m.Shutdown()

	assert.True(t, reached)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestListenStop(t *testing.T) {
	m := NewManager(nil, 0)
	stop := m.Listen()
	stop()
	m.Shutdown()
	assert.Equal(t, DefaultComponentTimeout, m.timeout)
}
