package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"photo-filters/internal/commonerr"
	"photo-filters/internal/events"
	"photo-filters/internal/models"
	"photo-filters/internal/processing/filters"
	"photo-filters/internal/processing/filters/filtertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func ptr(v float64) *float64 { return &v }

func render(name string, input string, param float64) string {
	return string(filtertest.Render(name, []byte(input), param))
}

func newSession(t *testing.T) (*FilterSession, *filtertest.Engine, *recordingPublisher) {
	t.Helper()
	engine := filtertest.NewEngine()
	catalog, err := filters.NewDefaultCatalog(engine)
	require.NoError(t, err)
	pub := &recordingPublisher{}
	return NewFilterSession(catalog, nil, pub), engine, pub
}

func loaded(t *testing.T, data string) (*FilterSession, *filtertest.Engine, *recordingPublisher) {
	t.Helper()
	s, engine, pub := newSession(t)
	_, err := s.Load(context.Background(), []byte(data), "image/png")
	require.NoError(t, err)
	return s, engine, pub
}

func TestLoadValidatesInput(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newSession(t)

	tests := []struct {
		name string
		data []byte
		mime string
	}{
		{"text mime", []byte("B"), "text/plain"},
		{"empty mime", []byte("B"), ""},
		{"bare prefix", []byte("B"), "image/"},
		{"empty data", nil, "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Load(ctx, tt.data, tt.mime)
			assert.ErrorIs(t, err, commonerr.ErrInvalidInput)
			assert.Equal(t, models.StateEmpty, s.State())
		})
	}

	img, err := s.Load(ctx, []byte("B"), " IMAGE/JPEG; q=0.9 ")
	require.NoError(t, err)
	assert.Equal(t, models.StateLoaded, s.State())
	assert.Equal(t, []byte("B"), img.Bytes())
}

func TestFailedLoadKeepsPriorImage(t *testing.T) {
	s, _, _ := loaded(t, "A")
	_, err := s.Apply(context.Background(), "invert", nil)
	require.NoError(t, err)
	before := s.Snapshot()

	_, err = s.Load(context.Background(), []byte("<html>"), "text/html")
	require.ErrorIs(t, err, commonerr.ErrInvalidInput)

	assert.Equal(t, before, s.Snapshot())
}

func TestLoadCopiesCallerBuffer(t *testing.T) {
	s, _, _ := newSession(t)
	data := []byte("A")
	_, err := s.Load(context.Background(), data, "image/png")
	require.NoError(t, err)

	data[0] = 'Z'
	assert.Equal(t, []byte("A"), s.Current().Bytes())

	out := s.Current().Bytes()
	out[0] = 'Q'
	assert.Equal(t, []byte("A"), s.Original().Bytes())
}

func TestOperationsRequireLoadedImage(t *testing.T) {
	ctx := context.Background()
	s, engine, _ := newSession(t)

	_, err := s.Apply(ctx, "invert", nil)
	assert.ErrorIs(t, err, commonerr.ErrNotLoaded)

	_, err = s.Restore(ctx)
	assert.ErrorIs(t, err, commonerr.ErrNotLoaded)

	_, err = s.AdjustParametric(ctx, 3)
	var noActive *commonerr.NoActiveParametricFilterError
	require.ErrorAs(t, err, &noActive)
	assert.Equal(t, 3.0, noActive.Value)

	s.SetCumulative(true)
	assert.True(t, s.Cumulative())
	assert.Empty(t, engine.Calls())
}

func TestRestoreExactness(t *testing.T) {
	ctx := context.Background()
	s, _, _ := loaded(t, "B")
	s.SetCumulative(true)

	_, err := s.Apply(ctx, "blur", ptr(9))
	require.NoError(t, err)
	_, err = s.AdjustParametric(ctx, 3)
	require.NoError(t, err)
	_, err = s.Apply(ctx, "sepia", nil)
	require.NoError(t, err)

	restored, err := s.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("B"), restored.Bytes())
	assert.Equal(t, []byte("B"), s.Current().Bytes())
	_, active := s.ActiveParametric()
	assert.False(t, active)

	again, err := s.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, restored, again)
}

func TestApplyIsDeterministic(t *testing.T) {
	ctx := context.Background()

	first, _, _ := loaded(t, "B")
	a, err := first.Apply(ctx, "contrast", ptr(4))
	require.NoError(t, err)

	second, _, _ := loaded(t, "B")
	b, err := second.Apply(ctx, "contrast", ptr(4))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCumulativeVersusIndependent(t *testing.T) {
	ctx := context.Background()

	cumulative, _, _ := loaded(t, "B")
	cumulative.SetCumulative(true)
	_, err := cumulative.Apply(ctx, "blur", ptr(5))
	require.NoError(t, err)
	chained, err := cumulative.Apply(ctx, "grayscale", nil)
	require.NoError(t, err)

	independent, _, _ := loaded(t, "B")
	_, err = independent.Apply(ctx, "blur", ptr(5))
	require.NoError(t, err)
	fresh, err := independent.Apply(ctx, "grayscale", nil)
	require.NoError(t, err)

	assert.Equal(t, render("grayscale", render("blur", "B", 5), 0), string(chained.Bytes()))
	assert.Equal(t, render("grayscale", "B", 0), string(fresh.Bytes()))
	assert.NotEqual(t, chained.Bytes(), fresh.Bytes())
}

func TestApplyTracksActiveParametric(t *testing.T) {
	ctx := context.Background()
	s, _, _ := loaded(t, "B")

	_, err := s.Apply(ctx, "blur", ptr(25))
	require.NoError(t, err)
	active, ok := s.ActiveParametric()
	require.True(t, ok)
	assert.Equal(t, models.ActiveParametric{Filter: "blur", Value: 20}, active)
	assert.Equal(t, render("blur", "B", 20), string(s.Current().Bytes()))

	_, err = s.Apply(ctx, "blue", nil)
	require.NoError(t, err)
	_, ok = s.ActiveParametric()
	assert.False(t, ok)
	assert.Equal(t, render("blueify", "B", 0), string(s.Current().Bytes()))
}

func TestAdjustParametric(t *testing.T) {
	ctx := context.Background()
	s, _, pub := loaded(t, "B")

	_, err := s.Apply(ctx, "brighten", nil)
	require.NoError(t, err)

	adjusted, err := s.AdjustParametric(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, render("brighten", "B", 12), string(adjusted.Bytes()))

	_, err = s.AdjustParametric(ctx, -300)
	require.NoError(t, err)
	active, _ := s.ActiveParametric()
	assert.Equal(t, -20.0, active.Value)

	assert.Contains(t, pub.types(), events.FilterAdjusted)
}

func TestAdjustParametricReadsCumulativeAtCallTime(t *testing.T) {
	ctx := context.Background()
	s, _, _ := loaded(t, "B")

	_, err := s.Apply(ctx, "blur", ptr(5))
	require.NoError(t, err)

	s.SetCumulative(true)
	out, err := s.AdjustParametric(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, render("blur", render("blur", "B", 5), 7), string(out.Bytes()))
}

func TestAdjustAfterZeroArgFails(t *testing.T) {
	ctx := context.Background()
	s, _, _ := loaded(t, "B")

	_, err := s.Apply(ctx, "vignette", nil)
	require.NoError(t, err)
	_, err = s.Apply(ctx, "invert", nil)
	require.NoError(t, err)

	_, err = s.AdjustParametric(ctx, 1)
	assert.ErrorIs(t, err, commonerr.ErrNoActiveParametricFilter)
}

func TestUnknownFilterLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()
	s, _, pub := loaded(t, "B")
	_, err := s.Apply(ctx, "contrast", ptr(3))
	require.NoError(t, err)
	before := s.Snapshot()

	_, err = s.Apply(ctx, "not-a-filter", nil)
	assert.ErrorIs(t, err, commonerr.ErrUnknownFilter)
	assert.Equal(t, before, s.Snapshot())
	assert.Contains(t, pub.types(), events.FilterFailed)
}

func TestEngineFailureIsAtomic(t *testing.T) {
	ctx := context.Background()
	s, engine, _ := loaded(t, "B")
	_, err := s.Apply(ctx, "blur", ptr(2))
	require.NoError(t, err)
	before := s.Snapshot()

	engine.FailWith("blur", errors.New("out of memory"))
	_, err = s.AdjustParametric(ctx, 4)
	assert.ErrorIs(t, err, commonerr.ErrTransformEngine)
	assert.Equal(t, before, s.Snapshot())

	engine.PanicOn("sepia")
	_, err = s.Apply(ctx, "sepia", nil)
	assert.ErrorIs(t, err, commonerr.ErrTransformEngine)
	assert.Equal(t, before, s.Snapshot())
}

func TestLoadResetsChain(t *testing.T) {
	ctx := context.Background()
	s, _, _ := loaded(t, "A")
	s.SetCumulative(true)

	_, err := s.Apply(ctx, "invert", nil)
	require.NoError(t, err)

	_, err = s.Load(ctx, []byte("B"), "image/png")
	require.NoError(t, err)
	_, ok := s.ActiveParametric()
	assert.False(t, ok)
	assert.True(t, s.Cumulative())

	out, err := s.Apply(ctx, "grayscale", nil)
	require.NoError(t, err)
	assert.Equal(t, render("grayscale", "B", 0), string(out.Bytes()))
}

func TestSessionPublishesEvents(t *testing.T) {
	ctx := context.Background()
	s, _, pub := loaded(t, "B")

	s.SetCumulative(true)
	_, err := s.Apply(ctx, "invert", nil)
	require.NoError(t, err)
	_, err = s.Restore(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{
		events.ImageLoaded,
		events.CumulativeToggled,
		events.FilterApplied,
		events.ImageRestored,
	}, pub.types())
}

func startBlocked(t *testing.T, engine *filtertest.Engine) {
	t.Helper()
	engine.Gate = make(chan struct{})
	engine.Started = make(chan string, 8)
}

func waitStarted(t *testing.T, engine *filtertest.Engine, want string) {
	t.Helper()
	select {
	case name := <-engine.Started:
		require.Equal(t, want, name)
	case <-time.After(2 * time.Second):
		t.Fatalf("transform %s never started", want)
	}
}

type opResult struct {
	img models.RasterImage
	err error
}

func TestConcurrentAppliesAreSerialized(t *testing.T) {
	ctx := context.Background()
	s, engine, _ := loaded(t, "B")
	s.SetCumulative(true)
	startBlocked(t, engine)

	first := make(chan opResult, 1)
	go func() {
		img, err := s.Apply(ctx, "sepia", nil)
		first <- opResult{img, err}
	}()
	waitStarted(t, engine, "sepia")

	second := make(chan opResult, 1)
	go func() {
		img, err := s.Apply(ctx, "invert", nil)
		second <- opResult{img, err}
	}()
	require.Eventually(t, func() bool { return s.queue.waiting() == 1 }, 2*time.Second, time.Millisecond)

	engine.Gate <- struct{}{}
	require.NoError(t, (<-first).err)

	waitStarted(t, engine, "invert")
	engine.Gate <- struct{}{}
	res := <-second
	require.NoError(t, res.err)

	assert.Equal(t, render("invert", render("sepia", "B", 0), 0), string(res.img.Bytes()))
}

func TestQueuedOperationsRunInArrivalOrder(t *testing.T) {
	ctx := context.Background()
	s, engine, _ := loaded(t, "B")
	s.SetCumulative(true)
	startBlocked(t, engine)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.Apply(ctx, "grayscale", nil)
	}()
	waitStarted(t, engine, "grayscale")

	for i, name := range []string{"sepia", "vintage", "technicolor"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, _ = s.Apply(ctx, name, nil)
		}(name)
		want := i + 1
		require.Eventually(t, func() bool { return s.queue.waiting() == want }, 2*time.Second, time.Millisecond)
	}

	engine.Gate <- struct{}{}
	for _, name := range []string{"sepia", "vintage", "technicolor"} {
		waitStarted(t, engine, name)
		engine.Gate <- struct{}{}
	}
	wg.Wait()

	want := render("technicolor", render("vintage", render("sepia", render("grayscale", "B", 0), 0), 0), 0)
	assert.Equal(t, want, string(s.Current().Bytes()))
}

func TestLoadSupersedesPendingApply(t *testing.T) {
	ctx := context.Background()
	s, engine, _ := loaded(t, "A")
	startBlocked(t, engine)

	pending := make(chan opResult, 1)
	go func() {
		img, err := s.Apply(ctx, "invert", nil)
		pending <- opResult{img, err}
	}()
	waitStarted(t, engine, "invert")

	queued := make(chan opResult, 1)
	go func() {
		img, err := s.Restore(ctx)
		queued <- opResult{img, err}
	}()
	require.Eventually(t, func() bool { return s.queue.waiting() == 1 }, 2*time.Second, time.Millisecond)

	_, err := s.Load(ctx, []byte("C"), "image/png")
	require.NoError(t, err)

	engine.Gate <- struct{}{}

	res := <-pending
	assert.ErrorIs(t, res.err, commonerr.ErrSuperseded)
	res = <-queued
	assert.ErrorIs(t, res.err, commonerr.ErrSuperseded)

	assert.Equal(t, []byte("C"), s.Current().Bytes())
	assert.Equal(t, []byte("C"), s.Original().Bytes())

	engine.Gate = nil
	out, err := s.Apply(ctx, "invert", nil)
	require.NoError(t, err)
	assert.Equal(t, render("invert", "C", 0), string(out.Bytes()))
}

func TestCancelledWaitDoesNotRun(t *testing.T) {
	s, engine, _ := loaded(t, "B")
	startBlocked(t, engine)

	go func() { _, _ = s.Apply(context.Background(), "sepia", nil) }()
	waitStarted(t, engine, "sepia")

	ctx, cancel := context.WithCancel(context.Background())
	waited := make(chan error, 1)
	go func() {
		_, err := s.Apply(ctx, "invert", nil)
		waited <- err
	}()
	require.Eventually(t, func() bool { return s.queue.waiting() == 1 }, 2*time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-waited, context.Canceled)
	assert.Zero(t, s.queue.waiting())

	engine.Gate <- struct{}{}
	require.Eventually(t, func() bool {
		return string(s.Current().Bytes()) == render("sepia", "B", 0)
	}, 2*time.Second, time.Millisecond)

	for _, c := range engine.Calls() {
		assert.NotEqual(t, "invert", c.Name)
	}
}
