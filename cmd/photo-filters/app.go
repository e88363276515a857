package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"photo-filters/internal/config"
	"photo-filters/internal/events"
	"photo-filters/internal/logger"
	"photo-filters/internal/metrics"
	"photo-filters/internal/processing/filters"
	"photo-filters/internal/services"
	"photo-filters/internal/shutdown"
	"photo-filters/internal/storage"
	"photo-filters/internal/timing"
)

const appComponent = "Application"

// Application wires the filter session, the saved image store and the
// ambient services behind the CLI commands.
type Application struct {
	cfg    *config.Config
	logger logger.Logger
	out    io.Writer

	bus     *events.Bus
	tracker *timing.Tracker
	metrics *metrics.Metrics
	catalog *filters.Catalog
	store   *storage.PersistentStore

	session *services.FilterSession
	images  *services.ImageService
	gallery *services.GalleryService

	shutdown *shutdown.Manager
}

func NewApplication(cfg *config.Config, out io.Writer) (*Application, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	var appLogger logger.Logger
	if cfg.Log.Console {
		appLogger = logger.NewConsoleLogger(level)
	} else {
		appLogger = logger.NewZerolog(os.Stderr, level)
	}

	bus := events.NewBus(cfg.Events.Buffer, appLogger)
	tracker := timing.NewTracker(bus)
	appMetrics := metrics.New()
	tracker.SetObserver(appMetrics)
	appMetrics.Subscribe(bus)

	transformEngine, err := newEngine(cfg.Engine)
	if err != nil {
		bus.Shutdown()
		return nil, fmt.Errorf("engine setup failed: %w", err)
	}

	catalog, err := filters.NewDefaultCatalog(transformEngine)
	if err != nil {
		bus.Shutdown()
		return nil, fmt.Errorf("filter catalog setup failed: %w", err)
	}
	catalog.SetTracker(tracker)

	store, err := storage.New(storage.DriverConfig{
		Type:    cfg.Store.Driver,
		Options: cfg.Store.Options,
	}, cfg.Store.CacheSize, appLogger)
	if err != nil {
		bus.Shutdown()
		return nil, err
	}
	store.SetTracker(tracker)

	session := services.NewFilterSession(catalog, appLogger, bus)

	app := &Application{
		cfg:      cfg,
		logger:   appLogger,
		out:      out,
		bus:      bus,
		tracker:  tracker,
		metrics:  appMetrics,
		catalog:  catalog,
		store:    store,
		session:  session,
		images:   services.NewImageService(session, appLogger),
		gallery:  services.NewGalleryService(store, appLogger, bus),
		shutdown: shutdown.NewManager(appLogger, shutdown.DefaultComponentTimeout),
	}

	app.subscribeNotifications()

	app.shutdown.Register("events", bus)
	app.shutdown.Register("store", store)

	appLogger.Info(appComponent, "application initialised", map[string]interface{}{
		"driver":  cfg.Store.Driver,
		"format":  cfg.Engine.Format,
		"backend": cfg.Engine.Backend,
	})

	return app, nil
}

// subscribeNotifications turns session and gallery events into log lines,
// the CLI's equivalent of status toasts.
func (a *Application) subscribeNotifications() {
	notify := events.NewHandler("cli-notifications", func(e events.Event) {
		a.logger.Info(appComponent, e.Type, e.Data)
	})
	for _, eventType := range []string{
		events.ImageLoaded,
		events.FilterApplied,
		events.ImageRestored,
		events.ImageSaved,
		events.ImageDeleted,
	} {
		a.bus.Subscribe(eventType, notify)
	}

	failures := events.NewHandler("cli-failures", func(e events.Event) {
		a.logger.Warning(appComponent, e.Type, e.Data)
	})
	a.bus.Subscribe(events.FilterFailed, failures)
	a.bus.Subscribe(events.SaveFailed, failures)
}

func (a *Application) Context() context.Context {
	return a.shutdown.Context()
}

func (a *Application) Shutdown() {
	a.shutdown.Shutdown()
}
