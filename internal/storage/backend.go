package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Record is a stored image as a backend returns it.
type Record struct {
	ID        int64
	Data      []byte
	CreatedAt time.Time
}

// Backend is a durable blob collection keyed by monotonically assigned ids.
// Each call is its own transaction. Get and Delete report a missing id with
// ok == false rather than an error.
type Backend interface {
	Open(ctx context.Context) error
	Put(ctx context.Context, data []byte) (int64, error)
	Get(ctx context.Context, id int64) (rec Record, ok bool, err error)
	Delete(ctx context.Context, id int64) (ok bool, err error)
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// DriverConfig selects a registered driver and carries its options.
type DriverConfig struct {
	Type    string
	Options map[string]interface{}
}

// Driver builds an unopened Backend from its configuration.
type Driver func(DriverConfig) (Backend, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. It panics if the name is
// already taken or driver is nil.
func Register(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if driver == nil {
		panic("storage: could not register nil Driver")
	}
	if _, dup := drivers[name]; dup {
		panic("storage: could not register duplicate Driver: " + name)
	}
	drivers[name] = driver
}

// NewBackend builds the backend named by cfg.Type.
func NewBackend(cfg DriverConfig) (Backend, error) {
	driversMu.RLock()
	driver, ok := drivers[cfg.Type]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("storage: unknown driver %q (forgotten configuration or import?)", cfg.Type)
	}
	return driver(cfg)
}

// Drivers lists registered driver names.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeOptions copies generic driver options onto a typed config struct
// through its yaml tags. Fields missing from options keep their value.
func DecodeOptions(options map[string]interface{}, out interface{}) error {
	if len(options) == 0 {
		return nil
	}

	raw, err := yaml.Marshal(options)
	if err != nil {
		return fmt.Errorf("storage: could not encode driver options: %w", err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("storage: could not decode driver options: %w", err)
	}
	return nil
}
