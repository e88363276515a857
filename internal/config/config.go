package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	envLogLevel    = "PHOTO_FILTERS_LOG_LEVEL"
	envStoreDriver = "PHOTO_FILTERS_STORE_DRIVER"
	envDBPath      = "PHOTO_FILTERS_DB_PATH"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type File struct {
	PhotoFilters Config `yaml:"photo_filters"`
}

type Config struct {
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`
	Engine EngineConfig `yaml:"engine"`
	Events EventsConfig `yaml:"events"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// StoreConfig selects a registered storage driver. Options are handed to the
// driver untouched.
type StoreConfig struct {
	Driver    string                 `yaml:"driver"`
	CacheSize int                    `yaml:"cache_size"`
	Options   map[string]interface{} `yaml:"options"`
}

// EngineConfig picks the output format and the transform backend. An empty
// backend means the build's default: OpenCV natively, raster under js/wasm.
type EngineConfig struct {
	Format  string `yaml:"format"`
	Backend string `yaml:"backend"`
}

// Engine backends.
const (
	BackendOpenCV = "opencv"
	BackendRaster = "raster"
)

type EventsConfig struct {
	Buffer int `yaml:"buffer"`
}

func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Store: defaultStore(),
		Engine: EngineConfig{
			Format: "png",
		},
		Events: EventsConfig{
			Buffer: 64,
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	var cfgFile File
	cfgFile.PhotoFilters = DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(os.ExpandEnv(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfgFile); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg := &cfgFile.PhotoFilters
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if level := os.Getenv(envLogLevel); level != "" {
		cfg.Log.Level = level
	}
	if driver := os.Getenv(envStoreDriver); driver != "" {
		cfg.Store.Driver = driver
	}
	if path := os.Getenv(envDBPath); path != "" {
		if cfg.Store.Options == nil {
			cfg.Store.Options = make(map[string]interface{})
		}
		cfg.Store.Options["path"] = path
	}
}

func (c *Config) Validate() error {
	if c.Store.Driver == "" {
		return fmt.Errorf("%w: store driver is empty", ErrInvalidConfig)
	}
	if c.Store.CacheSize < 0 {
		return fmt.Errorf("%w: store cache_size must be >= 0, got %d", ErrInvalidConfig, c.Store.CacheSize)
	}
	if c.Events.Buffer < 0 {
		return fmt.Errorf("%w: events buffer must be >= 0, got %d", ErrInvalidConfig, c.Events.Buffer)
	}

	switch strings.ToLower(c.Engine.Format) {
	case "png", "jpeg", "jpg":
	default:
		return fmt.Errorf("%w: unsupported engine format %q", ErrInvalidConfig, c.Engine.Format)
	}

	switch strings.ToLower(c.Engine.Backend) {
	case "", BackendOpenCV, BackendRaster:
	default:
		return fmt.Errorf("%w: unsupported engine backend %q", ErrInvalidConfig, c.Engine.Backend)
	}
	return nil
}
