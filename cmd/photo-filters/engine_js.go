//go:build js && wasm

package main

import (
	"fmt"
	"strings"

	"photo-filters/internal/config"
	"photo-filters/internal/processing/filters"
	"photo-filters/internal/processing/raster"
)

// OpenCV needs cgo, so the browser build only has the raster engine.
func newEngine(cfg config.EngineConfig) (filters.Engine, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", config.BackendRaster:
		return raster.New(cfg.Format)
	default:
		return nil, fmt.Errorf("engine backend %q is not available in this build", cfg.Backend)
	}
}
