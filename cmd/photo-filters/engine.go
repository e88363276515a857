//go:build !(js && wasm)

package main

import (
	"fmt"
	"strings"

	"photo-filters/internal/config"
	"photo-filters/internal/opencv/engine"
	"photo-filters/internal/processing/filters"
	"photo-filters/internal/processing/raster"
)

func newEngine(cfg config.EngineConfig) (filters.Engine, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", config.BackendOpenCV:
		return engine.New(cfg.Format)
	case config.BackendRaster:
		return raster.New(cfg.Format)
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Backend)
	}
}
