//go:build !(js && wasm)

package main

import (
	_ "photo-filters/internal/storage/memstore"
	_ "photo-filters/internal/storage/sqlstore"
)
