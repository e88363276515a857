//go:build js && wasm

package main

import (
	_ "photo-filters/internal/storage/indexeddb"
	_ "photo-filters/internal/storage/memstore"
)
