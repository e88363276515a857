//go:build js && wasm

package config

// The browser build has no filesystem database; images live in IndexedDB.
func defaultStore() StoreConfig {
	return StoreConfig{
		Driver:    "indexeddb",
		CacheSize: 32,
		Options: map[string]interface{}{
			"database": "PhotoAppDB",
		},
	}
}
