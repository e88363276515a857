//go:build !(js && wasm)

package config

const defaultDBPath = "./photo-filters.db"

func defaultStore() StoreConfig {
	return StoreConfig{
		Driver:    "sqlite",
		CacheSize: 32,
		Options: map[string]interface{}{
			"path": defaultDBPath,
		},
	}
}
