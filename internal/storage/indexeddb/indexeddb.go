//go:build js && wasm

package indexeddb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall/js"
	"time"

	"photo-filters/internal/storage"

	"github.com/hack-pad/go-indexeddb/idb"
)

const (
	DriverName = "indexeddb"

	defaultDatabase = "PhotoAppDB"
	storeName       = "images"
	schemaVersion   = 1
)

func init() {
	storage.Register(DriverName, openIndexedDB)
}

type Config struct {
	Database string `yaml:"database"`
}

// Backend keeps records in the "images" object store, keyed by an
// auto-incremented "id" property.
type Backend struct {
	name string

	mu sync.Mutex
	db *idb.Database
}

var _ storage.Backend = (*Backend)(nil)

func New(cfg Config) *Backend {
	name := cfg.Database
	if name == "" {
		name = defaultDatabase
	}
	return &Backend{name: name}
}

func openIndexedDB(driverCfg storage.DriverConfig) (storage.Backend, error) {
	var cfg Config
	if err := storage.DecodeOptions(driverCfg.Options, &cfg); err != nil {
		return nil, fmt.Errorf("indexeddb: could not load configuration: %w", err)
	}
	return New(cfg), nil
}

func (b *Backend) Open(ctx context.Context) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		return nil
	}

	defer func() {
		// idb.Global panics when the host has no indexedDB.
		if r := recover(); r != nil {
			err = fmt.Errorf("indexeddb unavailable: %v", r)
		}
	}()

	req, err := idb.Global().Open(ctx, b.name, schemaVersion, upgrade)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", b.name, err)
	}
	db, err := req.Await(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", b.name, err)
	}

	b.db = db
	return nil
}

func upgrade(db *idb.Database, oldVersion, newVersion uint) error {
	names, err := db.ObjectStoreNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == storeName {
			return nil
		}
	}
	_, err = db.CreateObjectStore(storeName, idb.ObjectStoreOptions{
		KeyPath:       js.ValueOf("id"),
		AutoIncrement: true,
	})
	return err
}

func (b *Backend) handle() (*idb.Database, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil, errors.New("database not open")
	}
	return b.db, nil
}

func (b *Backend) objectStore(mode idb.TransactionMode) (*idb.Transaction, *idb.ObjectStore, error) {
	db, err := b.handle()
	if err != nil {
		return nil, nil, err
	}
	txn, err := db.Transaction(mode, storeName)
	if err != nil {
		return nil, nil, err
	}
	store, err := txn.ObjectStore(storeName)
	if err != nil {
		return nil, nil, err
	}
	return txn, store, nil
}

func (b *Backend) Put(ctx context.Context, data []byte) (int64, error) {
	txn, store, err := b.objectStore(idb.TransactionReadWrite)
	if err != nil {
		return 0, err
	}

	value := js.Global().Get("Object").New()
	value.Set("data", toUint8Array(data))
	value.Set("createdAt", time.Now().UnixMilli())

	req, err := store.Put(value)
	if err != nil {
		return 0, err
	}
	key, err := req.Await(ctx)
	if err != nil {
		return 0, err
	}
	if err := txn.Await(ctx); err != nil {
		return 0, err
	}
	return int64(key.Int()), nil
}

func (b *Backend) Get(ctx context.Context, id int64) (storage.Record, bool, error) {
	_, store, err := b.objectStore(idb.TransactionReadOnly)
	if err != nil {
		return storage.Record{}, false, err
	}

	req, err := store.Get(js.ValueOf(id))
	if err != nil {
		return storage.Record{}, false, err
	}
	value, err := req.Await(ctx)
	if err != nil {
		return storage.Record{}, false, err
	}
	if value.IsUndefined() || value.IsNull() {
		return storage.Record{}, false, nil
	}
	return toRecord(value), true, nil
}

// Delete checks and removes the key inside one readwrite transaction, so
// concurrent deletes of the same id see each other.
func (b *Backend) Delete(ctx context.Context, id int64) (bool, error) {
	txn, store, err := b.objectStore(idb.TransactionReadWrite)
	if err != nil {
		return false, err
	}

	key := js.ValueOf(id)
	countReq, err := store.CountKey(key)
	if err != nil {
		return false, err
	}
	count, err := countReq.Await(ctx)
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, txn.Await(ctx)
	}

	delReq, err := store.Delete(key)
	if err != nil {
		return false, err
	}
	if err := delReq.Await(ctx); err != nil {
		return false, err
	}
	if err := txn.Await(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Backend) List(ctx context.Context) ([]storage.Record, error) {
	_, store, err := b.objectStore(idb.TransactionReadOnly)
	if err != nil {
		return nil, err
	}

	cursorReq, err := store.OpenCursor(idb.CursorNext)
	if err != nil {
		return nil, err
	}

	var records []storage.Record
	err = cursorReq.Iter(ctx, func(cursor *idb.CursorWithValue) error {
		value, err := cursor.Value()
		if err != nil {
			return err
		}
		records = append(records, toRecord(value))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func toUint8Array(data []byte) js.Value {
	array := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(array, data)
	return array
}

func toRecord(value js.Value) storage.Record {
	rec := storage.Record{ID: int64(value.Get("id").Int())}

	if data := value.Get("data"); data.Truthy() {
		rec.Data = make([]byte, data.Get("length").Int())
		js.CopyBytesToGo(rec.Data, data)
	}
	if created := value.Get("createdAt"); created.Type() == js.TypeNumber {
		rec.CreatedAt = time.UnixMilli(int64(created.Float())).UTC()
	}
	return rec
}
