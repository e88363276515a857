// Package memstore is a non-durable storage backend kept in process memory.
package memstore

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"photo-filters/internal/storage"
)

const DriverName = "memory"

func init() {
	storage.Register(DriverName, func(storage.DriverConfig) (storage.Backend, error) {
		return New(), nil
	})
}

type Backend struct {
	mu      sync.Mutex
	records map[int64]storage.Record
	lastID  int64
	now     func() time.Time
}

func New() *Backend {
	return &Backend{
		records: make(map[int64]storage.Record),
		now:     time.Now,
	}
}

func (b *Backend) Open(ctx context.Context) error {
	return ctx.Err()
}

func (b *Backend) Put(ctx context.Context, data []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastID++
	b.records[b.lastID] = storage.Record{
		ID:        b.lastID,
		Data:      bytes.Clone(data),
		CreatedAt: b.now().UTC(),
	}
	return b.lastID, nil
}

func (b *Backend) Get(ctx context.Context, id int64) (storage.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.Record{}, false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.records[id]
	if !ok {
		return storage.Record{}, false, nil
	}
	rec.Data = bytes.Clone(rec.Data)
	return rec, true, nil
}

func (b *Backend) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.records[id]; !ok {
		return false, nil
	}
	delete(b.records, id)
	return true, nil
}

func (b *Backend) List(ctx context.Context) ([]storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]storage.Record, 0, len(b.records))
	for _, rec := range b.records {
		rec.Data = bytes.Clone(rec.Data)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *Backend) Close() error { return nil }
