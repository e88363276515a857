package sqlstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"photo-filters/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, path string) *Backend {
	t.Helper()
	backend, err := NewSQLite(&SQLiteConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, backend.Open(context.Background()))
	t.Cleanup(func() { backend.Close() })
	return backend
}

func tempPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "nested", "test.db")
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := openTestDB(t, tempPath(t))

	before := time.Now().UTC().Add(-time.Second)
	id, err := backend.Put(ctx, []byte("first"))
	require.NoError(t, err)
	assert.Positive(t, id)

	rec, ok, err := backend.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, []byte("first"), rec.Data)
	assert.True(t, rec.CreatedAt.After(before), "created_at %v", rec.CreatedAt)

	ok, err = backend.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = backend.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = backend.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	backend := openTestDB(t, tempPath(t))

	first, err := backend.Put(ctx, []byte("a"))
	require.NoError(t, err)
	second, err := backend.Put(ctx, []byte("b"))
	require.NoError(t, err)
	_, err = backend.Delete(ctx, second)
	require.NoError(t, err)
	third, err := backend.Put(ctx, []byte("c"))
	require.NoError(t, err)

	assert.Less(t, first, second)
	assert.Less(t, second, third)

	records, err := backend.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first, records[0].ID)
	assert.Equal(t, third, records[1].ID)
	assert.Equal(t, []byte("c"), records[1].Data)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t)

	backend, err := NewSQLite(&SQLiteConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, backend.Open(ctx))
	id, err := backend.Put(ctx, []byte("durable"))
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	reopened := openTestDB(t, path)
	rec, ok, err := reopened.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("durable"), rec.Data)
}

func TestRunMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t)

	first := openTestDB(t, path)
	require.NoError(t, first.Open(ctx))
	require.NoError(t, first.Close())

	second := openTestDB(t, path)
	db := second.DB()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(sqliteMigrations), count)

	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='saved_images'",
	).Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_saved_images_created_at'",
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLiteConcurrentDeletes(t *testing.T) {
	ctx := context.Background()
	backend := openTestDB(t, tempPath(t))

	id, err := backend.Put(ctx, []byte("contested"))
	require.NoError(t, err)

	const workers = 8
	results := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := backend.Delete(ctx, id)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestOperationsBeforeOpenFail(t *testing.T) {
	backend, err := NewSQLite(&SQLiteConfig{Path: tempPath(t)})
	require.NoError(t, err)

	_, err = backend.Put(context.Background(), []byte("x"))
	assert.Error(t, err)
	assert.NoError(t, backend.Close())
}

func TestRunInTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	backend := openTestDB(t, tempPath(t))
	db := backend.DB()

	err := RunInTransaction(ctx, db, func(txCtx context.Context) error {
		_, err := backend.Put(txCtx, []byte("inside"))
		require.NoError(t, err)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	records, err := backend.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	err = RunInTransaction(ctx, db, func(txCtx context.Context) error {
		_, err := backend.Put(txCtx, []byte("one"))
		if err != nil {
			return err
		}
		_, err = backend.Put(txCtx, []byte("two"))
		return err
	})
	require.NoError(t, err)

	records, err = backend.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSQLiteDriverRegistration(t *testing.T) {
	path := tempPath(t)

	backend, err := storage.NewBackend(storage.DriverConfig{
		Type:    SQLiteDriverName,
		Options: map[string]interface{}{"path": path},
	})
	require.NoError(t, err)

	sqlite, ok := backend.(*Backend)
	require.True(t, ok)
	assert.Equal(t, path, sqlite.dsn)
}

func TestSQLiteConfigFromEnvironment(t *testing.T) {
	t.Setenv(envDBPath, "")
	assert.Equal(t, defaultPath, NewSQLiteConfig().Path)

	t.Setenv(envDBPath, "/var/lib/photos.db")
	assert.Equal(t, "/var/lib/photos.db", NewSQLiteConfig().Path)
}
