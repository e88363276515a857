// Package sqlstore implements storage backends over database/sql for
// SQLite and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"photo-filters/internal/storage"

	"github.com/guregu/null/zero"
)

// dialect holds what differs between the supported databases.
type dialect struct {
	name         string
	driverName   string
	numbered     bool
	pragmas      []string
	maxOpenConns int
	migrations   []migration
}

// rebind rewrites ? placeholders to $1, $2... for dialects that need it.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const (
	insertImageQuery = `
	INSERT INTO saved_images (data, created_at)
	VALUES (?, ?)
	RETURNING id
`
	getImageQuery = `
	SELECT id, data, created_at
	FROM saved_images
	WHERE id = ?
`
	deleteImageQuery = `
	DELETE FROM saved_images WHERE id = ?
`
	listImagesQuery = `
	SELECT id, data, created_at
	FROM saved_images
	ORDER BY id ASC
`
)

// Backend stores images in a saved_images table.
type Backend struct {
	dialect dialect
	dsn     string
	now     func() time.Time

	mu sync.Mutex
	db *sql.DB
}

var _ storage.Backend = (*Backend)(nil)

func newBackend(d dialect, dsn string) *Backend {
	return &Backend{
		dialect: d,
		dsn:     dsn,
		now:     time.Now,
	}
}

// Open connects, applies pragmas and runs pending migrations. Calling it on
// an open backend does nothing.
func (b *Backend) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		return nil
	}

	db, err := sql.Open(b.dialect.driverName, b.dsn)
	if err != nil {
		return fmt.Errorf("%s: failed to open database: %w", b.dialect.name, err)
	}
	if b.dialect.maxOpenConns > 0 {
		db.SetMaxOpenConns(b.dialect.maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%s: failed to ping database: %w", b.dialect.name, err)
	}

	for _, pragma := range b.dialect.pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("%s: failed to set pragma %q: %w", b.dialect.name, pragma, err)
		}
	}

	if err := runMigrations(ctx, db, b.dialect); err != nil {
		db.Close()
		return fmt.Errorf("%s: failed to run migrations: %w", b.dialect.name, err)
	}

	b.db = db
	return nil
}

func (b *Backend) handle() (*sql.DB, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil, errors.New("database not open")
	}
	return b.db, nil
}

// DB exposes the connection pool, nil until Open succeeds.
func (b *Backend) DB() *sql.DB {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db
}

func (b *Backend) Put(ctx context.Context, data []byte) (int64, error) {
	db, err := b.handle()
	if err != nil {
		return 0, err
	}

	var id int64
	err = RunInTransaction(ctx, db, func(txCtx context.Context) error {
		exec := GetExecutor(txCtx, db)
		err := exec.QueryRowContext(txCtx, b.dialect.rebind(insertImageQuery),
			data,
			b.now().UTC(),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to insert image record: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (b *Backend) Get(ctx context.Context, id int64) (storage.Record, bool, error) {
	db, err := b.handle()
	if err != nil {
		return storage.Record{}, false, err
	}

	var row imageRow
	err = GetExecutor(ctx, db).QueryRowContext(ctx, b.dialect.rebind(getImageQuery), id).Scan(
		&row.ID,
		&row.Data,
		&row.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, false, nil
	}
	if err != nil {
		return storage.Record{}, false, fmt.Errorf("failed to get image: %w", err)
	}

	return row.toRecord(), true, nil
}

func (b *Backend) Delete(ctx context.Context, id int64) (bool, error) {
	db, err := b.handle()
	if err != nil {
		return false, err
	}

	var affected int64
	err = RunInTransaction(ctx, db, func(txCtx context.Context) error {
		res, err := GetExecutor(txCtx, db).ExecContext(txCtx, b.dialect.rebind(deleteImageQuery), id)
		if err != nil {
			return fmt.Errorf("failed to delete image record: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (b *Backend) List(ctx context.Context) ([]storage.Record, error) {
	db, err := b.handle()
	if err != nil {
		return nil, err
	}

	rows, err := GetExecutor(ctx, db).QueryContext(ctx, b.dialect.rebind(listImagesQuery))
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	var records []storage.Record
	for rows.Next() {
		var row imageRow
		if err := rows.Scan(&row.ID, &row.Data, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan image row: %w", err)
		}
		records = append(records, row.toRecord())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate image rows: %w", err)
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

type imageRow struct {
	ID        int64     `db:"id"`
	Data      []byte    `db:"data"`
	CreatedAt zero.Time `db:"created_at"`
}

func (r imageRow) toRecord() storage.Record {
	rec := storage.Record{ID: r.ID, Data: r.Data}
	if r.CreatedAt.Valid {
		rec.CreatedAt = r.CreatedAt.Time
	}
	return rec
}
