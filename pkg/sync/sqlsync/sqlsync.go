// Package sqlsync persists synchronized fields in a SQLite database.
//
// Values are stored as JSON in the stan_fields table, one row per key.
package sqlsync

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vango-dev/stan/internal/codec"
	"github.com/vango-dev/stan/pkg/stan"
)

//go:embed schema.sql
var schemaSQL string

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *DB) {
		d.logger = l
	}
}

// WithTimeout bounds each statement run on behalf of a store. Defaults to
// five seconds, matching the busy timeout.
func WithTimeout(d time.Duration) Option {
	return func(db *DB) {
		db.timeout = d
	}
}

// DB is a SQLite-backed field source.
type DB struct {
	db      *sql.DB
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// Open creates or opens the database at path.
//
// The connection runs in WAL mode with a 5-second busy timeout and a
// single open connection, since SQLite allows one writer at a time.
func Open(path string, opts ...Option) (*DB, error) {
	d := &DB{timeout: 5 * time.Second, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	d.db = db
	return d, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Read decodes the value of key into a value of like's type. A missing row
// is reported as stan.ErrNoSnapshot.
func (d *DB) Read(ctx context.Context, key string, like any) (any, error) {
	var data []byte
	err := d.db.QueryRowContext(ctx, `SELECT value FROM stan_fields WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("key %q: %w", key, stan.ErrNoSnapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", key, err)
	}
	return codec.Decode(codec.JSON, data, like)
}

// Write upserts the value of key.
func (d *DB) Write(ctx context.Context, key string, v any) error {
	data, err := codec.Marshal(codec.JSON, v)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO stan_fields (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, data, d.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (d *DB) Delete(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM stan_fields WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys, sorted.
func (d *DB) Keys(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT key FROM stan_fields ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// UpdatedAt returns when key was last written.
func (d *DB) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	var ms int64
	err := d.db.QueryRowContext(ctx, `SELECT updated_at FROM stan_fields WHERE key = ?`, key).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("key %q: %w", key, stan.ErrNoSnapshot)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query %q: %w", key, err)
	}
	return time.UnixMilli(ms), nil
}

// Field returns a synchronizer storing a field under its name.
func (d *DB) Field(initial any) stan.Synchronizer {
	return &field{db: d, initial: initial}
}

type field struct {
	db      *DB
	initial any
}

func (f *field) InitialValue() any {
	return f.initial
}

func (f *field) GetSnapshot(key string) (stan.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), f.db.timeout)
	defer cancel()

	v, err := f.db.Read(ctx, key, f.initial)
	if errors.Is(err, stan.ErrNoSnapshot) {
		return stan.Missing(), nil
	}
	if err != nil {
		return stan.Snapshot{}, err
	}
	return stan.Found(v), nil
}

func (f *field) Update(v any, key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.db.timeout)
	defer cancel()

	if err := f.db.Write(ctx, key, v); err != nil {
		return err
	}
	f.db.logger.Debug("sqlsync: wrote field", "key", key)
	return nil
}
