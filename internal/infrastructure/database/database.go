package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/winstonhome/winston/internal/infrastructure/config"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600
	pingTimeout     = 5 * time.Second
)

// ErrNoPath is returned by Open when no database file is configured.
var ErrNoPath = errors.New("database: path is required")

// DB is the master's SQLite handle. SQLite has a single writer, so the pool
// holds one connection and statements queue on it.
type DB struct {
	*sql.DB
	path string
}

// Config selects the database file and its journal settings.
type Config struct {
	Path        string
	WALMode     bool
	BusyTimeout time.Duration
}

// ConfigFrom maps the database section of winston.yaml.
func ConfigFrom(c config.DatabaseConfig) Config {
	return Config{
		Path:        c.Path,
		WALMode:     c.WALMode,
		BusyTimeout: time.Duration(c.BusyTimeout) * time.Second,
	}
}

// Open opens (creating if needed) the database file and checks that it
// answers. The file is restricted to its owner.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, ErrNoPath
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("opening %s: %w", cfg.Path, err)
	}

	if err := os.Chmod(cfg.Path, filePermissions); err != nil && !errors.Is(err, fs.ErrNotExist) {
		sqlDB.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("restricting %s: %w", cfg.Path, err)
	}

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// dsn builds a go-sqlite3 connection string.
func dsn(cfg Config) string {
	q := url.Values{}
	q.Set("_busy_timeout", strconv.FormatInt(cfg.BusyTimeout.Milliseconds(), 10))
	q.Set("_foreign_keys", "on")
	if cfg.WALMode {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Close closes the database.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck reports an error unless the database answers and the schema
// has been migrated.
func (db *DB) HealthCheck(ctx context.Context) error {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM "+migrationsTable).Scan(&n); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	if n == 0 {
		return errors.New("database health check: schema not migrated")
	}
	return nil
}

// Exec runs a statement and returns the number of rows it changed.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Tx runs fn in a transaction, committing when it returns nil.
func (db *DB) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}
