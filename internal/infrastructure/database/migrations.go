package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"time"
)

const migrationsTable = "schema_migrations"

// Migration errors.
var (
	ErrBadMigration = errors.New("database: invalid migration set")
	ErrNoDown       = errors.New("database: migration has no down file")
)

// migrationFile matches YYYYMMDD_HHMMSS_name.up.sql and .down.sql.
var migrationFile = regexp.MustCompile(`^(\d{8}_\d{6})_([a-z0-9_]+)\.(up|down)\.sql$`)

// Migration is one schema step.
type Migration struct {
	Version string
	Name    string
	Up      string
	Down    string
}

// MigrationState pairs a migration with the time it was applied. AppliedAt
// is zero for pending migrations.
type MigrationState struct {
	Migration
	AppliedAt time.Time
}

// Applied reports whether the migration has been applied.
func (s MigrationState) Applied() bool { return !s.AppliedAt.IsZero() }

// LoadMigrations reads the migrations at the root of fsys, oldest first.
// Files that do not follow the naming scheme are ignored.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	byVersion := make(map[string]*Migration)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		parts := migrationFile.FindStringSubmatch(e.Name())
		if parts == nil {
			continue
		}
		body, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}

		m, ok := byVersion[parts[1]]
		if !ok {
			m = &Migration{Version: parts[1], Name: parts[2]}
			byVersion[parts[1]] = m
		}
		if m.Name != parts[2] {
			return nil, fmt.Errorf("%w: version %s has files named %q and %q", ErrBadMigration, m.Version, m.Name, parts[2])
		}
		if parts[3] == "up" {
			m.Up = string(body)
		} else {
			m.Down = string(body)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("%w: version %s has no up file", ErrBadMigration, m.Version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrate applies every pending migration in fsys, oldest first, and returns
// the ones it applied. Each runs in its own transaction; on failure the
// earlier ones stay applied.
func (db *DB) Migrate(ctx context.Context, fsys fs.FS) ([]Migration, error) {
	states, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		return nil, err
	}

	var applied []Migration
	for _, s := range states {
		if s.Applied() {
			continue
		}
		m := s.Migration
		err := db.Tx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.Up); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO "+migrationsTable+" (version, name, applied_at) VALUES (?, ?, ?)",
				m.Version, m.Name, time.Now().UTC().Format(time.RFC3339Nano),
			)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("applying migration %s_%s: %w", m.Version, m.Name, err)
		}
		applied = append(applied, m)
	}
	return applied, nil
}

// Rollback reverts the most recently applied migration and returns it, or
// nil when nothing is applied.
func (db *DB) Rollback(ctx context.Context, fsys fs.FS) (*Migration, error) {
	states, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		return nil, err
	}

	var latest *Migration
	for i := len(states) - 1; i >= 0; i-- {
		if states[i].Applied() {
			latest = &states[i].Migration
			break
		}
	}
	if latest == nil {
		return nil, nil
	}
	if latest.Down == "" {
		return nil, fmt.Errorf("%w: %s_%s", ErrNoDown, latest.Version, latest.Name)
	}

	err = db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, latest.Down); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM "+migrationsTable+" WHERE version = ?", latest.Version)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rolling back %s_%s: %w", latest.Version, latest.Name, err)
	}
	return latest, nil
}

// MigrationStatus lists every migration in fsys with its applied time.
// Versions recorded in the database but missing from fsys are an error.
func (db *DB) MigrationStatus(ctx context.Context, fsys fs.FS) ([]MigrationState, error) {
	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return nil, err
	}
	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	states := make([]MigrationState, len(migrations))
	for i, m := range migrations {
		states[i] = MigrationState{Migration: m, AppliedAt: applied[m.Version]}
		delete(applied, m.Version)
	}
	if len(applied) > 0 {
		unknown := make([]string, 0, len(applied))
		for version := range applied {
			unknown = append(unknown, version)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: applied versions not in the migration set: %s",
			ErrBadMigration, strings.Join(unknown, ", "))
	}
	return states, nil
}

func (db *DB) appliedMigrations(ctx context.Context) (map[string]time.Time, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
		version TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("creating %s: %w", migrationsTable, err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version, applied_at FROM "+migrationsTable)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", migrationsTable, err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var version, at string
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", migrationsTable, err)
		}
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad applied_at %q: %w", version, at, err)
		}
		applied[version] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", migrationsTable, err)
	}
	return applied, nil
}
