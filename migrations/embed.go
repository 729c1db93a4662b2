// Package migrations holds the master's SQLite schema as paired
// YYYYMMDD_HHMMSS_name.up.sql and .down.sql files.
package migrations

import "embed"

// FS contains the migration files at its root.
//
//go:embed *.sql
var FS embed.FS
