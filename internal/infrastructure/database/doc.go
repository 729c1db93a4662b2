// Package database provides the SQLite store used by the Winston master.
//
// The master keeps one table today, the group trigger execution log. The
// package owns the connection (WAL mode, busy timeout, owner-only file
// mode) and applies migrations read from an fs.FS, normally migrations.FS:
//
//	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Rollback reverts the latest migration; MigrationStatus lists them all.
// The winston binary exposes both through its -migrate flag.
package database
