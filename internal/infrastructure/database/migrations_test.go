package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/winstonhome/winston/migrations"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20261001_120000_channels.up.sql":        {Data: []byte("CREATE TABLE channels (id TEXT PRIMARY KEY);")},
		"20261001_120000_channels.down.sql":      {Data: []byte("DROP TABLE channels;")},
		"20261002_090000_channel_notes.up.sql":   {Data: []byte("ALTER TABLE channels ADD COLUMN note TEXT;")},
		"20261002_090000_channel_notes.down.sql": {Data: []byte("ALTER TABLE channels DROP COLUMN note;")},
		"README.md":                              {Data: []byte("ignored")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	return n == 1
}

func TestLoadMigrations(t *testing.T) {
	got, err := LoadMigrations(testMigrations())
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d migrations, want 2", len(got))
	}
	if got[0].Version != "20261001_120000" || got[0].Name != "channels" || got[0].Down == "" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Name != "channel_notes" {
		t.Errorf("second name = %q, want channel_notes", got[1].Name)
	}
}

func TestLoadMigrations_Invalid(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{name: "down without up", fsys: fstest.MapFS{
			"20261001_120000_channels.down.sql": {Data: []byte("DROP TABLE channels;")},
		}},
		{name: "mismatched names", fsys: fstest.MapFS{
			"20261001_120000_channels.up.sql": {Data: []byte("CREATE TABLE channels (id TEXT);")},
			"20261001_120000_values.down.sql": {Data: []byte("DROP TABLE channels;")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadMigrations(tt.fsys); !errors.Is(err, ErrBadMigration) {
				t.Errorf("LoadMigrations() error = %v, want ErrBadMigration", err)
			}
		})
	}
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	applied, err := db.Migrate(ctx, testMigrations())
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("applied %d, want 2", len(applied))
	}
	if _, err := db.Exec(ctx, "INSERT INTO channels (id, note) VALUES ('house', 'hall')"); err != nil {
		t.Fatalf("schema not in place: %v", err)
	}

	again, err := db.Migrate(ctx, testMigrations())
	if err != nil || len(again) != 0 {
		t.Errorf("second Migrate() = %d applied, %v; want none", len(again), err)
	}
}

func TestMigrate_FailureKeepsEarlierSteps(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	fsys["20261003_000000_broken.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE oops (")}

	applied, err := db.Migrate(ctx, fsys)
	if err == nil {
		t.Fatal("Migrate() with a broken step = nil, want error")
	}
	if len(applied) != 2 {
		t.Errorf("applied %d before failure, want 2", len(applied))
	}

	states, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatal(err)
	}
	if states[2].Applied() {
		t.Error("broken migration recorded as applied")
	}
}

func TestRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if m, err := db.Rollback(ctx, testMigrations()); m != nil || err != nil {
		t.Fatalf("Rollback() on empty database = %v, %v; want nil, nil", m, err)
	}
	if _, err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatal(err)
	}

	m, err := db.Rollback(ctx, testMigrations())
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if m.Name != "channel_notes" {
		t.Errorf("rolled back %q, want channel_notes", m.Name)
	}

	states, err := db.MigrationStatus(ctx, testMigrations())
	if err != nil {
		t.Fatal(err)
	}
	if !states[0].Applied() || states[1].Applied() {
		t.Errorf("states after rollback = %+v", states)
	}

	if _, err := db.Rollback(ctx, testMigrations()); err != nil {
		t.Fatal(err)
	}
	if tableExists(t, db, "channels") {
		t.Error("channels table still present after rolling everything back")
	}
}

func TestRollback_NoDownFile(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := testMigrations()
	fsys["20261003_000000_forward_only.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE audit (id TEXT);")}

	if _, err := db.Migrate(ctx, fsys); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Rollback(ctx, fsys); !errors.Is(err, ErrNoDown) {
		t.Errorf("Rollback() error = %v, want ErrNoDown", err)
	}
}

func TestMigrationStatus_UnknownAppliedVersion(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatal(err)
	}

	older := fstest.MapFS{
		"20261001_120000_channels.up.sql": {Data: []byte("CREATE TABLE channels (id TEXT PRIMARY KEY);")},
	}
	if _, err := db.MigrationStatus(ctx, older); !errors.Is(err, ErrBadMigration) {
		t.Errorf("MigrationStatus() error = %v, want ErrBadMigration", err)
	}
}

func TestShippedMigrations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate(migrations.FS) error = %v", err)
	}
	if !tableExists(t, db, "trigger_executions") {
		t.Fatal("trigger_executions not created")
	}

	for {
		m, err := db.Rollback(ctx, migrations.FS)
		if err != nil {
			t.Fatalf("Rollback() error = %v", err)
		}
		if m == nil {
			break
		}
	}
	if tableExists(t, db, "trigger_executions") {
		t.Error("trigger_executions still present after full rollback")
	}
}
