package database

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"testing"
	"testing/fstest"
)

// useMigrations points the package at fsys for the duration of the test.
func useMigrations(t *testing.T, fsys fs.FS) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = fsys, "."
	t.Cleanup(func() { MigrationsFS, MigrationsDir = origFS, origDir })
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		t.Fatalf("sqlite_master: %v", err)
	}
	return n == 1
}

// TestHubSchema applies and fully rolls back the real hub migrations.
func TestHubSchema(t *testing.T) {
	useMigrations(t, os.DirFS("../../../migrations"))
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	for _, table := range []string{"connectors", "devices", "channels", "property_state_history", "audit_logs"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s missing after Migrate", table)
		}
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(pending) != 0 || len(applied) == 0 {
		t.Fatalf("applied=%d pending=%d, want all applied", len(applied), len(pending))
	}
	if applied[0].Name != "initial_schema" || applied[0].AppliedAt.IsZero() {
		t.Errorf("first record = %+v", applied[0])
	}

	// Migrate is idempotent.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	for range applied {
		if _, err := db.MigrateDown(ctx); err != nil {
			t.Fatalf("MigrateDown() error = %v", err)
		}
	}
	if tableExists(t, db, "devices") || tableExists(t, db, "audit_logs") {
		t.Error("tables remain after rolling back every migration")
	}
	if m, err := db.MigrateDown(ctx); m != nil || err != nil {
		t.Errorf("MigrateDown() on empty schema = %v, %v", m, err)
	}
}

func TestMigrateStopsAtFailure(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20260101_000000_first.up.sql":   {Data: []byte("CREATE TABLE first (id TEXT);")},
		"20260101_000000_first.down.sql": {Data: []byte("DROP TABLE first;")},
		"20260102_000000_broken.up.sql":  {Data: []byte("CREATE TABLE broken (;")},
		"20260103_000000_third.up.sql":   {Data: []byte("CREATE TABLE third (id TEXT);")},
	})
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() should fail on the broken migration")
	}
	if !tableExists(t, db, "first") || tableExists(t, db, "third") {
		t.Error("expected the first migration committed and the third not attempted")
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 2 || pending[0].Name != "broken" {
		t.Errorf("applied=%v pending=%v", applied, pending)
	}
}

func TestMigrateDownErrors(t *testing.T) {
	ctx := context.Background()
	useMigrations(t, fstest.MapFS{
		"20260101_000000_nodown.up.sql": {Data: []byte("CREATE TABLE nodown (id TEXT);")},
	})
	db := openTestDB(t)
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := db.MigrateDown(ctx); err == nil {
		t.Error("MigrateDown() without down SQL should fail")
	}

	// The recorded version vanished from the source.
	useMigrations(t, fstest.MapFS{})
	if _, err := db.MigrateDown(ctx); !errors.Is(err, ErrUnknownMigration) {
		t.Errorf("MigrateDown() error = %v, want ErrUnknownMigration", err)
	}
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"20260102_000000_b.up.sql":   {Data: []byte("B")},
		"20260101_000000_a.up.sql":   {Data: []byte("A")},
		"20260101_000000_a.down.sql": {Data: []byte("-A")},
		"README.md":                  {Data: []byte("docs")},
		"notes.sql":                  {Data: []byte("ignored")},
	}
	got, err := loadMigrations(fsys, ".")
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(got) != 2 || got[0].Version != "20260101_000000" || got[0].DownSQL != "-A" || got[1].Name != "b" {
		t.Errorf("loadMigrations() = %+v", got)
	}

	if m, err := loadMigrations(fsys, "missing"); m != nil || err != nil {
		t.Errorf("missing dir = %v, %v", m, err)
	}
	if m, err := loadMigrations(nil, "."); m != nil || err != nil {
		t.Errorf("nil fs = %v, %v", m, err)
	}

	orphan := fstest.MapFS{"20260101_000000_a.down.sql": {Data: []byte("-A")}}
	if _, err := loadMigrations(orphan, "."); err == nil {
		t.Error("down file without up file should fail")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		version  string
		name     string
		up       bool
		ok       bool
	}{
		{"20260301_090000_initial_schema.up.sql", "20260301_090000", "initial_schema", true, true},
		{"20260320_080000_audit_log.down.sql", "20260320_080000", "audit_log", false, true},
		{"20260101_000000.up.sql", "20260101_000000", "", true, true},
		{"20260101_000000_x.sql", "", "", false, false},
		{"2026_01_x.up.sql", "", "", false, false},
		{"embed.go", "", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if version != tt.version || name != tt.name || up != tt.up || ok != tt.ok {
				t.Errorf("got (%q, %q, %v, %v), want (%q, %q, %v, %v)",
					version, name, up, ok, tt.version, tt.name, tt.up, tt.ok)
			}
		})
	}
}
