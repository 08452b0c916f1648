package audit

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-logic-hub/internal/property"
)

const schemaFile = "../../migrations/20260320_080000_audit_log.up.sql"

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(schemaFile)
	if err != nil {
		t.Fatalf("reading schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	return db
}

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupDB(t))
	base := time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{Action: ActionStateWrite, Entity: property.EntityChannel, PropertyID: "p-1", OwnerID: "ch-1", Source: "10.0.0.9", Details: map[string]any{"expected": "sw_on"}, CreatedAt: base},
		{Action: ActionStateRejected, Entity: property.EntityChannel, PropertyID: "p-1", OwnerID: "ch-1", Source: "10.0.0.9", CreatedAt: base.Add(time.Second)},
		{Action: ActionStateWrite, Entity: property.EntityDevice, PropertyID: "p-2", Source: "ops", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if e.ID == "" {
			t.Error("Create() did not assign an ID")
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 3 || len(all.Entries) != 3 {
		t.Fatalf("List() total = %d, entries = %d, want 3", all.Total, len(all.Entries))
	}
	if all.Entries[0].PropertyID != "p-2" {
		t.Errorf("first entry = %s, want most recent", all.Entries[0].PropertyID)
	}
	if all.Limit != defaultLimit {
		t.Errorf("Limit = %d, want default %d", all.Limit, defaultLimit)
	}

	byProp, err := repo.List(ctx, Filter{PropertyID: "p-1", Action: ActionStateWrite})
	if err != nil {
		t.Fatalf("List(filter) error = %v", err)
	}
	if byProp.Total != 1 {
		t.Fatalf("filtered total = %d, want 1", byProp.Total)
	}
	got := byProp.Entries[0]
	if got.OwnerID != "ch-1" || got.Entity != property.EntityChannel || got.Details["expected"] != "sw_on" {
		t.Errorf("filtered entry = %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
	}
}

func TestListClampsPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupDB(t))
	for range 3 {
		if err := repo.Create(ctx, &Entry{Action: ActionStateWrite, Entity: property.EntityDevice, PropertyID: "p", Source: "test"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	res, err := repo.List(ctx, Filter{Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Limit != maxLimit || res.Offset != 0 {
		t.Errorf("paging = %d/%d, want %d/0", res.Limit, res.Offset, maxLimit)
	}

	page, err := repo.List(ctx, Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List(page) error = %v", err)
	}
	if page.Total != 3 || len(page.Entries) != 1 {
		t.Errorf("page total = %d, entries = %d, want 3 and 1", page.Total, len(page.Entries))
	}
}
