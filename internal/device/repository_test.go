package device

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the catalogue schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema, err := os.ReadFile("../../migrations/20260301_090000_initial_schema.up.sql")
	if err != nil {
		t.Fatalf("reading schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func seedCatalogue(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	ctx := context.Background()

	if err := repo.CreateConnector(ctx, &Connector{ID: "conn", Name: "Panel", Protocol: ProtocolPanel}); err != nil {
		t.Fatalf("CreateConnector() error = %v", err)
	}
	devices := []*Device{
		{ID: "gw", ConnectorID: "conn", Name: "Gateway", Category: CategoryGateway,
			IPAddress: strPtr("10.0.0.2"), AccessToken: strPtr("tok")},
		{ID: "sub", ConnectorID: "conn", Name: "Relay", Category: CategorySubDevice, ParentID: strPtr("gw")},
	}
	for _, d := range devices {
		if err := repo.CreateDevice(ctx, d); err != nil {
			t.Fatalf("CreateDevice(%s) error = %v", d.ID, err)
		}
	}
	if err := repo.CreateChannel(ctx, &Channel{
		ID: "ch", DeviceID: "sub", Name: "Relay 1",
		Capability: Capability{Type: CapabilitySwitch, Permission: PermissionReadWrite},
	}); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
}

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))
	seedCatalogue(t, repo)

	c, err := repo.GetConnector(ctx, "conn")
	if err != nil || c.Protocol != ProtocolPanel || c.CreatedAt.IsZero() {
		t.Errorf("GetConnector() = %+v, %v", c, err)
	}

	gw, err := repo.GetDevice(ctx, "gw")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if gw.IPAddress == nil || *gw.IPAddress != "10.0.0.2" || gw.AccessToken == nil || *gw.AccessToken != "tok" {
		t.Errorf("GetDevice(gw) = %+v", gw)
	}
	if gw.ParentID != nil {
		t.Errorf("gateway parent = %v, want nil", *gw.ParentID)
	}

	sub, err := repo.GetDevice(ctx, "sub")
	if err != nil || sub.ParentID == nil || *sub.ParentID != "gw" {
		t.Errorf("GetDevice(sub) = %+v, %v", sub, err)
	}

	ch, err := repo.GetChannel(ctx, "ch")
	if err != nil {
		t.Fatalf("GetChannel() error = %v", err)
	}
	if ch.Capability.Type != CapabilitySwitch || ch.Capability.Permission != PermissionReadWrite {
		t.Errorf("GetChannel() capability = %+v", ch.Capability)
	}

	list, err := repo.ListDevices(ctx)
	if err != nil || len(list) != 2 || list[0].Name != "Gateway" {
		t.Errorf("ListDevices() = %+v, %v", list, err)
	}
}

func TestSQLiteRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))

	if _, err := repo.GetConnector(ctx, "x"); !errors.Is(err, ErrConnectorNotFound) {
		t.Errorf("GetConnector() error = %v", err)
	}
	if _, err := repo.GetDevice(ctx, "x"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice() error = %v", err)
	}
	if _, err := repo.GetChannel(ctx, "x"); !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("GetChannel() error = %v", err)
	}
	if err := repo.DeleteDevice(ctx, "x"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("DeleteDevice() error = %v", err)
	}
	if err := repo.UpdateDevice(ctx, &Device{ID: "x", ConnectorID: "c", Name: "n", Category: CategoryGeneric}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("UpdateDevice() error = %v", err)
	}
}

func TestSQLiteRepositoryDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))
	seedCatalogue(t, repo)

	err := repo.CreateDevice(ctx, &Device{ID: "gw", ConnectorID: "conn", Name: "Again", Category: CategoryGateway})
	if !errors.Is(err, ErrExists) {
		t.Errorf("CreateDevice(duplicate) error = %v, want ErrExists", err)
	}
}

func TestSQLiteRepositoryUpdateAndCascade(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))
	seedCatalogue(t, repo)

	sub, _ := repo.GetDevice(ctx, "sub")
	sub.IPAddress = strPtr("10.0.0.3")
	if err := repo.UpdateDevice(ctx, sub); err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}
	got, _ := repo.GetDevice(ctx, "sub")
	if got.IPAddress == nil || *got.IPAddress != "10.0.0.3" {
		t.Errorf("updated ip = %v", got.IPAddress)
	}

	if err := repo.DeleteDevice(ctx, "sub"); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	channels, err := repo.ListChannels(ctx, "sub")
	if err != nil || len(channels) != 0 {
		t.Errorf("ListChannels() after delete = %+v, %v", channels, err)
	}
}
