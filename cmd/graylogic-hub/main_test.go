package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, "/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is invalid.
func TestRun_MissingDatabasePath(t *testing.T) {
	path := writeConfig(t, `
site:
  id: test-site
database:
  path: ""
logging:
  level: info
  format: text
  output: stdout
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, path)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
	if !strings.Contains(err.Error(), "database.path") {
		t.Errorf("run() error = %v, want database.path validation error", err)
	}
}

// TestRun_InvalidStateBackend verifies config validation covers the state store.
func TestRun_InvalidStateBackend(t *testing.T) {
	path := writeConfig(t, `
site:
  id: test-site
state:
  backend: redis
`)

	err := run(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "state.backend") {
		t.Errorf("run() error = %v, want state.backend validation error", err)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "graylogic-hub "+version) {
		t.Errorf("version output = %q", out.String())
	}
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hub.db")
	path := writeConfig(t, `
site:
  id: test-site
database:
  path: "`+dbPath+`"
  wal_mode: true
  busy_timeout: 5
logging:
  level: error
  format: text
  output: stdout
`)

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"migrate", "--config", path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("migrate command error = %v", err)
	}
	if !strings.Contains(out.String(), "0 pending") {
		t.Errorf("migrate output = %q, want no pending migrations", out.String())
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"migrate", "--rollback", "--config", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("migrate --rollback error = %v", err)
	}
	if !strings.Contains(out.String(), "rolled back 20260320_080000_audit_log") || !strings.Contains(out.String(), "1 pending") {
		t.Errorf("rollback output = %q", out.String())
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
	t.Setenv("GRAYLOGIC_CONFIG", "/etc/hub.yaml")
	if got := getConfigPath(); got != "/etc/hub.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}
