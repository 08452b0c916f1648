package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-hub/internal/property"
)

// Backend names a state store implementation.
type Backend string

// Supported backends.
const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
	BackendNone     Backend = "none"
)

// ErrUnknownBackend is returned for an unrecognised backend name.
var ErrUnknownBackend = errors.New("store: unknown state backend")

// Config selects and configures the state backend.
type Config struct {
	Backend Backend
	// DSN is the PostgreSQL connection string, used by BackendPostgres.
	DSN string
}

// OpenStateStore builds the configured state backend. db is the hub's
// SQLite handle, used by BackendSQLite. The returned close function
// releases any resources the backend opened.
func OpenStateStore(ctx context.Context, cfg Config, db *sql.DB) (property.StateStore, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case BackendSQLite, "":
		if db == nil {
			return nil, noop, fmt.Errorf("sqlite state backend needs a database handle")
		}
		return NewSQLiteStateRepository(db), noop, nil
	case BackendPostgres:
		repo, err := NewPostgresStateRepository(ctx, cfg.DSN)
		if err != nil {
			return nil, noop, err
		}
		return repo, repo.Close, nil
	case BackendMemory:
		return NewMemoryStateRepository(), noop, nil
	case BackendNone:
		return Unavailable{}, noop, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
