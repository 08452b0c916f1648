package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nerrad567/gray-logic-hub/internal/property"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS property_states (
		property_id     TEXT PRIMARY KEY,
		actual_value    JSONB,
		expected_value  JSONB,
		valid           BOOLEAN NOT NULL DEFAULT TRUE,
		pending         TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`

// PostgresStateRepository keeps property state records in PostgreSQL.
type PostgresStateRepository struct {
	pool *pgxpool.Pool
}

var _ property.StateStore = (*PostgresStateRepository)(nil)

// NewPostgresStateRepository connects to dsn, verifies the connection and
// ensures the property_states table exists.
func NewPostgresStateRepository(ctx context.Context, dsn string) (*PostgresStateRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating property_states table: %w", err)
	}
	return &PostgresStateRepository{pool: pool}, nil
}

// Close releases the connection pool.
func (r *PostgresStateRepository) Close() {
	r.pool.Close()
}

// HealthCheck verifies the pool can reach the server.
func (r *PostgresStateRepository) HealthCheck(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}

const postgresStateColumns = `property_id, actual_value, expected_value, valid, pending, created_at, updated_at`

// Find returns the state record for a property.
func (r *PostgresStateRepository) Find(ctx context.Context, id string) (*property.State, error) {
	return scanPostgresState(r.pool.QueryRow(ctx,
		`SELECT `+postgresStateColumns+` FROM property_states WHERE property_id = $1`, id))
}

func scanPostgresState(row pgx.Row) (*property.State, error) {
	var (
		s                property.State
		actual, expected []byte
	)
	err := row.Scan(&s.PropertyID, &actual, &expected, &s.Valid, &s.Pending, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, property.ErrStateNotFound
		}
		return nil, fmt.Errorf("querying property state: %w", err)
	}

	if s.ActualValue, err = decodeJSONB(actual); err != nil {
		return nil, fmt.Errorf("decoding actual value: %w", err)
	}
	if s.ExpectedValue, err = decodeJSONB(expected); err != nil {
		return nil, fmt.Errorf("decoding expected value: %w", err)
	}
	return &s, nil
}

// Create upserts a record built from patch.
func (r *PostgresStateRepository) Create(ctx context.Context, id string, patch property.Patch) (*property.State, error) {
	s := property.NewState(id, patch)

	actual, expected, err := encodeJSONBFields(s)
	if err != nil {
		return nil, err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO property_states
			(property_id, actual_value, expected_value, valid, pending, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (property_id) DO UPDATE SET
			actual_value = EXCLUDED.actual_value,
			expected_value = EXCLUDED.expected_value,
			valid = EXCLUDED.valid,
			pending = EXCLUDED.pending,
			updated_at = EXCLUDED.updated_at`,
		s.PropertyID, actual, expected, s.Valid, s.Pending, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting property state: %w", err)
	}
	return s, nil
}

// Update writes the columns set in patch and returns the stored record.
func (r *PostgresStateRepository) Update(ctx context.Context, state *property.State, patch property.Patch) (*property.State, error) {
	args := []any{state.PropertyID}
	var sets []string
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.ActualValue.Set {
		v, err := encodeJSONB(patch.ActualValue.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding actual value: %w", err)
		}
		set("actual_value", v)
	}
	if patch.ExpectedValue.Set {
		v, err := encodeJSONB(patch.ExpectedValue.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding expected value: %w", err)
		}
		set("expected_value", v)
	}
	if patch.Valid.Set {
		set("valid", patch.Valid.Value)
	}
	if patch.Pending.Set {
		set("pending", patch.Pending.Value)
	}
	set("updated_at", time.Now().UTC())

	s, err := scanPostgresState(r.pool.QueryRow(ctx,
		`UPDATE property_states SET `+strings.Join(sets, ", ")+
			` WHERE property_id = $1 RETURNING `+postgresStateColumns, args...))
	if err != nil {
		if errors.Is(err, property.ErrStateNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating property state: %w", err)
	}
	return s, nil
}

// Delete removes the record for a property.
func (r *PostgresStateRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM property_states WHERE property_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting property state: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func encodeJSONBFields(s *property.State) (actual, expected []byte, err error) {
	if actual, err = encodeJSONB(s.ActualValue); err != nil {
		return nil, nil, fmt.Errorf("encoding actual value: %w", err)
	}
	if expected, err = encodeJSONB(s.ExpectedValue); err != nil {
		return nil, nil, fmt.Errorf("encoding expected value: %w", err)
	}
	return actual, expected, nil
}

// encodeJSONB marshals v for a JSONB column. nil becomes SQL NULL.
func encodeJSONB(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func decodeJSONB(b []byte) (any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}
