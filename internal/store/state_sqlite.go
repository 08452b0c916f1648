package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-hub/internal/property"
)

// SQLiteStateRepository keeps property state records in the property_states table.
type SQLiteStateRepository struct {
	db *sql.DB
}

var _ property.StateStore = (*SQLiteStateRepository)(nil)

// NewSQLiteStateRepository creates a SQLite-backed state store.
func NewSQLiteStateRepository(db *sql.DB) *SQLiteStateRepository {
	return &SQLiteStateRepository{db: db}
}

const sqliteStateColumns = `property_id, actual_value, expected_value, valid, pending, created_at, updated_at`

// Find returns the state record for a property.
func (r *SQLiteStateRepository) Find(ctx context.Context, id string) (*property.State, error) {
	return scanSQLiteState(r.db.QueryRowContext(ctx,
		`SELECT `+sqliteStateColumns+` FROM property_states WHERE property_id = ?`, id))
}

func scanSQLiteState(row *sql.Row) (*property.State, error) {
	var (
		s                    property.State
		actual, expected     sql.NullString
		pending              sql.NullString
		valid                int
		createdAt, updatedAt string
	)
	err := row.Scan(&s.PropertyID, &actual, &expected, &valid, &pending, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, property.ErrStateNotFound
		}
		return nil, fmt.Errorf("querying property state: %w", err)
	}

	if s.ActualValue, err = decodeValue(actual); err != nil {
		return nil, fmt.Errorf("decoding actual value: %w", err)
	}
	if s.ExpectedValue, err = decodeValue(expected); err != nil {
		return nil, fmt.Errorf("decoding expected value: %w", err)
	}
	if s.Pending, err = parseNullableTime(pending); err != nil {
		return nil, err
	}
	s.Valid = valid != 0
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if s.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &s, nil
}

// Create stores a new record built from patch. An existing record for the
// same property is replaced.
func (r *SQLiteStateRepository) Create(ctx context.Context, id string, patch property.Patch) (*property.State, error) {
	s := property.NewState(id, patch)
	if err := r.upsert(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Update applies patch to the stored record and returns the result. Only
// the columns set in patch are written, so concurrent updates touching
// different fields do not overwrite each other.
func (r *SQLiteStateRepository) Update(ctx context.Context, state *property.State, patch property.Patch) (*property.State, error) {
	var (
		sets []string
		args []any
	)
	if patch.ActualValue.Set {
		v, err := encodeValue(patch.ActualValue.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding actual value: %w", err)
		}
		sets, args = append(sets, "actual_value = ?"), append(args, v)
	}
	if patch.ExpectedValue.Set {
		v, err := encodeValue(patch.ExpectedValue.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding expected value: %w", err)
		}
		sets, args = append(sets, "expected_value = ?"), append(args, v)
	}
	if patch.Valid.Set {
		sets, args = append(sets, "valid = ?"), append(args, boolToInt(patch.Valid.Value))
	}
	if patch.Pending.Set {
		sets, args = append(sets, "pending = ?"), append(args, nullableTime(patch.Pending.Value))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(timeLayout), state.PropertyID)

	s, err := scanSQLiteState(r.db.QueryRowContext(ctx,
		`UPDATE property_states SET `+strings.Join(sets, ", ")+
			` WHERE property_id = ? RETURNING `+sqliteStateColumns, args...))
	if err != nil {
		if errors.Is(err, property.ErrStateNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating property state: %w", err)
	}
	return s, nil
}

// Delete removes the record for a property.
func (r *SQLiteStateRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM property_states WHERE property_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting property state: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteStateRepository) upsert(ctx context.Context, s *property.State) error {
	actual, expected, err := encodeFields(s)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO property_states
			(property_id, actual_value, expected_value, valid, pending, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (property_id) DO UPDATE SET
			actual_value = excluded.actual_value,
			expected_value = excluded.expected_value,
			valid = excluded.valid,
			pending = excluded.pending,
			updated_at = excluded.updated_at`,
		s.PropertyID, actual, expected, boolToInt(s.Valid), nullableTime(s.Pending),
		s.CreatedAt.Format(timeLayout), s.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting property state: %w", err)
	}
	return nil
}

func encodeFields(s *property.State) (actual, expected sql.NullString, err error) {
	if actual, err = encodeValue(s.ActualValue); err != nil {
		return actual, expected, fmt.Errorf("encoding actual value: %w", err)
	}
	if expected, err = encodeValue(s.ExpectedValue); err != nil {
		return actual, expected, fmt.Errorf("encoding expected value: %w", err)
	}
	return actual, expected, nil
}
