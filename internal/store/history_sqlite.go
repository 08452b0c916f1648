package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-hub/internal/property"
)

// HistoryEntry is one saved state of a property.
type HistoryEntry struct {
	PropertyID    string              `json:"property_id"`
	Entity        property.EntityKind `json:"entity"`
	OwnerID       string              `json:"owner_id"`
	ActualValue   any                 `json:"actual_value"`
	ExpectedValue any                 `json:"expected_value"`
	Valid         bool                `json:"valid"`
	RecordedAt    time.Time           `json:"recorded_at"`
}

// HistoryQuery selects entries of one property, newest first.
type HistoryQuery struct {
	PropertyID string
	Since      time.Time
	Limit      int
}

// DefaultHistoryLimit caps a query without an explicit limit.
const DefaultHistoryLimit = 100

// HistoryRepository keeps property state history in SQLite.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a history repository over db.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append stores e.
func (r *HistoryRepository) Append(ctx context.Context, e HistoryEntry) error {
	actual, err := encodeValue(e.ActualValue)
	if err != nil {
		return fmt.Errorf("encoding actual value: %w", err)
	}
	expected, err := encodeValue(e.ExpectedValue)
	if err != nil {
		return fmt.Errorf("encoding expected value: %w", err)
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO property_state_history
			(property_id, entity, owner_id, actual_value, expected_value, valid, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.PropertyID, string(e.Entity), e.OwnerID, actual, expected, boolToInt(e.Valid),
		e.RecordedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

// List returns entries matching q, newest first.
func (r *HistoryRepository) List(ctx context.Context, q HistoryQuery) ([]HistoryEntry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT property_id, entity, owner_id, actual_value, expected_value, valid, recorded_at
		FROM property_state_history
		WHERE property_id = ? AND recorded_at >= ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`,
		q.PropertyID, q.Since.UTC().Format(timeLayout), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			e                HistoryEntry
			entity, at       string
			actual, expected sql.NullString
			valid            int
		)
		if err := rows.Scan(&e.PropertyID, &entity, &e.OwnerID, &actual, &expected, &valid, &at); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		e.Entity = property.EntityKind(entity)
		e.Valid = valid != 0
		if e.ActualValue, err = decodeValue(actual); err != nil {
			return nil, fmt.Errorf("decoding actual value: %w", err)
		}
		if e.ExpectedValue, err = decodeValue(expected); err != nil {
			return nil, fmt.Errorf("decoding expected value: %w", err)
		}
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parsing recorded_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes entries recorded before cutoff and returns how many went.
func (r *HistoryRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM property_state_history WHERE recorded_at < ?`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return result.RowsAffected()
}
