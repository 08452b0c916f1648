package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-hub/internal/property"
	"github.com/nerrad567/gray-logic-hub/internal/property/transform"
)

const propertyColumns = `
	id, kind, identifier, name, entity, owner_id, data_type, format, scale,
	equation, invalid_sentinel, settable, queryable, parent_id, value`

// PropertyRepository implements property.ConfigurationRepository using SQLite.
type PropertyRepository struct {
	db *sql.DB
}

var _ property.ConfigurationRepository = (*PropertyRepository)(nil)

// NewPropertyRepository creates a SQLite-backed definition repository.
func NewPropertyRepository(db *sql.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// Find returns the property with the given ID.
func (r *PropertyRepository) Find(ctx context.Context, id string) (property.Property, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, property.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("querying property by id: %w", err)
	}
	return p, nil
}

// FindOneBy returns the first property matching q, ordered by identifier.
func (r *PropertyRepository) FindOneBy(ctx context.Context, q property.Query) (property.Property, error) {
	where, args := buildWhere(q)
	row := r.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties`+where+` ORDER BY identifier, id LIMIT 1`, args...)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, property.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("querying property: %w", err)
	}
	return p, nil
}

// FindAllBy returns every property matching q, ordered by identifier.
func (r *PropertyRepository) FindAllBy(ctx context.Context, q property.Query) ([]property.Property, error) {
	where, args := buildWhere(q)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+propertyColumns+` FROM properties`+where+` ORDER BY identifier, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	defer rows.Close()

	var props []property.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property row: %w", err)
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}
	return props, nil
}

// Create inserts a property definition.
func (r *PropertyRepository) Create(ctx context.Context, p property.Property) error {
	if err := property.Validate(p); err != nil {
		return err
	}
	d := p.Def()

	sentinel, err := encodeValue(d.InvalidSentinel)
	if err != nil {
		return fmt.Errorf("encoding invalid sentinel: %w", err)
	}

	var parentID sql.NullString
	var value sql.NullString
	switch v := p.(type) {
	case *property.Mapped:
		parentID = sql.NullString{String: v.ParentID, Valid: true}
	case *property.Variable:
		if value, err = encodeValue(v.Value); err != nil {
			return fmt.Errorf("encoding variable value: %w", err)
		}
	}

	var scale sql.NullInt64
	if d.Scale != nil {
		scale = sql.NullInt64{Int64: int64(*d.Scale), Valid: true}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO properties (`+propertyColumns+`, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, string(p.Kind()), d.Identifier, d.Name, string(d.Entity), d.OwnerID,
		string(d.DataType), d.Format, scale, d.Equation, sentinel,
		boolToInt(d.Settable), boolToInt(d.Queryable), parentID, value, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return property.ErrPropertyExists
		}
		return fmt.Errorf("inserting property: %w", err)
	}
	return nil
}

// Delete removes a property definition.
func (r *PropertyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return property.ErrPropertyNotFound
	}
	return nil
}

func buildWhere(q property.Query) (string, []any) {
	var clauses []string
	var args []any
	if q.Entity != "" {
		clauses = append(clauses, "entity = ?")
		args = append(args, string(q.Entity))
	}
	if q.OwnerID != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, q.OwnerID)
	}
	if q.Identifier != "" {
		clauses = append(clauses, "identifier = ?")
		args = append(args, q.Identifier)
	}
	if q.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (property.Property, error) {
	var (
		d                 property.Definition
		kind, entity, dt  string
		scale             sql.NullInt64
		sentinel, value   sql.NullString
		parentID          sql.NullString
		settable, queryOK int
	)
	if err := row.Scan(
		&d.ID, &kind, &d.Identifier, &d.Name, &entity, &d.OwnerID, &dt,
		&d.Format, &scale, &d.Equation, &sentinel, &settable, &queryOK,
		&parentID, &value,
	); err != nil {
		return nil, err
	}

	d.Entity = property.EntityKind(entity)
	d.DataType = transform.DataType(dt)
	d.Settable = settable != 0
	d.Queryable = queryOK != 0
	if scale.Valid {
		s := int(scale.Int64)
		d.Scale = &s
	}

	var err error
	if d.InvalidSentinel, err = decodeValue(sentinel); err != nil {
		return nil, fmt.Errorf("decoding invalid sentinel: %w", err)
	}

	switch property.Kind(kind) {
	case property.KindDynamic:
		return &property.Dynamic{Definition: d}, nil
	case property.KindMapped:
		return &property.Mapped{Definition: d, ParentID: parentID.String}, nil
	case property.KindVariable:
		v, err := decodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("decoding variable value: %w", err)
		}
		return &property.Variable{Definition: d, Value: v}, nil
	default:
		return nil, fmt.Errorf("unknown property kind %q", kind)
	}
}
