package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for entity catalogue persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetConnector retrieves a connector by ID.
	// Returns ErrConnectorNotFound if it does not exist.
	GetConnector(ctx context.Context, id string) (*Connector, error)

	// ListConnectors retrieves all connectors.
	ListConnectors(ctx context.Context) ([]Connector, error)

	// CreateConnector inserts a new connector.
	CreateConnector(ctx context.Context, c *Connector) error

	// GetDevice retrieves a device by ID.
	// Returns ErrDeviceNotFound if it does not exist.
	GetDevice(ctx context.Context, id string) (*Device, error)

	// ListDevices retrieves all devices.
	ListDevices(ctx context.Context) ([]Device, error)

	// CreateDevice inserts a new device.
	CreateDevice(ctx context.Context, d *Device) error

	// UpdateDevice modifies an existing device.
	UpdateDevice(ctx context.Context, d *Device) error

	// DeleteDevice removes a device and, by cascade, its channels.
	DeleteDevice(ctx context.Context, id string) error

	// GetChannel retrieves a channel by ID.
	// Returns ErrChannelNotFound if it does not exist.
	GetChannel(ctx context.Context, id string) (*Channel, error)

	// ListChannels retrieves the channels of a device.
	ListChannels(ctx context.Context, deviceID string) ([]Channel, error)

	// CreateChannel inserts a new channel.
	CreateChannel(ctx context.Context, c *Channel) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const (
	connectorColumns = `id, name, protocol, created_at, updated_at`
	deviceColumns    = `id, connector_id, parent_id, name, category, ip_address, access_token, created_at, updated_at`
	channelColumns   = `id, device_id, name, capability_type, permission, created_at, updated_at`
)

// GetConnector retrieves a connector by ID.
func (r *SQLiteRepository) GetConnector(ctx context.Context, id string) (*Connector, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+connectorColumns+` FROM connectors WHERE id = ?`, id)
	c, err := scanConnector(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConnectorNotFound
		}
		return nil, fmt.Errorf("querying connector by id: %w", err)
	}
	return c, nil
}

// ListConnectors retrieves all connectors ordered by name.
func (r *SQLiteRepository) ListConnectors(ctx context.Context) ([]Connector, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+connectorColumns+` FROM connectors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying connectors: %w", err)
	}
	defer rows.Close()

	var out []Connector
	for rows.Next() {
		c, err := scanConnector(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connector: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connectors: %w", err)
	}
	return out, nil
}

// CreateConnector inserts a new connector.
func (r *SQLiteRepository) CreateConnector(ctx context.Context, c *Connector) error {
	stampCreated(&c.CreatedAt, &c.UpdatedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO connectors (`+connectorColumns+`) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Protocol),
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting connector: %w", err)
	}
	return nil
}

// GetDevice retrieves a device by ID.
func (r *SQLiteRepository) GetDevice(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// ListDevices retrieves all devices ordered by name.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var out []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return out, nil
}

// CreateDevice inserts a new device.
func (r *SQLiteRepository) CreateDevice(ctx context.Context, d *Device) error {
	stampCreated(&d.CreatedAt, &d.UpdatedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (`+deviceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.ConnectorID,
		nullableString(d.ParentID),
		d.Name,
		string(d.Category),
		nullableString(d.IPAddress),
		nullableString(d.AccessToken),
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// UpdateDevice modifies an existing device.
func (r *SQLiteRepository) UpdateDevice(ctx context.Context, d *Device) error {
	d.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			connector_id = ?, parent_id = ?, name = ?, category = ?,
			ip_address = ?, access_token = ?, updated_at = ?
		WHERE id = ?`,
		d.ConnectorID,
		nullableString(d.ParentID),
		d.Name,
		string(d.Category),
		nullableString(d.IPAddress),
		nullableString(d.AccessToken),
		d.UpdatedAt.Format(time.RFC3339),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}
	return requireAffected(result, ErrDeviceNotFound)
}

// DeleteDevice removes a device by ID.
func (r *SQLiteRepository) DeleteDevice(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireAffected(result, ErrDeviceNotFound)
}

// GetChannel retrieves a channel by ID.
func (r *SQLiteRepository) GetChannel(ctx context.Context, id string) (*Channel, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = ?`, id)
	c, err := scanChannel(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("querying channel by id: %w", err)
	}
	return c, nil
}

// ListChannels retrieves the channels of a device ordered by name.
func (r *SQLiteRepository) ListChannels(ctx context.Context, deviceID string) ([]Channel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE device_id = ? ORDER BY name`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying channels: %w", err)
	}
	defer rows.Close()

	var out []Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning channel: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating channels: %w", err)
	}
	return out, nil
}

// CreateChannel inserts a new channel.
func (r *SQLiteRepository) CreateChannel(ctx context.Context, c *Channel) error {
	stampCreated(&c.CreatedAt, &c.UpdatedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO channels (`+channelColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.DeviceID, c.Name,
		string(c.Capability.Type), string(c.Capability.Permission),
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting channel: %w", err)
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnector(s rowScanner) (*Connector, error) {
	var c Connector
	var protocol, createdAt, updatedAt string
	if err := s.Scan(&c.ID, &c.Name, &protocol, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.Protocol = Protocol(protocol)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

func scanDevice(s rowScanner) (*Device, error) {
	var d Device
	var parentID, ipAddress, accessToken sql.NullString
	var category, createdAt, updatedAt string

	err := s.Scan(&d.ID, &d.ConnectorID, &parentID, &d.Name, &category,
		&ipAddress, &accessToken, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	d.Category = Category(category)
	d.ParentID = stringPtr(parentID)
	d.IPAddress = stringPtr(ipAddress)
	d.AccessToken = stringPtr(accessToken)
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &d, nil
}

func scanChannel(s rowScanner) (*Channel, error) {
	var c Channel
	var capType, permission, createdAt, updatedAt string
	if err := s.Scan(&c.ID, &c.DeviceID, &c.Name, &capType, &permission, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.Capability = Capability{Type: CapabilityType(capType), Permission: Permission(permission)}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

func stampCreated(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
