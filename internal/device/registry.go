package device

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides catalogue lookups with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by the registry's own create and delete operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo Repository

	mu         sync.RWMutex
	connectors map[string]*Connector
	devices    map[string]*Device
	channels   map[string]*Channel
	loaded     bool

	logger Logger
}

// NewRegistry creates a new registry over repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:       repo,
		connectors: make(map[string]*Connector),
		devices:    make(map[string]*Device),
		channels:   make(map[string]*Channel),
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads the whole catalogue from the repository.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	connectors, err := r.repo.ListConnectors(ctx)
	if err != nil {
		return fmt.Errorf("loading connectors: %w", err)
	}
	devices, err := r.repo.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	channels := make(map[string]*Channel)
	for i := range devices {
		list, err := r.repo.ListChannels(ctx, devices[i].ID)
		if err != nil {
			return fmt.Errorf("loading channels of %s: %w", devices[i].ID, err)
		}
		for j := range list {
			c := list[j]
			channels[c.ID] = &c
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.connectors = make(map[string]*Connector, len(connectors))
	for i := range connectors {
		c := connectors[i]
		r.connectors[c.ID] = &c
	}
	r.devices = make(map[string]*Device, len(devices))
	for i := range devices {
		r.devices[devices[i].ID] = devices[i].DeepCopy()
	}
	r.channels = channels
	r.loaded = true

	r.logger.Info("device cache refreshed",
		"connectors", len(connectors), "devices", len(devices), "channels", len(channels))
	return nil
}

// GetConnector retrieves a connector by ID.
// Returns ErrConnectorNotFound if it does not exist.
func (r *Registry) GetConnector(ctx context.Context, id string) (*Connector, error) {
	r.mu.RLock()
	cached, ok := r.connectors[id]
	r.mu.RUnlock()
	if ok {
		cpy := *cached
		return &cpy, nil
	}

	c, err := r.repo.GetConnector(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	cpy := *c
	r.connectors[id] = &cpy
	r.mu.Unlock()
	return c, nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.mu.RLock()
	cached, ok := r.devices[id]
	r.mu.RUnlock()
	if ok {
		return cached.DeepCopy(), nil
	}

	d, err := r.repo.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.devices[id] = d.DeepCopy()
	r.mu.Unlock()
	return d, nil
}

// GetChannel retrieves a channel by ID.
// Returns ErrChannelNotFound if it does not exist.
func (r *Registry) GetChannel(ctx context.Context, id string) (*Channel, error) {
	r.mu.RLock()
	cached, ok := r.channels[id]
	r.mu.RUnlock()
	if ok {
		cpy := *cached
		return &cpy, nil
	}

	c, err := r.repo.GetChannel(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	cpy := *c
	r.channels[id] = &cpy
	r.mu.Unlock()
	return c, nil
}

// ListDevices retrieves all devices ordered by name.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.loaded {
		return r.repo.ListDevices(ctx)
	}
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d.DeepCopy())
	}
	sortDevices(out)
	return out, nil
}

// ListChildren returns the devices whose parent is parentID, optionally
// restricted to the given categories.
func (r *Registry) ListChildren(ctx context.Context, parentID string, categories ...Category) ([]Device, error) {
	all, err := r.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	var out []Device
	for i := range all {
		d := all[i]
		if d.ParentID == nil || *d.ParentID != parentID {
			continue
		}
		if len(categories) > 0 && !slices.Contains(categories, d.Category) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// ListChannels returns the channels of a device ordered by name.
func (r *Registry) ListChannels(ctx context.Context, deviceID string) ([]Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.loaded {
		return r.repo.ListChannels(ctx, deviceID)
	}
	var out []Channel
	for _, c := range r.channels {
		if c.DeviceID == deviceID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateConnector validates and stores a connector, assigning an ID if empty.
func (r *Registry) CreateConnector(ctx context.Context, c *Connector) error {
	if c.ID == "" {
		c.ID = GenerateID()
	}
	if err := ValidateConnector(c); err != nil {
		return err
	}
	if err := r.repo.CreateConnector(ctx, c); err != nil {
		return err
	}

	r.mu.Lock()
	cpy := *c
	r.connectors[c.ID] = &cpy
	r.mu.Unlock()

	r.logger.Info("connector created", "id", c.ID, "protocol", c.Protocol)
	return nil
}

// CreateDevice validates and stores a device, assigning an ID if empty.
// Child devices must reference an existing gateway.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = GenerateID()
	}
	if err := ValidateDevice(d); err != nil {
		return err
	}
	if _, err := r.GetConnector(ctx, d.ConnectorID); err != nil {
		return fmt.Errorf("device %s: %w", d.ID, err)
	}
	if d.ParentID != nil {
		parent, err := r.GetDevice(ctx, *d.ParentID)
		if errors.Is(err, ErrDeviceNotFound) || (err == nil && parent.Category != CategoryGateway) {
			return fmt.Errorf("%w: %s", ErrGatewayNotFound, *d.ParentID)
		}
		if err != nil {
			return err
		}
	}

	if err := r.repo.CreateDevice(ctx, d); err != nil {
		return err
	}

	r.mu.Lock()
	r.devices[d.ID] = d.DeepCopy()
	r.mu.Unlock()

	r.logger.Info("device created", "id", d.ID, "category", d.Category)
	return nil
}

// CreateChannel validates and stores a channel, assigning an ID if empty.
func (r *Registry) CreateChannel(ctx context.Context, c *Channel) error {
	if c.ID == "" {
		c.ID = GenerateID()
	}
	if err := ValidateChannel(c); err != nil {
		return err
	}
	if _, err := r.GetDevice(ctx, c.DeviceID); err != nil {
		return fmt.Errorf("channel %s: %w", c.ID, err)
	}
	if err := r.repo.CreateChannel(ctx, c); err != nil {
		return err
	}

	r.mu.Lock()
	cpy := *c
	r.channels[c.ID] = &cpy
	r.mu.Unlock()

	r.logger.Info("channel created", "id", c.ID, "device_id", c.DeviceID, "capability", c.Capability.Type)
	return nil
}

// UpdateDevice validates and stores changes to an existing device.
func (r *Registry) UpdateDevice(ctx context.Context, d *Device) error {
	if err := ValidateDevice(d); err != nil {
		return err
	}
	if err := r.repo.UpdateDevice(ctx, d); err != nil {
		return err
	}

	r.mu.Lock()
	r.devices[d.ID] = d.DeepCopy()
	r.mu.Unlock()
	return nil
}

// DeleteDevice removes a device and its cached channels.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.DeleteDevice(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.devices, id)
	for cid, c := range r.channels {
		if c.DeviceID == id {
			delete(r.channels, cid)
		}
	}
	r.mu.Unlock()

	r.logger.Info("device deleted", "id", id)
	return nil
}

// Endpoint is the address and credential used to reach a device.
type Endpoint struct {
	IPAddress   string
	AccessToken string
}

// Reachability resolves the endpoint of d. Child devices without their own
// address or token inherit the parent gateway's. Returns ErrUnreachable when
// nothing usable is configured.
func (r *Registry) Reachability(ctx context.Context, d *Device) (Endpoint, error) {
	var ep Endpoint
	if d.IPAddress != nil {
		ep.IPAddress = *d.IPAddress
	}
	if d.AccessToken != nil {
		ep.AccessToken = *d.AccessToken
	}

	if (ep.IPAddress == "" || ep.AccessToken == "") && d.IsChild() && d.ParentID != nil {
		parent, err := r.GetDevice(ctx, *d.ParentID)
		if err != nil && !errors.Is(err, ErrDeviceNotFound) {
			return Endpoint{}, err
		}
		if parent != nil {
			if ep.IPAddress == "" && parent.IPAddress != nil {
				ep.IPAddress = *parent.IPAddress
			}
			if ep.AccessToken == "" && parent.AccessToken != nil {
				ep.AccessToken = *parent.AccessToken
			}
		}
	}

	if ep.IPAddress == "" || ep.AccessToken == "" {
		return Endpoint{}, fmt.Errorf("%w: device %s", ErrUnreachable, d.ID)
	}
	return ep, nil
}

// DeviceCount returns the number of cached devices.
func (r *Registry) DeviceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

func sortDevices(ds []Device) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].Name != ds[j].Name {
			return ds[i].Name < ds[j].Name
		}
		return ds[i].ID < ds[j].ID
	})
}
