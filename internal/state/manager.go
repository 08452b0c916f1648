package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-hub/internal/property"
)

// Logger defines the logging interface used by the Manager.
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

// Trait describes the entity kind a Manager serves.
type Trait struct {
	Entity         property.EntityKind
	SupportsMapped bool
}

// Entity traits.
var (
	ConnectorTrait = Trait{Entity: property.EntityConnector, SupportsMapped: false}
	DeviceTrait    = Trait{Entity: property.EntityDevice, SupportsMapped: true}
	ChannelTrait   = Trait{Entity: property.EntityChannel, SupportsMapped: true}
)

// ChangeHandler is called after a state record has been saved.
type ChangeHandler func(ctx context.Context, p property.Property, s *property.State)

// Manager loads and saves property state for one entity kind.
//
// All public methods are safe for concurrent use. The manager holds no lock
// across repository calls; each save is a single create or update.
type Manager struct {
	trait     Trait
	config    property.ConfigurationRepository
	states    property.StateRepository
	persister property.StatePersister
	logger    Logger

	hooksMu sync.RWMutex
	hooks   []ChangeHandler
}

// NewManager creates a manager for trait. states and persister may be nil,
// which puts the manager in stateless mode.
func NewManager(trait Trait, config property.ConfigurationRepository, states property.StateRepository, persister property.StatePersister) *Manager {
	return &Manager{
		trait:     trait,
		config:    config,
		states:    states,
		persister: persister,
		logger:    noopLogger{},
	}
}

// NewConnectorManager creates a connector manager backed by store.
func NewConnectorManager(config property.ConfigurationRepository, store property.StateStore) *Manager {
	return newWithStore(ConnectorTrait, config, store)
}

// NewDeviceManager creates a device manager backed by store.
func NewDeviceManager(config property.ConfigurationRepository, store property.StateStore) *Manager {
	return newWithStore(DeviceTrait, config, store)
}

// NewChannelManager creates a channel manager backed by store.
func NewChannelManager(config property.ConfigurationRepository, store property.StateStore) *Manager {
	return newWithStore(ChannelTrait, config, store)
}

func newWithStore(trait Trait, config property.ConfigurationRepository, store property.StateStore) *Manager {
	if store == nil {
		return NewManager(trait, config, nil, nil)
	}
	return NewManager(trait, config, store, store)
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Trait returns the entity trait the manager serves.
func (m *Manager) Trait() Trait {
	return m.trait
}

// Config returns the definition repository the manager resolves through.
func (m *Manager) Config() property.ConfigurationRepository {
	return m.config
}

// OnChange registers h to run after every successful save.
func (m *Manager) OnChange(h ChangeHandler) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.hooks = append(m.hooks, h)
}

func (m *Manager) notify(ctx context.Context, p property.Property, s *property.State) {
	m.hooksMu.RLock()
	hooks := m.hooks
	m.hooksMu.RUnlock()

	for _, h := range hooks {
		h(ctx, p, s.Clone())
	}
}

// Read loads the state of p for display.
// It returns nil when no state record exists.
func (m *Manager) Read(ctx context.Context, p property.Property) (*property.State, error) {
	return m.load(ctx, p, true)
}

// Get loads the state of p with device-native values.
// It returns nil when no state record exists.
func (m *Manager) Get(ctx context.Context, p property.Property) (*property.State, error) {
	return m.load(ctx, p, false)
}

// Write saves patch as a user or system intent.
// Patches carrying an actual value are rejected.
func (m *Manager) Write(ctx context.Context, p property.Property, patch property.Patch) (bool, error) {
	return m.save(ctx, p, patch, true)
}

// Set saves patch as a fact reported by the device.
func (m *Manager) Set(ctx context.Context, p property.Property, patch property.Patch) (bool, error) {
	return m.save(ctx, p, patch, false)
}

// SetValidState sets the valid flag on each property. Every property is
// attempted; the result is true only if all saves succeed.
func (m *Manager) SetValidState(ctx context.Context, valid bool, props ...property.Property) (bool, error) {
	return m.setEach(ctx, property.Patch{}.WithValid(valid), props)
}

// SetPendingState sets or clears the pending flag on each property. Every
// property is attempted; the result is true only if all saves succeed.
func (m *Manager) SetPendingState(ctx context.Context, pending bool, props ...property.Property) (bool, error) {
	return m.setEach(ctx, property.Patch{}.WithPending(pending), props)
}

func (m *Manager) setEach(ctx context.Context, patch property.Patch, props []property.Property) (bool, error) {
	all := true
	var errs []error
	for _, p := range props {
		ok, err := m.Set(ctx, p, patch)
		if err != nil {
			errs = append(errs, fmt.Errorf("property %s: %w", p.Def().ID, err))
		}
		all = all && ok
	}
	return all && len(errs) == 0, errors.Join(errs...)
}

// Delete removes the state record of a dynamic property. Mapped properties
// own no record and report false.
func (m *Manager) Delete(ctx context.Context, p property.Property) (bool, error) {
	r, err := m.resolve(ctx, p)
	if err != nil {
		return false, err
	}
	if r.mapped != nil {
		return false, nil
	}
	if m.persister == nil {
		m.warnStateless("delete", p)
		return false, nil
	}

	ok, err := m.persister.Delete(ctx, r.dyn.ID)
	if errors.Is(err, property.ErrNotImplemented) {
		m.warnStateless("delete", p)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("deleting state: %w", err)
	}
	m.logger.Debug("property state deleted", "entity", m.trait.Entity, "property_id", r.dyn.ID, "existed", ok)
	return ok, nil
}

// NormalizePublishValue converts a raw device value of p into the flattened
// display value published to telemetry. Stored state is not consulted.
func (m *Manager) NormalizePublishValue(ctx context.Context, p property.Property, value any) (any, error) {
	r, err := m.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	v, err := r.readValue(value, true)
	if err != nil {
		return nil, err
	}
	return r.flattenView(v), nil
}

// Properties returns the definitions owned by ownerID for the manager's
// entity kind.
func (m *Manager) Properties(ctx context.Context, ownerID string) ([]property.Property, error) {
	if m.config == nil {
		return nil, nil
	}
	props, err := m.config.FindAllBy(ctx, property.Query{Entity: m.trait.Entity, OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("listing %s properties: %w", m.trait.Entity, err)
	}
	return props, nil
}

// Property returns the definition with identifier owned by ownerID.
// The error wraps property.ErrPropertyNotFound when none exists.
func (m *Manager) Property(ctx context.Context, ownerID, identifier string) (property.Property, error) {
	if m.config == nil {
		return nil, property.ErrPropertyNotFound
	}
	return m.config.FindOneBy(ctx, property.Query{
		Entity:     m.trait.Entity,
		OwnerID:    ownerID,
		Identifier: identifier,
	})
}

func (m *Manager) warnStateless(op string, p property.Property) {
	m.logger.Warn("property state backend not configured",
		"operation", op,
		"entity", m.trait.Entity,
		"property_id", p.Def().ID,
	)
}
