package connection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/nerrad567/gray-logic-hub/internal/device"
	"github.com/nerrad567/gray-logic-hub/internal/property"
	"github.com/nerrad567/gray-logic-hub/internal/property/transform"
	"github.com/nerrad567/gray-logic-hub/internal/state"
)

// Logger defines the logging interface used by the Utility.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Catalogue is the part of the device registry the utility walks.
type Catalogue interface {
	ListChildren(ctx context.Context, parentID string, categories ...device.Category) ([]device.Device, error)
	ListChannels(ctx context.Context, deviceID string) ([]device.Channel, error)
}

// TransitionHandler is called after an entity moved into a new state.
type TransitionHandler func(ctx context.Context, entity property.EntityKind, ownerID string, s State)

// Utility reads and drives connection state through the state managers.
type Utility struct {
	connectors *state.Manager
	devices    *state.Manager
	channels   *state.Manager
	catalogue  Catalogue
	logger     Logger

	hooksMu sync.RWMutex
	hooks   []TransitionHandler
}

// NewUtility creates a utility over the connector, device and channel managers.
func NewUtility(connectors, devices, channels *state.Manager, catalogue Catalogue) *Utility {
	return &Utility{
		connectors: connectors,
		devices:    devices,
		channels:   channels,
		catalogue:  catalogue,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the utility.
func (u *Utility) SetLogger(logger Logger) {
	u.logger = logger
}

// OnTransition registers h to run after every state change.
func (u *Utility) OnTransition(h TransitionHandler) {
	u.hooksMu.Lock()
	defer u.hooksMu.Unlock()
	u.hooks = append(u.hooks, h)
}

// SetDeviceState moves d into s. Setting the current state is a no-op.
func (u *Utility) SetDeviceState(ctx context.Context, d *device.Device, s State) (bool, error) {
	return u.setDeviceState(ctx, d, s, true)
}

func (u *Utility) setDeviceState(ctx context.Context, d *device.Device, s State, invalidate bool) (bool, error) {
	if !slices.Contains(deviceStates, s) {
		return false, fmt.Errorf("%w: %s on device %s", ErrInvalidState, s, d.ID)
	}

	prop, err := u.stateProperty(ctx, u.devices, d.ID, deviceStates)
	if err != nil {
		return false, err
	}
	changed, err := u.transition(ctx, u.devices, prop, s)
	if err != nil || !changed {
		return err == nil, err
	}

	u.logger.Info("device connection state changed", "device_id", d.ID, "category", d.Category, "state", s)
	u.notify(ctx, property.EntityDevice, d.ID, s)

	if !s.Invalidates() {
		return true, nil
	}

	var errs []error
	if invalidate {
		if err := u.invalidateDevice(ctx, d, prop); err != nil {
			errs = append(errs, err)
		}
	}
	if d.Category == device.CategoryGateway {
		if err := u.cascade(ctx, d, s); err != nil {
			errs = append(errs, err)
		}
	}
	return len(errs) == 0, errors.Join(errs...)
}

// cascade drives the children of gateway gw. Sub-devices follow every
// invalidating state; third-party devices follow alert only, without
// property invalidation.
func (u *Utility) cascade(ctx context.Context, gw *device.Device, s State) error {
	if u.catalogue == nil {
		return nil
	}

	categories := []device.Category{device.CategorySubDevice}
	if s == Alert {
		categories = append(categories, device.CategoryThirdParty)
	}
	children, err := u.catalogue.ListChildren(ctx, gw.ID, categories...)
	if err != nil {
		return fmt.Errorf("listing children of %s: %w", gw.ID, err)
	}

	var errs []error
	for i := range children {
		child := &children[i]
		invalidate := child.Category == device.CategorySubDevice
		if _, err := u.setDeviceState(ctx, child, s, invalidate); err != nil {
			errs = append(errs, fmt.Errorf("child %s: %w", child.ID, err))
		}
	}
	return errors.Join(errs...)
}

// invalidateDevice marks every dynamic property of d and its channels, other
// than the state property itself, as not valid.
func (u *Utility) invalidateDevice(ctx context.Context, d *device.Device, stateProp property.Property) error {
	props, err := u.devices.Properties(ctx, d.ID)
	if err != nil {
		return err
	}
	var errs []error
	if _, err := u.devices.SetValidState(ctx, false, dynamicOnly(props, stateProp.Def().ID)...); err != nil {
		errs = append(errs, err)
	}

	if u.catalogue != nil && u.channels != nil {
		channels, err := u.catalogue.ListChannels(ctx, d.ID)
		if err != nil {
			return errors.Join(append(errs, fmt.Errorf("listing channels of %s: %w", d.ID, err))...)
		}
		for _, ch := range channels {
			props, err := u.channels.Properties(ctx, ch.ID)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if _, err := u.channels.SetValidState(ctx, false, dynamicOnly(props, "")...); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// GetDeviceState returns the current state of a device, or Unknown when it
// has none.
func (u *Utility) GetDeviceState(ctx context.Context, deviceID string) (State, error) {
	return u.current(ctx, u.devices, deviceID, deviceStates)
}

// SetConnectorState moves a connector into s. Setting the current state is
// a no-op.
func (u *Utility) SetConnectorState(ctx context.Context, connectorID string, s State) (bool, error) {
	if !slices.Contains(connectorStates, s) {
		return false, fmt.Errorf("%w: %s on connector %s", ErrInvalidState, s, connectorID)
	}

	prop, err := u.stateProperty(ctx, u.connectors, connectorID, connectorStates)
	if err != nil {
		return false, err
	}
	changed, err := u.transition(ctx, u.connectors, prop, s)
	if err != nil || !changed {
		return err == nil, err
	}

	u.logger.Info("connector state changed", "connector_id", connectorID, "state", s)
	u.notify(ctx, property.EntityConnector, connectorID, s)
	return true, nil
}

// GetConnectorState returns the current state of a connector, or Unknown
// when it has none.
func (u *Utility) GetConnectorState(ctx context.Context, connectorID string) (State, error) {
	return u.current(ctx, u.connectors, connectorID, connectorStates)
}

// transition writes s as the actual value of prop unless it is already the
// current value. It reports whether a change was persisted.
func (u *Utility) transition(ctx context.Context, m *state.Manager, prop property.Property, s State) (bool, error) {
	cur, err := m.Read(ctx, prop)
	if err != nil {
		return false, err
	}
	if cur != nil && cur.ActualValue != nil && transform.FlatEqual(cur.ActualValue, string(s)) {
		return false, nil
	}
	return m.Set(ctx, prop, property.Actual(string(s)).WithExpected(nil))
}

func (u *Utility) current(ctx context.Context, m *state.Manager, ownerID string, legal []State) (State, error) {
	prop, err := m.Property(ctx, ownerID, property.StateIdentifier)
	if errors.Is(err, property.ErrPropertyNotFound) {
		return Unknown, nil
	}
	if err != nil {
		return Unknown, err
	}

	st, err := m.Read(ctx, prop)
	if err != nil || st == nil {
		return Unknown, err
	}
	s, ok := ParseState(st.ActualValue)
	if !ok || !slices.Contains(legal, s) {
		return Unknown, nil
	}
	return s, nil
}

// stateProperty returns the synthetic state property of ownerID, creating
// it when missing.
func (u *Utility) stateProperty(ctx context.Context, m *state.Manager, ownerID string, legal []State) (property.Property, error) {
	prop, err := m.Property(ctx, ownerID, property.StateIdentifier)
	if errors.Is(err, property.ErrPropertyNotFound) {
		prop, err = u.createStateProperty(ctx, m, ownerID, legal)
	}
	if err != nil {
		return nil, err
	}
	if _, ok := prop.(*property.Dynamic); !ok {
		return nil, fmt.Errorf("%w: %s of %s", ErrStateProperty, prop.Def().ID, ownerID)
	}
	return prop, nil
}

func (u *Utility) createStateProperty(ctx context.Context, m *state.Manager, ownerID string, legal []State) (property.Property, error) {
	prop := &property.Dynamic{Definition: property.Definition{
		ID:         property.NewID(),
		Identifier: property.StateIdentifier,
		Name:       "Connection state",
		Entity:     m.Trait().Entity,
		OwnerID:    ownerID,
		DataType:   transform.DataTypeEnum,
		Format:     enumFormat(legal),
	}}

	err := m.Config().Create(ctx, prop)
	if errors.Is(err, property.ErrPropertyExists) {
		// Created concurrently.
		return m.Property(ctx, ownerID, property.StateIdentifier)
	}
	if err != nil {
		return nil, fmt.Errorf("creating state property for %s: %w", ownerID, err)
	}
	u.logger.Debug("state property created", "entity", prop.Entity, "owner_id", ownerID, "property_id", prop.ID)
	return prop, nil
}

func (u *Utility) notify(ctx context.Context, entity property.EntityKind, ownerID string, s State) {
	u.hooksMu.RLock()
	hooks := u.hooks
	u.hooksMu.RUnlock()
	for _, h := range hooks {
		h(ctx, entity, ownerID, s)
	}
}

func dynamicOnly(props []property.Property, skipID string) []property.Property {
	out := make([]property.Property, 0, len(props))
	for _, p := range props {
		if _, ok := p.(*property.Dynamic); ok && p.Def().ID != skipID {
			out = append(out, p)
		}
	}
	return out
}
