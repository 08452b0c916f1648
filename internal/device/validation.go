package device

import (
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
)

const maxNameLength = 100

// Pre-computed validation sets for O(1) lookups.
var (
	validProtocols    map[Protocol]struct{}
	validCategories   map[Category]struct{}
	validCapabilities map[CapabilityType]struct{}
	validPermissions  = map[Permission]struct{}{
		PermissionReadOnly:  {},
		PermissionWriteOnly: {},
		PermissionReadWrite: {},
	}
)

func init() {
	validProtocols = make(map[Protocol]struct{}, len(AllProtocols()))
	for _, p := range AllProtocols() {
		validProtocols[p] = struct{}{}
	}

	validCategories = make(map[Category]struct{}, len(AllCategories()))
	for _, c := range AllCategories() {
		validCategories[c] = struct{}{}
	}

	validCapabilities = make(map[CapabilityType]struct{}, len(AllCapabilityTypes()))
	for _, c := range AllCapabilityTypes() {
		validCapabilities[c] = struct{}{}
	}
}

// ValidateConnector checks a connector before it is persisted.
func ValidateConnector(c *Connector) error {
	if c == nil {
		return fmt.Errorf("%w: connector is nil", ErrInvalidDevice)
	}
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if _, ok := validProtocols[c.Protocol]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidProtocol, c.Protocol)
	}
	return nil
}

// ValidateDevice checks a device before it is persisted.
func ValidateDevice(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: device is nil", ErrInvalidDevice)
	}
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if d.ConnectorID == "" {
		return fmt.Errorf("%w: connector_id is required", ErrInvalidDevice)
	}
	if _, ok := validCategories[d.Category]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, d.Category)
	}

	switch {
	case d.IsChild() && (d.ParentID == nil || *d.ParentID == ""):
		return fmt.Errorf("%w: %s requires a parent gateway", ErrInvalidDevice, d.Category)
	case !d.IsChild() && d.ParentID != nil:
		return fmt.Errorf("%w: %s cannot have a parent", ErrInvalidDevice, d.Category)
	case d.ParentID != nil && *d.ParentID == d.ID:
		return fmt.Errorf("%w: device cannot be its own parent", ErrInvalidDevice)
	}

	if d.IPAddress != nil && net.ParseIP(*d.IPAddress) == nil {
		return fmt.Errorf("%w: ip_address %q", ErrInvalidDevice, *d.IPAddress)
	}
	return nil
}

// ValidateChannel checks a channel before it is persisted.
func ValidateChannel(c *Channel) error {
	if c == nil {
		return fmt.Errorf("%w: channel is nil", ErrInvalidDevice)
	}
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if c.DeviceID == "" {
		return fmt.Errorf("%w: device_id is required", ErrInvalidDevice)
	}
	if _, ok := validCapabilities[c.Capability.Type]; !ok {
		return fmt.Errorf("%w: type %q", ErrInvalidCapability, c.Capability.Type)
	}
	if _, ok := validPermissions[c.Capability.Permission]; !ok {
		return fmt.Errorf("%w: permission %q", ErrInvalidCapability, c.Capability.Permission)
	}
	return nil
}

// ValidateName checks if a name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// GenerateID creates a new UUID for an entity.
func GenerateID() string {
	return uuid.New().String()
}
