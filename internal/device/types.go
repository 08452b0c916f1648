package device

import "time"

// Protocol identifies the wire protocol a connector speaks.
type Protocol string

// Supported connector protocols.
const (
	ProtocolPanel   Protocol = "panel"   // Vendor panel/hub LAN API
	ProtocolTV      Protocol = "tv"      // TV remote-control protocol
	ProtocolVirtual Protocol = "virtual" // Composite devices with no hardware behind them
)

// AllProtocols returns every supported protocol.
func AllProtocols() []Protocol {
	return []Protocol{ProtocolPanel, ProtocolTV, ProtocolVirtual}
}

// Category classifies a device by its position in the topology.
type Category string

// Device categories.
const (
	// CategoryGateway is a hub that relays commands to child devices.
	CategoryGateway Category = "gateway"

	// CategorySubDevice is a child of a gateway sharing its transport.
	CategorySubDevice Category = "sub_device"

	// CategoryThirdParty is a foreign device bridged through a gateway.
	CategoryThirdParty Category = "third_party"

	// CategoryGeneric is a standalone device.
	CategoryGeneric Category = "generic"
)

// AllCategories returns every device category.
func AllCategories() []Category {
	return []Category{CategoryGateway, CategorySubDevice, CategoryThirdParty, CategoryGeneric}
}

// CapabilityType names what a channel does.
type CapabilityType string

// Channel capability types.
const (
	CapabilitySwitch     CapabilityType = "switch"
	CapabilityLight      CapabilityType = "light"
	CapabilityCover      CapabilityType = "cover"
	CapabilityPress      CapabilityType = "press"
	CapabilityThermostat CapabilityType = "thermostat"
	CapabilitySensor     CapabilityType = "sensor"
	CapabilityGeneric    CapabilityType = "generic"
)

// AllCapabilityTypes returns every capability type.
func AllCapabilityTypes() []CapabilityType {
	return []CapabilityType{
		CapabilitySwitch, CapabilityLight, CapabilityCover, CapabilityPress,
		CapabilityThermostat, CapabilitySensor, CapabilityGeneric,
	}
}

// Permission controls which directions a channel accepts.
type Permission string

// Channel permissions.
const (
	PermissionReadOnly  Permission = "read_only"
	PermissionWriteOnly Permission = "write_only"
	PermissionReadWrite Permission = "read_write"
)

// Capability is what a channel exposes and whether it may be written.
type Capability struct {
	Type       CapabilityType `json:"type"`
	Permission Permission     `json:"permission"`
}

// Writable reports whether commands may be sent to the channel.
func (c Capability) Writable() bool {
	return c.Permission == PermissionWriteOnly || c.Permission == PermissionReadWrite
}

// Readable reports whether the channel reports values.
func (c Capability) Readable() bool {
	return c.Permission == PermissionReadOnly || c.Permission == PermissionReadWrite
}

// Connector is an integration instance talking one protocol.
type Connector struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Protocol  Protocol  `json:"protocol"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Device is a physical or virtual device owned by a connector.
type Device struct {
	ID          string   `json:"id"`
	ConnectorID string   `json:"connector_id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`

	// ParentID references the gateway of a sub-device or third-party device.
	ParentID *string `json:"parent_id,omitempty"`

	// Network reachability. Children without their own fall back to the parent's.
	IPAddress   *string `json:"ip_address,omitempty"`
	AccessToken *string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsChild reports whether the device hangs off a gateway.
func (d *Device) IsChild() bool {
	return d.Category == CategorySubDevice || d.Category == CategoryThirdParty
}

// DeepCopy creates an independent copy of the Device for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	cpy.ParentID = copyString(d.ParentID)
	cpy.IPAddress = copyString(d.IPAddress)
	cpy.AccessToken = copyString(d.AccessToken)
	return &cpy
}

// Channel is one addressable function of a device.
type Channel struct {
	ID         string     `json:"id"`
	DeviceID   string     `json:"device_id"`
	Name       string     `json:"name"`
	Capability Capability `json:"capability"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
