package exchange

// RoutingKey addresses a message to its consumers.
type RoutingKey string

// Routing keys handled by the hub.
const (
	WriteSubDeviceState        RoutingKey = "write.sub_device.state"
	WriteThirdPartyDeviceState RoutingKey = "write.third_party_device.state"
	StoreDeviceConnectionState RoutingKey = "store.device.connection_state"
	StoreChannelPropertyState  RoutingKey = "store.channel.property_state"
)

// schemaFiles maps each routing key to its data schema.
var schemaFiles = map[RoutingKey]string{
	WriteSubDeviceState:        "write.device.state.json",
	WriteThirdPartyDeviceState: "write.device.state.json",
	StoreDeviceConnectionState: "store.device.connection_state.json",
	StoreChannelPropertyState:  "store.channel.property_state.json",
}

// Known reports whether k is a routing key the hub understands.
func (k RoutingKey) Known() bool {
	_, ok := schemaFiles[k]
	return ok
}

// WriteDeviceState asks a consumer to push the stored state of a channel to
// its device.
type WriteDeviceState struct {
	ConnectorID string `json:"connector_id"`
	DeviceID    string `json:"device_id"`
	ChannelID   string `json:"channel_id"`
}

// DeviceConnectionState reports a connection state for a device.
type DeviceConnectionState struct {
	ConnectorID string `json:"connector_id,omitempty"`
	DeviceID    string `json:"device_id"`
	State       string `json:"state"`
}

// ChannelPropertyState carries a value reported by a device for one of its
// channel properties.
type ChannelPropertyState struct {
	ConnectorID string `json:"connector_id,omitempty"`
	DeviceID    string `json:"device_id,omitempty"`
	ChannelID   string `json:"channel_id"`
	Identifier  string `json:"identifier"`
	Value       any    `json:"value"`
}
