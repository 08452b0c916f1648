package mqtt

import "fmt"

// Topic prefixes for the hub.
//
// Bridge topics use the flat scheme: graylogic/{category}/{protocol}/{device_id}
const (
	// TopicPrefixBridge is the base for all bridge topics.
	TopicPrefixBridge = "graylogic"

	// TopicPrefixHub is the base for topics owned by the hub.
	TopicPrefixHub = "graylogic/hub"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for Gray Logic MQTT topics.
//
//	topics := mqtt.Topics{}
//	cmd := topics.BridgeCommand("panel", "dev-01")
//	// Returns: "graylogic/command/panel/dev-01"
type Topics struct{}

// =============================================================================
// Bridge Topics
// =============================================================================

// BridgeState returns the topic for device state reports from a bridge.
//
// Example: graylogic/state/panel/dev-01
func (Topics) BridgeState(protocol, deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, deviceID)
}

// BridgeCommand returns the topic for commands to a device behind a bridge.
//
// Example: graylogic/command/panel/dev-01
func (Topics) BridgeCommand(protocol, deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, deviceID)
}

// BridgeAck returns the topic for command acknowledgements from a bridge.
//
// Example: graylogic/ack/panel/dev-01
func (Topics) BridgeAck(protocol, deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefixBridge, protocol, deviceID)
}

// =============================================================================
// Hub Topics
// =============================================================================

// Exchange returns the topic carrying exchange messages for routingKey.
//
// Example: graylogic/hub/exchange/store.device.connection_state
func (Topics) Exchange(routingKey string) string {
	return fmt.Sprintf("%s/exchange/%s", TopicPrefixHub, routingKey)
}

// PropertyState returns the retained topic mirroring a property state.
//
// Example: graylogic/hub/property/channel/0b1c.../state
func (Topics) PropertyState(entity, propertyID string) string {
	return fmt.Sprintf("%s/property/%s/%s/state", TopicPrefixHub, entity, propertyID)
}

// ConnectionState returns the retained topic mirroring the connection state
// of a device or connector.
//
// Example: graylogic/hub/connection/device/dev-01
func (Topics) ConnectionState(entity, ownerID string) string {
	return fmt.Sprintf("%s/connection/%s/%s", TopicPrefixHub, entity, ownerID)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllBridgeStates returns a pattern matching all bridge state reports.
//
// Pattern: graylogic/state/+/+
func (Topics) AllBridgeStates() string {
	return fmt.Sprintf("%s/state/+/+", TopicPrefixBridge)
}

// AllBridgeAcks returns a pattern matching the acknowledgements of one protocol.
//
// Pattern: graylogic/ack/{protocol}/+
func (Topics) AllBridgeAcks(protocol string) string {
	return fmt.Sprintf("%s/ack/%s/+", TopicPrefixBridge, protocol)
}

// AllExchange returns a pattern matching every exchange routing key.
//
// Pattern: graylogic/hub/exchange/+
func (Topics) AllExchange() string {
	return fmt.Sprintf("%s/exchange/+", TopicPrefixHub)
}

// AllTopics returns a pattern matching all Gray Logic topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: graylogic/#
func (Topics) AllTopics() string {
	return "graylogic/#"
}
