package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrConnectorNotFound is returned when a connector ID does not exist.
	ErrConnectorNotFound = errors.New("device: connector not found")

	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrChannelNotFound is returned when a channel ID does not exist.
	ErrChannelNotFound = errors.New("device: channel not found")

	// ErrExists is returned when creating an entity with an ID that already exists.
	ErrExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when entity validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidName is returned when a name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidCategory is returned when a category is not recognised.
	ErrInvalidCategory = errors.New("device: invalid category")

	// ErrInvalidCapability is returned when a capability is not recognised.
	ErrInvalidCapability = errors.New("device: invalid capability")

	// ErrInvalidProtocol is returned when a protocol value is not recognised.
	ErrInvalidProtocol = errors.New("device: invalid protocol")

	// ErrGatewayNotFound is returned when a referenced gateway device does not exist.
	ErrGatewayNotFound = errors.New("device: gateway not found")

	// ErrUnreachable is returned when neither a device nor its gateway has
	// an address and access token.
	ErrUnreachable = errors.New("device: no address or access token")
)
