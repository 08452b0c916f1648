package deviceapi

import "time"

// CommandMessage is sent to a bridge to change device state.
// Topic: graylogic/command/{protocol}/{device_id}
type CommandMessage struct {
	// ID correlates the command with its acks.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	DeviceID  string `json:"device_id"`
	ChannelID string `json:"channel_id"`

	// Command is always "set_state" for now.
	Command string `json:"command"`

	// Parameters holds the wire payload built from the channel properties.
	Parameters Payload `json:"parameters"`

	// Address and AccessToken locate and authorise the device on the LAN.
	Address     string `json:"address"`
	AccessToken string `json:"access_token,omitempty"`

	// Source identifies the hub instance that sent the command.
	Source string `json:"source"`
}

// CommandSetState is the command name used by SendState.
const CommandSetState = "set_state"

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the device applied the command.
	AckAccepted AckStatus = "accepted"

	// AckQueued indicates the bridge holds the command until the device is free.
	// A final ack follows.
	AckQueued AckStatus = "queued"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"

	// AckTimeout indicates the device did not answer the bridge.
	AckTimeout AckStatus = "timeout"
)

// Final reports whether no further ack follows s.
func (s AckStatus) Final() bool {
	return s != AckQueued
}

// AckMessage is sent by a bridge in answer to a command.
// Topic: graylogic/ack/{protocol}/{device_id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`

	// Error contains details if status is "failed" or "timeout".
	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Retries int    `json:"retries,omitempty"`
}

// Error codes for command failures.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeTimeout           = "TIMEOUT"
)
