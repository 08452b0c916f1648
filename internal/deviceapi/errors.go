package deviceapi

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when no final ack arrives in time.
	ErrTimeout = errors.New("deviceapi: timed out waiting for ack")

	// ErrEmptyPayload is returned when no property yields a wire value.
	ErrEmptyPayload = errors.New("deviceapi: nothing to send")

	// ErrNotStarted is returned by SendState before Start subscribed to acks.
	ErrNotStarted = errors.New("deviceapi: client not started")

	// ErrInvalidReport is returned for bridge state reports that name no
	// device or carry properties without a channel.
	ErrInvalidReport = errors.New("deviceapi: invalid state report")
)

// CallError is a protocol-level failure reported by the bridge.
type CallError struct {
	Request  *CommandMessage
	Response *AckMessage
}

func (e *CallError) Error() string {
	msg := fmt.Sprintf("deviceapi: command %s to %s %s", e.Request.ID, e.Request.DeviceID, e.Response.Status)
	if e.Response.Error != nil {
		msg += fmt.Sprintf(": %s: %s", e.Response.Error.Code, e.Response.Error.Message)
	}
	return msg
}
