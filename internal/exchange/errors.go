package exchange

import "errors"

var (
	// ErrUnknownRoutingKey is returned for a routing key with no schema.
	ErrUnknownRoutingKey = errors.New("exchange: unknown routing key")

	// ErrInvalidMessage is returned when an envelope or its data fails
	// schema validation.
	ErrInvalidMessage = errors.New("exchange: invalid message")

	// ErrQueueFull is returned by Append when the queue has no room.
	ErrQueueFull = errors.New("exchange: queue full")

	// ErrQueueClosed is returned by Append after the queue was closed.
	ErrQueueClosed = errors.New("exchange: queue closed")
)
