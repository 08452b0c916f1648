package connection

import "errors"

var (
	// ErrInvalidState is returned when a state is not legal for the entity kind.
	ErrInvalidState = errors.New("connection: state not allowed for entity")

	// ErrStateProperty is returned when the existing state property is not a
	// dynamic property.
	ErrStateProperty = errors.New("connection: state property is not dynamic")
)
