package property

import "errors"

var (
	// ErrPropertyNotFound is returned when a property definition does not exist.
	ErrPropertyNotFound = errors.New("property: not found")

	// ErrPropertyExists is returned when creating a property whose ID is taken.
	ErrPropertyExists = errors.New("property: already exists")

	// ErrInvalidProperty is returned when a definition fails validation.
	ErrInvalidProperty = errors.New("property: invalid")

	// ErrStateNotFound is returned when no state record exists for a property.
	ErrStateNotFound = errors.New("property: state not found")

	// ErrNotImplemented is returned by state backends that are not configured.
	ErrNotImplemented = errors.New("property: state backend not implemented")
)
