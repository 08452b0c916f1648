package transform

import "errors"

// Errors returned by the transform functions.
var (
	// ErrInvalidValue is returned when a value cannot be normalised against
	// its data type or format.
	ErrInvalidValue = errors.New("transform: invalid value")

	// ErrInvalidFormat is returned when a format string cannot be parsed.
	ErrInvalidFormat = errors.New("transform: invalid format")

	// ErrInvalidEquation is returned when an equation string cannot be parsed
	// or evaluated.
	ErrInvalidEquation = errors.New("transform: invalid equation")
)
