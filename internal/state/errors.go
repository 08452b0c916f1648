package state

import "errors"

// Configuration errors. These are raised to the caller and never retried.
var (
	// ErrMappedParentNotLoaded is returned when a mapped property's parent is
	// missing or is not a dynamic property.
	ErrMappedParentNotLoaded = errors.New("state: mapped property parent could not be loaded")

	// ErrIncompatibleDataType is returned when a mapped property's data type
	// cannot alias its parent's.
	ErrIncompatibleDataType = errors.New("state: mapped property data type is incompatible with its parent")

	// ErrActualOnMapped is returned when a patch sets the actual value of a
	// mapped property.
	ErrActualOnMapped = errors.New("state: actual value cannot be written to a mapped property")

	// ErrActualViaWrite is returned when Write is given an actual value.
	// Actual values only arrive through Set.
	ErrActualViaWrite = errors.New("state: actual value can only be set from device reports")

	// ErrNotSettable is returned when an expected value targets a property
	// that is not settable.
	ErrNotSettable = errors.New("state: property is not settable, expected value could not be written")

	// ErrMappedNotSupported is returned by managers whose entity kind has no
	// mapped properties.
	ErrMappedNotSupported = errors.New("state: mapped properties are not supported for this entity")

	// ErrNoState is returned for variable properties, which carry no state.
	ErrNoState = errors.New("state: variable properties have no state")

	// ErrEntityMismatch is returned when a property belongs to a different
	// entity kind than the manager serves.
	ErrEntityMismatch = errors.New("state: property belongs to another entity kind")

	// ErrHealFailed is returned when a stored value is still invalid after it
	// was healed.
	ErrHealFailed = errors.New("state: stored value could not be healed")
)
