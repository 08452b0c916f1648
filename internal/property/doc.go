// Package property defines the canonical property model shared by every
// connector, device and channel in the hub.
//
// A property is exactly one of three kinds:
//
//   - Dynamic: device-backed, carries a live State record holding the actual
//     value the device last reported and the expected value someone wants it
//     to become.
//   - Mapped: an alias over a Dynamic parent. It reinterprets the parent's raw
//     value through its own data type, format, scale and equation, and owns no
//     State record of its own.
//   - Variable: a static configuration value with no live state.
//
// The kind is carried by the concrete type behind the Property interface, so
// callers switch on it once:
//
//	switch p := prop.(type) {
//	case *property.Dynamic:
//	case *property.Mapped:
//	case *property.Variable:
//	}
//
// Definitions are read through a ConfigurationRepository. State records are
// read through a StateRepository and written through a StatePersister; both
// may be absent in stateless deployments, in which case implementations
// return ErrNotImplemented.
package property
