// Package connection tracks the connection lifecycle of devices and
// connectors.
//
// The current state is the actual value of a synthetic dynamic property
// with identifier "state", created on first use. Moving a device into
// disconnected, alert or unknown invalidates every other dynamic property of
// the device and its channels. A gateway drives its sub-devices into the
// same state; alert also reaches bridged third-party devices, which only
// have their state changed.
package connection
