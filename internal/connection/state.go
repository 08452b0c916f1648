package connection

import (
	"fmt"
	"slices"
	"strings"
)

// State is a connection lifecycle state of a device or connector.
type State string

// Connection states.
const (
	Connected    State = "connected"
	Disconnected State = "disconnected"
	Running      State = "running"
	Stopped      State = "stopped"
	Sleeping     State = "sleeping"
	Lost         State = "lost"
	Alert        State = "alert"
	Unknown      State = "unknown"
)

var (
	deviceStates    = []State{Connected, Disconnected, Sleeping, Lost, Alert, Unknown}
	connectorStates = []State{Running, Stopped, Alert, Unknown}
)

// DeviceStates returns the states a device may be in.
func DeviceStates() []State { return slices.Clone(deviceStates) }

// ConnectorStates returns the states a connector may be in.
func ConnectorStates() []State { return slices.Clone(connectorStates) }

// Invalidates reports whether entering s makes previously reported values
// untrustworthy.
func (s State) Invalidates() bool {
	return s == Disconnected || s == Alert || s == Unknown
}

// ParseState converts a stored value into a State. It reports false for
// values that are not one of the known states.
func ParseState(v any) (State, bool) {
	if v == nil {
		return Unknown, false
	}
	s := State(strings.ToLower(strings.TrimSpace(fmt.Sprint(v))))
	switch s {
	case Connected, Disconnected, Running, Stopped, Sleeping, Lost, Alert, Unknown:
		return s, true
	}
	return Unknown, false
}

// enumFormat renders states as the string-enum format of the synthetic
// state property.
func enumFormat(states []State) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}
