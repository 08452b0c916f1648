package deviceapi

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-hub/internal/device"
)

// Payload is the wire representation of a channel's state.
type Payload map[string]any

// PropertyValue is one channel property offered to BuildPayload.
type PropertyValue struct {
	Identifier string
	Value      any
	// Valid is false when the value must not be sent.
	Valid bool
}

// wireKeys renames property identifiers per capability. Identifiers not
// listed are sent under their own name.
var wireKeys = map[device.CapabilityType]map[string]string{
	device.CapabilitySwitch: {
		"power": "on",
		"state": "on",
	},
	device.CapabilityLight: {
		"power":             "on",
		"brightness":        "level",
		"color_temperature": "color_temp",
	},
	device.CapabilityCover: {
		"motion":   "action",
		"command":  "action",
		"position": "position",
	},
	device.CapabilityPress: {
		"button": "press",
		"event":  "press",
	},
	device.CapabilityThermostat: {
		"target_temperature": "setpoint",
		"hvac_mode":          "mode",
	},
}

// BuildPayload maps channel property values onto the wire keys of
// capability. Values that are nil or not valid are skipped; the same rule
// applies to every capability.
func BuildPayload(capability device.CapabilityType, values []PropertyValue) (Payload, error) {
	out := Payload{}
	keys := wireKeys[capability]
	for _, v := range values {
		if v.Value == nil || !v.Valid {
			continue
		}
		key := v.Identifier
		if k, ok := keys[v.Identifier]; ok {
			key = k
		}
		out[key] = wireValue(v.Value)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s channel", ErrEmptyPayload, capability)
	}
	return out, nil
}

// wireValue lowers discrete payload enums to what bridges expect: switch
// states become bools, cover and button members lose their prefix.
func wireValue(v any) any {
	s, ok := v.(fmt.Stringer)
	var str string
	switch {
	case ok:
		str = s.String()
	default:
		str, ok = v.(string)
		if !ok {
			return v
		}
	}

	switch {
	case str == "sw_on":
		return true
	case str == "sw_off":
		return false
	case str == "sw_toggle":
		return "toggle"
	case strings.HasPrefix(str, "cvr_"):
		return strings.TrimPrefix(str, "cvr_")
	case strings.HasPrefix(str, "btn_"):
		return strings.TrimPrefix(str, "btn_")
	default:
		return v
	}
}
