package deviceapi

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nerrad567/gray-logic-hub/internal/device"
	"github.com/nerrad567/gray-logic-hub/internal/property/transform"
)

func TestBuildPayload(t *testing.T) {
	tests := []struct {
		name       string
		capability device.CapabilityType
		values     []PropertyValue
		want       Payload
		wantErr    error
	}{
		{
			name:       "switch",
			capability: device.CapabilitySwitch,
			values:     []PropertyValue{{Identifier: "power", Value: "sw_on", Valid: true}},
			want:       Payload{"on": true},
		},
		{
			name:       "switch payload type",
			capability: device.CapabilitySwitch,
			values:     []PropertyValue{{Identifier: "power", Value: transform.SwitchOff, Valid: true}},
			want:       Payload{"on": false},
		},
		{
			name:       "light with invalid level",
			capability: device.CapabilityLight,
			values: []PropertyValue{
				{Identifier: "power", Value: "sw_toggle", Valid: true},
				{Identifier: "brightness", Value: 80.0, Valid: false},
				{Identifier: "color_temperature", Value: int64(2700), Valid: true},
			},
			want: Payload{"on": "toggle", "color_temp": int64(2700)},
		},
		{
			name:       "cover",
			capability: device.CapabilityCover,
			values: []PropertyValue{
				{Identifier: "motion", Value: "cvr_close", Valid: true},
				{Identifier: "position", Value: nil, Valid: true},
			},
			want: Payload{"action": "close"},
		},
		{
			name:       "press skips null like every capability",
			capability: device.CapabilityPress,
			values: []PropertyValue{
				{Identifier: "button", Value: nil, Valid: true},
				{Identifier: "event", Value: "btn_double_clicked", Valid: true},
			},
			want: Payload{"press": "double_clicked"},
		},
		{
			name:       "generic passthrough",
			capability: device.CapabilityGeneric,
			values:     []PropertyValue{{Identifier: "volume", Value: 12.0, Valid: true}},
			want:       Payload{"volume": 12.0},
		},
		{
			name:       "nothing to send",
			capability: device.CapabilityThermostat,
			values:     []PropertyValue{{Identifier: "target_temperature", Value: 21.0, Valid: false}},
			wantErr:    ErrEmptyPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildPayload(tt.capability, tt.values)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("BuildPayload() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildPayload() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildPayload() = %v, want %v", got, tt.want)
			}
		})
	}
}
