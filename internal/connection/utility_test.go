package connection

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-hub/internal/device"
	"github.com/nerrad567/gray-logic-hub/internal/property"
	"github.com/nerrad567/gray-logic-hub/internal/property/transform"
	"github.com/nerrad567/gray-logic-hub/internal/state"
	"github.com/nerrad567/gray-logic-hub/internal/store"
)

type fakeCatalogue struct {
	devices  []device.Device
	channels []device.Channel
}

func (f *fakeCatalogue) ListChildren(_ context.Context, parentID string, categories ...device.Category) ([]device.Device, error) {
	var out []device.Device
	for _, d := range f.devices {
		if d.ParentID == nil || *d.ParentID != parentID {
			continue
		}
		for _, c := range categories {
			if d.Category == c {
				out = append(out, d)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeCatalogue) ListChannels(_ context.Context, deviceID string) ([]device.Channel, error) {
	var out []device.Channel
	for _, c := range f.channels {
		if c.DeviceID == deviceID {
			out = append(out, c)
		}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func dynamic(id string, entity property.EntityKind, owner string, dt transform.DataType) *property.Dynamic {
	return &property.Dynamic{Definition: property.Definition{
		ID: id, Identifier: id, Name: id, Entity: entity, OwnerID: owner, DataType: dt, Settable: true, Queryable: true,
	}}
}

type fixture struct {
	util    *Utility
	states  *store.MemoryStateRepository
	devices map[string]*device.Device
}

// newFixture builds a gateway with one sub-device, one third-party device
// and a channel on the sub-device. Every property starts valid.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	gw := device.Device{ID: "gw", ConnectorID: "c", Name: "Gateway", Category: device.CategoryGateway}
	sub := device.Device{ID: "sub", ConnectorID: "c", Name: "Relay", Category: device.CategorySubDevice, ParentID: strPtr("gw")}
	tp := device.Device{ID: "tp", ConnectorID: "c", Name: "Bulb", Category: device.CategoryThirdParty, ParentID: strPtr("gw")}
	cat := &fakeCatalogue{
		devices:  []device.Device{gw, sub, tp},
		channels: []device.Channel{{ID: "sub-ch", DeviceID: "sub", Name: "Relay 1"}},
	}

	props := []property.Property{
		dynamic("gw-uptime", property.EntityDevice, "gw", transform.DataTypeUint),
		dynamic("sub-rssi", property.EntityDevice, "sub", transform.DataTypeInt),
		dynamic("tp-rssi", property.EntityDevice, "tp", transform.DataTypeInt),
		dynamic("relay", property.EntityChannel, "sub-ch", transform.DataTypeSwitch),
	}
	config := store.NewMemoryPropertyRepository(props...)
	states := store.NewMemoryStateRepository()
	for _, p := range props {
		states.Put(&property.State{PropertyID: p.Def().ID, ActualValue: 1, Valid: true})
	}
	states.Put(&property.State{PropertyID: "relay", ActualValue: "sw_on", Valid: true})

	util := NewUtility(
		state.NewConnectorManager(config, states),
		state.NewDeviceManager(config, states),
		state.NewChannelManager(config, states),
		cat,
	)
	return &fixture{
		util:    util,
		states:  states,
		devices: map[string]*device.Device{"gw": &gw, "sub": &sub, "tp": &tp},
	}
}

func (f *fixture) valid(t *testing.T, id string) bool {
	t.Helper()
	s, err := f.states.Find(context.Background(), id)
	if err != nil {
		t.Fatalf("state %s: %v", id, err)
	}
	return s.Valid
}

func (f *fixture) stateOf(t *testing.T, id string) State {
	t.Helper()
	s, err := f.util.GetDeviceState(context.Background(), id)
	if err != nil {
		t.Fatalf("GetDeviceState(%s) error = %v", id, err)
	}
	return s
}

func TestGatewayDisconnectCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, id := range []string{"gw", "sub"} {
		if _, err := f.util.SetDeviceState(ctx, f.devices[id], Connected); err != nil {
			t.Fatalf("SetDeviceState(%s, connected) error = %v", id, err)
		}
	}
	if !f.valid(t, "gw-uptime") || !f.valid(t, "sub-rssi") {
		t.Fatal("connected must not invalidate properties")
	}

	ok, err := f.util.SetDeviceState(ctx, f.devices["gw"], Disconnected)
	if err != nil || !ok {
		t.Fatalf("SetDeviceState(gw, disconnected) = %v, %v", ok, err)
	}

	for _, id := range []string{"gw", "sub"} {
		if got := f.stateOf(t, id); got != Disconnected {
			t.Errorf("%s state = %s, want disconnected", id, got)
		}
	}
	for _, id := range []string{"gw-uptime", "sub-rssi", "relay"} {
		if f.valid(t, id) {
			t.Errorf("%s still valid after gateway disconnect", id)
		}
	}

	if got := f.stateOf(t, "tp"); got != Unknown {
		t.Errorf("third-party state = %s, want untouched", got)
	}
	if !f.valid(t, "tp-rssi") {
		t.Error("third-party property invalidated on disconnect")
	}
}

func TestGatewayAlertReachesThirdParty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.util.SetDeviceState(ctx, f.devices["gw"], Alert); err != nil {
		t.Fatalf("SetDeviceState(gw, alert) error = %v", err)
	}

	for _, id := range []string{"gw", "sub", "tp"} {
		if got := f.stateOf(t, id); got != Alert {
			t.Errorf("%s state = %s, want alert", id, got)
		}
	}
	if f.valid(t, "sub-rssi") {
		t.Error("sub-device property still valid")
	}
	if !f.valid(t, "tp-rssi") {
		t.Error("third-party property must keep its valid flag")
	}
}

func TestSetDeviceStateIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var transitions int
	f.util.OnTransition(func(context.Context, property.EntityKind, string, State) { transitions++ })

	for range 2 {
		ok, err := f.util.SetDeviceState(ctx, f.devices["sub"], Lost)
		if err != nil || !ok {
			t.Fatalf("SetDeviceState() = %v, %v", ok, err)
		}
	}
	if transitions != 1 {
		t.Errorf("transitions = %d, want 1", transitions)
	}
	if !f.valid(t, "sub-rssi") {
		t.Error("lost must not invalidate properties")
	}
}

func TestIllegalStates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.util.SetDeviceState(ctx, f.devices["gw"], Running); !errors.Is(err, ErrInvalidState) {
		t.Errorf("SetDeviceState(running) error = %v, want ErrInvalidState", err)
	}
	if _, err := f.util.SetConnectorState(ctx, "c", Connected); !errors.Is(err, ErrInvalidState) {
		t.Errorf("SetConnectorState(connected) error = %v, want ErrInvalidState", err)
	}
}

func TestConnectorState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	got, err := f.util.GetConnectorState(ctx, "c")
	if err != nil || got != Unknown {
		t.Errorf("GetConnectorState() before any set = %s, %v, want unknown", got, err)
	}

	if _, err := f.util.SetConnectorState(ctx, "c", Running); err != nil {
		t.Fatalf("SetConnectorState() error = %v", err)
	}
	if got, _ := f.util.GetConnectorState(ctx, "c"); got != Running {
		t.Errorf("GetConnectorState() = %s, want running", got)
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		in   any
		want State
		ok   bool
	}{
		{"connected", Connected, true},
		{" ALERT ", Alert, true},
		{"rebooting", Unknown, false},
		{nil, Unknown, false},
	}
	for _, tt := range tests {
		got, ok := ParseState(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseState(%v) = %s, %v, want %s, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
