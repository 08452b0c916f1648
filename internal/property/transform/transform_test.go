package transform

import (
	"errors"
	"math"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func mustEquation(t *testing.T, src string) *Equation {
	t.Helper()
	eq, err := ParseEquation(src)
	if err != nil {
		t.Fatalf("ParseEquation(%q) error = %v", src, err)
	}
	return eq
}

func TestNormalize(t *testing.T) {
	percent := NewNumberRange(0, 100)

	tests := []struct {
		name    string
		dt      DataType
		raw     any
		format  Format
		invalid any
		want    any
		wantErr error
	}{
		{name: "nil stays nil", dt: DataTypeFloat, raw: nil, want: nil},
		{name: "float from string", dt: DataTypeFloat, raw: "254", want: 254.0},
		{name: "int truncates", dt: DataTypeInt, raw: "12.9", want: int64(12)},
		{name: "range clamps high", dt: DataTypeUchar, raw: 150, format: percent, want: int64(100)},
		{name: "range clamps low", dt: DataTypeFloat, raw: -3.5, format: percent, want: 0.0},
		{name: "sentinel returned unchanged", dt: DataTypeUchar, raw: 255, format: percent, invalid: 255, want: 255},
		{name: "sentinel matches across types", dt: DataTypeUchar, raw: "255", format: percent, invalid: 255, want: "255"},
		{name: "not a number", dt: DataTypeFloat, raw: "warm", wantErr: ErrInvalidValue},
		{name: "bool yes", dt: DataTypeBool, raw: "YES", want: true},
		{name: "bool on", dt: DataTypeBool, raw: "on", want: true},
		{name: "bool one", dt: DataTypeBool, raw: 1, want: true},
		{name: "bool other", dt: DataTypeBool, raw: "nope", want: false},
		{name: "switch bare", dt: DataTypeSwitch, raw: "on", want: SwitchOn},
		{name: "switch prefixed", dt: DataTypeSwitch, raw: "sw_toggle", want: SwitchToggle},
		{name: "switch invalid", dt: DataTypeSwitch, raw: "dim", wantErr: ErrInvalidValue},
		{name: "cover member", dt: DataTypeCover, raw: "cvr_stopped", want: CoverStopped},
		{name: "button wrong enum", dt: DataTypeButton, raw: SwitchOn, wantErr: ErrInvalidValue},
		{name: "string", dt: DataTypeString, raw: 12, want: "12"},
		{name: "enum matches case-insensitively", dt: DataTypeEnum, raw: "auto", format: StringEnum{Items: []string{"Auto", "Manual"}}, want: "Auto"},
		{name: "enum rejects non-member", dt: DataTypeEnum, raw: "eco", format: StringEnum{Items: []string{"Auto", "Manual"}}, wantErr: ErrInvalidValue},
		{name: "unknown passes through", dt: DataTypeUnknown, raw: []int{1}, want: nil},
		{name: "invalid date yields nil", dt: DataTypeDate, raw: "not-a-date", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.dt, tt.raw, tt.format, tt.invalid)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Normalize() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if tt.dt == DataTypeUnknown {
				if _, ok := got.([]int); !ok {
					t.Errorf("Normalize() = %#v, want raw slice", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Normalize() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNormalizeCombinedEnum(t *testing.T) {
	modes := CombinedEnum{Items: []CombinedEnumItem{
		{Key: "heat", Device: "1", UI: "Heating"},
		{Key: "cool", Device: "2", UI: "Cooling"},
	}}

	for _, raw := range []any{"cool", "2", "cooling", 2} {
		got, err := Normalize(DataTypeEnum, raw, modes, nil)
		if err != nil {
			t.Fatalf("Normalize(%v) error = %v", raw, err)
		}
		item, ok := got.(CombinedEnumItem)
		if !ok || item.Key != "cool" {
			t.Errorf("Normalize(%v) = %#v, want cool item", raw, got)
		}
		if Flatten(got) != "cool" {
			t.Errorf("Flatten(%v) = %v, want cool", got, Flatten(got))
		}
	}

	if _, err := Normalize(DataTypeEnum, "fan", modes, nil); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Normalize(fan) error = %v, want ErrInvalidValue", err)
	}
}

func TestNormalizeTemporal(t *testing.T) {
	got, err := Normalize(DataTypeDate, "2024-03-01", nil, nil)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	ts, ok := got.(time.Time)
	if !ok {
		t.Fatalf("Normalize() = %#v, want time.Time", got)
	}
	if FlattenAs(DataTypeDate, ts) != "2024-03-01" {
		t.Errorf("FlattenAs(date) = %v", FlattenAs(DataTypeDate, ts))
	}

	got, err = Normalize(DataTypeDateTime, "2024-03-01T10:20:30Z", nil, nil)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if Flatten(got) != "2024-03-01T10:20:30Z" {
		t.Errorf("Flatten(datetime) = %v", Flatten(got))
	}

	got, err = Normalize(DataTypeTime, "07:30:00+02:00", nil, nil)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if FlattenAs(DataTypeTime, got) != "07:30:00+02:00" {
		t.Errorf("FlattenAs(time) = %v", FlattenAs(DataTypeTime, got))
	}
}

func TestTransformReadScale(t *testing.T) {
	got, err := TransformRead(DataTypeFloat, 254.0, nil, intPtr(1))
	if err != nil {
		t.Fatalf("TransformRead() error = %v", err)
	}
	if got != 25.4 {
		t.Errorf("TransformRead(254, scale=1) = %v, want 25.4", got)
	}

	got, err = TransformRead(DataTypeFloat, 254.0, nil, nil)
	if err != nil {
		t.Fatalf("TransformRead() error = %v", err)
	}
	if got != 254.0 {
		t.Errorf("TransformRead(254) = %v, want 254", got)
	}
}

func TestTransformReadEquation(t *testing.T) {
	eq := mustEquation(t, "x=y/2.54|y=x*2.54")

	got, err := TransformRead(DataTypeUchar, int64(250), eq, nil)
	if err != nil {
		t.Fatalf("TransformRead() error = %v", err)
	}
	if got != int64(98) {
		t.Errorf("TransformRead(250) = %#v, want int64(98)", got)
	}

	got, err = TransformWrite(DataTypeUchar, int64(98), eq, nil)
	if err != nil {
		t.Fatalf("TransformWrite() error = %v", err)
	}
	if got != int64(248) {
		t.Errorf("TransformWrite(98) = %#v, want int64(248)", got)
	}
}

func TestTransformRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		dt       DataType
		equation string
		scale    *int
		values   []any
	}{
		{name: "scale 1 float", dt: DataTypeFloat, scale: intPtr(1), values: []any{0.0, 1.0, 127.0, 254.0, 1000.0}},
		{name: "scale 2 int", dt: DataTypeInt, scale: intPtr(2), values: []any{int64(0), int64(1234), int64(-250)}},
		{name: "scale 0", dt: DataTypeUshort, scale: intPtr(0), values: []any{int64(7), int64(65535)}},
		{name: "equation only", dt: DataTypeFloat, equation: "x=y/2|y=x*2", values: []any{0.0, 50.0, 201.0}},
		{name: "equation with offset", dt: DataTypeFloat, equation: "x=(y-32)/1.8|y=x*1.8+32", values: []any{32.0, 212.0, 98.6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var eq *Equation
			if tt.equation != "" {
				eq = mustEquation(t, tt.equation)
			}
			for _, v := range tt.values {
				read, err := TransformRead(tt.dt, v, eq, tt.scale)
				if err != nil {
					t.Fatalf("TransformRead(%v) error = %v", v, err)
				}
				back, err := TransformWrite(tt.dt, read, eq, tt.scale)
				if err != nil {
					t.Fatalf("TransformWrite(%v) error = %v", read, err)
				}
				fv, _ := ToFloat(v)
				fb, _ := ToFloat(back)
				if math.Abs(fv-fb) > 1e-6 {
					t.Errorf("round trip %v -> %v -> %v", v, read, back)
				}
			}
		})
	}
}

func TestAcrossMapping(t *testing.T) {
	device := NewNumberRange(10, 1000)
	ui := NewNumberRange(0, 100)

	tests := []struct {
		name    string
		to      Side
		from    Side
		value   any
		want    any
		wantErr error
	}{
		{name: "same numeric type", to: Side{DataType: DataTypeUchar}, from: Side{DataType: DataTypeUchar}, value: int64(250), want: int64(250)},
		{name: "float to int truncates", to: Side{DataType: DataTypeInt}, from: Side{DataType: DataTypeFloat}, value: 12.7, want: int64(12)},
		{name: "device range to ui range", to: Side{DataType: DataTypeFloat, Range: &ui}, from: Side{DataType: DataTypeFloat, Range: &device}, value: 505.0, want: 50.0},
		{name: "ui range to device range", to: Side{DataType: DataTypeUshort, Range: &device}, from: Side{DataType: DataTypeUchar, Range: &ui}, value: int64(50), want: int64(505)},
		{name: "identical ranges skip remap", to: Side{DataType: DataTypeFloat, Range: &ui}, from: Side{DataType: DataTypeFloat, Range: &ui}, value: 42.0, want: 42.0},
		{name: "switch to bool", to: Side{DataType: DataTypeBool}, from: Side{DataType: DataTypeSwitch}, value: SwitchOn, want: true},
		{name: "bool to switch", to: Side{DataType: DataTypeSwitch}, from: Side{DataType: DataTypeBool}, value: false, want: SwitchOff},
		{name: "toggle has no bool", to: Side{DataType: DataTypeBool}, from: Side{DataType: DataTypeSwitch}, value: SwitchToggle, wantErr: ErrInvalidValue},
		{name: "bool to number", to: Side{DataType: DataTypeUchar}, from: Side{DataType: DataTypeBool}, value: true, want: int64(1)},
		{name: "number to bool", to: Side{DataType: DataTypeBool}, from: Side{DataType: DataTypeInt}, value: int64(0), want: false},
		{name: "incompatible", to: Side{DataType: DataTypeCover}, from: Side{DataType: DataTypeFloat}, value: 1.0, wantErr: ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AcrossMapping(tt.to, tt.from, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("AcrossMapping() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("AcrossMapping() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("AcrossMapping() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFlatEqual(t *testing.T) {
	tests := []struct {
		a, b any
		want bool
	}{
		{a: "254", b: 254.0, want: true},
		{a: int64(12), b: 12.0, want: true},
		{a: "12.5", b: "12.50", want: true},
		{a: SwitchOn, b: "sw_on", want: true},
		{a: nil, b: nil, want: true},
		{a: nil, b: 0, want: false},
		{a: "on", b: "off", want: false},
		{a: true, b: "true", want: true},
	}

	for _, tt := range tests {
		if got := FlatEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("FlatEqual(%#v, %#v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(DataTypeUchar, "0:254")
	if err != nil {
		t.Fatalf("ParseFormat() error = %v", err)
	}
	r, ok := RangeOf(f)
	if !ok || !r.Bounded() || *r.Max != 254 {
		t.Errorf("ParseFormat(0:254) = %#v", f)
	}

	f, err = ParseFormat(DataTypeFloat, ":50")
	if err != nil {
		t.Fatalf("ParseFormat() error = %v", err)
	}
	if r, _ := RangeOf(f); r.Min != nil || *r.Max != 50 {
		t.Errorf("ParseFormat(:50) = %#v", f)
	}

	f, err = ParseFormat(DataTypeEnum, "heat|1|Heating,cool|2|Cooling")
	if err != nil {
		t.Fatalf("ParseFormat() error = %v", err)
	}
	if c, ok := f.(CombinedEnum); !ok || len(c.Items) != 2 || c.Items[1].UI != "Cooling" {
		t.Errorf("ParseFormat(combined) = %#v", f)
	}

	f, err = ParseFormat(DataTypeEnum, "running, stopped")
	if err != nil {
		t.Fatalf("ParseFormat() error = %v", err)
	}
	if f.String() != "running,stopped" {
		t.Errorf("ParseFormat(enum).String() = %q", f.String())
	}

	f, err = ParseFormat(DataTypeFloat, "x=y/10|y=x*10")
	if err != nil {
		t.Fatalf("ParseFormat() error = %v", err)
	}
	if _, ok := f.(EquationFormat); !ok {
		t.Errorf("ParseFormat(equation) = %#v", f)
	}

	if f, err := ParseFormat(DataTypeFloat, ""); f != nil || err != nil {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}

	for _, bad := range []string{"10:1", "abc", "a:b"} {
		if _, err := ParseFormat(DataTypeInt, bad); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("ParseFormat(%q) error = %v, want ErrInvalidFormat", bad, err)
		}
	}
}

func TestParseEquationErrors(t *testing.T) {
	for _, bad := range []string{"x=y/2", "z=1|y=x", "x=y/|y=x*2", "nonsense"} {
		if _, err := ParseEquation(bad); !errors.Is(err, ErrInvalidEquation) {
			t.Errorf("ParseEquation(%q) error = %v, want ErrInvalidEquation", bad, err)
		}
	}
}

func TestCompatible(t *testing.T) {
	if !Compatible(DataTypeUchar, DataTypeFloat) {
		t.Error("Compatible(uchar, float) = false, want true")
	}
	if !Compatible(DataTypeSwitch, DataTypeSwitch) {
		t.Error("Compatible(switch, switch) = false, want true")
	}
	if Compatible(DataTypeBool, DataTypeInt) {
		t.Error("Compatible(bool, int) = true, want false")
	}
}
