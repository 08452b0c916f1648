package transform

import (
	"fmt"
	"math"
	"time"
)

// writePrecision bounds the float noise removed before truncating a scaled
// value, so 25.4*10 becomes 254 rather than 253.
const writePrecision = 1e9

// TransformRead converts a normalised device value into its display value.
// The equation x leg runs first, then the value is divided by 10^scale and
// rounded to scale decimals.
func TransformRead(dt DataType, v any, eq *Equation, scale *int) (any, error) {
	if v == nil || (eq == nil && scale == nil) {
		return v, nil
	}

	f, ok := ToFloat(v)
	if !ok {
		return nil, fmt.Errorf("%w: cannot transform %v", ErrInvalidValue, v)
	}

	if eq != nil {
		var err error
		if f, err = eq.Read(f); err != nil {
			return nil, err
		}
	}

	if scale == nil {
		return castNumber(dt, f), nil
	}

	p := math.Pow10(*scale)
	return math.Round(f) / p, nil
}

// TransformWrite converts a display value into its device value. It mirrors
// TransformRead: the value is multiplied by 10^scale and truncated, then the
// equation y leg runs.
func TransformWrite(dt DataType, v any, eq *Equation, scale *int) (any, error) {
	if v == nil || (eq == nil && scale == nil) {
		return v, nil
	}

	f, ok := ToFloat(v)
	if !ok {
		return nil, fmt.Errorf("%w: cannot transform %v", ErrInvalidValue, v)
	}

	if scale != nil {
		scaled := f * math.Pow10(*scale)
		f = math.Trunc(math.Round(scaled*writePrecision) / writePrecision)
	}

	if eq != nil {
		var err error
		if f, err = eq.Write(f); err != nil {
			return nil, err
		}
	}

	return castNumber(dt, f), nil
}

// Side describes one end of a mapped-to-dynamic boundary. Range is set only
// when the value should be remapped between the two ranges.
type Side struct {
	DataType DataType
	Range    *NumberRange
}

// AcrossMapping converts v from the from side's domain into the to side's
// domain. Numeric values are linearly remapped when both sides carry a
// bounded range that differs, then cast to the target type.
func AcrossMapping(to, from Side, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch {
	case to.DataType.IsNumeric() && from.DataType.IsNumeric():
		f, ok := ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: %v is not a number", ErrInvalidValue, v)
		}
		if remappable(from.Range, to.Range) {
			f = remap(f, *from.Range, *to.Range)
		}
		return castNumber(to.DataType, f), nil

	case to.DataType == from.DataType:
		return v, nil

	case to.DataType == DataTypeBool && from.DataType == DataTypeSwitch:
		p, err := ParsePayload(DataTypeSwitch, v)
		if err != nil {
			return nil, err
		}
		switch p {
		case SwitchOn:
			return true, nil
		case SwitchOff:
			return false, nil
		}
		return nil, fmt.Errorf("%w: %s has no boolean form", ErrInvalidValue, p)

	case to.DataType == DataTypeSwitch && from.DataType == DataTypeBool:
		if normalizeBool(v) {
			return SwitchOn, nil
		}
		return SwitchOff, nil

	case to.DataType == DataTypeBool && from.DataType.IsNumeric():
		f, ok := ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: %v is not a number", ErrInvalidValue, v)
		}
		return f != 0, nil

	case to.DataType.IsNumeric() && from.DataType == DataTypeBool:
		if normalizeBool(v) {
			return castNumber(to.DataType, 1), nil
		}
		return castNumber(to.DataType, 0), nil
	}

	return nil, fmt.Errorf("%w: cannot map %s onto %s", ErrInvalidValue, from.DataType, to.DataType)
}

func remappable(from, to *NumberRange) bool {
	return from != nil && to != nil &&
		from.Bounded() && to.Bounded() &&
		!from.Equal(*to) &&
		*from.Max != *from.Min
}

func remap(v float64, from, to NumberRange) float64 {
	ratio := (v - *from.Min) / (*from.Max - *from.Min)
	out := *to.Min + ratio*(*to.Max-*to.Min)
	return to.Clamp(math.Round(out*writePrecision) / writePrecision)
}

// Flatten reduces v to a primitive suitable for storage and comparison.
// Times become RFC 3339 strings and enum members their scalar code.
func Flatten(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339)
	case Payload:
		return t.String()
	case CombinedEnumItem:
		return t.Key
	default:
		return v
	}
}

// FlattenAs flattens v using the storage layout of dt.
func FlattenAs(dt DataType, v any) any {
	t, ok := v.(time.Time)
	if !ok {
		return Flatten(v)
	}
	switch dt {
	case DataTypeDate:
		return t.Format(DateLayout)
	case DataTypeTime:
		return t.Format(TimeLayout)
	default:
		return t.Format(time.RFC3339)
	}
}

// FlatEqual compares two values after flattening. Values that both parse as
// numbers compare numerically, anything else compares by string form.
func FlatEqual(a, b any) bool {
	a, b = Flatten(a), Flatten(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := ToFloat(a); ok {
		if fb, ok := ToFloat(b); ok {
			return fa == fb
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
