package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Temporal layouts accepted by Normalize, tried in order per data type.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05Z07:00"
)

var temporalLayouts = map[DataType][]string{
	DataTypeDate:     {DateLayout, time.RFC3339Nano},
	DataTypeTime:     {TimeLayout, "15:04:05", time.RFC3339Nano},
	DataTypeDateTime: {time.RFC3339Nano, "2006-01-02 15:04:05", DateLayout},
}

var truthy = map[string]bool{"true": true, "t": true, "yes": true, "y": true, "1": true, "on": true}

// Normalize coerces raw to the semantic type dt.
//
// A nil raw value normalises to nil. For numeric types a value equal to the
// invalid sentinel is returned unchanged. Temporal values that fail to parse
// normalise to nil. Payload and enum values that are not members of their
// set return ErrInvalidValue.
func Normalize(dt DataType, raw any, f Format, invalid any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch {
	case dt.IsNumeric():
		return normalizeNumber(dt, raw, f, invalid)
	case dt == DataTypeBool:
		return normalizeBool(raw), nil
	case dt.IsTemporal():
		return normalizeTemporal(dt, raw), nil
	case dt.IsPayload():
		return ParsePayload(dt, raw)
	case dt == DataTypeEnum:
		return normalizeEnum(raw, f)
	case dt == DataTypeString:
		return flatString(raw), nil
	default:
		return raw, nil
	}
}

func normalizeNumber(dt DataType, raw any, f Format, invalid any) (any, error) {
	if invalid != nil && FlatEqual(raw, invalid) {
		return raw, nil
	}

	v, ok := ToFloat(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %v is not a number", ErrInvalidValue, raw)
	}
	if r, ok := f.(NumberRange); ok {
		v = r.Clamp(v)
	}
	return castNumber(dt, v), nil
}

// castNumber returns int64 for integer types and float64 otherwise.
func castNumber(dt DataType, v float64) any {
	if dt.IsInteger() {
		return int64(math.Trunc(v))
	}
	return v
}

func normalizeBool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case SwitchPayload:
		return v == SwitchOn
	}
	return truthy[strings.ToLower(strings.TrimSpace(flatString(raw)))]
}

func normalizeTemporal(dt DataType, raw any) any {
	switch v := raw.(type) {
	case time.Time:
		return v
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range temporalLayouts[dt] {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return nil
}

func normalizeEnum(raw any, f Format) (any, error) {
	if item, ok := raw.(CombinedEnumItem); ok {
		raw = item.Key
	}
	s := flatString(raw)

	switch e := f.(type) {
	case StringEnum:
		if item, ok := e.Match(s); ok {
			return item, nil
		}
	case CombinedEnum:
		if item, ok := e.Match(s); ok {
			return item, nil
		}
	default:
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q is not one of %s", ErrInvalidValue, s, f)
}

// ToFloat converts numeric values and numeric strings to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func flatString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(Flatten(v))
	}
}
