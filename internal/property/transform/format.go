package transform

import (
	"fmt"
	"strconv"
	"strings"
)

// Format restricts the values a property may take.
//
// The text encodings are:
//
//	NumberRange   "min:max"            either bound may be omitted
//	StringEnum    "a,b,c"
//	CombinedEnum  "key|device|ui,..."  one triple per item
//	EquationFormat "x=<expr>|y=<expr>"
type Format interface {
	fmt.Stringer
	format()
}

// NumberRange bounds a numeric value. A nil bound is open.
type NumberRange struct {
	Min *float64
	Max *float64
}

// NewNumberRange returns a fully bounded range.
func NewNumberRange(lower, upper float64) NumberRange {
	return NumberRange{Min: &lower, Max: &upper}
}

// Bounded reports whether both ends of the range are set.
func (r NumberRange) Bounded() bool {
	return r.Min != nil && r.Max != nil
}

// Clamp limits v to the range.
func (r NumberRange) Clamp(v float64) float64 {
	if r.Min != nil && v < *r.Min {
		return *r.Min
	}
	if r.Max != nil && v > *r.Max {
		return *r.Max
	}
	return v
}

// Equal reports whether two ranges have identical bounds.
func (r NumberRange) Equal(o NumberRange) bool {
	return equalBound(r.Min, o.Min) && equalBound(r.Max, o.Max)
}

func equalBound(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r NumberRange) String() string {
	var lo, hi string
	if r.Min != nil {
		lo = strconv.FormatFloat(*r.Min, 'f', -1, 64)
	}
	if r.Max != nil {
		hi = strconv.FormatFloat(*r.Max, 'f', -1, 64)
	}
	return lo + ":" + hi
}

// StringEnum lists the accepted values of an enum property.
type StringEnum struct {
	Items []string
}

func (e StringEnum) String() string { return strings.Join(e.Items, ",") }

// Match returns the item equal to s ignoring case.
func (e StringEnum) Match(s string) (string, bool) {
	for _, item := range e.Items {
		if strings.EqualFold(item, s) {
			return item, true
		}
	}
	return "", false
}

// CombinedEnumItem is one enum value spelled differently per direction.
type CombinedEnumItem struct {
	Key    string `json:"key"`
	Device string `json:"device"`
	UI     string `json:"ui"`
}

func (i CombinedEnumItem) String() string { return i.Key }

// CombinedEnum lists enum values with a distinct device and UI spelling.
type CombinedEnum struct {
	Items []CombinedEnumItem
}

func (e CombinedEnum) String() string {
	parts := make([]string, len(e.Items))
	for i, item := range e.Items {
		parts[i] = item.Key + "|" + item.Device + "|" + item.UI
	}
	return strings.Join(parts, ",")
}

// Match returns the item having s as its key, device or UI spelling.
func (e CombinedEnum) Match(s string) (CombinedEnumItem, bool) {
	for _, item := range e.Items {
		if strings.EqualFold(item.Key, s) || strings.EqualFold(item.Device, s) || strings.EqualFold(item.UI, s) {
			return item, true
		}
	}
	return CombinedEnumItem{}, false
}

// EquationFormat carries an equation in the format field.
type EquationFormat struct {
	Equation *Equation
}

func (f EquationFormat) String() string { return f.Equation.String() }

func (NumberRange) format()    {}
func (StringEnum) format()     {}
func (CombinedEnum) format()   {}
func (EquationFormat) format() {}

// ParseFormat decodes the text form of a format for a property of type dt.
// An empty string yields a nil Format.
func ParseFormat(dt DataType, text string) (Format, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	if strings.HasPrefix(text, "x=") {
		eq, err := ParseEquation(text)
		if err != nil {
			return nil, err
		}
		return EquationFormat{Equation: eq}, nil
	}

	if dt.IsNumeric() {
		return parseNumberRange(text)
	}

	if strings.Contains(text, "|") {
		return parseCombinedEnum(text)
	}

	items := splitTrim(text, ",")
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty enum %q", ErrInvalidFormat, text)
	}
	return StringEnum{Items: items}, nil
}

func parseNumberRange(text string) (NumberRange, error) {
	lo, hi, ok := strings.Cut(text, ":")
	if !ok {
		return NumberRange{}, fmt.Errorf("%w: range %q must be min:max", ErrInvalidFormat, text)
	}

	var r NumberRange
	if s := strings.TrimSpace(lo); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return NumberRange{}, fmt.Errorf("%w: range minimum %q: %v", ErrInvalidFormat, s, err)
		}
		r.Min = &v
	}
	if s := strings.TrimSpace(hi); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return NumberRange{}, fmt.Errorf("%w: range maximum %q: %v", ErrInvalidFormat, s, err)
		}
		r.Max = &v
	}
	if r.Bounded() && *r.Min > *r.Max {
		return NumberRange{}, fmt.Errorf("%w: range %q has min above max", ErrInvalidFormat, text)
	}
	return r, nil
}

func parseCombinedEnum(text string) (CombinedEnum, error) {
	var e CombinedEnum
	for _, entry := range splitTrim(text, ",") {
		parts := strings.Split(entry, "|")
		if len(parts) != 3 {
			return CombinedEnum{}, fmt.Errorf("%w: combined enum item %q needs key|device|ui", ErrInvalidFormat, entry)
		}
		e.Items = append(e.Items, CombinedEnumItem{
			Key:    strings.TrimSpace(parts[0]),
			Device: strings.TrimSpace(parts[1]),
			UI:     strings.TrimSpace(parts[2]),
		})
	}
	if len(e.Items) == 0 {
		return CombinedEnum{}, fmt.Errorf("%w: empty combined enum", ErrInvalidFormat)
	}
	return e, nil
}

func splitTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// RangeOf returns the numeric range of f, if f is one.
func RangeOf(f Format) (NumberRange, bool) {
	r, ok := f.(NumberRange)
	return r, ok
}
