package transform

import "math"

// DataType is the semantic type a property value is normalised to.
type DataType string

// Integer data types.
const (
	DataTypeChar   DataType = "char"
	DataTypeUchar  DataType = "uchar"
	DataTypeShort  DataType = "short"
	DataTypeUshort DataType = "ushort"
	DataTypeInt    DataType = "int"
	DataTypeUint   DataType = "uint"
)

// Scalar data types.
const (
	DataTypeFloat  DataType = "float"
	DataTypeBool   DataType = "bool"
	DataTypeString DataType = "string"
	DataTypeEnum   DataType = "enum"
)

// Temporal data types.
const (
	DataTypeDate     DataType = "date"
	DataTypeTime     DataType = "time"
	DataTypeDateTime DataType = "datetime"
)

// Payload enum data types.
const (
	DataTypeButton DataType = "button"
	DataTypeSwitch DataType = "switch"
	DataTypeCover  DataType = "cover"
)

// DataTypeUnknown passes values through untouched.
const DataTypeUnknown DataType = "unknown"

// AllDataTypes returns all valid data type values.
func AllDataTypes() []DataType {
	return []DataType{
		DataTypeChar, DataTypeUchar, DataTypeShort, DataTypeUshort, DataTypeInt, DataTypeUint,
		DataTypeFloat, DataTypeBool, DataTypeString, DataTypeEnum,
		DataTypeDate, DataTypeTime, DataTypeDateTime,
		DataTypeButton, DataTypeSwitch, DataTypeCover,
		DataTypeUnknown,
	}
}

// Valid reports whether d is a recognised data type.
func (d DataType) Valid() bool {
	for _, dt := range AllDataTypes() {
		if dt == d {
			return true
		}
	}
	return false
}

// IsInteger reports whether d belongs to the integer family.
func (d DataType) IsInteger() bool {
	switch d {
	case DataTypeChar, DataTypeUchar, DataTypeShort, DataTypeUshort, DataTypeInt, DataTypeUint:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether d is an integer or float type.
func (d DataType) IsNumeric() bool {
	return d.IsInteger() || d == DataTypeFloat
}

// IsTemporal reports whether d is a date, time or datetime type.
func (d DataType) IsTemporal() bool {
	return d == DataTypeDate || d == DataTypeTime || d == DataTypeDateTime
}

// IsPayload reports whether d is one of the discrete payload enums.
func (d DataType) IsPayload() bool {
	return d == DataTypeButton || d == DataTypeSwitch || d == DataTypeCover
}

// Bounds returns the natural value range of an integer type.
// ok is false for non-integer types.
func (d DataType) Bounds() (lower, upper float64, ok bool) {
	switch d {
	case DataTypeChar:
		return math.MinInt8, math.MaxInt8, true
	case DataTypeUchar:
		return 0, math.MaxUint8, true
	case DataTypeShort:
		return math.MinInt16, math.MaxInt16, true
	case DataTypeUshort:
		return 0, math.MaxUint16, true
	case DataTypeInt:
		return math.MinInt32, math.MaxInt32, true
	case DataTypeUint:
		return 0, math.MaxUint32, true
	default:
		return 0, 0, false
	}
}

// Compatible reports whether a mapped property of type mapped may alias a
// parent of type parent: the types match exactly or both are numeric.
func Compatible(mapped, parent DataType) bool {
	if mapped == parent {
		return true
	}
	return mapped.IsNumeric() && parent.IsNumeric()
}
