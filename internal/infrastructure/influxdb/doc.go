// Package influxdb mirrors property values and connection transitions into
// an InfluxDB v2 bucket for long-term trends. It is optional; the SQLite
// history table covers recent state on its own.
//
// Numeric and bool values land in the property_values measurement, tagged
// by entity, owner, property id and identifier. Connection transitions land
// in connection_state.
package influxdb
