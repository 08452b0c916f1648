// Package telemetry fans persisted state changes out to the hub's sinks.
//
// A Recorder is registered as a change hook on each state manager and as a
// transition hook on the connection utility. Every saved state is appended
// to the history store. Valid actual values are normalized for display and
// written to InfluxDB, and both property states and connection states are
// mirrored on retained MQTT topics.
//
// All sinks are optional and failures are logged, never returned: telemetry
// must not fail a state write.
package telemetry
