// Package api implements the HTTP REST API and WebSocket server of the hub.
//
// This package provides:
//   - REST endpoints to read and write property state per entity kind
//   - connection state and state history queries
//   - read-only views of the entity catalogue
//   - a WebSocket hub broadcasting persisted state changes
//
// # Architecture
//
// Reads go straight to the state managers. A write to a channel property
// stores the expected value and then enqueues a write message for the
// device's category; the exchange consumer pushes it to the device. State
// changes reach WebSocket clients through the managers' change hooks.
//
// The server runs without a queue. Writes are then stored but not pushed.
package api
