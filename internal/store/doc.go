// Package store provides the persistence backends for property definitions
// and property state records.
//
// Definitions live in the SQLite properties table managed by the hub's
// migrations. State records can be kept in SQLite, in PostgreSQL through a
// pgx connection pool, or in memory; a stateless backend is also available
// that answers every call with property.ErrNotImplemented.
//
// Values are stored as JSON text so the actual and expected value columns can
// hold numbers, strings and booleans without a column per type.
package store
