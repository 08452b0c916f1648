// Package logging builds the hub's slog logger from the logging section of
// the configuration.
//
// Every record carries service and version attributes. Packages tag their
// records with Component, and the state managers add the entity kind:
//
//	mgr.SetLogger(log.Component("state").With("entity", "channel"))
//
// Domain packages never import this package. They declare a small Logger
// interface of their own, which *Logger satisfies.
package logging
