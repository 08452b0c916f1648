package exchange

import (
	"context"
	"sync"
)

// Logger defines the logging interface used by queues and the dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Queue accepts outbound messages.
type Queue interface {
	Append(ctx context.Context, env Envelope) error
}

// Consumer handles inbound messages. It reports whether the message was
// handled; an unhandled message is logged and dropped.
type Consumer interface {
	Consume(ctx context.Context, env Envelope) bool
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, env Envelope) bool

// Consume calls f.
func (f ConsumerFunc) Consume(ctx context.Context, env Envelope) bool {
	return f(ctx, env)
}

// Dispatcher routes envelopes to the consumers registered for their key.
type Dispatcher struct {
	mu     sync.RWMutex
	routes map[RoutingKey][]Consumer
	logger Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		routes: make(map[RoutingKey][]Consumer),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Register adds c to the consumers of key.
func (d *Dispatcher) Register(key RoutingKey, c Consumer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[key] = append(d.routes[key], c)
}

// Keys returns the routing keys with at least one consumer.
func (d *Dispatcher) Keys() []RoutingKey {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]RoutingKey, 0, len(d.routes))
	for k := range d.routes {
		keys = append(keys, k)
	}
	return keys
}

// Dispatch hands env to every consumer of its routing key in registration
// order. It reports false when no consumer is registered or any consumer
// did not handle the message.
func (d *Dispatcher) Dispatch(ctx context.Context, env Envelope) bool {
	d.mu.RLock()
	consumers := d.routes[env.RoutingKey]
	d.mu.RUnlock()

	if len(consumers) == 0 {
		d.logger.Warn("no consumer for message", "type", env.RoutingKey, "source", env.Source, "id", env.ID)
		return false
	}

	handled := true
	for _, c := range consumers {
		if !c.Consume(ctx, env) {
			handled = false
		}
	}
	if !handled {
		d.logger.Warn("message not handled", "type", env.RoutingKey, "source", env.Source, "id", env.ID)
	}
	return handled
}
