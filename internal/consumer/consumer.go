package consumer

import (
	"context"

	"github.com/nerrad567/gray-logic-hub/internal/connection"
	"github.com/nerrad567/gray-logic-hub/internal/device"
	"github.com/nerrad567/gray-logic-hub/internal/exchange"
)

// Logger defines the logging interface used by consumers.
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

// Catalogue resolves the entities a message refers to.
type Catalogue interface {
	GetConnector(ctx context.Context, id string) (*device.Connector, error)
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	GetChannel(ctx context.Context, id string) (*device.Channel, error)
	Reachability(ctx context.Context, d *device.Device) (device.Endpoint, error)
}

// Registration pairs a consumer with the routing key it serves.
type Registration struct {
	Key      exchange.RoutingKey
	Consumer exchange.Consumer
}

// Register adds every registration to d.
func Register(d *exchange.Dispatcher, regs ...Registration) {
	for _, r := range regs {
		d.Register(r.Key, r.Consumer)
	}
}

// enqueueConnectionState appends a connection state message for d.
func enqueueConnectionState(ctx context.Context, q exchange.Queue, source string, d *device.Device, s connection.State) error {
	env, err := exchange.NewEnvelope(source, exchange.StoreDeviceConnectionState, exchange.DeviceConnectionState{
		ConnectorID: d.ConnectorID,
		DeviceID:    d.ID,
		State:       string(s),
	})
	if err != nil {
		return err
	}
	return q.Append(ctx, env)
}
