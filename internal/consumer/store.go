package consumer

import (
	"context"

	"github.com/nerrad567/gray-logic-hub/internal/connection"
	"github.com/nerrad567/gray-logic-hub/internal/exchange"
	"github.com/nerrad567/gray-logic-hub/internal/property"
	"github.com/nerrad567/gray-logic-hub/internal/state"
)

// StoreDeviceConnectionState applies queued device connection states.
type StoreDeviceConnectionState struct {
	catalogue Catalogue
	util      *connection.Utility
	logger    Logger
}

// NewStoreDeviceConnectionState creates the consumer.
func NewStoreDeviceConnectionState(catalogue Catalogue, util *connection.Utility) *StoreDeviceConnectionState {
	return &StoreDeviceConnectionState{catalogue: catalogue, util: util, logger: noopLogger{}}
}

// SetLogger sets the logger for the consumer.
func (c *StoreDeviceConnectionState) SetLogger(logger Logger) {
	c.logger = logger
}

// Registration returns the consumer paired with its routing key.
func (c *StoreDeviceConnectionState) Registration() Registration {
	return Registration{Key: exchange.StoreDeviceConnectionState, Consumer: c}
}

// Consume handles one connection state message. It always reports true.
func (c *StoreDeviceConnectionState) Consume(ctx context.Context, env exchange.Envelope) bool {
	var msg exchange.DeviceConnectionState
	if err := env.Decode(&msg); err != nil {
		c.logger.Error("connection state message rejected", "source", env.Source, "error", err)
		return true
	}
	log := []any{"source", env.Source, "device", msg.DeviceID, "state", msg.State}

	d, err := c.catalogue.GetDevice(ctx, msg.DeviceID)
	if err != nil {
		c.logger.Warn("device not found", append(log, "error", err)...)
		return true
	}
	s, ok := connection.ParseState(msg.State)
	if !ok {
		c.logger.Warn("unknown connection state", log...)
		return true
	}
	if _, err := c.util.SetDeviceState(ctx, d, s); err != nil {
		c.logger.Error("storing connection state", append(log, "error", err)...)
		return true
	}
	c.logger.Debug("connection state stored", log...)
	return true
}

// StoreChannelPropertyState applies property values reported by devices.
type StoreChannelPropertyState struct {
	catalogue Catalogue
	channels  *state.Async
	logger    Logger
}

// NewStoreChannelPropertyState creates the consumer.
func NewStoreChannelPropertyState(catalogue Catalogue, channels *state.Async) *StoreChannelPropertyState {
	return &StoreChannelPropertyState{catalogue: catalogue, channels: channels, logger: noopLogger{}}
}

// SetLogger sets the logger for the consumer.
func (c *StoreChannelPropertyState) SetLogger(logger Logger) {
	c.logger = logger
}

// Registration returns the consumer paired with its routing key.
func (c *StoreChannelPropertyState) Registration() Registration {
	return Registration{Key: exchange.StoreChannelPropertyState, Consumer: c}
}

// Consume handles one reported value. It always reports true.
func (c *StoreChannelPropertyState) Consume(ctx context.Context, env exchange.Envelope) bool {
	var msg exchange.ChannelPropertyState
	if err := env.Decode(&msg); err != nil {
		c.logger.Error("property state message rejected", "source", env.Source, "error", err)
		return true
	}
	log := []any{"source", env.Source, "channel", msg.ChannelID, "identifier", msg.Identifier}

	ch, err := c.catalogue.GetChannel(ctx, msg.ChannelID)
	if err != nil {
		c.logger.Warn("channel not found", append(log, "error", err)...)
		return true
	}
	if msg.DeviceID != "" && ch.DeviceID != msg.DeviceID {
		c.logger.Warn("channel is not on device", append(log, "device", msg.DeviceID)...)
		return true
	}
	p, err := c.channels.Manager().Property(ctx, ch.ID, msg.Identifier)
	if err != nil {
		c.logger.Warn("property not found", append(log, "error", err)...)
		return true
	}
	if _, err := c.channels.Set(ctx, p, property.Actual(msg.Value)).Await(ctx); err != nil {
		c.logger.Error("storing property state", append(log, "error", err)...)
		return true
	}
	c.logger.Debug("property state stored", append(log, "value", msg.Value)...)
	return true
}
