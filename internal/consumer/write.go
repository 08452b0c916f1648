package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-hub/internal/connection"
	"github.com/nerrad567/gray-logic-hub/internal/device"
	"github.com/nerrad567/gray-logic-hub/internal/deviceapi"
	"github.com/nerrad567/gray-logic-hub/internal/exchange"
	"github.com/nerrad567/gray-logic-hub/internal/property"
	"github.com/nerrad567/gray-logic-hub/internal/state"
)

// WriteDeviceState sends the state of one channel to a device of a single
// category.
type WriteDeviceState struct {
	category  device.Category
	catalogue Catalogue
	channels  *state.Async
	client    deviceapi.Client
	queue     exchange.Queue
	source    string
	logger    Logger
}

// NewWriteDeviceState creates a writer for devices of category. Failures are
// reported on queue under source.
func NewWriteDeviceState(category device.Category, catalogue Catalogue, channels *state.Async, client deviceapi.Client, queue exchange.Queue, source string) *WriteDeviceState {
	return &WriteDeviceState{
		category:  category,
		catalogue: catalogue,
		channels:  channels,
		client:    client,
		queue:     queue,
		source:    source,
		logger:    noopLogger{},
	}
}

// NewSubDeviceWriter creates the writer for gateway sub-devices.
func NewSubDeviceWriter(catalogue Catalogue, channels *state.Async, client deviceapi.Client, queue exchange.Queue, source string) *WriteDeviceState {
	return NewWriteDeviceState(device.CategorySubDevice, catalogue, channels, client, queue, source)
}

// NewThirdPartyWriter creates the writer for bridged third-party devices.
func NewThirdPartyWriter(catalogue Catalogue, channels *state.Async, client deviceapi.Client, queue exchange.Queue, source string) *WriteDeviceState {
	return NewWriteDeviceState(device.CategoryThirdParty, catalogue, channels, client, queue, source)
}

// SetLogger sets the logger for the consumer.
func (w *WriteDeviceState) SetLogger(logger Logger) {
	w.logger = logger
}

// RoutingKey returns the key this writer consumes.
func (w *WriteDeviceState) RoutingKey() exchange.RoutingKey {
	if w.category == device.CategoryThirdParty {
		return exchange.WriteThirdPartyDeviceState
	}
	return exchange.WriteSubDeviceState
}

// Registration returns the writer paired with its routing key.
func (w *WriteDeviceState) Registration() Registration {
	return Registration{Key: w.RoutingKey(), Consumer: w}
}

// target is the resolved entity chain of one message.
type target struct {
	connector *device.Connector
	device    *device.Device
	channel   *device.Channel
}

// Consume handles one write message. It always reports true.
func (w *WriteDeviceState) Consume(ctx context.Context, env exchange.Envelope) bool {
	var msg exchange.WriteDeviceState
	log := []any{"source", env.Source, "type", env.RoutingKey}
	if err := env.Decode(&msg); err != nil {
		w.logger.Error("write message rejected", append(log, "error", err)...)
		return true
	}
	log = append(log, "connector", msg.ConnectorID, "device", msg.DeviceID, "channel", msg.ChannelID)

	t, err := w.resolve(ctx, msg)
	if err != nil {
		w.logger.Warn("write target not resolved", append(log, "error", err)...)
		return true
	}

	ep, err := w.catalogue.Reachability(ctx, t.device)
	if err != nil {
		w.logger.Error("device not reachable", append(log, "error", err)...)
		w.report(ctx, t.device, connection.Alert, log)
		return true
	}

	if !t.channel.Capability.Writable() {
		w.logger.Warn("channel is not writable", append(log, "permission", t.channel.Capability.Permission)...)
		return true
	}

	props, err := w.channels.Manager().Properties(ctx, t.channel.ID)
	if err != nil {
		w.logger.Error("loading channel properties", append(log, "error", err)...)
		return true
	}

	payload, err := w.buildPayload(ctx, t.channel, props)
	if err != nil {
		w.logger.Warn("no payload for channel", append(log, "error", err)...)
		return true
	}
	log = append(log, "payload", payload)

	ref := deviceapi.DeviceRef{
		Protocol:    string(t.connector.Protocol),
		ConnectorID: t.connector.ID,
		DeviceID:    t.device.ID,
		ChannelID:   t.channel.ID,
	}
	call := state.Go(ctx, func(ctx context.Context) (*deviceapi.AckMessage, error) {
		return w.client.SendState(ctx, ref, payload, ep.IPAddress, ep.AccessToken)
	})
	_, err = call.Await(ctx)

	settable := settableDynamic(props)
	if err == nil {
		w.confirm(ctx, settable, log)
		w.logger.Info("device state written", log...)
		return true
	}

	if _, ferr := w.channels.SetValidState(ctx, false, settable...).Await(ctx); ferr != nil {
		w.logger.Error("invalidating channel properties", append(log, "error", ferr)...)
	}

	var callErr *deviceapi.CallError
	if errors.As(err, &callErr) {
		w.logger.Error("device rejected state", append(log, "error", err, "request", callErr.Request, "response", callErr.Response)...)
		w.report(ctx, t.device, connection.Disconnected, log)
		return true
	}
	w.logger.Error("device call failed", append(log, "error", err)...)
	w.report(ctx, t.device, connection.Lost, log)
	return true
}

func (w *WriteDeviceState) resolve(ctx context.Context, msg exchange.WriteDeviceState) (*target, error) {
	conn, err := w.catalogue.GetConnector(ctx, msg.ConnectorID)
	if err != nil {
		return nil, err
	}
	dev, err := w.catalogue.GetDevice(ctx, msg.DeviceID)
	if err != nil {
		return nil, err
	}
	if dev.ConnectorID != conn.ID {
		return nil, fmt.Errorf("%w: device %s is not on connector %s", device.ErrDeviceNotFound, dev.ID, conn.ID)
	}
	if dev.Category != w.category {
		return nil, fmt.Errorf("%w: device %s is %s, want %s", device.ErrInvalidCategory, dev.ID, dev.Category, w.category)
	}
	ch, err := w.catalogue.GetChannel(ctx, msg.ChannelID)
	if err != nil {
		return nil, err
	}
	if ch.DeviceID != dev.ID {
		return nil, fmt.Errorf("%w: channel %s is not on device %s", device.ErrChannelNotFound, ch.ID, dev.ID)
	}
	return &target{connector: conn, device: dev, channel: ch}, nil
}

// buildPayload reads the device-native state of every property of ch. A
// pending expected value is sent in preference to the actual value.
func (w *WriteDeviceState) buildPayload(ctx context.Context, ch *device.Channel, props []property.Property) (deviceapi.Payload, error) {
	futures := make([]*state.Future[*property.State], len(props))
	for i, p := range props {
		futures[i] = w.channels.Get(ctx, p)
	}

	values := make([]deviceapi.PropertyValue, 0, len(props))
	for i, f := range futures {
		s, err := f.Await(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", props[i].Def().ID, err)
		}
		if s == nil {
			continue
		}
		v := deviceapi.PropertyValue{Identifier: props[i].Def().Identifier}
		if s.ExpectedValue != nil {
			v.Value, v.Valid = s.ExpectedValue, true
		} else {
			v.Value, v.Valid = s.ActualValue, s.Valid
		}
		values = append(values, v)
	}
	return deviceapi.BuildPayload(ch.Capability.Type, values)
}

// confirm marks every settable property that still has an expected value as
// valid.
func (w *WriteDeviceState) confirm(ctx context.Context, settable []property.Property, log []any) {
	var waiting []property.Property
	for _, p := range settable {
		s, err := w.channels.Get(ctx, p).Await(ctx)
		if err != nil {
			w.logger.Error("reloading property state", append(log, "property_id", p.Def().ID, "error", err)...)
			continue
		}
		if s != nil && s.ExpectedValue != nil {
			waiting = append(waiting, p)
		}
	}
	if len(waiting) == 0 {
		return
	}
	if _, err := w.channels.SetValidState(ctx, true, waiting...).Await(ctx); err != nil {
		w.logger.Error("confirming channel properties", append(log, "error", err)...)
	}
}

func (w *WriteDeviceState) report(ctx context.Context, d *device.Device, s connection.State, log []any) {
	if err := enqueueConnectionState(ctx, w.queue, w.source, d, s); err != nil {
		w.logger.Error("enqueueing connection state", append(log, "state", s, "error", err)...)
	}
}

func settableDynamic(props []property.Property) []property.Property {
	out := make([]property.Property, 0, len(props))
	for _, p := range props {
		if _, ok := p.(*property.Dynamic); ok && p.Def().Settable {
			out = append(out, p)
		}
	}
	return out
}
