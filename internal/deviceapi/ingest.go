package deviceapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hub/internal/exchange"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/mqtt"
)

// StateMessage is published by a bridge when a device reports values or
// changes connection state.
// Topic: graylogic/state/{protocol}/{device_id}
type StateMessage struct {
	DeviceID  string    `json:"device_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Connection is an optional device connection state, for example
	// "connected" or "lost".
	Connection string `json:"connection,omitempty"`

	// ChannelID and Properties carry reported channel property values keyed
	// by property identifier.
	ChannelID  string         `json:"channel_id,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Ingest turns bridge state reports into store messages on the exchange.
type Ingest struct {
	broker Broker
	queue  exchange.Queue
	source string
	qos    byte
	logger Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewIngest creates an ingest that enqueues onto queue.
func NewIngest(broker Broker, queue exchange.Queue, source string, qos byte) *Ingest {
	return &Ingest{broker: broker, queue: queue, source: source, qos: qos, logger: noopLogger{}}
}

// SetLogger sets the logger for the ingest.
func (in *Ingest) SetLogger(logger Logger) {
	in.logger = logger
}

// Start subscribes to the state topics of every bridge. Messages are
// enqueued with ctx.
func (in *Ingest) Start(ctx context.Context) error {
	in.mu.Lock()
	in.ctx = ctx
	in.mu.Unlock()
	if err := in.broker.Subscribe(mqtt.Topics{}.AllBridgeStates(), in.qos, in.handleState); err != nil {
		return fmt.Errorf("subscribing to bridge states: %w", err)
	}
	return nil
}

// Stop unsubscribes from the state topics.
func (in *Ingest) Stop() error {
	return in.broker.Unsubscribe(mqtt.Topics{}.AllBridgeStates())
}

func (in *Ingest) handleState(topic string, payload []byte) error {
	var msg StateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		in.logger.Warn("malformed state report", "topic", topic, "error", err)
		return fmt.Errorf("decoding state report on %s: %w", topic, err)
	}
	if msg.DeviceID == "" {
		msg.DeviceID = deviceFromTopic(topic)
	}
	if msg.DeviceID == "" {
		return fmt.Errorf("%w: no device in state report on %s", ErrInvalidReport, topic)
	}

	envs, err := in.envelopes(&msg)
	if err != nil {
		in.logger.Warn("unusable state report", "topic", topic, "error", err)
		return err
	}

	in.mu.Lock()
	ctx := in.ctx
	in.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, env := range envs {
		if err := in.queue.Append(ctx, env); err != nil {
			errs = append(errs, fmt.Errorf("enqueueing %s: %w", env.RoutingKey, err))
		}
	}
	in.logger.Debug("state report enqueued", "device", msg.DeviceID, "channel", msg.ChannelID, "messages", len(envs))
	return errors.Join(errs...)
}

// envelopes builds the connection message first so a reconnect is stored
// before the values that came with it.
func (in *Ingest) envelopes(msg *StateMessage) ([]exchange.Envelope, error) {
	var out []exchange.Envelope
	if msg.Connection != "" {
		env, err := exchange.NewEnvelope(in.source, exchange.StoreDeviceConnectionState, exchange.DeviceConnectionState{
			DeviceID: msg.DeviceID,
			State:    msg.Connection,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}

	if len(msg.Properties) > 0 && msg.ChannelID == "" {
		return nil, fmt.Errorf("%w: properties without channel_id", ErrInvalidReport)
	}
	identifiers := make([]string, 0, len(msg.Properties))
	for id := range msg.Properties {
		identifiers = append(identifiers, id)
	}
	sort.Strings(identifiers)
	for _, id := range identifiers {
		env, err := exchange.NewEnvelope(in.source, exchange.StoreChannelPropertyState, exchange.ChannelPropertyState{
			DeviceID:   msg.DeviceID,
			ChannelID:  msg.ChannelID,
			Identifier: id,
			Value:      msg.Properties[id],
		})
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

// deviceFromTopic returns the last segment of graylogic/state/{protocol}/{device}.
func deviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		return ""
	}
	return parts[3]
}
