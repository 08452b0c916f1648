package deviceapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/mqtt"
)

const defaultTimeout = 10 * time.Second

// DeviceRef names the device and channel a command is for.
type DeviceRef struct {
	Protocol    string
	ConnectorID string
	DeviceID    string
	ChannelID   string
}

// Client sends a state payload to a device.
type Client interface {
	SendState(ctx context.Context, ref DeviceRef, payload Payload, address, credential string) (*AckMessage, error)
}

// Broker is the part of the MQTT client MQTTClient uses.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger defines the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// MQTTClient talks to device bridges over command/ack topics.
//
// Thread Safety: all methods are safe for concurrent use.
type MQTTClient struct {
	broker  Broker
	source  string
	qos     byte
	timeout time.Duration
	logger  Logger

	mu        sync.Mutex
	pending   map[string]chan AckMessage
	protocols []string
}

// NewMQTTClient creates a client. A zero timeout uses ten seconds.
func NewMQTTClient(broker Broker, source string, qos byte, timeout time.Duration) *MQTTClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &MQTTClient{
		broker:  broker,
		source:  source,
		qos:     qos,
		timeout: timeout,
		logger:  noopLogger{},
		pending: make(map[string]chan AckMessage),
	}
}

// SetLogger sets the logger for the client.
func (c *MQTTClient) SetLogger(logger Logger) {
	c.logger = logger
}

// Start subscribes to the ack topics of every protocol.
func (c *MQTTClient) Start(protocols ...string) error {
	for _, p := range protocols {
		if err := c.broker.Subscribe(mqtt.Topics{}.AllBridgeAcks(p), c.qos, c.handleAck); err != nil {
			return fmt.Errorf("subscribing to %s acks: %w", p, err)
		}
		c.mu.Lock()
		c.protocols = append(c.protocols, p)
		c.mu.Unlock()
	}
	return nil
}

// Stop unsubscribes from the ack topics.
func (c *MQTTClient) Stop() error {
	c.mu.Lock()
	protocols := c.protocols
	c.protocols = nil
	c.mu.Unlock()

	var firstErr error
	for _, p := range protocols {
		if err := c.broker.Unsubscribe(mqtt.Topics{}.AllBridgeAcks(p)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *MQTTClient) started(protocol string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.protocols {
		if p == protocol {
			return true
		}
	}
	return false
}

// SendState publishes a set_state command and waits for the final ack.
// Failed and timeout acks return a *CallError; no ack before the timeout
// returns ErrTimeout.
func (c *MQTTClient) SendState(ctx context.Context, ref DeviceRef, payload Payload, address, credential string) (*AckMessage, error) {
	if !c.started(ref.Protocol) {
		return nil, fmt.Errorf("%w: protocol %q", ErrNotStarted, ref.Protocol)
	}

	cmd := &CommandMessage{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		DeviceID:    ref.DeviceID,
		ChannelID:   ref.ChannelID,
		Command:     CommandSetState,
		Parameters:  payload,
		Address:     address,
		AccessToken: credential,
		Source:      c.source,
	}
	raw, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encoding command: %w", err)
	}

	acks := make(chan AckMessage, 1)
	c.mu.Lock()
	c.pending[cmd.ID] = acks
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, cmd.ID)
		c.mu.Unlock()
	}()

	topic := mqtt.Topics{}.BridgeCommand(ref.Protocol, ref.DeviceID)
	if err := c.broker.Publish(topic, raw, c.qos, false); err != nil {
		return nil, fmt.Errorf("publishing command %s: %w", cmd.ID, err)
	}
	c.logger.Debug("command sent", "command_id", cmd.ID, "device", ref.DeviceID, "channel", ref.ChannelID, "topic", topic)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-acks:
			if !ack.Status.Final() {
				continue
			}
			if ack.Status != AckAccepted {
				return &ack, &CallError{Request: cmd, Response: &ack}
			}
			return &ack, nil
		case <-timer.C:
			return nil, fmt.Errorf("%w: command %s after %v", ErrTimeout, cmd.ID, c.timeout)
		case <-ctx.Done():
			return nil, fmt.Errorf("command %s: %w", cmd.ID, ctx.Err())
		}
	}
}

func (c *MQTTClient) handleAck(topic string, payload []byte) error {
	var ack AckMessage
	if err := json.Unmarshal(payload, &ack); err != nil {
		c.logger.Warn("malformed ack", "topic", topic, "error", err)
		return fmt.Errorf("decoding ack on %s: %w", topic, err)
	}

	c.mu.Lock()
	ch, ok := c.pending[ack.CommandID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("ack for unknown command", "command_id", ack.CommandID, "topic", topic)
		return nil
	}

	// Keep only the latest ack.
	for {
		select {
		case ch <- ack:
			return nil
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
