package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/mqtt"
)

// Broker is the part of the MQTT client the queue uses.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// MQTTQueue carries envelopes over the broker. Each routing key has its own
// topic; messages received on any exchange topic are validated and
// dispatched.
type MQTTQueue struct {
	broker     Broker
	dispatcher *Dispatcher
	validator  *Validator
	qos        byte
	logger     Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewMQTTQueue creates a queue over broker.
func NewMQTTQueue(broker Broker, d *Dispatcher, v *Validator, qos byte) *MQTTQueue {
	return &MQTTQueue{
		broker:     broker,
		dispatcher: d,
		validator:  v,
		qos:        qos,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the queue.
func (q *MQTTQueue) SetLogger(logger Logger) {
	q.logger = logger
}

// Append validates env and publishes it on its routing key topic.
func (q *MQTTQueue) Append(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("appending %s: %w", env.RoutingKey, err)
	}
	if err := q.validator.Check(env); err != nil {
		return err
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding %s envelope: %w", env.RoutingKey, err)
	}
	topic := mqtt.Topics{}.Exchange(string(env.RoutingKey))
	if err := q.broker.Publish(topic, payload, q.qos, false); err != nil {
		return fmt.Errorf("publishing %s: %w", env.RoutingKey, err)
	}
	q.logger.Debug("message published", "type", env.RoutingKey, "source", env.Source, "id", env.ID, "topic", topic)
	return nil
}

// Start subscribes to every exchange topic. Consumers run with a context
// derived from ctx that is not cancelled with it.
func (q *MQTTQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	q.ctx = context.WithoutCancel(ctx)
	q.mu.Unlock()

	if err := q.broker.Subscribe(mqtt.Topics{}.AllExchange(), q.qos, q.handle); err != nil {
		return fmt.Errorf("subscribing to exchange: %w", err)
	}
	return nil
}

// Stop unsubscribes from the exchange topics.
func (q *MQTTQueue) Stop() error {
	return q.broker.Unsubscribe(mqtt.Topics{}.AllExchange())
}

func (q *MQTTQueue) handle(topic string, payload []byte) error {
	env, err := q.validator.Parse(payload)
	if err != nil {
		q.logger.Warn("rejected exchange message", "topic", topic, "error", err)
		return err
	}

	key := topic[strings.LastIndex(topic, "/")+1:]
	if RoutingKey(key) != env.RoutingKey {
		q.logger.Warn("routing key does not match topic", "topic", topic, "type", env.RoutingKey)
		return fmt.Errorf("%w: routing key %s on topic %s", ErrInvalidMessage, env.RoutingKey, topic)
	}

	q.mu.Lock()
	ctx := q.ctx
	q.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	q.dispatcher.Dispatch(ctx, env)
	return nil
}
