package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/mqtt"
)

// loopback delivers every publish to the matching subscribers synchronously.
type loopback struct {
	mu        sync.Mutex
	published []string
	handlers  map[string]mqtt.MessageHandler
}

func newLoopback() *loopback {
	return &loopback{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *loopback) Publish(topic string, payload []byte, _ byte, _ bool) error {
	b.mu.Lock()
	b.published = append(b.published, topic)
	var matched []mqtt.MessageHandler
	for pattern, h := range b.handlers {
		if topicMatches(pattern, topic) {
			matched = append(matched, h)
		}
	}
	b.mu.Unlock()

	for _, h := range matched {
		_ = h(topic, payload)
	}
	return nil
}

func (b *loopback) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *loopback) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
	return nil
}

// topicMatches supports the single-level wildcard only.
func topicMatches(pattern, topic string) bool {
	p := strings.Split(pattern, "/")
	s := strings.Split(topic, "/")
	if len(p) != len(s) {
		return false
	}
	for i := range p {
		if p[i] != "+" && p[i] != s[i] {
			return false
		}
	}
	return true
}

func TestMQTTQueueRoundTrip(t *testing.T) {
	ctx := context.Background()
	broker := newLoopback()
	d := NewDispatcher()
	rec := newRecorder(true, 1)
	d.Register(WriteThirdPartyDeviceState, rec)

	q := NewMQTTQueue(broker, d, newValidator(t), 1)
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	env := mustEnvelope(t, WriteThirdPartyDeviceState, WriteDeviceState{ConnectorID: "c", DeviceID: "d", ChannelID: "ch"})
	if err := q.Append(ctx, env); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	rec.wait(t)

	if want := "graylogic/hub/exchange/write.third_party_device.state"; broker.published[0] != want {
		t.Errorf("published topic = %q, want %q", broker.published[0], want)
	}
	if rec.got[0].ID != env.ID {
		t.Errorf("received id = %q, want %q", rec.got[0].ID, env.ID)
	}

	if err := q.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(broker.handlers) != 0 {
		t.Error("Stop() left the subscription in place")
	}
}

func TestMQTTQueueRejects(t *testing.T) {
	q := NewMQTTQueue(newLoopback(), NewDispatcher(), newValidator(t), 1)

	invalid := mustEnvelope(t, WriteSubDeviceState, map[string]string{"device_id": "d"})
	if err := q.Append(context.Background(), invalid); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("Append(invalid) error = %v, want ErrInvalidMessage", err)
	}

	env := mustEnvelope(t, StoreDeviceConnectionState, DeviceConnectionState{DeviceID: "d", State: "lost"})
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if err := q.handle(mqtt.Topics{}.Exchange(string(WriteSubDeviceState)), raw); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("handle(mismatched topic) error = %v, want ErrInvalidMessage", err)
	}
	if err := q.handle(mqtt.Topics{}.Exchange(string(StoreDeviceConnectionState)), []byte("{}")); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("handle(empty envelope) error = %v, want ErrInvalidMessage", err)
	}
}
