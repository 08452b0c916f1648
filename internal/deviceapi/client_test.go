package deviceapi

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/mqtt"
)

// fakeBridge answers every command with the configured acks.
type fakeBridge struct {
	mu       sync.Mutex
	handlers map[string]mqtt.MessageHandler
	commands []CommandMessage
	topics   []string
	answer   []AckStatus
}

func newFakeBridge(answer ...AckStatus) *fakeBridge {
	return &fakeBridge{handlers: make(map[string]mqtt.MessageHandler), answer: answer}
}

func (b *fakeBridge) Subscribe(topic string, _ byte, h mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = h
	return nil
}

func (b *fakeBridge) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
	return nil
}

func (b *fakeBridge) Publish(topic string, payload []byte, _ byte, _ bool) error {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return err
	}
	parts := strings.Split(topic, "/")
	protocol := parts[2]

	b.mu.Lock()
	b.commands = append(b.commands, cmd)
	b.topics = append(b.topics, topic)
	h := b.handlers[mqtt.Topics{}.AllBridgeAcks(protocol)]
	answer := b.answer
	b.mu.Unlock()

	go func() {
		for _, status := range answer {
			ack := AckMessage{CommandID: cmd.ID, DeviceID: cmd.DeviceID, Status: status, Protocol: protocol}
			if status == AckFailed {
				ack.Error = &AckError{Code: ErrCodeDeviceUnreachable, Message: "no route"}
			}
			raw, _ := json.Marshal(ack)
			_ = h(mqtt.Topics{}.BridgeAck(protocol, cmd.DeviceID), raw)
		}
	}()
	return nil
}

var ref = DeviceRef{Protocol: "panel", ConnectorID: "c", DeviceID: "dev-1", ChannelID: "ch-1"}

func startedClient(t *testing.T, b Broker, timeout time.Duration) *MQTTClient {
	t.Helper()
	c := NewMQTTClient(b, "hub-test", 1, timeout)
	if err := c.Start("panel"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return c
}

func TestSendStateAccepted(t *testing.T) {
	b := newFakeBridge(AckQueued, AckAccepted)
	c := startedClient(t, b, time.Second)

	ack, err := c.SendState(context.Background(), ref, Payload{"on": true}, "192.168.1.10", "secret")
	if err != nil {
		t.Fatalf("SendState() error = %v", err)
	}
	if ack.Status != AckAccepted {
		t.Errorf("ack status = %s, want accepted", ack.Status)
	}

	if want := "graylogic/command/panel/dev-1"; b.topics[0] != want {
		t.Errorf("command topic = %q, want %q", b.topics[0], want)
	}
	cmd := b.commands[0]
	if cmd.Command != CommandSetState || cmd.Address != "192.168.1.10" || cmd.AccessToken != "secret" || cmd.Source != "hub-test" {
		t.Errorf("command = %+v", cmd)
	}
	if cmd.Parameters["on"] != true {
		t.Errorf("parameters = %v, want on=true", cmd.Parameters)
	}
}

func TestSendStateFailedIsCallError(t *testing.T) {
	c := startedClient(t, newFakeBridge(AckFailed), time.Second)

	_, err := c.SendState(context.Background(), ref, Payload{"on": false}, "10.0.0.2", "t")
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("SendState() error = %v, want *CallError", err)
	}
	if callErr.Request.DeviceID != "dev-1" || callErr.Response.Error.Code != ErrCodeDeviceUnreachable {
		t.Errorf("CallError = %+v", callErr)
	}
	if !strings.Contains(err.Error(), "DEVICE_UNREACHABLE") {
		t.Errorf("Error() = %q, want the ack error code", err.Error())
	}
}

func TestSendStateTimeout(t *testing.T) {
	c := startedClient(t, newFakeBridge(), 50*time.Millisecond)

	_, err := c.SendState(context.Background(), ref, Payload{"on": true}, "10.0.0.2", "t")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("SendState() error = %v, want ErrTimeout", err)
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		t.Error("timeout must not be a CallError")
	}
	if len(c.pending) != 0 {
		t.Errorf("pending = %d, want 0", len(c.pending))
	}
}

func TestSendStateNotStarted(t *testing.T) {
	c := NewMQTTClient(newFakeBridge(AckAccepted), "hub", 1, 0)
	if _, err := c.SendState(context.Background(), ref, Payload{}, "a", "b"); !errors.Is(err, ErrNotStarted) {
		t.Errorf("SendState() error = %v, want ErrNotStarted", err)
	}

	if err := c.Start("tv"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := c.SendState(context.Background(), ref, Payload{}, "a", "b"); !errors.Is(err, ErrNotStarted) {
		t.Errorf("SendState(panel) on tv client error = %v, want ErrNotStarted", err)
	}
	if err := c.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestHandleAckIgnoresUnknown(t *testing.T) {
	c := NewMQTTClient(newFakeBridge(), "hub", 1, 0)
	if err := c.handleAck("graylogic/ack/panel/x", []byte(`{"command_id":"nope","status":"accepted"}`)); err != nil {
		t.Errorf("handleAck(unknown) error = %v", err)
	}
	if err := c.handleAck("graylogic/ack/panel/x", []byte(`{`)); err == nil {
		t.Error("handleAck(malformed) error = nil")
	}
}
