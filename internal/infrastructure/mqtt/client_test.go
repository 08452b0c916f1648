package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/config"
)

// testConfig points at a local Mosquitto. Tests that need the broker skip
// when it is not running.
func testConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func connectOrSkip(t *testing.T, clientID string) *Client {
	t.Helper()
	c, err := Connect(testConfig(clientID))
	if err != nil {
		t.Skipf("broker not available: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig("hub-opts")
	cfg.Broker.TLS = true
	cfg.Auth = config.MQTTAuthConfig{Username: "hub", Password: "secret"}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [ssl://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != "hub-opts" {
		t.Errorf("ClientID = %q, want hub-opts", opts.ClientID)
	}
	if opts.Username != "hub" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want hub/secret", opts.Username, opts.Password)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig = nil, want TLS enabled")
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Error("expected auto-reconnect with a clean session")
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
	}
}

func TestBuildClientOptions_Anonymous(t *testing.T) {
	opts := buildClientOptions(testConfig("hub-anon"))

	if opts.Servers[0].Scheme != "tcp" {
		t.Errorf("scheme = %q, want tcp", opts.Servers[0].Scheme)
	}
	if opts.Username != "" {
		t.Errorf("Username = %q, want empty", opts.Username)
	}
	if opts.TLSConfig != nil {
		t.Error("TLSConfig set without TLS")
	}
}

func TestStatusPayload(t *testing.T) {
	var msg StatusMessage
	if err := json.Unmarshal(statusPayload("hub-1", statusOffline, reasonShutdown), &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if msg.Status != "offline" || msg.ClientID != "hub-1" || msg.Reason != "graceful_shutdown" {
		t.Errorf("status = %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}

	// Online announcements carry no reason.
	var raw map[string]any
	if err := json.Unmarshal(statusPayload("hub-1", statusOnline, ""), &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := raw["reason"]; ok {
		t.Errorf("online payload has reason: %v", raw)
	}
}

func TestDisconnectedClient(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	noop := func(string, []byte) error { return nil }

	if c.IsConnected() {
		t.Error("IsConnected() = true for a client that never connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 1, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("graylogic/x", nil, 3, false), ErrInvalidQoS},
		{"publish oversized", c.Publish("graylogic/x", make([]byte, maxPayloadSize+1), 1, false), ErrPublishFailed},
		{"publish", c.Publish("graylogic/x", []byte("{}"), 1, false), ErrNotConnected},
		{"subscribe empty topic", c.Subscribe("", 1, noop), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe("graylogic/x", 5, noop), ErrInvalidQoS},
		{"subscribe nil handler", c.Subscribe("graylogic/x", 1, nil), ErrSubscribeFailed},
		{"subscribe", c.Subscribe("graylogic/x", 1, noop), ErrNotConnected},
		{"unsubscribe empty topic", c.Unsubscribe(""), ErrInvalidTopic},
		{"unsubscribe", c.Unsubscribe("graylogic/x"), ErrNotConnected},
		{"health", c.HealthCheck(context.Background()), ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if n := c.SubscriptionCount(); n != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", n)
	}
}

type fakeMessage struct {
	pahomqtt.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

type countingLogger struct {
	errors atomic.Int32
	warns  atomic.Int32
}

func (l *countingLogger) Error(string, ...any) { l.errors.Add(1) }
func (l *countingLogger) Warn(string, ...any)  { l.warns.Add(1) }

func TestWrapHandler(t *testing.T) {
	c := &Client{}
	logger := &countingLogger{}
	c.SetLogger(logger)

	var got string
	c.wrapHandler(func(topic string, payload []byte) error {
		got = topic + "=" + string(payload)
		return nil
	})(nil, fakeMessage{topic: "graylogic/a", payload: []byte("1")})
	if got != "graylogic/a=1" {
		t.Errorf("handler saw %q", got)
	}

	c.wrapHandler(func(string, []byte) error { return errors.New("bad payload") })(nil, fakeMessage{topic: "graylogic/b"})
	if logger.warns.Load() != 1 {
		t.Errorf("warns = %d, want 1", logger.warns.Load())
	}

	c.wrapHandler(func(string, []byte) error { panic("boom") })(nil, fakeMessage{topic: "graylogic/c"})
	if logger.errors.Load() != 1 {
		t.Errorf("errors = %d, want 1 after recovered panic", logger.errors.Load())
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig("hub-refused")
	cfg.Broker.Port = 19998

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectAndHealth(t *testing.T) {
	c := connectOrSkip(t, "hub-test-health")

	if !c.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestPublishSubscribe(t *testing.T) {
	pub := connectOrSkip(t, "hub-test-pub")
	sub := connectOrSkip(t, "hub-test-sub")

	received := make(chan string, 4)
	err := sub.Subscribe(Topics{}.AllExchange(), 1, func(topic string, payload []byte) error {
		received <- topic + " " + string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if n := sub.SubscriptionCount(); n != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", n)
	}
	time.Sleep(100 * time.Millisecond)

	topic := Topics{}.Exchange("store.device.connection_state")
	if err := pub.Publish(topic, []byte(`{"value":"ok"}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if want := topic + ` {"value":"ok"}`; got != want {
			t.Errorf("received %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for exchange message")
	}

	if err := sub.Unsubscribe(Topics{}.AllExchange()); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if n := sub.SubscriptionCount(); n != 0 {
		t.Errorf("SubscriptionCount() after unsubscribe = %d, want 0", n)
	}
}

func TestSystemStatusRetained(t *testing.T) {
	connectOrSkip(t, "hub-test-status")
	watcher := connectOrSkip(t, "hub-test-status-watch")

	statuses := make(chan StatusMessage, 8)
	err := watcher.Subscribe(Topics{}.SystemStatus(), 1, func(_ string, payload []byte) error {
		var msg StatusMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return err
		}
		statuses <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-statuses:
			// Older retained statuses may arrive before the online announcement.
			if msg.Status == statusOnline && (msg.ClientID == "hub-test-status" || msg.ClientID == "hub-test-status-watch") {
				return
			}
		case <-deadline:
			t.Fatal("no retained online status received")
		}
	}
}
