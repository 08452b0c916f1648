package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-hub/internal/connection"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hub/internal/property"
	"github.com/nerrad567/gray-logic-hub/internal/state"
	"github.com/nerrad567/gray-logic-hub/internal/store"
)

// Logger defines the logging interface used by the recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// PointWriter stores time-series points.
type PointWriter interface {
	WritePropertyValue(tags influxdb.PropertyTags, value any, at time.Time) bool
	WriteConnectionState(entity, ownerID, state string, at time.Time)
}

// HistoryAppender stores property state history.
type HistoryAppender interface {
	Append(ctx context.Context, e store.HistoryEntry) error
}

// Publisher publishes MQTT messages.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Sinks are the optional outputs of a Recorder.
type Sinks struct {
	Points  PointWriter
	History HistoryAppender
	MQTT    Publisher
	QoS     byte
}

// Recorder forwards state changes to its sinks.
type Recorder struct {
	sinks  Sinks
	logger Logger
	now    func() time.Time
}

// NewRecorder creates a recorder writing to sinks.
func NewRecorder(sinks Sinks) *Recorder {
	return &Recorder{sinks: sinks, logger: noopLogger{}, now: time.Now}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// propertyMessage is the retained payload of a property state topic.
type propertyMessage struct {
	PropertyID string    `json:"property_id"`
	Identifier string    `json:"identifier"`
	OwnerID    string    `json:"owner_id"`
	Value      any       `json:"value"`
	Expected   any       `json:"expected_value,omitempty"`
	Valid      bool      `json:"valid"`
	Pending    bool      `json:"pending"`
	Timestamp  time.Time `json:"timestamp"`
}

// connectionMessage is the retained payload of a connection state topic.
type connectionMessage struct {
	OwnerID   string           `json:"owner_id"`
	State     connection.State `json:"state"`
	Timestamp time.Time        `json:"timestamp"`
}

// Attach registers the recorder on every manager.
func (r *Recorder) Attach(managers ...*state.Manager) {
	for _, m := range managers {
		m.OnChange(r.PropertyHook(m))
	}
}

// PropertyHook returns the change hook for m.
func (r *Recorder) PropertyHook(m *state.Manager) state.ChangeHandler {
	return func(ctx context.Context, p property.Property, s *property.State) {
		r.propertyChanged(ctx, m, p, s)
	}
}

func (r *Recorder) propertyChanged(ctx context.Context, m *state.Manager, p property.Property, s *property.State) {
	d := p.Def()
	at := s.UpdatedAt
	if at.IsZero() {
		at = r.now()
	}

	if r.sinks.History != nil {
		err := r.sinks.History.Append(ctx, store.HistoryEntry{
			PropertyID:    s.PropertyID,
			Entity:        d.Entity,
			OwnerID:       d.OwnerID,
			ActualValue:   s.ActualValue,
			ExpectedValue: s.ExpectedValue,
			Valid:         s.Valid,
			RecordedAt:    at,
		})
		if err != nil {
			r.logger.Warn("recording property history", "property_id", s.PropertyID, "error", err)
		}
	}

	var value any
	if s.ActualValue != nil && s.Valid {
		v, err := m.NormalizePublishValue(ctx, p, s.ActualValue)
		if err != nil {
			r.logger.Warn("normalizing published value", "property_id", d.ID, "value", s.ActualValue, "error", err)
		} else {
			value = v
		}
	}

	if r.sinks.Points != nil && value != nil {
		written := r.sinks.Points.WritePropertyValue(influxdb.PropertyTags{
			Entity:     string(d.Entity),
			OwnerID:    d.OwnerID,
			PropertyID: d.ID,
			Identifier: d.Identifier,
		}, value, at)
		if !written {
			r.logger.Debug("property value not written", "property_id", d.ID, "value", value)
		}
	}

	if r.sinks.MQTT != nil {
		r.publish(mqtt.Topics{}.PropertyState(string(d.Entity), d.ID), propertyMessage{
			PropertyID: d.ID,
			Identifier: d.Identifier,
			OwnerID:    d.OwnerID,
			Value:      value,
			Expected:   s.ExpectedValue,
			Valid:      s.Valid,
			Pending:    s.IsPending(),
			Timestamp:  at,
		})
	}
}

// ConnectionChanged records a connection transition. It has the shape of a
// connection utility transition hook.
func (r *Recorder) ConnectionChanged(_ context.Context, entity property.EntityKind, ownerID string, s connection.State) {
	at := r.now()
	if r.sinks.Points != nil {
		r.sinks.Points.WriteConnectionState(string(entity), ownerID, string(s), at)
	}
	if r.sinks.MQTT != nil {
		r.publish(mqtt.Topics{}.ConnectionState(string(entity), ownerID), connectionMessage{
			OwnerID:   ownerID,
			State:     s,
			Timestamp: at,
		})
	}
}

func (r *Recorder) publish(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn("encoding telemetry message", "topic", topic, "error", err)
		return
	}
	if err := r.sinks.MQTT.Publish(topic, payload, r.sinks.QoS, true); err != nil {
		r.logger.Warn("publishing telemetry message", "topic", topic, "error", err)
	}
}
