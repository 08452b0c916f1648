package exchange

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is one message on the exchange.
type Envelope struct {
	ID         string          `json:"id,omitempty"`
	RoutingKey RoutingKey      `json:"routing_key"`
	Source     string          `json:"source"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope encodes data into an envelope for key.
func NewEnvelope(source string, key RoutingKey, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s data: %w", key, err)
	}
	return Envelope{
		ID:         uuid.NewString(),
		RoutingKey: key,
		Source:     source,
		Timestamp:  time.Now().UTC(),
		Data:       raw,
	}, nil
}

// Decode unmarshals the envelope data into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: decoding %s data: %w", ErrInvalidMessage, e.RoutingKey, err)
	}
	return nil
}
