package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurements written by the hub.
const (
	MeasurementPropertyValues  = "property_values"
	MeasurementConnectionState = "connection_state"
)

// PropertyTags identifies the property a value belongs to.
type PropertyTags struct {
	Entity     string
	OwnerID    string
	PropertyID string
	Identifier string
}

func (t PropertyTags) tags() map[string]string {
	return map[string]string{
		"entity":      t.Entity,
		"owner_id":    t.OwnerID,
		"property_id": t.PropertyID,
		"identifier":  t.Identifier,
	}
}

// WritePropertyValue queues the actual value of a property. Values that
// are not numbers or bools are dropped and false is returned.
func (c *Client) WritePropertyValue(tags PropertyTags, value any, at time.Time) bool {
	fields, ok := PropertyFields(value)
	if !ok || !c.IsConnected() {
		return false
	}
	c.writeAPI.WritePoint(write.NewPoint(MeasurementPropertyValues, tags.tags(), fields, at))
	return true
}

// WriteConnectionState queues a connection transition of a device or
// connector.
func (c *Client) WriteConnectionState(entity, ownerID, state string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementConnectionState,
		map[string]string{"entity": entity, "owner_id": ownerID},
		map[string]any{"state": state},
		at,
	))
}

// PropertyFields converts a normalized property value to point fields.
// Numbers become a float "value"; bools become "value" 0 or 1 plus the
// original under "bool".
func PropertyFields(value any) (map[string]any, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint64:
		f = float64(v)
	case bool:
		if v {
			f = 1
		}
		return map[string]any{"value": f, "bool": v}, true
	default:
		return nil, false
	}
	return map[string]any{"value": f}, true
}
