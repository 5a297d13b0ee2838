package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_PopulatesEnvelope(t *testing.T) {
	event, err := NewEvent("product.updated", "p1", "product", "catalog-service",
		map[string]string{"id": "p1"})
	require.NoError(t, err)

	assert.Equal(t, "product.updated", event.EventType)
	assert.Equal(t, "p1", event.AggregateID)
	assert.Equal(t, "product", event.AggregateType)
	assert.Equal(t, "catalog-service", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Minute)

	_, err = uuid.Parse(event.EventID)
	assert.NoError(t, err, "event ID should be a UUID")

	var data map[string]string
	require.NoError(t, json.Unmarshal(event.Data, &data))
	assert.Equal(t, "p1", data["id"])
}

func TestNewEvent_UnmarshalableDataFails(t *testing.T) {
	_, err := NewEvent("product.updated", "p1", "product", "catalog-service", make(chan int))
	assert.Error(t, err)
}

func TestUnmarshalEvent_RoundTrip(t *testing.T) {
	event, err := NewEvent("product.deleted", "p2", "product", "catalog-service",
		map[string]string{"id": "p2"})
	require.NoError(t, err)

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, event.EventType, decoded.EventType)
	assert.Equal(t, event.AggregateID, decoded.AggregateID)
	assert.JSONEq(t, string(event.Data), string(decoded.Data))
}

func TestUnmarshalEvent_MalformedJSON(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{not an envelope"))
	assert.Error(t, err)
}
