package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent(t *testing.T) {
	aggregateID := uuid.New()

	before := time.Now().UTC()
	event := NewBaseEvent("VerdictComputed", aggregateID, "Verdict", []byte(`{"a":1}`))
	after := time.Now().UTC()

	assert.NotEqual(t, uuid.Nil, event.EventID())
	assert.Equal(t, "VerdictComputed", event.EventType())
	assert.Equal(t, aggregateID, event.AggregateID())
	assert.Equal(t, "Verdict", event.AggregateType())
	assert.JSONEq(t, `{"a":1}`, string(event.Payload()))
	assert.False(t, event.OccurredAt().Before(before))
	assert.False(t, event.OccurredAt().After(after))
}

func TestBaseEventImplementsDomainEvent(t *testing.T) {
	var _ DomainEvent = BaseEvent{}
}

func TestNewJSONEvent(t *testing.T) {
	event := NewJSONEvent("FeedbackSubmitted", uuid.New(), "Feedback", map[string]any{"url": "https://a.test/"})

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(event.Payload(), &parsed))
	assert.Equal(t, "https://a.test/", parsed["url"])
}

func TestNewJSONEvent_UnmarshalablePayload(t *testing.T) {
	event := NewJSONEvent("Broken", uuid.New(), "Thing", make(chan int))
	assert.Equal(t, "{}", string(event.Payload()))
}

func TestToEnvelope(t *testing.T) {
	event := NewBaseEvent("VerdictComputed", uuid.New(), "Verdict", nil)

	env := ToEnvelope(event)
	assert.Equal(t, event.EventID(), env.ID)
	assert.Equal(t, "VerdictComputed", env.Type)
	assert.Equal(t, event.AggregateID(), env.AggregateID)
	assert.Equal(t, "{}", string(env.Payload))

	b, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, env.ID, decoded.ID)
	assert.Equal(t, env.Type, decoded.Type)
	assert.True(t, env.OccurredAt.Equal(decoded.OccurredAt))
}
