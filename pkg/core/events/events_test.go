package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewire/gateway/pkg/core"
)

func TestEventTypeFlags(t *testing.T) {
	flags := FlagReady | FlagDispatch

	assert.True(t, flags.Contains(EventTypeReady))
	assert.True(t, flags.Contains(EventTypeDispatch))
	assert.False(t, flags.Contains(EventTypeResumed))
	assert.False(t, flags.Contains(EventTypeUnknown))
	assert.False(t, FlagsAll.Contains(EventTypeUnknown))

	assert.True(t, FlagsDefault.Contains(EventTypeShardConnected))
	assert.False(t, FlagsDefault.Contains(EventTypeShardPayload))
	assert.True(t, FlagsAll.Contains(EventTypeShardPayload))
}

func TestEveryEventTypeHasDistinctFlag(t *testing.T) {
	seen := make(map[EventTypeFlags]EventType)
	for eventType, flag := range eventTypeFlags {
		other, dup := seen[flag]
		require.False(t, dup, "%s and %s share a flag", eventType, other)
		seen[flag] = eventType
		assert.NotZero(t, FlagsAll&flag, "%s missing from FlagsAll", eventType)
	}
	assert.Len(t, seen, 15)
}

func TestBaseEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   *BaseEvent
		wantErr bool
	}{
		{name: "valid", event: NewBaseEvent(EventTypeReady)},
		{name: "empty type", event: &BaseEvent{}, wantErr: true},
		{name: "unknown type", event: &BaseEvent{EventType: EventTypeUnknown}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewBaseEventTimestamp(t *testing.T) {
	before := time.Now().UnixMilli()
	event := NewBaseEvent(EventTypeDispatch)
	require.NotNil(t, event.Timestamp())
	assert.GreaterOrEqual(t, *event.Timestamp(), before)

	event.SetTimestamp(10)
	assert.Equal(t, int64(10), *event.Timestamp())
	assert.Same(t, event, event.GetBaseEvent())
}

func TestShardEventsValidate(t *testing.T) {
	assert.NoError(t, NewShardConnectingEvent(0, "wss://gateway.example").Validate())
	assert.Error(t, NewShardConnectingEvent(0, "").Validate())

	assert.NoError(t, NewShardIdentifyingEvent(1, 2).Validate())
	assert.Error(t, NewShardIdentifyingEvent(2, 2).Validate())

	assert.Error(t, NewShardPayloadEvent(nil).Validate())
	assert.NoError(t, NewGatewayHelloEvent(time.Second).Validate())
	assert.Error(t, NewGatewayHelloEvent(0).Validate())
}

func TestShardDisconnectedJSON(t *testing.T) {
	code := 4000
	data, err := NewShardDisconnectedEvent(3, &code, "zombied").ToJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "SHARD_DISCONNECTED", decoded["type"])
	assert.Equal(t, float64(3), decoded["shardId"])
	assert.Equal(t, float64(4000), decoded["code"])
	assert.Equal(t, "zombied", decoded["reason"])

	data, err = NewShardDisconnectedEvent(3, nil, "").ToJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "code")
}

func TestParseDispatchReady(t *testing.T) {
	raw := json.RawMessage(`{
		"v": 8,
		"user": {"id": "80351110224678912", "username": "gatewire", "bot": true},
		"guilds": [{"id": "41771983423143937", "unavailable": true}],
		"session_id": "abc123",
		"shard": [1, 4],
		"application": {"id": "80351110224678912", "flags": 0},
		"resume_gateway_url": "wss://resume.example"
	}`)

	event, err := ParseDispatch(DispatchReady, 1, raw)
	require.NoError(t, err)

	ready, ok := event.(*ReadyEvent)
	require.True(t, ok)
	assert.Equal(t, EventTypeReady, ready.Type())
	assert.Equal(t, uint64(1), ready.Seq)
	assert.Equal(t, 8, ready.Version)
	assert.Equal(t, "abc123", ready.SessionID)
	assert.Equal(t, core.Snowflake(80351110224678912), ready.User.ID)
	assert.True(t, ready.User.Bot)
	require.Len(t, ready.Guilds, 1)
	assert.True(t, ready.Guilds[0].Unavailable)
	require.NotNil(t, ready.Shard)
	assert.Equal(t, core.NewShardID(1, 4), *ready.Shard)
	assert.Equal(t, "wss://resume.example", ready.ResumeGatewayURL)
}

func TestParseDispatchReadyWithoutSession(t *testing.T) {
	_, err := ParseDispatch(DispatchReady, 1, json.RawMessage(`{"v":8}`))
	assert.Error(t, err)

	_, err = ParseDispatch(DispatchReady, 1, json.RawMessage(`[]`))
	assert.Error(t, err)
}

func TestParseDispatchResumed(t *testing.T) {
	event, err := ParseDispatch(DispatchResumed, 9, json.RawMessage(`null`))
	require.NoError(t, err)

	resumed, ok := event.(*ResumedEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(9), resumed.Seq)
}

func TestParseDispatchOther(t *testing.T) {
	event, err := ParseDispatch("MESSAGE_CREATE", 5, json.RawMessage(`{"content":"hi"}`))
	require.NoError(t, err)

	dispatch, ok := event.(*DispatchEvent)
	require.True(t, ok)
	assert.Equal(t, EventTypeDispatch, dispatch.Type())
	assert.Equal(t, "MESSAGE_CREATE", dispatch.Name)
	assert.NoError(t, dispatch.Validate())

	var message struct {
		Content string `json:"content"`
	}
	require.NoError(t, dispatch.Decode(&message))
	assert.Equal(t, "hi", message.Content)

	_, err = ParseDispatch("", 5, nil)
	assert.Error(t, err)
}
