package events

import (
	"fmt"
	"time"
)

// EventType represents the type of a shard event
type EventType string

// Event type constants
const (
	EventTypeShardConnecting          EventType = "SHARD_CONNECTING"
	EventTypeShardIdentifying         EventType = "SHARD_IDENTIFYING"
	EventTypeShardResuming            EventType = "SHARD_RESUMING"
	EventTypeShardConnected           EventType = "SHARD_CONNECTED"
	EventTypeShardReconnecting        EventType = "SHARD_RECONNECTING"
	EventTypeShardDisconnected        EventType = "SHARD_DISCONNECTED"
	EventTypeShardPayload             EventType = "SHARD_PAYLOAD"
	EventTypeGatewayHello             EventType = "GATEWAY_HELLO"
	EventTypeGatewayHeartbeat         EventType = "GATEWAY_HEARTBEAT"
	EventTypeGatewayHeartbeatAck      EventType = "GATEWAY_HEARTBEAT_ACK"
	EventTypeGatewayInvalidateSession EventType = "GATEWAY_INVALIDATE_SESSION"
	EventTypeGatewayReconnect         EventType = "GATEWAY_RECONNECT"
	EventTypeReady                    EventType = "READY"
	EventTypeResumed                  EventType = "RESUMED"
	EventTypeDispatch                 EventType = "DISPATCH"

	// EventTypeUnknown represents an unrecognized event type
	EventTypeUnknown EventType = "UNKNOWN"
)

// EventTypeFlags is a bit set of event types.
type EventTypeFlags uint64

// Event type flags
const (
	FlagShardConnecting EventTypeFlags = 1 << iota
	FlagShardIdentifying
	FlagShardResuming
	FlagShardConnected
	FlagShardReconnecting
	FlagShardDisconnected
	FlagShardPayload
	FlagGatewayHello
	FlagGatewayHeartbeat
	FlagGatewayHeartbeatAck
	FlagGatewayInvalidateSession
	FlagGatewayReconnect
	FlagReady
	FlagResumed
	FlagDispatch
)

// Flag groups
const (
	FlagsShard = FlagShardConnecting | FlagShardIdentifying | FlagShardResuming |
		FlagShardConnected | FlagShardReconnecting | FlagShardDisconnected | FlagShardPayload
	FlagsGateway = FlagGatewayHello | FlagGatewayHeartbeat | FlagGatewayHeartbeatAck |
		FlagGatewayInvalidateSession | FlagGatewayReconnect
	FlagsDispatch = FlagReady | FlagResumed | FlagDispatch

	// FlagsDefault is everything except raw payloads, which double the
	// number of emitted events.
	FlagsDefault = FlagsAll &^ FlagShardPayload
	FlagsAll     = FlagsShard | FlagsGateway | FlagsDispatch
)

// eventTypeFlags maps each known event type to its flag
var eventTypeFlags = map[EventType]EventTypeFlags{
	EventTypeShardConnecting:          FlagShardConnecting,
	EventTypeShardIdentifying:         FlagShardIdentifying,
	EventTypeShardResuming:            FlagShardResuming,
	EventTypeShardConnected:           FlagShardConnected,
	EventTypeShardReconnecting:        FlagShardReconnecting,
	EventTypeShardDisconnected:        FlagShardDisconnected,
	EventTypeShardPayload:             FlagShardPayload,
	EventTypeGatewayHello:             FlagGatewayHello,
	EventTypeGatewayHeartbeat:         FlagGatewayHeartbeat,
	EventTypeGatewayHeartbeatAck:      FlagGatewayHeartbeatAck,
	EventTypeGatewayInvalidateSession: FlagGatewayInvalidateSession,
	EventTypeGatewayReconnect:         FlagGatewayReconnect,
	EventTypeReady:                    FlagReady,
	EventTypeResumed:                  FlagResumed,
	EventTypeDispatch:                 FlagDispatch,
}

// FlagFor returns the flag of an event type, or 0 for unknown types.
func FlagFor(eventType EventType) EventTypeFlags {
	return eventTypeFlags[eventType]
}

// Contains reports whether the flag of eventType is set.
func (f EventTypeFlags) Contains(eventType EventType) bool {
	flag := FlagFor(eventType)
	return flag != 0 && f&flag == flag
}

// Event defines the common interface for all shard events
type Event interface {
	// Type returns the event type
	Type() EventType

	// Timestamp returns the event timestamp (Unix milliseconds)
	Timestamp() *int64

	// SetTimestamp sets the event timestamp
	SetTimestamp(timestamp int64)

	// Validate validates the event structure and content
	Validate() error

	// ToJSON serializes the event to JSON
	ToJSON() ([]byte, error)

	// GetBaseEvent returns the underlying base event
	GetBaseEvent() *BaseEvent
}

// BaseEvent provides common fields and functionality for all events
type BaseEvent struct {
	EventType   EventType `json:"type"`
	TimestampMs *int64    `json:"timestamp,omitempty"`
}

// Type returns the event type
func (b *BaseEvent) Type() EventType {
	return b.EventType
}

// Timestamp returns the event timestamp
func (b *BaseEvent) Timestamp() *int64 {
	return b.TimestampMs
}

// SetTimestamp sets the event timestamp
func (b *BaseEvent) SetTimestamp(timestamp int64) {
	b.TimestampMs = &timestamp
}

// GetBaseEvent returns the base event
func (b *BaseEvent) GetBaseEvent() *BaseEvent {
	return b
}

// NewBaseEvent creates a new base event with the given type and current timestamp
func NewBaseEvent(eventType EventType) *BaseEvent {
	now := time.Now().UnixMilli()
	return &BaseEvent{
		EventType:   eventType,
		TimestampMs: &now,
	}
}

// Validate validates the base event structure
func (b *BaseEvent) Validate() error {
	if b.EventType == "" {
		return fmt.Errorf("BaseEvent validation failed: type field is required")
	}

	if FlagFor(b.EventType) == 0 {
		return fmt.Errorf("BaseEvent validation failed: invalid event type '%s'", b.EventType)
	}

	return nil
}
