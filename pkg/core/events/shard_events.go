package events

import (
	"encoding/json"
	"fmt"
)

// ShardConnectingEvent indicates that a shard is dialing the gateway
type ShardConnectingEvent struct {
	*BaseEvent
	ShardID uint64 `json:"shardId"`
	Gateway string `json:"gateway"`
}

// NewShardConnectingEvent creates a new shard connecting event
func NewShardConnectingEvent(shardID uint64, gateway string) *ShardConnectingEvent {
	return &ShardConnectingEvent{
		BaseEvent: NewBaseEvent(EventTypeShardConnecting),
		ShardID:   shardID,
		Gateway:   gateway,
	}
}

// Validate validates the shard connecting event
func (e *ShardConnectingEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.Gateway == "" {
		return fmt.Errorf("gateway URL is required")
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ShardConnectingEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ShardIdentifyingEvent indicates that a shard is about to identify
type ShardIdentifyingEvent struct {
	*BaseEvent
	ShardID    uint64 `json:"shardId"`
	ShardTotal uint64 `json:"shardTotal"`
}

// NewShardIdentifyingEvent creates a new shard identifying event
func NewShardIdentifyingEvent(shardID, shardTotal uint64) *ShardIdentifyingEvent {
	return &ShardIdentifyingEvent{
		BaseEvent:  NewBaseEvent(EventTypeShardIdentifying),
		ShardID:    shardID,
		ShardTotal: shardTotal,
	}
}

// Validate validates the shard identifying event
func (e *ShardIdentifyingEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.ShardID >= e.ShardTotal {
		return fmt.Errorf("shard ID %d must be less than shard total %d", e.ShardID, e.ShardTotal)
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ShardIdentifyingEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ShardResumingEvent indicates that a shard is about to resume its session
type ShardResumingEvent struct {
	*BaseEvent
	ShardID uint64 `json:"shardId"`
	Seq     uint64 `json:"seq"`
}

// NewShardResumingEvent creates a new shard resuming event
func NewShardResumingEvent(shardID, seq uint64) *ShardResumingEvent {
	return &ShardResumingEvent{
		BaseEvent: NewBaseEvent(EventTypeShardResuming),
		ShardID:   shardID,
		Seq:       seq,
	}
}

// ToJSON serializes the event to JSON
func (e *ShardResumingEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ShardConnectedEvent indicates that a shard's session is ready
type ShardConnectedEvent struct {
	*BaseEvent
	ShardID uint64 `json:"shardId"`
}

// NewShardConnectedEvent creates a new shard connected event
func NewShardConnectedEvent(shardID uint64) *ShardConnectedEvent {
	return &ShardConnectedEvent{
		BaseEvent: NewBaseEvent(EventTypeShardConnected),
		ShardID:   shardID,
	}
}

// ToJSON serializes the event to JSON
func (e *ShardConnectedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ShardReconnectingEvent indicates that a shard lost its connection and is
// reconnecting
type ShardReconnectingEvent struct {
	*BaseEvent
	ShardID uint64 `json:"shardId"`
}

// NewShardReconnectingEvent creates a new shard reconnecting event
func NewShardReconnectingEvent(shardID uint64) *ShardReconnectingEvent {
	return &ShardReconnectingEvent{
		BaseEvent: NewBaseEvent(EventTypeShardReconnecting),
		ShardID:   shardID,
	}
}

// ToJSON serializes the event to JSON
func (e *ShardReconnectingEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ShardDisconnectedEvent indicates that a shard's connection closed. Code is
// nil when the connection dropped without a close frame.
type ShardDisconnectedEvent struct {
	*BaseEvent
	ShardID uint64 `json:"shardId"`
	Code    *int   `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// NewShardDisconnectedEvent creates a new shard disconnected event
func NewShardDisconnectedEvent(shardID uint64, code *int, reason string) *ShardDisconnectedEvent {
	return &ShardDisconnectedEvent{
		BaseEvent: NewBaseEvent(EventTypeShardDisconnected),
		ShardID:   shardID,
		Code:      code,
		Reason:    reason,
	}
}

// ToJSON serializes the event to JSON
func (e *ShardDisconnectedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ShardPayloadEvent carries a raw payload exactly as received, after
// decompression
type ShardPayloadEvent struct {
	*BaseEvent
	Bytes []byte `json:"bytes"`
}

// NewShardPayloadEvent creates a new shard payload event
func NewShardPayloadEvent(data []byte) *ShardPayloadEvent {
	return &ShardPayloadEvent{
		BaseEvent: NewBaseEvent(EventTypeShardPayload),
		Bytes:     data,
	}
}

// Validate validates the shard payload event
func (e *ShardPayloadEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if len(e.Bytes) == 0 {
		return fmt.Errorf("ShardPayloadEvent validation failed: bytes field is required")
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ShardPayloadEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
