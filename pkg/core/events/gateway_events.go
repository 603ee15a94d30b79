package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// GatewayHelloEvent carries the heartbeat interval sent by the gateway
type GatewayHelloEvent struct {
	*BaseEvent
	Interval time.Duration `json:"interval"`
}

// NewGatewayHelloEvent creates a new gateway hello event
func NewGatewayHelloEvent(interval time.Duration) *GatewayHelloEvent {
	return &GatewayHelloEvent{
		BaseEvent: NewBaseEvent(EventTypeGatewayHello),
		Interval:  interval,
	}
}

// Validate validates the gateway hello event
func (e *GatewayHelloEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.Interval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %s", e.Interval)
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *GatewayHelloEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// GatewayHeartbeatEvent indicates that the gateway requested a heartbeat
type GatewayHeartbeatEvent struct {
	*BaseEvent
	Seq uint64 `json:"seq"`
}

// NewGatewayHeartbeatEvent creates a new gateway heartbeat event
func NewGatewayHeartbeatEvent(seq uint64) *GatewayHeartbeatEvent {
	return &GatewayHeartbeatEvent{
		BaseEvent: NewBaseEvent(EventTypeGatewayHeartbeat),
		Seq:       seq,
	}
}

// ToJSON serializes the event to JSON
func (e *GatewayHeartbeatEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// GatewayHeartbeatAckEvent indicates that the gateway acknowledged a heartbeat
type GatewayHeartbeatAckEvent struct {
	*BaseEvent
}

// NewGatewayHeartbeatAckEvent creates a new gateway heartbeat ack event
func NewGatewayHeartbeatAckEvent() *GatewayHeartbeatAckEvent {
	return &GatewayHeartbeatAckEvent{
		BaseEvent: NewBaseEvent(EventTypeGatewayHeartbeatAck),
	}
}

// ToJSON serializes the event to JSON
func (e *GatewayHeartbeatAckEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// GatewayInvalidateSessionEvent indicates that the gateway invalidated the
// session. Resumable tells whether the session may still be resumed.
type GatewayInvalidateSessionEvent struct {
	*BaseEvent
	Resumable bool `json:"resumable"`
}

// NewGatewayInvalidateSessionEvent creates a new gateway invalidate session event
func NewGatewayInvalidateSessionEvent(resumable bool) *GatewayInvalidateSessionEvent {
	return &GatewayInvalidateSessionEvent{
		BaseEvent: NewBaseEvent(EventTypeGatewayInvalidateSession),
		Resumable: resumable,
	}
}

// ToJSON serializes the event to JSON
func (e *GatewayInvalidateSessionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// GatewayReconnectEvent indicates that the gateway asked for a reconnect
type GatewayReconnectEvent struct {
	*BaseEvent
}

// NewGatewayReconnectEvent creates a new gateway reconnect event
func NewGatewayReconnectEvent() *GatewayReconnectEvent {
	return &GatewayReconnectEvent{
		BaseEvent: NewBaseEvent(EventTypeGatewayReconnect),
	}
}

// ToJSON serializes the event to JSON
func (e *GatewayReconnectEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
