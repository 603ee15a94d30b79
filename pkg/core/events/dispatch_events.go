package events

import (
	"encoding/json"
	"fmt"

	"github.com/gatewire/gateway/pkg/core"
)

// Dispatch names with dedicated event types.
const (
	DispatchReady   = "READY"
	DispatchResumed = "RESUMED"
)

// User is the bot user as reported in READY
type User struct {
	ID            core.Snowflake `json:"id"`
	Username      string         `json:"username"`
	Discriminator string         `json:"discriminator,omitempty"`
	Bot           bool           `json:"bot,omitempty"`
}

// UnavailableGuild is a guild the shard will receive a create for later
type UnavailableGuild struct {
	ID          core.Snowflake `json:"id"`
	Unavailable bool           `json:"unavailable"`
}

// PartialApplication is the application in READY
type PartialApplication struct {
	ID    core.Snowflake `json:"id"`
	Flags uint64         `json:"flags"`
}

// ReadyEvent is dispatched when a new session has been created
type ReadyEvent struct {
	*BaseEvent
	Seq              uint64             `json:"seq"`
	Version          int                `json:"v"`
	User             User               `json:"user"`
	Guilds           []UnavailableGuild `json:"guilds"`
	SessionID        string             `json:"session_id"`
	Shard            *core.ShardID      `json:"shard,omitempty"`
	Application      PartialApplication `json:"application"`
	ResumeGatewayURL string             `json:"resume_gateway_url,omitempty"`
}

// Validate validates the ready event
func (e *ReadyEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.SessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ReadyEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ResumedEvent is dispatched when a session has been resumed
type ResumedEvent struct {
	*BaseEvent
	Seq uint64 `json:"seq"`
}

// ToJSON serializes the event to JSON
func (e *ResumedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// DispatchEvent is any dispatch without a dedicated type
type DispatchEvent struct {
	*BaseEvent
	Name string          `json:"name"`
	Seq  uint64          `json:"seq"`
	Data json.RawMessage `json:"data"`
}

// NewDispatchEvent creates a new dispatch event
func NewDispatchEvent(name string, seq uint64, data json.RawMessage) *DispatchEvent {
	return &DispatchEvent{
		BaseEvent: NewBaseEvent(EventTypeDispatch),
		Name:      name,
		Seq:       seq,
		Data:      data,
	}
}

// Validate validates the dispatch event
func (e *DispatchEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.Name == "" {
		return fmt.Errorf("dispatch name is required")
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *DispatchEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Decode unmarshals the dispatch data into v.
func (e *DispatchEvent) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", e.Name, err)
	}
	return nil
}

// ParseDispatch builds the event for a dispatch payload.
func ParseDispatch(name string, seq uint64, data json.RawMessage) (Event, error) {
	switch name {
	case "":
		return nil, fmt.Errorf("dispatch without a name")
	case DispatchReady:
		ready := &ReadyEvent{BaseEvent: NewBaseEvent(EventTypeReady), Seq: seq}
		if err := json.Unmarshal(data, ready); err != nil {
			return nil, fmt.Errorf("failed to decode READY: %w", err)
		}
		ready.BaseEvent.EventType = EventTypeReady
		ready.Seq = seq
		if err := ready.Validate(); err != nil {
			return nil, fmt.Errorf("invalid READY: %w", err)
		}
		return ready, nil
	case DispatchResumed:
		return &ResumedEvent{BaseEvent: NewBaseEvent(EventTypeResumed), Seq: seq}, nil
	default:
		return NewDispatchEvent(name, seq, data), nil
	}
}
