package encoding

import (
	"encoding/json"
	"fmt"

	"github.com/gatewire/gateway/pkg/core"
)

// APIVersion is the gateway protocol version requested when connecting.
const APIVersion = 8

// OpCode identifies the kind of a gateway payload.
type OpCode int

// Gateway opcodes.
const (
	OpDispatch            OpCode = 0
	OpHeartbeat           OpCode = 1
	OpIdentify            OpCode = 2
	OpPresenceUpdate      OpCode = 3
	OpVoiceStateUpdate    OpCode = 4
	OpResume              OpCode = 6
	OpReconnect           OpCode = 7
	OpRequestGuildMembers OpCode = 8
	OpInvalidSession      OpCode = 9
	OpHello               OpCode = 10
	OpHeartbeatAck        OpCode = 11
)

var opNames = map[OpCode]string{
	OpDispatch:            "DISPATCH",
	OpHeartbeat:           "HEARTBEAT",
	OpIdentify:            "IDENTIFY",
	OpPresenceUpdate:      "PRESENCE_UPDATE",
	OpVoiceStateUpdate:    "VOICE_STATE_UPDATE",
	OpResume:              "RESUME",
	OpReconnect:           "RECONNECT",
	OpRequestGuildMembers: "REQUEST_GUILD_MEMBERS",
	OpInvalidSession:      "INVALID_SESSION",
	OpHello:               "HELLO",
	OpHeartbeatAck:        "HEARTBEAT_ACK",
}

func (o OpCode) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("OpCode(%d)", int(o))
}

// Payload is the envelope of every gateway frame.
type Payload struct {
	Op OpCode          `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *uint64         `json:"s,omitempty"`
	T  *string         `json:"t,omitempty"`
}

// EventName returns the dispatch name, or "" for other opcodes.
func (p *Payload) EventName() string {
	if p.T == nil {
		return ""
	}
	return *p.T
}

// Hello is the data of an OpHello payload.
type Hello struct {
	// HeartbeatInterval is in milliseconds
	HeartbeatInterval uint64 `json:"heartbeat_interval"`
}

// Encode serializes data into a payload with the given opcode.
func Encode(op OpCode, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s data: %w", op, err)
	}
	return json.Marshal(Payload{Op: op, D: raw})
}

// Decode parses a text frame into a payload.
func Decode(frame []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(frame, &p); err != nil {
		return nil, &core.ProtocolError{
			Operation: "decode",
			Code:      int(CloseDecodeError),
			Err:       err,
		}
	}
	return &p, nil
}

// DecodeData unmarshals the payload data into v.
func (p *Payload) DecodeData(v any) error {
	if len(p.D) == 0 {
		return &core.ProtocolError{
			Operation: "decode " + p.Op.String(),
			Code:      int(CloseDecodeError),
			Err:       fmt.Errorf("payload has no data"),
		}
	}
	if err := json.Unmarshal(p.D, v); err != nil {
		return &core.ProtocolError{
			Operation: "decode " + p.Op.String(),
			Code:      int(CloseDecodeError),
			Err:       err,
		}
	}
	return nil
}
