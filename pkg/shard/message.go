package shard

import "github.com/gatewire/gateway/pkg/encoding"

// MessageKind is the WebSocket frame type of a Message.
type MessageKind int

const (
	// MessageText is a text frame carrying a JSON payload.
	MessageText MessageKind = iota
	// MessageClose is a close frame.
	MessageClose
)

// CloseFrame is the code and reason of a close frame.
type CloseFrame struct {
	Code   int
	Reason string
}

// Common close frames sent by the shard.
var (
	// CloseFrameNormal invalidates the session.
	CloseFrameNormal = CloseFrame{Code: int(encoding.CloseNormal), Reason: "closing connection"}
	// CloseFrameResume keeps the session resumable.
	CloseFrameResume = CloseFrame{Code: int(encoding.CloseResume), Reason: "resuming connection"}
)

// Message is a raw message sent to the gateway.
type Message struct {
	Kind  MessageKind
	Data  []byte
	Close *CloseFrame
}

// TextMessage creates a text message from a serialized payload.
func TextMessage(data []byte) Message {
	return Message{Kind: MessageText, Data: data}
}

// CloseMessage creates a close message.
func CloseMessage(frame CloseFrame) Message {
	return Message{Kind: MessageClose, Close: &frame}
}
