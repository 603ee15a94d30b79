package shard

import "fmt"

// Stage is the connection state of a shard's session.
type Stage uint32

const (
	// StageDisconnected means there is no connection.
	StageDisconnected Stage = iota
	// StageHandshaking means the connection is open and the shard waits for
	// Hello.
	StageHandshaking
	// StageIdentifying means an Identify is queued or sent.
	StageIdentifying
	// StageResuming means a Resume was sent.
	StageResuming
	// StageConnected means the session is ready.
	StageConnected
)

func (s Stage) String() string {
	switch s {
	case StageDisconnected:
		return "Disconnected"
	case StageHandshaking:
		return "Handshaking"
	case StageIdentifying:
		return "Identifying"
	case StageResuming:
		return "Resuming"
	case StageConnected:
		return "Connected"
	default:
		return fmt.Sprintf("Stage(%d)", uint32(s))
	}
}
