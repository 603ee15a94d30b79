package encoding

import "fmt"

// CloseCode is a WebSocket close code used by the gateway.
type CloseCode int

// Close codes sent by the gateway, plus the standard codes the client uses.
const (
	CloseNormal               CloseCode = 1000
	CloseGoingAway            CloseCode = 1001
	CloseUnknownError         CloseCode = 4000
	CloseUnknownOpcode        CloseCode = 4001
	CloseDecodeError          CloseCode = 4002
	CloseNotAuthenticated     CloseCode = 4003
	CloseAuthenticationFailed CloseCode = 4004
	CloseAlreadyAuthenticated CloseCode = 4005
	CloseInvalidSeq           CloseCode = 4007
	CloseRateLimited          CloseCode = 4008
	CloseSessionTimedOut      CloseCode = 4009
	CloseInvalidShard         CloseCode = 4010
	CloseShardingRequired     CloseCode = 4011
	CloseInvalidAPIVersion    CloseCode = 4012
	CloseInvalidIntents       CloseCode = 4013
	CloseDisallowedIntents    CloseCode = 4014
)

// CloseResume is sent by the client when it closes a connection whose
// session it intends to resume. Any code other than 1000 and 1001 keeps the
// session alive on the gateway side.
const CloseResume = CloseUnknownError

var closeReasons = map[CloseCode]string{
	CloseNormal:               "normal closure",
	CloseGoingAway:            "going away",
	CloseUnknownError:         "unknown error",
	CloseUnknownOpcode:        "unknown opcode",
	CloseDecodeError:          "decode error",
	CloseNotAuthenticated:     "not authenticated",
	CloseAuthenticationFailed: "authentication failed",
	CloseAlreadyAuthenticated: "already authenticated",
	CloseInvalidSeq:           "invalid seq",
	CloseRateLimited:          "rate limited",
	CloseSessionTimedOut:      "session timed out",
	CloseInvalidShard:         "invalid shard",
	CloseShardingRequired:     "sharding required",
	CloseInvalidAPIVersion:    "invalid API version",
	CloseInvalidIntents:       "invalid intents",
	CloseDisallowedIntents:    "disallowed intents",
}

func (c CloseCode) String() string {
	if reason, ok := closeReasons[c]; ok {
		return fmt.Sprintf("%d (%s)", int(c), reason)
	}
	return fmt.Sprintf("%d", int(c))
}

// Fatal reports whether reconnecting after this close can never succeed
// without changing the configuration.
func (c CloseCode) Fatal() bool {
	switch c {
	case CloseAuthenticationFailed,
		CloseInvalidShard,
		CloseShardingRequired,
		CloseInvalidAPIVersion,
		CloseInvalidIntents,
		CloseDisallowedIntents:
		return true
	}
	return false
}

// Resumable reports whether the session survives this close.
func (c CloseCode) Resumable() bool {
	if c.Fatal() {
		return false
	}
	switch c {
	case CloseNormal, CloseGoingAway, CloseInvalidSeq, CloseSessionTimedOut:
		return false
	}
	return true
}
