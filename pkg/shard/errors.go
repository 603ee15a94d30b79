package shard

import "fmt"

// CommandErrorKind is the type of CommandError that occurred.
type CommandErrorKind int

const (
	// CommandErrorSending means the message could not be queued on the
	// connection.
	CommandErrorSending CommandErrorKind = iota
	// CommandErrorSerializing means the command failed validation or
	// serialization.
	CommandErrorSerializing
	// CommandErrorSessionInactive means the shard has no active session.
	CommandErrorSessionInactive
	// CommandErrorRatelimited means the context ended while waiting for a
	// command rate limit slot.
	CommandErrorRatelimited
)

func (k CommandErrorKind) String() string {
	switch k {
	case CommandErrorSending:
		return "sending the message over the websocket failed"
	case CommandErrorSerializing:
		return "serializing the command failed"
	case CommandErrorSessionInactive:
		return "shard's session is inactive"
	case CommandErrorRatelimited:
		return "waiting for a rate limit slot failed"
	default:
		return fmt.Sprintf("CommandErrorKind(%d)", int(k))
	}
}

// CommandError is returned when sending a command failed.
type CommandError struct {
	Kind CommandErrorKind
	Err  error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// LargeThresholdErrorKind is the type of LargeThresholdError that occurred.
type LargeThresholdErrorKind int

const (
	// LargeThresholdTooFew means the value is below MinLargeThreshold.
	LargeThresholdTooFew LargeThresholdErrorKind = iota
	// LargeThresholdTooMany means the value is above MaxLargeThreshold.
	LargeThresholdTooMany
)

// LargeThresholdError is returned when the large threshold configuration is
// invalid.
type LargeThresholdError struct {
	Kind  LargeThresholdErrorKind
	Value uint64
}

func (e *LargeThresholdError) Error() string {
	switch e.Kind {
	case LargeThresholdTooFew:
		return fmt.Sprintf("provided large threshold value %d is fewer than %d", e.Value, MinLargeThreshold)
	case LargeThresholdTooMany:
		return fmt.Sprintf("provided large threshold value %d is more than %d", e.Value, MaxLargeThreshold)
	default:
		return fmt.Sprintf("invalid large threshold value %d", e.Value)
	}
}

// ShardIDErrorKind is the type of ShardIDError that occurred.
type ShardIDErrorKind int

const (
	// ShardIDTooLarge means the shard ID is not smaller than the total.
	ShardIDTooLarge ShardIDErrorKind = iota
)

// ShardIDError is returned when the shard ID configuration is invalid.
type ShardIDError struct {
	Kind  ShardIDErrorKind
	ID    uint64
	Total uint64
}

func (e *ShardIDError) Error() string {
	return fmt.Sprintf("provided shard ID %d is larger than the total %d", e.ID, e.Total)
}

// ShardStartErrorKind is the type of ShardStartError that occurred.
type ShardStartErrorKind int

const (
	// ShardStartEstablishing means the connection to the gateway could not
	// be established.
	ShardStartEstablishing ShardStartErrorKind = iota
	// ShardStartParsingGatewayURL means the gateway URL is invalid.
	ShardStartParsingGatewayURL
	// ShardStartRetrievingGatewayURL means the bot gateway lookup failed.
	ShardStartRetrievingGatewayURL
	// ShardStartAlreadyStarted means Start was called on a running or shut
	// down shard.
	ShardStartAlreadyStarted
)

func (k ShardStartErrorKind) String() string {
	switch k {
	case ShardStartEstablishing:
		return "establishing a connection to the gateway failed"
	case ShardStartParsingGatewayURL:
		return "parsing the gateway URL failed"
	case ShardStartRetrievingGatewayURL:
		return "retrieving the gateway URL failed"
	case ShardStartAlreadyStarted:
		return "shard was already started"
	default:
		return fmt.Sprintf("ShardStartErrorKind(%d)", int(k))
	}
}

// ShardStartError is returned when starting a shard and connecting to the
// gateway failed.
type ShardStartError struct {
	Kind ShardStartErrorKind
	URL  string
	Err  error
}

func (e *ShardStartError) Error() string {
	msg := e.Kind.String()
	if e.URL != "" {
		msg = fmt.Sprintf("%s (url: %s)", msg, e.URL)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ShardStartError) Unwrap() error {
	return e.Err
}

// SessionInactiveError is returned when an operation needs the shard's
// session and the shard is not connected. Err is core.ErrNotStarted before
// the shard is started.
type SessionInactiveError struct {
	Err error
}

func (e *SessionInactiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("shard's session is inactive: %v", e.Err)
	}
	return "shard's session is inactive"
}

func (e *SessionInactiveError) Unwrap() error {
	return e.Err
}
