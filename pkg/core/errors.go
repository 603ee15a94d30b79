package core

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrNotStarted     = errors.New("shard not started")
	ErrAlreadyStarted = errors.New("shard already started")
	ErrSessionClosed  = errors.New("session closed")
	ErrStreamClosed   = errors.New("stream closed")
)

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field %s (value: %v): %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ProtocolError represents protocol-level errors, such as a payload that
// can't be decoded or a close frame sent by the gateway.
type ProtocolError struct {
	Operation string
	Code      int
	Err       error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in %s (code: %d): %v", e.Operation, e.Code, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
