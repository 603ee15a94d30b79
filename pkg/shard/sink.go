package shard

import (
	"context"

	"github.com/gatewire/gateway/pkg/command"
)

// ShardSink sends messages over one connection of a shard without holding
// the shard itself.
type ShardSink struct {
	shardID uint64
	sess    *session
}

// ShardID returns the ID of the shard the sink belongs to.
func (s *ShardSink) ShardID() uint64 {
	return s.shardID
}

// Send sends a raw message. It is not rate limited.
func (s *ShardSink) Send(ctx context.Context, msg Message) error {
	if err := s.sess.send(ctx, msg); err != nil {
		return &CommandError{Kind: CommandErrorSending, Err: err}
	}
	return nil
}

// Command sends a command, waiting for a rate limit slot.
func (s *ShardSink) Command(ctx context.Context, cmd command.Command) error {
	return sendCommand(ctx, s.sess, cmd)
}
