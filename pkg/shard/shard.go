package shard

import (
	"context"
	"sync"

	"github.com/gatewire/gateway/pkg/command"
	"github.com/gatewire/gateway/pkg/core"
	"github.com/gatewire/gateway/pkg/transport"
)

// Information is a snapshot of a connected shard.
type Information struct {
	ID        uint64
	Latency   Latency
	SessionID string
	Seq       uint64
	Stage     Stage
}

// Shard is a single connection to the gateway. A shard is started once; after
// Shutdown a new Shard must be created.
type Shard struct {
	config *Config
	events *Events

	mu        sync.Mutex
	processor *processor
	stopped   bool
}

// New creates a shard and the stream its events are emitted on.
func New(config *Config) (*Shard, *Events) {
	stream := newEvents(config.eventBuffer)
	return &Shard{config: config, events: stream}, stream
}

// Config returns the shard's configuration.
func (s *Shard) Config() *Config {
	return s.config
}

// Start connects to the gateway. ctx bounds the gateway URL lookup and the
// first connection; the shard then runs until it is shut down.
func (s *Shard) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processor != nil || s.stopped {
		return &ShardStartError{Kind: ShardStartAlreadyStarted, Err: core.ErrAlreadyStarted}
	}

	raw := s.config.gatewayURL
	if raw == "" {
		client := &transport.GatewayClient{HTTP: s.config.httpClient, APIBase: s.config.apiBase}
		info, err := client.BotGateway(ctx, s.config.token)
		if err != nil {
			return &ShardStartError{Kind: ShardStartRetrievingGatewayURL, Err: err}
		}
		raw = info.URL
	}

	target, err := connectURL(raw)
	if err != nil {
		return &ShardStartError{Kind: ShardStartParsingGatewayURL, URL: raw, Err: err}
	}

	p := newProcessor(s.config, s.events, target)
	// The caller may only start reading events once Start returns.
	sess, err := p.connect(ctx, s.config.resume, p.emitNoWait)
	if err != nil {
		p.cancel()
		return &ShardStartError{Kind: ShardStartEstablishing, URL: target, Err: err}
	}

	s.processor = p
	go p.run(sess)
	return nil
}

func (s *Shard) session() *session {
	s.mu.Lock()
	p := s.processor
	s.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.currentSession()
}

// inactive describes why the shard has no session.
func (s *Shard) inactive() *SessionInactiveError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processor == nil && !s.stopped {
		return &SessionInactiveError{Err: core.ErrNotStarted}
	}
	return &SessionInactiveError{}
}

// Info returns a snapshot of the shard's session.
func (s *Shard) Info() (Information, error) {
	sess := s.session()
	if sess == nil {
		return Information{}, s.inactive()
	}
	return Information{
		ID:        s.config.shardID.ID(),
		Latency:   sess.latency.snapshot(),
		SessionID: sess.sessionID(),
		Seq:       sess.seq.Load(),
		Stage:     sess.getStage(),
	}, nil
}

// Command sends a command to the gateway, waiting for a rate limit slot.
func (s *Shard) Command(ctx context.Context, cmd command.Command) error {
	sess := s.session()
	if sess == nil {
		return &CommandError{Kind: CommandErrorSessionInactive, Err: s.inactive()}
	}
	return sendCommand(ctx, sess, cmd)
}

// Send sends a raw message to the gateway. It is not rate limited.
func (s *Shard) Send(ctx context.Context, msg Message) error {
	sess := s.session()
	if sess == nil {
		return &CommandError{Kind: CommandErrorSessionInactive, Err: s.inactive()}
	}
	if err := sess.send(ctx, msg); err != nil {
		return &CommandError{Kind: CommandErrorSending, Err: err}
	}
	return nil
}

// Sink returns a handle bound to the current connection. It stops working
// once that connection closes, even if the shard reconnects.
func (s *Shard) Sink() (*ShardSink, error) {
	sess := s.session()
	if sess == nil {
		return nil, s.inactive()
	}
	return &ShardSink{shardID: s.config.shardID.ID(), sess: sess}, nil
}

func (s *Shard) stop() *processor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return s.processor
}

// Shutdown closes the connection with code 1000, invalidating the session,
// and closes the event stream.
func (s *Shard) Shutdown() {
	p := s.stop()
	if p == nil {
		s.events.close()
		return
	}
	p.shutdown(CloseFrameNormal)
}

// ShutdownResumable closes the connection with code 4000 and returns the
// shard ID and the data needed to resume the session on a new shard. The
// session is nil if none was established.
func (s *Shard) ShutdownResumable() (uint64, *ResumeSession) {
	id := s.config.shardID.ID()
	p := s.stop()
	if p == nil {
		s.events.close()
		return id, nil
	}
	return id, p.shutdown(CloseFrameResume)
}
