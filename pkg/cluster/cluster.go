package cluster

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gatewire/gateway/pkg/command"
	"github.com/gatewire/gateway/pkg/core"
	"github.com/gatewire/gateway/pkg/core/events"
	"github.com/gatewire/gateway/pkg/queue"
	"github.com/gatewire/gateway/pkg/shard"
	"github.com/gatewire/gateway/pkg/transport"
)

// DefaultEventBuffer is the capacity of the merged event stream.
const DefaultEventBuffer = 256

// ShardEvent is an event tagged with the shard that emitted it.
type ShardEvent struct {
	ShardID uint64
	Event   events.Event
}

// Events is the merged event stream of a cluster. It is closed once every
// shard's stream is closed.
type Events struct {
	ch chan ShardEvent
}

// Next returns the next event. It returns core.ErrStreamClosed once the
// stream is closed and drained.
func (e *Events) Next(ctx context.Context) (ShardEvent, error) {
	select {
	case event, ok := <-e.ch:
		if !ok {
			return ShardEvent{}, core.ErrStreamClosed
		}
		return event, nil
	case <-ctx.Done():
		return ShardEvent{}, ctx.Err()
	}
}

// Chan returns the underlying channel for use in select statements.
func (e *Events) Chan() <-chan ShardEvent {
	return e.ch
}

// Cluster runs a set of shards sharing an identify queue and TLS
// configuration.
type Cluster struct {
	config *Config
	log    *logrus.Entry
	ids    []uint64
	shards map[uint64]*shard.Shard
	events *Events

	done       chan struct{}
	downOnce   sync.Once
	forwarders sync.WaitGroup
}

// New creates the shards of a cluster. ctx bounds the bot gateway lookup,
// which is done for the Auto scheme or when no gateway URL is configured.
// Shards are not connected until Up.
func New(ctx context.Context, token string, intents core.Intents, opts ...Option) (*Cluster, *Events, error) {
	cfg := &Config{
		scheme:      Auto(),
		eventBuffer: DefaultEventBuffer,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if err := cfg.scheme.validate(); err != nil {
		return nil, nil, &ClusterStartError{Kind: ClusterStartInvalidScheme, Err: err}
	}

	scheme := cfg.scheme
	gatewayURL := cfg.gatewayURL
	if scheme.auto || gatewayURL == "" {
		client := &transport.GatewayClient{HTTP: cfg.httpClient, APIBase: cfg.apiBase}
		info, err := client.BotGateway(ctx, token)
		if err != nil {
			return nil, nil, &ClusterStartError{Kind: ClusterStartRetrievingGatewayInfo, Err: err}
		}
		if gatewayURL == "" {
			gatewayURL = info.URL
		}
		if scheme.auto {
			total := info.Shards
			if total == 0 {
				total = 1
			}
			scheme = Range(0, total-1, total)
			if cfg.queue == nil {
				cfg.queue = queue.NewLargeBotQueue(info.SessionStartLimit.MaxConcurrency, queue.DefaultInterval)
			}
		}
	}
	if cfg.queue == nil {
		cfg.queue = queue.NewLocalQueue(queue.DefaultInterval)
	}
	if cfg.tls == nil {
		tlsContainer, err := transport.NewTLSContainer()
		if err != nil {
			return nil, nil, &ClusterStartError{Kind: ClusterStartTLS, Err: err}
		}
		cfg.tls = tlsContainer
	}

	c := &Cluster{
		config: cfg,
		log:    cfg.logger,
		shards: make(map[uint64]*shard.Shard),
		events: &Events{ch: make(chan ShardEvent, cfg.eventBuffer)},
		done:   make(chan struct{}),
	}

	streams := make(map[uint64]*shard.Events)
	for id := scheme.From; id <= scheme.To; id++ {
		shardOpts := append([]shard.Option{}, cfg.shardOptions...)
		shardOpts = append(shardOpts,
			shard.WithShard(id, scheme.Total),
			shard.WithQueue(cfg.queue),
			shard.WithGatewayURL(gatewayURL),
			shard.WithTLSContainer(cfg.tls),
			shard.WithLogger(cfg.logger),
		)
		if resume, ok := cfg.resume[id]; ok {
			shardOpts = append(shardOpts, shard.WithResumeSession(resume))
		}

		shardCfg, err := shard.NewConfig(token, intents, shardOpts...)
		if err != nil {
			return nil, nil, &ClusterStartError{Kind: ClusterStartShardConfig, Err: fmt.Errorf("shard %d: %w", id, err)}
		}
		s, stream := shard.New(shardCfg)
		c.ids = append(c.ids, id)
		c.shards[id] = s
		streams[id] = stream
	}

	for _, id := range c.ids {
		c.forwarders.Add(1)
		go c.forward(id, streams[id])
	}
	go func() {
		c.forwarders.Wait()
		close(c.events.ch)
	}()

	c.log.WithFields(logrus.Fields{
		"from":  scheme.From,
		"to":    scheme.To,
		"total": scheme.Total,
	}).Info("cluster created")
	return c, c.events, nil
}

func (c *Cluster) forward(id uint64, stream *shard.Events) {
	defer c.forwarders.Done()
	for event := range stream.Chan() {
		select {
		case c.events.ch <- ShardEvent{ShardID: id, Event: event}:
		case <-c.done:
			return
		}
	}
}

// Up starts every shard concurrently and returns the first start error.
// Shards that started keep running.
func (c *Cluster) Up(ctx context.Context) error {
	var g errgroup.Group
	for _, id := range c.ids {
		s := c.shards[id]
		g.Go(func() error {
			if err := s.Start(ctx); err != nil {
				c.log.WithError(err).WithField("shard_id", id).Error("failed to start shard")
				return fmt.Errorf("shard %d: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Command sends a command over the given shard.
func (c *Cluster) Command(ctx context.Context, id uint64, cmd command.Command) error {
	s, ok := c.shards[id]
	if !ok {
		return &ClusterCommandError{Kind: ClusterCommandShardNonexistent, ShardID: id}
	}
	if err := s.Command(ctx, cmd); err != nil {
		return &ClusterCommandError{Kind: ClusterCommandSending, ShardID: id, Err: err}
	}
	return nil
}

// Info returns the information of every shard with an active session.
func (c *Cluster) Info() map[uint64]shard.Information {
	info := make(map[uint64]shard.Information, len(c.shards))
	for id, s := range c.shards {
		if i, err := s.Info(); err == nil {
			info[id] = i
		}
	}
	return info
}

// Shard returns the shard with the given ID.
func (c *Cluster) Shard(id uint64) (*shard.Shard, bool) {
	s, ok := c.shards[id]
	return s, ok
}

// Shards returns the shards in ID order.
func (c *Cluster) Shards() []*shard.Shard {
	out := make([]*shard.Shard, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.shards[id])
	}
	return out
}

// ShardIDs returns the IDs of the shards in the cluster.
func (c *Cluster) ShardIDs() []uint64 {
	out := make([]uint64, len(c.ids))
	copy(out, c.ids)
	return out
}

// Queue returns the identify queue shared by the shards.
func (c *Cluster) Queue() queue.Queue {
	return c.config.queue
}

// Down shuts every shard down with code 1000.
func (c *Cluster) Down() {
	var g errgroup.Group
	for _, s := range c.shards {
		g.Go(func() error {
			s.Shutdown()
			return nil
		})
	}
	_ = g.Wait()
	c.downOnce.Do(func() { close(c.done) })
}

// DownResumable shuts every shard down with code 4000 and returns the
// sessions that can be passed to WithResumeSessions.
func (c *Cluster) DownResumable() map[uint64]*shard.ResumeSession {
	var (
		mu       sync.Mutex
		g        errgroup.Group
		sessions = make(map[uint64]*shard.ResumeSession)
	)
	for _, s := range c.shards {
		g.Go(func() error {
			id, resume := s.ShutdownResumable()
			if resume != nil {
				mu.Lock()
				sessions[id] = resume
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	c.downOnce.Do(func() { close(c.done) })
	return sessions
}
