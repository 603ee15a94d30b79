package shard

import (
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gatewire/gateway/pkg/command"
	"github.com/gatewire/gateway/pkg/core"
	"github.com/gatewire/gateway/pkg/core/events"
	"github.com/gatewire/gateway/pkg/queue"
	"github.com/gatewire/gateway/pkg/transport"
)

// Large threshold bounds accepted by the gateway.
const (
	MinLargeThreshold     = 50
	MaxLargeThreshold     = 250
	DefaultLargeThreshold = MinLargeThreshold
)

// DefaultEventBuffer is the capacity of the event stream.
const DefaultEventBuffer = 128

// Config is the configuration of a shard. It is immutable once built; use
// NewConfig with options to create one.
type Config struct {
	token          string
	intents        core.Intents
	gatewayURL     string
	largeThreshold uint64
	shardID        core.ShardID
	presence       *command.UpdatePresence
	properties     command.IdentifyProperties
	queue          queue.Queue
	eventTypes     events.EventTypeFlags
	resume         *ResumeSession
	compress       bool
	ratelimit      bool
	eventBuffer    int

	httpClient *http.Client
	apiBase    string
	tls        *transport.TLSContainer
	logger     *logrus.Entry

	reconnectInitial time.Duration
	reconnectMax     time.Duration
	reidentifyDelay  func() time.Duration
}

// Option configures a shard.
type Option func(*Config) error

// NewConfig creates a configuration for the given token and intents.
func NewConfig(token string, intents core.Intents, opts ...Option) (*Config, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bot "))
	if token == "" {
		return nil, &core.ConfigError{
			Field: "token",
			Value: "",
			Err:   errors.New("token cannot be empty"),
		}
	}

	c := &Config{
		token:            token,
		intents:          intents,
		largeThreshold:   DefaultLargeThreshold,
		shardID:          core.DefaultShardID(),
		properties:       command.DefaultIdentifyProperties(),
		eventTypes:       events.FlagsDefault,
		ratelimit:        true,
		eventBuffer:      DefaultEventBuffer,
		reconnectInitial: time.Second,
		reconnectMax:     2 * time.Minute,
		reidentifyDelay:  defaultReidentifyDelay,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.queue == nil {
		c.queue = queue.NewLocalQueue(queue.DefaultInterval)
	}
	if c.logger == nil {
		c.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	c.logger = c.logger.WithFields(logrus.Fields{
		"shard_id":    c.shardID.ID(),
		"shard_total": c.shardID.Total(),
	})

	return c, nil
}

// defaultReidentifyDelay waits between one and five seconds after a
// non-resumable invalid session.
func defaultReidentifyDelay() time.Duration {
	return time.Second + time.Duration(rand.Int63n(int64(4*time.Second)))
}

// WithGatewayURL sets the gateway URL, skipping the bot gateway lookup.
func WithGatewayURL(url string) Option {
	return func(c *Config) error {
		c.gatewayURL = url
		return nil
	}
}

// WithLargeThreshold sets the member count above which a guild is
// considered large and sent without offline members.
func WithLargeThreshold(threshold uint64) Option {
	return func(c *Config) error {
		switch {
		case threshold < MinLargeThreshold:
			return &LargeThresholdError{Kind: LargeThresholdTooFew, Value: threshold}
		case threshold > MaxLargeThreshold:
			return &LargeThresholdError{Kind: LargeThresholdTooMany, Value: threshold}
		}
		c.largeThreshold = threshold
		return nil
	}
}

// WithShard sets the shard ID out of total.
func WithShard(id, total uint64) Option {
	return func(c *Config) error {
		if id >= total {
			return &ShardIDError{Kind: ShardIDTooLarge, ID: id, Total: total}
		}
		c.shardID = core.NewShardID(id, total)
		return nil
	}
}

// WithPresence sets the presence sent in Identify.
func WithPresence(presence *command.UpdatePresence) Option {
	return func(c *Config) error {
		if presence != nil {
			if err := presence.Validate(); err != nil {
				return &core.ConfigError{Field: "presence", Value: presence.Status, Err: err}
			}
		}
		c.presence = presence
		return nil
	}
}

// WithIdentifyProperties sets the client properties sent in Identify.
func WithIdentifyProperties(properties command.IdentifyProperties) Option {
	return func(c *Config) error {
		c.properties = properties
		return nil
	}
}

// WithQueue sets the identify queue. Shards sharing a token should share a
// queue.
func WithQueue(q queue.Queue) Option {
	return func(c *Config) error {
		if q == nil {
			return &core.ConfigError{Field: "queue", Value: nil, Err: errors.New("queue cannot be nil")}
		}
		c.queue = q
		return nil
	}
}

// WithEventTypes sets which events are emitted.
func WithEventTypes(flags events.EventTypeFlags) Option {
	return func(c *Config) error {
		c.eventTypes = flags
		return nil
	}
}

// WithResumeSession makes the first connection resume the given session
// instead of identifying.
func WithResumeSession(resume *ResumeSession) Option {
	return func(c *Config) error {
		if resume != nil && resume.SessionID == "" {
			return &core.ConfigError{Field: "resume", Value: resume, Err: errors.New("session ID cannot be empty")}
		}
		c.resume = resume
		return nil
	}
}

// WithCompression asks the gateway to zlib-compress payloads.
func WithCompression(enabled bool) Option {
	return func(c *Config) error {
		c.compress = enabled
		return nil
	}
}

// WithCommandRatelimit toggles local command rate limiting. Disabling it
// risks the gateway closing the connection with 4008.
func WithCommandRatelimit(enabled bool) Option {
	return func(c *Config) error {
		c.ratelimit = enabled
		return nil
	}
}

// WithEventBuffer sets the capacity of the event stream. With a size of 0
// every event waits for a reader, so the stream must be read concurrently
// with the shard running.
func WithEventBuffer(size int) Option {
	return func(c *Config) error {
		if size < 0 {
			return &core.ConfigError{Field: "eventBuffer", Value: size, Err: errors.New("buffer size cannot be negative")}
		}
		c.eventBuffer = size
		return nil
	}
}

// WithHTTPClient sets the client used for the bot gateway lookup.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) error {
		c.httpClient = client
		return nil
	}
}

// WithAPIBase sets the REST API root used for the bot gateway lookup.
func WithAPIBase(base string) Option {
	return func(c *Config) error {
		c.apiBase = base
		return nil
	}
}

// WithTLSContainer sets the TLS configuration shared between shards.
func WithTLSContainer(tlsContainer *transport.TLSContainer) Option {
	return func(c *Config) error {
		c.tls = tlsContainer
		return nil
	}
}

// WithLogger sets the logger. Shard fields are added to it.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// WithReconnectBackoff sets the bounds of the exponential backoff between
// reconnect attempts.
func WithReconnectBackoff(initial, maxDelay time.Duration) Option {
	return func(c *Config) error {
		if initial <= 0 || maxDelay < initial {
			return &core.ConfigError{
				Field: "reconnectBackoff",
				Value: [2]time.Duration{initial, maxDelay},
				Err:   errors.New("initial must be positive and not above max"),
			}
		}
		c.reconnectInitial = initial
		c.reconnectMax = maxDelay
		return nil
	}
}

// Token returns the token without a "Bot " prefix.
func (c *Config) Token() string { return c.token }

// Intents returns the gateway intents.
func (c *Config) Intents() core.Intents { return c.intents }

// GatewayURL returns the configured gateway URL, or "" if it is looked up.
func (c *Config) GatewayURL() string { return c.gatewayURL }

// LargeThreshold returns the large guild threshold.
func (c *Config) LargeThreshold() uint64 { return c.largeThreshold }

// ShardID returns the shard ID.
func (c *Config) ShardID() core.ShardID { return c.shardID }

// Presence returns the initial presence, or nil.
func (c *Config) Presence() *command.UpdatePresence { return c.presence }

// Queue returns the identify queue.
func (c *Config) Queue() queue.Queue { return c.queue }

// EventTypes returns the emitted event types.
func (c *Config) EventTypes() events.EventTypeFlags { return c.eventTypes }

// ResumeSession returns the session resumed on the first connection, or nil.
func (c *Config) ResumeSession() *ResumeSession { return c.resume }

// Compression reports whether payload compression is requested.
func (c *Config) Compression() bool { return c.compress }

// identify builds the Identify command for this configuration.
func (c *Config) identify() *command.Identify {
	return &command.Identify{
		Token:          c.token,
		Properties:     c.properties,
		Compress:       c.compress,
		LargeThreshold: c.largeThreshold,
		Shard:          c.shardID,
		Presence:       c.presence,
		Intents:        c.intents,
	}
}
