package cluster

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/gatewire/gateway/pkg/core"
	"github.com/gatewire/gateway/pkg/queue"
	"github.com/gatewire/gateway/pkg/shard"
	"github.com/gatewire/gateway/pkg/transport"
)

// Scheme selects the shards a cluster runs.
type Scheme struct {
	auto  bool
	From  uint64
	To    uint64
	Total uint64
}

// Auto runs the shard count recommended by the bot gateway lookup.
func Auto() Scheme {
	return Scheme{auto: true}
}

// Range runs shards From through To inclusive out of Total.
func Range(from, to, total uint64) Scheme {
	return Scheme{From: from, To: to, Total: total}
}

// IsAuto reports whether the scheme uses the recommended shard count.
func (s Scheme) IsAuto() bool {
	return s.auto
}

func (s Scheme) validate() error {
	if s.auto {
		return nil
	}
	switch {
	case s.Total == 0:
		return errors.New("total must be positive")
	case s.From > s.To:
		return fmt.Errorf("range start %d is after its end %d", s.From, s.To)
	case s.To >= s.Total:
		return fmt.Errorf("range end %d is not below the total %d", s.To, s.Total)
	}
	return nil
}

// Config is the configuration of a cluster.
type Config struct {
	scheme       Scheme
	gatewayURL   string
	queue        queue.Queue
	shardOptions []shard.Option
	resume       map[uint64]*shard.ResumeSession
	httpClient   *http.Client
	apiBase      string
	tls          *transport.TLSContainer
	logger       *logrus.Entry
	eventBuffer  int
}

// Option configures a cluster.
type Option func(*Config) error

// WithScheme sets the shards to run. The default is Auto.
func WithScheme(scheme Scheme) Option {
	return func(c *Config) error {
		c.scheme = scheme
		return nil
	}
}

// WithGatewayURL sets the gateway URL. With a Range scheme this skips the
// bot gateway lookup.
func WithGatewayURL(url string) Option {
	return func(c *Config) error {
		c.gatewayURL = url
		return nil
	}
}

// WithQueue sets the identify queue shared by every shard.
func WithQueue(q queue.Queue) Option {
	return func(c *Config) error {
		c.queue = q
		return nil
	}
}

// WithShardOptions sets options applied to every shard. The shard ID,
// queue, gateway URL and TLS container are always set by the cluster.
func WithShardOptions(opts ...shard.Option) Option {
	return func(c *Config) error {
		c.shardOptions = append(c.shardOptions, opts...)
		return nil
	}
}

// WithResumeSessions resumes shards from sessions returned by DownResumable.
func WithResumeSessions(sessions map[uint64]*shard.ResumeSession) Option {
	return func(c *Config) error {
		c.resume = sessions
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

// WithTLSContainer sets the TLS configuration shared by every shard.
func WithTLSContainer(tlsContainer *transport.TLSContainer) Option {
	return func(c *Config) error {
		c.tls = tlsContainer
		return nil
	}
}

// WithLogger sets the logger of the cluster and its shards.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// WithEventBuffer sets the capacity of the merged event stream.
func WithEventBuffer(size int) Option {
	return func(c *Config) error {
		if size < 0 {
			return &core.ConfigError{Field: "eventBuffer", Value: size, Err: errors.New("buffer size cannot be negative")}
		}
		c.eventBuffer = size
		return nil
	}
}
