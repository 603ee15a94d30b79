// Package queue schedules identifies so that shards sharing a token stay
// within the gateway's session start rate limit.
package queue

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/gatewire/gateway/pkg/core"
)

// DefaultInterval is the time the gateway requires between two identifies
// in the same bucket.
const DefaultInterval = 5 * time.Second

// Queue grants permission to identify. Request blocks until the shard may
// send its Identify or ctx is done.
type Queue interface {
	Request(ctx context.Context, shard core.ShardID) error
}

// LocalQueue allows one identify per interval for the whole process.
type LocalQueue struct {
	limiter *rate.Limiter
}

// NewLocalQueue creates a queue allowing one identify per interval. A
// non-positive interval uses DefaultInterval.
func NewLocalQueue(interval time.Duration) *LocalQueue {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &LocalQueue{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Request waits for the next identify slot.
func (q *LocalQueue) Request(ctx context.Context, shard core.ShardID) error {
	if err := q.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("identify queue for shard %s: %w", shard, err)
	}
	return nil
}

// LargeBotQueue spreads identifies over max_concurrency buckets. Shard id
// goes into bucket id % maxConcurrency and each bucket allows one identify
// per interval.
type LargeBotQueue struct {
	buckets []*rate.Limiter
}

// NewLargeBotQueue creates a bucketed queue. maxConcurrency comes from the
// session start limit of the bot gateway lookup.
func NewLargeBotQueue(maxConcurrency int, interval time.Duration) *LargeBotQueue {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	buckets := make([]*rate.Limiter, maxConcurrency)
	for i := range buckets {
		buckets[i] = rate.NewLimiter(rate.Every(interval), 1)
	}
	return &LargeBotQueue{buckets: buckets}
}

// Buckets returns the number of buckets.
func (q *LargeBotQueue) Buckets() int {
	return len(q.buckets)
}

// Request waits for the next slot in the shard's bucket.
func (q *LargeBotQueue) Request(ctx context.Context, shard core.ShardID) error {
	bucket := q.buckets[shard.ID()%uint64(len(q.buckets))]
	if err := bucket.Wait(ctx); err != nil {
		return fmt.Errorf("identify queue for shard %s: %w", shard, err)
	}
	return nil
}

// NoopQueue never waits. It is meant for tests and for gateways that don't
// limit session starts.
type NoopQueue struct{}

// Request returns immediately unless ctx is already done.
func (NoopQueue) Request(ctx context.Context, _ core.ShardID) error {
	return ctx.Err()
}
