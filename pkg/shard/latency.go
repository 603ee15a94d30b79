package shard

import (
	"sync"
	"time"
)

// recentLatencies is the number of latencies kept for Recent.
const recentLatencies = 5

// Latency is a snapshot of a session's heartbeat latency.
type Latency struct {
	average    time.Duration
	heartbeats uint32
	recent     []time.Duration
	sent       time.Time
	received   time.Time
}

// Average returns the mean latency of every acknowledged heartbeat of the
// session. ok is false before the first acknowledgement.
func (l Latency) Average() (avg time.Duration, ok bool) {
	return l.average, l.heartbeats > 0
}

// Heartbeats returns the number of acknowledged heartbeats.
func (l Latency) Heartbeats() uint32 {
	return l.heartbeats
}

// Recent returns up to the last five latencies, oldest first.
func (l Latency) Recent() []time.Duration {
	out := make([]time.Duration, len(l.recent))
	copy(out, l.recent)
	return out
}

// Sent returns when the last heartbeat was sent, or the zero time.
func (l Latency) Sent() time.Time {
	return l.sent
}

// Received returns when the last acknowledgement arrived, or the zero time.
func (l Latency) Received() time.Time {
	return l.received
}

// latencyTracker records heartbeat round trips of one session.
type latencyTracker struct {
	mu         sync.Mutex
	heartbeats uint32
	total      time.Duration
	recent     []time.Duration
	sent       time.Time
	received   time.Time
}

func (t *latencyTracker) trackSent(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = now
}

func (t *latencyTracker) trackReceived(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.received = now
	// An ack without a heartbeat carries no round trip.
	if t.sent.IsZero() {
		return
	}
	d := now.Sub(t.sent)
	if d < 0 {
		d = 0
	}

	t.heartbeats++
	t.total += d
	if len(t.recent) == recentLatencies {
		copy(t.recent, t.recent[1:])
		t.recent = t.recent[:recentLatencies-1]
	}
	t.recent = append(t.recent, d)
}

func (t *latencyTracker) snapshot() Latency {
	t.mu.Lock()
	defer t.mu.Unlock()

	l := Latency{
		heartbeats: t.heartbeats,
		recent:     make([]time.Duration, len(t.recent)),
		sent:       t.sent,
		received:   t.received,
	}
	copy(l.recent, t.recent)
	if t.heartbeats > 0 {
		l.average = t.total / time.Duration(t.heartbeats)
	}
	return l
}
