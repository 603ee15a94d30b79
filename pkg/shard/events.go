package shard

import (
	"context"
	"sync"

	"github.com/gatewire/gateway/pkg/core"
	"github.com/gatewire/gateway/pkg/core/events"
)

// Events is the stream of events emitted by a shard. It is closed when the
// shard is shut down or stops after a fatal close code.
type Events struct {
	ch   chan events.Event
	once sync.Once
}

func newEvents(buffer int) *Events {
	return &Events{ch: make(chan events.Event, buffer)}
}

// Next returns the next event. It returns core.ErrStreamClosed once the
// stream is closed and drained.
func (e *Events) Next(ctx context.Context) (events.Event, error) {
	select {
	case event, ok := <-e.ch:
		if !ok {
			return nil, core.ErrStreamClosed
		}
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Chan returns the underlying channel for use in select statements.
func (e *Events) Chan() <-chan events.Event {
	return e.ch
}

func (e *Events) close() {
	e.once.Do(func() { close(e.ch) })
}
