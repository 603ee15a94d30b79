package shard

import (
	"math/rand"
	"time"
)

// startHeartbeating runs the heartbeat loop once per session.
func (s *session) startHeartbeating(interval time.Duration) {
	if !s.heartbeating.CompareAndSwap(false, true) {
		return
	}
	go s.heartbeatLoop(interval)
}

// heartbeatLoop sends the first heartbeat after a random fraction of the
// interval, then one per interval. A heartbeat that comes due while the
// previous one is unacknowledged means the connection is zombied.
func (s *session) heartbeatLoop(interval time.Duration) {
	timer := time.NewTimer(time.Duration(rand.Int63n(int64(interval))))
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}

		if s.ackPending.Load() {
			s.log.Warn("heartbeat not acknowledged, connection zombied")
			s.zombied.Store(true)
			s.closeWith(CloseFrameResume)
			return
		}

		if err := s.heartbeat(); err != nil {
			s.log.WithError(err).Debug("heartbeat failed")
			return
		}
		s.log.Debug("sent heartbeat")
		timer.Reset(interval)
	}
}
