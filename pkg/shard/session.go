package shard

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/gatewire/gateway/pkg/command"
	"github.com/gatewire/gateway/pkg/core"
)

// CommandsPerMinute is the number of payloads the gateway accepts per
// connection per minute, heartbeats included.
const CommandsPerMinute = 120

const writeTimeout = 10 * time.Second

// ResumeSession is the data needed to reattach an existing session after a
// disconnect.
type ResumeSession struct {
	SessionID string
	Sequence  uint64
	// GatewayURL is the URL to resume on, "" for the configured one
	GatewayURL string
}

// frame is one message read from the connection, or the read error that
// ended it.
type frame struct {
	kind int
	data []byte
	err  error
}

// session is the state of one WebSocket connection. The session ID and
// sequence are copied into the next session when it resumes.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	conn   *websocket.Conn
	tx     chan Message
	log    *logrus.Entry

	mu        sync.RWMutex
	id        string
	resumeURL string

	seq     atomic.Uint64
	stage   atomic.Uint32
	latency latencyTracker

	ratelimit bool
	limiter   atomic.Pointer[rate.Limiter]

	heartbeating atomic.Bool
	ackPending   atomic.Bool
	zombied      atomic.Bool

	closeOnce sync.Once
}

func newSession(parent context.Context, conn *websocket.Conn, ratelimit bool, log *logrus.Entry, resume *ResumeSession) *session {
	ctx, cancel := context.WithCancel(parent)
	s := &session{
		ctx:       ctx,
		cancel:    cancel,
		conn:      conn,
		tx:        make(chan Message),
		log:       log,
		ratelimit: ratelimit,
	}
	if resume != nil {
		s.id = resume.SessionID
		s.resumeURL = resume.GatewayURL
		s.seq.Store(resume.Sequence)
	}
	s.setStage(StageHandshaking)
	return s
}

func (s *session) sessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *session) setSession(id, resumeURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.resumeURL = resumeURL
}

// invalidate forgets the session so the next authentication identifies.
func (s *session) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	s.resumeURL = ""
	s.seq.Store(0)
}

// resumeInfo returns the data needed to resume, or nil without a session.
func (s *session) resumeInfo() *ResumeSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.id == "" {
		return nil
	}
	return &ResumeSession{
		SessionID:  s.id,
		Sequence:   s.seq.Load(),
		GatewayURL: s.resumeURL,
	}
}

func (s *session) getStage() Stage {
	return Stage(s.stage.Load())
}

func (s *session) setStage(stage Stage) {
	s.stage.Store(uint32(stage))
}

// configureRatelimit installs the command limiter for a heartbeat interval.
// The heartbeats needed in a minute are reserved from the allotment.
func (s *session) configureRatelimit(interval time.Duration) {
	if !s.ratelimit {
		return
	}
	s.limiter.Store(commandLimiter(interval))
}

func commandLimiter(interval time.Duration) *rate.Limiter {
	reserved := int(math.Ceil(float64(time.Minute) / float64(interval)))
	allotted := CommandsPerMinute - reserved
	if allotted < 1 {
		allotted = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(allotted)), allotted)
}

// waitRatelimit blocks until a command may be sent. Before Hello there is
// no limiter and commands pass through.
func (s *session) waitRatelimit(ctx context.Context) error {
	limiter := s.limiter.Load()
	if limiter == nil {
		return nil
	}
	ctx, cancel := mergeDone(ctx, s.ctx)
	defer cancel()
	return limiter.Wait(ctx)
}

// send hands a message to the writer. It fails once the session is closed.
func (s *session) send(ctx context.Context, msg Message) error {
	if s.ctx.Err() != nil {
		return core.ErrSessionClosed
	}
	select {
	case s.tx <- msg:
		return nil
	case <-s.ctx.Done():
		return core.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// heartbeat sends a heartbeat with the current sequence, bypassing the
// command limiter.
func (s *session) heartbeat() error {
	var seq *uint64
	if v := s.seq.Load(); v > 0 {
		seq = &v
	}
	data, err := command.Marshal(&command.Heartbeat{Seq: seq})
	if err != nil {
		return err
	}
	s.ackPending.Store(true)
	s.latency.trackSent(time.Now())
	return s.send(s.ctx, TextMessage(data))
}

func (s *session) acknowledge() {
	s.ackPending.Store(false)
	s.latency.trackReceived(time.Now())
}

// readLoop forwards frames until the connection fails.
func (s *session) readLoop(out chan<- frame) {
	for {
		kind, data, err := s.conn.ReadMessage()
		select {
		case out <- frame{kind: kind, data: data, err: err}:
		case <-s.ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// writeLoop is the only writer of data frames on the connection.
func (s *session) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.tx:
			if s.ctx.Err() != nil {
				return
			}
			if err := s.write(msg); err != nil {
				s.log.WithError(err).Debug("write failed, closing connection")
				s.conn.Close()
				return
			}
		}
	}
}

func (s *session) write(msg Message) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	switch msg.Kind {
	case MessageText:
		return s.conn.WriteMessage(websocket.TextMessage, msg.Data)
	case MessageClose:
		frame := CloseFrameNormal
		if msg.Close != nil {
			frame = *msg.Close
		}
		return s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(frame.Code, frame.Reason))
	default:
		return fmt.Errorf("unknown message kind %d", msg.Kind)
	}
}

// closeWith sends a close frame without going through the writer, then
// tears the connection down.
func (s *session) closeWith(frame CloseFrame) {
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(frame.Code, frame.Reason), deadline)
	s.close()
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		s.setStage(StageDisconnected)
		s.cancel()
		s.conn.Close()
	})
}

// mergeDone returns a context that is done when either a or b is.
func mergeDone(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
