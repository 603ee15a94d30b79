package shard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gatewire/gateway/pkg/command"
	"github.com/gatewire/gateway/pkg/core"
	"github.com/gatewire/gateway/pkg/core/events"
	"github.com/gatewire/gateway/pkg/encoding"
	"github.com/gatewire/gateway/pkg/transport"
)

// maxHeartbeatInterval is the longest Hello interval in milliseconds that
// fits a time.Duration.
const maxHeartbeatInterval = uint64(math.MaxInt64 / int64(time.Millisecond))

var (
	errReconnectRequested = errors.New("gateway requested a reconnect")
	errZombied            = errors.New("connection zombied")
)

// processor owns the connection of a running shard. It reads and handles
// payloads, and reconnects until it is shut down or the gateway closes the
// connection with a fatal code.
type processor struct {
	config *Config
	log    *logrus.Entry
	dialer *transport.Dialer
	url    string
	events *Events

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	mu         sync.RWMutex
	session    *session
	closeFrame CloseFrame
	last       *ResumeSession

	shutdownOnce sync.Once
}

func newProcessor(config *Config, stream *Events, target string) *processor {
	ctx, cancel := context.WithCancel(context.Background())
	return &processor{
		config:     config,
		log:        config.logger,
		dialer:     transport.NewDialer(config.tls),
		url:        target,
		events:     stream,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		closeFrame: CloseFrameNormal,
	}
}

// connectURL adds the protocol version and encoding to a gateway URL.
func connectURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("gateway URL has no host")
	}
	if u.Path == "" {
		u.Path = "/"
	}
	q := u.Query()
	q.Set("v", strconv.Itoa(encoding.APIVersion))
	q.Set("encoding", "json")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (p *processor) currentSession() *session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session
}

func (p *processor) setSession(sess *session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = sess
}

// connect dials the gateway and creates a session, resuming the given one
// when it is not nil. The connecting event is delivered through emit.
func (p *processor) connect(ctx context.Context, resume *ResumeSession, emit func(events.Event)) (*session, error) {
	target := p.url
	if resume != nil && resume.GatewayURL != "" {
		if resumeURL, err := connectURL(resume.GatewayURL); err == nil {
			target = resumeURL
		} else {
			p.log.WithError(err).Warn("ignoring invalid resume gateway URL")
		}
	}

	emit(events.NewShardConnectingEvent(p.config.shardID.ID(), target))
	conn, err := p.dialer.Dial(ctx, target)
	if err != nil && target != p.url {
		p.log.WithError(err).Warn("resume gateway unreachable, falling back to the gateway URL")
		target = p.url
		conn, err = p.dialer.Dial(ctx, target)
	}
	if err != nil {
		return nil, err
	}

	sess := newSession(p.ctx, conn, p.config.ratelimit, p.log, resume)
	p.setSession(sess)
	p.log.WithField("gateway", target).Debug("connected to gateway")
	return sess, nil
}

// reconnect dials until it succeeds or the processor is shut down.
func (p *processor) reconnect(resume *ResumeSession) (*session, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.reconnectInitial
	b.MaxInterval = p.config.reconnectMax

	return backoff.Retry(p.ctx, func() (*session, error) {
		sess, err := p.connect(p.ctx, resume, p.emit)
		if err != nil {
			p.log.WithError(err).Warn("reconnect attempt failed")
			return nil, err
		}
		return sess, nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(0))
}

// run serves sessions until shutdown or a fatal close.
func (p *processor) run(sess *session) {
	defer func() {
		p.cancel()
		p.wg.Wait()
		p.events.close()
		close(p.done)
	}()

	id := p.config.shardID.ID()
	for {
		err := p.serve(sess)
		resume := sess.resumeInfo()
		p.setSession(nil)

		if p.ctx.Err() != nil {
			p.mu.Lock()
			frame := p.closeFrame
			p.last = resume
			p.mu.Unlock()

			sess.closeWith(frame)
			p.emitNoWait(events.NewShardDisconnectedEvent(id, &frame.Code, frame.Reason))
			p.log.WithField("code", frame.Code).Info("shard shut down")
			return
		}
		sess.closeWith(CloseFrameResume)

		code, reason, fatal, resumable := classify(err)
		p.emit(events.NewShardDisconnectedEvent(id, code, reason))
		if fatal {
			p.log.WithError(err).Error("gateway closed the connection with a fatal code, stopping shard")
			return
		}
		if !resumable {
			resume = nil
		}

		p.log.WithError(err).WithField("resume", resume != nil).Info("connection lost, reconnecting")
		p.emit(events.NewShardReconnectingEvent(id))
		next, err := p.reconnect(resume)
		if err != nil {
			p.mu.Lock()
			p.last = resume
			p.mu.Unlock()
			return
		}
		sess = next
	}
}

// serve handles one connection until it ends.
func (p *processor) serve(sess *session) error {
	frames := make(chan frame)
	go sess.readLoop(frames)
	go sess.writeLoop()

	for {
		select {
		case <-sess.ctx.Done():
			if sess.zombied.Load() {
				return errZombied
			}
			return core.ErrSessionClosed
		case f := <-frames:
			if f.err != nil {
				if sess.zombied.Load() {
					return errZombied
				}
				return f.err
			}
			if err := p.handleFrame(sess, f); err != nil {
				return err
			}
		}
	}
}

// classify turns the error that ended a connection into the disconnect
// event fields and the reconnect decision.
func classify(err error) (code *int, reason string, fatal, resumable bool) {
	var closeErr *websocket.CloseError
	switch {
	case errors.As(err, &closeErr):
		c := closeErr.Code
		return &c, closeErr.Text, encoding.CloseCode(c).Fatal(), encoding.CloseCode(c).Resumable()
	case errors.Is(err, errZombied):
		c := int(encoding.CloseResume)
		return &c, "zombied connection", false, true
	case errors.Is(err, errReconnectRequested):
		c := int(encoding.CloseResume)
		return &c, "gateway requested a reconnect", false, true
	case err == nil:
		return nil, "", false, true
	default:
		return nil, err.Error(), false, true
	}
}

func (p *processor) handleFrame(sess *session, f frame) error {
	data := f.data
	if f.kind == websocket.BinaryMessage {
		inflated, err := encoding.Inflate(data)
		if err != nil {
			return err
		}
		data = inflated
	}

	p.emit(events.NewShardPayloadEvent(data))

	payload, err := encoding.Decode(data)
	if err != nil {
		p.log.WithError(err).Warn("skipping undecodable payload")
		return nil
	}

	switch payload.Op {
	case encoding.OpDispatch:
		p.handleDispatch(sess, payload)
	case encoding.OpHeartbeat:
		p.log.Debug("gateway requested a heartbeat")
		if err := sess.heartbeat(); err != nil {
			return err
		}
		p.emit(events.NewGatewayHeartbeatEvent(sess.seq.Load()))
	case encoding.OpHeartbeatAck:
		sess.acknowledge()
		p.emit(events.NewGatewayHeartbeatAckEvent())
	case encoding.OpHello:
		var hello encoding.Hello
		if err := payload.DecodeData(&hello); err != nil {
			return err
		}
		if hello.HeartbeatInterval == 0 || hello.HeartbeatInterval > maxHeartbeatInterval {
			return &core.ProtocolError{
				Operation: "hello",
				Code:      int(encoding.CloseDecodeError),
				Err:       fmt.Errorf("heartbeat interval %dms out of range", hello.HeartbeatInterval),
			}
		}
		interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond
		p.log.WithField("interval", interval).Debug("received hello")

		sess.configureRatelimit(interval)
		sess.startHeartbeating(interval)
		p.emit(events.NewGatewayHelloEvent(interval))
		p.goSession(func() { p.authenticate(sess) })
	case encoding.OpInvalidSession:
		var resumable bool
		if err := payload.DecodeData(&resumable); err != nil {
			p.log.WithError(err).Debug("invalid session without a flag, treating as not resumable")
		}
		p.log.WithField("resumable", resumable).Info("session invalidated")
		p.emit(events.NewGatewayInvalidateSessionEvent(resumable))

		if resume := sess.resumeInfo(); resumable && resume != nil {
			p.goSession(func() { p.resume(sess, resume) })
			break
		}
		sess.invalidate()
		p.goSession(func() {
			timer := time.NewTimer(p.config.reidentifyDelay())
			defer timer.Stop()
			select {
			case <-sess.ctx.Done():
				return
			case <-timer.C:
			}
			p.identify(sess)
		})
	case encoding.OpReconnect:
		p.log.Info("gateway requested a reconnect")
		p.emit(events.NewGatewayReconnectEvent())
		return errReconnectRequested
	default:
		p.log.WithField("op", payload.Op).Debug("ignoring payload with unknown opcode")
	}
	return nil
}

func (p *processor) handleDispatch(sess *session, payload *encoding.Payload) {
	var seq uint64
	if payload.S != nil {
		seq = *payload.S
		sess.seq.Store(seq)
	}

	event, err := events.ParseDispatch(payload.EventName(), seq, payload.D)
	if err != nil {
		p.log.WithError(err).WithField("event", payload.EventName()).Warn("skipping undecodable dispatch")
		return
	}

	id := p.config.shardID.ID()
	switch e := event.(type) {
	case *events.ReadyEvent:
		sess.setSession(e.SessionID, e.ResumeGatewayURL)
		sess.setStage(StageConnected)
		p.log.WithField("session_id", e.SessionID).Info("shard ready")
		p.emit(e)
		p.emit(events.NewShardConnectedEvent(id))
	case *events.ResumedEvent:
		sess.setStage(StageConnected)
		p.log.WithField("seq", seq).Info("shard resumed")
		p.emit(e)
		p.emit(events.NewShardConnectedEvent(id))
	default:
		p.emit(event)
	}
}

// authenticate resumes when the session is known and identifies otherwise.
func (p *processor) authenticate(sess *session) {
	if resume := sess.resumeInfo(); resume != nil {
		p.resume(sess, resume)
		return
	}
	p.identify(sess)
}

func (p *processor) identify(sess *session) {
	sess.setStage(StageIdentifying)
	shardID := p.config.shardID

	if err := p.config.queue.Request(sess.ctx, shardID); err != nil {
		if sess.ctx.Err() == nil {
			p.log.WithError(err).Warn("identify queue failed, reconnecting")
			sess.closeWith(CloseFrameResume)
		}
		return
	}

	p.emit(events.NewShardIdentifyingEvent(shardID.ID(), shardID.Total()))
	if err := sendCommand(sess.ctx, sess, p.config.identify()); err != nil {
		p.log.WithError(err).Warn("failed to send identify")
		return
	}
	p.log.Debug("sent identify")
}

func (p *processor) resume(sess *session, resume *ResumeSession) {
	sess.setStage(StageResuming)
	p.emit(events.NewShardResumingEvent(p.config.shardID.ID(), resume.Sequence))

	cmd := &command.Resume{
		Token:     p.config.token,
		SessionID: resume.SessionID,
		Seq:       resume.Sequence,
	}
	if err := sendCommand(sess.ctx, sess, cmd); err != nil {
		p.log.WithError(err).Warn("failed to send resume")
		return
	}
	p.log.WithField("seq", resume.Sequence).Debug("sent resume")
}

// goSession runs fn in a goroutine that may emit events; run waits for it
// before closing the stream.
func (p *processor) goSession(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn()
	}()
}

// emit delivers an event if its type is enabled. It blocks while the
// stream is full, until the processor stops.
func (p *processor) emit(event events.Event) {
	if !p.config.eventTypes.Contains(event.Type()) {
		return
	}
	select {
	case p.events.ch <- event:
	case <-p.ctx.Done():
	}
}

// emitNoWait delivers an event only if the stream has room.
func (p *processor) emitNoWait(event events.Event) {
	if !p.config.eventTypes.Contains(event.Type()) {
		return
	}
	select {
	case p.events.ch <- event:
	default:
	}
}

// shutdown closes the connection with frame, waits for the processor to
// stop and returns the session left behind, if any.
func (p *processor) shutdown(frame CloseFrame) *ResumeSession {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closeFrame = frame
		p.mu.Unlock()
		p.cancel()
	})
	<-p.done

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// sendCommand waits for a rate limit slot and queues a command.
func sendCommand(ctx context.Context, sess *session, cmd command.Command) error {
	data, err := command.Marshal(cmd)
	if err != nil {
		return &CommandError{Kind: CommandErrorSerializing, Err: err}
	}
	if sess.ctx.Err() != nil {
		return &CommandError{Kind: CommandErrorSending, Err: core.ErrSessionClosed}
	}
	if err := sess.waitRatelimit(ctx); err != nil {
		if sess.ctx.Err() != nil {
			return &CommandError{Kind: CommandErrorSending, Err: core.ErrSessionClosed}
		}
		return &CommandError{Kind: CommandErrorRatelimited, Err: err}
	}
	if err := sess.send(ctx, TextMessage(data)); err != nil {
		return &CommandError{Kind: CommandErrorSending, Err: err}
	}
	return nil
}
