package shard

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewire/gateway/internal/testutil"
	"github.com/gatewire/gateway/pkg/command"
	"github.com/gatewire/gateway/pkg/core"
	"github.com/gatewire/gateway/pkg/core/events"
	"github.com/gatewire/gateway/pkg/encoding"
	"github.com/gatewire/gateway/pkg/queue"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newTestShard(t *testing.T, gw *testutil.Gateway, opts ...Option) (*Shard, *Events) {
	t.Helper()

	base := []Option{
		WithGatewayURL(gw.URL()),
		WithQueue(queue.NoopQueue{}),
		WithLogger(testLogger()),
		WithReconnectBackoff(10*time.Millisecond, 50*time.Millisecond),
	}
	cfg, err := NewConfig("Bot test-token", core.IntentGuilds, append(base, opts...)...)
	require.NoError(t, err)
	cfg.reidentifyDelay = func() time.Duration { return 0 }

	s, stream := New(cfg)
	t.Cleanup(s.Shutdown)
	return s, stream
}

func waitFor(t *testing.T, stream *Events, eventType events.EventType) events.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testutil.DefaultTimeout)
	defer cancel()

	for {
		event, err := stream.Next(ctx)
		require.NoError(t, err, "waiting for %s", eventType)
		if event.Type() == eventType {
			return event
		}
	}
}

func waitClosed(t *testing.T, stream *Events) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testutil.DefaultTimeout)
	defer cancel()

	for {
		_, err := stream.Next(ctx)
		if errors.Is(err, core.ErrStreamClosed) {
			return
		}
		require.NoError(t, err, "waiting for the stream to close")
	}
}

// connectReady starts the shard and completes a fresh session with seq 1.
func connectReady(t *testing.T, gw *testutil.Gateway, s *Shard, stream *Events) *testutil.Conn {
	t.Helper()
	require.NoError(t, s.Start(context.Background()))

	conn := gw.Accept()
	conn.Expect(encoding.OpIdentify)
	require.NoError(t, conn.Ready(1, "session-1", gw.URL(), [2]uint64{0, 1}))
	waitFor(t, stream, events.EventTypeShardConnected)
	return conn
}

func TestShardIdentifiesAndBecomesReady(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw)

	require.NoError(t, s.Start(context.Background()))
	conn := gw.Accept()
	assert.Equal(t, "8", conn.Query.Get("v"))
	assert.Equal(t, "json", conn.Query.Get("encoding"))

	hello := waitFor(t, stream, events.EventTypeGatewayHello).(*events.GatewayHelloEvent)
	assert.Equal(t, time.Minute, hello.Interval)

	payload := conn.Expect(encoding.OpIdentify)
	var identify command.Identify
	require.NoError(t, payload.DecodeData(&identify))
	assert.Equal(t, "test-token", identify.Token)
	assert.Equal(t, core.NewShardID(0, 1), identify.Shard)
	assert.Equal(t, core.IntentGuilds, identify.Intents)
	assert.Equal(t, uint64(DefaultLargeThreshold), identify.LargeThreshold)

	require.NoError(t, conn.Ready(1, "session-1", gw.URL(), [2]uint64{0, 1}))
	ready := waitFor(t, stream, events.EventTypeReady).(*events.ReadyEvent)
	assert.Equal(t, "session-1", ready.SessionID)
	waitFor(t, stream, events.EventTypeShardConnected)

	info, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, "session-1", info.SessionID)
	assert.Equal(t, uint64(1), info.Seq)
	assert.Equal(t, StageConnected, info.Stage)

	s.Shutdown()
	assert.Equal(t, 1000, conn.WaitClosed())
	waitClosed(t, stream)

	_, err = s.Info()
	var inactive *SessionInactiveError
	assert.ErrorAs(t, err, &inactive)
}

func TestShardResumesAfterResumableClose(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw)
	conn := connectReady(t, gw, s, stream)

	require.NoError(t, conn.Dispatch("MESSAGE_CREATE", 2, map[string]any{"content": "hi"}))
	dispatch := waitFor(t, stream, events.EventTypeDispatch).(*events.DispatchEvent)
	assert.Equal(t, "MESSAGE_CREATE", dispatch.Name)
	assert.Equal(t, uint64(2), dispatch.Seq)

	conn.Close(int(encoding.CloseUnknownError), "unknown error")

	disconnected := waitFor(t, stream, events.EventTypeShardDisconnected).(*events.ShardDisconnectedEvent)
	require.NotNil(t, disconnected.Code)
	assert.Equal(t, int(encoding.CloseUnknownError), *disconnected.Code)
	waitFor(t, stream, events.EventTypeShardReconnecting)

	next := gw.Accept()
	payload := next.Expect(encoding.OpResume)
	var resume command.Resume
	require.NoError(t, payload.DecodeData(&resume))
	assert.Equal(t, "session-1", resume.SessionID)
	assert.Equal(t, uint64(2), resume.Seq)

	require.NoError(t, next.Dispatch("RESUMED", 3, map[string]any{}))
	waitFor(t, stream, events.EventTypeResumed)
	waitFor(t, stream, events.EventTypeShardConnected)

	info, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), info.Seq)
}

func TestShardReidentifiesAfterNonResumableClose(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw)
	conn := connectReady(t, gw, s, stream)

	conn.Close(int(encoding.CloseSessionTimedOut), "session timed out")
	waitFor(t, stream, events.EventTypeShardReconnecting)

	next := gw.Accept()
	next.Expect(encoding.OpIdentify)
}

func TestShardStopsOnFatalClose(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw)

	require.NoError(t, s.Start(context.Background()))
	conn := gw.Accept()
	conn.Expect(encoding.OpIdentify)
	conn.Close(int(encoding.CloseAuthenticationFailed), "authentication failed")

	disconnected := waitFor(t, stream, events.EventTypeShardDisconnected).(*events.ShardDisconnectedEvent)
	require.NotNil(t, disconnected.Code)
	assert.Equal(t, int(encoding.CloseAuthenticationFailed), *disconnected.Code)
	waitClosed(t, stream)

	err := s.Start(context.Background())
	var startErr *ShardStartError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, ShardStartAlreadyStarted, startErr.Kind)
}

func TestShardInvalidSession(t *testing.T) {
	t.Run("not resumable identifies again", func(t *testing.T) {
		gw := testutil.NewGateway(t, time.Minute)
		s, stream := newTestShard(t, gw)
		conn := connectReady(t, gw, s, stream)

		require.NoError(t, conn.Send(encoding.OpInvalidSession, false))
		invalid := waitFor(t, stream, events.EventTypeGatewayInvalidateSession).(*events.GatewayInvalidateSessionEvent)
		assert.False(t, invalid.Resumable)
		conn.Expect(encoding.OpIdentify)
	})

	t.Run("resumable resumes on the same connection", func(t *testing.T) {
		gw := testutil.NewGateway(t, time.Minute)
		s, stream := newTestShard(t, gw)
		conn := connectReady(t, gw, s, stream)

		require.NoError(t, conn.Send(encoding.OpInvalidSession, true))
		payload := conn.Expect(encoding.OpResume)
		var resume command.Resume
		require.NoError(t, payload.DecodeData(&resume))
		assert.Equal(t, "session-1", resume.SessionID)
	})
}

func TestShardReconnectRequest(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw)
	conn := connectReady(t, gw, s, stream)

	require.NoError(t, conn.Send(encoding.OpReconnect, nil))
	assert.Equal(t, int(encoding.CloseResume), conn.WaitClosed())
	waitFor(t, stream, events.EventTypeGatewayReconnect)

	next := gw.Accept()
	next.Expect(encoding.OpResume)
}

func TestShardZombiedConnection(t *testing.T) {
	gw := testutil.NewGateway(t, 100*time.Millisecond)
	gw.SetAutoAck(false)
	s, stream := newTestShard(t, gw)

	require.NoError(t, s.Start(context.Background()))
	conn := gw.Accept()
	conn.Expect(encoding.OpHeartbeat)
	assert.Equal(t, int(encoding.CloseResume), conn.WaitClosed())

	disconnected := waitFor(t, stream, events.EventTypeShardDisconnected).(*events.ShardDisconnectedEvent)
	assert.Equal(t, "zombied connection", disconnected.Reason)
	gw.Accept()
}

func TestShardAnswersHeartbeatRequest(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw)
	conn := connectReady(t, gw, s, stream)

	require.NoError(t, conn.Send(encoding.OpHeartbeat, nil))
	payload := conn.Expect(encoding.OpHeartbeat)
	assert.Equal(t, "1", string(payload.D))

	waitFor(t, stream, events.EventTypeGatewayHeartbeatAck)
	info, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), info.Latency.Heartbeats())
}

func TestShardCompressedPayloads(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw, WithCompression(true), WithEventTypes(events.FlagsAll))

	require.NoError(t, s.Start(context.Background()))
	conn := gw.Accept()
	payload := conn.Expect(encoding.OpIdentify)
	var identify command.Identify
	require.NoError(t, payload.DecodeData(&identify))
	assert.True(t, identify.Compress)

	require.NoError(t, conn.SendCompressed(encoding.OpHeartbeatAck, nil))
	waitFor(t, stream, events.EventTypeGatewayHeartbeatAck)
}

func TestShardEmitsRawPayloads(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw, WithEventTypes(events.FlagShardPayload))

	require.NoError(t, s.Start(context.Background()))
	gw.Accept()

	event := waitFor(t, stream, events.EventTypeShardPayload).(*events.ShardPayloadEvent)
	hello, err := encoding.Decode(event.Bytes)
	require.NoError(t, err)
	assert.Equal(t, encoding.OpHello, hello.Op)
}

func TestShardEventTypeFilter(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw, WithEventTypes(events.FlagsDispatch))

	require.NoError(t, s.Start(context.Background()))
	conn := gw.Accept()
	conn.Expect(encoding.OpIdentify)
	require.NoError(t, conn.Ready(1, "session-1", "", [2]uint64{0, 1}))

	ctx, cancel := context.WithTimeout(context.Background(), testutil.DefaultTimeout)
	defer cancel()
	event, err := stream.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, events.EventTypeReady, event.Type())
}

func TestShardCommand(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw)

	err := s.Command(context.Background(), command.NewUpdatePresence(command.StatusIdle))
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, CommandErrorSessionInactive, cmdErr.Kind)

	conn := connectReady(t, gw, s, stream)

	require.NoError(t, s.Command(context.Background(), command.NewUpdatePresence(command.StatusIdle)))
	payload := conn.Expect(encoding.OpPresenceUpdate)
	var presence command.UpdatePresence
	require.NoError(t, payload.DecodeData(&presence))
	assert.Equal(t, command.StatusIdle, presence.Status)

	err = s.Command(context.Background(), command.NewUpdatePresence("sleeping"))
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, CommandErrorSerializing, cmdErr.Kind)

	sink, err := s.Sink()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), sink.ShardID())
	require.NoError(t, sink.Command(context.Background(), command.NewRequestGuildMembersByIDs(core.Snowflake(10), core.Snowflake(20))))
	conn.Expect(encoding.OpRequestGuildMembers)

	require.NoError(t, s.Send(context.Background(), TextMessage([]byte(`{"op":1,"d":null}`))))
	conn.Expect(encoding.OpHeartbeat)
}

func TestShardShutdownResumable(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw, WithShard(0, 1))
	conn := connectReady(t, gw, s, stream)

	require.NoError(t, conn.Dispatch("GUILD_CREATE", 5, map[string]any{"id": "1"}))
	waitFor(t, stream, events.EventTypeDispatch)

	id, resume := s.ShutdownResumable()
	assert.Equal(t, uint64(0), id)
	require.NotNil(t, resume)
	assert.Equal(t, "session-1", resume.SessionID)
	assert.Equal(t, uint64(5), resume.Sequence)
	assert.Equal(t, gw.URL(), resume.GatewayURL)
	assert.Equal(t, int(encoding.CloseResume), conn.WaitClosed())
	waitClosed(t, stream)

	resumed, resumedStream := newTestShard(t, gw, WithResumeSession(resume))
	require.NoError(t, resumed.Start(context.Background()))
	next := gw.Accept()
	payload := next.Expect(encoding.OpResume)
	var cmd command.Resume
	require.NoError(t, payload.DecodeData(&cmd))
	assert.Equal(t, uint64(5), cmd.Seq)
	waitFor(t, resumedStream, events.EventTypeShardResuming)
}

func TestShardShutdownBeforeStart(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw)

	id, resume := s.ShutdownResumable()
	assert.Equal(t, uint64(0), id)
	assert.Nil(t, resume)
	waitClosed(t, stream)

	var startErr *ShardStartError
	require.ErrorAs(t, s.Start(context.Background()), &startErr)
	assert.Equal(t, ShardStartAlreadyStarted, startErr.Kind)
}

func TestShardStartErrors(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)

	tests := []struct {
		name string
		opts []Option
		kind ShardStartErrorKind
	}{
		{
			name: "invalid scheme",
			opts: []Option{WithGatewayURL("http://gateway.example")},
			kind: ShardStartParsingGatewayURL,
		},
		{
			name: "unreachable gateway",
			opts: []Option{WithGatewayURL("ws://127.0.0.1:1")},
			kind: ShardStartEstablishing,
		},
		{
			name: "failed lookup",
			opts: []Option{WithGatewayURL(""), WithAPIBase(gw.APIBase() + "/missing")},
			kind: ShardStartRetrievingGatewayURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestShard(t, gw, tt.opts...)
			err := s.Start(context.Background())

			var startErr *ShardStartError
			require.ErrorAs(t, err, &startErr)
			assert.Equal(t, tt.kind, startErr.Kind)
		})
	}
}

func TestShardLooksUpGatewayURL(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, _ := newTestShard(t, gw, WithGatewayURL(""), WithAPIBase(gw.APIBase()))

	require.NoError(t, s.Start(context.Background()))
	gw.Accept().Expect(encoding.OpIdentify)
	assert.Equal(t, 1, gw.Lookups())
}

func TestShardInactiveBeforeStart(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, _ := newTestShard(t, gw)

	_, err := s.Info()
	assert.ErrorIs(t, err, core.ErrNotStarted)
	_, err = s.Sink()
	assert.ErrorIs(t, err, core.ErrNotStarted)
	err = s.Command(context.Background(), command.NewUpdatePresence(command.StatusIdle))
	assert.ErrorIs(t, err, core.ErrNotStarted)

	s.Shutdown()
	_, err = s.Info()
	var inactive *SessionInactiveError
	require.ErrorAs(t, err, &inactive)
	assert.NotErrorIs(t, err, core.ErrNotStarted)
}

func TestShardSinkStopsWithItsConnection(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw)
	connectReady(t, gw, s, stream)

	sink, err := s.Sink()
	require.NoError(t, err)
	sink.sess.close()

	for i := 0; i < 32; i++ {
		err := sink.Send(context.Background(), TextMessage([]byte(`{"op":1,"d":null}`)))
		var cmdErr *CommandError
		require.ErrorAs(t, err, &cmdErr, "send %d", i)
		assert.Equal(t, CommandErrorSending, cmdErr.Kind)
		assert.ErrorIs(t, err, core.ErrSessionClosed)
	}

	err = sink.Command(context.Background(), command.NewUpdatePresence(command.StatusIdle))
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, CommandErrorSending, cmdErr.Kind)
	assert.ErrorIs(t, err, core.ErrSessionClosed)
}

func TestShardStartWithUnbufferedStream(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw, WithEventBuffer(0))

	started := make(chan error, 1)
	go func() { started <- s.Start(context.Background()) }()
	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(testutil.DefaultTimeout):
		t.Fatal("Start blocked on the event stream")
	}

	conn := gw.Accept()
	waitFor(t, stream, events.EventTypeGatewayHello)
	conn.Expect(encoding.OpIdentify)
}

func TestShardRejectsOutOfRangeHeartbeatInterval(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	gw.SetHelloInterval(10_000_000_000_000)
	s, stream := newTestShard(t, gw)

	require.NoError(t, s.Start(context.Background()))
	conn := gw.Accept()
	assert.Equal(t, int(encoding.CloseResume), conn.WaitClosed())

	disconnected := waitFor(t, stream, events.EventTypeShardDisconnected).(*events.ShardDisconnectedEvent)
	assert.Nil(t, disconnected.Code)
	assert.Contains(t, disconnected.Reason, "heartbeat interval")
	waitFor(t, stream, events.EventTypeShardReconnecting)
}

func TestShardCommandRatelimited(t *testing.T) {
	// A 100ms heartbeat leaves one command per minute, which Identify uses.
	gw := testutil.NewGateway(t, 100*time.Millisecond)
	s, stream := newTestShard(t, gw)
	connectReady(t, gw, s, stream)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Command(ctx, command.NewUpdatePresence(command.StatusOnline))

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, CommandErrorRatelimited, cmdErr.Kind)
}

func TestShardResumeFallsBackToGatewayURL(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw)

	require.NoError(t, s.Start(context.Background()))
	conn := gw.Accept()
	conn.Expect(encoding.OpIdentify)
	require.NoError(t, conn.Ready(1, "session-1", "ws://127.0.0.1:1", [2]uint64{0, 1}))
	waitFor(t, stream, events.EventTypeShardConnected)

	conn.Close(int(encoding.CloseUnknownError), "unknown error")
	connecting := waitFor(t, stream, events.EventTypeShardConnecting).(*events.ShardConnectingEvent)
	assert.Contains(t, connecting.Gateway, "127.0.0.1:1")

	next := gw.Accept()
	payload := next.Expect(encoding.OpResume)
	var resume command.Resume
	require.NoError(t, payload.DecodeData(&resume))
	assert.Equal(t, "session-1", resume.SessionID)
}

func TestShardEventBackpressure(t *testing.T) {
	gw := testutil.NewGateway(t, time.Minute)
	s, stream := newTestShard(t, gw, WithEventBuffer(1))

	require.NoError(t, s.Start(context.Background()))
	conn := gw.Accept()

	// The connecting event fills the stream, so Hello is never delivered
	// and the shard does not identify.
	assert.Never(t, func() bool {
		info, err := s.Info()
		return err != nil || info.Stage != StageHandshaking
	}, 200*time.Millisecond, 20*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		s.Shutdown()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(testutil.DefaultTimeout):
		t.Fatal("Shutdown blocked behind a full event stream")
	}
	assert.Equal(t, 1000, conn.WaitClosed())

	event, err := stream.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, events.EventTypeShardConnecting, event.Type())
	waitClosed(t, stream)
}
