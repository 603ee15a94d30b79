package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gatewire/gateway/pkg/encoding"
)

// DefaultTimeout bounds every wait of the fake gateway.
const DefaultTimeout = 5 * time.Second

// Gateway is a fake gateway server.
type Gateway struct {
	t        testing.TB
	server   *httptest.Server
	upgrader websocket.Upgrader
	conns    chan *Conn

	helloInterval  atomic.Uint64
	shards         atomic.Uint64
	maxConcurrency atomic.Int64
	lookups        atomic.Int64
	autoAck        atomic.Bool
}

// NewGateway starts a fake gateway that sends the given heartbeat interval
// in Hello. It is closed when the test ends.
func NewGateway(t testing.TB, interval time.Duration) *Gateway {
	t.Helper()

	g := &Gateway{
		t:        t,
		conns: make(chan *Conn, 16),
	}
	g.helloInterval.Store(uint64(interval / time.Millisecond))
	g.shards.Store(1)
	g.maxConcurrency.Store(1)
	g.autoAck.Store(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/gateway/bot", g.handleBotGateway)
	mux.HandleFunc("/", g.handleWebSocket)
	g.server = httptest.NewServer(mux)
	t.Cleanup(g.server.Close)

	return g
}

// URL returns the WebSocket URL of the gateway.
func (g *Gateway) URL() string {
	return "ws" + strings.TrimPrefix(g.server.URL, "http")
}

// APIBase returns the REST root serving the bot gateway lookup.
func (g *Gateway) APIBase() string {
	return g.server.URL + "/api"
}

// SetShards sets the recommended shard count and identify concurrency
// returned by the bot gateway lookup.
func (g *Gateway) SetShards(shards uint64, maxConcurrency int) {
	g.shards.Store(shards)
	g.maxConcurrency.Store(int64(maxConcurrency))
}

// SetHelloInterval sets the raw heartbeat interval in milliseconds sent in
// Hello on connections accepted from now on.
func (g *Gateway) SetHelloInterval(millis uint64) {
	g.helloInterval.Store(millis)
}

// SetAutoAck sets whether connections accepted from now on acknowledge
// heartbeats.
func (g *Gateway) SetAutoAck(enabled bool) {
	g.autoAck.Store(enabled)
}

// Lookups returns the number of bot gateway lookups served.
func (g *Gateway) Lookups() int {
	return int(g.lookups.Load())
}

func (g *Gateway) handleBotGateway(w http.ResponseWriter, r *http.Request) {
	g.lookups.Add(1)
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bot ") {
		http.Error(w, `{"message": "401: Unauthorized", "code": 0}`, http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"url":    g.URL(),
		"shards": g.shards.Load(),
		"session_start_limit": map[string]any{
			"total":           1000,
			"remaining":       1000,
			"reset_after":     0,
			"max_concurrency": g.maxConcurrency.Load(),
		},
	})
}

func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &Conn{
		t:        g.t,
		ws:       ws,
		Query:    r.URL.Query(),
		payloads: make(chan *encoding.Payload, 64),
		closed:   make(chan struct{}),
	}
	c.autoAck.Store(g.autoAck.Load())

	if err := c.Send(encoding.OpHello, encoding.Hello{HeartbeatInterval: g.helloInterval.Load()}); err != nil {
		ws.Close()
		return
	}

	go c.readLoop()
	g.conns <- c
}

// Accept waits for the next client connection.
func (g *Gateway) Accept() *Conn {
	g.t.Helper()
	select {
	case c := <-g.conns:
		return c
	case <-time.After(DefaultTimeout):
		g.t.Fatal("fake gateway: no connection accepted")
		return nil
	}
}

// Conn is one client connection to the fake gateway.
type Conn struct {
	t  testing.TB
	ws *websocket.Conn

	// Query is the query string the client connected with.
	Query url.Values

	writeMu  sync.Mutex
	payloads chan *encoding.Payload
	autoAck  atomic.Bool

	closed   chan struct{}
	closeErr error
}

// SetAutoAck toggles acknowledging client heartbeats. It is on by default.
func (c *Conn) SetAutoAck(enabled bool) {
	c.autoAck.Store(enabled)
}

func (c *Conn) readLoop() {
	defer close(c.closed)
	defer close(c.payloads)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.closeErr = err
			return
		}
		payload, err := encoding.Decode(data)
		if err != nil {
			continue
		}
		if payload.Op == encoding.OpHeartbeat && c.autoAck.Load() {
			_ = c.Send(encoding.OpHeartbeatAck, nil)
		}
		// Tests that never read payloads must not stall the connection.
		select {
		case c.payloads <- payload:
		default:
		}
	}
}

// Expect waits for a client payload with the given opcode, skipping others.
func (c *Conn) Expect(op encoding.OpCode) *encoding.Payload {
	c.t.Helper()
	return c.ExpectAny(op)
}

// ExpectAny waits for a client payload with one of the given opcodes,
// skipping others.
func (c *Conn) ExpectAny(ops ...encoding.OpCode) *encoding.Payload {
	c.t.Helper()
	timeout := time.After(DefaultTimeout)
	for {
		select {
		case payload, ok := <-c.payloads:
			if !ok {
				c.t.Fatalf("fake gateway: connection closed while waiting for ops %v", ops)
				return nil
			}
			if slices.Contains(ops, payload.Op) {
				return payload
			}
		case <-timeout:
			c.t.Fatalf("fake gateway: timed out waiting for ops %v", ops)
			return nil
		}
	}
}

// Send writes a payload with the given opcode and data.
func (c *Conn) Send(op encoding.OpCode, data any) error {
	frame, err := encoding.Encode(op, data)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, frame)
}

// SendCompressed writes a zlib-compressed payload as a binary frame.
func (c *Conn) SendCompressed(op encoding.OpCode, data any) error {
	frame, err := encoding.Encode(op, data)
	if err != nil {
		return err
	}
	compressed, err := encoding.Deflate(frame)
	if err != nil {
		return err
	}
	return c.write(websocket.BinaryMessage, compressed)
}

// SendRaw writes a text frame as is.
func (c *Conn) SendRaw(frame []byte) error {
	return c.write(websocket.TextMessage, frame)
}

// Dispatch writes a dispatch payload.
func (c *Conn) Dispatch(name string, seq uint64, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(map[string]any{
		"op": encoding.OpDispatch,
		"d":  json.RawMessage(raw),
		"s":  seq,
		"t":  name,
	})
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, frame)
}

// Ready dispatches a READY event for the session.
func (c *Conn) Ready(seq uint64, sessionID, resumeURL string, shard [2]uint64) error {
	return c.Dispatch("READY", seq, map[string]any{
		"v":                  encoding.APIVersion,
		"user":               map[string]any{"id": "1", "username": "gatewire", "discriminator": "0001", "bot": true},
		"guilds":             []any{},
		"session_id":         sessionID,
		"shard":              shard,
		"application":        map[string]any{"id": "1", "flags": 0},
		"resume_gateway_url": resumeURL,
	})
}

func (c *Conn) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(messageType, data)
}

// Close sends a close frame with code and closes the connection.
func (c *Conn) Close(code int, reason string) {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	c.ws.Close()
}

// WaitClosed waits for the client to close the connection and returns the
// close code it sent, or -1 if it dropped the connection without one.
func (c *Conn) WaitClosed() int {
	c.t.Helper()
	select {
	case <-c.closed:
	case <-time.After(DefaultTimeout):
		c.t.Fatal("fake gateway: client did not close the connection")
		return -1
	}
	var closeErr *websocket.CloseError
	if errors.As(c.closeErr, &closeErr) {
		return closeErr.Code
	}
	return -1
}
