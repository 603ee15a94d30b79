package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultHandshakeTimeout bounds the WebSocket opening handshake.
const DefaultHandshakeTimeout = 10 * time.Second

// Dialer opens gateway WebSocket connections.
type Dialer struct {
	// TLS provides the TLS configuration for wss URLs. Nil uses the Go
	// defaults.
	TLS *TLSContainer

	// HandshakeTimeout bounds the opening handshake
	HandshakeTimeout time.Duration

	// Header is sent with the upgrade request
	Header http.Header
}

// NewDialer creates a dialer using the given TLS container.
func NewDialer(tlsContainer *TLSContainer) *Dialer {
	return &Dialer{
		TLS:              tlsContainer,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
}

// target parses rawURL. A wss URL without a port is pinned to the
// normalised "domain:443" address of its host.
func (d *Dialer) target(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway URL: %w", err)
	}
	if u.Scheme == "wss" && d.TLS != nil && u.Port() == "" {
		addr, err := d.TLS.Domain(u)
		if err != nil {
			return nil, err
		}
		u.Host = addr
	}
	return u, nil
}

// Dial connects to the gateway at rawURL.
func (d *Dialer) Dial(ctx context.Context, rawURL string) (*websocket.Conn, error) {
	u, err := d.target(rawURL)
	if err != nil {
		return nil, err
	}

	wsDialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	if wsDialer.HandshakeTimeout <= 0 {
		wsDialer.HandshakeTimeout = DefaultHandshakeTimeout
	}

	if u.Scheme == "wss" && d.TLS != nil {
		tlsConfig, err := d.TLS.ClientConfig(u)
		if err != nil {
			return nil, err
		}
		wsDialer.TLSClientConfig = tlsConfig
	}

	conn, resp, err := wsDialer.DialContext(ctx, u.String(), d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", u.Redacted(), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	return conn, nil
}
