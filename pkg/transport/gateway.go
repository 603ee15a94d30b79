package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

// DefaultAPIBase is the REST API root used for the bot gateway lookup.
const DefaultAPIBase = "https://discord.com/api/v8"

// SessionStartLimit is the identify budget of a bot.
type SessionStartLimit struct {
	Total     int `json:"total"`
	Remaining int `json:"remaining"`
	// ResetAfter is in milliseconds
	ResetAfter     int64 `json:"reset_after"`
	MaxConcurrency int   `json:"max_concurrency"`
}

// BotGatewayInfo is the response of the bot gateway lookup.
type BotGatewayInfo struct {
	URL               string            `json:"url"`
	Shards            uint64            `json:"shards"`
	SessionStartLimit SessionStartLimit `json:"session_start_limit"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway lookup failed with status %d: %s", e.Status, e.Body)
}

// GatewayClient performs the bot gateway lookup.
type GatewayClient struct {
	HTTP    *http.Client
	APIBase string
}

// NewHTTPClient returns a client whose transport negotiates HTTP/2.
func NewHTTPClient(timeout time.Duration) (*http.Client, error) {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, fmt.Errorf("failed to configure HTTP/2: %w", err)
	}
	return &http.Client{Transport: tr, Timeout: timeout}, nil
}

// AuthorizationHeader returns the Authorization header value for a bot
// token, adding the "Bot " prefix when the token has no scheme.
func AuthorizationHeader(token string) string {
	if strings.HasPrefix(token, "Bot ") || strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bot " + token
}

// BotGateway fetches the gateway URL, recommended shard count and session
// start limit.
func (c *GatewayClient) BotGateway(ctx context.Context, token string) (*BotGatewayInfo, error) {
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	base := c.APIBase
	if base == "" {
		base = DefaultAPIBase
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(base, "/")+"/gateway/bot", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", AuthorizationHeader(token))
	req.Header.Set("User-Agent", "DiscordBot (https://github.com/gatewire/gateway, 0.1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var info BotGatewayInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if info.URL == "" {
		return nil, fmt.Errorf("gateway response has no URL")
	}
	return &info, nil
}
