// Package api is the client for the server's REST side channel. The peer
// list feeds the surrounding UI (and the player's interactive picker); the
// negotiation core never consumes it.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Mond1c/webrtc-grabber-go/internal/protocol"
)

// Client queries /api/peers and /api/health.
type Client struct {
	base string
	http *http.Client
}

// NewClient accepts the same base URL the signaling side uses (ws, wss,
// http or https) and maps it to the matching HTTP endpoint.
func NewClient(base string) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL: %q", base)
	}

	scheme := "http"
	switch u.Scheme {
	case "ws", "http":
		scheme = "http"
	case "wss", "https":
		scheme = "https"
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %q", u.Scheme)
	}

	return &Client{
		base: fmt.Sprintf("%s://%s", scheme, u.Host),
		http: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// PeersResponse is the GET /api/peers body.
type PeersResponse struct {
	Peers []protocol.PeerStatus `json:"peers"`
}

// Peers returns the active publisher list.
func (c *Client) Peers(ctx context.Context) ([]protocol.PeerStatus, error) {
	var res PeersResponse
	if err := c.get(ctx, "/api/peers", &res); err != nil {
		return nil, err
	}
	return res.Peers, nil
}

// Health is the GET /api/health body.
type Health struct {
	Status      string `json:"status"`
	SfuID       string `json:"sfuId"`
	Publishers  int    `json:"publishers"`
	Subscribers int    `json:"subscribers"`
}

// CheckHealth returns the server's health summary.
func (c *Client) CheckHealth(ctx context.Context) (Health, error) {
	var res Health
	err := c.get(ctx, "/api/health", &res)
	return res, err
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %s", path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: failed to decode response: %w", path, err)
	}
	return nil
}
