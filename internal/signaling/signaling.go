// Package signaling implements the WebSocket control channel to the SFU
// server: dialing, URL derivation per role, a mutex-guarded JSON writer and
// a background read pump that funnels envelopes and channel closure into a
// single inbox consumed by the session loop.
package signaling

import (
	"fmt"
	"net/url"
	"strings"
)

// GrabberURL derives the publisher endpoint from a base server URL.
// Publishers are addressed by name: ws(s)://host/grabber/<name>.
func GrabberURL(base, name string) (string, error) {
	u, err := normalize(base)
	if err != nil {
		return "", err
	}
	return u + "/grabber/" + url.PathEscape(name), nil
}

// PlayerURL derives the shared viewer endpoint: ws(s)://host/player.
// Viewers select their target peer in the OFFER envelope instead.
func PlayerURL(base string) (string, error) {
	u, err := normalize(base)
	if err != nil {
		return "", err
	}
	return u + "/player", nil
}

// normalize validates a raw server URL and rewrites http(s) schemes to the
// matching ws(s) scheme, dropping any path.
func normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid server URL: %q", raw)
	}

	scheme := "ws"
	switch u.Scheme {
	case "ws", "http":
		scheme = "ws"
	case "wss", "https":
		scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported URL scheme: %q", u.Scheme)
	}

	return fmt.Sprintf("%s://%s", scheme, u.Host), nil
}
