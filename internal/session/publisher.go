package session

import (
	"fmt"
	"sync"

	"github.com/Mond1c/webrtc-grabber-go/internal/capture"
	"github.com/Mond1c/webrtc-grabber-go/internal/protocol"
	"github.com/Mond1c/webrtc-grabber-go/internal/rtc"
	"github.com/Mond1c/webrtc-grabber-go/internal/signaling"
	"github.com/Mond1c/webrtc-grabber-go/internal/util"
)

// PublisherConfig describes a grabber session: the name it publishes under
// and the capture source providing its local tracks. The session takes
// ownership of the source and closes it on teardown.
type PublisherConfig struct {
	Name      string
	ServerURL string
	Source    capture.Source
}

// NewPublisher builds a publisher session. Capture capability problems are
// expected to have been surfaced when the Source was constructed, before
// any transport connection is attempted.
func NewPublisher(cfg PublisherConfig, opts Options) (*Session, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("publisher name must not be empty")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("publisher requires a capture source: %w", ErrCapabilityUnavailable)
	}

	wsURL, err := signaling.GrabberURL(cfg.ServerURL, cfg.Name)
	if err != nil {
		return nil, err
	}

	role := &publisherRole{source: cfg.Source}
	return New(role, wsURL, cfg.Name, opts), nil
}

// publisherRole ingests local media and sends an offer. Trusted by address,
// so no authentication handshake.
type publisherRole struct {
	source    capture.Source
	closeOnce sync.Once
}

func (r *publisherRole) Name() string                  { return "grabber" }
func (r *publisherRole) RequiresAuth() bool            { return false }
func (r *publisherRole) Credential() string            { return "" }
func (r *publisherRole) OfferTarget() string           { return "" }
func (r *publisherRole) ICEEvent() protocol.Event      { return protocol.EventGrabberICE }
func (r *publisherRole) StatsDirection() rtc.Direction { return rtc.Outbound }
func (r *publisherRole) Heartbeats() bool              { return true }
func (r *publisherRole) StreamTypes() []string         { return r.source.StreamTypes() }

// Provision attaches every capture track to the engine.
func (r *publisherRole) Provision(e Engine) error {
	for _, track := range r.source.Tracks() {
		if err := e.AddLocalTrack(track); err != nil {
			return err
		}
	}
	return nil
}

func (r *publisherRole) HandleTrack(track rtc.RemoteTrack) {
	util.LogWarning("[grabber] unexpected remote %s track, ignoring", track.Kind())
}

// Close stops the capture tracks individually before release.
func (r *publisherRole) Close() {
	r.closeOnce.Do(func() {
		r.source.Close()
	})
}
