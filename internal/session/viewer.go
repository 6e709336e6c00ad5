package session

import (
	"fmt"

	"github.com/Mond1c/webrtc-grabber-go/internal/protocol"
	"github.com/Mond1c/webrtc-grabber-go/internal/rtc"
	"github.com/Mond1c/webrtc-grabber-go/internal/signaling"
	"github.com/Mond1c/webrtc-grabber-go/internal/util"
)

// TrackSink consumes the remote tracks a viewer receives. The sink owns the
// read loop for every track handed to it.
type TrackSink func(track rtc.RemoteTrack)

// ViewerConfig describes a player session: the publisher it subscribes to,
// the credential submitted on AUTH_REQUEST and an optional sink for the
// received media.
type ViewerConfig struct {
	PeerName   string
	ServerURL  string
	Credential string
	Sink       TrackSink
}

// NewViewer builds a viewer session for the named publisher.
func NewViewer(cfg ViewerConfig, opts Options) (*Session, error) {
	if cfg.PeerName == "" {
		return nil, fmt.Errorf("viewer requires a target peer name")
	}

	wsURL, err := signaling.PlayerURL(cfg.ServerURL)
	if err != nil {
		return nil, err
	}

	role := &viewerRole{
		peerName:   cfg.PeerName,
		credential: cfg.Credential,
		sink:       cfg.Sink,
	}
	return New(role, wsURL, cfg.PeerName, opts), nil
}

// viewerRole declares two receive-only media slots and authenticates before
// peer init. It owns no local capture.
type viewerRole struct {
	peerName   string
	credential string
	sink       TrackSink

	// Remote stream adoption: the first track event's stream becomes the
	// rendering source, later events for that stream are ignored. Exactly
	// one combined stream per peer is assumed.
	adopted  bool
	streamID string
}

func (r *viewerRole) Name() string                  { return "player" }
func (r *viewerRole) RequiresAuth() bool            { return true }
func (r *viewerRole) Credential() string            { return r.credential }
func (r *viewerRole) OfferTarget() string           { return r.peerName }
func (r *viewerRole) ICEEvent() protocol.Event      { return protocol.EventPlayerICE }
func (r *viewerRole) StatsDirection() rtc.Direction { return rtc.Inbound }
func (r *viewerRole) Heartbeats() bool              { return false }
func (r *viewerRole) StreamTypes() []string         { return nil }

// Provision declares the recvonly video and audio transceivers.
func (r *viewerRole) Provision(e Engine) error {
	return e.AddRecvTransceivers()
}

// HandleTrack adopts the first remote stream and forwards its opening track
// to the sink; without a sink the track is drained so inbound counters keep
// moving.
func (r *viewerRole) HandleTrack(track rtc.RemoteTrack) {
	if r.adopted {
		if track.StreamID() == r.streamID {
			util.LogDebug("[player %s] additional %s track for adopted stream, ignoring",
				r.peerName, track.Kind())
		}
		return
	}

	r.adopted = true
	r.streamID = track.StreamID()
	util.LogInfo("[player %s] adopted remote stream %s (%s)", r.peerName, r.streamID, track.Kind())

	if r.sink != nil {
		r.sink(track)
		return
	}
	go rtc.DrainTrack(track)
}

func (r *viewerRole) Close() {}
