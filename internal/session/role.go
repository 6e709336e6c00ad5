package session

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/Mond1c/webrtc-grabber-go/internal/protocol"
	"github.com/Mond1c/webrtc-grabber-go/internal/rtc"
	"github.com/Mond1c/webrtc-grabber-go/internal/signaling"
)

// Engine is the media-engine operation set a session drives. Implemented by
// *rtc.Peer; tests substitute a fake.
type Engine interface {
	AddLocalTrack(track webrtc.TrackLocal) error
	AddRecvTransceivers() error
	CreateOffer() (string, error)
	SetRemoteAnswer(sdp string) error
	AddRemoteCandidate(cand protocol.ServerCandidate) error
	Counters(direction rtc.Direction) (rtc.Counters, error)
	Close() error
}

// EngineFactory builds an Engine from the INIT_PEER configuration.
type EngineFactory func(cfg protocol.PcConfig, cb rtc.Callbacks) (Engine, error)

// Transport is the signaling channel surface a session uses. Implemented by
// *signaling.Channel; tests substitute a fake.
type Transport interface {
	Send(env protocol.Envelope) error
	Inbox() <-chan signaling.Inbound
	Close() error
}

// Dialer opens a Transport to the given WebSocket URL.
type Dialer func(ctx context.Context, wsURL string) (Transport, error)

// Role captures everything that differs between a publisher and a viewer:
// whether authentication precedes peer init, which media the engine exposes,
// which ICE event kind local candidates use, and which direction the
// statistics sampler aggregates.
type Role interface {
	// Name labels log lines ("grabber" or "player").
	Name() string

	// RequiresAuth reports whether the session waits for an AUTH_REQUEST
	// before peer init.
	RequiresAuth() bool

	// Credential is the value submitted in the AUTH reply.
	Credential() string

	// OfferTarget is the peerName carried by the OFFER envelope; empty for
	// publishers, which are addressed by their connection path.
	OfferTarget() string

	// ICEEvent is the envelope kind used for locally gathered candidates.
	ICEEvent() protocol.Event

	// StatsDirection selects outbound (publisher) or inbound (viewer)
	// transport counters.
	StatsDirection() rtc.Direction

	// Heartbeats reports whether the session sends PING envelopes at the
	// interval announced by INIT_PEER.
	Heartbeats() bool

	// StreamTypes describes the published media for heartbeat payloads.
	StreamTypes() []string

	// Provision declares local media on a freshly built engine: publisher
	// tracks or viewer recvonly transceivers.
	Provision(e Engine) error

	// HandleTrack processes an inbound remote track. Publishers never
	// receive one.
	HandleTrack(track rtc.RemoteTrack)

	// Close releases role-owned resources (capture tracks). Idempotent.
	Close()
}

// Status kinds reported through the StatusFunc callback.
const (
	KindStatus = "status"
	KindStats  = "stats"
)

// Status labels reported with KindStatus.
const (
	StatusConnecting   = "connecting"
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusError        = "error"
)

// StatsSnapshot is the KindStats payload: instantaneous bitrate over the
// last sampling interval plus the cumulative packet count.
type StatsSnapshot struct {
	BitrateKbps float64
	Packets     uint64
}

// StatusFunc receives per-session events for the surrounding UI: kind is
// KindStatus with a label payload, or KindStats with a StatsSnapshot.
type StatusFunc func(peerID, kind string, payload interface{})
