// Package rtc wraps the pion PeerConnection behind the small operation set
// the negotiation machinery needs: offer generation, remote description and
// candidate application, track provisioning per role, and transport counter
// sampling. It also provides the remote ICE candidate buffer.
package rtc

import (
	"fmt"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"

	"github.com/Mond1c/webrtc-grabber-go/internal/protocol"
	"github.com/Mond1c/webrtc-grabber-go/internal/util"
)

// RemoteTrack is the slice of an inbound track the session layer consumes:
// stream identity for adoption decisions, kind for logging, Read for
// draining. Satisfied by *webrtc.TrackRemote.
type RemoteTrack interface {
	StreamID() string
	Kind() webrtc.RTPCodecType
	Read(b []byte) (int, interceptor.Attributes, error)
}

// Callbacks are the engine events a session subscribes to at construction
// time. All of them fire on pion's internal goroutines; consumers are
// expected to hand them off to their own loop.
type Callbacks struct {
	// OnCandidate fires for every locally gathered candidate. A nil
	// candidate signals the end of gathering.
	OnCandidate func(*protocol.IceCandidate)

	// OnStateChange reports peer connection state transitions.
	OnStateChange func(webrtc.PeerConnectionState)

	// OnTrack fires when a remote track arrives (viewers only).
	OnTrack func(RemoteTrack)
}

// Peer is a live peer connection. One per session; closing the session
// closes the Peer and vice versa is never done.
type Peer struct {
	pc *webrtc.PeerConnection
}

// NewPeer builds a PeerConnection from the server-provided configuration
// and wires the callbacks.
func NewPeer(cfg protocol.PcConfig, cb Callbacks) (*Peer, error) {
	pc, err := webrtc.NewPeerConnection(webrtcConfiguration(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create PeerConnection: %w", err)
	}

	p := &Peer{pc: pc}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if cb.OnCandidate == nil {
			return
		}
		if c == nil {
			cb.OnCandidate(nil)
			return
		}
		cand := localCandidate(c.ToJSON())
		cb.OnCandidate(&cand)
	})

	if cb.OnStateChange != nil {
		pc.OnConnectionStateChange(cb.OnStateChange)
	}

	if cb.OnTrack != nil {
		pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
			cb.OnTrack(track)
		})
	}

	return p, nil
}

// AddLocalTrack attaches a publisher track and drains its RTCP stream so
// interceptors (NACK, reports) keep running.
func (p *Peer) AddLocalTrack(track webrtc.TrackLocal) error {
	sender, err := p.pc.AddTrack(track)
	if err != nil {
		return fmt.Errorf("failed to add local track: %w", err)
	}

	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()

	return nil
}

// AddRecvTransceivers declares the two inbound-only media slots a viewer
// negotiates: one video, one audio, no local tracks.
func (p *Peer) AddRecvTransceivers() error {
	for _, kind := range []webrtc.RTPCodecType{
		webrtc.RTPCodecTypeVideo,
		webrtc.RTPCodecTypeAudio,
	} {
		_, err := p.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		})
		if err != nil {
			return fmt.Errorf("failed to add %s transceiver: %w", kind, err)
		}
	}
	return nil
}

// CreateOffer generates a local offer, applies it as the local description
// (which starts ICE gathering) and returns the SDP.
func (p *Peer) CreateOffer() (string, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("CreateOffer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("SetLocalDescription: %w", err)
	}
	return offer.SDP, nil
}

// SetRemoteAnswer applies the peer's answer SDP.
func (p *Peer) SetRemoteAnswer(sdp string) error {
	return p.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
}

// AddRemoteCandidate applies one server-relayed remote candidate.
func (p *Peer) AddRemoteCandidate(cand protocol.ServerCandidate) error {
	return p.pc.AddICECandidate(remoteCandidate(cand))
}

// Close shuts the peer connection down.
func (p *Peer) Close() error {
	return p.pc.Close()
}

// ---------------------------------------------------------------------------
// Statistics
// ---------------------------------------------------------------------------

// Direction selects which transport counters a session samples.
type Direction int

const (
	// Outbound aggregates bytes/packets sent (publishers).
	Outbound Direction = iota
	// Inbound aggregates bytes/packets received (viewers).
	Inbound
)

// Counters is a cumulative transport byte/packet pair.
type Counters struct {
	Bytes   uint64
	Packets uint64
}

// Counters sums the requested direction across all transport stat reports.
func (p *Peer) Counters(direction Direction) (Counters, error) {
	var total Counters
	for _, stats := range p.pc.GetStats() {
		ts, ok := stats.(webrtc.TransportStats)
		if !ok {
			continue
		}
		switch direction {
		case Outbound:
			total.Bytes += ts.BytesSent
			total.Packets += uint64(ts.PacketsSent)
		case Inbound:
			total.Bytes += ts.BytesReceived
			total.Packets += uint64(ts.PacketsReceived)
		}
	}
	return total, nil
}

// ---------------------------------------------------------------------------
// Wire conversions
// ---------------------------------------------------------------------------

func webrtcConfiguration(cfg protocol.PcConfig) webrtc.Configuration {
	servers := make([]webrtc.ICEServer, 0, len(cfg.IceServers))
	for _, s := range cfg.IceServers {
		server := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			server.Credential = s.Credential
		}
		servers = append(servers, server)
	}
	return webrtc.Configuration{ICEServers: servers}
}

func localCandidate(init webrtc.ICECandidateInit) protocol.IceCandidate {
	return protocol.IceCandidate{
		Candidate:        init.Candidate,
		SDPMid:           init.SDPMid,
		SDPMLineIndex:    init.SDPMLineIndex,
		UsernameFragment: init.UsernameFragment,
	}
}

func remoteCandidate(cand protocol.ServerCandidate) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:        cand.Candidate,
		SDPMid:           cand.SDPMid,
		SDPMLineIndex:    cand.SDPMLineIndex,
		UsernameFragment: cand.UsernameFragment,
	}
}

// DrainTrack reads and discards RTP from a remote track until it ends.
// Reading keeps the inbound counters moving even when no consumer is
// attached to the track.
func DrainTrack(track RemoteTrack) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buf); err != nil {
			util.LogDebug("remote %s track ended: %v", track.Kind(), err)
			return
		}
	}
}
