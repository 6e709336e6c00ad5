// Package protocol defines the JSON signaling contract between a client
// (grabber or player) and the SFU server. Envelopes are tagged by the Event
// field; each event populates at most one payload field.
package protocol

// Event identifies the kind of signaling envelope.
type Event string

const (
	// Server → client.
	EventAuthRequest Event = "AUTH_REQUEST"
	EventAuthFailed  Event = "AUTH_FAILED"
	EventInitPeer    Event = "INIT_PEER"
	EventAnswer      Event = "ANSWER"
	EventOfferFailed Event = "OFFER_FAILED"
	EventServerICE   Event = "SERVER_ICE"
	EventPong        Event = "PONG"

	// Client → server.
	EventAuth       Event = "AUTH"
	EventOffer      Event = "OFFER"
	EventGrabberICE Event = "GRABBER_ICE"
	EventPlayerICE  Event = "PLAYER_ICE"
	EventPing       Event = "PING"
)

// Known reports whether e is part of the closed event enumeration.
// Unknown events must be ignored, not treated as protocol errors.
func (e Event) Known() bool {
	switch e {
	case EventAuthRequest, EventAuthFailed, EventInitPeer, EventAnswer,
		EventOfferFailed, EventServerICE, EventPong,
		EventAuth, EventOffer, EventGrabberICE, EventPlayerICE, EventPing:
		return true
	}
	return false
}

// SDP type strings used in Description.Type.
const (
	SDPTypeOffer  = "offer"
	SDPTypeAnswer = "answer"
)

// Envelope is the single message shape exchanged over the WebSocket.
// Which payload field is meaningful depends on Event.
type Envelope struct {
	Event Event `json:"event"`

	// AUTH (client credential reply).
	PlayerAuth *Auth `json:"playerAuth,omitempty"`
	// AUTH_FAILED detail, if the server provides one.
	AccessMessage *string `json:"accessMessage,omitempty"`

	// INIT_PEER.
	InitPeer *InitPeer `json:"initPeer,omitempty"`

	// OFFER (client → server). The server also delivers the player's ANSWER
	// in this field; see AnswerDescription.
	Offer *Description `json:"offer,omitempty"`
	// ANSWER as delivered to a grabber.
	Answer *Description `json:"answer,omitempty"`

	// GRABBER_ICE / PLAYER_ICE (client → server).
	Candidate *IceCandidate `json:"candidate,omitempty"`
	// SERVER_ICE (server → client).
	Ice *ServerIce `json:"ice,omitempty"`

	// PING (grabber heartbeat).
	Ping *Ping `json:"ping,omitempty"`
}

// AnswerDescription returns the remote answer carried by an ANSWER envelope.
// The server is inconsistent about the field name: grabbers receive the
// answer in "answer", players receive it in "offer" (with type "answer").
// Returns nil if the envelope carries neither.
func (e *Envelope) AnswerDescription() *Description {
	if e.Answer != nil {
		return e.Answer
	}
	return e.Offer
}

// Auth carries the client credential.
type Auth struct {
	Credential string `json:"credential"`
}

// Description is an opaque SDP blob plus its type. PeerName selects the
// target publisher and is set only on player offers.
type Description struct {
	Type     string `json:"type"`
	SDP      string `json:"sdp"`
	PeerName string `json:"peerName,omitempty"`
}

// InitPeer tells the client how to configure its peer connection.
// PingInterval (milliseconds) is present for grabbers only.
type InitPeer struct {
	PcConfig     PcConfig `json:"pcConfig"`
	PingInterval int64    `json:"pingInterval,omitempty"`
}

// PcConfig mirrors the browser RTCConfiguration subset the server hands out.
type PcConfig struct {
	IceServers []IceServer `json:"iceServers"`
}

// IceServer is one STUN/TURN entry of the peer connection configuration.
type IceServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// IceCandidate is the candidate shape clients send in GRABBER_ICE and
// PLAYER_ICE envelopes. The field naming is inherited from the historical
// client and is intentionally mixed-case on the wire.
type IceCandidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdp_mid"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex"`
	UsernameFragment *string `json:"username_fragment"`
}

// ServerCandidate is the candidate shape the server relays in SERVER_ICE
// envelopes (camelCase throughout, unlike IceCandidate).
type ServerCandidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// ServerIce wraps a relayed remote candidate.
type ServerIce struct {
	Candidate ServerCandidate `json:"candidate"`
	PeerID    *string         `json:"peerId,omitempty"`
}

// Ping is the grabber heartbeat payload.
type Ping struct {
	Timestamp        int64    `json:"timestamp"`
	ConnectionsCount uint32   `json:"connectionsCount"`
	StreamTypes      []string `json:"streamTypes,omitempty"`
}

// PeerStatus is one row of the server's peer list (GET /api/peers).
type PeerStatus struct {
	Name        string   `json:"name"`
	SocketID    string   `json:"socketId"`
	Online      bool     `json:"online"`
	Connections uint32   `json:"connections"`
	StreamTypes []string `json:"streamTypes"`
	LastPing    int64    `json:"lastPing"`
}

// ---------------------------------------------------------------------------
// Envelope constructors
// ---------------------------------------------------------------------------

// NewAuth builds the credential reply to an AUTH_REQUEST.
func NewAuth(credential string) Envelope {
	return Envelope{
		Event:      EventAuth,
		PlayerAuth: &Auth{Credential: credential},
	}
}

// NewOffer builds an OFFER envelope. peerName is empty for grabbers.
func NewOffer(sdp, peerName string) Envelope {
	return Envelope{
		Event: EventOffer,
		Offer: &Description{Type: SDPTypeOffer, SDP: sdp, PeerName: peerName},
	}
}

// NewClientICE builds a GRABBER_ICE or PLAYER_ICE envelope.
func NewClientICE(event Event, candidate IceCandidate) Envelope {
	return Envelope{Event: event, Candidate: &candidate}
}

// NewPing builds a grabber heartbeat envelope.
func NewPing(timestamp int64, connections uint32, streamTypes []string) Envelope {
	return Envelope{
		Event: EventPing,
		Ping: &Ping{
			Timestamp:        timestamp,
			ConnectionsCount: connections,
			StreamTypes:      streamTypes,
		},
	}
}
