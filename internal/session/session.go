// Package session implements the negotiation state machine shared by the
// publisher (grabber) and viewer (player) roles: the offer/answer exchange
// with the SFU, remote ICE candidate buffering, the optional authentication
// handshake and the connection-state lifecycle.
//
// Every session owns exactly one signaling channel and at most one media
// engine. All transitions run on a single per-session goroutine; transport
// deliveries, engine callbacks and timer ticks are funneled into that loop,
// so no two transitions for the same session ever interleave.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/Mond1c/webrtc-grabber-go/internal/protocol"
	"github.com/Mond1c/webrtc-grabber-go/internal/rtc"
	"github.com/Mond1c/webrtc-grabber-go/internal/signaling"
	"github.com/Mond1c/webrtc-grabber-go/internal/util"
)

// Phase is the negotiation state of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseAwaitingAuth
	PhaseAwaitingPeerInit
	PhaseNegotiatingOffer
	PhaseAwaitingAnswer
	PhaseRemoteSet
	PhaseFailed
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseAwaitingAuth:
		return "awaiting-auth"
	case PhaseAwaitingPeerInit:
		return "awaiting-peer-init"
	case PhaseNegotiatingOffer:
		return "negotiating-offer"
	case PhaseAwaitingAnswer:
		return "awaiting-answer"
	case PhaseRemoteSet:
		return "remote-set"
	case PhaseFailed:
		return "failed"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

const defaultStatsInterval = time.Second

// Options configure a session beyond its role.
type Options struct {
	// Status receives per-session status and stats events. May be nil.
	Status StatusFunc

	// Dial opens the signaling transport. Defaults to signaling.Dial.
	Dial Dialer

	// NewEngine builds the media engine. Defaults to rtc.NewPeer.
	NewEngine EngineFactory

	// StatsInterval overrides the 1 s sampling interval.
	StatsInterval time.Duration
}

// Session is one role-instance negotiating with the SFU. Single-shot: from
// creation it can be started once and runs to a terminal phase.
type Session struct {
	id     string
	peerID string
	role   Role
	wsURL  string

	status        StatusFunc
	dial          Dialer
	newEngine     EngineFactory
	statsInterval time.Duration

	// Mutable negotiation state, touched only by Start and the run loop.
	ch     Transport
	engine Engine
	buffer *rtc.CandidateBuffer

	// connected mirrors the engine's connection state; owned by the run
	// loop. Drives ping payloads and sampler lifetime.
	connected bool

	statsTicker *time.Ticker
	statsC      <-chan time.Time
	prevStats   rtc.Counters
	lastSample  time.Time

	pingTicker *time.Ticker
	pingC      <-chan time.Time

	// Engine callback fan-in.
	candCh  chan *protocol.IceCandidate
	stateCh chan webrtc.PeerConnectionState
	trackCh chan rtc.RemoteTrack

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	phase   Phase
	failure error
	started bool
	stopped bool

	stopOnce sync.Once
}

// New assembles a session for the given role. peerID is the publisher name
// the session is about (its own name for grabbers, the target for players).
func New(role Role, wsURL, peerID string, opts Options) *Session {
	s := &Session{
		id:            uuid.NewString()[:8],
		peerID:        peerID,
		role:          role,
		wsURL:         wsURL,
		status:        opts.Status,
		dial:          opts.Dial,
		newEngine:     opts.NewEngine,
		statsInterval: opts.StatsInterval,
		candCh:        make(chan *protocol.IceCandidate, 32),
		stateCh:       make(chan webrtc.PeerConnectionState, 8),
		trackCh:       make(chan rtc.RemoteTrack, 8),
		done:          make(chan struct{}),
		phase:         PhaseIdle,
	}
	if s.dial == nil {
		s.dial = func(ctx context.Context, wsURL string) (Transport, error) {
			return signaling.Dial(ctx, wsURL)
		}
	}
	if s.newEngine == nil {
		s.newEngine = func(cfg protocol.PcConfig, cb rtc.Callbacks) (Engine, error) {
			return rtc.NewPeer(cfg, cb)
		}
	}
	if s.statsInterval <= 0 {
		s.statsInterval = defaultStatsInterval
	}
	s.buffer = rtc.NewCandidateBuffer(s.applyRemoteCandidate)
	return s
}

// Phase returns the current negotiation phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Err returns the terminal failure, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Done is closed once the session reaches a terminal phase and all owned
// resources are released.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start opens the signaling transport and launches the run loop. It may be
// called at most once; the session then runs until a terminal phase.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	// cancel is published together with started; Stop reads both under the
	// lock.
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.setPhase(PhaseConnecting)
	s.report(KindStatus, StatusConnecting)

	ch, err := s.dial(s.ctx, s.wsURL)
	if err != nil {
		err = fmt.Errorf("failed to open signaling channel: %w", err)
		s.shutdown(err)
		close(s.done)
		return err
	}
	s.ch = ch

	if s.role.RequiresAuth() {
		s.setPhase(PhaseAwaitingAuth)
	} else {
		s.setPhase(PhaseAwaitingPeerInit)
	}

	go s.run()
	return nil
}

// Stop terminates the session from any state, releasing capture, engine and
// transport. Idempotent; a second call is a no-op. The session always ends
// in PhaseClosed, even after a failure. Must not be called from within the
// status callback.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		started := s.started
		cancel := s.cancel
		s.mu.Unlock()

		if !started {
			// Nothing ran yet; release role resources directly.
			s.role.Close()
			s.setPhase(PhaseClosed)
			close(s.done)
			return
		}

		cancel()
		<-s.done
		s.setPhase(PhaseClosed)
	})
}

// ---------------------------------------------------------------------------
// Run loop
// ---------------------------------------------------------------------------

func (s *Session) run() {
	defer close(s.done)

	inbox := s.ch.Inbox()
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown(nil)
			return

		case in, ok := <-inbox:
			if !ok {
				s.shutdown(nil)
				return
			}
			if in.Err != nil {
				// Transport closure is an implicit stop, not a failure.
				s.logInfo("transport closed: %v", in.Err)
				s.shutdown(nil)
				return
			}
			if s.handleEnvelope(in.Envelope) {
				return
			}

		case cand := <-s.candCh:
			s.forwardLocalCandidate(cand)

		case state := <-s.stateCh:
			if s.handleStateChange(state) {
				return
			}

		case track := <-s.trackCh:
			s.role.HandleTrack(track)

		case <-s.statsC:
			s.sample()

		case <-s.pingC:
			s.sendPing()
		}
	}
}

// handleEnvelope dispatches one inbound envelope. Returns true when the
// session reached a terminal phase.
func (s *Session) handleEnvelope(env *protocol.Envelope) bool {
	switch env.Event {
	case protocol.EventAuthRequest:
		if s.Phase() != PhaseAwaitingAuth {
			s.logDebug("ignoring AUTH_REQUEST in phase %s", s.Phase())
			return false
		}
		if err := s.ch.Send(protocol.NewAuth(s.role.Credential())); err != nil {
			return s.fail(fmt.Errorf("failed to send credential: %w", err))
		}
		// Optimistic: no explicit success envelope exists. A later
		// AUTH_FAILED is terminal.
		s.setPhase(PhaseAwaitingPeerInit)
		return false

	case protocol.EventAuthFailed:
		detail := ""
		if env.AccessMessage != nil {
			detail = ": " + *env.AccessMessage
		}
		return s.fail(fmt.Errorf("%w%s", ErrAuthenticationFailed, detail))

	case protocol.EventInitPeer:
		if s.Phase() != PhaseAwaitingPeerInit || env.InitPeer == nil {
			s.logDebug("ignoring INIT_PEER in phase %s", s.Phase())
			return false
		}
		return s.negotiate(env.InitPeer)

	case protocol.EventAnswer:
		if s.Phase() != PhaseAwaitingAnswer {
			s.logDebug("ignoring ANSWER in phase %s", s.Phase())
			return false
		}
		desc := env.AnswerDescription()
		if desc == nil {
			s.logWarn("ANSWER without a description, ignoring")
			return false
		}
		if err := s.engine.SetRemoteAnswer(desc.SDP); err != nil {
			return s.fail(fmt.Errorf("%w: remote answer rejected: %v", ErrNegotiationFailed, err))
		}
		s.setPhase(PhaseRemoteSet)
		s.buffer.Flush()
		return false

	case protocol.EventOfferFailed:
		return s.fail(fmt.Errorf("server rejected offer for %q: %w", s.peerID, ErrPeerNotFound))

	case protocol.EventServerICE:
		if env.Ice == nil {
			s.logWarn("SERVER_ICE without candidate, ignoring")
			return false
		}
		s.buffer.Offer(env.Ice.Candidate)
		return false

	case protocol.EventPong:
		// Heartbeat acknowledgement carries no state.
		return false

	default:
		if env.Event.Known() {
			s.logDebug("ignoring unexpected %s", env.Event)
		} else {
			s.logWarn("ignoring unknown event %q", env.Event)
		}
		return false
	}
}

// negotiate performs the AwaitingPeerInit → AwaitingAnswer transitions:
// build the engine with the announced ICE servers, provision role media,
// generate the local offer and send it.
func (s *Session) negotiate(init *protocol.InitPeer) bool {
	engine, err := s.newEngine(init.PcConfig, rtc.Callbacks{
		OnCandidate:   s.postCandidate,
		OnStateChange: s.postState,
		OnTrack:       s.postTrack,
	})
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrNegotiationFailed, err))
	}
	s.engine = engine

	if err := s.role.Provision(engine); err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrNegotiationFailed, err))
	}

	s.setPhase(PhaseNegotiatingOffer)
	sdp, err := engine.CreateOffer()
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrNegotiationFailed, err))
	}
	if err := s.ch.Send(protocol.NewOffer(sdp, s.role.OfferTarget())); err != nil {
		return s.fail(fmt.Errorf("failed to send offer: %w", err))
	}
	s.setPhase(PhaseAwaitingAnswer)

	if s.role.Heartbeats() && init.PingInterval > 0 {
		s.pingTicker = time.NewTicker(time.Duration(init.PingInterval) * time.Millisecond)
		s.pingC = s.pingTicker.C
	}
	return false
}

// forwardLocalCandidate sends a gathered candidate the instant it arrives,
// regardless of negotiation phase. nil marks the end of gathering.
func (s *Session) forwardLocalCandidate(cand *protocol.IceCandidate) {
	if cand == nil {
		s.logDebug("local candidate gathering complete")
		return
	}
	if err := s.ch.Send(protocol.NewClientICE(s.role.ICEEvent(), *cand)); err != nil {
		s.logWarn("failed to send local candidate: %v", err)
	}
}

// handleStateChange reacts to the media engine's connection state. Reaching
// "connected" starts the statistics sampler; a failed or closed engine tears
// the whole session down.
func (s *Session) handleStateChange(state webrtc.PeerConnectionState) bool {
	s.logInfo("peer connection state: %s", state)

	switch state {
	case webrtc.PeerConnectionStateConnected:
		s.connected = true
		s.startSampler()
		s.report(KindStatus, StatusConnected)

	case webrtc.PeerConnectionStateDisconnected:
		s.connected = false
		s.stopSampler()
		s.report(KindStatus, StatusDisconnected)

	case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
		s.shutdown(nil)
		return true
	}
	return false
}

// startSampler rebaselines the counters and arms the stats ticker. Sampling
// runs only while the engine is connected.
func (s *Session) startSampler() {
	s.stopSampler()
	s.prevStats, _ = s.engine.Counters(s.role.StatsDirection())
	s.lastSample = time.Now()
	s.statsTicker = time.NewTicker(s.statsInterval)
	s.statsC = s.statsTicker.C
}

// stopSampler disarms the ticker; a tick already queued is never consumed.
func (s *Session) stopSampler() {
	if s.statsTicker != nil {
		s.statsTicker.Stop()
		s.statsTicker = nil
		s.statsC = nil
	}
}

// sample queries the engine's transport counters and reports bitrate and
// cumulative packets upward.
func (s *Session) sample() {
	cur, err := s.engine.Counters(s.role.StatsDirection())
	if err != nil {
		s.logWarn("failed to sample stats: %v", err)
		return
	}

	now := time.Now()
	elapsed := now.Sub(s.lastSample).Seconds()
	if elapsed <= 0 {
		elapsed = s.statsInterval.Seconds()
	}

	kbps := float64(cur.Bytes-s.prevStats.Bytes) * 8 / elapsed / 1000
	s.prevStats = cur
	s.lastSample = now

	s.report(KindStats, StatsSnapshot{BitrateKbps: kbps, Packets: cur.Packets})
}

// sendPing emits the grabber heartbeat announced by INIT_PEER.
func (s *Session) sendPing() {
	var connections uint32
	if s.connected {
		connections = 1
	}
	env := protocol.NewPing(time.Now().UnixMilli(), connections, s.role.StreamTypes())
	if err := s.ch.Send(env); err != nil {
		s.logWarn("failed to send ping: %v", err)
	}
}

// applyRemoteCandidate is the candidate buffer sink. Individual rejections
// are logged and skipped; candidate loss is not fatal to the session.
func (s *Session) applyRemoteCandidate(cand protocol.ServerCandidate) {
	if err := s.engine.AddRemoteCandidate(cand); err != nil {
		s.logWarn("dropping remote candidate: %v", err)
	}
}

// fail moves the session to the Failed absorbing state.
func (s *Session) fail(err error) bool {
	s.shutdown(err)
	return true
}

// shutdown releases every owned resource exactly once per loop exit and
// settles the terminal phase: Failed with an error, Closed without.
func (s *Session) shutdown(err error) {
	s.connected = false
	s.stopSampler()
	if s.pingTicker != nil {
		s.pingTicker.Stop()
	}
	s.role.Close()
	if s.engine != nil {
		_ = s.engine.Close()
	}
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}

	if err != nil {
		s.mu.Lock()
		s.failure = err
		s.phase = PhaseFailed
		s.mu.Unlock()
		s.logError("session failed: %v", err)
		s.report(KindStatus, StatusError)
		return
	}

	s.setPhase(PhaseClosed)
	s.report(KindStatus, StatusDisconnected)
}

// ---------------------------------------------------------------------------
// Engine callback fan-in
// ---------------------------------------------------------------------------

func (s *Session) postCandidate(cand *protocol.IceCandidate) {
	select {
	case s.candCh <- cand:
	case <-s.ctx.Done():
	}
}

func (s *Session) postState(state webrtc.PeerConnectionState) {
	select {
	case s.stateCh <- state:
	case <-s.ctx.Done():
	}
}

func (s *Session) postTrack(track rtc.RemoteTrack) {
	select {
	case s.trackCh <- track:
	case <-s.ctx.Done():
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

func (s *Session) report(kind string, payload interface{}) {
	if s.status != nil {
		s.status(s.peerID, kind, payload)
	}
}

func (s *Session) logDebug(format string, args ...interface{}) {
	util.LogDebug("[%s %s %s] "+format, append([]interface{}{s.role.Name(), s.peerID, s.id}, args...)...)
}

func (s *Session) logInfo(format string, args ...interface{}) {
	util.LogInfo("[%s %s %s] "+format, append([]interface{}{s.role.Name(), s.peerID, s.id}, args...)...)
}

func (s *Session) logWarn(format string, args ...interface{}) {
	util.LogWarning("[%s %s %s] "+format, append([]interface{}{s.role.Name(), s.peerID, s.id}, args...)...)
}

func (s *Session) logError(format string, args ...interface{}) {
	util.LogError("[%s %s %s] "+format, append([]interface{}{s.role.Name(), s.peerID, s.id}, args...)...)
}
