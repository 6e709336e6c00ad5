package session

import "errors"

// Failure taxonomy. Sessions wrap these sentinels with context via
// fmt.Errorf("...: %w", ...); callers classify with errors.Is.
var (
	// ErrCapabilityUnavailable: a required capture capability is missing.
	// Detected before any transport connection is attempted.
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrAuthenticationFailed: the server rejected the viewer credential.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrPeerNotFound: the server rejected the offer because the requested
	// publisher does not exist.
	ErrPeerNotFound = errors.New("peer not found")

	// ErrNegotiationFailed: the media engine rejected a description during
	// setup. Recoverable only by starting a fresh session.
	ErrNegotiationFailed = errors.New("negotiation failed")

	// ErrAlreadyStarted: Start was called twice. Sessions are single-shot.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrStopped: Start was called on a session that was already stopped.
	ErrStopped = errors.New("session stopped")
)
