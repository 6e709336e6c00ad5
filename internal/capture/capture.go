// Package capture provides the publisher's local media: sample tracks fed
// by an encoded-frame pump, plus the capability-probed sources that fill
// them. Rendering and device selection stay outside; sources consume
// already-encoded H264 access units.
package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// ErrUnavailable is the base capability error. Every missing-capability
// failure wraps it, so callers can classify with errors.Is before deciding
// whether to connect at all.
var ErrUnavailable = errors.New("capture capability unavailable")

// Distinct capability errors per source kind.
var (
	ErrCameraUnavailable = fmt.Errorf("camera: %w", ErrUnavailable)
	ErrScreenUnavailable = fmt.Errorf("screen: %w", ErrUnavailable)
)

// Stream type labels reported in grabber heartbeats.
const (
	StreamWebcam  = "webcam"
	StreamDesktop = "desktop"
)

// Source is a bundle of local tracks plus the producer feeding them.
// Construction probes the required capability and fails fast; Start begins
// producing frames; Close stops every track individually before release.
type Source interface {
	Tracks() []webrtc.TrackLocal
	StreamTypes() []string
	Start(ctx context.Context) error
	Close()
}
