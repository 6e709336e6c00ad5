package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/Mond1c/webrtc-grabber-go/internal/util"
)

const trackInboxSize = 64

// VideoTrack is an H264 sample track fed frame-by-frame through Push. A
// single writer goroutine serializes WriteSample calls and applies a fixed
// per-frame duration derived from the configured frame rate.
type VideoTrack struct {
	sample   *webrtc.TrackLocalStaticSample
	duration time.Duration

	inbox     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewVideoTrack creates the track and starts its writer. id and streamID
// become the track/stream identifiers in the offer.
func NewVideoTrack(id, streamID string, fps int) (*VideoTrack, error) {
	if fps <= 0 {
		fps = 30
	}

	sample, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264},
		id, streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create video track: %w", err)
	}

	t := &VideoTrack{
		sample:   sample,
		duration: time.Second / time.Duration(fps),
		inbox:    make(chan []byte, trackInboxSize),
		done:     make(chan struct{}),
	}
	go t.run()

	return t, nil
}

// Track exposes the underlying pion track for engine attachment.
func (t *VideoTrack) Track() webrtc.TrackLocal {
	return t.sample
}

// Push enqueues one encoded frame. Blocks while the inbox is full and
// returns false once the track is closed.
func (t *VideoTrack) Push(frame []byte) bool {
	select {
	case t.inbox <- frame:
		return true
	case <-t.done:
		return false
	}
}

// Close stops the writer. Idempotent.
func (t *VideoTrack) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
	})
}

// run is the single-writer loop draining the inbox into the sample track.
func (t *VideoTrack) run() {
	for {
		select {
		case frame := <-t.inbox:
			err := t.sample.WriteSample(media.Sample{
				Data:     frame,
				Duration: t.duration,
			})
			if err != nil {
				util.LogWarning("failed to write video sample: %v", err)
			}
		case <-t.done:
			return
		}
	}
}
