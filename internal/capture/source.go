package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/Mond1c/webrtc-grabber-go/internal/util"
)

// maxFrameSize bounds a single encoded access unit read from a frame pipe.
const maxFrameSize = 8 << 20

// pipeSource reads length-prefixed H264 access units (4-byte big-endian
// length, then the payload) from a file or named pipe written by an
// external encoder, and pumps them into a single video track.
type pipeSource struct {
	kind   string // stream type label
	path   string
	track  *VideoTrack
	cancel context.CancelFunc

	closeOnce sync.Once
}

// NewCamera probes the camera frame pipe and builds its source. A missing
// pipe is a capability failure, reported before any connection attempt.
func NewCamera(path string, fps int) (Source, error) {
	return newPipeSource(StreamWebcam, path, fps, ErrCameraUnavailable)
}

// NewScreen probes the screen-share frame pipe and builds its source.
func NewScreen(path string, fps int) (Source, error) {
	return newPipeSource(StreamDesktop, path, fps, ErrScreenUnavailable)
}

func newPipeSource(kind, path string, fps int, capErr error) (Source, error) {
	if path == "" {
		return nil, fmt.Errorf("no frame pipe configured: %w", capErr)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("frame pipe %q: %v: %w", path, err, capErr)
	}

	track, err := NewVideoTrack("video", kind, fps)
	if err != nil {
		return nil, err
	}

	return &pipeSource{kind: kind, path: path, track: track}, nil
}

func (s *pipeSource) Tracks() []webrtc.TrackLocal {
	return []webrtc.TrackLocal{s.track.Track()}
}

func (s *pipeSource) StreamTypes() []string {
	return []string{s.kind}
}

// Start launches the reader goroutine. Frames flow until the pipe ends, the
// context is cancelled or the source is closed.
func (s *pipeSource) Start(ctx context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open frame pipe %q: %w", s.path, err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		defer f.Close()
		if err := s.pump(ctx, f); err != nil {
			util.LogWarning("%s frame pipe ended: %v", s.kind, err)
		}
	}()

	return nil
}

func (s *pipeSource) pump(ctx context.Context, r io.Reader) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		var size uint32
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if size == 0 || size > maxFrameSize {
			return fmt.Errorf("implausible frame size %d", size)
		}

		frame := make([]byte, size)
		if _, err := io.ReadFull(r, frame); err != nil {
			return err
		}

		if !s.track.Push(frame) {
			return nil
		}
	}
}

func (s *pipeSource) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.track.Close()
	})
}

// testSource emits a canned payload at the configured frame rate. It needs
// no device and exists for wiring checks against a live server.
type testSource struct {
	track  *VideoTrack
	fps    int
	cancel context.CancelFunc

	closeOnce sync.Once
}

// NewTestPattern builds the synthetic source. It never fails a capability
// probe.
func NewTestPattern(fps int) (Source, error) {
	if fps <= 0 {
		fps = 30
	}
	track, err := NewVideoTrack("video", StreamWebcam, fps)
	if err != nil {
		return nil, err
	}
	return &testSource{track: track, fps: fps}, nil
}

func (s *testSource) Tracks() []webrtc.TrackLocal {
	return []webrtc.TrackLocal{s.track.Track()}
}

func (s *testSource) StreamTypes() []string {
	return []string{StreamWebcam}
}

func (s *testSource) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	// A single dummy access unit; the payload only has to be stable bytes,
	// the packetizer does not inspect it.
	frame := make([]byte, 1200)
	for i := range frame {
		frame[i] = byte(i)
	}

	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(s.fps))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !s.track.Push(frame) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (s *testSource) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.track.Close()
	})
}
