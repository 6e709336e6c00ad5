package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoTrackPushAfterClose(t *testing.T) {
	track, err := NewVideoTrack("video", "webcam", 30)
	require.NoError(t, err)

	require.True(t, track.Push([]byte{0x01}))

	track.Close()
	track.Close() // idempotent

	assert.False(t, track.Push([]byte{0x02}), "Push must fail after Close")
}

func frameBuffer(frames ...[]byte) *bytes.Buffer {
	var buf bytes.Buffer
	for _, f := range frames {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(f)))
		buf.Write(f)
	}
	return &buf
}

func TestPipeSourcePumpFraming(t *testing.T) {
	track, err := NewVideoTrack("video", "webcam", 30)
	require.NoError(t, err)
	defer track.Close()
	src := &pipeSource{kind: StreamWebcam, track: track}

	t.Run("reads frames to EOF", func(t *testing.T) {
		buf := frameBuffer([]byte{0x00, 0x01, 0x02}, bytes.Repeat([]byte{0xab}, 512))
		require.NoError(t, src.pump(context.Background(), buf))
	})

	t.Run("rejects zero-length frame", func(t *testing.T) {
		buf := frameBuffer([]byte{})
		require.Error(t, src.pump(context.Background(), buf))
	})

	t.Run("rejects implausible frame size", func(t *testing.T) {
		var buf bytes.Buffer
		_ = binary.Write(&buf, binary.BigEndian, uint32(maxFrameSize+1))
		require.Error(t, src.pump(context.Background(), &buf))
	})

	t.Run("truncated payload is an error", func(t *testing.T) {
		var buf bytes.Buffer
		_ = binary.Write(&buf, binary.BigEndian, uint32(100))
		buf.Write([]byte{0x01, 0x02})
		require.Error(t, src.pump(context.Background(), &buf))
	})
}

func TestMissingPipeIsCapabilityFailure(t *testing.T) {
	_, err := NewCamera(filepath.Join(t.TempDir(), "no-such-pipe"), 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCameraUnavailable)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = NewScreen("", 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScreenUnavailable)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTestPatternSource(t *testing.T) {
	src, err := NewTestPattern(0)
	require.NoError(t, err)

	assert.Equal(t, []string{StreamWebcam}, src.StreamTypes())
	require.Len(t, src.Tracks(), 1)

	require.NoError(t, src.Start(context.Background()))
	src.Close()
	src.Close() // idempotent
}
