package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mond1c/webrtc-grabber-go/internal/session"
)

func TestRegistryAddAndGet(t *testing.T) {
	reg := session.NewRegistry()
	h := newHarness()
	sess := h.publisher(t, "cam1")
	defer sess.Stop()

	require.NoError(t, reg.Add("cam1", sess))
	require.Error(t, reg.Add("cam1", sess), "duplicate names must be rejected")

	got, ok := reg.Get("cam1")
	require.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = reg.Get("cam2")
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Len())
}

// A stale session's cleanup must not evict its replacement.
func TestRegistryRemoveIsIdentityChecked(t *testing.T) {
	reg := session.NewRegistry()

	h1 := newHarness()
	old := h1.publisher(t, "cam1")
	require.NoError(t, reg.Add("cam1", old))
	reg.Remove("cam1", old)
	require.Equal(t, 0, reg.Len())

	h2 := newHarness()
	replacement := h2.publisher(t, "cam1")
	defer replacement.Stop()
	require.NoError(t, reg.Add("cam1", replacement))

	// The old session's deferred cleanup fires late.
	reg.Remove("cam1", old)

	got, ok := reg.Get("cam1")
	require.True(t, ok)
	assert.Same(t, replacement, got)
}

func TestRegistryStopAll(t *testing.T) {
	reg := session.NewRegistry()

	h1 := newHarness()
	s1 := h1.viewer(t, "cam1", "secret")
	h2 := newHarness()
	s2 := h2.viewer(t, "cam2", "secret")

	require.NoError(t, reg.Add("cam1", s1))
	require.NoError(t, reg.Add("cam2", s2))

	reg.StopAll()

	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, session.PhaseClosed, s1.Phase())
	assert.Equal(t, session.PhaseClosed, s2.Phase())
}
