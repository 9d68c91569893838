package recorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selenex/pkg/chrome"
)

func TestManagerRemoteSession(t *testing.T) {
	m := NewManager(Options{}, nil)

	r, err := m.StartRemote("https://app.test/")
	require.NoError(t, err)
	id := r.ID()
	assert.Len(t, id, 36)
	assert.True(t, m.Has(id))

	n, err := m.Ingest(id, clickEvent([]int{1, 0}, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, err := m.Status(id)
	require.NoError(t, err)
	assert.Equal(t, 1, st.ActionCount)

	actions, err := m.Stop(id)
	require.NoError(t, err)
	assert.Len(t, actions, 1)

	_, err = m.Ingest(id, clickEvent([]int{1, 0}, 2))
	assert.ErrorIs(t, err, ErrNotRecording)

	assert.True(t, m.Has(id), "stopped sessions stay until cleaned up")
	m.Cleanup(id)
	assert.False(t, m.Has(id))
}

func TestManagerUnknownSession(t *testing.T) {
	m := NewManager(Options{}, nil)
	_, err := m.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Stop("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Ingest("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Status("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerBrowserRequiresURL(t *testing.T) {
	_, err := NewManager(Options{}, nil).StartBrowser("", chrome.Device{})
	assert.Error(t, err)
}

func TestManagerReapAndShutdown(t *testing.T) {
	m := NewManager(Options{}, nil)
	stopped, err := m.StartRemote("")
	require.NoError(t, err)
	live, err := m.StartRemote("")
	require.NoError(t, err)

	_, err = m.Stop(stopped.ID())
	require.NoError(t, err)

	assert.Equal(t, 0, m.ReapStopped(time.Now().Add(-time.Hour)))
	assert.Len(t, m.List(), 2)
	assert.Equal(t, 1, m.ReapStopped(time.Now().Add(time.Second)))
	assert.False(t, m.Has(stopped.ID()))
	assert.True(t, m.Has(live.ID()))

	m.Shutdown()
	assert.False(t, live.IsRecording())
}
