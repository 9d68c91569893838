package recorder

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"selenex/internal/capture"
	"selenex/internal/models"
)

const goPage = `<html><head><title>Go</title></head><body><button id="go">Go</button><p>text</p></body></html>`

func clickEvent(path []int, ts int64) capture.RawEvent {
	return capture.RawEvent{Type: capture.EventClick, TargetPath: path, HTML: goPage, URL: "https://app.test/", Timestamp: ts}
}

type fakeSubscriber struct {
	got  []interface{}
	fail bool
}

func (f *fakeSubscriber) WriteJSON(v interface{}) error {
	if f.fail {
		return errors.New("broken pipe")
	}
	f.got = append(f.got, v)
	return nil
}

func TestRemoteRecordingEndToEnd(t *testing.T) {
	r := NewRemoteRecorder("s1", "https://app.test/", Options{Capture: capture.DefaultOptions()}, zap.NewNop())
	require.NoError(t, r.StartRecording())
	assert.True(t, r.IsRecording())

	assert.Equal(t, 1, r.Ingest(clickEvent([]int{1, 0}, 1000)))

	actions, err := r.StopRecording()
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionClick, actions[0].Action)
	assert.Equal(t, "BUTTON", actions[0].ElementContext.Tag)
	assert.Equal(t, "go", *actions[0].ElementContext.Attributes.ID)
	assert.False(t, r.IsRecording())

	stoppedAt, ok := r.StoppedAt()
	assert.True(t, ok)
	assert.False(t, stoppedAt.IsZero())
}

func TestIngestSkipsMissesAndStopsAtBarrier(t *testing.T) {
	r := NewRemoteRecorder("s1", "", Options{}, nil)
	require.NoError(t, r.StartRecording())

	kept := r.Ingest(
		clickEvent([]int{1, 1}, 1), // paragraph, nothing interactive
		clickEvent([]int{1, 0}, 2),
		capture.RawEvent{Type: "mousemove", URL: "u"},
	)
	assert.Equal(t, 1, kept)

	_, err := r.StopRecording()
	require.NoError(t, err)
	assert.Equal(t, 0, r.Ingest(clickEvent([]int{1, 0}, 3)))
	assert.Len(t, r.GetActions(), 1)

	_, err = r.StopRecording()
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestConcurrentIngestKeepsTimestampOrder(t *testing.T) {
	r := NewRemoteRecorder("s1", "", Options{}, nil)
	require.NoError(t, r.StartRecording())

	const sources, perSource = 8, 50
	var wg sync.WaitGroup
	for i := 0; i < sources; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < perSource; j++ {
				// interleaved clocks: sources run ahead of each other
				ts := int64(1000 + j*10 + i*7)
				r.Ingest(capture.RawEvent{Type: capture.EventKeydown, Key: "Enter", URL: "u", Timestamp: ts})
			}
		}(i)
	}
	wg.Wait()

	actions, err := r.StopRecording()
	require.NoError(t, err)
	require.Len(t, actions, sources*perSource)
	assert.True(t, sort.SliceIsSorted(actions, func(a, b int) bool {
		return actions[a].Timestamp < actions[b].Timestamp
	}), "session order follows timestamps")
}

func TestRestartClearsSessionAndScrollWindow(t *testing.T) {
	r := NewRemoteRecorder("s1", "", Options{}, nil)
	scroll := capture.RawEvent{Type: capture.EventScroll, URL: "u", ScrollY: 10, Timestamp: 5000}

	require.NoError(t, r.StartRecording())
	assert.Equal(t, 1, r.Ingest(scroll))
	_, err := r.StopRecording()
	require.NoError(t, err)

	require.NoError(t, r.StartRecording())
	assert.Empty(t, r.GetActions())
	scroll.Timestamp = 5100
	assert.Equal(t, 1, r.Ingest(scroll), "a new session starts with the scroll window disarmed")
}

func TestSubscribersReceiveKeptRecords(t *testing.T) {
	r := NewRemoteRecorder("s1", "", Options{}, nil)
	require.NoError(t, r.StartRecording())

	live := &fakeSubscriber{}
	broken := &fakeSubscriber{fail: true}
	r.Subscribe(live)
	r.Subscribe(broken)

	r.Ingest(clickEvent([]int{1, 0}, 1), clickEvent([]int{1, 1}, 2))
	require.Len(t, live.got, 1)
	assert.Equal(t, models.ActionClick, live.got[0].(models.ActionRecord).Action)

	r.Unsubscribe(live)
	r.Ingest(clickEvent([]int{1, 0}, 3))
	assert.Len(t, live.got, 1)
	assert.Empty(t, r.subscribers, "failed subscriber was dropped")
}

func TestStatus(t *testing.T) {
	r := NewRemoteRecorder("s1", "https://app.test/", Options{}, nil)
	require.NoError(t, r.StartRecording())
	r.Ingest(clickEvent([]int{1, 0}, 1))

	st := r.Status()
	assert.Equal(t, "s1", st.SessionID)
	assert.Equal(t, SourceRemote, st.Source)
	assert.True(t, st.IsRecording)
	assert.Equal(t, 1, st.ActionCount)
	assert.Nil(t, st.StoppedAt)
	assert.WithinDuration(t, time.Now(), st.StartedAt, time.Minute)
}

func TestRecordingScript(t *testing.T) {
	script, err := recordingScript([]string{"Enter", "F5"})
	require.NoError(t, err)
	assert.Contains(t, script, `var KEYS = ["Enter","F5"];`)
	assert.Contains(t, script, "window."+bindingName+"(")
	assert.False(t, strings.Contains(script, "__KEYS__") || strings.Contains(script, "__BINDING__"))
	assert.Contains(t, script, "el.setAttribute('"+capture.TargetAttr+"', '')")
	assert.Contains(t, script, "el.removeAttribute('"+capture.TargetAttr+"')")
	assert.NotContains(t, script, "__TARGET_ATTR__")

	script, err = recordingScript(nil)
	require.NoError(t, err)
	assert.Contains(t, script, `["Enter","Escape","Tab"]`)
}
