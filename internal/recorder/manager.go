package recorder

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"selenex/internal/capture"
	"selenex/internal/models"
	"selenex/pkg/chrome"
)

var ErrSessionNotFound = errors.New("recording session not found")

// Manager tracks live and recently stopped recorders by session id.
type Manager struct {
	opts      Options
	logger    *zap.Logger
	recorders map[string]*Recorder
	mutex     sync.RWMutex
}

func NewManager(opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		opts:      opts,
		logger:    logger.Named("recorder"),
		recorders: make(map[string]*Recorder),
	}
}

// StartBrowser launches a Chrome recorder on targetURL.
func (m *Manager) StartBrowser(targetURL string, device chrome.Device) (*Recorder, error) {
	if targetURL == "" {
		return nil, errors.New("target url is required")
	}
	r := NewChromeRecorder(uuid.New().String(), targetURL, device, m.opts, m.logger)
	return m.start(r)
}

// StartRemote opens a recorder fed through Ingest.
func (m *Manager) StartRemote(targetURL string) (*Recorder, error) {
	r := NewRemoteRecorder(uuid.New().String(), targetURL, m.opts, m.logger)
	return m.start(r)
}

func (m *Manager) start(r *Recorder) (*Recorder, error) {
	if err := r.StartRecording(); err != nil {
		return nil, err
	}
	m.mutex.Lock()
	m.recorders[r.ID()] = r
	m.mutex.Unlock()
	return r, nil
}

func (m *Manager) Get(sessionID string) (*Recorder, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	r, ok := m.recorders[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return r, nil
}

// Has reports whether sessionID is tracked, recording or not.
func (m *Manager) Has(sessionID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.recorders[sessionID]
	return ok
}

// Stop ends the session but keeps the recorder so its actions can still be exported.
func (m *Manager) Stop(sessionID string) ([]models.ActionRecord, error) {
	r, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return r.StopRecording()
}

// Ingest feeds raw events to a tracked recorder.
func (m *Manager) Ingest(sessionID string, evts ...capture.RawEvent) (int, error) {
	r, err := m.Get(sessionID)
	if err != nil {
		return 0, err
	}
	if !r.IsRecording() {
		return 0, ErrNotRecording
	}
	return r.Ingest(evts...), nil
}

func (m *Manager) Status(sessionID string) (Status, error) {
	r, err := m.Get(sessionID)
	if err != nil {
		return Status{}, err
	}
	return r.Status(), nil
}

// List returns every tracked recorder's status, newest first.
func (m *Manager) List() []Status {
	m.mutex.RLock()
	out := make([]Status, 0, len(m.recorders))
	for _, r := range m.recorders {
		out = append(out, r.Status())
	}
	m.mutex.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

func (m *Manager) Cleanup(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.recorders, sessionID)
}

// ReapStopped forgets recorders whose session ended before cutoff and returns how many
// were dropped.
func (m *Manager) ReapStopped(cutoff time.Time) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	n := 0
	for id, r := range m.recorders {
		if stoppedAt, ok := r.StoppedAt(); ok && stoppedAt.Before(cutoff) {
			delete(m.recorders, id)
			n++
		}
	}
	return n
}

// Shutdown stops every live recorder.
func (m *Manager) Shutdown() {
	m.mutex.RLock()
	live := make([]*Recorder, 0, len(m.recorders))
	for _, r := range m.recorders {
		if r.IsRecording() {
			live = append(live, r)
		}
	}
	m.mutex.RUnlock()
	for _, r := range live {
		if _, err := r.StopRecording(); err != nil && !errors.Is(err, ErrNotRecording) {
			m.logger.Warn("stopping recorder on shutdown", zap.String("session_id", r.ID()), zap.Error(err))
		}
	}
}
