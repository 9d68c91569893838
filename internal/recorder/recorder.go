package recorder

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"selenex/internal/capture"
	"selenex/internal/models"
	"selenex/pkg/chrome"
)

// Source tells where a recorder's raw events come from.
type Source string

const (
	// SourceBrowser recorders drive their own Chrome instance.
	SourceBrowser Source = "browser"
	// SourceRemote recorders are fed by an external surface through Ingest.
	SourceRemote Source = "remote"
)

const defaultQueueSize = 1024

type Options struct {
	Capture    capture.Options
	ChromePath string
	Headless   bool
	// LoadTimeout bounds the initial navigation of a browser recorder.
	LoadTimeout time.Duration
	QueueSize   int
}

// Subscriber receives every record kept by a recorder. *websocket.Conn satisfies it.
type Subscriber interface {
	WriteJSON(v interface{}) error
}

type Status struct {
	SessionID   string     `json:"session_id"`
	Source      Source     `json:"source"`
	TargetURL   string     `json:"target_url,omitempty"`
	Device      string     `json:"device,omitempty"`
	IsRecording bool       `json:"is_recording"`
	ActionCount int        `json:"action_count"`
	StartedAt   time.Time  `json:"started_at"`
	StoppedAt   *time.Time `json:"stopped_at,omitempty"`
}

// Recorder binds one capture surface to one session.
type Recorder struct {
	id         string
	source     Source
	targetURL  string
	device     chrome.Device
	opts       Options
	logger     *zap.Logger
	controller *Controller
	capturer   *capture.Capturer

	// ingestMu keeps stamping, storing and broadcasting one record atomic, so records from
	// concurrent surfaces land in timestamp order.
	ingestMu sync.Mutex

	mutex     sync.RWMutex
	cancel    func()
	startedAt time.Time
	stoppedAt *time.Time

	// subMu also serializes writes, since a websocket allows one writer at a time.
	subMu       sync.Mutex
	subscribers map[Subscriber]struct{}
}

func newRecorder(id string, source Source, targetURL string, device chrome.Device, opts Options, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	logger = logger.With(zap.String("session_id", id), zap.String("source", string(source)))
	return &Recorder{
		id:          id,
		source:      source,
		targetURL:   targetURL,
		device:      device,
		opts:        opts,
		logger:      logger,
		controller:  NewController(),
		capturer:    capture.New(opts.Capture, logger.Named("capture")),
		subscribers: make(map[Subscriber]struct{}),
	}
}

// NewRemoteRecorder returns a recorder without a browser, fed through Ingest.
func NewRemoteRecorder(id, targetURL string, opts Options, logger *zap.Logger) *Recorder {
	return newRecorder(id, SourceRemote, targetURL, chrome.Device{}, opts, logger)
}

// NewChromeRecorder returns a recorder that launches Chrome on StartRecording.
func NewChromeRecorder(id, targetURL string, device chrome.Device, opts Options, logger *zap.Logger) *Recorder {
	return newRecorder(id, SourceBrowser, targetURL, device, opts, logger)
}

func (r *Recorder) ID() string { return r.id }

func (r *Recorder) Source() Source { return r.source }

// StartRecording begins a fresh session. Browser recorders also launch Chrome and
// navigate to the target URL; a launch failure leaves the recorder idle.
func (r *Recorder) StartRecording() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.controller.Start(); err != nil {
		return err
	}
	r.capturer.Reset()
	r.startedAt = time.Now()
	r.stoppedAt = nil

	if r.source != SourceBrowser {
		r.logger.Info("remote recording started", zap.String("url", r.targetURL))
		return nil
	}
	if err := r.launchBrowser(); err != nil {
		_, _ = r.controller.Stop()
		return err
	}
	r.logger.Info("browser recording started",
		zap.String("url", r.targetURL),
		zap.String("device", r.device.Name))
	return nil
}

// StopRecording ends the session and returns it. Events still queued when Stop runs
// are discarded.
func (r *Recorder) StopRecording() ([]models.ActionRecord, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	actions, err := r.controller.Stop()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	r.stoppedAt = &now

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.logger.Info("recording stopped", zap.Int("actions", len(actions)))
	return actions, nil
}

// Ingest runs raw events through the capture pipeline in order and returns how many
// records were kept.
func (r *Recorder) Ingest(evts ...capture.RawEvent) int {
	r.ingestMu.Lock()
	defer r.ingestMu.Unlock()

	kept := 0
	for _, evt := range evts {
		rec, ok := r.capturer.Handle(evt)
		if !ok {
			continue
		}
		if !r.controller.Append(rec) {
			continue
		}
		kept++
		r.broadcast(rec)
	}
	return kept
}

func (r *Recorder) GetActions() []models.ActionRecord {
	return r.controller.Session()
}

func (r *Recorder) IsRecording() bool {
	return r.controller.State() == Recording
}

func (r *Recorder) Status() Status {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	st := Status{
		SessionID:   r.id,
		Source:      r.source,
		TargetURL:   r.targetURL,
		Device:      r.device.Name,
		IsRecording: r.IsRecording(),
		ActionCount: r.controller.Len(),
		StartedAt:   r.startedAt,
	}
	if r.stoppedAt != nil {
		t := *r.stoppedAt
		st.StoppedAt = &t
	}
	return st
}

// StoppedAt reports when the last session ended; ok is false while recording or
// before the first start.
func (r *Recorder) StoppedAt() (time.Time, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if r.stoppedAt == nil {
		return time.Time{}, false
	}
	return *r.stoppedAt, true
}

func (r *Recorder) Subscribe(s Subscriber) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.subscribers[s] = struct{}{}
}

func (r *Recorder) Unsubscribe(s Subscriber) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	delete(r.subscribers, s)
}

func (r *Recorder) broadcast(rec models.ActionRecord) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for s := range r.subscribers {
		if err := s.WriteJSON(rec); err != nil {
			r.logger.Warn("dropping live subscriber", zap.Error(err))
			delete(r.subscribers, s)
		}
	}
}
