package recorder

import (
	"errors"
	"sync"

	"selenex/internal/models"
)

var (
	ErrAlreadyRecording = errors.New("recording is already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Sink receives captured records. Append reports whether the record was kept.
type Sink interface {
	Append(rec models.ActionRecord) bool
}

// Controller owns one session. Capture surfaces only append; Start and Stop are the
// controller's alone. A single mutex orders appends from several surfaces and makes
// Stop a hard barrier: once it returns, nothing else lands in the session.
type Controller struct {
	mu      sync.Mutex
	state   State
	session []models.ActionRecord
}

func NewController() *Controller {
	return &Controller{session: make([]models.ActionRecord, 0)}
}

// Start clears the session and begins accepting records.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Recording {
		return ErrAlreadyRecording
	}
	c.state = Recording
	c.session = make([]models.ActionRecord, 0)
	return nil
}

// Stop ends the session and hands it off whole.
func (c *Controller) Stop() ([]models.ActionRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Recording {
		return nil, ErrNotRecording
	}
	c.state = Idle
	return append(make([]models.ActionRecord, 0, len(c.session)), c.session...), nil
}

// Append keeps rec while recording and silently drops it otherwise.
func (c *Controller) Append(rec models.ActionRecord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Recording {
		return false
	}
	c.session = append(c.session, rec)
	return true
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the records captured so far.
func (c *Controller) Session() []models.ActionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(make([]models.ActionRecord, 0, len(c.session)), c.session...)
}

func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.session)
}
