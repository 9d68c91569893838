package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type ActionType string

const (
	ActionClick   ActionType = "click"
	ActionScroll  ActionType = "scroll"
	ActionInput   ActionType = "input"
	ActionKeydown ActionType = "keydown"
)

// Attributes is the fixed attribute set captured for every element. Every field is
// serialized, as null when the attribute was absent.
type Attributes struct {
	ID           *string `json:"id"`
	Class        *string `json:"class"`
	Href         *string `json:"href"`
	Name         *string `json:"name"`
	Placeholder  *string `json:"placeholder"`
	Role         *string `json:"role"`
	AriaExpanded *string `json:"ariaExpanded"`
	Target       *string `json:"target"`
	Type         *string `json:"type"`
	DataTestID   *string `json:"dataTestId"`
}

type ParentDescriptor struct {
	Tag   string  `json:"tag"`
	ID    *string `json:"id"`
	Class *string `json:"class"`
}

type ElementContext struct {
	Tag         string             `json:"tag"`
	Text        *string            `json:"text"`
	Attributes  Attributes         `json:"attributes"`
	ParentChain []ParentDescriptor `json:"parentChain"`
}

// PageFingerprint identifies a page state. The minimal variant only carries URL.
type PageFingerprint struct {
	URL             string   `json:"url"`
	Title           *string  `json:"title"`
	VisibleTextHash *string  `json:"visibleTextHash"`
	DomSignature    []string `json:"domSignature"`
}

func (f PageFingerprint) IsMinimal() bool {
	return f.Title == nil && f.VisibleTextHash == nil
}

// MarshalJSON writes the minimal variant as {"url": ...} and always emits all four keys
// for a full fingerprint, with an empty array when the page has no landmarks.
func (f PageFingerprint) MarshalJSON() ([]byte, error) {
	if f.IsMinimal() {
		return json.Marshal(struct {
			URL string `json:"url"`
		}{f.URL})
	}
	sig := f.DomSignature
	if sig == nil {
		sig = []string{}
	}
	type full PageFingerprint
	out := full(f)
	out.DomSignature = sig
	return json.Marshal(out)
}

// ActionRecord is one captured interaction. Records are values; nothing mutates them
// after capture.
type ActionRecord struct {
	Action         ActionType      `json:"action"`
	ElementContext *ElementContext `json:"elementContext,omitempty"`
	Value          *string         `json:"value,omitempty"`
	Key            *string         `json:"key,omitempty"`
	X              *float64        `json:"x,omitempty"`
	Y              *float64        `json:"y,omitempty"`
	Fingerprint    PageFingerprint `json:"fingerprint"`
	Timestamp      int64           `json:"timestamp"`
}

type BaseModel struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

const (
	SessionStatusRecording = "recording"
	SessionStatusStopped   = "stopped"
	SessionStatusAborted   = "aborted"
)

// RecordingSession is the persisted form of a session handed off on stop.
type RecordingSession struct {
	BaseModel
	SessionID   string     `json:"session_id" gorm:"uniqueIndex;size:64;not null"`
	Source      string     `json:"source" gorm:"size:20;not null"` // browser, remote
	TargetURL   string     `json:"target_url" gorm:"size:2000"`
	Device      string     `json:"device" gorm:"size:100"`
	Status      string     `json:"status" gorm:"size:20;index;not null"`
	StartedAt   time.Time  `json:"started_at"`
	StoppedAt   *time.Time `json:"stopped_at"`
	ActionCount int        `json:"action_count"`
	Actions     string     `json:"-" gorm:"type:longtext"` // JSON ActionRecord array
}

func (s *RecordingSession) GetActions() ([]ActionRecord, error) {
	actions := make([]ActionRecord, 0)
	if s.Actions == "" {
		return actions, nil
	}
	err := json.Unmarshal([]byte(s.Actions), &actions)
	return actions, err
}

func (s *RecordingSession) SetActions(actions []ActionRecord) error {
	data, err := json.Marshal(actions)
	if err != nil {
		return err
	}
	s.Actions = string(data)
	s.ActionCount = len(actions)
	return nil
}
