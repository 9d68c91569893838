package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"selenex/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists recording sessions.
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create stores a session that has just started recording.
func (s *SessionStore) Create(ctx context.Context, session *models.RecordingSession) error {
	if session.Status == "" {
		session.Status = models.SessionStatusRecording
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session %s: %w", session.SessionID, err)
	}
	return nil
}

// Finish records the handed-off actions and marks the session stopped.
func (s *SessionStore) Finish(ctx context.Context, sessionID string, actions []models.ActionRecord, stoppedAt time.Time) error {
	var row models.RecordingSession
	if err := row.SetActions(actions); err != nil {
		return fmt.Errorf("encode actions: %w", err)
	}
	res := s.db.WithContext(ctx).Model(&models.RecordingSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":       models.SessionStatusStopped,
			"stopped_at":   stoppedAt,
			"actions":      row.Actions,
			"action_count": row.ActionCount,
		})
	if res.Error != nil {
		return fmt.Errorf("finish session %s: %w", sessionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*models.RecordingSession, error) {
	var session models.RecordingSession
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// List pages through sessions, newest first, without their actions. An empty status
// lists every session.
func (s *SessionStore) List(ctx context.Context, status string, page, pageSize int) ([]models.RecordingSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	query := s.db.WithContext(ctx).Model(&models.RecordingSession{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sessions := make([]models.RecordingSession, 0)
	err := query.Omit("actions").
		Order("started_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&sessions).Error
	return sessions, total, err
}

// ListRecording returns the session ids still marked as recording.
func (s *SessionStore) ListRecording(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.RecordingSession{}).
		Where("status = ?", models.SessionStatusRecording).
		Pluck("session_id", &ids).Error
	return ids, err
}

// MarkAborted flips recording sessions in ids to aborted.
func (s *SessionStore) MarkAborted(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.RecordingSession{}).
		Where("session_id IN ? AND status = ?", ids, models.SessionStatusRecording).
		Updates(map[string]interface{}{
			"status":     models.SessionStatusAborted,
			"stopped_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

// PruneBefore permanently deletes finished sessions started before cutoff.
func (s *SessionStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Unscoped().
		Where("started_at < ? AND status <> ?", cutoff, models.SessionStatusRecording).
		Delete(&models.RecordingSession{})
	return res.RowsAffected, res.Error
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	res := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.RecordingSession{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}
