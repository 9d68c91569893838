package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultSyncInterval = 30 * time.Second

// SessionTracker reports whether a recorder for the session is still held in memory.
type SessionTracker interface {
	Has(sessionID string) bool
}

// RecordingStore lists and aborts sessions still marked as recording.
type RecordingStore interface {
	ListRecording(ctx context.Context) ([]string, error)
	MarkAborted(ctx context.Context, ids []string) (int64, error)
}

// StatusSyncService marks stored sessions as aborted when they still read "recording"
// but no recorder backs them any more, as happens after a restart.
type StatusSyncService struct {
	store    RecordingStore
	tracker  SessionTracker
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewStatusSyncService(store RecordingStore, tracker SessionTracker, interval time.Duration, logger *zap.Logger) *StatusSyncService {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusSyncService{
		store:    store,
		tracker:  tracker,
		interval: interval,
		logger:   logger.Named("status_sync"),
	}
}

// Start runs one sync immediately, then one per interval until Stop.
func (s *StatusSyncService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.syncLoop(ctx, s.done)
	s.logger.Info("status sync service started", zap.Duration("interval", s.interval))
}

func (s *StatusSyncService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.logger.Info("status sync service stopped")
}

func (s *StatusSyncService) syncLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SyncOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("status sync failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncOnce aborts orphaned sessions and returns how many were fixed.
func (s *StatusSyncService) SyncOnce(ctx context.Context) (int64, error) {
	ids, err := s.store.ListRecording(ctx)
	if err != nil {
		return 0, err
	}
	var orphans []string
	for _, id := range ids {
		if !s.tracker.Has(id) {
			orphans = append(orphans, id)
		}
	}
	fixed, err := s.store.MarkAborted(ctx, orphans)
	if err != nil {
		return 0, err
	}
	if fixed > 0 {
		s.logger.Info("marked orphaned sessions aborted", zap.Int64("count", fixed))
	}
	return fixed, nil
}
