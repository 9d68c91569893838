package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Pruner deletes stored sessions older than a cutoff.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Reaper drops in-memory recorders stopped before a cutoff.
type Reaper interface {
	ReapStopped(cutoff time.Time) int
}

// RetentionService periodically deletes old stored sessions and forgets stopped
// recorders that were already handed off.
type RetentionService struct {
	cron      *cron.Cron
	store     Pruner
	recorders Reaper
	maxAge    time.Duration
	reapAfter time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewRetentionService schedules the cleanup job on schedule, a cron spec with a
// leading seconds field.
func NewRetentionService(schedule string, maxAge, reapAfter time.Duration, store Pruner, recorders Reaper, logger *zap.Logger) (*RetentionService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RetentionService{
		cron:      cron.New(cron.WithSeconds()),
		store:     store,
		recorders: recorders,
		maxAge:    maxAge,
		reapAfter: reapAfter,
		logger:    logger.Named("retention"),
		now:       time.Now,
	}
	entryID, err := s.cron.AddFunc(schedule, func() {
		if _, _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Warn("retention run failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	s.logger.Info("retention scheduled", zap.Int("entry", int(entryID)), zap.String("schedule", schedule))
	return s, nil
}

func (s *RetentionService) Start() {
	s.cron.Start()
}

// Stop waits for a running job to finish.
func (s *RetentionService) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce prunes stored sessions older than maxAge and reaps recorders stopped more
// than reapAfter ago.
func (s *RetentionService) RunOnce(ctx context.Context) (int64, int, error) {
	now := s.now()
	reaped := 0
	if s.recorders != nil && s.reapAfter > 0 {
		reaped = s.recorders.ReapStopped(now.Add(-s.reapAfter))
	}

	var pruned int64
	if s.store != nil && s.maxAge > 0 {
		var err error
		pruned, err = s.store.PruneBefore(ctx, now.Add(-s.maxAge))
		if err != nil {
			return 0, reaped, fmt.Errorf("prune sessions: %w", err)
		}
	}
	s.logger.Info("retention run completed", zap.Int64("pruned", pruned), zap.Int("reaped", reaped))
	return pruned, reaped, nil
}
