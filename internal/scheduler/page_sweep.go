// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper drops pages that have been idle for longer than maxIdle.
type Sweeper interface {
	Sweep(maxIdle time.Duration) int
}

// PageSweepScheduler periodically evicts idle pages.
type PageSweepScheduler struct {
	sweeper  Sweeper
	schedule string
	maxIdle  time.Duration
	logger   *slog.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewPageSweepScheduler creates a scheduler running sweeper on schedule, a
// standard five-field cron expression.
func NewPageSweepScheduler(sweeper Sweeper, schedule string, maxIdle time.Duration, logger *slog.Logger) *PageSweepScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageSweepScheduler{
		sweeper:  sweeper,
		schedule: schedule,
		maxIdle:  maxIdle,
		logger:   logger.With("component", "page_sweep"),
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor))),
	}
}

// ValidateSchedule reports whether schedule parses as a cron expression.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// Start begins the scheduler. It stops when ctx is cancelled.
func (s *PageSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.maxIdle <= 0 {
		s.logger.Info("page sweep disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.RunNow)
	if err != nil {
		return fmt.Errorf("failed to schedule page sweep: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("page sweep started", "schedule", s.schedule, "max_idle", s.maxIdle)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()
	return nil
}

// Stop waits for a running sweep and stops the scheduler.
func (s *PageSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.cancelFunc = nil
	s.logger.Info("page sweep stopped")
}

// RunNow sweeps immediately.
func (s *PageSweepScheduler) RunNow() {
	if n := s.sweeper.Sweep(s.maxIdle); n > 0 {
		s.logger.Info("evicted idle pages", "count", n)
	}
}

// IsRunning returns whether the scheduler is active.
func (s *PageSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the next sweep will occur.
func (s *PageSweepScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}
