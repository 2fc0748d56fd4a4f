// Package scheduler runs periodic model retraining.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-predictor/internal/datasource"
	"github.com/yourusername/keiba-predictor/internal/metrics"
)

// Retrainer fits and persists a new model over a date range.
type Retrainer interface {
	Retrain(ctx context.Context, dr datasource.DateRange) error
}

// Scheduler manages scheduled retraining jobs
type Scheduler struct {
	cron       *cron.Cron
	retrainer  Retrainer
	logger     *logrus.Logger
	mu         sync.RWMutex
	isRunning  bool
	jobIDs     []cron.EntryID
	jobTimeout time.Duration
	now        func() time.Time
}

// NewScheduler creates a new scheduler. Overlapping runs of the same job are
// skipped rather than queued.
func NewScheduler(retrainer Retrainer, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		retrainer:  retrainer,
		logger:     logger,
		jobIDs:     make([]cron.EntryID, 0),
		jobTimeout: 4 * time.Hour,
		now:        time.Now,
	}
}

// ScheduleRetrain adds a job that retrains on the trailing lookbackDays
// ending on the day the job fires.
func (s *Scheduler) ScheduleRetrain(cronExpression string, lookbackDays int) (cron.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return 0, fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if lookbackDays <= 0 {
		return 0, fmt.Errorf("lookback days must be positive, got %d", lookbackDays)
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		_ = s.RunRetrain(ctx, lookbackDays)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"cron":          cronExpression,
		"lookback_days": lookbackDays,
	}).Info("Scheduled retraining job")

	return entryID, nil
}

// RunRetrain performs one retraining run immediately.
func (s *Scheduler) RunRetrain(ctx context.Context, lookbackDays int) error {
	dr := datasource.Trailing(s.now(), lookbackDays)
	log := s.logger.WithField("date_range", dr.String())
	log.Info("Starting scheduled retraining")

	start := time.Now()
	if err := s.retrainer.Retrain(ctx, dr); err != nil {
		metrics.RecordScheduledRun("failure")
		log.WithError(err).Error("Scheduled retraining failed")
		return err
	}

	metrics.RecordScheduledRun("success")
	log.WithField("duration_seconds", time.Since(start).Seconds()).Info("Scheduled retraining completed")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}
