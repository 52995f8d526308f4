package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"listing-portal/internal/cleanup"
	"listing-portal/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Purger runs one delete-log retention pass
type Purger interface {
	PurgeDeleteLogs(ctx context.Context, opts cleanup.Options) (*cleanup.Result, error)
}

// Scheduler runs the daily delete-log retention job
type Scheduler struct {
	cron      *cron.Cron
	purger    Purger
	config    config.CleanupConfig
	logger    *zap.Logger
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler in the given location
func NewScheduler(purger Purger, cfg config.CleanupConfig, loc *time.Location, log *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		purger: purger,
		config: cfg,
		logger: log,
	}
}

// Start registers the daily job and starts the cron loop
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler: daily cleanup is disabled in configuration")
		return nil
	}

	spec, err := config.ParseDailyRunTime(s.config.DailyRunTime)
	if err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunNow(context.Background()); err != nil {
			s.logger.Error("Scheduler: daily cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to register cleanup job %q: %w", spec, err)
	}

	s.cron.Start()
	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()
	s.logger.Info("Scheduler: started",
		zap.String("daily_run_time", s.config.DailyRunTime),
		zap.String("cron", spec))
	return nil
}

// Stop stops the cron loop and waits for a running job
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler: stopped")
}

// RunNow executes the retention job immediately
func (s *Scheduler) RunNow(ctx context.Context) (*cleanup.Result, error) {
	s.logger.Info("Scheduler: starting delete-log cleanup")
	result, err := s.purger.PurgeDeleteLogs(ctx, cleanup.Options{
		RetentionDays:    s.config.RetentionDays,
		MaxDeletionCount: s.config.MaxDeletionCount,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Scheduler: delete-log cleanup completed",
		zap.Int64("deleted", result.DeletedCount),
		zap.Int64("target", result.TargetCount))
	return result, nil
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
