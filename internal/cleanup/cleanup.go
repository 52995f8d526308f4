// Package cleanup purges old delete logs and reports deletion statistics.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"listing-portal/internal/metrics"
	"listing-portal/internal/models"

	"go.uber.org/zap"
)

// LogStore is the delete-log surface of the relational store
type LogStore interface {
	CountListings(ctx context.Context) (int64, error)
	CountDeleteLogs(ctx context.Context, since, before time.Time) (int64, error)
	DeleteLogReasons(ctx context.Context) (map[string]int64, error)
	PurgeDeleteLogs(ctx context.Context, before time.Time) (int64, error)
	RecentDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error)
}

// Service handles delete-log retention
type Service struct {
	store  LogStore
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new cleanup service
func NewService(store LogStore, log *zap.Logger) *Service {
	return &Service{store: store, logger: log, now: time.Now}
}

// Options holds configuration for one purge run
type Options struct {
	RetentionDays    int  // Days to keep delete logs (default: 90)
	MaxDeletionCount int  // Abort when more entries than this would go
	DryRun           bool // Only count what would be purged
}

// DefaultOptions returns default configuration
func DefaultOptions() Options {
	return Options{
		RetentionDays:    90,
		MaxDeletionCount: 1000,
	}
}

// Result holds the result of a purge run
type Result struct {
	Cutoff       time.Time `json:"cutoff"`
	TargetCount  int64     `json:"target_count"`
	DeletedCount int64     `json:"deleted_count"`
	DryRun       bool      `json:"dry_run"`
	ExecutedAt   time.Time `json:"executed_at"`
}

// PurgeDeleteLogs removes delete logs older than the retention period.
// The run is refused when the backlog exceeds MaxDeletionCount.
func (s *Service) PurgeDeleteLogs(ctx context.Context, opts Options) (*Result, error) {
	if opts.RetentionDays <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", opts.RetentionDays)
	}

	now := s.now()
	result := &Result{
		Cutoff:     now.AddDate(0, 0, -opts.RetentionDays),
		DryRun:     opts.DryRun,
		ExecutedAt: now,
	}

	target, err := s.store.CountDeleteLogs(ctx, time.Time{}, result.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to count expired delete logs: %w", err)
	}
	result.TargetCount = target

	if target == 0 {
		s.logger.Info("No expired delete logs", zap.Time("cutoff", result.Cutoff))
		return result, nil
	}

	// Safety check: abort if too many entries would be deleted
	if opts.MaxDeletionCount > 0 && target > int64(opts.MaxDeletionCount) {
		return nil, fmt.Errorf("safety check failed: %d delete logs exceed max deletion limit of %d",
			target, opts.MaxDeletionCount)
	}

	if opts.DryRun {
		s.logger.Info("[DRY-RUN] Would purge delete logs",
			zap.Int64("count", target), zap.Time("cutoff", result.Cutoff))
		return result, nil
	}

	deleted, err := s.store.PurgeDeleteLogs(ctx, result.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to purge delete logs: %w", err)
	}
	result.DeletedCount = deleted
	metrics.DeleteLogsPurged.Add(float64(deleted))

	s.logger.Info("Purged delete logs",
		zap.Int64("deleted", deleted),
		zap.Int64("target", target),
		zap.Int("retention_days", opts.RetentionDays))
	return result, nil
}

// Stats summarizes listings and deletions
type Stats struct {
	Listings          int64            `json:"listings"`
	TotalDeleted      int64            `json:"total_deleted"`
	ByReason          map[string]int64 `json:"by_reason"`
	DeletedLast30Days int64            `json:"deleted_last_30_days"`
	ExpiredLogs       int64            `json:"expired_logs"`
}

// GetDeleteStats returns statistics about deleted listings
func (s *Service) GetDeleteStats(ctx context.Context, retentionDays int) (*Stats, error) {
	now := s.now()
	stats := &Stats{}
	var err error

	if stats.Listings, err = s.store.CountListings(ctx); err != nil {
		return nil, err
	}
	if stats.TotalDeleted, err = s.store.CountDeleteLogs(ctx, time.Time{}, time.Time{}); err != nil {
		return nil, err
	}
	if stats.ByReason, err = s.store.DeleteLogReasons(ctx); err != nil {
		return nil, err
	}
	if stats.DeletedLast30Days, err = s.store.CountDeleteLogs(ctx, now.AddDate(0, 0, -30), time.Time{}); err != nil {
		return nil, err
	}
	if retentionDays > 0 {
		if stats.ExpiredLogs, err = s.store.CountDeleteLogs(ctx, time.Time{}, now.AddDate(0, 0, -retentionDays)); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// GetRecentDeleteLogs returns recent delete log entries
func (s *Service) GetRecentDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.RecentDeleteLogs(ctx, limit)
}
