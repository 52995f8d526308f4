package scheduler

import (
	"context"
	"errors"
	"testing"

	"listing-portal/internal/cleanup"
	"listing-portal/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePurger struct {
	calls []cleanup.Options
	err   error
}

func (f *fakePurger) PurgeDeleteLogs(_ context.Context, opts cleanup.Options) (*cleanup.Result, error) {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &cleanup.Result{TargetCount: 3, DeletedCount: 3}, nil
}

func cleanupConfig(enabled bool, runTime string) config.CleanupConfig {
	return config.CleanupConfig{
		Enabled:          enabled,
		DailyRunTime:     runTime,
		RetentionDays:    30,
		MaxDeletionCount: 500,
	}
}

func TestStart_Disabled(t *testing.T) {
	s := NewScheduler(&fakePurger{}, cleanupConfig(false, "03:00"), nil, zap.NewNop())
	require.NoError(t, s.Start())
	assert.Equal(t, 0, s.Entries())
	s.Stop()
}

func TestStart_RegistersDailyJob(t *testing.T) {
	s := NewScheduler(&fakePurger{}, cleanupConfig(true, "03:30"), nil, zap.NewNop())
	require.NoError(t, s.Start())
	defer s.Stop()

	require.Equal(t, 1, s.Entries())
	next := s.cron.Entries()[0].Next
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 30, next.Minute())
}

func TestStart_InvalidTime(t *testing.T) {
	s := NewScheduler(&fakePurger{}, cleanupConfig(true, "25:99"), nil, zap.NewNop())
	assert.Error(t, s.Start())
}

func TestRunNow_PassesRetentionSettings(t *testing.T) {
	p := &fakePurger{}
	s := NewScheduler(p, cleanupConfig(true, "03:00"), nil, zap.NewNop())

	result, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.DeletedCount)
	require.Len(t, p.calls, 1)
	assert.Equal(t, cleanup.Options{RetentionDays: 30, MaxDeletionCount: 500}, p.calls[0])

	p.err = errors.New("db down")
	_, err = s.RunNow(context.Background())
	assert.EqualError(t, err, "db down")
}
