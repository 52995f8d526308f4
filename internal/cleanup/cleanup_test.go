package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"listing-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockLogStore struct {
	mock.Mock
}

func (m *mockLogStore) CountListings(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLogStore) CountDeleteLogs(ctx context.Context, since, before time.Time) (int64, error) {
	args := m.Called(ctx, since, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLogStore) DeleteLogReasons(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	reasons, _ := args.Get(0).(map[string]int64)
	return reasons, args.Error(1)
}

func (m *mockLogStore) PurgeDeleteLogs(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLogStore) RecentDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error) {
	args := m.Called(ctx, limit)
	logs, _ := args.Get(0).([]models.DeleteLog)
	return logs, args.Error(1)
}

var fixedNow = time.Date(2024, 6, 30, 3, 0, 0, 0, time.UTC)

func newService(store LogStore) *Service {
	s := NewService(store, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestPurgeDeleteLogs(t *testing.T) {
	cutoff := fixedNow.AddDate(0, 0, -90)

	t.Run("purges expired entries", func(t *testing.T) {
		store := &mockLogStore{}
		store.On("CountDeleteLogs", mock.Anything, time.Time{}, cutoff).Return(int64(12), nil)
		store.On("PurgeDeleteLogs", mock.Anything, cutoff).Return(int64(12), nil)

		result, err := newService(store).PurgeDeleteLogs(context.Background(), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, int64(12), result.TargetCount)
		assert.Equal(t, int64(12), result.DeletedCount)
		assert.Equal(t, cutoff, result.Cutoff)
		store.AssertExpectations(t)
	})

	t.Run("nothing to purge", func(t *testing.T) {
		store := &mockLogStore{}
		store.On("CountDeleteLogs", mock.Anything, time.Time{}, cutoff).Return(int64(0), nil)

		result, err := newService(store).PurgeDeleteLogs(context.Background(), DefaultOptions())
		require.NoError(t, err)
		assert.Zero(t, result.DeletedCount)
		store.AssertNotCalled(t, "PurgeDeleteLogs", mock.Anything, mock.Anything)
	})

	t.Run("dry run only counts", func(t *testing.T) {
		store := &mockLogStore{}
		store.On("CountDeleteLogs", mock.Anything, time.Time{}, cutoff).Return(int64(5), nil)

		opts := DefaultOptions()
		opts.DryRun = true
		result, err := newService(store).PurgeDeleteLogs(context.Background(), opts)
		require.NoError(t, err)
		assert.True(t, result.DryRun)
		assert.Equal(t, int64(5), result.TargetCount)
		assert.Zero(t, result.DeletedCount)
		store.AssertNotCalled(t, "PurgeDeleteLogs", mock.Anything, mock.Anything)
	})

	t.Run("safety limit aborts", func(t *testing.T) {
		store := &mockLogStore{}
		store.On("CountDeleteLogs", mock.Anything, time.Time{}, cutoff).Return(int64(5000), nil)

		_, err := newService(store).PurgeDeleteLogs(context.Background(), DefaultOptions())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "safety check failed")
		store.AssertNotCalled(t, "PurgeDeleteLogs", mock.Anything, mock.Anything)
	})

	t.Run("invalid retention", func(t *testing.T) {
		_, err := newService(&mockLogStore{}).PurgeDeleteLogs(context.Background(), Options{})
		assert.Error(t, err)
	})

	t.Run("purge failure", func(t *testing.T) {
		store := &mockLogStore{}
		store.On("CountDeleteLogs", mock.Anything, time.Time{}, cutoff).Return(int64(3), nil)
		store.On("PurgeDeleteLogs", mock.Anything, cutoff).Return(int64(0), errors.New("lock wait timeout"))

		_, err := newService(store).PurgeDeleteLogs(context.Background(), DefaultOptions())
		assert.ErrorContains(t, err, "lock wait timeout")
	})
}

func TestGetDeleteStats(t *testing.T) {
	store := &mockLogStore{}
	store.On("CountListings", mock.Anything).Return(int64(40), nil)
	store.On("CountDeleteLogs", mock.Anything, time.Time{}, time.Time{}).Return(int64(9), nil)
	store.On("DeleteLogReasons", mock.Anything).Return(map[string]int64{models.DeleteReasonManual: 9}, nil)
	store.On("CountDeleteLogs", mock.Anything, fixedNow.AddDate(0, 0, -30), time.Time{}).Return(int64(4), nil)
	store.On("CountDeleteLogs", mock.Anything, time.Time{}, fixedNow.AddDate(0, 0, -90)).Return(int64(2), nil)

	stats, err := newService(store).GetDeleteStats(context.Background(), 90)
	require.NoError(t, err)
	assert.Equal(t, &Stats{
		Listings:          40,
		TotalDeleted:      9,
		ByReason:          map[string]int64{models.DeleteReasonManual: 9},
		DeletedLast30Days: 4,
		ExpiredLogs:       2,
	}, stats)
}

func TestGetRecentDeleteLogs_DefaultLimit(t *testing.T) {
	store := &mockLogStore{}
	store.On("RecentDeleteLogs", mock.Anything, 50).Return([]models.DeleteLog{{ListingID: "l1"}}, nil)

	logs, err := newService(store).GetRecentDeleteLogs(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
