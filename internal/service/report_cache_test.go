package service

import (
	"academy_backend/internal/model"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withRedis 为夹具的报表服务接入内存 redis
func withRedis(t *testing.T, f *fixture) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f.reports.Redis = rdb
	f.reports.SetCacheTTL(10 * time.Minute)
	return mr
}

// markTrackCompleted 绕过引擎直接写入已完成状态，缓存不会感知
func markTrackCompleted(t *testing.T, f *fixture, traineeID, trackID uint, at time.Time) {
	t.Helper()
	require.NoError(t, f.db.Model(&model.ModuleProgress{}).
		Where("user_id = ? AND track_id = ?", traineeID, trackID).
		Updates(map[string]interface{}{"completed": true, "completed_at": at, "locked": false}).Error)
}

func TestReportCache_ServesCachedUntilTrackCompletion(t *testing.T) {
	f := newFixture(t)
	mr := withRedis(t, f)
	ctx := context.Background()

	first, err := f.reports.GenerateCompletionReport(ctx, "2026-01-01", "2026-01-31", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, first.OverallCompletions)
	assert.True(t, mr.Exists("academy:report:v0:completion:2026-01-01:2026-01-31:all"))

	silent := f.register(t, "Silent Trainee")
	markTrackCompleted(t, f, silent.ID, f.tracks[2].ID, time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))

	cached, err := f.reports.GenerateCompletionReport(ctx, "2026-01-01", "2026-01-31", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, cached.OverallCompletions)

	trainee := f.register(t, "Jane Trainee")
	f.completeTrack(t, trainee.ID, f.tracks[2], time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC), 48*time.Hour)

	gen, err := mr.Get("academy:report:generation")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	fresh, err := f.reports.GenerateCompletionReport(ctx, "2026-01-01", "2026-01-31", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.OverallCompletions)

	times, err := f.reports.GenerateTimeReport(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, times.ByTrack[2].TotalCompletions)
}

func TestReportCache_InvalidatedBeforeListenersRun(t *testing.T) {
	f := newFixture(t)
	withRedis(t, f)
	ctx := context.Background()

	_, err := f.reports.GenerateCompletionReport(ctx, "2026-01-01", "2026-01-31", nil)
	require.NoError(t, err)

	// 提交后的异步回调不执行，缓存仍须在返回前失效
	f.progression.Dispatch = func(func()) {}
	trainee := f.register(t, "Jane Trainee")
	f.completeTrack(t, trainee.ID, f.tracks[2], time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC), time.Hour)

	report, err := f.reports.GenerateCompletionReport(ctx, "2026-01-01", "2026-01-31", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.OverallCompletions)
}

func TestReportCache_ZeroTTLBypassesCache(t *testing.T) {
	f := newFixture(t)
	mr := withRedis(t, f)
	f.reports.SetCacheTTL(0)
	ctx := context.Background()

	first, err := f.reports.GenerateCompletionReport(ctx, "2026-01-01", "2026-01-31", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, first.OverallCompletions)
	assert.Empty(t, mr.Keys())

	trainee := f.register(t, "Jane Trainee")
	markTrackCompleted(t, f, trainee.ID, f.tracks[2].ID, time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))

	second, err := f.reports.GenerateCompletionReport(ctx, "2026-01-01", "2026-01-31", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, second.OverallCompletions)
	assert.Empty(t, mr.Keys())
}

func TestReportCache_SnapshotNotWrittenUnderNewGeneration(t *testing.T) {
	f := newFixture(t)
	mr := withRedis(t, f)
	ctx := context.Background()

	var stale model.TimeReport
	full, hit := f.reports.cacheGet(ctx, "time:all", &stale)
	require.False(t, hit)
	require.Equal(t, "academy:report:v0:time:all", full)

	// 快照期间发生失效
	f.reports.InvalidateCache(ctx)
	f.reports.cacheSet(ctx, full, &stale)

	assert.True(t, mr.Exists("academy:report:v0:time:all"))
	assert.False(t, mr.Exists("academy:report:v1:time:all"))

	var current model.TimeReport
	_, hit = f.reports.cacheGet(ctx, "time:all", &current)
	assert.False(t, hit)
}

func TestReportCache_WarmFillsCommonReports(t *testing.T) {
	f := newFixture(t)
	mr := withRedis(t, f)

	require.NoError(t, f.reports.Warm(context.Background()))

	assert.True(t, mr.Exists("academy:report:v0:time:all"))
	// 夹具时钟为 2026-01-19
	assert.True(t, mr.Exists("academy:report:v0:completion:2026-01-01:2026-01-31:all"))
}

func TestReportCache_WarmWithoutRedisIsNoop(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.reports.Warm(context.Background()))
}
