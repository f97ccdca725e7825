package service

import (
	"academy_backend/internal/model"
	"academy_backend/internal/repository"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackWithModules(id uint, title string, n int) model.Track {
	t := model.Track{Title: title, Modules: make([]model.Module, n)}
	t.ID = id
	return t
}

func at(day, hour int) time.Time {
	return time.Date(2026, 1, day, hour, 0, 0, 0, time.UTC)
}

func record(userID, trackID uint, first, done time.Time) model.TrackCompletionRecord {
	return model.TrackCompletionRecord{UserID: userID, TrackID: trackID, FirstCompletedAt: first, CompletedAt: done}
}

func TestBuildCompletionRecords(t *testing.T) {
	rows := []repository.CompletedRow{
		{UserID: 1, TrackID: 10, CompletedAt: at(3, 9)},
		{UserID: 1, TrackID: 10, CompletedAt: at(1, 9)},
		{UserID: 1, TrackID: 10, CompletedAt: at(5, 9)},
		// 用户 2 只完成了 2/3
		{UserID: 2, TrackID: 10, CompletedAt: at(2, 9)},
		{UserID: 2, TrackID: 10, CompletedAt: at(4, 9)},
		// 不在目录中的路径被忽略
		{UserID: 3, TrackID: 99, CompletedAt: at(4, 9)},
	}

	records := buildCompletionRecords(rows, map[uint]int{10: 3, 20: 0})
	require.Len(t, records, 1)
	assert.Equal(t, uint(1), records[0].UserID)
	assert.Equal(t, at(1, 9), records[0].FirstCompletedAt)
	assert.Equal(t, at(5, 9), records[0].CompletedAt)
}

func TestCompletionDays_Floor(t *testing.T) {
	cases := []struct {
		name  string
		first time.Time
		done  time.Time
		want  int
	}{
		{"same instant", at(1, 9), at(1, 9), 0},
		{"under a day", at(1, 9), at(2, 8), 0},
		{"exactly one day", at(1, 9), at(2, 9), 1},
		{"four days and change", at(19, 9), at(23, 17), 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, completionDays(record(1, 1, tc.first, tc.done)))
		})
	}
}

func TestAggregateCompletions_InclusiveRange(t *testing.T) {
	tracks := []model.Track{trackWithModules(1, "A", 5), trackWithModules(2, "B", 4)}
	records := []model.TrackCompletionRecord{
		record(1, 1, at(1, 0), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		record(2, 1, at(1, 0), time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)),
		record(3, 1, at(1, 0), time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
		record(4, 2, at(1, 0), at(23, 12)),
	}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 23, 59, 59, 999999999, time.UTC)
	report := aggregateCompletions(tracks, records, start, end)

	assert.Equal(t, 3, report.OverallCompletions)
	require.Len(t, report.ByTrack, 2)
	assert.Equal(t, 2, report.ByTrack[0].Completions)
	assert.Equal(t, "A", report.ByTrack[0].TrackTitle)
	assert.Equal(t, 1, report.ByTrack[1].Completions)
}

func TestAggregateTimes_ZeroCompletions(t *testing.T) {
	tracks := []model.Track{trackWithModules(1, "A", 5)}

	report := aggregateTimes(tracks, nil)
	require.Len(t, report.ByTrack, 1)
	stat := report.ByTrack[0]
	assert.Equal(t, 0.0, stat.AverageDays)
	assert.Equal(t, 0, stat.MinDays)
	assert.Equal(t, 0, stat.MaxDays)
	assert.Equal(t, 0, stat.TotalCompletions)
	assert.Equal(t, 0.0, report.OverallAverageDays)
}

func TestAggregateTimes_OverallIsMeanOfAllCompletions(t *testing.T) {
	tracks := []model.Track{trackWithModules(1, "A", 5), trackWithModules(2, "B", 3), trackWithModules(3, "C", 2)}
	records := []model.TrackCompletionRecord{
		record(1, 1, at(1, 9), at(2, 9)),
		record(2, 1, at(1, 9), at(4, 9)),
		record(3, 2, at(1, 9), at(11, 9)),
	}

	report := aggregateTimes(tracks, records)
	require.Len(t, report.ByTrack, 3)

	a := report.ByTrack[0]
	assert.Equal(t, 2.0, a.AverageDays)
	assert.Equal(t, 1, a.MinDays)
	assert.Equal(t, 3, a.MaxDays)
	assert.Equal(t, 2, a.TotalCompletions)

	b := report.ByTrack[1]
	assert.Equal(t, 10.0, b.AverageDays)
	assert.Equal(t, 1, b.TotalCompletions)

	assert.Equal(t, 0, report.ByTrack[2].TotalCompletions)

	// (1 + 3 + 10) / 3，而不是 (2 + 10) / 2
	assert.Equal(t, 4.67, report.OverallAverageDays)
}
