package service

import (
	"academy_backend/internal/model"
	"academy_backend/internal/repository"
	"math"
	"sort"
	"time"
)

const day = 24 * time.Hour

type completionKey struct {
	userID  uint
	trackID uint
}

// buildCompletionRecords 把已完成模块行归并为路径完成事件
// 只有完成数等于路径模块总数时才算完成
func buildCompletionRecords(rows []repository.CompletedRow, totals map[uint]int) []model.TrackCompletionRecord {
	type agg struct {
		count int
		first time.Time
		last  time.Time
	}
	groups := make(map[completionKey]*agg)
	for _, r := range rows {
		k := completionKey{userID: r.UserID, trackID: r.TrackID}
		g, ok := groups[k]
		if !ok {
			groups[k] = &agg{count: 1, first: r.CompletedAt, last: r.CompletedAt}
			continue
		}
		g.count++
		if r.CompletedAt.Before(g.first) {
			g.first = r.CompletedAt
		}
		if r.CompletedAt.After(g.last) {
			g.last = r.CompletedAt
		}
	}

	records := make([]model.TrackCompletionRecord, 0, len(groups))
	for k, g := range groups {
		total, ok := totals[k.trackID]
		if !ok || total == 0 || g.count < total {
			continue
		}
		records = append(records, model.TrackCompletionRecord{
			UserID:           k.userID,
			TrackID:          k.trackID,
			FirstCompletedAt: g.first,
			CompletedAt:      g.last,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].TrackID != records[j].TrackID {
			return records[i].TrackID < records[j].TrackID
		}
		return records[i].UserID < records[j].UserID
	})
	return records
}

// completionDays 向下取整的天数
func completionDays(r model.TrackCompletionRecord) int {
	d := r.CompletedAt.Sub(r.FirstCompletedAt)
	if d < 0 {
		return 0
	}
	return int(d / day)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// aggregateCompletions 统计 [start, end] 内的路径完成次数，两端均包含
func aggregateCompletions(tracks []model.Track, records []model.TrackCompletionRecord, start, end time.Time) model.CompletionReport {
	counts := make(map[uint]int, len(tracks))
	for _, r := range records {
		if r.CompletedAt.Before(start) || r.CompletedAt.After(end) {
			continue
		}
		counts[r.TrackID]++
	}

	report := model.CompletionReport{ByTrack: make([]model.TrackCompletionCount, 0, len(tracks))}
	for _, t := range tracks {
		n := counts[t.ID]
		report.ByTrack = append(report.ByTrack, model.TrackCompletionCount{
			TrackID:     t.ID,
			TrackTitle:  t.Title,
			Completions: n,
		})
		report.OverallCompletions += n
	}
	return report
}

// aggregateTimes 按路径统计完成耗时；没有完成记录的路径全部为 0
// overall_average_days 对所有完成记录求平均，而不是对各路径平均值再平均
func aggregateTimes(tracks []model.Track, records []model.TrackCompletionRecord) model.TimeReport {
	byTrack := make(map[uint][]int, len(tracks))
	for _, r := range records {
		byTrack[r.TrackID] = append(byTrack[r.TrackID], completionDays(r))
	}

	report := model.TimeReport{ByTrack: make([]model.TrackTimeStat, 0, len(tracks))}
	var totalDays, totalCount int
	for _, t := range tracks {
		stat := model.TrackTimeStat{TrackID: t.ID, TrackTitle: t.Title}
		days := byTrack[t.ID]
		if len(days) > 0 {
			sum := 0
			stat.MinDays, stat.MaxDays = days[0], days[0]
			for _, d := range days {
				sum += d
				if d < stat.MinDays {
					stat.MinDays = d
				}
				if d > stat.MaxDays {
					stat.MaxDays = d
				}
			}
			stat.TotalCompletions = len(days)
			stat.AverageDays = round2(float64(sum) / float64(len(days)))
			totalDays += sum
			totalCount += len(days)
		}
		report.ByTrack = append(report.ByTrack, stat)
	}
	if totalCount > 0 {
		report.OverallAverageDays = round2(float64(totalDays) / float64(totalCount))
	}
	return report
}
