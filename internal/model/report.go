package model

import "time"

type ReportPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type TrackCompletionCount struct {
	TrackID     uint   `json:"track_id"`
	TrackTitle  string `json:"track_title"`
	Completions int    `json:"completions"`
}

// swagger:model CompletionReport
type CompletionReport struct {
	Period             ReportPeriod           `json:"period"`
	OverallCompletions int                    `json:"overall_completions"`
	ByTrack            []TrackCompletionCount `json:"by_track"`
}

type TrackTimeStat struct {
	TrackID          uint    `json:"track_id"`
	TrackTitle       string  `json:"track_title"`
	AverageDays      float64 `json:"average_days"`
	MinDays          int     `json:"min_days"`
	MaxDays          int     `json:"max_days"`
	TotalCompletions int     `json:"total_completions"`
}

// swagger:model TimeReport
type TimeReport struct {
	OverallAverageDays float64         `json:"overall_average_days"`
	ByTrack            []TrackTimeStat `json:"by_track"`
}

// TrackCompletionRecord 一个学员完成一条路径的事件
// FirstCompletedAt 为该路径内最早的模块完成时间，CompletedAt 为最后一个模块的完成时间
type TrackCompletionRecord struct {
	UserID           uint
	TrackID          uint
	FirstCompletedAt time.Time
	CompletedAt      time.Time
}
