package model

import (
	"math"
	"time"
)

// ModuleProgress 学员在单个模块上的状态
// completed 只增不减，locked 只减不增
// swagger:model ModuleProgress
type ModuleProgress struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_progress_user_module;index:idx_progress_user_track" json:"-"`
	ModuleID    uint       `gorm:"not null;uniqueIndex:idx_progress_user_module" json:"module_id"`
	TrackID     uint       `gorm:"not null;index:idx_progress_user_track" json:"-"`
	Completed   bool       `gorm:"not null" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	Locked      bool       `gorm:"not null" json:"locked"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
}

func (ModuleProgress) TableName() string {
	return "module_progress"
}

// TrackProgress 由 ModuleProgress 实时计算，不单独存储
type TrackProgress struct {
	TrackID            uint    `json:"track_id"`
	TotalModules       int     `json:"total_modules"`
	CompletedModules   int     `json:"completed_modules"`
	ProgressPercentage float64 `json:"progress_percentage"`
	IsComplete         bool    `json:"is_complete"`
}

// NewTrackProgress 百分比保留两位小数；没有模块的路径不算完成
func NewTrackProgress(trackID uint, total, completed int) TrackProgress {
	p := TrackProgress{
		TrackID:          trackID,
		TotalModules:     total,
		CompletedModules: completed,
	}
	if total > 0 {
		p.ProgressPercentage = math.Round(10000*float64(completed)/float64(total)) / 100
		p.IsComplete = completed == total
	}
	return p
}
