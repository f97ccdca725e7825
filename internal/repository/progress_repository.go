package repository

import (
	"academy_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

// LockTrackProgress 在事务内对学员某条路径的全部进度行加写锁
func (r *ProgressRepository) LockTrackProgress(userID, trackID uint) ([]model.ModuleProgress, error) {
	var rows []model.ModuleProgress
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND track_id = ?", userID, trackID).
		Order("module_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) ListByUserTrack(userID, trackID uint) ([]model.ModuleProgress, error) {
	var rows []model.ModuleProgress
	err := r.DB.Where("user_id = ? AND track_id = ?", userID, trackID).Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) ListByUser(userID uint) ([]model.ModuleProgress, error) {
	var rows []model.ModuleProgress
	err := r.DB.Where("user_id = ?", userID).Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) ListAll() ([]model.ModuleProgress, error) {
	var rows []model.ModuleProgress
	err := r.DB.Order("user_id ASC").Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) CreateBatch(rows []model.ModuleProgress) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB.Create(&rows).Error
}

// SaveStates 只写回状态字段
func (r *ProgressRepository) SaveStates(rows []model.ModuleProgress) error {
	for i := range rows {
		err := r.DB.Model(&model.ModuleProgress{}).
			Where("id = ?", rows[i].ID).
			Updates(map[string]interface{}{
				"completed":    rows[i].Completed,
				"completed_at": rows[i].CompletedAt,
				"locked":       rows[i].Locked,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// CompletedRow 报表快照使用的已完成模块记录
type CompletedRow struct {
	UserID      uint
	TrackID     uint
	CompletedAt time.Time
}

func (r *ProgressRepository) ListCompleted(trackID *uint) ([]CompletedRow, error) {
	var rows []CompletedRow
	q := r.DB.Model(&model.ModuleProgress{}).
		Select("user_id, track_id, completed_at").
		Where("completed = ? AND completed_at IS NOT NULL", true)
	if trackID != nil {
		q = q.Where("track_id = ?", *trackID)
	}
	err := q.Order("user_id ASC, track_id ASC").Scan(&rows).Error
	return rows, err
}
