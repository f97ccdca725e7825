package repository

import (
	"academy_backend/internal/model"
	"academy_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

// TrackRepository 只读课程目录
type TrackRepository struct {
	DB *gorm.DB
}

func NewTrackRepository(db *gorm.DB) *TrackRepository {
	return &TrackRepository{DB: db}
}

func (r *TrackRepository) WithTx(tx *gorm.DB) *TrackRepository {
	return &TrackRepository{DB: tx}
}

func orderedModules(db *gorm.DB) *gorm.DB {
	return db.Order("order_index ASC")
}

// ListTracks 按 order_index 返回所有路径及其有序模块
func (r *TrackRepository) ListTracks() ([]model.Track, error) {
	var tracks []model.Track
	err := r.DB.Preload("Modules", orderedModules).
		Order("order_index ASC, id ASC").
		Find(&tracks).Error
	return tracks, err
}

func (r *TrackRepository) FindTrack(id uint) (*model.Track, error) {
	var track model.Track
	err := r.DB.Preload("Modules", orderedModules).First(&track, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.NewNotFound("track", id)
	}
	return &track, err
}

func (r *TrackRepository) FindModule(id uint) (*model.Module, error) {
	var module model.Module
	err := r.DB.First(&module, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.NewNotFound("module", id)
	}
	return &module, err
}

func (r *TrackRepository) ListModules(trackID uint) ([]model.Module, error) {
	var modules []model.Module
	err := r.DB.Where("track_id = ?", trackID).Order("order_index ASC").Find(&modules).Error
	return modules, err
}

func (r *TrackRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Track{}).Count(&count).Error
	return count, err
}
