package repository

import (
	"academy_backend/internal/model"
	"academy_backend/internal/util"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) WithTx(tx *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: tx}
}

// Create 唯一索引冲突转换为 AlreadyIssuedError
func (r *CertificateRepository) Create(cert *model.Certificate) error {
	err := r.DB.Create(cert).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &util.AlreadyIssuedError{UserID: cert.UserID, TrackID: cert.TrackID}
	}
	return err
}

func (r *CertificateRepository) Exists(userID, trackID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Certificate{}).
		Where("user_id = ? AND track_id = ?", userID, trackID).
		Count(&count).Error
	return count > 0, err
}

func (r *CertificateRepository) FindByUserTrack(userID, trackID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Where("user_id = ? AND track_id = ?", userID, trackID).First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.NewNotFound("certificate for track", trackID)
	}
	return &cert, err
}

func (r *CertificateRepository) FindByVerificationCode(code string) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Where("verification_code = ?", code).First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	return &cert, err
}

func (r *CertificateRepository) ListByUser(userID uint) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.DB.Where("user_id = ?", userID).Order("issued_at ASC").Find(&certs).Error
	return certs, err
}

func (r *CertificateRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Certificate{}).Count(&count).Error
	return count, err
}

func (r *CertificateRepository) UpdateDocumentURL(id uint, url string) error {
	return r.DB.Model(&model.Certificate{}).
		Where("id = ?", id).
		Update("document_url", url).
		Error
}

// NextSequence 在事务内递增某年的证书序号，首次使用时从 start 开始
func (r *CertificateRepository) NextSequence(year int, start int64) (int64, error) {
	err := r.DB.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CertificateSequence{Year: year, LastValue: start}).Error
	if err != nil {
		return 0, err
	}

	var seq model.CertificateSequence
	err = r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("year = ?", year).
		First(&seq).Error
	if err != nil {
		return 0, err
	}

	seq.LastValue++
	err = r.DB.Model(&model.CertificateSequence{}).
		Where("year = ?", year).
		Update("last_value", seq.LastValue).Error
	if err != nil {
		return 0, err
	}
	return seq.LastValue, nil
}
