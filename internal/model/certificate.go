package model

import (
	"time"

	"gorm.io/datatypes"
)

// Certificate 每个 (学员, 路径) 最多一张，签发后不可修改
// swagger:model Certificate
type Certificate struct {
	ID                uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            uint           `gorm:"not null;uniqueIndex:idx_certificate_user_track" json:"user_id"`
	TrackID           uint           `gorm:"not null;uniqueIndex:idx_certificate_user_track" json:"track_id"`
	CertificateNumber string         `gorm:"size:32;not null;uniqueIndex" json:"certificate_number"`
	VerificationCode  string         `gorm:"size:36;not null;uniqueIndex" json:"verification_code"`
	IssuedAt          time.Time      `gorm:"not null" json:"issued_at"`
	UserName          string         `gorm:"size:100;not null" json:"user_name"`
	TrackTitle        string         `gorm:"size:255;not null" json:"track_title"`
	CompletionDate    datatypes.Date `gorm:"not null" json:"-"`
	DocumentURL       string         `gorm:"size:512" json:"document_url,omitempty"`
	CreatedAt         time.Time      `json:"-"`
}

func (Certificate) TableName() string {
	return "certificates"
}

// CertificateSequence 全系统按年份递增的证书序号
type CertificateSequence struct {
	Year      int   `gorm:"primaryKey;autoIncrement:false"`
	LastValue int64 `gorm:"not null"`
}

func (CertificateSequence) TableName() string {
	return "certificate_sequences"
}

// CertificateView 对外输出，completion_date 只保留日期部分
type CertificateView struct {
	ID                uint      `json:"id"`
	CertificateNumber string    `json:"certificate_number"`
	VerificationCode  string    `json:"verification_code"`
	IssuedAt          time.Time `json:"issued_at"`
	UserName          string    `json:"user_name"`
	TrackID           uint      `json:"track_id"`
	TrackTitle        string    `json:"track_title"`
	CompletionDate    string    `json:"completion_date"`
	DocumentURL       string    `json:"document_url,omitempty"`
}

func (c *Certificate) View() CertificateView {
	return CertificateView{
		ID:                c.ID,
		CertificateNumber: c.CertificateNumber,
		VerificationCode:  c.VerificationCode,
		IssuedAt:          c.IssuedAt,
		UserName:          c.UserName,
		TrackID:           c.TrackID,
		TrackTitle:        c.TrackTitle,
		CompletionDate:    time.Time(c.CompletionDate).Format("2006-01-02"),
		DocumentURL:       c.DocumentURL,
	}
}
