package service

import (
	"academy_backend/internal/config"
	"academy_backend/internal/model"
	"academy_backend/internal/repository"
	"academy_backend/internal/util"
	"academy_backend/pkg/logger"
	"academy_backend/pkg/monitoring"
	"academy_backend/pkg/tracing"
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CertificateService struct {
	DB        *gorm.DB
	CertRepo  *repository.CertificateRepository
	UserRepo  *repository.UserRepository
	TrackRepo *repository.TrackRepository
	Storage   *StorageService
	Mailer    Mailer
	Config    config.CertificateConfig
	PublicURL string
	Location  *time.Location
	Clock     func() time.Time
}

func NewCertificateService(
	db *gorm.DB,
	certRepo *repository.CertificateRepository,
	userRepo *repository.UserRepository,
	trackRepo *repository.TrackRepository,
	storage *StorageService,
	mailer Mailer,
	cfg *config.Config,
) *CertificateService {
	return &CertificateService{
		DB:        db,
		CertRepo:  certRepo,
		UserRepo:  userRepo,
		TrackRepo: trackRepo,
		Storage:   storage,
		Mailer:    mailer,
		Config:    cfg.Certificate,
		PublicURL: strings.TrimRight(cfg.Server.PublicURL, "/"),
		Location:  cfg.Report.Location(),
		Clock:     time.Now,
	}
}

func (s *CertificateService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

func (s *CertificateService) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// FormatNumber CERT-<年份>-<六位序号>
func (s *CertificateService) FormatNumber(year int, seq int64) string {
	prefix := s.Config.Prefix
	if prefix == "" {
		prefix = "CERT"
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, year, seq)
}

// calendarDate 取本地日历日期，以 UTC 零点存储，避免驱动时区转换改变日期
func calendarDate(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// Issue 在调用方事务内签发证书
func (s *CertificateService) Issue(ctx context.Context, tx *gorm.DB, traineeID, trackID uint) (*model.Certificate, error) {
	return s.issueAt(ctx, tx, traineeID, trackID, s.now())
}

func (s *CertificateService) issueAt(ctx context.Context, tx *gorm.DB, traineeID, trackID uint, at time.Time) (*model.Certificate, error) {
	_, span := tracing.Start(ctx, "CertificateService.Issue")
	defer span.End()

	certRepo := s.CertRepo.WithTx(tx)

	exists, err := certRepo.Exists(traineeID, trackID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &util.AlreadyIssuedError{UserID: traineeID, TrackID: trackID}
	}

	user, err := s.UserRepo.WithTx(tx).FindByID(traineeID)
	if err != nil {
		return nil, err
	}
	track, err := s.TrackRepo.WithTx(tx).FindTrack(trackID)
	if err != nil {
		return nil, err
	}

	local := at.In(s.location())
	seq, err := certRepo.NextSequence(local.Year(), s.Config.SequenceStart)
	if err != nil {
		return nil, fmt.Errorf("next certificate sequence: %w", err)
	}

	cert := &model.Certificate{
		UserID:            traineeID,
		TrackID:           trackID,
		CertificateNumber: s.FormatNumber(local.Year(), seq),
		VerificationCode:  model.GenerateUUID(),
		IssuedAt:          at,
		UserName:          user.FullName,
		TrackTitle:        track.Title,
		CompletionDate:    calendarDate(local),
	}
	if err := certRepo.Create(cert); err != nil {
		return nil, err
	}
	return cert, nil
}

func (s *CertificateService) GetForTrainee(ctx context.Context, traineeID, trackID uint) (*model.CertificateView, error) {
	db := s.DB.WithContext(ctx)
	if _, err := s.TrackRepo.WithTx(db).FindTrack(trackID); err != nil {
		return nil, err
	}
	cert, err := s.CertRepo.WithTx(db).FindByUserTrack(traineeID, trackID)
	if err != nil {
		return nil, err
	}
	view := cert.View()
	return &view, nil
}

func (s *CertificateService) ListForTrainee(ctx context.Context, traineeID uint) ([]model.CertificateView, error) {
	certs, err := s.CertRepo.WithTx(s.DB.WithContext(ctx)).ListByUser(traineeID)
	if err != nil {
		return nil, err
	}
	views := make([]model.CertificateView, 0, len(certs))
	for i := range certs {
		views = append(views, certs[i].View())
	}
	return views, nil
}

// Verify 通过公开校验码查询证书
func (s *CertificateService) Verify(ctx context.Context, code string) (*model.CertificateView, error) {
	if _, err := uuid.Parse(code); err != nil {
		return nil, util.ErrNotFound
	}
	cert, err := s.CertRepo.WithTx(s.DB.WithContext(ctx)).FindByVerificationCode(code)
	if err != nil {
		return nil, err
	}
	view := cert.View()
	return &view, nil
}

// OnTrackCompleted 提交后生成证书文档并发送通知邮件，失败只记录日志
func (s *CertificateService) OnTrackCompleted(ctx context.Context, cert *model.Certificate) {
	monitoring.CertificatesIssued.Inc()

	if err := s.Publish(ctx, cert); err != nil {
		logger.Log.Error("Failed to publish certificate document",
			zap.String("certificate_number", cert.CertificateNumber),
			zap.Error(err))
	}
	if err := s.Notify(ctx, cert); err != nil {
		logger.Log.Error("Failed to send certificate email",
			zap.String("certificate_number", cert.CertificateNumber),
			zap.Error(err))
	}
}

func (s *CertificateService) documentKey(cert *model.Certificate) string {
	return fmt.Sprintf("certificates/%d/%s.html", time.Time(cert.CompletionDate).Year(), cert.VerificationCode)
}

func (s *CertificateService) verifyURL(cert *model.Certificate) string {
	return s.PublicURL + "/api/certificates/verify/" + cert.VerificationCode
}

// Publish 渲染证书 HTML 并上传到存储
func (s *CertificateService) Publish(ctx context.Context, cert *model.Certificate) error {
	if s.Storage == nil {
		return nil
	}
	ctx, span := tracing.Start(ctx, "CertificateService.Publish")
	defer span.End()

	doc, err := s.RenderDocument(cert)
	if err != nil {
		return err
	}

	key := s.documentKey(cert)
	url, err := s.Storage.PutBytes(ctx, key, doc, util.MimeHTML)
	if err != nil {
		return fmt.Errorf("upload certificate document: %w", err)
	}

	if err := s.CertRepo.WithTx(s.DB.WithContext(ctx)).UpdateDocumentURL(cert.ID, url); err != nil {
		// 地址未落库，清理孤立对象
		if delErr := s.Storage.Delete(ctx, key); delErr != nil {
			logger.Log.Warn("Failed to remove orphaned certificate document", zap.String("key", key), zap.Error(delErr))
		}
		return err
	}
	cert.DocumentURL = url

	logger.Log.Info("Certificate document stored",
		zap.String("certificate_number", cert.CertificateNumber),
		zap.String("url", url))
	return nil
}

func (s *CertificateService) Notify(ctx context.Context, cert *model.Certificate) error {
	if s.Mailer == nil {
		return nil
	}
	user, err := s.UserRepo.WithTx(s.DB.WithContext(ctx)).FindByID(cert.UserID)
	if err != nil {
		return err
	}

	subject, text, html, err := renderCertificateMail(certificateMail{
		UserName:          cert.UserName,
		TrackTitle:        cert.TrackTitle,
		CertificateNumber: cert.CertificateNumber,
		CompletionDate:    time.Time(cert.CompletionDate).Format(util.DateFormat),
		VerifyURL:         s.verifyURL(cert),
	})
	if err != nil {
		return err
	}
	return s.Mailer.Send(ctx, user.Email, subject, text, html)
}

var certificateDocTmpl = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.CertificateNumber}}</title>
<style>
  body { font-family: Georgia, serif; text-align: center; padding: 48px; }
  .frame { border: 8px double #1e3a8a; padding: 48px; }
  h1 { letter-spacing: 4px; color: #1e3a8a; }
  .name { font-size: 32px; margin: 24px 0; }
  .meta { color: #6b7280; margin-top: 32px; }
</style>
</head>
<body>
<div class="frame">
  <h1>CERTIFICATE OF COMPLETION</h1>
  <p>This certifies that</p>
  <div class="name">{{.UserName}}</div>
  <p>has successfully completed</p>
  <h2>{{.TrackTitle}}</h2>
  <p>on {{.CompletionDate}}</p>
  <div class="meta">
    Certificate No. {{.CertificateNumber}}<br>
    Verify at {{.VerifyURL}}
  </div>
</div>
</body>
</html>`))

// RenderDocument 生成证书 HTML 文档
func (s *CertificateService) RenderDocument(cert *model.Certificate) ([]byte, error) {
	var buf bytes.Buffer
	err := certificateDocTmpl.Execute(&buf, struct {
		UserName          string
		TrackTitle        string
		CompletionDate    string
		CertificateNumber string
		VerifyURL         string
	}{
		UserName:          cert.UserName,
		TrackTitle:        cert.TrackTitle,
		CompletionDate:    time.Time(cert.CompletionDate).Format("January 2, 2006"),
		CertificateNumber: cert.CertificateNumber,
		VerifyURL:         s.verifyURL(cert),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
