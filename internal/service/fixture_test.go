package service

import (
	"academy_backend/internal/config"
	"academy_backend/internal/model"
	"academy_backend/internal/repository"
	"academy_backend/pkg/database"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type sentMail struct {
	To      string
	Subject string
	Text    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Text: textBody})
	return nil
}

func (m *recordingMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type fixture struct {
	db           *gorm.DB
	clock        *fakeClock
	mailer       *recordingMailer
	storageRoot  string
	progression  *ProgressionService
	certificates *CertificateService
	reports      *ReportService
	auth         *AuthService
	admin        *AdminService
	tracks       []model.Track
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	catalog := database.DefaultCatalog()
	require.NoError(t, db.Create(&catalog).Error)
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	cfg := &config.Config{
		Server:      config.ServerConfig{PublicURL: "http://localhost:8080"},
		JWT:         config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Certificate: config.CertificateConfig{Prefix: "CERT", SequenceStart: 1000},
		Report:      config.ReportConfig{Timezone: "UTC"},
	}

	clock := &fakeClock{t: time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC)}
	mailer := &recordingMailer{}
	root := t.TempDir()

	userRepo := repository.NewUserRepository(db)
	trackRepo := repository.NewTrackRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	certRepo := repository.NewCertificateRepository(db)

	storage := &StorageService{Provider: &LocalStorageProvider{Root: root}}
	certificates := NewCertificateService(db, certRepo, userRepo, trackRepo, storage, mailer, cfg)
	certificates.Clock = clock.Now
	reports := NewReportService(db, trackRepo, progressRepo, nil, &cfg.Report)
	reports.Clock = clock.Now

	progression := NewProgressionService(db, userRepo, trackRepo, progressRepo, certRepo, certificates, reports, certificates)
	progression.Clock = clock.Now
	progression.Dispatch = func(f func()) { f() }

	tracks, err := trackRepo.ListTracks()
	require.NoError(t, err)

	return &fixture{
		db:           db,
		clock:        clock,
		mailer:       mailer,
		storageRoot:  root,
		progression:  progression,
		certificates: certificates,
		reports:      reports,
		auth:         NewAuthService(db, userRepo, progression, cfg),
		admin:        NewAdminService(db, userRepo, trackRepo, progressRepo, certRepo),
		tracks:       tracks,
	}
}

func (f *fixture) register(t *testing.T, name string) *model.User {
	t.Helper()
	user, err := f.auth.Register(context.Background(), RegisterInput{
		FullName: name,
		Email:    fmt.Sprintf("%s@academy.test", uuid.NewString()[:8]),
		Password: "secret123",
	})
	require.NoError(t, err)
	return user
}

// completeTrack 依次完成路径全部模块，每个模块间隔 step
func (f *fixture) completeTrack(t *testing.T, traineeID uint, track model.Track, start time.Time, step time.Duration) *CompletionResult {
	t.Helper()
	var last *CompletionResult
	for i, m := range track.Modules {
		f.clock.Set(start.Add(time.Duration(i) * step))
		res, err := f.progression.CompleteModule(context.Background(), traineeID, m.ID)
		require.NoError(t, err)
		last = res
	}
	return last
}

func (f *fixture) countCertificates(t *testing.T, traineeID, trackID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Certificate{}).
		Where("user_id = ? AND track_id = ?", traineeID, trackID).
		Count(&n).Error)
	return n
}
