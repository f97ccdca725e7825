package service

import (
	"academy_backend/internal/model"
	"academy_backend/internal/repository"
	"academy_backend/internal/util"
	"academy_backend/pkg/logger"
	"academy_backend/pkg/monitoring"
	"academy_backend/pkg/tracing"
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompletionListener 路径完成（证书已签发并提交）后的回调
type CompletionListener interface {
	OnTrackCompleted(ctx context.Context, cert *model.Certificate)
}

type ProgressionService struct {
	DB           *gorm.DB
	UserRepo     *repository.UserRepository
	TrackRepo    *repository.TrackRepository
	ProgressRepo *repository.ProgressRepository
	CertRepo     *repository.CertificateRepository
	Certificates *CertificateService
	// Reports 提交后同步失效报表缓存，可为 nil
	Reports   *ReportService
	Listeners []CompletionListener
	Clock     func() time.Time
	// Dispatch 执行提交后的回调，默认开新 goroutine
	Dispatch func(func())

	traineeLocks [traineeLockStripes]sync.Mutex
}

// 学员锁按 ID 取模分片，内存占用固定
const traineeLockStripes = 256

func NewProgressionService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	trackRepo *repository.TrackRepository,
	progressRepo *repository.ProgressRepository,
	certRepo *repository.CertificateRepository,
	certificates *CertificateService,
	reports *ReportService,
	listeners ...CompletionListener,
) *ProgressionService {
	return &ProgressionService{
		DB:           db,
		UserRepo:     userRepo,
		TrackRepo:    trackRepo,
		ProgressRepo: progressRepo,
		CertRepo:     certRepo,
		Certificates: certificates,
		Reports:      reports,
		Listeners:    listeners,
		Clock:        time.Now,
		Dispatch:     func(f func()) { go f() },
	}
}

// CompletionResult 完成模块后的路径进度，首次完成路径时附带证书
type CompletionResult struct {
	model.TrackProgress
	Certificate *model.CertificateView `json:"certificate,omitempty"`
}

// TrackSummary 路径基本信息
type TrackSummary struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index"`
}

func newTrackSummary(t *model.Track) TrackSummary {
	return TrackSummary{ID: t.ID, Title: t.Title, Description: t.Description, OrderIndex: t.OrderIndex}
}

type TrackProgressView struct {
	Track       TrackSummary           `json:"track"`
	Progress    model.TrackProgress    `json:"progress"`
	Modules     []ModuleWithProgress   `json:"modules"`
	Certificate *model.CertificateView `json:"certificate,omitempty"`
}

type DashboardTrack struct {
	Track             TrackSummary        `json:"track"`
	Progress          model.TrackProgress `json:"progress"`
	CurrentModule     *ModuleWithProgress `json:"current_module"`
	CertificateIssued bool                `json:"certificate_issued"`
}

type DashboardSummary struct {
	TotalTracks        int `json:"total_tracks"`
	CompletedTracks    int `json:"completed_tracks"`
	InProgressTracks   int `json:"in_progress_tracks"`
	CertificatesEarned int `json:"certificates_earned"`
}

type Dashboard struct {
	Trainee struct {
		ID       uint   `json:"id"`
		FullName string `json:"full_name"`
		Email    string `json:"email"`
	} `json:"trainee"`
	Summary DashboardSummary `json:"summary"`
	Tracks  []DashboardTrack `json:"tracks"`
}

func (s *ProgressionService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

func (s *ProgressionService) traineeLock(traineeID uint) *sync.Mutex {
	return &s.traineeLocks[traineeID%traineeLockStripes]
}

// lockTrainee 同一学员的写操作串行执行，不同学员可能共用一个分片
func (s *ProgressionService) lockTrainee(traineeID uint) func() {
	mu := s.traineeLock(traineeID)
	mu.Lock()
	return mu.Unlock
}

func (s *ProgressionService) dispatch(f func()) {
	if s.Dispatch == nil {
		go f()
		return
	}
	s.Dispatch(f)
}

// CompleteModule 标记模块完成，解锁下一个模块，路径首次完成时签发证书
func (s *ProgressionService) CompleteModule(ctx context.Context, traineeID, moduleID uint) (*CompletionResult, error) {
	ctx, span := tracing.Start(ctx, "ProgressionService.CompleteModule")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("trainee_id", int64(traineeID)),
		attribute.Int64("module_id", int64(moduleID)),
	)

	db := s.DB.WithContext(ctx)
	if _, err := s.UserRepo.WithTx(db).FindTrainee(traineeID); err != nil {
		return nil, err
	}
	module, err := s.TrackRepo.WithTx(db).FindModule(moduleID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockTrainee(traineeID)
	defer unlock()

	at := s.now()
	var (
		outcome completionOutcome
		cert    *model.Certificate
	)
	err = db.Transaction(func(tx *gorm.DB) error {
		progressRepo := s.ProgressRepo.WithTx(tx)

		modules, err := s.TrackRepo.WithTx(tx).ListModules(module.TrackID)
		if err != nil {
			return err
		}
		rows, err := progressRepo.LockTrackProgress(traineeID, module.TrackID)
		if err != nil {
			return err
		}

		outcome, err = applyCompletion(newTrackChain(module.TrackID, modules), rows, moduleID, at)
		if err != nil {
			return err
		}
		if !outcome.Applied() {
			return nil
		}
		if err := progressRepo.SaveStates(outcome.Changed); err != nil {
			return err
		}

		if outcome.TrackCompleted() {
			cert, err = s.Certificates.issueAt(ctx, tx, traineeID, module.TrackID, at)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{TrackProgress: outcome.After}
	if !outcome.Applied() {
		return result, nil
	}

	trackLabel := monitoring.TrackLabel(module.TrackID)
	monitoring.ModuleCompletions.WithLabelValues(trackLabel).Inc()

	if cert != nil {
		monitoring.TrackCompletions.WithLabelValues(trackLabel).Inc()
		view := cert.View()
		result.Certificate = &view

		logger.Log.Info("Track completed, certificate issued",
			zap.Uint("trainee_id", traineeID),
			zap.Uint("track_id", module.TrackID),
			zap.String("certificate_number", cert.CertificateNumber))

		if s.Reports != nil {
			s.Reports.InvalidateCache(context.WithoutCancel(ctx))
		}

		issued := *cert
		for _, l := range s.Listeners {
			listener := l
			s.dispatch(func() {
				listener.OnTrackCompleted(context.Background(), &issued)
			})
		}
	}

	return result, nil
}

// GetTrackProgress 返回路径进度及有序模块状态
func (s *ProgressionService) GetTrackProgress(ctx context.Context, traineeID, trackID uint) (*TrackProgressView, error) {
	ctx, span := tracing.Start(ctx, "ProgressionService.GetTrackProgress")
	defer span.End()

	var view *TrackProgressView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.UserRepo.WithTx(tx).FindTrainee(traineeID); err != nil {
			return err
		}
		track, err := s.TrackRepo.WithTx(tx).FindTrack(trackID)
		if err != nil {
			return err
		}
		rows, err := s.ProgressRepo.WithTx(tx).ListByUserTrack(traineeID, trackID)
		if err != nil {
			return err
		}

		chain := newTrackChain(track.ID, track.Modules)
		states := indexStates(rows)
		view = &TrackProgressView{
			Track:    newTrackSummary(track),
			Progress: chain.progress(states),
			Modules:  chain.moduleViews(states),
		}

		cert, err := s.CertRepo.WithTx(tx).FindByUserTrack(traineeID, trackID)
		switch {
		case err == nil:
			cv := cert.View()
			view.Certificate = &cv
		case !errors.Is(err, util.ErrNotFound):
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Dashboard 学员首页：每条路径的进度与当前模块
func (s *ProgressionService) Dashboard(ctx context.Context, traineeID uint) (*Dashboard, error) {
	ctx, span := tracing.Start(ctx, "ProgressionService.Dashboard")
	defer span.End()

	dash := &Dashboard{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.UserRepo.WithTx(tx).FindTrainee(traineeID)
		if err != nil {
			return err
		}
		tracks, err := s.TrackRepo.WithTx(tx).ListTracks()
		if err != nil {
			return err
		}
		rows, err := s.ProgressRepo.WithTx(tx).ListByUser(traineeID)
		if err != nil {
			return err
		}
		certs, err := s.CertRepo.WithTx(tx).ListByUser(traineeID)
		if err != nil {
			return err
		}

		dash.Trainee.ID = user.ID
		dash.Trainee.FullName = user.FullName
		dash.Trainee.Email = user.Email

		issued := make(map[uint]bool, len(certs))
		for _, c := range certs {
			issued[c.TrackID] = true
		}

		states := indexStates(rows)
		dash.Tracks = make([]DashboardTrack, 0, len(tracks))
		for i := range tracks {
			chain := newTrackChain(tracks[i].ID, tracks[i].Modules)
			item := DashboardTrack{
				Track:             newTrackSummary(&tracks[i]),
				Progress:          chain.progress(states),
				CertificateIssued: issued[tracks[i].ID],
			}
			if m := chain.currentModule(states); m != nil {
				cur := newModuleWithProgress(*m, states[m.ID])
				item.CurrentModule = &cur
			}

			switch {
			case item.Progress.IsComplete:
				dash.Summary.CompletedTracks++
			case item.Progress.CompletedModules > 0:
				dash.Summary.InProgressTracks++
			}
			dash.Tracks = append(dash.Tracks, item)
		}
		dash.Summary.TotalTracks = len(tracks)
		dash.Summary.CertificatesEarned = len(certs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dash, nil
}

// Enroll 为学员报名路径，重复调用无副作用
func (s *ProgressionService) Enroll(ctx context.Context, traineeID, trackID uint) (*TrackProgressView, error) {
	unlock := s.lockTrainee(traineeID)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.UserRepo.WithTx(tx).FindTrainee(traineeID); err != nil {
			return err
		}
		track, err := s.TrackRepo.WithTx(tx).FindTrack(trackID)
		if err != nil {
			return err
		}
		return s.enrollTx(tx, traineeID, track)
	})
	unlock()
	if err != nil {
		return nil, err
	}
	return s.GetTrackProgress(ctx, traineeID, trackID)
}

// EnrollAllTx 在调用方事务内为学员报名全部路径
func (s *ProgressionService) EnrollAllTx(tx *gorm.DB, traineeID uint) error {
	tracks, err := s.TrackRepo.WithTx(tx).ListTracks()
	if err != nil {
		return err
	}
	for i := range tracks {
		if err := s.enrollTx(tx, traineeID, &tracks[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProgressionService) enrollTx(tx *gorm.DB, traineeID uint, track *model.Track) error {
	progressRepo := s.ProgressRepo.WithTx(tx)
	existing, err := progressRepo.LockTrackProgress(traineeID, track.ID)
	if err != nil {
		return err
	}
	rows := enrollmentRows(traineeID, newTrackChain(track.ID, track.Modules), indexStates(existing))
	if len(rows) == 0 {
		return nil
	}
	logger.Log.Debug("Enrolling trainee",
		zap.Uint("trainee_id", traineeID),
		zap.Uint("track_id", track.ID),
		zap.Int("new_rows", len(rows)))
	return progressRepo.CreateBatch(rows)
}
