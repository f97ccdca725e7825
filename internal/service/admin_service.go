package service

import (
	"academy_backend/internal/model"
	"academy_backend/internal/repository"
	"academy_backend/pkg/tracing"
	"context"

	"gorm.io/gorm"
)

// AdminService 管理端只读视图
type AdminService struct {
	DB           *gorm.DB
	UserRepo     *repository.UserRepository
	TrackRepo    *repository.TrackRepository
	ProgressRepo *repository.ProgressRepository
	CertRepo     *repository.CertificateRepository
}

func NewAdminService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	trackRepo *repository.TrackRepository,
	progressRepo *repository.ProgressRepository,
	certRepo *repository.CertificateRepository,
) *AdminService {
	return &AdminService{
		DB:           db,
		UserRepo:     userRepo,
		TrackRepo:    trackRepo,
		ProgressRepo: progressRepo,
		CertRepo:     certRepo,
	}
}

type TraineeTrackProgress struct {
	TrackID    uint    `json:"track_id"`
	TrackTitle string  `json:"track_title"`
	Progress   float64 `json:"progress"`
	Completed  bool    `json:"completed"`
}

type TraineeOverview struct {
	ID        uint                   `json:"id"`
	FullName  string                 `json:"full_name"`
	Email     string                 `json:"email"`
	Tracks    []TraineeTrackProgress `json:"tracks"`
	Completed int                    `json:"completed_tracks"`
}

type TrackOverview struct {
	TrackSummary
	ModuleCount int `json:"module_count"`
}

type AdminSummary struct {
	TotalTrainees      int64 `json:"total_trainees"`
	TotalTracks        int64 `json:"total_tracks"`
	TrackCompletions   int64 `json:"track_completions"`
	CertificatesIssued int64 `json:"certificates_issued"`
}

// ListTrainees 所有学员及其每条路径的进度
func (s *AdminService) ListTrainees(ctx context.Context) ([]TraineeOverview, error) {
	ctx, span := tracing.Start(ctx, "AdminService.ListTrainees")
	defer span.End()

	var result []TraineeOverview
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := s.UserRepo.WithTx(tx).ListByRole(model.Trainee)
		if err != nil {
			return err
		}
		tracks, err := s.TrackRepo.WithTx(tx).ListTracks()
		if err != nil {
			return err
		}
		rows, err := s.ProgressRepo.WithTx(tx).ListAll()
		if err != nil {
			return err
		}

		byUser := make(map[uint][]model.ModuleProgress, len(users))
		for _, r := range rows {
			byUser[r.UserID] = append(byUser[r.UserID], r)
		}

		chains := make([]trackChain, len(tracks))
		for i := range tracks {
			chains[i] = newTrackChain(tracks[i].ID, tracks[i].Modules)
		}

		result = make([]TraineeOverview, 0, len(users))
		for _, u := range users {
			states := indexStates(byUser[u.ID])
			item := TraineeOverview{
				ID:       u.ID,
				FullName: u.FullName,
				Email:    u.Email,
				Tracks:   make([]TraineeTrackProgress, 0, len(tracks)),
			}
			for i, chain := range chains {
				p := chain.progress(states)
				item.Tracks = append(item.Tracks, TraineeTrackProgress{
					TrackID:    tracks[i].ID,
					TrackTitle: tracks[i].Title,
					Progress:   p.ProgressPercentage,
					Completed:  p.IsComplete,
				})
				if p.IsComplete {
					item.Completed++
				}
			}
			result = append(result, item)
		}
		return nil
	})
	return result, err
}

func (s *AdminService) ListTracks(ctx context.Context) ([]TrackOverview, error) {
	tracks, err := s.TrackRepo.WithTx(s.DB.WithContext(ctx)).ListTracks()
	if err != nil {
		return nil, err
	}
	result := make([]TrackOverview, 0, len(tracks))
	for i := range tracks {
		result = append(result, TrackOverview{
			TrackSummary: newTrackSummary(&tracks[i]),
			ModuleCount:  len(tracks[i].Modules),
		})
	}
	return result, nil
}

// Summary 证书与路径完成一一对应，因此用证书数作为完成数
func (s *AdminService) Summary(ctx context.Context) (*AdminSummary, error) {
	db := s.DB.WithContext(ctx)
	trainees, err := s.UserRepo.WithTx(db).CountByRole(model.Trainee)
	if err != nil {
		return nil, err
	}
	tracks, err := s.TrackRepo.WithTx(db).Count()
	if err != nil {
		return nil, err
	}
	certs, err := s.CertRepo.WithTx(db).Count()
	if err != nil {
		return nil, err
	}
	return &AdminSummary{
		TotalTrainees:      trainees,
		TotalTracks:        tracks,
		TrackCompletions:   certs,
		CertificatesIssued: certs,
	}, nil
}
