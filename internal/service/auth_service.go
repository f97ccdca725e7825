package service

import (
	"academy_backend/internal/config"
	"academy_backend/internal/model"
	"academy_backend/internal/repository"
	"academy_backend/internal/util"
	"academy_backend/pkg/logger"
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	DB          *gorm.DB
	UserRepo    *repository.UserRepository
	Progression *ProgressionService
	Cfg         *config.Config
}

func NewAuthService(db *gorm.DB, userRepo *repository.UserRepository, progression *ProgressionService, cfg *config.Config) *AuthService {
	return &AuthService{
		DB:          db,
		UserRepo:    userRepo,
		Progression: progression,
		Cfg:         cfg,
	}
}

type RegisterInput struct {
	FullName string `json:"full_name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register 注册学员并报名全部路径
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	_, err := s.UserRepo.WithTx(s.DB.WithContext(ctx)).FindByEmail(email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		FullName: strings.TrimSpace(in.FullName),
		Email:    email,
		Password: string(hashedPassword),
		Role:     model.Trainee,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.UserRepo.WithTx(tx).Create(user); err != nil {
			return err
		}
		return s.Progression.EnrollAllTx(tx, user.ID)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Trainee registered", zap.Uint("user_id", user.ID))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	userRepo := s.UserRepo.WithTx(s.DB.WithContext(ctx))
	user, err := userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	loginAt := time.Now()
	if err := userRepo.UpdateLastLogin(user.ID, loginAt); err != nil {
		logger.Log.Warn("Failed to update last login", zap.Uint("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &loginAt
	}

	return &LoginResult{Token: token, User: user}, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*model.User, error) {
	return s.UserRepo.WithTx(s.DB.WithContext(ctx)).FindByID(userID)
}
