package service

import (
	"academy_backend/internal/config"
	"academy_backend/internal/model"
	"academy_backend/internal/repository"
	"academy_backend/internal/util"
	"academy_backend/pkg/logger"
	"academy_backend/pkg/monitoring"
	"academy_backend/pkg/tracing"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jinzhu/now"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	reportGenerationKey = "academy:report:generation"
	reportKeyPrefix     = "academy:report"
)

type ReportService struct {
	DB           *gorm.DB
	TrackRepo    *repository.TrackRepository
	ProgressRepo *repository.ProgressRepository
	// Redis 为 nil 时不缓存
	Redis    *redis.Client
	Location *time.Location
	Clock    func() time.Time

	cacheTTL atomic.Int64
}

func NewReportService(
	db *gorm.DB,
	trackRepo *repository.TrackRepository,
	progressRepo *repository.ProgressRepository,
	rdb *redis.Client,
	cfg *config.ReportConfig,
) *ReportService {
	s := &ReportService{
		DB:           db,
		TrackRepo:    trackRepo,
		ProgressRepo: progressRepo,
		Redis:        rdb,
		Location:     cfg.Location(),
		Clock:        time.Now,
	}
	s.SetCacheTTL(cfg.CacheTTL())
	return s
}

// SetCacheTTL 配置热更新时调用，0 表示关闭缓存
func (s *ReportService) SetCacheTTL(ttl time.Duration) {
	s.cacheTTL.Store(int64(ttl))
}

func (s *ReportService) ttl() time.Duration {
	return time.Duration(s.cacheTTL.Load())
}

func (s *ReportService) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// parseRange 解析 YYYY-MM-DD，返回 [start 当天零点, end 当天结束] 的闭区间
func (s *ReportService) parseRange(startDate, endDate string) (time.Time, time.Time, error) {
	loc := s.location()
	start, err := time.ParseInLocation(util.DateFormat, startDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &util.InvalidDateRangeError{Reason: "start_date must be YYYY-MM-DD"}
	}
	end, err := time.ParseInLocation(util.DateFormat, endDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &util.InvalidDateRangeError{Reason: "end_date must be YYYY-MM-DD"}
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, &util.InvalidDateRangeError{Reason: "start_date is after end_date"}
	}
	return now.With(start).BeginningOfDay(), now.With(end).EndOfDay(), nil
}

// snapshot 在同一事务中读取目录和已完成模块
func (s *ReportService) snapshot(ctx context.Context, trackID *uint) ([]model.Track, []model.TrackCompletionRecord, error) {
	var (
		tracks []model.Track
		rows   []repository.CompletedRow
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trackRepo := s.TrackRepo.WithTx(tx)
		if trackID != nil {
			track, err := trackRepo.FindTrack(*trackID)
			if err != nil {
				return err
			}
			tracks = []model.Track{*track}
		} else {
			var err error
			if tracks, err = trackRepo.ListTracks(); err != nil {
				return err
			}
		}

		var err error
		rows, err = s.ProgressRepo.WithTx(tx).ListCompleted(trackID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	totals := make(map[uint]int, len(tracks))
	for _, t := range tracks {
		totals[t.ID] = len(t.Modules)
	}
	return tracks, buildCompletionRecords(rows, totals), nil
}

func trackKeyPart(trackID *uint) string {
	if trackID == nil {
		return "all"
	}
	return fmt.Sprintf("%d", *trackID)
}

// GenerateCompletionReport 统计日期区间内的路径完成次数
func (s *ReportService) GenerateCompletionReport(ctx context.Context, startDate, endDate string, trackID *uint) (*model.CompletionReport, error) {
	ctx, span := tracing.Start(ctx, "ReportService.GenerateCompletionReport")
	defer span.End()

	start, end, err := s.parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	key := fmt.Sprintf("completion:%s:%s:%s", startDate, endDate, trackKeyPart(trackID))
	var report model.CompletionReport
	full, hit := s.cacheGet(ctx, key, &report)
	if hit {
		monitoring.ReportDuration.WithLabelValues("completion", "hit").Observe(time.Since(began).Seconds())
		return &report, nil
	}

	tracks, records, err := s.snapshot(ctx, trackID)
	if err != nil {
		return nil, err
	}
	report = aggregateCompletions(tracks, records, start, end)
	report.Period = model.ReportPeriod{StartDate: startDate, EndDate: endDate}

	s.cacheSet(ctx, full, &report)
	monitoring.ReportDuration.WithLabelValues("completion", "miss").Observe(time.Since(began).Seconds())
	return &report, nil
}

// GenerateTimeReport 统计各路径从首个模块完成到路径完成的天数
// trackID 指向不存在的路径时返回 NotFoundError
func (s *ReportService) GenerateTimeReport(ctx context.Context, trackID *uint) (*model.TimeReport, error) {
	ctx, span := tracing.Start(ctx, "ReportService.GenerateTimeReport")
	defer span.End()

	began := time.Now()
	key := "time:" + trackKeyPart(trackID)
	var report model.TimeReport
	full, hit := s.cacheGet(ctx, key, &report)
	if hit {
		monitoring.ReportDuration.WithLabelValues("time", "hit").Observe(time.Since(began).Seconds())
		return &report, nil
	}

	tracks, records, err := s.snapshot(ctx, trackID)
	if err != nil {
		return nil, err
	}
	report = aggregateTimes(tracks, records)

	s.cacheSet(ctx, full, &report)
	monitoring.ReportDuration.WithLabelValues("time", "miss").Observe(time.Since(began).Seconds())
	return &report, nil
}

// InvalidateCache 递增代数，旧 key 随 TTL 过期
// 路径完成提交后由 ProgressionService 同步调用
func (s *ReportService) InvalidateCache(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Incr(ctx, reportGenerationKey).Err(); err != nil {
		logger.Log.Warn("Failed to invalidate report cache", zap.Error(err))
	}
}

// Warm 预先生成常用报表：全部路径的耗时报表与本月完成报表
func (s *ReportService) Warm(ctx context.Context) error {
	if s.Redis == nil || s.ttl() <= 0 {
		return nil
	}
	if _, err := s.GenerateTimeReport(ctx, nil); err != nil {
		return err
	}

	clock := s.Clock
	if clock == nil {
		clock = time.Now
	}
	month := now.With(clock().In(s.location()))
	_, err := s.GenerateCompletionReport(ctx,
		month.BeginningOfMonth().Format(util.DateFormat),
		month.EndOfMonth().Format(util.DateFormat),
		nil)
	return err
}

func (s *ReportService) cacheKey(ctx context.Context, key string) (string, bool) {
	gen, err := s.Redis.Get(ctx, reportGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Log.Warn("Report cache unavailable", zap.Error(err))
		return "", false
	}
	return fmt.Sprintf("%s:v%d:%s", reportKeyPrefix, gen, key), true
}

// cacheGet 返回带代数的完整 key，写回时复用同一个 key
// 快照期间发生的失效因此不会被旧数据覆盖
func (s *ReportService) cacheGet(ctx context.Context, key string, dst interface{}) (string, bool) {
	if s.Redis == nil || s.ttl() <= 0 {
		return "", false
	}
	full, ok := s.cacheKey(ctx, key)
	if !ok {
		return "", false
	}
	data, err := s.Redis.Get(ctx, full).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("Report cache read failed", zap.String("key", full), zap.Error(err))
		}
		return full, false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.Log.Warn("Report cache entry corrupted", zap.String("key", full), zap.Error(err))
		return full, false
	}
	return full, true
}

func (s *ReportService) cacheSet(ctx context.Context, full string, v interface{}) {
	ttl := s.ttl()
	if full == "" || s.Redis == nil || ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, full, data, ttl).Err(); err != nil {
		logger.Log.Warn("Report cache write failed", zap.String("key", full), zap.Error(err))
	}
}
