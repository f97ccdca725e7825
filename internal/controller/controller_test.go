package controller

import (
	"academy_backend/internal/config"
	"academy_backend/internal/middleware"
	"academy_backend/internal/model"
	"academy_backend/internal/repository"
	"academy_backend/internal/service"
	"academy_backend/internal/util"
	"academy_backend/pkg/database"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "controller-test-secret"

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	tracks []model.Track
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	util.RegisterJSONFieldNames()

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

	cfg := &config.Config{
		JWT:         config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour},
		Certificate: config.CertificateConfig{Prefix: "CERT", SequenceStart: 1000},
		Report:      config.ReportConfig{Timezone: "UTC"},
	}

	userRepo := repository.NewUserRepository(db)
	trackRepo := repository.NewTrackRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	certRepo := repository.NewCertificateRepository(db)

	certificates := service.NewCertificateService(db, certRepo, userRepo, trackRepo, nil, nil, cfg)
	reports := service.NewReportService(db, trackRepo, progressRepo, nil, &cfg.Report)
	progression := service.NewProgressionService(db, userRepo, trackRepo, progressRepo, certRepo, certificates, reports)
	progression.Dispatch = func(f func()) { f() }
	auth := service.NewAuthService(db, userRepo, progression, cfg)
	admin := service.NewAdminService(db, userRepo, trackRepo, progressRepo, certRepo)

	authCtl := NewAuthController(auth)
	traineeCtl := NewTraineeController(progression, certificates)
	adminCtl := NewAdminController(admin, reports, progression)

	r := gin.New()
	r.POST("/api/auth/register", authCtl.Register)
	r.POST("/api/auth/login", authCtl.Login)
	r.GET("/api/certificates/verify/:code", NewCertificateController(certificates).Verify)

	api := r.Group("/api", middleware.AuthMiddleware(testSecret))
	trainee := api.Group("/trainee", middleware.RoleMiddleware(model.Trainee))
	trainee.GET("/dashboard", traineeCtl.Dashboard)
	trainee.GET("/track/:trackId", traineeCtl.GetTrackProgress)
	trainee.POST("/complete-module", traineeCtl.CompleteModule)
	trainee.GET("/certificate/:trackId", traineeCtl.GetCertificate)

	adminGroup := api.Group("/admin", middleware.RoleMiddleware(model.Admin))
	adminGroup.GET("/summary", adminCtl.Summary)
	adminGroup.GET("/reports/completions", adminCtl.CompletionReport)
	adminGroup.GET("/reports/completion-time", adminCtl.TimeReport)
	adminGroup.POST("/trainees/:id/enroll", adminCtl.EnrollTrainee)

	tracks, err := trackRepo.ListTracks()
	require.NoError(t, err)

	return &testServer{router: r, db: db, tracks: tracks}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, util.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp util.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (s *testServer) registerAndLogin(t *testing.T, name string) string {
	t.Helper()
	email := uuid.NewString()[:8] + "@academy.test"
	code, _ := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"full_name": name, "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, code)

	code, resp := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusOK, code)
	data := resp.Data.(map[string]interface{})
	return data["token"].(string)
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	admin := &model.User{FullName: "Admin", Email: "admin@academy.test", Password: "x", Role: model.Admin}
	require.NoError(t, s.db.Create(admin).Error)
	token, err := util.GenerateJWT(admin, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func TestTraineeRoutes_RequireAuth(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/api/trainee/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, "/api/trainee/dashboard", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, "/api/trainee/dashboard", s.adminToken(t), nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRoleGuard_ExactMatch(t *testing.T) {
	s := newTestServer(t)
	traineeToken := s.registerAndLogin(t, "Jane Trainee")
	adminToken := s.adminToken(t)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
	}{
		{"trainee on admin report", http.MethodGet, "/api/admin/reports/completion-time", traineeToken, nil, http.StatusForbidden},
		{"trainee on admin summary", http.MethodGet, "/api/admin/summary", traineeToken, nil, http.StatusForbidden},
		{"trainee on admin enroll", http.MethodPost, "/api/admin/trainees/1/enroll", traineeToken, gin.H{"track_id": s.tracks[0].ID}, http.StatusForbidden},
		{"admin on trainee dashboard", http.MethodGet, "/api/trainee/dashboard", adminToken, nil, http.StatusForbidden},
		{"admin on complete module", http.MethodPost, "/api/trainee/complete-module", adminToken, gin.H{"module_id": s.tracks[0].Modules[0].ID}, http.StatusForbidden},
		{"admin on admin summary", http.MethodGet, "/api/admin/summary", adminToken, nil, http.StatusOK},
		{"trainee on dashboard", http.MethodGet, "/api/trainee/dashboard", traineeToken, nil, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := s.do(t, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, code)
		})
	}
}

func TestCompleteModule_Flow(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Jane Trainee")
	modules := s.tracks[0].Modules

	code, resp := s.do(t, http.MethodPost, "/api/trainee/complete-module", token, gin.H{"module_id": modules[2].ID})
	assert.Equal(t, http.StatusForbidden, code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(modules[2].ID), data["module_id"])

	code, _ = s.do(t, http.MethodPost, "/api/trainee/complete-module", token, gin.H{"module_id": modules[0].ID})
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(t, http.MethodPost, "/api/trainee/complete-module", token, gin.H{"module_id": modules[1].ID})
	require.Equal(t, http.StatusOK, code)
	data = resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["completed_modules"])
	assert.Equal(t, float64(40), data["progress_percentage"])
	assert.Equal(t, false, data["is_complete"])

	code, _ = s.do(t, http.MethodPost, "/api/trainee/complete-module", token, gin.H{"module_id": 9999})
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = s.do(t, http.MethodPost, "/api/trainee/complete-module", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
	fields := resp.Data.([]interface{})
	assert.Equal(t, "module_id", fields[0].(map[string]interface{})["field"])
}

func TestCertificateFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Jane Trainee")
	track := s.tracks[2]
	path := fmt.Sprintf("/api/trainee/certificate/%d", track.ID)

	code, _ := s.do(t, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	var resp util.Response
	for _, m := range track.Modules {
		code, resp = s.do(t, http.MethodPost, "/api/trainee/complete-module", token, gin.H{"module_id": m.ID})
		require.Equal(t, http.StatusOK, code)
	}
	cert := resp.Data.(map[string]interface{})["certificate"].(map[string]interface{})
	assert.Equal(t, true, resp.Data.(map[string]interface{})["is_complete"])

	code, resp = s.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, cert["certificate_number"], resp.Data.(map[string]interface{})["certificate_number"])

	code, resp = s.do(t, http.MethodGet, "/api/certificates/verify/"+cert["verification_code"].(string), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Jane Trainee", resp.Data.(map[string]interface{})["user_name"])
}

func TestReports_Validation(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken(t)

	code, _ := s.do(t, http.MethodGet, "/api/admin/reports/completions?start_date=2026-02-01&end_date=2026-01-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/admin/reports/completions?start_date=01-02-2026&end_date=2026-01-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/admin/reports/completions?end_date=2026-01-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/admin/reports/completions?start_date=2026-01-01&end_date=2026-01-31&track_id=9999", token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp := s.do(t, http.MethodGet, "/api/admin/reports/completions?start_date=2026-01-01&end_date=2026-01-31", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), resp.Data.(map[string]interface{})["overall_completions"])

	code, resp = s.do(t, http.MethodGet, "/api/admin/reports/completion-time", token, nil)
	require.Equal(t, http.StatusOK, code)
	byTrack := resp.Data.(map[string]interface{})["by_track"].([]interface{})
	assert.Len(t, byTrack, 3)
}

func TestEnrollTrainee_UnknownTrainee(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken(t)

	code, _ := s.do(t, http.MethodPost, "/api/admin/trainees/9999/enroll", token, gin.H{"track_id": s.tracks[0].ID})
	assert.Equal(t, http.StatusNotFound, code)
}
