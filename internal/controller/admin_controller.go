package controller

import (
	"academy_backend/internal/service"
	"academy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	Admin       *service.AdminService
	Reports     *service.ReportService
	Progression *service.ProgressionService
}

func NewAdminController(admin *service.AdminService, reports *service.ReportService, progression *service.ProgressionService) *AdminController {
	return &AdminController{
		Admin:       admin,
		Reports:     reports,
		Progression: progression,
	}
}

// CompletionReportQuery 完成报表查询参数
type CompletionReportQuery struct {
	StartDate string `form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `form:"end_date" binding:"required,datetime=2006-01-02"`
	TrackID   *uint  `form:"track_id" binding:"omitempty,min=1"`
}

// TimeReportQuery 耗时报表查询参数
type TimeReportQuery struct {
	TrackID *uint `form:"track_id" binding:"omitempty,min=1"`
}

// EnrollRequest 报名请求
type EnrollRequest struct {
	TrackID uint `json:"track_id" binding:"required,min=1"`
}

type traineeURI struct {
	ID uint `uri:"id" binding:"required,min=1"`
}

// ListTrainees godoc
// @Summary 学员列表
// @Description 所有学员及其各路径进度
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.TraineeOverview}
// @Router /api/admin/trainees [get]
func (c *AdminController) ListTrainees(ctx *gin.Context) {
	trainees, err := c.Admin.ListTrainees(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, trainees)
}

// ListTracks godoc
// @Summary 路径目录
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.TrackOverview}
// @Router /api/admin/tracks [get]
func (c *AdminController) ListTracks(ctx *gin.Context) {
	tracks, err := c.Admin.ListTracks(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, tracks)
}

// Summary godoc
// @Summary 总览
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.AdminSummary}
// @Router /api/admin/summary [get]
func (c *AdminController) Summary(ctx *gin.Context) {
	summary, err := c.Admin.Summary(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// EnrollTrainee godoc
// @Summary 为学员报名路径
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "学员ID"
// @Param body body EnrollRequest true "路径ID"
// @Success 200 {object} util.Response{data=service.TrackProgressView}
// @Failure 404 {object} util.Response
// @Router /api/admin/trainees/{id}/enroll [post]
func (c *AdminController) EnrollTrainee(ctx *gin.Context) {
	var uri traineeURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	var req EnrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}

	view, err := c.Progression.Enroll(ctx.Request.Context(), uri.ID, req.TrackID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// CompletionReport godoc
// @Summary 完成报表
// @Description 统计日期区间内（两端包含）的路径完成次数
// @Tags 报表
// @Produce json
// @Security ApiKeyAuth
// @Param start_date query string true "开始日期 YYYY-MM-DD"
// @Param end_date query string true "结束日期 YYYY-MM-DD"
// @Param track_id query int false "路径ID"
// @Success 200 {object} util.Response{data=model.CompletionReport}
// @Failure 400 {object} util.Response
// @Router /api/admin/reports/completions [get]
func (c *AdminController) CompletionReport(ctx *gin.Context) {
	var q CompletionReportQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		util.ValidationError(ctx, err)
		return
	}

	report, err := c.Reports.GenerateCompletionReport(ctx.Request.Context(), q.StartDate, q.EndDate, q.TrackID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// TimeReport godoc
// @Summary 完成耗时报表
// @Tags 报表
// @Produce json
// @Security ApiKeyAuth
// @Param track_id query int false "路径ID"
// @Success 200 {object} util.Response{data=model.TimeReport}
// @Router /api/admin/reports/completion-time [get]
func (c *AdminController) TimeReport(ctx *gin.Context) {
	var q TimeReportQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		util.ValidationError(ctx, err)
		return
	}

	report, err := c.Reports.GenerateTimeReport(ctx.Request.Context(), q.TrackID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
