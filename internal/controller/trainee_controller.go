package controller

import (
	"academy_backend/internal/service"
	"academy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TraineeController struct {
	Progression  *service.ProgressionService
	Certificates *service.CertificateService
}

func NewTraineeController(progression *service.ProgressionService, certificates *service.CertificateService) *TraineeController {
	return &TraineeController{
		Progression:  progression,
		Certificates: certificates,
	}
}

// CompleteModuleRequest 完成模块请求
// swagger:model CompleteModuleRequest
type CompleteModuleRequest struct {
	ModuleID uint `json:"module_id" binding:"required,min=1"`
}

type trackURI struct {
	TrackID uint `uri:"trackId" binding:"required,min=1"`
}

// Dashboard godoc
// @Summary 学员首页
// @Description 每条路径的进度、当前模块和证书状态
// @Tags 学员
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.Dashboard}
// @Router /api/trainee/dashboard [get]
func (c *TraineeController) Dashboard(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	dash, err := c.Progression.Dashboard(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, dash)
}

// GetTrackProgress godoc
// @Summary 路径进度
// @Tags 学员
// @Produce json
// @Security ApiKeyAuth
// @Param trackId path int true "路径ID"
// @Success 200 {object} util.Response{data=service.TrackProgressView}
// @Failure 404 {object} util.Response
// @Router /api/trainee/track/{trackId} [get]
func (c *TraineeController) GetTrackProgress(ctx *gin.Context) {
	var uri trackURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	claims := util.GetUserFromContext(ctx)

	view, err := c.Progression.GetTrackProgress(ctx.Request.Context(), claims.UserID, uri.TrackID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// CompleteModule godoc
// @Summary 完成模块
// @Description 标记模块完成并解锁下一个模块，完成整条路径时签发证书
// @Tags 学员
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CompleteModuleRequest true "模块ID"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Failure 403 {object} util.Response "模块未解锁"
// @Failure 404 {object} util.Response
// @Router /api/trainee/complete-module [post]
func (c *TraineeController) CompleteModule(ctx *gin.Context) {
	var req CompleteModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	claims := util.GetUserFromContext(ctx)

	result, err := c.Progression.CompleteModule(ctx.Request.Context(), claims.UserID, req.ModuleID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetCertificate godoc
// @Summary 路径证书
// @Tags 学员
// @Produce json
// @Security ApiKeyAuth
// @Param trackId path int true "路径ID"
// @Success 200 {object} util.Response{data=model.CertificateView}
// @Failure 404 {object} util.Response
// @Router /api/trainee/certificate/{trackId} [get]
func (c *TraineeController) GetCertificate(ctx *gin.Context) {
	var uri trackURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	claims := util.GetUserFromContext(ctx)

	cert, err := c.Certificates.GetForTrainee(ctx.Request.Context(), claims.UserID, uri.TrackID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cert)
}

// ListCertificates godoc
// @Summary 我的证书
// @Tags 学员
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.CertificateView}
// @Router /api/trainee/certificates [get]
func (c *TraineeController) ListCertificates(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	certs, err := c.Certificates.ListForTrainee(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, certs)
}
