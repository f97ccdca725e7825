package controller

import (
	"academy_backend/internal/service"
	"academy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	Certificates *service.CertificateService
}

func NewCertificateController(certificates *service.CertificateService) *CertificateController {
	return &CertificateController{Certificates: certificates}
}

// Verify godoc
// @Summary 证书校验
// @Description 通过证书上的校验码公开查询
// @Tags 证书
// @Produce json
// @Param code path string true "校验码"
// @Success 200 {object} util.Response{data=model.CertificateView}
// @Failure 404 {object} util.Response
// @Router /api/certificates/verify/{code} [get]
func (c *CertificateController) Verify(ctx *gin.Context) {
	cert, err := c.Certificates.Verify(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cert)
}
