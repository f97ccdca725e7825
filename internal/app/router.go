package app

import (
	"academy_backend/docs"
	"academy_backend/internal/config"
	"academy_backend/internal/middleware"
	"academy_backend/internal/model"
	"academy_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		authGroup.GET("/auth/me", c.auth.Me)

		registerTraineeRoutes(authGroup, c)
		registerAdminRoutes(authGroup, c)
	}
}

func registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
		public.GET("/certificates/verify/:code", c.certificate.Verify)
	}
}

func registerTraineeRoutes(group *gin.RouterGroup, c *controllers) {
	trainee := group.Group("/trainee")
	trainee.Use(middleware.RoleMiddleware(model.Trainee))
	{
		trainee.GET("/dashboard", c.trainee.Dashboard)
		trainee.GET("/track/:trackId", c.trainee.GetTrackProgress)
		trainee.POST("/complete-module", c.trainee.CompleteModule)
		trainee.GET("/certificate/:trackId", c.trainee.GetCertificate)
		trainee.GET("/certificates", c.trainee.ListCertificates)
	}
}

func registerAdminRoutes(group *gin.RouterGroup, c *controllers) {
	admin := group.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/trainees", c.admin.ListTrainees)
		admin.POST("/trainees/:id/enroll", c.admin.EnrollTrainee)
		admin.GET("/tracks", c.admin.ListTracks)
		admin.GET("/summary", c.admin.Summary)

		reports := admin.Group("/reports")
		{
			reports.GET("/completions", c.admin.CompletionReport)
			reports.GET("/completion-time", c.admin.TimeReport)
		}
	}
}
