package app

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/recruit-timeline-api/internal/handler"
	"github.com/noah-isme/recruit-timeline-api/internal/middleware"
	"github.com/noah-isme/recruit-timeline-api/internal/models"
	"github.com/noah-isme/recruit-timeline-api/pkg/cache"
	"github.com/noah-isme/recruit-timeline-api/pkg/config"
	"github.com/noah-isme/recruit-timeline-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/recruit-timeline-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/recruit-timeline-api/pkg/middleware/requestid"
)

// NewRouter registers every HTTP route of the service.
func NewRouter(a *App) *gin.Engine {
	if a.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.Logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(a.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.Metrics, "/health", "/ready", "/metrics"))
	r.Use(middleware.WithResponseMeta())

	checks := map[string]handler.Pinger{}
	if a.DB != nil {
		checks["postgres"] = a.DB
	}
	if a.Redis != nil {
		checks["redis"] = handler.PingFunc(cache.Ping(a.Redis))
	}
	ops := handler.NewMetricsHandler(a.Metrics, checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if a.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	reports := handler.NewStepReportHandler(a.Reports, a.Assignment)
	timelines := handler.NewTimelineHandler(a.Timelines, a.Exports)
	officials := handler.NewOfficialDateHandler(a.Officials)

	api := r.Group(a.Config.APIPrefix)
	api.POST("/step-reports", reports.Submit)
	api.GET("/timelines", timelines.Timeline)
	api.GET("/timelines/lead-time", timelines.LeadTime)
	api.GET("/timelines/export", timelines.Export)

	admin := api.Group("/admin", middleware.JWT(a.Tokens), middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	admin.GET("/step-reports", reports.List)
	admin.POST("/step-reports/process-pending", reports.ProcessPending)
	admin.GET("/step-reports/:id", reports.Get)
	admin.PUT("/step-reports/:id", reports.Update)
	admin.POST("/step-reports/:id/process", reports.Process)
	admin.POST("/step-reports/:id/discard", reports.Discard)
	admin.POST("/steps/:id/official-dates", officials.Record)
	admin.GET("/metrics", ops.Snapshot)

	return r
}
