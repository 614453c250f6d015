package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/newsroom-api/internal/handler"
	"github.com/noah-isme/newsroom-api/internal/middleware"
	"github.com/noah-isme/newsroom-api/internal/models"
	"github.com/noah-isme/newsroom-api/internal/service"
	"github.com/noah-isme/newsroom-api/pkg/config"
	"github.com/noah-isme/newsroom-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/newsroom-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/newsroom-api/pkg/middleware/requestid"
)

type appServices struct {
	auth       *service.AuthService
	articles   *service.ArticleService
	sources    *service.SourceService
	categories *service.CategoryService
	settings   *service.SettingService
	public     *service.PublicService
	monitoring *service.MonitoringService
	exports    *service.ExportService
	feeds      *service.FeedService
	metrics    *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, svc appServices) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.metrics, "/metrics", "/health", "/ready"))

	monitoringHandler := handler.NewMonitoringHandler(svc.monitoring, svc.metrics)
	r.GET("/health", monitoringHandler.Health)
	r.GET("/ready", monitoringHandler.Ready)
	r.GET("/metrics", monitoringHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	authHandler := handler.NewAuthHandler(svc.auth, handler.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
		MaxAge: cfg.Auth.AccessTTL,
	}, logr)
	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)

	requireSession := middleware.SessionAuth(svc.auth, cfg.Auth.CookieName)
	authed := authGroup.Group("", requireSession)
	authed.POST("/logout-all", authHandler.LogoutAll)
	authed.GET("/me", authHandler.Me)
	authed.GET("/sessions", authHandler.Sessions)
	authed.POST("/change-password", authHandler.ChangePassword)

	publicHandler := handler.NewPublicHandler(svc.public)
	api.GET("/articles", publicHandler.Articles)
	api.GET("/articles/:slug", publicHandler.Article)
	api.GET("/categories", publicHandler.Categories)
	api.GET("/settings/public", publicHandler.Settings)

	admin := api.Group("/admin", requireSession, middleware.RequireRoles(models.RoleSuperAdmin, models.RoleEditor))
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(logr, action, resource)
	}

	articleHandler := handler.NewArticleHandler(svc.articles)
	articles := admin.Group("/articles")
	articles.GET("", articleHandler.List)
	articles.GET("/:id", articleHandler.Get)
	articles.POST("", audit("create", "article"), articleHandler.Create)
	articles.PUT("/:id", audit("update", "article"), articleHandler.Update)
	articles.PATCH("/:id/status", audit("update_status", "article"), articleHandler.UpdateStatus)
	articles.DELETE("/:id", audit("delete", "article"), articleHandler.Delete)

	sourceHandler := handler.NewSourceHandler(svc.sources, svc.feeds)
	sources := admin.Group("/sources")
	sources.GET("", sourceHandler.List)
	sources.GET("/:id", sourceHandler.Get)
	sources.POST("", audit("create", "source"), sourceHandler.Create)
	sources.POST("/bulk", audit("bulk_create", "source"), sourceHandler.Bulk)
	sources.PUT("/:id", audit("update", "source"), sourceHandler.Update)
	sources.DELETE("/:id", audit("delete", "source"), sourceHandler.Delete)
	sources.POST("/:id/fetch", audit("fetch", "source"), sourceHandler.Fetch)

	categoryHandler := handler.NewCategoryHandler(svc.categories)
	categories := admin.Group("/categories")
	categories.GET("", categoryHandler.List)
	categories.POST("", audit("create", "category"), categoryHandler.Create)
	categories.PUT("/:key", audit("update", "category"), categoryHandler.Update)
	categories.DELETE("/:key", audit("delete", "category"), categoryHandler.Delete)

	settingHandler := handler.NewSettingHandler(svc.settings)
	superAdmin := middleware.RequireRoles(models.RoleSuperAdmin)
	settings := admin.Group("/settings")
	settings.GET("", settingHandler.List)
	settings.GET("/:key", settingHandler.Get)
	settings.PUT("", superAdmin, audit("bulk_update", "setting"), settingHandler.BulkUpdate)
	settings.PUT("/:key", superAdmin, audit("update", "setting"), settingHandler.Update)

	exportHandler := handler.NewExportHandler(svc.exports)
	exports := admin.Group("/exports")
	exports.GET("/articles", audit("export", "article"), exportHandler.Articles)
	exports.GET("/sources", audit("export", "source"), exportHandler.Sources)

	admin.GET("/monitoring/stats", monitoringHandler.Stats)

	logr.Debug("routes registered", zap.Int("count", len(r.Routes())))
	return r
}
