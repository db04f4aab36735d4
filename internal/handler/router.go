package handler

import (
	"github.com/labstack/echo/v4"

	"proxy-config-guard/internal/service"
)

// RegisterAPI mounts the configuration API on g. Authentication and role checks are
// expected to be installed on g by the caller.
func RegisterAPI(g *echo.Group, svc *service.ConfigService, backups *service.BackupService, audit *service.AuditService) {
	routeHandler := NewRouteHandler(svc)
	middlewareHandler := NewMiddlewareHandler(svc)
	serviceHandler := NewServiceHandler(svc)
	certificateHandler := NewCertificateHandler(svc)
	configHandler := NewConfigHandler(svc)
	backupHandler := NewBackupHandler(svc, backups)
	reloadHandler := NewReloadHandler(svc)
	auditLogHandler := NewAuditLogHandler(audit)

	routes := g.Group("/routes")
	{
		routes.GET("", routeHandler.List)
		routes.POST("", routeHandler.Create)
		routes.GET("/:name", routeHandler.Get)
		routes.PUT("/:name", routeHandler.Update)
		routes.DELETE("/:name", routeHandler.Delete)
	}

	middlewares := g.Group("/middleware")
	{
		middlewares.GET("", middlewareHandler.List)
		middlewares.POST("", middlewareHandler.Create)
		middlewares.GET("/types", middlewareHandler.Types)
		middlewares.GET("/:name", middlewareHandler.Get)
		middlewares.PUT("/:name", middlewareHandler.Update)
		middlewares.DELETE("/:name", middlewareHandler.Delete)
	}

	g.GET("/services", serviceHandler.List)

	certificates := g.Group("/certificates")
	{
		certificates.GET("", certificateHandler.List)
		certificates.POST("", certificateHandler.Request)
		certificates.DELETE("/:domain", certificateHandler.Revoke)
	}

	cfg := g.Group("/config")
	{
		cfg.GET("", configHandler.Get)
		cfg.PUT("", configHandler.Replace)
		cfg.POST("/validate", configHandler.Validate)
		cfg.GET("/summary", configHandler.Summary)
		cfg.POST("/backup", backupHandler.Create)
		cfg.POST("/restore/:id", backupHandler.Restore)
	}

	g.GET("/backups", backupHandler.List)
	g.GET("/backups/:id/export", backupHandler.Export)
	g.POST("/reload", reloadHandler.Reload)
	g.GET("/audit-logs", auditLogHandler.ListAuditLogs)
}
