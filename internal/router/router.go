// Package router wires every HTTP route to its handler and the
// middleware chain that protects it.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/lecturer-claims/internal/config"
	"github.com/iliyamo/lecturer-claims/internal/handler"
	"github.com/iliyamo/lecturer-claims/internal/middleware"
	"github.com/iliyamo/lecturer-claims/internal/model"
)

// Deps bundles everything route registration needs so main stays a
// straight-line constructor list.
type Deps struct {
	Health      *handler.HealthHandler
	Auth        *handler.AuthHandler
	Claims      *handler.ClaimHandler
	Coordinator *handler.CoordinatorHandler
	Manager     *handler.ManagerHandler
	HR          *handler.HRHandler

	JWTSecret string
	Redis     *redis.Client
	CacheCfg  config.CacheConfig
	RateCfg   config.RateLimitConfig
}

// Register mounts all routes on e. Unauthenticated endpoints are the
// health check and /v1/auth; everything else sits behind JWT plus a
// role check for its group. Read-only projections whose output does
// not depend on the caller are wrapped in the Redis response cache.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health.Check)

	// Every /v1 route shares the rate limiter.
	v1 := e.Group("/v1", middleware.RateLimit(d.Redis, d.RateCfg))

	auth := v1.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.GET("/me", d.Auth.Me, middleware.JWTAuth(d.JWTSecret))

	cache := middleware.CacheJSON(d.Redis, d.CacheCfg)

	lecturer := v1.Group("/claims",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleLecturer))
	lecturer.POST("", d.Claims.Create)
	lecturer.GET("", d.Claims.List)
	lecturer.GET("/:id", d.Claims.Get)
	lecturer.GET("/:id/attachments/:name", d.Claims.Download)

	coordinator := v1.Group("/coordinator",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleCoordinator))
	coordinator.GET("/queue", d.Coordinator.Queue)
	coordinator.POST("/claims/:id/verify", d.Coordinator.Verify)
	coordinator.POST("/claims/:id/reject", d.Coordinator.Reject)
	coordinator.GET("/claims/:id/attachments/:name", d.Claims.DownloadForReview)
	coordinator.GET("/history", d.Coordinator.History, cache)

	manager := v1.Group("/manager",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleManager))
	manager.GET("/queue", d.Manager.Queue)
	manager.POST("/claims/:id/approve", d.Manager.Approve)
	manager.POST("/claims/:id/reject", d.Manager.Reject)
	manager.GET("/claims/:id/attachments/:name", d.Claims.DownloadForReview)
	manager.GET("/history", d.Manager.History, cache)

	hr := v1.Group("/hr",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleHR))
	hr.GET("/dashboard", d.HR.Dashboard)
	hr.GET("/users", d.HR.ListUsers)
	hr.GET("/users.csv", d.HR.UsersCSV)
	hr.POST("/lecturers", d.HR.CreateLecturer)
	hr.PUT("/users/:id", d.HR.UpdateUser)
	hr.POST("/users/:id/approve", d.HR.Approve)
	hr.GET("/claims/:id/attachments/:name", d.Claims.DownloadForReview)
	hr.GET("/report", d.HR.Report, cache)
	hr.GET("/report.csv", d.HR.ReportCSV)
	hr.GET("/history", d.HR.History, cache)
}
