package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/handler"
	"github.com/stemsi/exstem-session/internal/metrics"
	"github.com/stemsi/exstem-session/internal/middleware"
	"github.com/stemsi/exstem-session/internal/response"
	"github.com/stemsi/exstem-session/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt *handler.AttemptHandler
	Admin   *handler.AdminHandler
	WS      *handler.WSHandler
	Monitor *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background middleware state such as the rate limiter cleanup.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(log))
	router.Use(metrics.MetricsMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.PrometheusHandler())

	// Limits apply per authenticated user, so the limiter runs after JWT checks.
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute)

	// ─── 1. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		limiter.Middleware(),
		middleware.NoStore(),
	)
	{
		studentAPI.POST("/exams/:exam_id/attempts", handlers.Attempt.StartAttempt)
		studentAPI.GET("/exams/:exam_id/attempts", handlers.Attempt.ListAttempts)
		studentAPI.GET("/attempts/:attempt_id", handlers.Attempt.GetAttempt)
		studentAPI.PUT("/attempts/:attempt_id/progress", handlers.Attempt.SaveProgress)
		studentAPI.POST("/attempts/:attempt_id/violations", handlers.Attempt.RecordViolation)
		studentAPI.POST("/attempts/:attempt_id/submit", handlers.Attempt.Submit)
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService), limiter.Middleware())
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 3. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService), middleware.NoStore())
	{
		adminAPI.GET("/exams/:id/results",
			middleware.RequirePermission(service.PermissionResultsRead),
			handlers.Admin.ListExamResults,
		)
		adminAPI.POST("/exams/:id/ranks",
			middleware.RequirePermission(service.PermissionAttemptsManage),
			handlers.Admin.RecomputeRanks,
		)
		adminAPI.POST("/exams/:id/refresh-cache",
			middleware.RequirePermission(service.PermissionAttemptsManage),
			handlers.Admin.RefreshExamCache,
		)
		adminAPI.GET("/exams/:id/monitor",
			middleware.RequirePermission(service.PermissionResultsRead),
			handlers.Monitor.MonitorExamSSE,
		)
		adminAPI.GET("/attempts/:id",
			middleware.RequireAnyPermission(service.PermissionResultsRead, service.PermissionAttemptsManage),
			handlers.Admin.GetAttempt,
		)
		adminAPI.POST("/attempts/:id/force-close",
			middleware.RequirePermission(service.PermissionAttemptsManage),
			handlers.Admin.ForceClose,
		)
	}

	return router
}
