package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/sanmon-backend/internal/config"
	"github.com/stemsi/sanmon-backend/internal/handler"
	"github.com/stemsi/sanmon-backend/internal/middleware"
	"github.com/stemsi/sanmon-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Class   *handler.ClassHandler
	Job     *handler.JobHandler
	Monitor *handler.MonitorHandler
}

// SetupRouter configures the monitoring API. ctx bounds background helpers
// such as the rate limiter's cleanup loop.
func SetupRouter(ctx context.Context, handlers *Handlers, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

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
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(log.With().Str("component", "http").Logger()))
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Compress())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1/monitoring")
	{
		api.GET("", handlers.Class.Overview)
		api.GET("/stream", handlers.Monitor.StreamOverview)

		api.GET("/classes", handlers.Class.ListClasses)
		api.POST("/classes", handlers.Class.RegisterClass)
		api.PUT("/classes/:name", handlers.Class.UpdateRoster)
		api.POST("/classes/:name/report", handlers.Class.ApplyReport)
		api.POST("/classes/:name/closure", handlers.Class.SetClosure)

		api.GET("/summaries", handlers.Job.History)
	}

	// Manual job runs, 6 per minute per IP.
	jobLimiter := middleware.NewRateLimiter(ctx, 6, time.Minute)
	jobs := api.Group("/jobs")
	jobs.Use(jobLimiter.Middleware())
	{
		jobs.POST("/aggregate", handlers.Job.RunAggregation)
		jobs.POST("/notify", handlers.Job.RunNotification)
	}

	return router
}
