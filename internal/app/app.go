// Package app assembles storage, services and the scheduler from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/sanmon-backend/internal/config"
	"github.com/stemsi/sanmon-backend/internal/database"
	"github.com/stemsi/sanmon-backend/internal/lock"
	"github.com/stemsi/sanmon-backend/internal/mailer"
	"github.com/stemsi/sanmon-backend/internal/repository"
	"github.com/stemsi/sanmon-backend/internal/scheduler"
	"github.com/stemsi/sanmon-backend/internal/service"
)

// App holds the wired components shared by the server and the one-shot job runner.
type App struct {
	Store        repository.Store
	Classes      *service.ClassService
	Aggregation  *service.AggregationService
	Notification *service.NotificationService
	Scheduler    *scheduler.Scheduler

	closers []func()
}

// New connects to the configured backends and builds every service.
// Call Close to release connections.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{}

	// ─── Storage ───────────────────────────────────────────────────────
	switch cfg.StorageDriver {
	case "memory":
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		a.Store = repository.NewMemoryStore()
	default:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.MaxDBConns, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		a.Store = repository.NewPostgresStore(pool)
	}

	// ─── Redis job lock (optional) ─────────────────────────────────────
	var opts []scheduler.Option
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { closeRedis(rdb, log) })
		opts = append(opts, scheduler.WithLocker(lock.NewRedisLocker(rdb)))
	} else {
		log.Info().Msg("REDIS_URL not set, job lock is process-local only")
	}

	// ─── Mail ──────────────────────────────────────────────────────────
	mail, err := mailer.New(cfg.Mail, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("mailer: %w", err)
	}
	if cfg.Mail.Driver == "console" && cfg.GinMode != gin.DebugMode {
		// Console delivery always succeeds, so every day would be marked sent.
		log.Warn().Str("gin_mode", cfg.GinMode).Msg("MAIL_DRIVER=console outside debug mode, daily reports are only logged")
	}

	// ─── Services ──────────────────────────────────────────────────────
	rule := service.ThresholdRule{Threshold: cfg.CloseThreshold, DefaultReopenDays: cfg.DefaultReopenDays}
	a.Classes = service.NewClassService(a.Store, rule, cfg.Location, log)
	a.Aggregation = service.NewAggregationService(a.Store, log)
	a.Notification = service.NewNotificationService(a.Store, mail, service.NotificationConfig{
		School:       cfg.SchoolName,
		From:         cfg.Mail.From,
		To:           cfg.Mail.To,
		Window:       cfg.Schedule.NotifyWindow,
		BusinessDays: cfg.Schedule.BusinessDays,
	}, cfg.Location, log)

	a.Scheduler, err = scheduler.New(cfg.Schedule, cfg.Location, a.Aggregation, a.Notification, log, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func closeRedis(rdb *redis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("Redis close error")
	}
}
