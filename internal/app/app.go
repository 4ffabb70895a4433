// Package app wires configuration, storage and services into one graph
// shared by the HTTP server and the ops CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/recruit-timeline-api/internal/repository"
	"github.com/noah-isme/recruit-timeline-api/internal/service"
	"github.com/noah-isme/recruit-timeline-api/pkg/cache"
	"github.com/noah-isme/recruit-timeline-api/pkg/config"
	"github.com/noah-isme/recruit-timeline-api/pkg/database"
	"github.com/noah-isme/recruit-timeline-api/pkg/export"
	"github.com/noah-isme/recruit-timeline-api/pkg/jobs"
)

// App holds every long-lived dependency of the process.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Metrics    *service.MetricsService
	Tokens     *service.TokenService
	Reports    *service.StepReportService
	Timelines  *service.TimelineService
	Exports    *service.ExportService
	Officials  *service.OfficialDateService
	Assignment *service.AssignmentService
	Queue      *jobs.Queue
}

// New connects to Postgres (and Redis when enabled) and builds the services.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return Build(cfg, logger, db, rdb), nil
}

// Build assembles the service graph on top of open connections. rdb may be nil.
func Build(cfg *config.Config, logger *zap.Logger, db *sqlx.DB, rdb *redis.Client) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := service.NewMetricsService()

	recruitment := repository.NewRecruitmentRepository(db)
	observations := repository.NewStepDateLogRepository(db)
	reportRepo := repository.NewStepReportRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(rdb, logger.Named("cache"))

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Timeline.CacheTTL, logger.Named("cache"), cfg.Timeline.CacheEnabled && cacheRepo.Available())
	if cfg.Timeline.CacheEnabled && !cacheRepo.Available() {
		logger.Warn("timeline cache requested without redis; caching disabled")
	}

	resolver := service.NewDateResolver(service.DateResolverConfig{
		OfficialBonus: cfg.Resolver.OfficialBonus,
		MaxPasses:     cfg.Resolver.MaxPasses,
	})

	reports := service.NewStepReportService(
		reportRepo,
		service.NewIdentifierResolver(recruitment),
		newCooldownLimiter(cfg.Reports, cacheRepo, cacheRepo.Available(), logger),
		auditRepo,
		logger.Named("step_reports"),
		service.WithReportCache(cacheSvc),
		service.WithReportMetrics(metrics),
		service.WithFingerprintSecret(cfg.Reports.FingerprintSecret),
	)

	timelines := service.NewTimelineService(service.TimelineServiceParams{
		Catalog:      recruitment,
		Observations: observations,
		Resolver:     resolver,
		Cache:        cacheSvc,
		CacheTTL:     cfg.Timeline.CacheTTL,
		Metrics:      metrics,
		Fanout:       cfg.Timeline.Fanout,
		Logger:       logger.Named("timelines"),
	})

	assignment := service.NewAssignmentService(reports, auditRepo, cfg.Assignment.BatchSize, logger.Named("assignment"))
	mux := jobs.NewMux()
	mux.Handle(service.JobTypeProcessPending, assignment.HandleJob)
	queue := jobs.NewQueue("assignment", mux.Dispatch, jobs.QueueConfig{
		Workers:    cfg.Assignment.Workers,
		MaxRetries: cfg.Assignment.Retries,
		RetryDelay: 5 * time.Second,
		Logger:     logger,
	})
	assignment.AttachQueue(queue)

	return &App{
		Config:     cfg,
		Logger:     logger,
		DB:         db,
		Redis:      rdb,
		Metrics:    metrics,
		Tokens:     NewTokenService(cfg),
		Reports:    reports,
		Timelines:  timelines,
		Exports:    service.NewExportService(timelines, logger.Named("exports"), export.WithUTF8Font(cfg.Timeline.PDFFontPath)),
		Officials:  service.NewOfficialDateService(recruitment, observations, cacheSvc, auditRepo, logger.Named("official_dates")),
		Assignment: assignment,
		Queue:      queue,
	}
}

// NewTokenService builds the admin token service from cfg.
func NewTokenService(cfg *config.Config) *service.TokenService {
	return service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
	})
}

// Close stops workers and releases connections.
func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Stop()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("close database", zap.Error(err))
		}
	}
}

func newCooldownLimiter(cfg config.ReportsConfig, store *repository.CacheRepository, redisReady bool, logger *zap.Logger) service.CooldownLimiter {
	if cfg.CooldownBackend == config.CooldownBackendRedis {
		if redisReady {
			return service.NewRedisCooldownLimiter(store, cfg.Cooldown)
		}
		logger.Warn("redis cooldown backend requested without redis; using in-process limiter")
	}
	return service.NewMemoryCooldownLimiter(cfg.Cooldown, cfg.CooldownEvictFactor, time.Now)
}
