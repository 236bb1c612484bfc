package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/internal/availability"
	"github.com/angelmondragon/socshift-backend/internal/coverage"
	"github.com/angelmondragon/socshift-backend/internal/cron"
	"github.com/angelmondragon/socshift-backend/internal/schedule"
	"github.com/angelmondragon/socshift-backend/internal/shiftconfig"
	"github.com/angelmondragon/socshift-backend/internal/shifts"
	"github.com/angelmondragon/socshift-backend/internal/users"
	"github.com/angelmondragon/socshift-backend/pkg/config"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/events"
	"github.com/angelmondragon/socshift-backend/pkg/gemini"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
	"github.com/angelmondragon/socshift-backend/pkg/metrics"
	"github.com/angelmondragon/socshift-backend/pkg/pubsub"
	"github.com/angelmondragon/socshift-backend/pkg/redis"
)

// A cycle that outlives this is assumed crashed.
const lockTTL = 30 * time.Minute

type envelopePublisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	loc, err := cfg.App.Location()
	requireResource(ctx, logg, "timezone", err)
	weekday, err := cfg.Schedule.Weekday()
	requireResource(ctx, logg, "regeneration weekday", err)

	dbClient, err := db.New(ctx, cfg.GCP, cfg.Firebase, logg)
	requireResource(ctx, logg, "firestore", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing firestore", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	var publisher envelopePublisher
	if cfg.PubSub.Enabled() {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()
		activityPublisher, err := activity.NewPubSubPublisher(pubsubClient.ActivityPublisher())
		requireResource(ctx, logg, "activity publisher", err)
		defer activityPublisher.Stop()
		publisher = activityPublisher
	}

	activityService, err := activity.NewService(activity.NewRepository(dbClient), publisher, logg)
	requireResource(ctx, logg, "activity service", err)

	shiftConfigService, err := shiftconfig.NewService(shiftconfig.NewRepository(dbClient), redisClient, activityService, logg)
	requireResource(ctx, logg, "shift configuration service", err)

	shiftRepo := shifts.NewRepository(dbClient)
	registry := cron.NewRegistry()

	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini)
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		logg.Warn(ctx, "gemini api key not set; weekly regeneration is disabled")
	case err != nil:
		requireResource(ctx, logg, "gemini", err)
	default:
		scheduleService, err := schedule.NewService(schedule.ServiceParams{
			Generator:    geminiClient,
			Shifts:       shiftRepo,
			Tx:           dbClient,
			Config:       shiftConfigService,
			Roster:       users.NewRepository(dbClient),
			Availability: availability.NewRepository(dbClient),
			Activity:     activityService,
			Metrics:      metrics.NewScheduleMetrics(prometheus.DefaultRegisterer),
			Logger:       logg,
			Mode:         cfg.Schedule.ValidationMode,
			Location:     loc,
		})
		requireResource(ctx, logg, "schedule service", err)

		regeneration, err := cron.NewRegenerationJob(cron.RegenerationJobParams{
			Logger:    logg,
			Generator: scheduleService,
			Weekday:   weekday,
			Location:  loc,
			Marker:    redisClient,
			MarkerKey: func(day string) string { return redisClient.LockKey("schedule-regeneration:" + day) },
		})
		requireResource(ctx, logg, "regeneration job", err)
		requireResource(ctx, logg, "regeneration job", registry.Register(regeneration))
	}

	coverageService, err := coverage.NewService(shiftRepo, loc)
	requireResource(ctx, logg, "coverage service", err)
	coverageJob, err := cron.NewCoverageAlertJob(cron.CoverageAlertJobParams{
		Logger:    logg,
		Coverage:  coverageService,
		Metrics:   metrics.NewCoverageMetrics(prometheus.DefaultRegisterer),
		Activity:  activityService,
		Lookahead: cfg.Schedule.CoverageAlertDays,
	})
	requireResource(ctx, logg, "coverage alert job", err)
	requireResource(ctx, logg, "coverage alert job", registry.Register(coverageJob))

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), lockTTL)
	requireResource(ctx, logg, "cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Schedule.CronInterval,
		JobTimeout: cfg.Schedule.CronJobTimeout,
	})
	requireResource(ctx, logg, "cron service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	metricsServer := metrics.NewServer(":"+port, prometheus.DefaultGatherer)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Schedule.CronInterval.String(),
		"weekday":     weekday.String(),
		"jobs":        registry.Names(),
	})
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
