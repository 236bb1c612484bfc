package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/socshift-backend/api/controllers"
	"github.com/angelmondragon/socshift-backend/api/routes"
	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/internal/activity/query"
	"github.com/angelmondragon/socshift-backend/internal/availability"
	"github.com/angelmondragon/socshift-backend/internal/clock"
	"github.com/angelmondragon/socshift-backend/internal/conflicts"
	"github.com/angelmondragon/socshift-backend/internal/coverage"
	"github.com/angelmondragon/socshift-backend/internal/exports"
	"github.com/angelmondragon/socshift-backend/internal/leave"
	"github.com/angelmondragon/socshift-backend/internal/notes"
	"github.com/angelmondragon/socshift-backend/internal/recommendations"
	"github.com/angelmondragon/socshift-backend/internal/schedule"
	"github.com/angelmondragon/socshift-backend/internal/shiftconfig"
	"github.com/angelmondragon/socshift-backend/internal/shifts"
	"github.com/angelmondragon/socshift-backend/internal/swaps"
	"github.com/angelmondragon/socshift-backend/internal/users"
	"github.com/angelmondragon/socshift-backend/internal/workload"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/bigquery"
	"github.com/angelmondragon/socshift-backend/pkg/config"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/events"
	"github.com/angelmondragon/socshift-backend/pkg/firebase"
	"github.com/angelmondragon/socshift-backend/pkg/gemini"
	"github.com/angelmondragon/socshift-backend/pkg/i18n"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
	"github.com/angelmondragon/socshift-backend/pkg/metrics"
	"github.com/angelmondragon/socshift-backend/pkg/pubsub"
	"github.com/angelmondragon/socshift-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

type envelopePublisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	loc, err := cfg.App.Location()
	requireResource(ctx, logg, "timezone", err)

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

	authClient, err := firebase.NewAuthClient(ctx, cfg.GCP)
	requireResource(ctx, logg, "firebase auth", err)

	var verifier auth.TokenVerifier = authClient
	if cfg.Auth.IsLocal() {
		local, err := auth.NewLocalVerifier(cfg.JWT)
		requireResource(ctx, logg, "local token verifier", err)
		verifier = local
		logg.Warn(ctx, "local auth mode enabled; bearer tokens are minted by /api/dev/token")
	}

	translator, err := i18n.New("en")
	requireResource(ctx, logg, "translations", err)

	var publisher envelopePublisher
	pingers := map[string]controllers.Pinger{"firestore": dbClient, "redis": redisClient}
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
		pingers["pubsub"] = pubsubClient
	}

	var analytics query.Service
	if cfg.BigQuery.Enabled {
		bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		requireResource(ctx, logg, "bigquery", err)
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(ctx, "error closing bigquery", err)
			}
		}()
		analytics, err = query.NewService(bqClient, bqClient.ProjectID(), bqClient.DatasetID(), cfg.BigQuery.ActivityTable)
		requireResource(ctx, logg, "activity analytics", err)
		pingers["bigquery"] = bqClient
	}

	var generator schedule.Generator
	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini)
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		logg.Warn(ctx, "gemini api key not set; schedule generation is disabled")
	case err != nil:
		requireResource(ctx, logg, "gemini", err)
	default:
		generator = geminiClient
	}

	shiftRepo := shifts.NewRepository(dbClient)
	userRepo := users.NewRepository(dbClient)
	availabilityRepo := availability.NewRepository(dbClient)
	clockRepo := clock.NewRepository(dbClient)

	activityService, err := activity.NewService(activity.NewRepository(dbClient), publisher, logg)
	requireResource(ctx, logg, "activity service", err)

	shiftConfigService, err := shiftconfig.NewService(shiftconfig.NewRepository(dbClient), redisClient, activityService, logg)
	requireResource(ctx, logg, "shift configuration service", err)

	scheduleService, err := schedule.NewService(schedule.ServiceParams{
		Generator:    generator,
		Shifts:       shiftRepo,
		Tx:           dbClient,
		Config:       shiftConfigService,
		Roster:       userRepo,
		Availability: availabilityRepo,
		Activity:     activityService,
		Metrics:      metrics.NewScheduleMetrics(prometheus.DefaultRegisterer),
		Logger:       logg,
		Mode:         cfg.Schedule.ValidationMode,
		Location:     loc,
	})
	requireResource(ctx, logg, "schedule service", err)

	userService, err := users.NewService(users.ServiceParams{
		Repo:     userRepo,
		Shifts:   shiftRepo,
		Tx:       dbClient,
		Accounts: authClient,
		Activity: activityService,
		Logger:   logg,
	})
	requireResource(ctx, logg, "user service", err)

	shiftService, err := shifts.NewService(shifts.ServiceParams{
		Repo:     shiftRepo,
		Tx:       dbClient,
		Config:   shiftConfigService,
		Users:    userRepo,
		Activity: activityService,
		Location: loc,
	})
	requireResource(ctx, logg, "shift service", err)

	coverageService, err := coverage.NewService(shiftRepo, loc)
	requireResource(ctx, logg, "coverage service", err)

	conflictService, err := conflicts.NewService(userRepo, shiftRepo, availabilityRepo, translator)
	requireResource(ctx, logg, "conflict service", err)

	recommendationService, err := recommendations.NewService(userRepo, shiftRepo, availabilityRepo, translator, loc)
	requireResource(ctx, logg, "recommendation service", err)

	swapService, err := swaps.NewService(swaps.ServiceParams{
		Repo:     swaps.NewRepository(dbClient),
		Shifts:   shiftRepo,
		Tx:       dbClient,
		Activity: activityService,
		Location: loc,
	})
	requireResource(ctx, logg, "swap service", err)

	leaveService, err := leave.NewService(leave.ServiceParams{
		Repo:         leave.NewRepository(dbClient),
		Availability: availabilityRepo,
		Tx:           dbClient,
		Activity:     activityService,
		Location:     loc,
	})
	requireResource(ctx, logg, "leave service", err)

	availabilityService, err := availability.NewService(availabilityRepo, activityService)
	requireResource(ctx, logg, "availability service", err)

	clockService, err := clock.NewService(clock.ServiceParams{
		Repo:     clockRepo,
		Shifts:   shiftRepo,
		Tx:       dbClient,
		Activity: activityService,
		Location: loc,
	})
	requireResource(ctx, logg, "clock service", err)

	noteService, err := notes.NewService(notes.NewRepository(dbClient), shiftRepo, activityService)
	requireResource(ctx, logg, "note service", err)

	workloadService, err := workload.NewService(workload.ServiceParams{
		Shifts:   shiftRepo,
		Users:    userRepo,
		Entries:  clockRepo,
		Config:   shiftConfigService,
		Location: loc,
	})
	requireResource(ctx, logg, "workload service", err)

	exportService, err := exports.NewService(shiftRepo, userRepo, shiftConfigService, loc)
	requireResource(ctx, logg, "export service", err)

	deps := routes.Deps{
		Verifier:        verifier,
		Profiles:        userRepo,
		Store:           redisClient,
		Gatherer:        prometheus.DefaultGatherer,
		HTTP:            metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Pingers:         pingers,
		Schedule:        scheduleService,
		Users:           userService,
		Shifts:          shiftService,
		Coverage:        coverageService,
		Conflicts:       conflictService,
		Recommendations: recommendationService,
		Swaps:           swapService,
		Leave:           leaveService,
		Availability:    availabilityService,
		Clock:           clockService,
		Notes:           noteService,
		ShiftConfig:     shiftConfigService,
		Activity:        activityService,
		Workload:        workloadService,
		Analytics:       analytics,
		Exports:         exportService,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"serviceKind": cfg.Service.Kind,
		"authMode":    cfg.Auth.Mode,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(sigCtx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
