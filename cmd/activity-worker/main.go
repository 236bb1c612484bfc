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

	"github.com/angelmondragon/socshift-backend/internal/activity/worker"
	"github.com/angelmondragon/socshift-backend/internal/activity/writer"
	"github.com/angelmondragon/socshift-backend/pkg/bigquery"
	"github.com/angelmondragon/socshift-backend/pkg/config"
	"github.com/angelmondragon/socshift-backend/pkg/events"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
	"github.com/angelmondragon/socshift-backend/pkg/metrics"
	"github.com/angelmondragon/socshift-backend/pkg/pubsub"
	"github.com/angelmondragon/socshift-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "activity-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "activity-worker"

	logg = logger.New(logger.Options{
		ServiceName: "activity-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if !cfg.BigQuery.Enabled {
		requireResource(ctx, logg, "bigquery", errors.New("SOCSHIFT_BIGQUERY_ENABLED must be true for the activity worker"))
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	requireResource(ctx, logg, "activity table", bqClient.EnsureTable(ctx, writer.TableSpec(cfg.BigQuery.ActivityTable)))

	subscription := pubsubClient.ActivitySubscription()
	if subscription == nil {
		requireResource(ctx, logg, "activity subscription", errors.New("subscription not configured"))
	}

	manager, err := events.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	activityWriter, err := writer.New(bqClient, writer.Config{ActivityTable: cfg.BigQuery.ActivityTable})
	requireResource(ctx, logg, "activity bigquery writer", err)

	service, err := worker.NewService(worker.ServiceParams{
		Subscription: subscription,
		Handler:      worker.BigQueryHandler(activityWriter),
		Dedupe:       manager,
		Metrics:      metrics.NewConsumerMetrics(prometheus.DefaultRegisterer),
		Logger:       logg,
		MaxAttempts:  cfg.Eventing.MaxAttempts,
	})
	requireResource(ctx, logg, "activity worker service", err)

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
	})
	logg.Info(runCtx, "activity worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "activity worker failed", err)
		os.Exit(1)
	}
	if err := activityWriter.Flush(context.WithoutCancel(runCtx)); err != nil {
		logg.Error(runCtx, "failed to flush buffered activity rows", err)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
