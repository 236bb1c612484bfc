package shiftconfig

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

const (
	cacheName = "shift_configuration"
	cacheTTL  = 5 * time.Minute
)

type configStore interface {
	Get(ctx context.Context) (*models.ShiftConfiguration, error)
	Save(ctx context.Context, cfg models.ShiftConfiguration) error
}

// Cache is the subset of the Redis client used to cache the singleton.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(name string) string
}

// Service exposes the shift window configuration.
type Service interface {
	Get(ctx context.Context) (models.ShiftConfiguration, error)
	Update(ctx context.Context, actor auth.Actor, cfg models.ShiftConfiguration) (models.ShiftConfiguration, error)
}

type service struct {
	repo     configStore
	cache    Cache
	activity activity.Recorder
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the configuration service. cache may be nil.
func NewService(repo configStore, cache Cache, recorder activity.Recorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift configuration repository required")
	}
	if recorder == nil {
		recorder = activity.Nop{}
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, cache: cache, activity: recorder, logg: logg, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context) (models.ShiftConfiguration, error) {
	if cfg, ok := s.fromCache(ctx); ok {
		return cfg, nil
	}

	stored, err := s.repo.Get(ctx)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return models.DefaultShiftConfiguration(), nil
	case errors.Is(err, db.ErrSchemaMismatch):
		return models.ShiftConfiguration{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stored shift configuration is invalid")
	case err != nil:
		return models.ShiftConfiguration{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shift configuration")
	}

	s.storeCache(ctx, *stored)
	return *stored, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, cfg models.ShiftConfiguration) (models.ShiftConfiguration, error) {
	if !actor.Admin() {
		return models.ShiftConfiguration{}, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	cfg.UpdatedBy = actor.UserID
	cfg.UpdatedAt = s.now().UTC()
	if err := db.Validate(&cfg); err != nil {
		return models.ShiftConfiguration{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shift configuration").
			WithDetails(map[string]any{"error": err.Error()})
	}
	if err := s.repo.Save(ctx, cfg); err != nil {
		return models.ShiftConfiguration{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save shift configuration")
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, s.cache.CacheKey(cacheName)); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "shiftconfig.cache_invalidate_failed")
		}
	}

	s.activity.Record(ctx, activity.Entry{
		Actor:  actor,
		Type:   enums.ActivityConfigUpdated,
		Action: "Updated shift configuration",
	})
	return cfg, nil
}

func (s *service) fromCache(ctx context.Context) (models.ShiftConfiguration, bool) {
	if s.cache == nil {
		return models.ShiftConfiguration{}, false
	}
	raw, err := s.cache.Get(ctx, s.cache.CacheKey(cacheName))
	if err != nil || raw == "" {
		return models.ShiftConfiguration{}, false
	}
	var cfg models.ShiftConfiguration
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return models.ShiftConfiguration{}, false
	}
	if db.Validate(&cfg) != nil {
		return models.ShiftConfiguration{}, false
	}
	return cfg, true
}

func (s *service) storeCache(ctx context.Context, cfg models.ShiftConfiguration) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.CacheKey(cacheName), string(payload), cacheTTL); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "shiftconfig.cache_store_failed")
	}
}
