package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/socshift-backend/internal/schedule"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

const regenerationMarkerTTL = 48 * time.Hour

type scheduleGenerator interface {
	Generate(ctx context.Context, actor auth.Actor, req schedule.Request) (*schedule.Result, error)
}

type onceMarker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
}

// RegenerationJobParams configures the weekly schedule regeneration.
type RegenerationJobParams struct {
	Logger    *logger.Logger
	Generator scheduleGenerator
	Weekday   time.Weekday
	Location  *time.Location
	// Marker records that a day's run happened so shorter intervals do not
	// regenerate twice. Nil disables the check.
	Marker    onceMarker
	MarkerKey func(day string) string
}

type regenerationJob struct {
	logg      *logger.Logger
	generator scheduleGenerator
	weekday   time.Weekday
	loc       *time.Location
	marker    onceMarker
	markerKey func(string) string
	now       func() time.Time
}

func NewRegenerationJob(params RegenerationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Generator == nil {
		return nil, fmt.Errorf("schedule generator required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	key := params.MarkerKey
	if key == nil {
		key = func(day string) string { return "cron:schedule-regeneration:" + day }
	}
	return &regenerationJob{
		logg:      params.Logger,
		generator: params.Generator,
		weekday:   params.Weekday,
		loc:       loc,
		marker:    params.Marker,
		markerKey: key,
		now:       time.Now,
	}, nil
}

func (j *regenerationJob) Name() string { return "schedule-regeneration" }

// Run regenerates the next seven days starting tomorrow for the active
// roster, but only on the configured weekday.
func (j *regenerationJob) Run(ctx context.Context) error {
	now := j.now().In(j.loc)
	if now.Weekday() != j.weekday {
		return nil
	}
	today := dates.Today(now, j.loc)
	if j.marker != nil {
		first, err := j.marker.SetNX(ctx, j.markerKey(today), "1", regenerationMarkerTTL)
		if err != nil {
			return fmt.Errorf("mark regeneration run: %w", err)
		}
		if !first {
			j.logg.Info(ctx, "schedule already regenerated today")
			return nil
		}
	}

	result, err := j.generator.Generate(ctx, auth.System, schedule.Request{
		StartDate: dates.MustAddDays(today, 1),
		Days:      schedule.DefaultDays,
	})
	if err != nil {
		return fmt.Errorf("generate schedule: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"from":       result.Window.From,
		"to":         result.Window.To,
		"inserted":   len(result.Inserted),
		"deleted":    result.Deleted,
		"skipped":    len(result.Skipped),
		"violations": len(result.Violations),
	}), "schedule regenerated")
	return nil
}
