package cron

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/internal/coverage"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
	"github.com/angelmondragon/socshift-backend/pkg/metrics"
)

type coverageSnapshotter interface {
	Snapshot(ctx context.Context, lookahead int) (coverage.Report, error)
}

// CoverageAlertJobParams configures the understaffing alert.
type CoverageAlertJobParams struct {
	Logger   *logger.Logger
	Coverage coverageSnapshotter
	Metrics  *metrics.CoverageMetrics
	Activity activity.Recorder
	// Lookahead is the number of days checked; zero means one week.
	Lookahead int
}

type coverageAlertJob struct {
	logg      *logger.Logger
	coverage  coverageSnapshotter
	metrics   *metrics.CoverageMetrics
	activity  activity.Recorder
	lookahead int
}

func NewCoverageAlertJob(params CoverageAlertJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Coverage == nil {
		return nil, fmt.Errorf("coverage service required")
	}
	recorder := params.Activity
	if recorder == nil {
		recorder = activity.Nop{}
	}
	lookahead := params.Lookahead
	if lookahead <= 0 {
		lookahead = coverage.WeekLookahead
	}
	return &coverageAlertJob{
		logg:      params.Logger,
		coverage:  params.Coverage,
		metrics:   params.Metrics,
		activity:  recorder,
		lookahead: lookahead,
	}, nil
}

func (j *coverageAlertJob) Name() string { return "coverage-alert" }

func (j *coverageAlertJob) Run(ctx context.Context) error {
	report, err := j.coverage.Snapshot(ctx, j.lookahead)
	if err != nil {
		return fmt.Errorf("coverage snapshot: %w", err)
	}
	j.metrics.SetSlots(string(enums.CoverageUnderstaffed), report.Summary.Understaffed)
	j.metrics.SetSlots(string(enums.CoverageOK), report.Summary.OK)
	j.metrics.SetSlots(string(enums.CoverageOverstaffed), report.Summary.Overstaffed)

	gaps := report.Understaffed()
	if len(gaps) == 0 {
		j.logg.Info(ctx, "coverage complete")
		return nil
	}
	slots := make([]string, 0, len(gaps))
	for _, rec := range gaps {
		slots = append(slots, rec.Date+" "+string(rec.Type))
	}
	j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
		"understaffed": len(gaps),
		"slots":        slots,
	}), "understaffed slots ahead")
	j.activity.Record(ctx, activity.Entry{
		Actor:   auth.System,
		Type:    enums.ActivityCoverageAlert,
		Action:  fmt.Sprintf("%d understaffed slots between %s and %s", len(gaps), report.Start, report.End),
		Details: strings.Join(slots, ", "),
	})
	return nil
}
