package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/genai"

	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/internal/availability"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
	"github.com/angelmondragon/socshift-backend/pkg/gemini"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
	"github.com/angelmondragon/socshift-backend/pkg/metrics"
)

// Generator is the model client.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

type shiftStore interface {
	ListRange(ctx context.Context, from, to string) ([]models.Shift, error)
	ListRangeTx(tx *firestore.Transaction, from, to string) ([]models.Shift, error)
	CreateTx(tx *firestore.Transaction, shift *models.Shift) error
	DeleteTx(tx *firestore.Transaction, id string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn db.TxFunc) error
}

type configReader interface {
	Get(ctx context.Context) (models.ShiftConfiguration, error)
}

type rosterReader interface {
	ListActive(ctx context.Context) ([]models.User, error)
}

type availabilityLister interface {
	ListRange(ctx context.Context, from, to string) ([]models.UserAvailability, error)
}

// Service generates and merges schedules.
type Service interface {
	Generate(ctx context.Context, actor auth.Actor, req Request) (*Result, error)
}

// ServiceParams groups the service dependencies. Generator may be nil when
// no API key is configured; Generate then fails with a configuration error.
type ServiceParams struct {
	Generator    Generator
	Shifts       shiftStore
	Tx           txRunner
	Config       configReader
	Roster       rosterReader
	Availability availabilityLister
	Activity     activity.Recorder
	Metrics      *metrics.ScheduleMetrics
	Logger       *logger.Logger
	Mode         string
	Location     *time.Location
}

type service struct {
	generator    Generator
	shifts       shiftStore
	tx           txRunner
	config       configReader
	roster       rosterReader
	availability availabilityLister
	activity     activity.Recorder
	metrics      *metrics.ScheduleMetrics
	logg         *logger.Logger
	mode         string
	loc          *time.Location
	now          func() time.Time
}

// NewService validates and wires the generation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Shifts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Config == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift configuration required")
	}
	if params.Roster == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "roster reader required")
	}
	if params.Availability == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "availability repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	mode := strings.ToLower(strings.TrimSpace(params.Mode))
	switch mode {
	case "":
		mode = ModeRetry
	case ModeRetry, ModeReject, ModeWarn:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, fmt.Sprintf("unknown validation mode %q", params.Mode))
	}
	recorder := params.Activity
	if recorder == nil {
		recorder = activity.Nop{}
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		generator:    params.Generator,
		shifts:       params.Shifts,
		tx:           params.Tx,
		config:       params.Config,
		roster:       params.Roster,
		availability: params.Availability,
		activity:     recorder,
		metrics:      params.Metrics,
		logg:         params.Logger,
		mode:         mode,
		loc:          loc,
		now:          time.Now,
	}, nil
}

// generation is the context shared by every model attempt.
type generation struct {
	window    Window
	today     string
	roster    []models.User
	cfg       models.ShiftConfiguration
	protected []models.Shift
	blocked   map[string][]string
}

func (s *service) Generate(ctx context.Context, actor auth.Actor, req Request) (*Result, error) {
	started := s.now()
	result, err := s.generate(ctx, actor, req)
	outcome := "success"
	if err != nil {
		outcome = string(pkgerrors.As(err).Code())
	}
	s.metrics.ObserveGeneration(outcome, time.Since(started))
	return result, err
}

func (s *service) generate(ctx context.Context, actor auth.Actor, req Request) (*Result, error) {
	if !actor.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if s.generator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "schedule generation is not configured: missing Gemini API key")
	}

	gen, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"window_from": gen.window.From, "window_to": gen.window.To})

	proposals, violations, attempts, err := s.propose(ctx, gen)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(gen.roster))
	for _, u := range gen.roster {
		known[u.ID] = true
	}

	var plan Plan
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := s.shifts.ListRangeTx(tx, gen.window.From, gen.window.To)
		if err != nil {
			return err
		}
		plan = PlanMerge(existing, proposals, MergeInput{
			Window: gen.window,
			Today:  gen.today,
			Known:  known,
			Config: gen.cfg,
			Now:    s.now().UTC(),
		})
		// one transaction replaces the whole window
		if n := plan.Writes(); n > db.MaxTxWrites {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("merge needs %d writes, more than the %d one transaction allows; generate a shorter window", n, db.MaxTxWrites)).
				WithDetails(map[string]any{"deletes": len(plan.Deletes), "inserts": len(plan.Inserts)})
		}
		for _, shift := range plan.Deletes {
			if err := s.shifts.DeleteTx(tx, shift.ID); err != nil {
				return err
			}
		}
		for i := range plan.Inserts {
			if err := s.shifts.CreateTx(tx, &plan.Inserts[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "merge generated schedule")
	}

	result := &Result{
		Window:     gen.window,
		Inserted:   make([]ShiftSummary, 0, len(plan.Inserts)),
		Deleted:    len(plan.Deletes),
		Skipped:    plan.Skipped,
		Violations: violations,
		Attempts:   attempts,
	}
	for _, shift := range plan.Inserts {
		result.Inserted = append(result.Inserted, ShiftSummary{ID: shift.ID, Date: shift.Date, Type: shift.Type, UserID: shift.UserID})
	}
	for _, skip := range plan.Skipped {
		s.metrics.IncSkipped(skip.Reason)
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"date":    skip.Proposal.Date,
			"type":    string(skip.Proposal.Type),
			"user_id": skip.Proposal.UserID,
			"reason":  skip.Reason,
		}), "schedule.proposal_skipped")
	}
	s.metrics.AddInserted(len(result.Inserted))

	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityScheduleGenerated,
		Action:  fmt.Sprintf("Generated schedule: %d shifts inserted, %d replaced", len(result.Inserted), result.Deleted),
		Details: gen.window.From + ".." + gen.window.To,
	})
	return result, nil
}

func (s *service) prepare(ctx context.Context, req Request) (*generation, error) {
	today := dates.Today(s.now(), s.loc)
	start := strings.TrimSpace(req.StartDate)
	if start == "" {
		start = dates.MustAddDays(today, 1)
	}
	days := req.Days
	if days == 0 {
		days = DefaultDays
	}
	if days < 0 || days > MaxDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("days must be between 1 and %d", MaxDays))
	}
	window, err := ComputeWindow(start, days, today)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "nothing to generate: the requested range is not in the future")
	}

	cfg, err := s.shiftConfig(ctx, req.ShiftConfig)
	if err != nil {
		return nil, err
	}

	roster, err := s.resolveRoster(ctx, req.Users)
	if err != nil {
		return nil, err
	}

	existing, err := s.shifts.ListRange(ctx, window.From, window.To)
	if err != nil {
		return nil, mapStoreError(err, "list shifts")
	}
	var protected []models.Shift
	for _, shift := range existing {
		if shift.ManuallyCreated {
			protected = append(protected, shift)
		}
	}

	blocks, err := s.availability.ListRange(ctx, window.From, window.To)
	if err != nil {
		return nil, mapStoreError(err, "list availability")
	}
	return &generation{
		window:    window,
		today:     today,
		roster:    roster,
		cfg:       cfg,
		protected: protected,
		blocked:   availability.Blocked(blocks),
	}, nil
}

// shiftConfig prefers the request body, then the persisted singleton, then
// the built-in default.
func (s *service) shiftConfig(ctx context.Context, override *models.ShiftConfiguration) (models.ShiftConfiguration, error) {
	if override == nil {
		return s.config.Get(ctx)
	}
	if err := db.Validate(override); err != nil {
		return models.ShiftConfiguration{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shiftConfig")
	}
	return *override, nil
}

func (s *service) resolveRoster(ctx context.Context, requested []RosterEntry) ([]models.User, error) {
	active, err := s.roster.ListActive(ctx)
	if err != nil {
		return nil, mapStoreError(err, "list active users")
	}
	if len(requested) > 0 {
		byID := make(map[string]models.User, len(active))
		for _, u := range active {
			byID[u.ID] = u
		}
		selected := make([]models.User, 0, len(requested))
		var missing []string
		seen := map[string]bool{}
		for _, entry := range requested {
			if seen[entry.ID] {
				continue
			}
			seen[entry.ID] = true
			u, ok := byID[entry.ID]
			if !ok {
				missing = append(missing, entry.ID)
				continue
			}
			selected = append(selected, u)
		}
		if len(missing) > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown or inactive users in roster").
				WithDetails(map[string]any{"userIds": missing})
		}
		active = selected
	}
	if len(active) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no active users to schedule")
	}
	return active, nil
}

// propose asks the model for a schedule. A malformed answer is re-requested
// once. In retry mode an answer that breaks a hard rule is re-requested once
// with the violations as feedback.
func (s *service) propose(ctx context.Context, gen *generation) ([]Proposal, []Violation, int, error) {
	in := PromptInput{
		Window:    gen.window,
		Roster:    gen.roster,
		Config:    gen.cfg,
		Protected: gen.protected,
		Blocked:   gen.blocked,
	}
	validation := ValidationInput{
		Window:    gen.window,
		Roster:    gen.roster,
		Protected: gen.protected,
		Blocked:   gen.blocked,
	}

	attempts := 0
	retried := false
	for {
		proposals, calls, err := s.ask(ctx, in)
		attempts += calls
		if err != nil {
			return nil, nil, attempts, err
		}

		violations := Validate(proposals, validation)
		for _, v := range violations {
			s.metrics.IncViolation(v.Rule)
		}
		if len(violations) == 0 || s.mode == ModeWarn {
			if len(violations) > 0 {
				s.logg.Warn(s.logg.WithField(ctx, "violations", len(violations)), "schedule.violations_accepted")
			}
			return proposals, violations, attempts, nil
		}
		if s.mode == ModeRetry && !retried {
			retried = true
			in.Feedback = ViolationSummary(violations)
			s.logg.Warn(s.logg.WithField(ctx, "violations", len(violations)), "schedule.retrying_after_violations")
			continue
		}
		return nil, violations, attempts, pkgerrors.Wrap(pkgerrors.CodeDependency, ViolationsErr(violations), "generated schedule breaks scheduling rules").
			WithDetails(map[string]any{"violations": violations})
	}
}

func (s *service) ask(ctx context.Context, in PromptInput) ([]Proposal, int, error) {
	calls := 0
	for {
		calls++
		text, err := s.generator.GenerateJSON(ctx, BuildPrompt(in), ResponseSchema())
		if err != nil {
			return nil, calls, mapGeneratorError(err)
		}
		proposals, err := ParseProposals(text)
		if err == nil {
			return proposals, calls, nil
		}
		if calls > 1 {
			return nil, calls, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "model returned malformed JSON")
		}
		s.logg.Warn(ctx, "schedule.malformed_response_retry")
		in.Feedback = append(in.Feedback, "The previous answer was not a valid JSON array of shifts.")
	}
}

func mapGeneratorError(err error) error {
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		return pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "schedule generation is not configured: missing Gemini API key")
	case errors.Is(err, gemini.ErrEmptyResponse):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "model returned an empty response")
	case errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "model request timed out")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "model request failed")
}

func mapStoreError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case errors.Is(err, db.ErrSchemaMismatch):
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action+": stored document is invalid")
	case db.IsContention(err):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, action+": concurrent update, retry")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
