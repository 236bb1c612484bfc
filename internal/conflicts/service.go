package conflicts

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

type userReader interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

type shiftLister interface {
	ListByUser(ctx context.Context, userID, from, to string) ([]models.Shift, error)
}

type availabilityLister interface {
	ListByUser(ctx context.Context, userID, from, to string) ([]models.UserAvailability, error)
}

// Translator renders catalog messages in the request locale.
type Translator interface {
	T(ctx context.Context, messageID string, data map[string]any) string
}

// CheckInput is the body of POST /api/v1/conflicts/check. UserID defaults to
// the caller; only admins may check on behalf of someone else.
type CheckInput struct {
	Date   string          `json:"date" validate:"required,ymd"`
	Type   enums.ShiftType `json:"type" validate:"required,shift_type"`
	UserID string          `json:"userId"`
}

// Finding is a localized conflict.
type Finding struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Report is the localized result of a check.
type Report struct {
	Date      string                 `json:"date"`
	Type      enums.ShiftType        `json:"type"`
	UserID    string                 `json:"userId"`
	Severity  enums.ConflictSeverity `json:"severity"`
	Conflicts []Finding              `json:"conflicts"`
	Message   string                 `json:"message,omitempty"`
}

// Service loads a user's context and runs Detect.
type Service interface {
	Check(ctx context.Context, actor auth.Actor, input CheckInput) (*Report, error)
}

type service struct {
	users        userReader
	shifts       shiftLister
	availability availabilityLister
	translator   Translator
}

// NewService wires the conflict checker.
func NewService(users userReader, shifts shiftLister, availability availabilityLister, translator Translator) (Service, error) {
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user reader required")
	}
	if shifts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift repository required")
	}
	if availability == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "availability repository required")
	}
	if translator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "translator required")
	}
	return &service{users: users, shifts: shifts, availability: availability, translator: translator}, nil
}

func (s *service) Check(ctx context.Context, actor auth.Actor, input CheckInput) (*Report, error) {
	if !dates.Valid(input.Date) || !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid date and shift type required")
	}
	uid := strings.TrimSpace(input.UserID)
	if uid == "" {
		uid = actor.UserID
	}
	if uid != actor.UserID && !actor.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot check conflicts for another user")
	}

	// every rolling week through the date; this also covers adjacency
	from := dates.MustAddDays(input.Date, 1-models.RollingWeekDays)
	to := dates.MustAddDays(input.Date, models.RollingWeekDays-1)

	var (
		user   *models.User
		shifts []models.Shift
		blocks []models.UserAvailability
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.users.Get(gctx, uid)
		return err
	})
	g.Go(func() error {
		var err error
		shifts, err = s.shifts.ListByUser(gctx, uid, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		blocks, err = s.availability.ListByUser(gctx, uid, input.Date, input.Date)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, mapLoadError(err)
	}

	var blocked []string
	for _, b := range blocks {
		if !b.Available {
			blocked = append(blocked, b.Date)
		}
	}

	result := Detect(Input{
		Candidate: Candidate{Date: input.Date, Type: input.Type},
		User:      *user,
		Shifts:    shifts,
		Blocked:   blocked,
	})
	return s.localize(ctx, uid, input, result), nil
}

func (s *service) localize(ctx context.Context, uid string, input CheckInput, result Result) *Report {
	report := &Report{
		Date:      input.Date,
		Type:      input.Type,
		UserID:    uid,
		Severity:  result.Severity,
		Conflicts: make([]Finding, 0, len(result.Conflicts)),
	}
	for _, c := range result.Conflicts {
		report.Conflicts = append(report.Conflicts, Finding{
			Code:    c.Code,
			Message: s.translator.T(ctx, c.MessageID(), c.Params),
		})
	}
	if result.Summary != "" {
		report.Message = s.translator.T(ctx, result.Summary, nil)
	}
	return report
}

func mapLoadError(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	case errors.Is(err, db.ErrSchemaMismatch):
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stored document is invalid")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conflict context")
}
