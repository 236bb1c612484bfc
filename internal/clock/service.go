package clock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

type entryStore interface {
	OpenForUserTx(tx *firestore.Transaction, userID string) ([]models.ClockEntry, error)
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]models.ClockEntry, error)
	CreateTx(tx *firestore.Transaction, entry *models.ClockEntry) error
	UpdateTx(tx *firestore.Transaction, entry models.ClockEntry) error
}

type shiftReader interface {
	GetTx(tx *firestore.Transaction, id string) (*models.Shift, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn db.TxFunc) error
}

// ClockInInput names the shift being worked.
type ClockInInput struct {
	ShiftID string `json:"shiftId" validate:"required"`
}

// ListParams filters entries. From and To are YYYY-MM-DD days in the service
// location; To is inclusive.
type ListParams struct {
	UserID string
	From   string
	To     string
}

// Service records attendance.
type Service interface {
	ClockIn(ctx context.Context, actor auth.Actor, input ClockInInput) (*models.ClockEntry, error)
	ClockOut(ctx context.Context, actor auth.Actor) (*models.ClockEntry, error)
	List(ctx context.Context, actor auth.Actor, params ListParams) ([]models.ClockEntry, error)
}

// ServiceParams groups the service dependencies.
type ServiceParams struct {
	Repo     entryStore
	Shifts   shiftReader
	Tx       txRunner
	Activity activity.Recorder
	Location *time.Location
}

type service struct {
	repo     entryStore
	shifts   shiftReader
	tx       txRunner
	activity activity.Recorder
	loc      *time.Location
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "clock repository required")
	}
	if params.Shifts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
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
		repo:     params.Repo,
		shifts:   params.Shifts,
		tx:       params.Tx,
		activity: recorder,
		loc:      loc,
		now:      time.Now,
	}, nil
}

// ClockIn opens an entry for a shift the caller holds. Only shifts dated
// today or yesterday qualify, so a Night shift can be clocked after
// midnight. At most one entry per user is open at a time.
func (s *service) ClockIn(ctx context.Context, actor auth.Actor, input ClockInInput) (*models.ClockEntry, error) {
	shiftID := strings.TrimSpace(input.ShiftID)
	if shiftID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shiftId is required")
	}
	now := s.now()
	today := dates.Today(now, s.loc)
	yesterday := dates.MustAddDays(today, -1)

	var entry models.ClockEntry
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		shift, err := s.shifts.GetTx(tx, shiftID)
		if err != nil {
			return err
		}
		open, err := s.repo.OpenForUserTx(tx, actor.UserID)
		if err != nil {
			return err
		}
		if shift.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you can only clock in to your own shift")
		}
		if shift.Date != today && shift.Date != yesterday {
			return pkgerrors.New(pkgerrors.CodeValidation, "shift is not scheduled for today")
		}
		if len(open) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "already clocked in").
				WithDetails(map[string]any{"entryId": open[0].ID, "shiftId": open[0].ShiftID})
		}
		entry = models.ClockEntry{
			ShiftID: shift.ID,
			UserID:  actor.UserID,
			ClockIn: now.UTC(),
		}
		return s.repo.CreateTx(tx, &entry)
	})
	if err != nil {
		return nil, mapStoreError(err, "clock in")
	}

	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityClockIn,
		Action:  "Clocked in",
		Details: entry.ShiftID,
	})
	return &entry, nil
}

// ClockOut closes the caller's open entry and stores the worked hours.
func (s *service) ClockOut(ctx context.Context, actor auth.Actor) (*models.ClockEntry, error) {
	var entry models.ClockEntry
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		open, err := s.repo.OpenForUserTx(tx, actor.UserID)
		if err != nil {
			return err
		}
		if len(open) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "not clocked in")
		}
		entry = open[0]
		out := s.now().UTC()
		entry.ClockOut = &out
		entry.ActualHours = Hours(entry.ClockIn, out).InexactFloat64()
		return s.repo.UpdateTx(tx, entry)
	})
	if err != nil {
		return nil, mapStoreError(err, "clock out")
	}

	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityClockOut,
		Action:  fmt.Sprintf("Clocked out after %.2f hours", entry.ActualHours),
		Details: entry.ShiftID,
	})
	return &entry, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) ([]models.ClockEntry, error) {
	userID := strings.TrimSpace(params.UserID)
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot view another user's clock entries")
	}

	var from, to time.Time
	if params.From != "" {
		t, err := dates.Parse(params.From)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "from must be YYYY-MM-DD")
		}
		from = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
	}
	if params.To != "" {
		t, err := dates.Parse(params.To)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "to must be YYYY-MM-DD")
		}
		to = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, s.loc)
	}

	rows, err := s.repo.ListByUser(ctx, userID, from, to)
	if err != nil {
		return nil, mapStoreError(err, "list clock entries")
	}
	if rows == nil {
		rows = []models.ClockEntry{}
	}
	return rows, nil
}

// Hours is the elapsed time between in and out rounded to two places.
func Hours(in, out time.Time) decimal.Decimal {
	if !out.After(in) {
		return decimal.Zero
	}
	seconds := decimal.NewFromInt(int64(out.Sub(in) / time.Second))
	return seconds.Div(decimal.NewFromInt(3600)).Round(2)
}

func mapStoreError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "shift not found")
	case errors.Is(err, db.ErrSchemaMismatch):
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action+": stored document is invalid")
	case db.IsContention(err):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, action+": concurrent update, retry")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
