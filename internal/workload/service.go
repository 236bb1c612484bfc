package workload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

// MaxDays bounds one report.
const MaxDays = 92

type shiftLister interface {
	ListRange(ctx context.Context, from, to string) ([]models.Shift, error)
}

type userLister interface {
	List(ctx context.Context) ([]models.User, error)
}

type entryLister interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.ClockEntry, error)
}

type configReader interface {
	Get(ctx context.Context) (models.ShiftConfiguration, error)
}

// Params selects the window. By default it covers the four Monday-Sunday
// weeks ending with the current one.
type Params struct {
	From   string
	To     string
	UserID string
}

// Report is the workload response.
type Report struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Users []Stats `json:"users"`
}

type Service interface {
	Stats(ctx context.Context, actor auth.Actor, params Params) (*Report, error)
}

type ServiceParams struct {
	Shifts   shiftLister
	Users    userLister
	Entries  entryLister
	Config   configReader
	Location *time.Location
}

type service struct {
	shifts  shiftLister
	users   userLister
	entries entryLister
	config  configReader
	loc     *time.Location
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Shifts == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift repository required")
	case params.Users == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user repository required")
	case params.Entries == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "clock repository required")
	case params.Config == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift configuration required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		shifts:  params.Shifts,
		users:   params.Users,
		entries: params.Entries,
		config:  params.Config,
		loc:     loc,
		now:     time.Now,
	}, nil
}

// Stats reports workload per user. Non-admins only ever see themselves.
func (s *service) Stats(ctx context.Context, actor auth.Actor, params Params) (*Report, error) {
	uid := strings.TrimSpace(params.UserID)
	if !actor.Admin() {
		if uid != "" && uid != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot view another user's workload")
		}
		uid = actor.UserID
	}

	today := dates.Today(s.now(), s.loc)
	from, to, err := s.window(today, params.From, params.To)
	if err != nil {
		return nil, err
	}
	first, _ := dates.Parse(from)
	last, _ := dates.Parse(to)
	entryFrom := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, s.loc)
	entryTo := time.Date(last.Year(), last.Month(), last.Day()+1, 0, 0, 0, 0, s.loc)

	var in Input
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Shifts, err = s.shifts.ListRange(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		in.Users, err = s.users.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		in.Entries, err = s.entries.ListBetween(gctx, entryFrom, entryTo)
		return err
	})
	g.Go(func() (err error) {
		in.Config, err = s.config.Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, mapStoreError(err, "load workload data")
	}
	in.Today = today

	if uid != "" {
		in = onlyUser(in, uid)
	}
	return &Report{From: from, To: to, Users: Compute(in)}, nil
}

func (s *service) window(today, from, to string) (string, string, error) {
	if to == "" {
		week, _ := dates.WeekStart(today)
		to = dates.MustAddDays(week, 6)
	}
	if !dates.Valid(to) {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "to must be YYYY-MM-DD")
	}
	if from == "" {
		from = dates.MustAddDays(to, -27)
	}
	days, err := dates.Between(from, to)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date range")
	}
	if len(days) > MaxDays {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("workload reports are limited to %d days", MaxDays))
	}
	return from, to, nil
}

func onlyUser(in Input, uid string) Input {
	out := Input{Config: in.Config, Today: in.Today}
	for _, u := range in.Users {
		if u.ID == uid {
			out.Users = append(out.Users, u)
		}
	}
	for _, sh := range in.Shifts {
		if sh.UserID == uid {
			out.Shifts = append(out.Shifts, sh)
		}
	}
	for _, e := range in.Entries {
		if e.UserID == uid {
			out.Entries = append(out.Entries, e)
		}
	}
	return out
}

func mapStoreError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, db.ErrSchemaMismatch) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action+": stored document is invalid")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
