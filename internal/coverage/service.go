package coverage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

// Lookahead windows the dashboard offers.
const (
	WeekLookahead      = 7
	FortnightLookahead = 14
)

type shiftLister interface {
	ListRange(ctx context.Context, from, to string) ([]models.Shift, error)
}

// Service computes coverage from today forward.
type Service interface {
	Snapshot(ctx context.Context, lookahead int) (Report, error)
}

type service struct {
	shifts shiftLister
	loc    *time.Location
	now    func() time.Time
}

// NewService wires the coverage service. loc decides what "today" is.
func NewService(shifts shiftLister, loc *time.Location) (Service, error) {
	if shifts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &service{shifts: shifts, loc: loc, now: time.Now}, nil
}

func (s *service) Snapshot(ctx context.Context, lookahead int) (Report, error) {
	if lookahead == 0 {
		lookahead = WeekLookahead
	}
	if lookahead != WeekLookahead && lookahead != FortnightLookahead {
		return Report{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("lookahead must be %d or %d", WeekLookahead, FortnightLookahead))
	}

	today := dates.Today(s.now(), s.loc)
	start, _ := dates.Parse(today)
	end := dates.MustAddDays(today, lookahead-1)

	rows, err := s.shifts.ListRange(ctx, today, end)
	if err != nil {
		if errors.Is(err, db.ErrSchemaMismatch) {
			return Report{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stored shift is invalid")
		}
		return Report{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shifts")
	}
	return Aggregate(rows, start, lookahead), nil
}
