package recommendations

import (
	"context"
	"errors"
	"time"

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
	ListRange(ctx context.Context, from, to string) ([]models.Shift, error)
}

type availabilityLister interface {
	ListByUser(ctx context.Context, userID, from, to string) ([]models.UserAvailability, error)
}

// Translator renders catalog messages in the request locale.
type Translator interface {
	T(ctx context.Context, messageID string, data map[string]any) string
}

// Item is a localized recommendation.
type Item struct {
	Date      string          `json:"date"`
	Type      enums.ShiftType `json:"type"`
	Weekday   string          `json:"weekday"`
	Score     int             `json:"score"`
	Urgency   enums.Urgency   `json:"urgency"`
	Assignees int             `json:"assignees"`
	Reasons   []string        `json:"reasons"`
}

// Service ranks open slots for the caller.
type Service interface {
	ForUser(ctx context.Context, actor auth.Actor, userID string) ([]Item, error)
}

type service struct {
	users        userReader
	shifts       shiftLister
	availability availabilityLister
	translator   Translator
	loc          *time.Location
	now          func() time.Time
}

// NewService wires the recommendation service.
func NewService(users userReader, shifts shiftLister, availability availabilityLister, translator Translator, loc *time.Location) (Service, error) {
	if users == nil || shifts == nil || availability == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "recommendation repositories required")
	}
	if translator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "translator required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &service{users: users, shifts: shifts, availability: availability, translator: translator, loc: loc, now: time.Now}, nil
}

func (s *service) ForUser(ctx context.Context, actor auth.Actor, userID string) ([]Item, error) {
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot view recommendations for another user")
	}

	today := dates.Today(s.now(), s.loc)
	from, to := today, dates.MustAddDays(today, Horizon+1)

	var (
		user   *models.User
		shifts []models.Shift
		blocks []models.UserAvailability
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.users.Get(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		shifts, err = s.shifts.ListRange(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		blocks, err = s.availability.ListByUser(gctx, userID, from, to)
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

	recs := Recommend(Input{User: *user, Shifts: shifts, Blocked: blocked, Today: today})
	items := make([]Item, 0, len(recs))
	for _, r := range recs {
		reasons := make([]string, 0, len(r.Reasons))
		for _, reason := range r.Reasons {
			reasons = append(reasons, s.translator.T(ctx, reason.MessageID, reason.Params))
		}
		items = append(items, Item{
			Date:      r.Date,
			Type:      r.Type,
			Weekday:   r.Weekday,
			Score:     r.Score,
			Urgency:   r.Urgency,
			Assignees: r.Assignees,
			Reasons:   reasons,
		})
	}
	return items, nil
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
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recommendation context")
}
