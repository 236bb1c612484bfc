package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

type entryStore interface {
	Get(ctx context.Context, id string) (*models.UserAvailability, error)
	ListByUser(ctx context.Context, userID, from, to string) ([]models.UserAvailability, error)
	ListRange(ctx context.Context, from, to string) ([]models.UserAvailability, error)
	Create(ctx context.Context, entry *models.UserAvailability) error
	Delete(ctx context.Context, id string) error
}

// CreateInput marks a day for a user. UserID defaults to the caller; only
// admins may set it for someone else. Available defaults to false.
type CreateInput struct {
	UserID    string `json:"userId"`
	Date      string `json:"date" validate:"required,ymd"`
	Available *bool  `json:"available"`
	Reason    string `json:"reason" validate:"max=500"`
}

// ListParams filters listings. Non-admins always see their own entries.
type ListParams struct {
	UserID string
	From   string
	To     string
}

// Service manages availability blocks.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.UserAvailability, error)
	Delete(ctx context.Context, actor auth.Actor, id string) error
	List(ctx context.Context, actor auth.Actor, params ListParams) ([]models.UserAvailability, error)
}

type service struct {
	repo     entryStore
	activity activity.Recorder
	now      func() time.Time
}

func NewService(repo entryStore, recorder activity.Recorder) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "availability repository required")
	}
	if recorder == nil {
		recorder = activity.Nop{}
	}
	return &service{repo: repo, activity: recorder, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.UserAvailability, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot change another user's availability")
	}
	if !dates.Valid(input.Date) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD")
	}

	entry := &models.UserAvailability{
		UserID:    userID,
		Date:      input.Date,
		Available: input.Available != nil && *input.Available,
		Reason:    strings.TrimSpace(input.Reason),
		CreatedBy: actor.UserID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, mapStoreError(err, "create availability")
	}

	state := "unavailable"
	if entry.Available {
		state = "available"
	}
	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityAvailabilityChanged,
		Action:  fmt.Sprintf("Marked %s %s", userID, state),
		Details: entry.Date,
	})
	return entry, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return mapStoreError(err, "load availability")
	}
	if entry.UserID != actor.UserID && !actor.Admin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot change another user's availability")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "delete availability")
	}
	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityAvailabilityChanged,
		Action:  fmt.Sprintf("Removed availability entry for %s", entry.UserID),
		Details: entry.Date,
	})
	return nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) ([]models.UserAvailability, error) {
	for _, d := range []string{params.From, params.To} {
		if d != "" && !dates.Valid(d) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "dates must be YYYY-MM-DD")
		}
	}
	userID := strings.TrimSpace(params.UserID)
	if !actor.Admin() {
		if userID != "" && userID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot view another user's availability")
		}
		userID = actor.UserID
	}

	var (
		rows []models.UserAvailability
		err  error
	)
	if userID != "" {
		rows, err = s.repo.ListByUser(ctx, userID, params.From, params.To)
	} else {
		rows, err = s.repo.ListRange(ctx, params.From, params.To)
	}
	if err != nil {
		return nil, mapStoreError(err, "list availability")
	}
	if rows == nil {
		rows = []models.UserAvailability{}
	}
	return rows, nil
}

// Blocked groups unavailable days by user id.
func Blocked(entries []models.UserAvailability) map[string][]string {
	out := map[string][]string{}
	for _, e := range entries {
		if !e.Available {
			out[e.UserID] = append(out[e.UserID], e.Date)
		}
	}
	return out
}

func mapStoreError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "availability entry not found")
	case errors.Is(err, db.ErrSchemaMismatch):
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action+": stored document is invalid")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
