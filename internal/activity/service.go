package activity

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
	"github.com/angelmondragon/socshift-backend/pkg/events"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
	"github.com/angelmondragon/socshift-backend/pkg/pagination"
)

type entryStore interface {
	Create(ctx context.Context, entry *models.ActivityLogEntry) error
	List(ctx context.Context, params listParams) ([]models.ActivityLogEntry, *pagination.Cursor, error)
}

type envelopePublisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

// Service records and lists activity log entries.
type Service interface {
	Recorder
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

// ListParams filters the admin activity listing.
type ListParams struct {
	Limit  int
	Cursor string
	Type   string
	UserID string
}

// ListResult is one page of activity entries.
type ListResult struct {
	Items  []models.ActivityLogEntry `json:"items"`
	Cursor string                    `json:"cursor"`
}

type service struct {
	repo      entryStore
	publisher envelopePublisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the activity log. publisher may be nil when Pub/Sub is disabled.
func NewService(repo entryStore, publisher envelopePublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:      repo,
		publisher: publisher,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) Record(ctx context.Context, entry Entry) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"activity_type": string(entry.Type),
		"actor_id":      entry.Actor.UserID,
	})
	if !entry.Type.IsValid() || strings.TrimSpace(entry.Action) == "" {
		s.logg.Warn(logCtx, "activity.invalid_entry")
		return
	}

	row := &models.ActivityLogEntry{
		UserID:    entry.Actor.UserID,
		UserName:  entry.Actor.DisplayName(),
		Action:    entry.Action,
		Details:   entry.Details,
		Type:      entry.Type,
		Timestamp: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logg.Error(logCtx, "activity.record_failed", err)
		return
	}

	if s.publisher == nil {
		return
	}
	env, err := events.NewEnvelope(EventType, row.Timestamp, &events.ActorRef{UserID: row.UserID, Name: row.UserName}, Event{
		EntryID:   row.ID,
		UserID:    row.UserID,
		UserName:  row.UserName,
		Action:    row.Action,
		Details:   row.Details,
		Type:      row.Type,
		Timestamp: row.Timestamp,
	})
	if err != nil {
		s.logg.Error(logCtx, "activity.envelope_failed", err)
		return
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		s.logg.Error(s.logg.WithField(logCtx, "event_id", env.EventID.String()), "activity.publish_failed", err)
	}
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listParams{
		Limit:  pagination.LimitWithBuffer(params.Limit),
		UserID: strings.TrimSpace(params.UserID),
	}
	if raw := strings.TrimSpace(params.Type); raw != "" {
		t, err := enums.ParseActivityType(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid activity type")
		}
		query.Type = t
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activity")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	if rows == nil {
		rows = []models.ActivityLogEntry{}
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}
