package notes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

// MaxContentLength bounds a note body in characters.
const MaxContentLength = 2000

type noteStore interface {
	Get(ctx context.Context, id string) (*models.ShiftNote, error)
	ListByShift(ctx context.Context, shiftID string) ([]models.ShiftNote, error)
	Create(ctx context.Context, note *models.ShiftNote) error
	Delete(ctx context.Context, id string) error
}

type shiftReader interface {
	Get(ctx context.Context, id string) (*models.Shift, error)
}

// CreateInput is the note body.
type CreateInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// Service manages append-only shift notes.
type Service interface {
	Add(ctx context.Context, actor auth.Actor, shiftID string, input CreateInput) (*models.ShiftNote, error)
	List(ctx context.Context, shiftID string) ([]models.ShiftNote, error)
	Delete(ctx context.Context, actor auth.Actor, id string) error
}

type service struct {
	repo     noteStore
	shifts   shiftReader
	activity activity.Recorder
	now      func() time.Time
}

func NewService(repo noteStore, shifts shiftReader, recorder activity.Recorder) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "note repository required")
	}
	if shifts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift repository required")
	}
	if recorder == nil {
		recorder = activity.Nop{}
	}
	return &service{repo: repo, shifts: shifts, activity: recorder, now: time.Now}, nil
}

func (s *service) Add(ctx context.Context, actor auth.Actor, shiftID string, input CreateInput) (*models.ShiftNote, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	}
	if len([]rune(content)) > MaxContentLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is too long")
	}
	shift, err := s.shifts.Get(ctx, shiftID)
	if err != nil {
		return nil, mapStoreError(err, "load shift")
	}

	note := &models.ShiftNote{
		ShiftID:   shift.ID,
		AuthorID:  actor.UserID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, mapStoreError(err, "create note")
	}
	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityNoteAdded,
		Action:  "Added a note to " + string(shift.Type) + " shift",
		Details: shift.Date,
	})
	return note, nil
}

func (s *service) List(ctx context.Context, shiftID string) ([]models.ShiftNote, error) {
	if _, err := s.shifts.Get(ctx, shiftID); err != nil {
		return nil, mapStoreError(err, "load shift")
	}
	rows, err := s.repo.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, mapStoreError(err, "list notes")
	}
	if rows == nil {
		rows = []models.ShiftNote{}
	}
	return rows, nil
}

// Delete removes a note. Only its author may do so.
func (s *service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	note, err := s.repo.Get(ctx, id)
	if err != nil {
		return mapStoreError(err, "load note")
	}
	if note.AuthorID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the author can delete a note")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "delete note")
	}
	return nil
}

func mapStoreError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, action+": not found")
	case errors.Is(err, db.ErrSchemaMismatch):
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action+": stored document is invalid")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
