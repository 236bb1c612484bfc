package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

type requestStore interface {
	GetTx(tx *firestore.Transaction, id string) (*models.LeaveRequest, error)
	List(ctx context.Context, userID string, status enums.LeaveStatus) ([]models.LeaveRequest, error)
	ListForDateTx(tx *firestore.Transaction, userID, date string) ([]models.LeaveRequest, error)
	CreateTx(tx *firestore.Transaction, req *models.LeaveRequest) error
	UpdateTx(tx *firestore.Transaction, req models.LeaveRequest) error
}

type blockWriter interface {
	CreateTx(tx *firestore.Transaction, entry *models.UserAvailability) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn db.TxFunc) error
}

// CreateInput requests a day off for the caller.
type CreateInput struct {
	Date   string `json:"date" validate:"required,ymd"`
	Reason string `json:"reason" validate:"max=500"`
}

// ReviewInput is the admin decision.
type ReviewInput struct {
	Status enums.LeaveStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Note   string            `json:"note" validate:"max=500"`
}

// ListParams filters listings. Non-admins only ever see their own requests.
type ListParams struct {
	UserID string
	Status string
}

// Service manages leave requests.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.LeaveRequest, error)
	List(ctx context.Context, actor auth.Actor, params ListParams) ([]models.LeaveRequest, error)
	Review(ctx context.Context, actor auth.Actor, id string, input ReviewInput) (*models.LeaveRequest, error)
}

// ServiceParams groups the service dependencies.
type ServiceParams struct {
	Repo         requestStore
	Availability blockWriter
	Tx           txRunner
	Activity     activity.Recorder
	Location     *time.Location
}

type service struct {
	repo         requestStore
	availability blockWriter
	tx           txRunner
	activity     activity.Recorder
	loc          *time.Location
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "leave repository required")
	}
	if params.Availability == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "availability repository required")
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
		repo:         params.Repo,
		availability: params.Availability,
		tx:           params.Tx,
		activity:     recorder,
		loc:          loc,
		now:          time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.LeaveRequest, error) {
	if !dates.Valid(input.Date) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD")
	}
	if input.Date < dates.Today(s.now(), s.loc) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "leave cannot be requested for a past date")
	}

	req := &models.LeaveRequest{
		UserID:    actor.UserID,
		Date:      input.Date,
		Reason:    strings.TrimSpace(input.Reason),
		Status:    enums.LeaveStatusPending,
		CreatedAt: s.now().UTC(),
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := s.repo.ListForDateTx(tx, actor.UserID, input.Date)
		if err != nil {
			return err
		}
		for _, other := range existing {
			if other.Status != enums.LeaveStatusRejected {
				return pkgerrors.New(pkgerrors.CodeConflict, "leave already requested for this date").
					WithDetails(map[string]any{"leaveId": other.ID, "status": other.Status})
			}
		}
		return s.repo.CreateTx(tx, req)
	})
	if err != nil {
		return nil, mapStoreError(err, "create leave request")
	}

	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityLeaveRequested,
		Action:  "Requested leave",
		Details: req.Date,
	})
	return req, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) ([]models.LeaveRequest, error) {
	var status enums.LeaveStatus
	if raw := strings.TrimSpace(params.Status); raw != "" {
		parsed, err := enums.ParseLeaveStatus(strings.ToUpper(raw))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		status = parsed
	}
	userID := strings.TrimSpace(params.UserID)
	if !actor.Admin() {
		if userID != "" && userID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot view another user's leave")
		}
		userID = actor.UserID
	}

	rows, err := s.repo.List(ctx, userID, status)
	if err != nil {
		return nil, mapStoreError(err, "list leave requests")
	}
	if rows == nil {
		rows = []models.LeaveRequest{}
	}
	return rows, nil
}

// Review resolves a pending request once. Approval blocks the day for the
// requester in the same transaction.
func (s *service) Review(ctx context.Context, actor auth.Actor, id string, input ReviewInput) (*models.LeaveRequest, error) {
	if !actor.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.Status != enums.LeaveStatusApproved && input.Status != enums.LeaveStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be APPROVED or REJECTED")
	}

	var reviewed models.LeaveRequest
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		req, err := s.repo.GetTx(tx, id)
		if err != nil {
			return err
		}
		if req.Status != enums.LeaveStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "leave request already reviewed").
				WithDetails(map[string]any{"status": req.Status})
		}
		now := s.now().UTC()
		req.Status = input.Status
		req.ReviewedBy = actor.UserID
		req.ReviewNote = strings.TrimSpace(input.Note)
		req.ReviewedAt = &now
		if err := s.repo.UpdateTx(tx, *req); err != nil {
			return err
		}
		if input.Status == enums.LeaveStatusApproved {
			block := &models.UserAvailability{
				UserID:    req.UserID,
				Date:      req.Date,
				Available: false,
				Reason:    "Approved leave",
				CreatedBy: actor.UserID,
				CreatedAt: now,
			}
			if err := s.availability.CreateTx(tx, block); err != nil {
				return err
			}
		}
		reviewed = *req
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "review leave request")
	}

	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityLeaveReviewed,
		Action:  fmt.Sprintf("%s leave for %s", strings.ToLower(string(reviewed.Status)), reviewed.UserID),
		Details: reviewed.Date,
	})
	return &reviewed, nil
}

func mapStoreError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "leave request not found")
	case errors.Is(err, db.ErrSchemaMismatch):
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action+": stored document is invalid")
	case db.IsContention(err):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, action+": concurrent update, retry")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
