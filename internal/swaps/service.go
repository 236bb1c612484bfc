// Package swaps implements the shift swap lifecycle. A swap starts PENDING
// and is resolved exactly once: the first accept or reject to commit wins and
// every later attempt fails with STATE_CONFLICT.
package swaps

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

type swapStore interface {
	GetTx(tx *firestore.Transaction, id string) (*models.SwapRequest, error)
	List(ctx context.Context, status enums.SwapStatus) ([]models.SwapRequest, error)
	ListPendingForShiftTx(tx *firestore.Transaction, shiftID string) ([]models.SwapRequest, error)
	CreateTx(tx *firestore.Transaction, swap *models.SwapRequest) error
	UpdateTx(tx *firestore.Transaction, swap models.SwapRequest) error
}

type shiftStore interface {
	GetTx(tx *firestore.Transaction, id string) (*models.Shift, error)
	UpdateTx(tx *firestore.Transaction, shift models.Shift) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn db.TxFunc) error
}

// CreateInput offers one of the caller's shifts. RecipientID restricts who
// may accept.
type CreateInput struct {
	ShiftID     string `json:"shiftId" validate:"required"`
	RecipientID string `json:"recipientId"`
	Reason      string `json:"reason" validate:"max=500"`
}

// ListParams filters listings by status.
type ListParams struct {
	Status string
}

// Service manages swap requests.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.SwapRequest, error)
	List(ctx context.Context, actor auth.Actor, params ListParams) ([]models.SwapRequest, error)
	Accept(ctx context.Context, actor auth.Actor, id string) (*models.SwapRequest, error)
	Reject(ctx context.Context, actor auth.Actor, id string) (*models.SwapRequest, error)
}

// ServiceParams groups the service dependencies.
type ServiceParams struct {
	Repo     swapStore
	Shifts   shiftStore
	Tx       txRunner
	Activity activity.Recorder
	Location *time.Location
}

type service struct {
	repo     swapStore
	shifts   shiftStore
	tx       txRunner
	activity activity.Recorder
	loc      *time.Location
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "swap repository required")
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

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.SwapRequest, error) {
	shiftID := strings.TrimSpace(input.ShiftID)
	if shiftID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shiftId is required")
	}
	recipient := strings.TrimSpace(input.RecipientID)
	if recipient == actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot offer a shift to yourself")
	}
	today := dates.Today(s.now(), s.loc)

	var swap models.SwapRequest
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		shift, err := s.shifts.GetTx(tx, shiftID)
		if err != nil {
			return err
		}
		pending, err := s.repo.ListPendingForShiftTx(tx, shiftID)
		if err != nil {
			return err
		}
		if shift.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you can only offer shifts you hold")
		}
		if shift.Date < today {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot swap a past shift")
		}
		if len(pending) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "a swap is already pending for this shift").
				WithDetails(map[string]any{"swapId": pending[0].ID})
		}
		swap = models.SwapRequest{
			RequesterID: actor.UserID,
			ShiftID:     shift.ID,
			ShiftDate:   shift.Date,
			ShiftType:   shift.Type,
			RecipientID: recipient,
			Status:      enums.SwapStatusPending,
			Reason:      strings.TrimSpace(input.Reason),
			CreatedAt:   s.now().UTC(),
		}
		return s.repo.CreateTx(tx, &swap)
	})
	if err != nil {
		return nil, mapStoreError(err, "create swap request")
	}

	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivitySwapRequested,
		Action:  fmt.Sprintf("Offered %s shift for swap", swap.ShiftType),
		Details: swap.ShiftDate,
	})
	return &swap, nil
}

// List returns every swap to admins. Other users see swaps they requested,
// swaps addressed to them and open offers.
func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) ([]models.SwapRequest, error) {
	var status enums.SwapStatus
	if raw := strings.TrimSpace(params.Status); raw != "" {
		parsed, err := enums.ParseSwapStatus(strings.ToUpper(raw))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		status = parsed
	}
	rows, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, mapStoreError(err, "list swap requests")
	}
	out := make([]models.SwapRequest, 0, len(rows))
	for _, swap := range rows {
		if actor.Admin() || visibleTo(swap, actor.UserID) {
			out = append(out, swap)
		}
	}
	return out, nil
}

func visibleTo(swap models.SwapRequest, userID string) bool {
	switch {
	case swap.RequesterID == userID, swap.RecipientID == userID, swap.ResolvedBy == userID:
		return true
	case swap.RecipientID == "" && swap.Status == enums.SwapStatusPending:
		return true
	}
	return false
}

// Accept hands the shift to the caller. The swap and the shift are re-read
// inside the transaction; a swap that is no longer pending, or a shift that
// the requester no longer holds, fails with STATE_CONFLICT.
func (s *service) Accept(ctx context.Context, actor auth.Actor, id string) (*models.SwapRequest, error) {
	var resolved models.SwapRequest
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		swap, err := s.repo.GetTx(tx, id)
		if err != nil {
			return err
		}
		if err := pendingOnly(swap); err != nil {
			return err
		}
		if swap.RequesterID == actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cannot accept your own swap request")
		}
		if swap.RecipientID != "" && swap.RecipientID != actor.UserID && !actor.Admin() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "swap is addressed to another user")
		}
		shift, err := s.shifts.GetTx(tx, swap.ShiftID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "shift no longer exists")
			}
			return err
		}
		if shift.UserID != swap.RequesterID {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shift is no longer held by the requester")
		}

		now := s.now().UTC()
		shift.UserID = actor.UserID
		shift.UpdatedAt = now
		if err := s.shifts.UpdateTx(tx, *shift); err != nil {
			return err
		}
		swap.Status = enums.SwapStatusAccepted
		swap.ResolvedBy = actor.UserID
		swap.ResolvedAt = &now
		if err := s.repo.UpdateTx(tx, *swap); err != nil {
			return err
		}
		resolved = *swap
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "accept swap request")
	}

	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivitySwapAccepted,
		Action:  fmt.Sprintf("Took over %s shift from %s", resolved.ShiftType, resolved.RequesterID),
		Details: resolved.ShiftDate,
	})
	return &resolved, nil
}

// Reject closes the swap without touching the shift.
func (s *service) Reject(ctx context.Context, actor auth.Actor, id string) (*models.SwapRequest, error) {
	var resolved models.SwapRequest
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		swap, err := s.repo.GetTx(tx, id)
		if err != nil {
			return err
		}
		if err := pendingOnly(swap); err != nil {
			return err
		}
		if !actor.Admin() {
			if swap.RequesterID == actor.UserID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "cannot reject your own swap request")
			}
			if swap.RecipientID != "" && swap.RecipientID != actor.UserID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "swap is addressed to another user")
			}
		}
		now := s.now().UTC()
		swap.Status = enums.SwapStatusRejected
		swap.ResolvedBy = actor.UserID
		swap.ResolvedAt = &now
		if err := s.repo.UpdateTx(tx, *swap); err != nil {
			return err
		}
		resolved = *swap
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "reject swap request")
	}

	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivitySwapRejected,
		Action:  fmt.Sprintf("Rejected swap of %s shift from %s", resolved.ShiftType, resolved.RequesterID),
		Details: resolved.ShiftDate,
	})
	return &resolved, nil
}

func pendingOnly(swap *models.SwapRequest) error {
	if swap.Status == enums.SwapStatusPending {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "swap request already resolved").
		WithDetails(map[string]any{"status": swap.Status, "resolvedBy": swap.ResolvedBy})
}

func mapStoreError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "swap request or shift not found")
	case errors.Is(err, db.ErrSchemaMismatch):
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action+": stored document is invalid")
	case db.IsContention(err):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, action+": concurrent update, retry")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
