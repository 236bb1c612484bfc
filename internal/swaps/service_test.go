package swaps

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

var (
	admin = auth.Actor{UserID: "admin", IsAdmin: true}
	ana   = auth.Actor{UserID: "u1", Name: "Ana", Role: enums.UserRoleAnalyst}
	ben   = auth.Actor{UserID: "u2", Name: "Ben", Role: enums.UserRoleAnalyst}
	cy    = auth.Actor{UserID: "u3", Name: "Cy", Role: enums.UserRoleAnalyst}
)

// store keeps swaps and shifts in memory. serialTx runs one transaction at a
// time, which is the isolation Firestore gives conflicting transactions.
type store struct {
	swaps  map[string]models.SwapRequest
	shifts map[string]models.Shift
	next   int
}

func newStore() *store {
	return &store{
		swaps: map[string]models.SwapRequest{},
		shifts: map[string]models.Shift{
			"s1":   {ID: "s1", Date: "2026-03-05", Type: enums.ShiftTypeNight, UserID: "u1"},
			"past": {ID: "past", Date: "2026-03-01", Type: enums.ShiftTypeMorning, UserID: "u1"},
		},
	}
}

type swapRepo struct{ *store }

func (r swapRepo) GetTx(tx *firestore.Transaction, id string) (*models.SwapRequest, error) {
	s, ok := r.swaps[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &s, nil
}

func (r swapRepo) List(ctx context.Context, status enums.SwapStatus) ([]models.SwapRequest, error) {
	var out []models.SwapRequest
	for _, s := range r.swaps {
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r swapRepo) ListPendingForShiftTx(tx *firestore.Transaction, shiftID string) ([]models.SwapRequest, error) {
	var out []models.SwapRequest
	for _, s := range r.swaps {
		if s.ShiftID == shiftID && s.Status == enums.SwapStatusPending {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r swapRepo) CreateTx(tx *firestore.Transaction, swap *models.SwapRequest) error {
	r.next++
	swap.ID = fmt.Sprintf("w%d", r.next)
	r.swaps[swap.ID] = *swap
	return nil
}

func (r swapRepo) UpdateTx(tx *firestore.Transaction, swap models.SwapRequest) error {
	r.swaps[swap.ID] = swap
	return nil
}

type shiftRepo struct{ *store }

func (r shiftRepo) GetTx(tx *firestore.Transaction, id string) (*models.Shift, error) {
	s, ok := r.shifts[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &s, nil
}

func (r shiftRepo) UpdateTx(tx *firestore.Transaction, shift models.Shift) error {
	r.shifts[shift.ID] = shift
	return nil
}

type serialTx struct{ mu *sync.Mutex }

func (t serialTx) WithTx(ctx context.Context, fn db.TxFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx, nil)
}

func newTestService(t *testing.T, st *store) *service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   swapRepo{st},
		Shifts: shiftRepo{st},
		Tx:     serialTx{mu: &sync.Mutex{}},
	})
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return impl
}

func TestCreateSwap(t *testing.T) {
	st := newStore()
	svc := newTestService(t, st)

	swap, err := svc.Create(context.Background(), ana, CreateInput{ShiftID: "s1", Reason: "wedding"})
	require.NoError(t, err)
	assert.Equal(t, enums.SwapStatusPending, swap.Status)
	assert.Equal(t, "2026-03-05", swap.ShiftDate)
	assert.Equal(t, enums.ShiftTypeNight, swap.ShiftType)

	_, err = svc.Create(context.Background(), ana, CreateInput{ShiftID: "s1"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
}

func TestCreateSwapGuards(t *testing.T) {
	svc := newTestService(t, newStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, ben, CreateInput{ShiftID: "s1"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	_, err = svc.Create(ctx, ana, CreateInput{ShiftID: "past"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, ana, CreateInput{ShiftID: "s1", RecipientID: "u1"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, ana, CreateInput{ShiftID: "missing"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestAcceptReassignsShift(t *testing.T) {
	st := newStore()
	svc := newTestService(t, st)
	swap, err := svc.Create(context.Background(), ana, CreateInput{ShiftID: "s1"})
	require.NoError(t, err)

	got, err := svc.Accept(context.Background(), ben, swap.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.SwapStatusAccepted, got.Status)
	assert.Equal(t, "u2", got.ResolvedBy)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, "u2", st.shifts["s1"].UserID)
}

func TestSecondResolutionIsStateConflict(t *testing.T) {
	st := newStore()
	svc := newTestService(t, st)
	swap, err := svc.Create(context.Background(), ana, CreateInput{ShiftID: "s1"})
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), ben, swap.ID)
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), cy, swap.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 422, pkgerrors.MetadataFor(pkgerrors.As(err).Code()).HTTPStatus)

	_, err = svc.Reject(context.Background(), cy, swap.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, "u2", st.shifts["s1"].UserID)
}

func TestConcurrentAcceptsFirstWriteWins(t *testing.T) {
	st := newStore()
	svc := newTestService(t, st)
	swap, err := svc.Create(context.Background(), ana, CreateInput{ShiftID: "s1"})
	require.NoError(t, err)

	actors := []auth.Actor{ben, cy, admin}
	errs := make([]error, len(actors))
	var wg sync.WaitGroup
	for i, actor := range actors {
		wg.Add(1)
		go func(i int, actor auth.Actor) {
			defer wg.Done()
			_, errs[i] = svc.Accept(context.Background(), actor, swap.ID)
		}(i, actor)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict), err)
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, st.swaps[swap.ID].ResolvedBy, st.shifts["s1"].UserID)
}

func TestAcceptPermissions(t *testing.T) {
	st := newStore()
	svc := newTestService(t, st)
	swap, err := svc.Create(context.Background(), ana, CreateInput{ShiftID: "s1", RecipientID: "u2"})
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), ana, swap.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	_, err = svc.Accept(context.Background(), cy, swap.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	got, err := svc.Accept(context.Background(), admin, swap.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.ResolvedBy)
	assert.Equal(t, "admin", st.shifts["s1"].UserID)
}

func TestAcceptFailsWhenShiftChangedHands(t *testing.T) {
	st := newStore()
	svc := newTestService(t, st)
	swap, err := svc.Create(context.Background(), ana, CreateInput{ShiftID: "s1"})
	require.NoError(t, err)

	s := st.shifts["s1"]
	s.UserID = "u3"
	st.shifts["s1"] = s

	_, err = svc.Accept(context.Background(), ben, swap.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, enums.SwapStatusPending, st.swaps[swap.ID].Status)
}

func TestRejectLeavesShiftAlone(t *testing.T) {
	st := newStore()
	svc := newTestService(t, st)
	swap, err := svc.Create(context.Background(), ana, CreateInput{ShiftID: "s1", RecipientID: "u2"})
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), ana, swap.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
	_, err = svc.Reject(context.Background(), cy, swap.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	got, err := svc.Reject(context.Background(), ben, swap.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SwapStatusRejected, got.Status)
	assert.Equal(t, "u1", st.shifts["s1"].UserID)
}

func TestListVisibility(t *testing.T) {
	st := newStore()
	st.swaps = map[string]models.SwapRequest{
		"open":    {ID: "open", RequesterID: "u1", ShiftID: "s1", Status: enums.SwapStatusPending},
		"to-ben":  {ID: "to-ben", RequesterID: "u1", RecipientID: "u2", ShiftID: "s2", Status: enums.SwapStatusPending},
		"to-cy":   {ID: "to-cy", RequesterID: "u1", RecipientID: "u3", ShiftID: "s3", Status: enums.SwapStatusPending},
		"done":    {ID: "done", RequesterID: "u3", ShiftID: "s4", Status: enums.SwapStatusRejected, ResolvedBy: "admin"},
		"by-ben":  {ID: "by-ben", RequesterID: "u2", ShiftID: "s5", Status: enums.SwapStatusAccepted, ResolvedBy: "u1"},
		"ben-won": {ID: "ben-won", RequesterID: "u3", ShiftID: "s6", Status: enums.SwapStatusAccepted, ResolvedBy: "u2"},
	}
	svc := newTestService(t, st)

	rows, err := svc.List(context.Background(), ben, ListParams{})
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, r := range rows {
		ids[r.ID] = true
	}
	assert.Equal(t, map[string]bool{"open": true, "to-ben": true, "by-ben": true, "ben-won": true}, ids)

	rows, err = svc.List(context.Background(), admin, ListParams{Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = svc.List(context.Background(), admin, ListParams{Status: "later"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
