package shifts

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

var (
	admin   = auth.Actor{UserID: "admin", Name: "Admin", IsAdmin: true}
	analyst = auth.Actor{UserID: "u1", Name: "Ana", Role: enums.UserRoleAnalyst}
)

type memoryShifts struct {
	shifts map[string]models.Shift
	nextID int
}

func newMemoryShifts(seed ...models.Shift) *memoryShifts {
	m := &memoryShifts{shifts: map[string]models.Shift{}}
	for _, s := range seed {
		m.shifts[s.ID] = s
	}
	return m
}

func (m *memoryShifts) all() []models.Shift {
	out := make([]models.Shift, 0, len(m.shifts))
	for _, s := range m.shifts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryShifts) Get(ctx context.Context, id string) (*models.Shift, error) {
	return m.GetTx(nil, id)
}

func (m *memoryShifts) GetTx(tx *firestore.Transaction, id string) (*models.Shift, error) {
	s, ok := m.shifts[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &s, nil
}

func (m *memoryShifts) ListRange(ctx context.Context, from, to string) ([]models.Shift, error) {
	return m.ListRangeTx(nil, from, to)
}

func (m *memoryShifts) ListRangeTx(tx *firestore.Transaction, from, to string) ([]models.Shift, error) {
	var out []models.Shift
	for _, s := range m.all() {
		if (from == "" || s.Date >= from) && (to == "" || s.Date <= to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryShifts) ListByUser(ctx context.Context, userID, from, to string) ([]models.Shift, error) {
	rows, _ := m.ListRangeTx(nil, from, to)
	var out []models.Shift
	for _, s := range rows {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryShifts) ListByUserTx(tx *firestore.Transaction, userID string) ([]models.Shift, error) {
	return m.ListByUser(context.Background(), userID, "", "")
}

func (m *memoryShifts) FindSlotTx(tx *firestore.Transaction, date string, t enums.ShiftType) ([]models.Shift, error) {
	var out []models.Shift
	for _, s := range m.all() {
		if s.Date == date && s.Type == t {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryShifts) CreateTx(tx *firestore.Transaction, shift *models.Shift) error {
	if err := db.Validate(shift); err != nil {
		return err
	}
	m.nextID++
	shift.ID = fmt.Sprintf("new-%d", m.nextID)
	m.shifts[shift.ID] = *shift
	return nil
}

func (m *memoryShifts) UpdateTx(tx *firestore.Transaction, shift models.Shift) error {
	m.shifts[shift.ID] = shift
	return nil
}

func (m *memoryShifts) DeleteTx(tx *firestore.Transaction, id string) error {
	delete(m.shifts, id)
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn db.TxFunc) error {
	return fn(ctx, nil)
}

type staticConfig struct{}

func (staticConfig) Get(ctx context.Context) (models.ShiftConfiguration, error) {
	return models.DefaultShiftConfiguration(), nil
}

type stubUsers struct {
	users []models.User
}

func (s stubUsers) Get(ctx context.Context, id string) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s stubUsers) ListActive(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range s.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

type recorder struct {
	entries []activity.Entry
}

func (r *recorder) Record(ctx context.Context, e activity.Entry) { r.entries = append(r.entries, e) }

var roster = stubUsers{users: []models.User{
	{ID: "u1", Name: "Ana", IsActive: true},
	{ID: "u2", Name: "Ben", IsActive: true},
	{ID: "u3", Name: "Cy", IsActive: true},
	{ID: "u4", Name: "Old", IsActive: false},
}}

func newTestService(t *testing.T, repo *memoryShifts, rec *recorder) *service {
	t.Helper()
	var r activity.Recorder
	if rec != nil {
		r = rec
	}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Tx:       fakeTx{},
		Config:   staticConfig{},
		Users:    roster,
		Activity: r,
	})
	require.NoError(t, err)
	s := svc.(*service)
	s.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestAssignCreatesProtectedShift(t *testing.T) {
	repo := newMemoryShifts()
	rec := &recorder{}
	svc := newTestService(t, repo, rec)

	res, err := svc.Assign(context.Background(), admin, AssignInput{Date: "2026-03-05", Type: enums.ShiftTypeNight, UserID: "u2"})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.True(t, res.Shift.ManuallyCreated)
	assert.Equal(t, "02:00", res.Shift.LunchStart)
	assert.Len(t, repo.shifts, 1)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, enums.ActivityShiftCreated, rec.entries[0].Type)
}

func TestAssignReassignsExistingSlot(t *testing.T) {
	repo := newMemoryShifts(models.Shift{ID: "s1", Date: "2026-03-05", Type: enums.ShiftTypeMorning, UserID: "u1"})
	svc := newTestService(t, repo, nil)

	res, err := svc.Assign(context.Background(), admin, AssignInput{
		Date: "2026-03-05", Type: enums.ShiftTypeMorning, UserID: "u3",
		BreakOverrides: BreakOverrides{BreakStart: "11:00", BreakEnd: "11:15"},
	})
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.Len(t, repo.shifts, 1)
	assert.Equal(t, "u3", repo.shifts["s1"].UserID)
	assert.True(t, repo.shifts["s1"].ManuallyCreated)
	assert.Equal(t, "11:00", repo.shifts["s1"].BreakStart)
}

func TestAssignNoopWhenAlreadyHeld(t *testing.T) {
	repo := newMemoryShifts(models.Shift{ID: "s1", Date: "2026-03-05", Type: enums.ShiftTypeMorning, UserID: "u1"})
	svc := newTestService(t, repo, nil)

	res, err := svc.Assign(context.Background(), admin, AssignInput{Date: "2026-03-05", Type: enums.ShiftTypeMorning, UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "s1", res.Shift.ID)
	assert.False(t, repo.shifts["s1"].ManuallyCreated)
}

func TestAssignWarnsOnWeeklyCapAndSameDay(t *testing.T) {
	var seed []models.Shift
	for i, day := range []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06"} {
		seed = append(seed, models.Shift{ID: fmt.Sprintf("s%d", i), Date: day, Type: enums.ShiftTypeMorning, UserID: "u1"})
	}
	svc := newTestService(t, newMemoryShifts(seed...), nil)

	res, err := svc.Assign(context.Background(), admin, AssignInput{Date: "2026-03-06", Type: enums.ShiftTypeEvening, UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "already works the Morning shift")
	assert.Contains(t, res.Warnings[1], "6 shifts within 7 days")
}

func TestAssignRejectsUnknownOrInactiveUser(t *testing.T) {
	svc := newTestService(t, newMemoryShifts(), nil)

	_, err := svc.Assign(context.Background(), admin, AssignInput{Date: "2026-03-05", Type: enums.ShiftTypeMorning, UserID: "ghost"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Assign(context.Background(), admin, AssignInput{Date: "2026-03-05", Type: enums.ShiftTypeMorning, UserID: "u4"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestAssignRequiresAdmin(t *testing.T) {
	svc := newTestService(t, newMemoryShifts(), nil)
	_, err := svc.Assign(context.Background(), analyst, AssignInput{Date: "2026-03-05", Type: enums.ShiftTypeMorning, UserID: "u1"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newMemoryShifts(models.Shift{ID: "s1", Date: "2026-03-05", Type: enums.ShiftTypeMorning, UserID: "u1"})
	svc := newTestService(t, repo, nil)

	assignee := "u2"
	lunch := "10:15"
	updated, err := svc.Update(context.Background(), admin, "s1", UpdateInput{UserID: &assignee, LunchStart: &lunch})
	require.NoError(t, err)
	assert.Equal(t, "u2", updated.UserID)
	assert.Equal(t, "10:15", repo.shifts["s1"].LunchStart)
	assert.True(t, repo.shifts["s1"].ManuallyCreated)

	require.NoError(t, svc.Delete(context.Background(), admin, "s1"))
	assert.Empty(t, repo.shifts)

	err = svc.Delete(context.Background(), admin, "s1")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestBulkAssign(t *testing.T) {
	repo := newMemoryShifts(
		models.Shift{ID: "s1", Date: "2026-03-05", Type: enums.ShiftTypeMorning, UserID: "u2"},
		models.Shift{ID: "s2", Date: "2026-03-06", Type: enums.ShiftTypeMorning, UserID: "u1"},
	)
	svc := newTestService(t, repo, nil)

	res, err := svc.Bulk(context.Background(), admin, BulkInput{
		Operation: BulkAssign,
		UserID:    "u1",
		StartDate: "2026-03-05",
		EndDate:   "2026-03-07",
		Types:     []enums.ShiftType{enums.ShiftTypeMorning},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Unchanged)
	assert.Equal(t, "u1", repo.shifts["s1"].UserID)
	assert.Len(t, repo.shifts, 3)
}

func TestBulkAssignWarnsAcrossCalendarWeeks(t *testing.T) {
	svc := newTestService(t, newMemoryShifts(), nil)

	// Thursday through Tuesday: four shifts in one calendar week and two in the next.
	res, err := svc.Bulk(context.Background(), admin, BulkInput{
		Operation: BulkAssign,
		UserID:    "u1",
		StartDate: "2026-03-05",
		EndDate:   "2026-03-10",
		Types:     []enums.ShiftType{enums.ShiftTypeMorning},
	})
	require.NoError(t, err)

	assert.Equal(t, 6, res.Created)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "user has 6 shifts within 7 days around 2026-03-05..2026-03-10 (cap 5)", res.Warnings[0])
}

func TestBulkClearKeepsProtected(t *testing.T) {
	repo := newMemoryShifts(
		models.Shift{ID: "s1", Date: "2026-03-05", Type: enums.ShiftTypeMorning, UserID: "u2"},
		models.Shift{ID: "s2", Date: "2026-03-05", Type: enums.ShiftTypeEvening, UserID: "u1", ManuallyCreated: true},
		models.Shift{ID: "s3", Date: "2026-03-09", Type: enums.ShiftTypeNight, UserID: "u1"},
	)
	svc := newTestService(t, repo, nil)

	res, err := svc.Bulk(context.Background(), admin, BulkInput{
		Operation:       BulkClear,
		StartDate:       "2026-03-05",
		EndDate:         "2026-03-06",
		OnlyUnprotected: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 1, res.Unchanged)
	assert.Contains(t, repo.shifts, "s2")
	assert.Contains(t, repo.shifts, "s3")
}

func TestBulkRejectsLongRange(t *testing.T) {
	svc := newTestService(t, newMemoryShifts(), nil)
	_, err := svc.Bulk(context.Background(), admin, BulkInput{Operation: BulkClear, StartDate: "2026-01-01", EndDate: "2026-06-01"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestSeedDayRoundRobin(t *testing.T) {
	repo := newMemoryShifts(models.Shift{ID: "s1", Date: "2026-03-02", Type: enums.ShiftTypeEvening, UserID: "u2"})
	svc := newTestService(t, repo, nil)

	res, err := svc.SeedDay(context.Background(), admin, "")
	require.NoError(t, err)

	assert.Equal(t, "2026-03-02", res.Date)
	assert.Equal(t, []string{"Evening"}, res.Skipped)
	require.Len(t, res.Created, 2)
	assert.Equal(t, "u1", res.Created[0].UserID)
	assert.Equal(t, enums.ShiftTypeMorning, res.Created[0].Type)
	assert.Equal(t, "u3", res.Created[1].UserID)
	assert.Equal(t, enums.ShiftTypeNight, res.Created[1].Type)
}

func TestListSortsAndValidates(t *testing.T) {
	repo := newMemoryShifts(
		models.Shift{ID: "b", Date: "2026-03-05", Type: enums.ShiftTypeNight, UserID: "u1"},
		models.Shift{ID: "a", Date: "2026-03-05", Type: enums.ShiftTypeMorning, UserID: "u2"},
		models.Shift{ID: "c", Date: "2026-03-04", Type: enums.ShiftTypeEvening, UserID: "u1"},
	)
	svc := newTestService(t, repo, nil)

	rows, err := svc.List(context.Background(), ListParams{From: "2026-03-01", To: "2026-03-31"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})

	mine, err := svc.List(context.Background(), ListParams{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = svc.List(context.Background(), ListParams{From: "03/01/2026"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
