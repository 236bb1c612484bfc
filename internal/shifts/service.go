package shifts

import (
	"context"
	"errors"
	"fmt"
	"sort"
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

type shiftStore interface {
	Get(ctx context.Context, id string) (*models.Shift, error)
	GetTx(tx *firestore.Transaction, id string) (*models.Shift, error)
	ListRange(ctx context.Context, from, to string) ([]models.Shift, error)
	ListRangeTx(tx *firestore.Transaction, from, to string) ([]models.Shift, error)
	ListByUser(ctx context.Context, userID, from, to string) ([]models.Shift, error)
	ListByUserTx(tx *firestore.Transaction, userID string) ([]models.Shift, error)
	FindSlotTx(tx *firestore.Transaction, date string, shiftType enums.ShiftType) ([]models.Shift, error)
	CreateTx(tx *firestore.Transaction, shift *models.Shift) error
	UpdateTx(tx *firestore.Transaction, shift models.Shift) error
	DeleteTx(tx *firestore.Transaction, id string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn db.TxFunc) error
}

type configReader interface {
	Get(ctx context.Context) (models.ShiftConfiguration, error)
}

type userReader interface {
	Get(ctx context.Context, id string) (*models.User, error)
	ListActive(ctx context.Context) ([]models.User, error)
}

// Service manages individual shifts and admin slot writes.
type Service interface {
	List(ctx context.Context, params ListParams) ([]models.Shift, error)
	Get(ctx context.Context, id string) (*models.Shift, error)
	Assign(ctx context.Context, actor auth.Actor, input AssignInput) (*AssignResult, error)
	Update(ctx context.Context, actor auth.Actor, id string, input UpdateInput) (*models.Shift, error)
	Delete(ctx context.Context, actor auth.Actor, id string) error
	Bulk(ctx context.Context, actor auth.Actor, input BulkInput) (*BulkResult, error)
	SeedDay(ctx context.Context, actor auth.Actor, date string) (*SeedResult, error)
}

// ServiceParams groups the service dependencies.
type ServiceParams struct {
	Repo     shiftStore
	Tx       txRunner
	Config   configReader
	Users    userReader
	Activity activity.Recorder
	Location *time.Location
}

type service struct {
	repo     shiftStore
	tx       txRunner
	config   configReader
	users    userReader
	activity activity.Recorder
	loc      *time.Location
	now      func() time.Time
}

// NewService validates and wires the shift service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Config == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift configuration required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user reader required")
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
		tx:       params.Tx,
		config:   params.Config,
		users:    params.Users,
		activity: recorder,
		loc:      loc,
		now:      time.Now,
	}, nil
}

func (s *service) today() string {
	return dates.Today(s.now(), s.loc)
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Shift, error) {
	for _, d := range []string{params.From, params.To} {
		if d != "" && !dates.Valid(d) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "dates must be YYYY-MM-DD")
		}
	}
	if params.From != "" && params.To != "" && params.To < params.From {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must not be before start date")
	}

	var (
		rows []models.Shift
		err  error
	)
	if uid := strings.TrimSpace(params.UserID); uid != "" {
		rows, err = s.repo.ListByUser(ctx, uid, params.From, params.To)
	} else {
		rows, err = s.repo.ListRange(ctx, params.From, params.To)
	}
	if err != nil {
		return nil, mapStoreError(err, "list shifts")
	}
	SortShifts(rows)
	return rows, nil
}

func (s *service) Get(ctx context.Context, id string) (*models.Shift, error) {
	shift, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "load shift")
	}
	return shift, nil
}

func (s *service) Assign(ctx context.Context, actor auth.Actor, input AssignInput) (*AssignResult, error) {
	if !actor.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !input.Type.IsValid() || !dates.Valid(input.Date) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid date and shift type required")
	}
	assignee, err := s.activeUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}

	var result AssignResult
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result = AssignResult{}
		slot, err := s.repo.FindSlotTx(tx, input.Date, input.Type)
		if err != nil {
			return err
		}
		held, err := s.repo.ListByUserTx(tx, input.UserID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		shift, created, changed := applyAssignment(slot, input, cfg, now)
		result.Shift = shift
		result.Created = created
		result.Warnings = assignmentWarnings(slot, held, shift)
		if !changed {
			return nil
		}
		if created {
			if err := s.repo.CreateTx(tx, &shift); err != nil {
				return err
			}
			result.Shift = shift
			return nil
		}
		return s.repo.UpdateTx(tx, shift)
	})
	if err != nil {
		return nil, mapStoreError(err, "assign shift")
	}

	action := "Reassigned"
	if result.Created {
		action = "Assigned"
	}
	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityShiftCreated,
		Action:  fmt.Sprintf("%s %s shift to %s", action, input.Type, assignee.Name),
		Details: input.Date,
	})
	return &result, nil
}

// applyAssignment decides the slot write. changed is false when the user
// already holds the slot.
func applyAssignment(slot []models.Shift, input AssignInput, cfg models.ShiftConfiguration, now time.Time) (models.Shift, bool, bool) {
	if len(slot) > 0 {
		sort.Slice(slot, func(i, j int) bool { return slot[i].ID < slot[j].ID })
		for _, existing := range slot {
			if existing.UserID == input.UserID {
				return existing, false, false
			}
		}
		shift := slot[0]
		shift.UserID = input.UserID
		shift.ManuallyCreated = true
		shift.UpdatedAt = now
		overrideBreaks(&shift, input.BreakOverrides)
		return shift, false, true
	}

	shift := NewShift(input.Date, input.Type, input.UserID, cfg, now)
	shift.ManuallyCreated = true
	overrideBreaks(&shift, input.BreakOverrides)
	return shift, true, true
}

func assignmentWarnings(slot, held []models.Shift, shift models.Shift) []string {
	var warnings []string
	if len(slot) > 1 {
		warnings = append(warnings, fmt.Sprintf("slot %s %s holds %d shifts", shift.Date, shift.Type, len(slot)))
	}
	for _, h := range held {
		if h.Date == shift.Date && h.Type != shift.Type {
			warnings = append(warnings, fmt.Sprintf("user already works the %s shift on %s", h.Type, h.Date))
		}
	}
	all := make([]models.Shift, 0, len(held)+1)
	for _, h := range held {
		if shift.ID != "" && h.ID == shift.ID {
			continue
		}
		all = append(all, h)
	}
	all = append(all, shift)
	if n := models.MaxInRollingWeek(all, shift.UserID, shift.Date, ""); n > models.WeeklyShiftCap {
		warnings = append(warnings, fmt.Sprintf("user has %d shifts within %d days (cap %d)", n, models.RollingWeekDays, models.WeeklyShiftCap))
	}
	return warnings
}

// rollingCapWarnings reports each run of days in which the user, with
// writes applied, holds more than the cap within some rolling week.
func rollingCapWarnings(held, writes []models.Shift, userID string, days []string) []string {
	all := make([]models.Shift, 0, len(held)+len(writes))
	replaced := map[string]bool{}
	for _, w := range writes {
		if w.ID != "" {
			replaced[w.ID] = true
		}
	}
	for _, h := range held {
		if !replaced[h.ID] {
			all = append(all, h)
		}
	}
	all = append(all, writes...)

	var warnings []string
	runStart, peak := "", 0
	flush := func(end string) {
		if runStart != "" {
			warnings = append(warnings, fmt.Sprintf("user has %d shifts within %d days around %s..%s (cap %d)", peak, models.RollingWeekDays, runStart, end, models.WeeklyShiftCap))
		}
		runStart, peak = "", 0
	}
	prev := ""
	for _, day := range days {
		n := models.MaxInRollingWeek(all, userID, day, "")
		if n <= models.WeeklyShiftCap {
			flush(prev)
			prev = day
			continue
		}
		if runStart == "" {
			runStart = day
		}
		peak = max(peak, n)
		prev = day
	}
	flush(prev)
	return warnings
}

// NewShift builds an unprotected shift using the configured break windows.
func NewShift(date string, shiftType enums.ShiftType, userID string, cfg models.ShiftConfiguration, now time.Time) models.Shift {
	window := cfg.Window(shiftType)
	return models.Shift{
		Date:       date,
		Type:       shiftType,
		UserID:     userID,
		LunchStart: window.LunchStart,
		LunchEnd:   window.LunchEnd,
		BreakStart: window.BreakStart,
		BreakEnd:   window.BreakEnd,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func overrideBreaks(shift *models.Shift, o BreakOverrides) {
	if o.LunchStart != "" {
		shift.LunchStart = o.LunchStart
	}
	if o.LunchEnd != "" {
		shift.LunchEnd = o.LunchEnd
	}
	if o.BreakStart != "" {
		shift.BreakStart = o.BreakStart
	}
	if o.BreakEnd != "" {
		shift.BreakEnd = o.BreakEnd
	}
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id string, input UpdateInput) (*models.Shift, error) {
	if !actor.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.UserID != nil {
		if _, err := s.activeUser(ctx, *input.UserID); err != nil {
			return nil, err
		}
	}

	var updated models.Shift
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		shift, err := s.repo.GetTx(tx, id)
		if err != nil {
			return err
		}
		if input.UserID != nil {
			shift.UserID = *input.UserID
		}
		if input.LunchStart != nil {
			shift.LunchStart = *input.LunchStart
		}
		if input.LunchEnd != nil {
			shift.LunchEnd = *input.LunchEnd
		}
		if input.BreakStart != nil {
			shift.BreakStart = *input.BreakStart
		}
		if input.BreakEnd != nil {
			shift.BreakEnd = *input.BreakEnd
		}
		shift.ManuallyCreated = true
		shift.UpdatedAt = s.now().UTC()
		updated = *shift
		return s.repo.UpdateTx(tx, *shift)
	})
	if err != nil {
		return nil, mapStoreError(err, "update shift")
	}

	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityShiftUpdated,
		Action:  fmt.Sprintf("Updated %s shift", updated.Type),
		Details: updated.Date,
	})
	return &updated, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.Admin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	var removed models.Shift
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		shift, err := s.repo.GetTx(tx, id)
		if err != nil {
			return err
		}
		removed = *shift
		return s.repo.DeleteTx(tx, id)
	})
	if err != nil {
		return mapStoreError(err, "delete shift")
	}
	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityShiftDeleted,
		Action:  fmt.Sprintf("Deleted %s shift", removed.Type),
		Details: removed.Date,
	})
	return nil
}

func (s *service) Bulk(ctx context.Context, actor auth.Actor, input BulkInput) (*BulkResult, error) {
	if !actor.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	days, err := dates.Between(input.StartDate, input.EndDate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date range")
	}
	if len(days) > MaxBulkDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("date range must not exceed %d days", MaxBulkDays))
	}
	types := input.Types
	if len(types) == 0 {
		types = enums.ShiftTypes
	}

	var result *BulkResult
	switch input.Operation {
	case BulkAssign:
		result, err = s.bulkAssign(ctx, input, days, types)
	case BulkClear:
		result, err = s.bulkClear(ctx, input, types)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operation must be assign or clear")
	}
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityBulkOperation,
		Action:  fmt.Sprintf("Bulk %s: %d created, %d updated, %d deleted", input.Operation, result.Created, result.Updated, result.Deleted),
		Details: input.StartDate + ".." + input.EndDate,
	})
	return result, nil
}

func (s *service) bulkAssign(ctx context.Context, input BulkInput, days []string, types []enums.ShiftType) (*BulkResult, error) {
	if _, err := s.activeUser(ctx, input.UserID); err != nil {
		return nil, err
	}
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}

	var result BulkResult
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result = BulkResult{Operation: BulkAssign}
		existing, err := s.repo.ListRangeTx(tx, input.StartDate, input.EndDate)
		if err != nil {
			return err
		}
		held, err := s.repo.ListByUserTx(tx, input.UserID)
		if err != nil {
			return err
		}
		slots := GroupBySlot(existing)
		now := s.now().UTC()

		var writes []models.Shift
		for _, day := range days {
			for _, t := range types {
				in := AssignInput{Date: day, Type: t, UserID: input.UserID}
				shift, created, changed := applyAssignment(slots[models.SlotKey(day, t)], in, cfg, now)
				switch {
				case !changed:
					result.Unchanged++
					continue
				case created:
					result.Created++
				default:
					result.Updated++
				}
				writes = append(writes, shift)
			}
		}

		result.Warnings = append(result.Warnings, rollingCapWarnings(held, writes, input.UserID, days)...)

		for i := range writes {
			if writes[i].ID == "" {
				if err := s.repo.CreateTx(tx, &writes[i]); err != nil {
					return err
				}
				continue
			}
			if err := s.repo.UpdateTx(tx, writes[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "bulk assign")
	}
	return &result, nil
}

func (s *service) bulkClear(ctx context.Context, input BulkInput, types []enums.ShiftType) (*BulkResult, error) {
	allowed := map[enums.ShiftType]bool{}
	for _, t := range types {
		allowed[t] = true
	}

	var result BulkResult
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result = BulkResult{Operation: BulkClear}
		existing, err := s.repo.ListRangeTx(tx, input.StartDate, input.EndDate)
		if err != nil {
			return err
		}
		for _, shift := range existing {
			if !allowed[shift.Type] || (input.OnlyUnprotected && shift.ManuallyCreated) {
				result.Unchanged++
				continue
			}
			if err := s.repo.DeleteTx(tx, shift.ID); err != nil {
				return err
			}
			result.Deleted++
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "bulk clear")
	}
	return &result, nil
}

func (s *service) SeedDay(ctx context.Context, actor auth.Actor, date string) (*SeedResult, error) {
	if !actor.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if strings.TrimSpace(date) == "" {
		date = s.today()
	}
	if !dates.Valid(date) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD")
	}

	roster, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, mapStoreError(err, "list active users")
	}
	if len(roster) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no active users to assign")
	}
	sort.Slice(roster, func(i, j int) bool {
		if roster[i].Name != roster[j].Name {
			return roster[i].Name < roster[j].Name
		}
		return roster[i].ID < roster[j].ID
	})
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}

	result := &SeedResult{Date: date}
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result.Created = []models.Shift{}
		result.Skipped = []string{}
		existing, err := s.repo.ListRangeTx(tx, date, date)
		if err != nil {
			return err
		}
		slots := GroupBySlot(existing)
		now := s.now().UTC()
		for i, t := range enums.ShiftTypes {
			if len(slots[models.SlotKey(date, t)]) > 0 {
				result.Skipped = append(result.Skipped, string(t))
				continue
			}
			shift := NewShift(date, t, roster[i%len(roster)].ID, cfg, now)
			shift.ManuallyCreated = true
			if err := s.repo.CreateTx(tx, &shift); err != nil {
				return err
			}
			result.Created = append(result.Created, shift)
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "seed shifts")
	}

	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityBulkOperation,
		Action:  fmt.Sprintf("Seeded %d shifts", len(result.Created)),
		Details: date,
	})
	return result, nil
}

func (s *service) activeUser(ctx context.Context, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown user").WithDetails(map[string]any{"userId": id})
		}
		return nil, mapStoreError(err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is inactive").WithDetails(map[string]any{"userId": id})
	}
	return user, nil
}

// GroupBySlot indexes shifts by (date, type).
func GroupBySlot(shifts []models.Shift) map[string][]models.Shift {
	out := make(map[string][]models.Shift, len(shifts))
	for _, s := range shifts {
		out[s.SlotKey()] = append(out[s.SlotKey()], s)
	}
	return out
}

// SortShifts orders shifts by date, then Morning/Evening/Night, then id.
func SortShifts(shifts []models.Shift) {
	sort.SliceStable(shifts, func(i, j int) bool {
		a, b := shifts[i], shifts[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Type.Order() != b.Type.Order() {
			return a.Type.Order() < b.Type.Order()
		}
		return a.ID < b.ID
	})
}

func mapStoreError(err error, action string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "shift not found")
	case errors.Is(err, db.ErrSchemaMismatch):
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action+": stored document is invalid")
	case db.IsContention(err):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, action+": concurrent update, retry")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
