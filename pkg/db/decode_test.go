package db

import (
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestValidateShift(t *testing.T) {
	shift := models.Shift{
		Date:       "2026-01-13",
		Type:       enums.ShiftTypeMorning,
		UserID:     "u1",
		LunchStart: "10:00",
		LunchEnd:   "10:30",
		CreatedAt:  time.Now(),
	}
	if err := Validate(&shift); err != nil {
		t.Fatalf("expected valid shift: %v", err)
	}

	shift.Type = "Graveyard"
	if err := Validate(&shift); err == nil {
		t.Fatal("expected unknown shift type to fail")
	}

	shift.Type = enums.ShiftTypeNight
	shift.Date = "13/01/2026"
	if err := Validate(&shift); err == nil {
		t.Fatal("expected malformed date to fail")
	}

	shift.Date = "2026-01-13"
	shift.BreakStart = "25:00"
	if err := Validate(&shift); err == nil {
		t.Fatal("expected malformed break window to fail")
	}
}

func TestValidateUserPreferences(t *testing.T) {
	user := models.User{
		Name:     "Ana",
		Email:    "ana@example.com",
		Role:     enums.UserRoleAnalyst,
		IsActive: true,
		Preferences: models.Preferences{
			PreferredDays:    []string{"Monday", "Friday"},
			PreferredShifts:  []enums.ShiftType{enums.ShiftTypeNight},
			UnavailableDates: []string{"2026-02-01"},
		},
	}
	if err := Validate(&user); err != nil {
		t.Fatalf("expected valid user: %v", err)
	}

	user.Preferences.PreferredDays = []string{"Caturday"}
	if err := Validate(&user); err == nil {
		t.Fatal("expected unknown weekday to fail")
	}

	user.Preferences.PreferredDays = nil
	user.Role = "OWNER"
	if err := Validate(&user); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}

func TestValidateDefaultShiftConfiguration(t *testing.T) {
	cfg := models.DefaultShiftConfiguration()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("default configuration must validate: %v", err)
	}
	cfg.Night.WorkHours = 0
	if err := Validate(&cfg); err == nil {
		t.Fatal("expected zero work hours to fail")
	}
}

func TestDecodeNilSnapshotIsNotFound(t *testing.T) {
	var shift models.Shift
	if err := Decode(nil, &shift); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSchemaErrorMatchesSentinel(t *testing.T) {
	err := &SchemaError{Path: "shifts/abc", Err: errors.New("bad type")}
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatal("schema error should match ErrSchemaMismatch")
	}
}

func TestStatusHelpers(t *testing.T) {
	if !IsNotFound(status.Error(codes.NotFound, "missing")) {
		t.Fatal("expected grpc not found to match")
	}
	if !IsNotFound(ErrNotFound) {
		t.Fatal("expected sentinel to match")
	}
	if IsNotFound(errors.New("other")) {
		t.Fatal("plain errors are not not-found")
	}
	if !IsAlreadyExists(status.Error(codes.AlreadyExists, "dup")) {
		t.Fatal("expected already exists")
	}
	if !IsContention(status.Error(codes.Aborted, "contention")) {
		t.Fatal("expected aborted to count as contention")
	}
	if !IsRetryable(status.Error(codes.Unavailable, "down")) || IsRetryable(status.Error(codes.InvalidArgument, "bad")) {
		t.Fatal("unexpected retry classification")
	}
}

func TestValidateEveryModel(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cfg := models.DefaultShiftConfiguration()
	badCfg := models.DefaultShiftConfiguration()
	badCfg.Evening.LunchEnd = "18h30"

	cases := []struct {
		name    string
		valid   any
		invalid any
	}{
		{
			name:    "shift",
			valid:   &models.Shift{Date: "2026-03-02", Type: enums.ShiftTypeEvening, UserID: "u1", BreakStart: "20:00", BreakEnd: "20:15"},
			invalid: &models.Shift{Date: "2026-03-02", Type: "evening"},
		},
		{
			name:    "user",
			valid:   &models.User{Name: "Ana", Role: enums.UserRoleAdmin, Preferences: models.Preferences{PreferredDays: []string{"Sunday"}}},
			invalid: &models.User{Name: "Ana", Role: enums.UserRoleAnalyst, Preferences: models.Preferences{UnavailableDates: []string{"2026-13-01"}}},
		},
		{
			name:    "swap request",
			valid:   &models.SwapRequest{RequesterID: "u1", ShiftID: "s1", ShiftDate: "2026-03-04", ShiftType: enums.ShiftTypeNight, Status: enums.SwapStatusPending, CreatedAt: now},
			invalid: &models.SwapRequest{RequesterID: "u1", ShiftID: "s1", ShiftDate: "2026-03-04", ShiftType: "Late", Status: enums.SwapStatusPending},
		},
		{
			name:    "leave request",
			valid:   &models.LeaveRequest{UserID: "u1", Date: "2026-03-05", Status: enums.LeaveStatusApproved, CreatedAt: now},
			invalid: &models.LeaveRequest{UserID: "u1", Date: "05-03-2026", Status: enums.LeaveStatusPending},
		},
		{
			name:    "availability",
			valid:   &models.UserAvailability{UserID: "u1", Date: "2026-03-06", CreatedBy: "u1", CreatedAt: now},
			invalid: &models.UserAvailability{UserID: "u1"},
		},
		{
			name:    "clock entry",
			valid:   &models.ClockEntry{ShiftID: "s1", UserID: "u1", ClockIn: now, ActualHours: 7.5},
			invalid: &models.ClockEntry{ShiftID: "s1", UserID: "u1", ClockIn: now, ActualHours: -1},
		},
		{
			name:    "shift note",
			valid:   &models.ShiftNote{ShiftID: "s1", AuthorID: "u1", Content: "handover: ticket backlog cleared", CreatedAt: now},
			invalid: &models.ShiftNote{ShiftID: "s1", AuthorID: "u1"},
		},
		{
			name:    "activity log entry",
			valid:   &models.ActivityLogEntry{UserID: "u1", Action: "assigned shift", Type: enums.ActivityShiftCreated, Timestamp: now},
			invalid: &models.ActivityLogEntry{UserID: "u1", Action: "assigned shift"},
		},
		{
			name:    "shift configuration",
			valid:   &cfg,
			invalid: &badCfg,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Validate(tc.valid); err != nil {
				t.Fatalf("expected valid %s: %v", tc.name, err)
			}
			if err := Validate(tc.invalid); err == nil {
				t.Fatalf("expected invalid %s to fail", tc.name)
			}
		})
	}
}
