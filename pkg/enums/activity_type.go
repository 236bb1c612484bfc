package enums

import "fmt"

// ActivityType classifies activity log entries.
type ActivityType string

const (
	ActivityShiftCreated        ActivityType = "SHIFT_CREATED"
	ActivityShiftUpdated        ActivityType = "SHIFT_UPDATED"
	ActivityShiftDeleted        ActivityType = "SHIFT_DELETED"
	ActivityBulkOperation       ActivityType = "BULK_OPERATION"
	ActivityScheduleGenerated   ActivityType = "SCHEDULE_GENERATED"
	ActivitySwapRequested       ActivityType = "SWAP_REQUESTED"
	ActivitySwapAccepted        ActivityType = "SWAP_ACCEPTED"
	ActivitySwapRejected        ActivityType = "SWAP_REJECTED"
	ActivityLeaveRequested      ActivityType = "LEAVE_REQUESTED"
	ActivityLeaveReviewed       ActivityType = "LEAVE_REVIEWED"
	ActivityUserCreated         ActivityType = "USER_CREATED"
	ActivityUserUpdated         ActivityType = "USER_UPDATED"
	ActivityUserDeleted         ActivityType = "USER_DELETED"
	ActivityAvailabilityChanged ActivityType = "AVAILABILITY_CHANGED"
	ActivityClockIn             ActivityType = "CLOCK_IN"
	ActivityClockOut            ActivityType = "CLOCK_OUT"
	ActivityNoteAdded           ActivityType = "NOTE_ADDED"
	ActivityConfigUpdated       ActivityType = "CONFIG_UPDATED"
	ActivityCoverageAlert       ActivityType = "COVERAGE_ALERT"
)

var validActivityTypes = []ActivityType{
	ActivityShiftCreated,
	ActivityShiftUpdated,
	ActivityShiftDeleted,
	ActivityBulkOperation,
	ActivityScheduleGenerated,
	ActivitySwapRequested,
	ActivitySwapAccepted,
	ActivitySwapRejected,
	ActivityLeaveRequested,
	ActivityLeaveReviewed,
	ActivityUserCreated,
	ActivityUserUpdated,
	ActivityUserDeleted,
	ActivityAvailabilityChanged,
	ActivityClockIn,
	ActivityClockOut,
	ActivityNoteAdded,
	ActivityConfigUpdated,
	ActivityCoverageAlert,
}

// String implements fmt.Stringer.
func (a ActivityType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known activity type.
func (a ActivityType) IsValid() bool {
	for _, candidate := range validActivityTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityType converts raw input into ActivityType.
func ParseActivityType(value string) (ActivityType, error) {
	for _, candidate := range validActivityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity type %q", value)
}
