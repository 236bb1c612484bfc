package db

const (
	CollectionUsers            = "users"
	CollectionShifts           = "shifts"
	CollectionSwapRequests     = "swapRequests"
	CollectionLeaveRequests    = "leaveRequests"
	CollectionActivityLogs     = "activityLogs"
	CollectionUserAvailability = "userAvailability"
	CollectionClockEntries     = "clockEntries"
	CollectionShiftNotes       = "shiftNotes"
	CollectionConfig           = "config"

	DocShiftConfiguration = "shiftConfiguration"
)
