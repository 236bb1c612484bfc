package enums

import "fmt"

// SwapStatus tracks a swap request. ACCEPTED and REJECTED are terminal.
type SwapStatus string

const (
	SwapStatusPending  SwapStatus = "PENDING"
	SwapStatusAccepted SwapStatus = "ACCEPTED"
	SwapStatusRejected SwapStatus = "REJECTED"
)

var validSwapStatuses = []SwapStatus{
	SwapStatusPending,
	SwapStatusAccepted,
	SwapStatusRejected,
}

// String implements fmt.Stringer.
func (s SwapStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known swap status.
func (s SwapStatus) IsValid() bool {
	for _, candidate := range validSwapStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the swap has been resolved.
func (s SwapStatus) IsTerminal() bool {
	return s == SwapStatusAccepted || s == SwapStatusRejected
}

// ParseSwapStatus converts raw input into SwapStatus.
func ParseSwapStatus(value string) (SwapStatus, error) {
	for _, candidate := range validSwapStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid swap status %q", value)
}

// LeaveStatus tracks a leave request; it is reviewed exactly once.
type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "PENDING"
	LeaveStatusApproved LeaveStatus = "APPROVED"
	LeaveStatusRejected LeaveStatus = "REJECTED"
)

var validLeaveStatuses = []LeaveStatus{
	LeaveStatusPending,
	LeaveStatusApproved,
	LeaveStatusRejected,
}

// String implements fmt.Stringer.
func (s LeaveStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known leave status.
func (s LeaveStatus) IsValid() bool {
	for _, candidate := range validLeaveStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLeaveStatus converts raw input into LeaveStatus.
func ParseLeaveStatus(value string) (LeaveStatus, error) {
	for _, candidate := range validLeaveStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid leave status %q", value)
}
