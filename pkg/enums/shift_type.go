package enums

import "fmt"

// ShiftType is one of the three fixed daily shifts.
type ShiftType string

const (
	ShiftTypeMorning ShiftType = "Morning"
	ShiftTypeEvening ShiftType = "Evening"
	ShiftTypeNight   ShiftType = "Night"
)

// ShiftTypes lists the shift types in their daily order.
var ShiftTypes = []ShiftType{
	ShiftTypeMorning,
	ShiftTypeEvening,
	ShiftTypeNight,
}

// String implements fmt.Stringer.
func (s ShiftType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known shift type.
func (s ShiftType) IsValid() bool {
	for _, candidate := range ShiftTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// Order returns the position of the shift within a day, or -1 when unknown.
func (s ShiftType) Order() int {
	for i, candidate := range ShiftTypes {
		if candidate == s {
			return i
		}
	}
	return -1
}

// ParseShiftType converts raw input into ShiftType.
func ParseShiftType(value string) (ShiftType, error) {
	for _, candidate := range ShiftTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shift type %q", value)
}
