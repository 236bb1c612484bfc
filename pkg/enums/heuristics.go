package enums

// CoverageStatus classifies how many people hold a (date, shift type) slot.
type CoverageStatus string

const (
	CoverageUnderstaffed CoverageStatus = "UNDERSTAFFED"
	CoverageOK           CoverageStatus = "OK"
	CoverageOverstaffed  CoverageStatus = "OVERSTAFFED"
)

// CoverageForCount maps an assignee count to its coverage status.
func CoverageForCount(count int) CoverageStatus {
	switch {
	case count <= 0:
		return CoverageUnderstaffed
	case count == 1:
		return CoverageOK
	default:
		return CoverageOverstaffed
	}
}

// ConflictSeverity summarizes a conflict report.
type ConflictSeverity string

const (
	SeverityNone   ConflictSeverity = "none"
	SeverityMedium ConflictSeverity = "medium"
	SeverityHigh   ConflictSeverity = "high"
)

// SeverityForCount maps a conflict count to a severity.
func SeverityForCount(count int) ConflictSeverity {
	switch {
	case count <= 0:
		return SeverityNone
	case count <= 2:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// Urgency labels a recommendation score.
type Urgency string

const (
	UrgencyHigh   Urgency = "HIGH"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyLow    Urgency = "LOW"
)

// UrgencyForScore maps a recommendation score to an urgency label.
func UrgencyForScore(score int) Urgency {
	switch {
	case score >= 80:
		return UrgencyHigh
	case score >= 60:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}
