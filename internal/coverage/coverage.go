// Package coverage counts assignees per (date, shift type) slot and
// classifies each slot against the one-person-per-slot staffing target.
package coverage

import (
	"time"

	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// Record is the coverage of one slot.
type Record struct {
	Date      string               `json:"date"`
	Type      enums.ShiftType      `json:"type"`
	Count     int                  `json:"count"`
	Status    enums.CoverageStatus `json:"status"`
	Assignees []string             `json:"assignees"`
}

// Summary counts slots per status.
type Summary struct {
	Understaffed int `json:"understaffed"`
	OK           int `json:"ok"`
	Overstaffed  int `json:"overstaffed"`
}

// Report is the coverage of a window of days.
type Report struct {
	Start   string   `json:"start"`
	End     string   `json:"end"`
	Days    int      `json:"days"`
	Records []Record `json:"records"`
	Summary Summary  `json:"summary"`
}

// Aggregate builds one record per (date, type) for days days starting at the
// calendar day of start. Shifts without an assignee do not count.
func Aggregate(shifts []models.Shift, start time.Time, days int) Report {
	first := dates.Format(start)
	report := Report{Start: first, End: first, Days: days, Records: []Record{}}
	if days <= 0 {
		return report
	}
	window, _ := dates.Range(first, days)
	report.End = window[len(window)-1]

	assignees := make(map[string][]string, len(shifts))
	for _, s := range shifts {
		if s.UserID == "" || s.Date < first || s.Date > report.End {
			continue
		}
		assignees[s.SlotKey()] = append(assignees[s.SlotKey()], s.UserID)
	}

	for _, day := range window {
		for _, t := range enums.ShiftTypes {
			users := assignees[models.SlotKey(day, t)]
			if users == nil {
				users = []string{}
			}
			rec := Record{
				Date:      day,
				Type:      t,
				Count:     len(users),
				Status:    enums.CoverageForCount(len(users)),
				Assignees: users,
			}
			switch rec.Status {
			case enums.CoverageUnderstaffed:
				report.Summary.Understaffed++
			case enums.CoverageOK:
				report.Summary.OK++
			default:
				report.Summary.Overstaffed++
			}
			report.Records = append(report.Records, rec)
		}
	}
	return report
}

// Understaffed returns the slots nobody covers.
func (r Report) Understaffed() []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Status == enums.CoverageUnderstaffed {
			out = append(out, rec)
		}
	}
	return out
}
