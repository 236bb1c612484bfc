package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// PromptInput is everything the model is told.
type PromptInput struct {
	Window    Window
	Roster    []models.User
	Config    models.ShiftConfiguration
	Protected []models.Shift
	Blocked   map[string][]string
	// Feedback lists problems with the previous answer, if any.
	Feedback []string
}

// BuildPrompt renders the generation instructions.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are scheduling a security operations center team from %s to %s (inclusive).\n\n", in.Window.From, in.Window.To)

	b.WriteString("SHIFT TIMINGS (24h clock, use these exact lunch and break times):\n")
	for _, t := range enums.ShiftTypes {
		w := in.Config.Window(t)
		fmt.Fprintf(&b, "- %s: %s-%s, lunch %s-%s, break %s-%s, %d work hours\n",
			t, w.Start, w.End, w.LunchStart, w.LunchEnd, w.BreakStart, w.BreakEnd, w.WorkHours)
	}

	b.WriteString("\nHARD CONSTRAINTS:\n")
	fmt.Fprintf(&b, "1. Each user works at most %d shifts in any 7 consecutive days.\n", models.WeeklyShiftCap)
	b.WriteString("2. Exactly 3 workers per day: one Morning, one Evening and one Night.\n")
	b.WriteString("3. Nobody works two shifts on the same day.\n")
	b.WriteString("4. Nobody works a Morning shift the day after a Night shift.\n")
	b.WriteString("5. Never assign a user on a date they are unavailable.\n")
	b.WriteString("6. Only use the user ids listed below and only dates inside the range.\n")

	b.WriteString("\nTEAM:\n")
	roster := append([]models.User(nil), in.Roster...)
	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })
	for _, u := range roster {
		fmt.Fprintf(&b, "- id=%s name=%q", u.ID, u.Name)
		if len(u.Preferences.PreferredShifts) > 0 {
			fmt.Fprintf(&b, " prefers shifts=%s", joinTypes(u.Preferences.PreferredShifts))
		}
		if len(u.Preferences.PreferredDays) > 0 {
			fmt.Fprintf(&b, " prefers days=%s", strings.Join(u.Preferences.PreferredDays, ","))
		}
		if unavailable := unavailableInWindow(u, in.Blocked[u.ID], in.Window); len(unavailable) > 0 {
			fmt.Fprintf(&b, " unavailable=%s", strings.Join(unavailable, ","))
		}
		b.WriteString("\n")
	}

	if len(in.Protected) > 0 {
		b.WriteString("\nALREADY ASSIGNED (keep these, do not propose other users for these slots):\n")
		protected := append([]models.Shift(nil), in.Protected...)
		sort.Slice(protected, func(i, j int) bool {
			if protected[i].Date != protected[j].Date {
				return protected[i].Date < protected[j].Date
			}
			return protected[i].Type.Order() < protected[j].Type.Order()
		})
		for _, s := range protected {
			fmt.Fprintf(&b, "- %s %s userId=%s\n", s.Date, s.Type, s.UserID)
		}
	}

	if len(in.Feedback) > 0 {
		b.WriteString("\nYOUR PREVIOUS ANSWER WAS REJECTED. Fix these problems:\n")
		for _, f := range in.Feedback {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	b.WriteString("\nSpread shifts fairly, honour preferences where possible and rotate shift types.\n")
	b.WriteString("Answer with a JSON array only. Each item has date (YYYY-MM-DD), type (Morning, Evening or Night), userId, lunchStart, lunchEnd, breakStart and breakEnd.\n")
	return b.String()
}

func joinTypes(types []enums.ShiftType) string {
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ",")
}

func unavailableInWindow(u models.User, blocked []string, w Window) []string {
	set := map[string]bool{}
	for _, d := range append(append([]string{}, u.Preferences.UnavailableDates...), blocked...) {
		if dates.Valid(d) && w.Contains(d) {
			set[d] = true
		}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
