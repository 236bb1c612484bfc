package schedule

import (
	"fmt"

	"github.com/angelmondragon/socshift-backend/pkg/dates"
)

// ComputeWindow returns [max(start, tomorrow), start+days-1]. It fails when
// the whole range lies on or before today.
func ComputeWindow(start string, days int, today string) (Window, error) {
	if days <= 0 {
		return Window{}, fmt.Errorf("days must be positive")
	}
	end, err := dates.AddDays(start, days-1)
	if err != nil {
		return Window{}, err
	}
	tomorrow, err := dates.AddDays(today, 1)
	if err != nil {
		return Window{}, err
	}
	from := dates.Max(start, tomorrow)
	if end < from {
		return Window{}, fmt.Errorf("window %s..%s ends before %s", start, end, tomorrow)
	}
	return Window{From: from, To: end}, nil
}

// Days lists every day of the window.
func (w Window) Days() []string {
	days, _ := dates.Between(w.From, w.To)
	return days
}
