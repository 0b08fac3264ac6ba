package usage

import (
	"time"

	"github.com/samber/lo"

	"github.com/jgoulah/raemisreport/pkg/models"
)

// Window is a half-open [Start, End) time range
type Window struct {
	Start time.Time
	End   time.Time
}

// LastFullMonth returns [first day of previous month, first day of current
// month) for now, at midnight in loc.
func LastFullMonth(now time.Time, loc *time.Location) Window {
	n := now.In(loc)
	current := time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, loc)
	return Window{
		Start: current.AddDate(0, -1, 0),
		End:   current,
	}
}

// Contains reports whether t falls in the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Filter returns the rows whose start time falls in the window
func (w Window) Filter(rows []models.UsageRow) []models.UsageRow {
	return lo.Filter(rows, func(r models.UsageRow, _ int) bool {
		return w.Contains(r.StartTime)
	})
}
