package usage

import (
	"time"

	"github.com/samber/lo"

	"github.com/jgoulah/raemisreport/internal/config"
	"github.com/jgoulah/raemisreport/pkg/models"
)

// Calendar classifies timestamps into school calendar periods and day
// classes. Anything outside the school year ranges is Summer Break.
type Calendar struct {
	schoolYear []config.TimeRange
	loc        *time.Location
}

// NewCalendar creates a calendar from resolved school year ranges
func NewCalendar(schoolYear []config.TimeRange, loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{schoolYear: schoolYear, loc: loc}
}

// Location returns the zone used for day and hour boundaries
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Period returns SchoolYear when t falls in any [start, end) range
func (c *Calendar) Period(t time.Time) models.CalendarPeriod {
	inSchool := lo.SomeBy(c.schoolYear, func(r config.TimeRange) bool {
		return r.Contains(t)
	})
	if inSchool {
		return models.SchoolYear
	}
	return models.SummerBreak
}

// DayClass returns Weekend for Saturday and Sunday, Weekday otherwise
func (c *Calendar) DayClass(t time.Time) models.DayClass {
	switch t.In(c.loc).Weekday() {
	case time.Saturday, time.Sunday:
		return models.Weekend
	default:
		return models.Weekday
	}
}

// PartitionOf returns the single partition t belongs to
func (c *Calendar) PartitionOf(t time.Time) models.Partition {
	return models.Partition{Period: c.Period(t), Day: c.DayClass(t)}
}

// Split groups rows by partition. Every row lands in exactly one group.
func (c *Calendar) Split(rows []models.UsageRow) map[models.Partition][]models.UsageRow {
	return lo.GroupBy(rows, func(r models.UsageRow) models.Partition {
		return c.PartitionOf(r.StartTime)
	})
}
