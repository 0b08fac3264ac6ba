package usage

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/jgoulah/raemisreport/pkg/models"
)

// Profile is the hourly aggregate of one partition
type Profile struct {
	Partition models.Partition
	Records   int
	Hours     []models.HourlyAggregate
}

// Profiles splits rows into the four partitions and aggregates each by hour
// of day. The result always has one entry per partition, in
// models.Partitions order; a partition without rows has no hours.
func (c *Calendar) Profiles(rows []models.UsageRow) []Profile {
	groups := c.Split(rows)

	profiles := make([]Profile, 0, len(models.Partitions))
	for _, p := range models.Partitions {
		part := groups[p]
		profiles = append(profiles, Profile{
			Partition: p,
			Records:   len(part),
			Hours:     c.Hourly(part),
		})
	}
	return profiles
}

// Hourly computes mean, sum, count and sample standard deviation of
// tx_and_rx_mb per hour of day. Only hours with records are returned,
// sorted ascending.
func (c *Calendar) Hourly(rows []models.UsageRow) []models.HourlyAggregate {
	byHour := lo.GroupBy(rows, func(r models.UsageRow) int {
		return r.StartTime.In(c.loc).Hour()
	})

	hours := lo.Keys(byHour)
	sort.Ints(hours)

	result := make([]models.HourlyAggregate, 0, len(hours))
	for _, h := range hours {
		values := lo.Map(byHour[h], func(r models.UsageRow, _ int) float64 {
			return r.TxAndRxMB
		})
		result = append(result, aggregate(h, values))
	}
	return result
}

func aggregate(hour int, values []float64) models.HourlyAggregate {
	n := len(values)
	mean, std := stat.MeanStdDev(values, nil)
	// sample deviation is undefined for a single value
	if n < 2 {
		std = math.NaN()
	}

	return models.HourlyAggregate{
		Hour:   hour,
		Mean:   mean,
		Sum:    lo.Sum(values),
		Count:  n,
		StdDev: std,
	}
}
