package models

import (
	"encoding/json"
	"math"
	"time"
)

// UsageRow is the derived view of one telemetry record
type UsageRow struct {
	StartTime time.Time `json:"start_time"`
	TxPackets float64   `json:"tx_total_packets"`
	RxPackets float64   `json:"rx_total_packets"`
	TxMB      float64   `json:"tx_mb"`
	RxMB      float64   `json:"rx_mb"`
	TxAndRxMB float64   `json:"tx_and_rx_mb"`
}

// CalendarPeriod classifies a timestamp against the school calendar
type CalendarPeriod int

const (
	SchoolYear CalendarPeriod = iota
	SummerBreak
)

func (p CalendarPeriod) String() string {
	if p == SchoolYear {
		return "school"
	}
	return "summer"
}

// DayClass is weekday or weekend
type DayClass int

const (
	Weekday DayClass = iota
	Weekend
)

func (d DayClass) String() string {
	if d == Weekday {
		return "weekdays"
	}
	return "weekends"
}

// Partition is one (CalendarPeriod, DayClass) bucket
type Partition struct {
	Period CalendarPeriod
	Day    DayClass
}

// Partitions lists the four buckets in report order
var Partitions = []Partition{
	{SchoolYear, Weekday},
	{SchoolYear, Weekend},
	{SummerBreak, Weekday},
	{SummerBreak, Weekend},
}

// Key returns the name used in chart file names, e.g. "school_weekdays"
func (p Partition) Key() string {
	return p.Period.String() + "_" + p.Day.String()
}

// Title returns a human readable label, e.g. "School Year Weekdays"
func (p Partition) Title() string {
	period := "School Year"
	if p.Period == SummerBreak {
		period = "Summer Break"
	}
	day := "Weekdays"
	if p.Day == Weekend {
		day = "Weekends"
	}
	return period + " " + day
}

// HourlyAggregate holds per-hour statistics of tx_and_rx_mb within a partition
type HourlyAggregate struct {
	Hour   int     `json:"hour"`
	Mean   float64 `json:"mean"`
	Sum    float64 `json:"sum"`
	Count  int     `json:"count"`
	StdDev float64 `json:"std"` // NaN with fewer than two samples
}

// HasStdDev reports whether StdDev is defined
func (a HourlyAggregate) HasStdDev() bool {
	return !math.IsNaN(a.StdDev)
}

// MarshalJSON writes an undefined StdDev as null
func (a HourlyAggregate) MarshalJSON() ([]byte, error) {
	var std *float64
	if a.HasStdDev() {
		std = &a.StdDev
	}
	return json.Marshal(struct {
		Hour   int      `json:"hour"`
		Mean   float64  `json:"mean"`
		Sum    float64  `json:"sum"`
		Count  int      `json:"count"`
		StdDev *float64 `json:"std"`
	}{a.Hour, a.Mean, a.Sum, a.Count, std})
}
