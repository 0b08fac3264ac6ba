package render

import (
	"fmt"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/jgoulah/raemisreport/internal/usage"
	"github.com/jgoulah/raemisreport/pkg/models"
)

// 10x6 inches at 300 DPI; DPI scales fonts only, the PNG stores no density
const (
	Width  = 3000
	Height = 1800
	DPI    = 300.0
)

const labelRotation = 45.0

var (
	lineColor    = chart.ColorBlue
	barColor     = chart.ColorBlue
	scatterColor = chart.ColorBlue.WithAlpha(128) // alpha 0.5
)

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 120, Left: 40, Right: 80, Bottom: 40}}
}

// HourLabel formats an hour of day as HH:00
func HourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

func hourTicks() []chart.Tick {
	ticks := make([]chart.Tick, 24)
	for h := 0; h < 24; h++ {
		ticks[h] = chart.Tick{Value: float64(h), Label: HourLabel(h)}
	}
	return ticks
}

// valueRange anchors the y axis at zero and pads the top so a flat or
// single-point series still has a non-zero range
func valueRange(values []float64) *chart.ContinuousRange {
	low, high := 0.0, 0.0
	for _, v := range values {
		low = min(low, v)
		high = max(high, v)
	}
	if high == low {
		high = low + 1
	}
	pad := (high - low) * 0.05
	if low < 0 {
		low -= pad
	}
	return &chart.ContinuousRange{Min: low, Max: high + pad}
}

func timeRange(times []time.Time) *chart.ContinuousRange {
	first, last := times[0], times[0]
	for _, t := range times[1:] {
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	if !last.After(first) {
		first = first.Add(-time.Hour)
		last = last.Add(time.Hour)
	}
	return &chart.ContinuousRange{Min: chart.TimeToFloat64(first), Max: chart.TimeToFloat64(last)}
}

// hourlyLineChart plots mean usage per hour on a fixed 0..23 axis
func hourlyLineChart(p models.Partition, hours []models.HourlyAggregate) chart.Chart {
	xs := make([]float64, len(hours))
	ys := make([]float64, len(hours))
	for i, h := range hours {
		xs[i] = float64(h.Hour)
		ys[i] = h.Mean
	}

	return chart.Chart{
		Title:      fmt.Sprintf("Average Usage by Hour: %s", p.Title()),
		Width:      Width,
		Height:     Height,
		DPI:        DPI,
		Background: background(),
		XAxis: chart.XAxis{
			Name:      "Hour of Day",
			Range:     &chart.ContinuousRange{Min: 0, Max: 23},
			Ticks:     hourTicks(),
			TickStyle: chart.Style{TextRotationDegrees: labelRotation},
		},
		YAxis: chart.YAxis{
			Name:  "Average Megabytes (tx + rx)",
			Range: valueRange(ys),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    p.Title(),
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 4,
					DotColor:    lineColor,
					DotWidth:    6,
				},
			},
		},
	}
}

// hourlyBarChart plots summed usage per hour, one bar per hour present
func hourlyBarChart(p models.Partition, hours []models.HourlyAggregate) chart.BarChart {
	bars := make([]chart.Value, len(hours))
	sums := make([]float64, len(hours))
	for i, h := range hours {
		sums[i] = h.Sum
		bars[i] = chart.Value{
			Label: HourLabel(h.Hour),
			Value: h.Sum,
			Style: chart.Style{FillColor: barColor, StrokeColor: barColor},
		}
	}

	return chart.BarChart{
		Title:      fmt.Sprintf("Total Usage by Hour: %s", p.Title()),
		Width:      Width,
		Height:     Height,
		DPI:        DPI,
		Background: background(),
		BarWidth:   80,
		BarSpacing: 20,
		XAxis:      chart.Style{TextRotationDegrees: labelRotation},
		YAxis: chart.YAxis{
			Name:  "Total Megabytes (tx + rx)",
			Range: valueRange(sums),
		},
		Bars: bars,
	}
}

// scatterChart plots one value per record against its start time
func scatterChart(title, yName string, rows []models.UsageRow, value func(models.UsageRow) float64) chart.Chart {
	xs := make([]time.Time, len(rows))
	ys := make([]float64, len(rows))
	for i, r := range rows {
		xs[i] = r.StartTime
		ys[i] = value(r)
	}

	return chart.Chart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		DPI:        DPI,
		Background: background(),
		XAxis: chart.XAxis{
			Name:           "Start Time",
			ValueFormatter: chart.TimeDateValueFormatter,
			Range:          timeRange(xs),
			TickStyle:      chart.Style{TextRotationDegrees: labelRotation},
		},
		YAxis: chart.YAxis{
			Name:  yName,
			Range: valueRange(ys),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				XValues: xs,
				YValues: ys,
				Style:   pointStyle(scatterColor),
			},
		},
	}
}

// pointStyle renders points only (no connecting line)
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    3,
		DotColor:    col,
	}
}

type scatterSpec struct {
	file  func(timestamp string) string
	yName string
	value func(models.UsageRow) float64
}

var scatterSpecs = []scatterSpec{
	{TxRxSummaryFileName, "Transmitted and Received Megabytes", func(r models.UsageRow) float64 { return r.TxAndRxMB }},
	{TxSummaryFileName, "Transmitted Megabytes", func(r models.UsageRow) float64 { return r.TxMB }},
	{RxSummaryFileName, "Received Megabytes", func(r models.UsageRow) float64 { return r.RxMB }},
}

// profileHasData reports whether a partition can be charted
func profileHasData(p usage.Profile) bool {
	return len(p.Hours) > 0
}
