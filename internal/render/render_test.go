package render

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/raemisreport/internal/config"
	"github.com/jgoulah/raemisreport/internal/logging"
	"github.com/jgoulah/raemisreport/internal/usage"
	"github.com/jgoulah/raemisreport/pkg/models"
)

const ts = "20250715_101500"

func sampleRows() []models.UsageRow {
	var rows []models.UsageRow
	// twelve days of summer break in June 2025 and of school year in October 2024
	for _, start := range []time.Time{
		time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC),
	} {
		for i := 0; i < 12*24; i += 5 {
			tx := float64(1000 + i*10)
			rx := float64(4000 + i*3)
			rows = append(rows, models.UsageRow{
				StartTime: start.Add(time.Duration(i) * time.Hour),
				TxPackets: tx,
				RxPackets: rx,
				TxMB:      usage.PacketsToMB(tx),
				RxMB:      usage.PacketsToMB(rx),
				TxAndRxMB: usage.PacketsToMB(tx + rx),
			})
		}
	}
	return rows
}

func profiles(t *testing.T, rows []models.UsageRow) []usage.Profile {
	ranges, err := config.Default().GetSchoolYearRanges(time.UTC)
	require.NoError(t, err)
	return usage.NewCalendar(ranges, time.UTC).Profiles(rows)
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err, path)
	assert.Equal(t, Width, cfg.Width)
	assert.Equal(t, Height, cfg.Height)
}

func TestRenderAllCharts(t *testing.T) {
	dir := t.TempDir()
	rows := sampleRows()
	month := usage.LastFullMonth(time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC), time.UTC).Filter(rows)
	require.NotEmpty(t, month)

	r := New(dir, ts, 4, logging.Discard())
	paths, err := r.Render(context.Background(), profiles(t, rows), month)
	require.NoError(t, err)
	require.Len(t, paths, 11)

	want := []string{
		"tx_rx_cumulative_avg_school_weekdays_" + ts + ".png",
		"tx_rx_cumulative_sum_school_weekdays_" + ts + ".png",
		"tx_rx_cumulative_avg_school_weekends_" + ts + ".png",
		"tx_rx_cumulative_sum_school_weekends_" + ts + ".png",
		"tx_rx_cumulative_avg_summer_weekdays_" + ts + ".png",
		"tx_rx_cumulative_sum_summer_weekdays_" + ts + ".png",
		"tx_rx_cumulative_avg_summer_weekends_" + ts + ".png",
		"tx_rx_cumulative_sum_summer_weekends_" + ts + ".png",
		"tx_rx_summary_" + ts + ".png",
		"tx_summary_" + ts + ".png",
		"rx_summary_" + ts + ".png",
	}
	for i, name := range want {
		assert.Equal(t, filepath.Join(dir, name), paths[i])
		assertPNG(t, paths[i])
	}
}

func TestRenderSkipsEmptyInputs(t *testing.T) {
	dir := t.TempDir()
	// a single weekday record in summer: one partition with one hour
	rows := []models.UsageRow{{
		StartTime: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
		TxAndRxMB: 0,
	}}

	r := New(dir, ts, 1, logging.Discard())
	paths, err := r.Render(context.Background(), profiles(t, rows), nil)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, AvgFileName(models.Partition{Period: models.SummerBreak, Day: models.Weekday}, ts)), paths[0])
	for _, p := range paths {
		assertPNG(t, p)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRenderSinglePointScatter(t *testing.T) {
	dir := t.TempDir()
	rows := []models.UsageRow{{StartTime: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), TxMB: 1, RxMB: 2, TxAndRxMB: 3}}

	paths, err := New(dir, ts, 2, logging.Discard()).Render(context.Background(), nil, rows)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	for _, p := range paths {
		assertPNG(t, p)
	}
}

func TestRenderUnwritableDir(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	rows := sampleRows()
	_, err := New(filepath.Join(blocker, "out"), ts, 2, logging.Discard()).Render(context.Background(), profiles(t, rows), nil)
	assert.Error(t, err)
}

func TestChartErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := error(&ChartError{Path: "/tmp/x/tx_summary_1.png", Err: inner})
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "rendering tx_summary_1.png: boom", err.Error())
}

func TestHourLabels(t *testing.T) {
	ticks := hourTicks()
	require.Len(t, ticks, 24)
	assert.Equal(t, "00:00", ticks[0].Label)
	assert.Equal(t, "09:00", ticks[9].Label)
	assert.Equal(t, "23:00", ticks[23].Label)
}

func TestValueRange(t *testing.T) {
	r := valueRange([]float64{0, 0})
	assert.Equal(t, 0.0, r.Min)
	assert.Greater(t, r.Max, r.Min)

	r = valueRange([]float64{2, 10})
	assert.Equal(t, 0.0, r.Min)
	assert.InDelta(t, 10.5, r.Max, 1e-9)
}

func TestRenderReturnsWrittenPathsOnFailure(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, TxSummaryFileName(ts))
	require.NoError(t, os.Mkdir(blocked, 0755))

	rows := sampleRows()
	month := usage.LastFullMonth(time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC), time.UTC).Filter(rows)

	// one worker renders in order: eight partition charts and tx_rx_summary
	// succeed, tx_summary fails, rx_summary is cancelled
	paths, err := New(dir, ts, 1, logging.Discard()).Render(context.Background(), profiles(t, rows), month)
	var chartErr *ChartError
	require.True(t, errors.As(err, &chartErr))
	assert.Equal(t, blocked, chartErr.Path)

	require.Len(t, paths, 9)
	assert.NotContains(t, paths, blocked)
	assert.Equal(t, filepath.Join(dir, TxRxSummaryFileName(ts)), paths[8])
	for _, p := range paths {
		assertPNG(t, p)
	}
	assert.NoFileExists(t, filepath.Join(dir, RxSummaryFileName(ts)))
}
