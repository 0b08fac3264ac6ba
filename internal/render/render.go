package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	chart "github.com/wcharczuk/go-chart/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jgoulah/raemisreport/internal/usage"
	"github.com/jgoulah/raemisreport/pkg/models"
)

// AvgFileName is the line chart of mean usage for a partition
func AvgFileName(p models.Partition, timestamp string) string {
	return fmt.Sprintf("tx_rx_cumulative_avg_%s_%s.png", p.Key(), timestamp)
}

// SumFileName is the bar chart of summed usage for a partition
func SumFileName(p models.Partition, timestamp string) string {
	return fmt.Sprintf("tx_rx_cumulative_sum_%s_%s.png", p.Key(), timestamp)
}

// TxRxSummaryFileName is the monthly scatter chart of combined usage
func TxRxSummaryFileName(timestamp string) string {
	return fmt.Sprintf("tx_rx_summary_%s.png", timestamp)
}

// TxSummaryFileName is the monthly scatter chart of transmitted usage
func TxSummaryFileName(timestamp string) string {
	return fmt.Sprintf("tx_summary_%s.png", timestamp)
}

// RxSummaryFileName is the monthly scatter chart of received usage
func RxSummaryFileName(timestamp string) string {
	return fmt.Sprintf("rx_summary_%s.png", timestamp)
}

// ChartError names the chart that failed to render
type ChartError struct {
	Path string
	Err  error
}

func (e *ChartError) Error() string {
	return fmt.Sprintf("rendering %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *ChartError) Unwrap() error {
	return e.Err
}

// Renderer writes report charts for one run
type Renderer struct {
	dir       string
	timestamp string
	workers   int
	logger    *logrus.Logger
}

// New creates a Renderer writing into dir with names suffixed by timestamp
func New(dir, timestamp string, workers int, logger *logrus.Logger) *Renderer {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Renderer{dir: dir, timestamp: timestamp, workers: workers, logger: logger}
}

type job struct {
	path string
	draw func(w io.Writer) error
}

// Render draws the avg/sum charts for every partition with data and the
// three monthly scatter charts when the monthly subset is non-empty. It
// returns the written paths in a stable order, including on failure.
func (r *Renderer) Render(ctx context.Context, profiles []usage.Profile, monthly []models.UsageRow) ([]string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	jobs := r.jobs(profiles, monthly)
	written := make([]bool, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := writePNG(j.path, j.draw); err != nil {
				return &ChartError{Path: j.path, Err: err}
			}
			written[i] = true
			r.logger.WithField("file", filepath.Base(j.path)).Debug("Chart written")
			return nil
		})
	}
	err := g.Wait()

	var paths []string
	for i, j := range jobs {
		if written[i] {
			paths = append(paths, j.path)
		}
	}
	return paths, err
}

func (r *Renderer) jobs(profiles []usage.Profile, monthly []models.UsageRow) []job {
	var jobs []job

	for _, p := range profiles {
		if !profileHasData(p) {
			r.logger.WithField("partition", p.Partition.Key()).Warn("No records in partition, skipping charts")
			continue
		}
		line := hourlyLineChart(p.Partition, p.Hours)
		bar := hourlyBarChart(p.Partition, p.Hours)
		jobs = append(jobs,
			job{
				path: filepath.Join(r.dir, AvgFileName(p.Partition, r.timestamp)),
				draw: func(w io.Writer) error { return line.Render(chart.PNG, w) },
			},
			job{
				path: filepath.Join(r.dir, SumFileName(p.Partition, r.timestamp)),
				draw: func(w io.Writer) error { return bar.Render(chart.PNG, w) },
			},
		)
	}

	if len(monthly) == 0 {
		r.logger.Warn("No records in the last full month, skipping summary charts")
		return jobs
	}

	title := fmt.Sprintf("Monthly Summary: %s", r.timestamp)
	for _, s := range scatterSpecs {
		sc := scatterChart(title, s.yName, monthly, s.value)
		jobs = append(jobs, job{
			path: filepath.Join(r.dir, s.file(r.timestamp)),
			draw: func(w io.Writer) error { return sc.Render(chart.PNG, w) },
		})
	}
	return jobs
}

// writePNG creates path, overwriting any existing file
func writePNG(path string, draw func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := draw(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
