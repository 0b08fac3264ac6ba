package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jgoulah/raemisreport/internal/config"
	"github.com/jgoulah/raemisreport/internal/fetcher"
	"github.com/jgoulah/raemisreport/internal/render"
	"github.com/jgoulah/raemisreport/internal/snapshot"
	"github.com/jgoulah/raemisreport/internal/usage"
	"github.com/jgoulah/raemisreport/pkg/models"
)

// TimestampLayout names every file written by one run
const TimestampLayout = "20060102_150405"

// Pipeline runs fetch, snapshot, derive, aggregate and render once per Run
type Pipeline struct {
	endpoint  string
	outputDir string
	workers   int
	loc       *time.Location
	calendar  *usage.Calendar
	fetcher   *fetcher.Fetcher
	logger    *logrus.Logger
	now       func() time.Time
}

// Option configures a Pipeline
type Option func(*pipelineOptions)

type pipelineOptions struct {
	logger *logrus.Logger
	now    func() time.Time
	client *http.Client
}

// WithLogger sets the logger for stage progress
func WithLogger(logger *logrus.Logger) Option {
	return func(o *pipelineOptions) {
		o.logger = logger
	}
}

// WithClock replaces time.Now for the run timestamp and month window
func WithClock(now func() time.Time) Option {
	return func(o *pipelineOptions) {
		o.now = now
	}
}

// WithHTTPClient replaces the client the fetcher builds from the config
func WithHTTPClient(client *http.Client) Option {
	return func(o *pipelineOptions) {
		o.client = client
	}
}

// New validates cfg and resolves everything a run needs
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	o := pipelineOptions{
		logger: logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loc, err := cfg.GetLocation()
	if err != nil {
		return nil, err
	}
	ranges, err := cfg.GetSchoolYearRanges(loc)
	if err != nil {
		return nil, err
	}
	outputDir, err := cfg.GetOutputDir()
	if err != nil {
		return nil, err
	}

	fetchOpts := []fetcher.Option{fetcher.WithLogger(o.logger)}
	if o.client != nil {
		fetchOpts = append(fetchOpts, fetcher.WithHTTPClient(o.client))
	}

	return &Pipeline{
		endpoint:  cfg.Endpoint,
		outputDir: outputDir,
		workers:   cfg.GetRenderWorkers(),
		loc:       loc,
		calendar:  usage.NewCalendar(ranges, loc),
		fetcher:   fetcher.New(cfg, fetchOpts...),
		logger:    o.logger,
		now:       o.now,
	}, nil
}

// OutputDir is where snapshots and charts are written
func (p *Pipeline) OutputDir() string {
	return p.outputDir
}

// Run executes one report. The returned summary is never nil; its Status
// and Error mirror the returned error, which is one of FetchError,
// ParseError, PersistError or RenderError.
func (p *Pipeline) Run(ctx context.Context) (*models.RunSummary, error) {
	started := p.now().In(p.loc)
	window := usage.LastFullMonth(started, p.loc)

	run := &models.RunSummary{
		ID:         uuid.New().String(),
		Timestamp:  started.Format(TimestampLayout),
		StartedAt:  started,
		MonthStart: window.Start,
		MonthEnd:   window.End,
	}
	log := p.logger.WithField("run", run.ID)

	err := p.run(ctx, run, window, log)

	run.FinishedAt = p.now().In(p.loc)
	run.Status = StatusOf(err)
	if err != nil {
		run.Error = err.Error()
		log.WithError(err).Errorf("Run failed with status %s", run.Status)
	} else {
		log.WithField("charts", len(run.Charts)).Info("Run complete")
	}
	return run, err
}

func (p *Pipeline) run(ctx context.Context, run *models.RunSummary, window usage.Window, log *logrus.Entry) error {
	table, err := p.fetcher.Fetch(ctx)
	if err != nil {
		var decodeErr *fetcher.DecodeError
		if errors.As(err, &decodeErr) {
			return &ParseError{Err: err}
		}
		return &FetchError{Endpoint: p.endpoint, Err: err}
	}
	run.Records = table.Len()

	csvPath, err := snapshot.Write(p.outputDir, run.Timestamp, table)
	if err != nil {
		return &PersistError{Dir: p.outputDir, Err: err}
	}
	run.CSVPath = csvPath
	log.WithField("path", csvPath).Info("Data saved")

	rows, err := usage.Derive(table, p.loc)
	if err != nil {
		return &ParseError{Err: err}
	}

	profiles := p.calendar.Profiles(rows)
	for _, prof := range profiles {
		run.Partitions = append(run.Partitions, models.PartitionSummary{
			Partition: prof.Partition.Key(),
			Records:   prof.Records,
			Hours:     prof.Hours,
		})
		log.WithFields(logrus.Fields{
			"partition": prof.Partition.Key(),
			"records":   prof.Records,
			"hours":     len(prof.Hours),
		}).Debug("Aggregated partition")
	}

	monthly := window.Filter(rows)
	run.MonthlyRecords = len(monthly)
	log.WithFields(logrus.Fields{
		"month_start": window.Start.Format("2006-01-02"),
		"records":     len(monthly),
	}).Info("Selected last full month")

	renderer := render.New(p.outputDir, run.Timestamp, p.workers, p.logger)
	charts, err := renderer.Render(ctx, profiles, monthly)
	run.Charts = charts
	if err != nil {
		return &RenderError{Err: err}
	}
	return nil
}
