package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/raemisreport/internal/config"
	"github.com/jgoulah/raemisreport/internal/fetcher"
	"github.com/jgoulah/raemisreport/internal/logging"
	"github.com/jgoulah/raemisreport/internal/render"
	"github.com/jgoulah/raemisreport/internal/snapshot"
	"github.com/jgoulah/raemisreport/internal/usage"
	"github.com/jgoulah/raemisreport/pkg/models"
)

var fixedNow = time.Date(2025, 7, 15, 10, 15, 0, 0, time.UTC)

// recordsJSON spans twelve days of June 2025 (summer) and October 2024
// (school year), every 5 hours so each partition sees many hours of the day.
func recordsJSON() string {
	var recs []string
	for _, start := range []time.Time{
		time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC),
	} {
		for i := 0; i < 12*24; i += 5 {
			ts := start.Add(time.Duration(i) * time.Hour)
			recs = append(recs, fmt.Sprintf(
				`{"id":%d,"start_time":"%s","tx_total_packets":%d,"rx_total_packets":%d,"imsi":null}`,
				len(recs), ts.Format("2006-01-02 15:04:05"), 1000+i*10, 4000+i*3))
		}
	}
	return "[" + strings.Join(recs, ",") + "]"
}

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "raemis" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(endpoint, outputDir string) *config.Config {
	cfg := config.Default()
	cfg.Endpoint = endpoint
	cfg.Username = "raemis"
	cfg.Password = "secret"
	cfg.Timezone = "UTC"
	cfg.OutputDir = outputDir
	cfg.Timeout = 5 * time.Second
	return cfg
}

func newPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	p, err := New(cfg,
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	return p
}

func TestRunEndToEnd(t *testing.T) {
	srv := newServer(t, http.StatusOK, recordsJSON())
	dir := filepath.Join(t.TempDir(), "reports")
	p := newPipeline(t, testConfig(srv.URL, dir))

	run, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "20250715_101500", run.Timestamp)
	assert.Equal(t, models.StatusOK, run.Status)
	assert.Empty(t, run.Error)
	assert.Equal(t, 2*58, run.Records)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), run.MonthStart)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), run.MonthEnd)
	assert.Equal(t, 58, run.MonthlyRecords)
	assert.Equal(t, ExitOK, ExitCode(run, err))

	assert.Equal(t, filepath.Join(dir, snapshot.FileName(run.Timestamp)), run.CSVPath)
	csv, err := os.ReadFile(run.CSVPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(csv), "\n"), "\n")
	require.Len(t, lines, 1+run.Records)
	assert.Equal(t, "id,start_time,tx_total_packets,rx_total_packets,imsi", lines[0])
	assert.Equal(t, "0,2025-06-18 00:00:00,1000,4000,", lines[1])

	// four partitions with data plus three monthly charts
	assert.Len(t, run.Charts, 4*2+3)
	for _, path := range run.Charts {
		assert.FileExists(t, path)
	}
	assert.Contains(t, run.Charts, filepath.Join(dir, render.TxRxSummaryFileName(run.Timestamp)))

	require.Len(t, run.Partitions, 4)
	total := 0
	for i, part := range run.Partitions {
		assert.Equal(t, models.Partitions[i].Key(), part.Partition)
		assert.NotEmpty(t, part.Hours)
		total += part.Records
	}
	assert.Equal(t, run.Records, total)
}

func TestRunMalformedJSONWritesNothing(t *testing.T) {
	srv := newServer(t, http.StatusOK, `[{"start_time": "2025-06-02 00:00:00",`)
	dir := filepath.Join(t.TempDir(), "reports")
	p := newPipeline(t, testConfig(srv.URL, dir))

	run, err := p.Run(context.Background())
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	var decodeErr *fetcher.DecodeError
	assert.True(t, errors.As(err, &decodeErr))

	assert.Equal(t, models.StatusParseError, run.Status)
	assert.Empty(t, run.CSVPath)
	assert.Equal(t, ExitFailed, ExitCode(run, err))
	assert.NoDirExists(t, dir)
}

func TestRunNon2xxIsFetchError(t *testing.T) {
	srv := newServer(t, http.StatusInternalServerError, "database is locked")
	dir := filepath.Join(t.TempDir(), "reports")
	p := newPipeline(t, testConfig(srv.URL, dir))

	run, err := p.Run(context.Background())
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	var statusErr *fetcher.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)

	assert.Equal(t, models.StatusFetchError, run.Status)
	assert.Contains(t, run.Error, "500")
	assert.Equal(t, ExitFailed, ExitCode(run, err))
	assert.NoDirExists(t, dir)
}

func TestRunWrongCredentials(t *testing.T) {
	srv := newServer(t, http.StatusOK, recordsJSON())
	cfg := testConfig(srv.URL, t.TempDir())
	cfg.Password = "wrong"
	p := newPipeline(t, cfg)

	_, err := p.Run(context.Background())
	var statusErr *fetcher.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestRunMissingFieldIsPartial(t *testing.T) {
	srv := newServer(t, http.StatusOK, `[{"start_time":"2025-06-02 00:00:00","tx_total_packets":1}]`)
	dir := t.TempDir()
	p := newPipeline(t, testConfig(srv.URL, dir))

	run, err := p.Run(context.Background())
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	var fieldErr *usage.FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, usage.ColRxPackets, fieldErr.Column)

	// the snapshot is written before records are derived
	assert.FileExists(t, run.CSVPath)
	assert.Equal(t, ExitPartial, ExitCode(run, err))
}

func TestRunPersistError(t *testing.T) {
	srv := newServer(t, http.StatusOK, recordsJSON())
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	p := newPipeline(t, testConfig(srv.URL, blocker))

	run, err := p.Run(context.Background())
	var persistErr *PersistError
	require.True(t, errors.As(err, &persistErr))
	assert.Equal(t, models.StatusPersistError, run.Status)
	assert.Equal(t, ExitFailed, ExitCode(run, err))
}

func TestRunRenderErrorNamesChart(t *testing.T) {
	srv := newServer(t, http.StatusOK, recordsJSON())
	dir := t.TempDir()
	// a directory where a chart file should go makes that chart unwritable
	blocked := render.TxSummaryFileName(fixedNow.Format(TimestampLayout))
	require.NoError(t, os.Mkdir(filepath.Join(dir, blocked), 0755))
	p := newPipeline(t, testConfig(srv.URL, dir))

	run, err := p.Run(context.Background())
	require.Error(t, err)

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	var chartErr *render.ChartError
	require.True(t, errors.As(err, &chartErr))
	assert.Contains(t, err.Error(), blocked)

	assert.Equal(t, models.StatusRenderError, run.Status)
	assert.FileExists(t, run.CSVPath)
	assert.Equal(t, ExitPartial, ExitCode(run, err))

	// charts written before the failure are still listed
	assert.NotEmpty(t, run.Charts)
	assert.NotContains(t, run.Charts, filepath.Join(dir, blocked))
	for _, path := range run.Charts {
		assert.FileExists(t, path)
	}
}

func TestRunEmptyArray(t *testing.T) {
	srv := newServer(t, http.StatusOK, `[]`)
	dir := t.TempDir()
	p := newPipeline(t, testConfig(srv.URL, dir))

	run, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, run.Records)
	assert.Empty(t, run.Charts)
	assert.FileExists(t, run.CSVPath)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("", t.TempDir())
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, models.StatusOK, StatusOf(nil))
	assert.Equal(t, models.StatusFetchError, StatusOf(&FetchError{Err: errors.New("x")}))
	assert.Equal(t, models.StatusParseError, StatusOf(&ParseError{Err: errors.New("x")}))
	assert.Equal(t, models.StatusPersistError, StatusOf(&PersistError{Err: errors.New("x")}))
	assert.Equal(t, models.StatusRenderError, StatusOf(fmt.Errorf("wrapped: %w", &RenderError{Err: errors.New("x")})))
}
