package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/jgoulah/raemisreport/pkg/models"
	_ "modernc.org/sqlite"
)

// timeLayout is RFC3339 with fixed-width nanoseconds, so stored UTC
// timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps the run ledger connection
type DB struct {
	conn *sql.DB
}

// New opens the ledger and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		records INTEGER NOT NULL DEFAULT 0,
		monthly_records INTEGER NOT NULL DEFAULT 0,
		month_start TEXT,
		month_end TEXT,
		csv_path TEXT,
		charts TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

	CREATE TABLE IF NOT EXISTS hourly_aggregates (
		run_id TEXT NOT NULL REFERENCES runs(id),
		partition TEXT NOT NULL,
		hour INTEGER NOT NULL,
		mean REAL NOT NULL,
		sum REAL NOT NULL,
		count INTEGER NOT NULL,
		std REAL,
		UNIQUE(run_id, partition, hour)
	);
	CREATE INDEX IF NOT EXISTS idx_aggregates_run ON hourly_aggregates(run_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertRun stores a run summary and its hourly aggregates
func (db *DB) InsertRun(run *models.RunSummary) error {
	charts, err := json.Marshal(run.Charts)
	if err != nil {
		return fmt.Errorf("encoding chart list: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
	INSERT OR REPLACE INTO runs (id, timestamp, started_at, finished_at, status, error,
		records, monthly_records, month_start, month_end, csv_path, charts, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Timestamp, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		string(run.Status), run.Error, run.Records, run.MonthlyRecords,
		formatTime(run.MonthStart), formatTime(run.MonthEnd), run.CSVPath, string(charts),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM hourly_aggregates WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clearing aggregates: %w", err)
	}

	for _, p := range run.Partitions {
		for _, h := range p.Hours {
			var std sql.NullFloat64
			if h.HasStdDev() {
				std = sql.NullFloat64{Float64: h.StdDev, Valid: true}
			}
			_, err := tx.Exec(`
			INSERT INTO hourly_aggregates (run_id, partition, hour, mean, sum, count, std)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			`, run.ID, p.Partition, h.Hour, h.Mean, h.Sum, h.Count, std)
			if err != nil {
				return fmt.Errorf("inserting aggregate %s/%d: %w", p.Partition, h.Hour, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first, without aggregates.
// A limit of 0 returns every run.
func (db *DB) ListRuns(limit int) ([]models.RunSummary, error) {
	query := `
	SELECT id, timestamp, started_at, finished_at, status, error, records,
		monthly_records, month_start, month_end, csv_path, charts
	FROM runs
	ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var results []models.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *run)
	}

	return results, rows.Err()
}

// GetRun retrieves one run with its aggregates, nil when not found
func (db *DB) GetRun(id string) (*models.RunSummary, error) {
	row := db.conn.QueryRow(`
	SELECT id, timestamp, started_at, finished_at, status, error, records,
		monthly_records, month_start, month_end, csv_path, charts
	FROM runs
	WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.Partitions, err = db.listAggregates(id)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (db *DB) listAggregates(runID string) ([]models.PartitionSummary, error) {
	rows, err := db.conn.Query(`
	SELECT partition, hour, mean, sum, count, std
	FROM hourly_aggregates
	WHERE run_id = ?
	ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying aggregates: %w", err)
	}
	defer rows.Close()

	var results []models.PartitionSummary
	for rows.Next() {
		var partition string
		var h models.HourlyAggregate
		var std sql.NullFloat64
		if err := rows.Scan(&partition, &h.Hour, &h.Mean, &h.Sum, &h.Count, &std); err != nil {
			return nil, fmt.Errorf("scanning aggregate: %w", err)
		}
		h.StdDev = math.NaN()
		if std.Valid {
			h.StdDev = std.Float64
		}

		if n := len(results); n == 0 || results[n-1].Partition != partition {
			results = append(results, models.PartitionSummary{Partition: partition})
		}
		last := &results[len(results)-1]
		last.Hours = append(last.Hours, h)
		last.Records += h.Count
	}

	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.RunSummary, error) {
	var run models.RunSummary
	var status string
	var startedAt, finishedAt string
	var errText, monthStart, monthEnd, csvPath, charts sql.NullString

	err := s.Scan(&run.ID, &run.Timestamp, &startedAt, &finishedAt, &status, &errText,
		&run.Records, &run.MonthlyRecords, &monthStart, &monthEnd, &csvPath, &charts)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	run.Status = models.RunStatus(status)
	run.Error = errText.String
	run.CSVPath = csvPath.String

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if run.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parsing finished_at: %w", err)
	}
	if run.MonthStart, err = parseTime(monthStart.String); err != nil {
		return nil, fmt.Errorf("parsing month_start: %w", err)
	}
	if run.MonthEnd, err = parseTime(monthEnd.String); err != nil {
		return nil, fmt.Errorf("parsing month_end: %w", err)
	}

	if charts.Valid && charts.String != "" {
		if err := json.Unmarshal([]byte(charts.String), &run.Charts); err != nil {
			return nil, fmt.Errorf("decoding chart list: %w", err)
		}
	}

	return &run, nil
}

// formatTime stores UTC so that text order is time order
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
