package models

import "time"

// RunStatus is the outcome of one report run
type RunStatus string

const (
	StatusOK           RunStatus = "ok"
	StatusFetchError   RunStatus = "fetch_error"
	StatusParseError   RunStatus = "parse_error"
	StatusPersistError RunStatus = "persist_error"
	StatusRenderError  RunStatus = "render_error"
)

// PartitionSummary is the hourly profile of one partition
type PartitionSummary struct {
	Partition string            `json:"partition"`
	Records   int               `json:"records"`
	Hours     []HourlyAggregate `json:"hours"`
}

// RunSummary describes what one run fetched and wrote
type RunSummary struct {
	ID             string             `json:"id"`
	Timestamp      string             `json:"timestamp"` // YYYYMMDD_HHMMSS
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
	Status         RunStatus          `json:"status"`
	Error          string             `json:"error,omitempty"`
	Records        int                `json:"records"`
	MonthlyRecords int                `json:"monthly_records"`
	MonthStart     time.Time          `json:"month_start"`
	MonthEnd       time.Time          `json:"month_end"`
	CSVPath        string             `json:"csv_path,omitempty"`
	Charts         []string           `json:"charts,omitempty"`
	Partitions     []PartitionSummary `json:"partitions,omitempty"`
}
