package usage

import (
	"fmt"
	"strconv"
	"time"

	"github.com/araddon/dateparse"

	"github.com/jgoulah/raemisreport/pkg/models"
)

// Column names the endpoint must provide
const (
	ColStartTime = "start_time"
	ColTxPackets = "tx_total_packets"
	ColRxPackets = "rx_total_packets"
)

const (
	// PacketSizeBytes is the assumed average packet size
	PacketSizeBytes = 1500
	// BytesPerMB converts to decimal megabytes
	BytesPerMB = 1_000_000
)

// FieldError reports a record that lacks a required column or holds a value
// that cannot be interpreted
type FieldError struct {
	Record int
	Column string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("record %d column %q: %v", e.Record, e.Column, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// PacketsToMB converts a packet count to decimal megabytes
func PacketsToMB(packets float64) float64 {
	return packets * PacketSizeBytes / BytesPerMB
}

// Derive parses start_time and computes the megabyte columns for every
// record. Timestamps without an offset are read in loc.
func Derive(table *models.Table, loc *time.Location) ([]models.UsageRow, error) {
	rows := make([]models.UsageRow, 0, table.Len())
	for i, rec := range table.Records {
		start, err := startTime(rec, loc)
		if err != nil {
			return nil, &FieldError{Record: i, Column: ColStartTime, Err: err}
		}
		tx, err := number(rec, ColTxPackets)
		if err != nil {
			return nil, &FieldError{Record: i, Column: ColTxPackets, Err: err}
		}
		rx, err := number(rec, ColRxPackets)
		if err != nil {
			return nil, &FieldError{Record: i, Column: ColRxPackets, Err: err}
		}

		rows = append(rows, models.UsageRow{
			StartTime: start,
			TxPackets: tx,
			RxPackets: rx,
			TxMB:      PacketsToMB(tx),
			RxMB:      PacketsToMB(rx),
			TxAndRxMB: PacketsToMB(tx + rx),
		})
	}
	return rows, nil
}

func startTime(rec models.Record, loc *time.Location) (time.Time, error) {
	v, ok := rec.Get(ColStartTime)
	if !ok {
		return time.Time{}, fmt.Errorf("missing")
	}
	if v.Kind != models.KindString {
		return time.Time{}, fmt.Errorf("expected a timestamp string, got %q", v.Text)
	}
	t, err := dateparse.ParseIn(v.Text, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q: %w", v.Text, err)
	}
	return t, nil
}

func number(rec models.Record, col string) (float64, error) {
	v, ok := rec.Get(col)
	if !ok {
		return 0, fmt.Errorf("missing")
	}
	if v.Kind != models.KindNumber && v.Kind != models.KindString {
		return 0, fmt.Errorf("expected a number, got %q", v.Text)
	}
	f, err := strconv.ParseFloat(v.Text, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", v.Text, err)
	}
	return f, nil
}
