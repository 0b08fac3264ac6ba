package snapshot

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jgoulah/raemisreport/pkg/models"
)

// FileName returns the snapshot file name for a run timestamp
func FileName(timestamp string) string {
	return fmt.Sprintf("data_%s.csv", timestamp)
}

// Write stores the table as data_<timestamp>.csv in dir, creating dir if
// needed, and returns the file path. An existing file is overwritten.
func Write(dir, timestamp string, table *models.Table) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(timestamp))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating snapshot file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(table.Columns); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	row := make([]string, len(table.Columns))
	for i, rec := range table.Records {
		for j, col := range table.Columns {
			row[j] = ""
			if v, ok := rec.Get(col); ok {
				row[j] = Cell(v)
			}
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing record %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing snapshot: %w", err)
	}

	return path, nil
}

// Cell renders one value as a CSV cell: null is empty, booleans are
// True/False, numbers keep their literal text.
func Cell(v models.Value) string {
	switch v.Kind {
	case models.KindNull:
		return ""
	case models.KindBool:
		if v.Text == "true" {
			return "True"
		}
		return "False"
	default:
		return v.Text
	}
}
