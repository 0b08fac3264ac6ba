package snapshot

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/raemisreport/internal/fetcher"
)

func TestWriteKeepsColumnOrder(t *testing.T) {
	table, err := fetcher.DecodeTable(strings.NewReader(`[
		{"start_time": "2025-06-02 05:10:00", "tx_total_packets": 10, "rx_total_packets": 20},
		{"start_time": "2025-06-02 06:00:00", "rx_total_packets": 5, "tx_total_packets": 7, "note": "a,b", "ok": true, "gone": null}
	]`))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "reports")
	path, err := Write(dir, "20250715_101500", table)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data_20250715_101500.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"start_time", "tx_total_packets", "rx_total_packets", "note", "ok", "gone"}, rows[0])
	assert.Equal(t, []string{"2025-06-02 05:10:00", "10", "20", "", "", ""}, rows[1])
	assert.Equal(t, []string{"2025-06-02 06:00:00", "7", "5", "a,b", "True", ""}, rows[2])
}

func TestWriteOverwrites(t *testing.T) {
	dir := t.TempDir()
	table, err := fetcher.DecodeTable(strings.NewReader(`[{"a": 1}]`))
	require.NoError(t, err)

	path := filepath.Join(dir, FileName("ts"))
	require.NoError(t, os.WriteFile(path, []byte("stale contents that are longer than the new file\n"), 0644))

	_, err = Write(dir, "ts", table)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(data))
}

func TestWriteEmptyTable(t *testing.T) {
	table, err := fetcher.DecodeTable(strings.NewReader(`[]`))
	require.NoError(t, err)

	path, err := Write(t.TempDir(), "ts", table)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\n", string(data))
}
