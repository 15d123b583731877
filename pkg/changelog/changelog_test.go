package changelog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndReadBack(t *testing.T) {
	log := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, log.Record(ctx, Record{
		Command:     "replace",
		Path:        "src/main.go",
		Action:      "applied",
		LineSummary: "L3",
		Spans:       []Span{{Kind: "modified", Start: 3, End: 3}},
	}))

	records, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "replace", records[0].Command)
	assert.Equal(t, "applied", records[0].Action)
	assert.NotEmpty(t, records[0].Timestamp)
	require.Len(t, records[0].Spans, 1)
	assert.Equal(t, "modified", records[0].Spans[0].Kind)
}

func TestReadAll_MissingLogIsEmpty(t *testing.T) {
	log := New(t.TempDir())
	records, err := log.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecord_CapsAtMaxRecords(t *testing.T) {
	log := New(t.TempDir())
	ctx := context.Background()

	for i := 0; i < maxRecords+25; i++ {
		require.NoError(t, log.Record(ctx, Record{
			Command: "replace",
			Path:    fmt.Sprintf("file-%d.txt", i),
			Action:  "applied",
		}))
	}

	records, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, maxRecords)
	// The oldest rows are the ones dropped.
	assert.Equal(t, "file-25.txt", records[0].Path)
}

func TestReadRecent(t *testing.T) {
	log := New(t.TempDir())
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, log.Record(ctx, Record{
			Command: "rename",
			Path:    fmt.Sprintf("f%d", i),
			Action:  "applied",
		}))
	}

	records, err := log.ReadRecent(3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "f7", records[0].Path)
	assert.Equal(t, "f9", records[2].Path)
}

func TestReadAll_SkipsCorruptRows(t *testing.T) {
	dir := t.TempDir()
	log := New(dir)
	require.NoError(t, log.Record(context.Background(), Record{Command: "block", Path: "a", Action: "applied"}))

	path := filepath.Join(dir, logDirName, logFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, err := log.ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestReport(t *testing.T) {
	now := time.Now().UTC()
	old := now.Add(-48 * time.Hour)
	records := []Record{
		{Timestamp: old.Format(time.RFC3339), Command: "replace", Action: "applied"},
		{Timestamp: now.Format(time.RFC3339), Command: "replace", Action: "applied"},
		{Timestamp: now.Format(time.RFC3339), Command: "replace", Action: "skipped"},
		{Timestamp: now.Format(time.RFC3339), Command: "apply", Action: "applied"},
	}

	t.Run("unfiltered_counts_everything", func(t *testing.T) {
		rows := Report(records, time.Time{})
		require.Len(t, rows, 3)
		assert.Equal(t, ReportRow{Command: "apply", Action: "applied", Count: 1}, rows[0])
		assert.Equal(t, ReportRow{Command: "replace", Action: "applied", Count: 2}, rows[1])
		assert.Equal(t, ReportRow{Command: "replace", Action: "skipped", Count: 1}, rows[2])
	})

	t.Run("since_filters_old_rows", func(t *testing.T) {
		rows := Report(records, now.Add(-time.Hour))
		require.Len(t, rows, 3)
		assert.Equal(t, ReportRow{Command: "replace", Action: "applied", Count: 1}, rows[1])
	})

	t.Run("bad_timestamps_dropped_when_filtering", func(t *testing.T) {
		bad := []Record{{Timestamp: "not-a-time", Command: "x", Action: "y"}}
		assert.Empty(t, Report(bad, now))
		assert.Len(t, Report(bad, time.Time{}), 1)
	})
}
