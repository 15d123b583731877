// Package changelog keeps an append-only NDJSON record of what each
// command did to each file. The log is capped at a fixed number of recent
// records so it never grows without bound.
package changelog

import (
	"bufio"
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	logDirName  = ".redline"
	logFileName = "change_log.jsonl"
	maxRecords  = 500
)

// Span is one changed line range as recorded in the log. Kind is
// "modified" or "added".
type Span struct {
	Kind  string `json:"kind"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Record is one change-log row.
type Record struct {
	Timestamp   string `json:"timestamp"`
	Command     string `json:"command"`
	Path        string `json:"path"`
	Action      string `json:"action"`
	LineSummary string `json:"lines"`
	Spans       []Span `json:"spans,omitempty"`
}

// Log is a change log rooted at a working directory; records live in
// <root>/.redline/change_log.jsonl.
type Log struct {
	root string
}

// New builds a log rooted at root; an empty root means the current
// directory.
func New(root string) *Log {
	if root == "" {
		root = "."
	}
	return &Log{root: root}
}

func (l *Log) path() string {
	return filepath.Join(l.root, logDirName, logFileName)
}

// Record appends one row and trims the log to the newest records. A
// missing timestamp is filled with the current UTC time.
func (l *Log) Record(ctx context.Context, record Record) error {
	if record.Timestamp == "" {
		record.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	dir := filepath.Dir(l.path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Errorf("creating %s: %w", dir, err)
	}

	row, err := json.Marshal(record)
	if err != nil {
		return errors.Errorf("encoding change log record: %w", err)
	}

	file, err := os.OpenFile(l.path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Errorf("opening %s: %w", l.path(), err)
	}
	_, writeErr := file.Write(append(row, '\n'))
	closeErr := file.Close()
	if writeErr != nil {
		return errors.Errorf("appending to %s: %w", l.path(), writeErr)
	}
	if closeErr != nil {
		return errors.Errorf("closing %s: %w", l.path(), closeErr)
	}

	if err := l.truncate(); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", record.Path).
		Str("action", record.Action).
		Msg("recorded change")
	return nil
}

func (l *Log) truncate() error {
	lines, err := l.readLines()
	if err != nil {
		return err
	}
	if len(lines) <= maxRecords {
		return nil
	}
	keep := lines[len(lines)-maxRecords:]
	content := strings.Join(keep, "\n") + "\n"
	if err := os.WriteFile(l.path(), []byte(content), 0o644); err != nil {
		return errors.Errorf("rewriting %s: %w", l.path(), err)
	}
	return nil
}

// ReadAll returns every record in the log, oldest first. A missing log
// file reads as empty.
func (l *Log) ReadAll() ([]Record, error) {
	lines, err := l.readLines()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			// Half-written rows are skipped rather than poisoning reads.
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// ReadRecent returns the newest n records, oldest first.
func (l *Log) ReadRecent(n int) ([]Record, error) {
	records, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}

func (l *Log) readLines() ([]string, error) {
	file, err := os.Open(l.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Errorf("reading %s: %w", l.path(), err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Errorf("scanning %s: %w", l.path(), err)
	}
	return lines, nil
}

// ReportRow is one aggregated (command, action) count.
type ReportRow struct {
	Command string `json:"command"`
	Action  string `json:"action"`
	Count   int    `json:"count"`
}

// Report aggregates records by command and action, keeping only records at
// or after since when it is non-zero. Rows come back sorted by command
// then action. Records with unparsable timestamps are dropped from
// filtered reports.
func Report(records []Record, since time.Time) []ReportRow {
	counts := map[[2]string]int{}
	for _, record := range records {
		if !since.IsZero() {
			ts, err := time.Parse(time.RFC3339, record.Timestamp)
			if err != nil {
				continue
			}
			if ts.Before(since) {
				continue
			}
		}
		counts[[2]string{record.Command, record.Action}]++
	}

	rows := make([]ReportRow, 0, len(counts))
	for key, count := range counts {
		rows = append(rows, ReportRow{Command: key[0], Action: key[1], Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Command != rows[j].Command {
			return rows[i].Command < rows[j].Command
		}
		return rows[i].Action < rows[j].Action
	})
	return rows
}
