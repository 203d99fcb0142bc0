// Package activity keeps a CSV history of the changes made to a project.
package activity

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry is one row of the activity log.
type Entry struct {
	Timestamp  time.Time
	Command    string
	Action     string
	Details    string
	Ledgers    int
	CommitHash string
}

// Header is the CSV header of activity.csv.
const Header = "timestamp,command,action,details,ledgers,commit_hash"

const (
	numFields     = 6
	logDir        = "logs"
	logFile       = "logs/activity.csv"
	colTimestamp  = 0
	colCommand    = 1
	colAction     = 2
	colDetails    = 3
	colLedgers    = 4
	colCommitHash = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colCommand] = e.Command
	row[colAction] = e.Action
	row[colDetails] = e.Details
	row[colLedgers] = strconv.Itoa(e.Ledgers)
	row[colCommitHash] = e.CommitHash
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	n := 0
	if record[colLedgers] != "" {
		if n, err = strconv.Atoi(record[colLedgers]); err != nil {
			return Entry{}, fmt.Errorf("parsing ledger count %q: %w", record[colLedgers], err)
		}
	}
	return Entry{
		Timestamp:  ts,
		Command:    record[colCommand],
		Action:     record[colAction],
		Details:    record[colDetails],
		Ledgers:    n,
		CommitHash: record[colCommitHash],
	}, nil
}

// Append writes entries to <root>/logs/activity.csv, creating the file and
// header if needed.
func Append(root string, entries ...Entry) error {
	if err := os.MkdirAll(filepath.Join(root, logDir), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns every entry of <root>/logs/activity.csv, or nothing when the
// log does not exist yet.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, logFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()
	return readEntries(f)
}

// Tail returns the last n entries.
func Tail(root string, n int) ([]Entry, error) {
	all, err := Read(root)
	if err != nil || n <= 0 || len(all) <= n {
		return all, err
	}
	return all[len(all)-n:], nil
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading activity log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
