package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/niklata/ncrond/core"
)

// HistoryRecord is one parsed line of a history file: "<id>=<exectime>:<numruns>|<lasttime>".
type HistoryRecord struct {
	ID       int
	ExecTime int64
	NumRuns  uint64
	LastTime int64
}

// ParseHistoryFile opens path and parses it with ParseHistory. A missing
// file is not an error: a fresh crontab has no history yet.
func ParseHistoryFile(path string) ([]HistoryRecord, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history file %q: %w", path, err)
	}
	defer f.Close()
	return ParseHistory(f)
}

// ParseHistory scans a history file's records: lines that don't match the
// canonical format are skipped, never fatal — a corrupt or truncated
// history file degrades to "no history".
func ParseHistory(r *os.File) ([]HistoryRecord, error) {
	var records []HistoryRecord
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, ok := parseHistoryLine(line)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("scan history file: %w", err)
	}
	return records, nil
}

func parseHistoryLine(line string) (HistoryRecord, bool) {
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return HistoryRecord{}, false
	}
	id, err := strconv.Atoi(line[:eq])
	if err != nil {
		return HistoryRecord{}, false
	}
	rest := line[eq+1:]
	colon := strings.IndexByte(rest, ':')
	bar := strings.IndexByte(rest, '|')
	if colon < 0 || bar < 0 || bar < colon {
		return HistoryRecord{}, false
	}
	execTime, err := strconv.ParseInt(rest[:colon], 10, 64)
	if err != nil {
		return HistoryRecord{}, false
	}
	numRuns, err := strconv.ParseUint(rest[colon+1:bar], 10, 64)
	if err != nil {
		return HistoryRecord{}, false
	}
	lastTime, err := strconv.ParseInt(rest[bar+1:], 10, 64)
	if err != nil {
		return HistoryRecord{}, false
	}
	return HistoryRecord{ID: id, ExecTime: execTime, NumRuns: numRuns, LastTime: lastTime}, true
}

// ApplyHistory overlays matching records onto jobs: numruns and lasttime
// are always overwritten; exectime is overwritten only for non-runat jobs.
// Jobs with no matching record are untouched. The caller must still call
// Job.SetInitialExecTime on every job afterward, matched or not.
func ApplyHistory(jobs []*core.Job, records []HistoryRecord) {
	byID := make(map[int]HistoryRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	for _, j := range jobs {
		rec, ok := byID[j.ID]
		if !ok {
			continue
		}
		j.NumRuns = rec.NumRuns
		j.LastTime = rec.LastTime
		if !j.RunAt {
			j.ExecTime = rec.ExecTime
		}
	}
}

// HistoryStore implements core.HistorySaver by writing the canonical
// "<id>=<exectime>:<numruns>|<lasttime>" format, one line per job, live
// queue first then dead, via the sibling-temp-file-then-rename pattern:
// never observed partially written by a concurrent reader.
type HistoryStore struct {
	Path string
}

// NewHistoryStore returns a HistoryStore that saves to path.
func NewHistoryStore(path string) *HistoryStore {
	return &HistoryStore{Path: path}
}

// Save writes live then dead jobs, in their queue order, to Path.
func (h *HistoryStore) Save(live, dead []*core.Job) error {
	tmpPath := h.Path + "~"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec
	if err != nil {
		return fmt.Errorf("open history temp file %q: %w", tmpPath, err)
	}

	w := bufio.NewWriter(f)
	writeErr := writeRecords(w, live)
	if writeErr == nil {
		writeErr = writeRecords(w, dead)
	}
	if writeErr == nil {
		writeErr = w.Flush()
	}
	closeErr := f.Close()

	if writeErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		if writeErr != nil {
			return fmt.Errorf("write history temp file %q: %w", tmpPath, writeErr)
		}
		return fmt.Errorf("close history temp file %q: %w", tmpPath, closeErr)
	}

	if err := os.Rename(tmpPath, h.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %q to %q: %w", tmpPath, h.Path, err)
	}
	return nil
}

func writeRecords(w *bufio.Writer, jobs []*core.Job) error {
	for _, j := range jobs {
		if _, err := fmt.Fprintf(w, "%d=%d:%d|%d\n", j.ID, j.ExecTime, j.NumRuns, j.LastTime); err != nil {
			return err
		}
	}
	return nil
}

// EnsureWritable is a pre-flight check: the history path must be
// creatable-or-writable before the daemon commits to running, so a
// misconfiguration is caught at startup rather than silently dropping the
// first save.
func EnsureWritable(path string) error {
	dir := filepath.Dir(path)
	probe := filepath.Join(dir, ".ncrond-writecheck~")
	f, err := os.OpenFile(probe, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("history path %q is not writable: %w", path, err)
	}
	f.Close()
	os.Remove(probe)
	return nil
}
