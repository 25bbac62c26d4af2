// Package ledger maintains the durable record of job IDs that have already been
// processed, backed by an append-only CSV file. The ledger is reconstructed from
// the file at startup and consulted before any job is handed to the application
// flow, which is what prevents re-applying to the same listing across runs.
package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

// Ledger is the dedup set plus its backing file. The set only grows: entries are
// appended on every definitive outcome and never removed.
type Ledger struct {
	mu      sync.Mutex
	path    string
	seen    map[int64]struct{}
	records []Record
}

// Load reconstructs a ledger from the CSV file at path. A missing, unreadable or
// corrupt file yields an empty ledger rather than an error: a fresh start is
// always valid, and a ledger that fails to parse must not block the session.
func Load(path string) *Ledger {
	l := &Ledger{path: path, seen: make(map[int64]struct{})}

	f, err := os.Open(path)
	if err != nil {
		return l
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return l
	}
	for _, row := range rows {
		rec, ok := parseRow(row)
		if !ok {
			continue
		}
		if _, dup := l.seen[rec.JobID]; dup {
			continue
		}
		l.seen[rec.JobID] = struct{}{}
		l.records = append(l.records, rec)
	}
	return l
}

// Seen reports whether the job ID has already been processed.
func (l *Ledger) Seen(jobID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[jobID]
	return ok
}

// Len returns the number of distinct job IDs in the ledger.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// Records returns a copy of the loaded and appended records, in order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Append writes the record to the backing file and only then adds it to the
// in-memory set. The file write is flushed before the set is updated so that a
// crash in between can at worst cause a duplicate skip on the next run, never a
// silently lost outcome.
func (l *Ledger) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &WriteError{Message: fmt.Sprintf("opening ledger file %s", l.path), Cause: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(rec.row()); err != nil {
		return &WriteError{Message: "writing ledger row", Cause: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &WriteError{Message: "flushing ledger row", Cause: err}
	}

	if _, dup := l.seen[rec.JobID]; !dup {
		l.seen[rec.JobID] = struct{}{}
	}
	l.records = append(l.records, rec)
	return nil
}
