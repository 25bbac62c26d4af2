package ledger

import (
	"strconv"
	"time"
)

// Result is the terminal outcome of processing a single job listing.
type Result string

const (
	ResultSubmitted  Result = "submitted"
	ResultSkipped    Result = "skipped"
	ResultFailed     Result = "failed"
	ResultIncomplete Result = "incomplete"
)

// timestampLayout matches the ledger files written by earlier versions of the tool,
// so old files stay loadable.
const timestampLayout = "2006-01-02 15:04:05"

// Record is one processed job. Records are immutable once written and are only
// ever appended to the ledger, never rewritten.
type Record struct {
	Timestamp time.Time
	JobID     int64
	Title     string
	Company   string
	Attempted bool
	Result    Result
}

// row renders the record as a CSV row in the fixed six-column layout:
// timestamp, jobID, job, company, attempted, result.
func (r Record) row() []string {
	return []string{
		r.Timestamp.Format(timestampLayout),
		strconv.FormatInt(r.JobID, 10),
		r.Title,
		r.Company,
		strconv.FormatBool(r.Attempted),
		string(r.Result),
	}
}

// parseRow reconstructs a record from a CSV row. Rows written by older versions
// may carry fewer columns or unparseable values; only the job ID is required.
func parseRow(row []string) (Record, bool) {
	if len(row) < 2 {
		return Record{}, false
	}
	id, err := strconv.ParseInt(row[1], 10, 64)
	if err != nil {
		return Record{}, false
	}
	rec := Record{JobID: id}
	if ts, err := time.Parse(timestampLayout, row[0]); err == nil {
		rec.Timestamp = ts
	}
	if len(row) > 2 {
		rec.Title = row[2]
	}
	if len(row) > 3 {
		rec.Company = row[3]
	}
	if len(row) > 4 {
		rec.Attempted, _ = strconv.ParseBool(row[4])
	}
	if len(row) > 5 {
		rec.Result = Result(row[5])
	}
	return rec, true
}
