package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFile(t *testing.T) {
	l := Load(filepath.Join(t.TempDir(), "nope.csv"))
	if l.Len() != 0 {
		t.Errorf("expected empty ledger, got %d entries", l.Len())
	}
	if l.Seen(12345) {
		t.Error("empty ledger should not report any job as seen")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	if err := os.WriteFile(path, []byte("\"unterminated,garbage\nmore"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := Load(path)
	if l.Len() != 0 {
		t.Errorf("corrupt file should load as empty ledger, got %d entries", l.Len())
	}
}

func TestAppendThenReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	l := Load(path)

	recs := []Record{
		{Timestamp: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC), JobID: 111, Title: "Data Engineer", Company: "Acme", Attempted: true, Result: ResultSubmitted},
		{Timestamp: time.Date(2026, 3, 1, 9, 35, 0, 0, time.UTC), JobID: 222, Title: "ML Engineer", Company: "Globex", Attempted: false, Result: ResultSkipped},
		{Timestamp: time.Date(2026, 3, 1, 9, 40, 0, 0, time.UTC), JobID: 333, Title: "SRE", Company: "Initech", Attempted: true, Result: ResultFailed},
	}
	for _, rec := range recs {
		if err := l.Append(rec); err != nil {
			t.Fatalf("Append(%d): %v", rec.JobID, err)
		}
	}

	for _, rec := range recs {
		if !l.Seen(rec.JobID) {
			t.Errorf("job %d should be seen after append", rec.JobID)
		}
	}

	reloaded := Load(path)
	if reloaded.Len() != len(recs) {
		t.Fatalf("reloaded ledger has %d entries, want %d", reloaded.Len(), len(recs))
	}
	for _, rec := range recs {
		if !reloaded.Seen(rec.JobID) {
			t.Errorf("job %d lost on reload", rec.JobID)
		}
	}
	if reloaded.Seen(999) {
		t.Error("reloaded ledger reports an unwritten job as seen")
	}

	got := reloaded.Records()
	if got[0].Title != "Data Engineer" || got[0].Company != "Acme" || !got[0].Attempted || got[0].Result != ResultSubmitted {
		t.Errorf("first record did not round-trip: %+v", got[0])
	}
	if got[1].Attempted {
		t.Error("skipped record should have Attempted=false")
	}
}

func TestLoadLegacyShortRows(t *testing.T) {
	// Ledgers written by earlier versions only recorded successes and sometimes
	// carried partial rows. Only the job ID column is required.
	path := filepath.Join(t.TempDir(), "ledger.csv")
	content := "2025-05-14 10:00:00,444,Old Job,Oldco,True,True\n" +
		"not-a-date,555\n" +
		"2025-05-14 11:00:00,notanumber,Bad,Row,True,True\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	l := Load(path)
	if l.Len() != 2 {
		t.Fatalf("want 2 loadable rows, got %d", l.Len())
	}
	if !l.Seen(444) || !l.Seen(555) {
		t.Error("legacy rows with valid job IDs should be seen")
	}
}

func TestAppendDuplicateID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	l := Load(path)
	rec := Record{Timestamp: time.Now(), JobID: 777, Result: ResultSubmitted}
	if err := l.Append(rec); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(rec); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 1 {
		t.Errorf("seen set should collapse duplicate IDs, got %d", l.Len())
	}
}
