// Package report derives a read-only summary from the ledger. It is a pure
// projection of recorded outcomes; nothing here feeds back into the session.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/usharma/easyapply/internal/ledger"
)

// topCompanyCount caps the companies listed in the summary.
const topCompanyCount = 5

// CompanyCount is one company with its application count.
type CompanyCount struct {
	Company string
	Count   int
}

// Summary aggregates a ledger.
type Summary struct {
	Total        int
	Attempted    int
	ByResult     map[ledger.Result]int
	SuccessRate  float64
	TopCompanies []CompanyCount
}

// Summarize computes the summary for the records.
func Summarize(records []ledger.Record) Summary {
	s := Summary{ByResult: make(map[ledger.Result]int)}
	companies := make(map[string]int)

	for _, rec := range records {
		s.Total++
		if rec.Attempted {
			s.Attempted++
		}
		s.ByResult[rec.Result]++
		if rec.Company != "" && rec.Company != "Unknown" {
			companies[rec.Company]++
		}
	}

	if s.Total > 0 {
		s.SuccessRate = float64(s.ByResult[ledger.ResultSubmitted]) / float64(s.Total) * 100
	}

	for company, count := range companies {
		s.TopCompanies = append(s.TopCompanies, CompanyCount{Company: company, Count: count})
	}
	sort.Slice(s.TopCompanies, func(i, j int) bool {
		if s.TopCompanies[i].Count != s.TopCompanies[j].Count {
			return s.TopCompanies[i].Count > s.TopCompanies[j].Count
		}
		return s.TopCompanies[i].Company < s.TopCompanies[j].Company
	})
	if len(s.TopCompanies) > topCompanyCount {
		s.TopCompanies = s.TopCompanies[:topCompanyCount]
	}
	return s
}

// Render writes the summary as the plain-text application report.
func (s Summary) Render(w io.Writer) error {
	var err error
	p := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	p("Easy Apply - Application Report\n")
	p("Generated on: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	p("Total applications: %d\n", s.Total)
	p("Attempted: %d\n", s.Attempted)
	p("Submitted: %d\n", s.ByResult[ledger.ResultSubmitted])
	p("Skipped: %d\n", s.ByResult[ledger.ResultSkipped])
	p("Failed: %d\n", s.ByResult[ledger.ResultFailed])
	p("Incomplete: %d\n", s.ByResult[ledger.ResultIncomplete])
	p("Success rate: %.2f%%\n", s.SuccessRate)

	if len(s.TopCompanies) > 0 {
		p("\nTop companies applied to:\n")
		for _, cc := range s.TopCompanies {
			p("- %s: %d\n", cc.Company, cc.Count)
		}
	}
	return err
}
