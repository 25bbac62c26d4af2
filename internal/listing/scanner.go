package listing

import (
	"strings"

	"go.uber.org/zap"

	"github.com/usharma/easyapply/internal/ledger"
)

// fullPageThreshold is the listing count above which a page with no new jobs
// means "everything here was already seen" rather than "thin results": the
// caller should advance pagination instead of rescanning.
const fullPageThreshold = 23

// Scanner filters the tiles on a listing surface down to job IDs worth
// processing.
type Scanner struct {
	ledger    *ledger.Ledger
	blacklist []string
	log       *zap.Logger
}

func NewScanner(led *ledger.Ledger, blacklistTitles []string, log *zap.Logger) *Scanner {
	return &Scanner{ledger: led, blacklist: blacklistTitles, log: log.Named("scanner")}
}

// Scan returns the new job IDs on the page, in tile order, plus the total tile
// count. New means: not in the ledger and not matching a blacklisted title
// keyword.
func (s *Scanner) Scan(html string) (newIDs []int64, total int) {
	tiles := ExtractTiles(html)
	for _, tile := range tiles {
		if s.blacklisted(tile.Title) {
			s.log.Debug("skipping blacklisted title",
				zap.Int64("job_id", tile.ID), zap.String("title", tile.Title))
			continue
		}
		if s.ledger.Seen(tile.ID) {
			continue
		}
		newIDs = append(newIDs, tile.ID)
	}
	s.log.Info("scanned listing page",
		zap.Int("total", len(tiles)), zap.Int("new", len(newIDs)))
	return newIDs, len(tiles)
}

// PageExhausted reports that a full page held nothing new, which signals the
// caller to advance pagination rather than retry the same page.
func PageExhausted(total, newCount int) bool {
	return newCount == 0 && total > fullPageThreshold
}

func (s *Scanner) blacklisted(title string) bool {
	if title == "" {
		return false
	}
	lower := strings.ToLower(title)
	for _, word := range s.blacklist {
		if word != "" && strings.Contains(lower, strings.ToLower(word)) {
			return true
		}
	}
	return false
}
