// Package listing turns a rendered search-results surface into candidate job
// IDs, filtered by the title blacklist and the dedup ledger.
package listing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Tile is one job card on the listing surface.
type Tile struct {
	ID    int64
	Title string
}

// unreadPrefix strips the "(3) " unread-count prefix the site prepends to the
// page title.
var unreadPrefix = regexp.MustCompile(`^\(\d+\)\s*`)

// ExtractTiles returns the ordered distinct job tiles present in the markup.
// Promoted listings repeat the same job ID in several tiles; duplicates collapse
// by ID, keeping the first position. Empty, partial or malformed markup yields
// an empty slice: a listing page that failed to render is not an error here.
func ExtractTiles(html string) []Tile {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[int64]struct{})
	var tiles []Tile

	doc.Find("div[data-job-id]").Each(func(_ int, s *goquery.Selection) {
		raw, ok := s.Attr("data-job-id")
		if !ok || raw == "" {
			return
		}
		// Attribute values look like "urn:li:jobPosting:4012345678" or a bare
		// numeric ID; the ID is always the last colon-separated segment.
		parts := strings.Split(raw, ":")
		id, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
		if err != nil {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		title := strings.TrimSpace(s.Find("a[data-control-id]").First().Text())
		if title == "" {
			title = strings.TrimSpace(s.Find("a").First().Text())
		}
		tiles = append(tiles, Tile{ID: id, Title: title})
	})

	return tiles
}

// ParseTitle splits a browser title like "(2) Data Engineer | Acme Corp |
// LinkedIn" into the job title and company. The trailing site-name segment is
// discarded; a title with no company segment reports "Unknown".
func ParseTitle(browserTitle string) (title, company string) {
	title = strings.TrimSpace(unreadPrefix.ReplaceAllString(browserTitle, ""))
	company = "Unknown"

	parts := strings.Split(title, " | ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) > 1 && strings.EqualFold(parts[len(parts)-1], "LinkedIn") {
		parts = parts[:len(parts)-1]
	}
	title = parts[0]
	if len(parts) > 1 && parts[len(parts)-1] != "" {
		company = parts[len(parts)-1]
	}
	return title, company
}
