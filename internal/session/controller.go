// Package session orchestrates the outer application loop: search-context
// permutation, pagination, handing jobs to the state machine, recording
// outcomes, and break scheduling. It runs on the single automation goroutine;
// operator signals only ever reach it through the coordinator.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/usharma/easyapply/internal/apply"
	"github.com/usharma/easyapply/internal/ledger"
	"github.com/usharma/easyapply/internal/listing"
	"github.com/usharma/easyapply/internal/pacing"
	"github.com/usharma/easyapply/internal/signal"
)

// jobsPerPage is the listing page size used for the pagination offset.
const jobsPerPage = 25

// Surface is the slice of the browser the controller itself needs. The state
// machine holds its own, wider view of the same browser.
type Surface interface {
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	ScrollTo(ctx context.Context, fraction float64) error
	ScrollThrough(ctx context.Context) error
}

// Applier drives one job listing to a terminal outcome.
type Applier interface {
	Run(ctx context.Context, jobID int64) (apply.Outcome, error)
}

// Config bounds one session.
type Config struct {
	Positions       []string
	Locations       []string
	SearchURL       string // optional override; used verbatim when set
	DateRange       string // posted-date filter, e.g. "r2592000" for 30 days
	BlacklistTitles []string
	MaxDuration     time.Duration
}

// SearchContext is one (position, location) combination being paginated.
type SearchContext struct {
	Position   string
	Location   string
	PageOffset int
}

// Stats summarizes a finished session.
type Stats struct {
	Processed  int
	Submitted  int
	Skipped    int
	Failed     int
	Incomplete int
	Breaks     int
}

// Controller composes scanner, state machine, ledger, coordinator and pacer
// into the session loop.
type Controller struct {
	cfg     Config
	surface Surface
	scanner *listing.Scanner
	applier Applier
	ledger  *ledger.Ledger
	coord   *signal.Coordinator
	pacer   *pacing.Humanizer
	rng     *rand.Rand
	log     *zap.Logger
	now     func() time.Time
}

func NewController(cfg Config, surface Surface, scanner *listing.Scanner, applier Applier,
	led *ledger.Ledger, coord *signal.Coordinator, pacer *pacing.Humanizer,
	rng *rand.Rand, log *zap.Logger) *Controller {
	return &Controller{
		cfg:     cfg,
		surface: surface,
		scanner: scanner,
		applier: applier,
		ledger:  led,
		coord:   coord,
		pacer:   pacer,
		rng:     rng,
		log:     log.Named("session"),
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// Run iterates a randomized permutation of (position, location) combinations
// until the session time budget is exhausted or a cancel is observed. A cancel
// ends the loop cleanly; it is not an error of the session.
func (c *Controller) Run(ctx context.Context) (Stats, error) {
	started := c.now()
	var stats Stats

	combos := c.combos()
	c.log.Info("session starting",
		zap.Int("combinations", len(combos)),
		zap.Duration("budget", c.cfg.MaxDuration),
		zap.Int("ledger_entries", c.ledger.Len()))

	for _, sc := range combos {
		if c.exhausted(started) {
			c.log.Info("session budget exhausted")
			break
		}
		if err := c.coord.Checkpoint(ctx); err != nil {
			if errors.Is(err, signal.ErrCancelled) {
				c.log.Info("session cancelled")
				return stats, nil
			}
			return stats, err
		}

		c.log.Info("searching", zap.String("position", sc.Position), zap.String("location", sc.Location))
		if err := c.runSearch(ctx, sc, started, &stats); err != nil {
			if errors.Is(err, signal.ErrCancelled) {
				c.log.Info("session cancelled")
				return stats, nil
			}
			return stats, err
		}
	}

	c.log.Info("session finished",
		zap.Int("processed", stats.Processed),
		zap.Int("submitted", stats.Submitted),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("incomplete", stats.Incomplete))
	return stats, nil
}

// combos builds the shuffled (position, location) cross product. The shuffle
// keeps the access pattern from being identical run to run.
func (c *Controller) combos() []SearchContext {
	var combos []SearchContext
	for _, pos := range c.cfg.Positions {
		for _, loc := range c.cfg.Locations {
			combos = append(combos, SearchContext{Position: pos, Location: loc})
		}
	}
	c.rng.Shuffle(len(combos), func(i, j int) {
		combos[i], combos[j] = combos[j], combos[i]
	})
	return combos
}

// runSearch paginates one combination until the budget runs out, the listing
// page comes back empty, or a cancel is observed.
func (c *Controller) runSearch(ctx context.Context, sc SearchContext, started time.Time, stats *Stats) error {
	for !c.exhausted(started) {
		if err := c.coord.Checkpoint(ctx); err != nil {
			return err
		}

		pageURL := c.searchURL(sc)
		if err := c.surface.Navigate(ctx, pageURL); err != nil {
			c.log.Warn("listing page failed to load", zap.String("url", pageURL), zap.Error(err))
			return nil
		}
		if err := c.pacer.ListingDelay(ctx); err != nil {
			return err
		}
		if _, err := c.pacer.MaybeWander(ctx, c.surface); err != nil {
			return err
		}
		if err := c.surface.ScrollThrough(ctx); err != nil {
			c.log.Debug("listing scroll failed, continuing", zap.Error(err))
		}

		html, err := c.surface.HTML(ctx)
		if err != nil {
			c.log.Warn("could not read listing markup", zap.Error(err))
			return nil
		}

		newIDs, total := c.scanner.Scan(html)
		if total == 0 {
			c.log.Info("empty listing page, ending combination",
				zap.String("position", sc.Position), zap.Int("offset", sc.PageOffset))
			return nil
		}
		if listing.PageExhausted(total, len(newIDs)) {
			sc.PageOffset += jobsPerPage
			continue
		}

		for _, id := range newIDs {
			if c.exhausted(started) {
				return nil
			}
			if err := c.coord.Checkpoint(ctx); err != nil {
				return err
			}
			if err := c.processJob(ctx, id, stats); err != nil {
				return err
			}
		}
		sc.PageOffset += jobsPerPage
	}
	return nil
}

// processJob navigates to one job and drives it to a terminal outcome. Every
// definitive outcome is appended to the ledger before the next job starts, so
// a crash in between cannot silently repeat an attempt.
func (c *Controller) processJob(ctx context.Context, jobID int64, stats *Stats) error {
	log := c.log.With(zap.Int64("job_id", jobID))

	if err := c.surface.Navigate(ctx, jobURL(jobID)); err != nil {
		log.Warn("job page failed to load", zap.Error(err))
		c.record(jobID, "", apply.Outcome{
			Result: ledger.ResultFailed, Attempted: false, Reason: err.Error(),
		}, stats)
		return nil
	}
	if err := c.pacer.PageDelay(ctx); err != nil {
		return err
	}

	pageTitle, err := c.surface.Title(ctx)
	if err != nil {
		pageTitle = ""
	}
	if word, ok := c.titleBlacklisted(pageTitle); ok {
		log.Info("blacklisted keyword in job title", zap.String("keyword", word))
		c.record(jobID, pageTitle, apply.Outcome{
			Result: ledger.ResultSkipped, Attempted: false,
			Reason: "blacklisted keyword: " + word,
		}, stats)
		return nil
	}

	out, err := c.applier.Run(ctx, jobID)
	if err != nil {
		if errors.Is(err, signal.ErrCancelled) {
			// Cooperative cancel: the in-flight job is closed out as failed
			// before the loop is allowed to exit.
			c.record(jobID, pageTitle, apply.Outcome{
				Result: ledger.ResultFailed, Attempted: true, Reason: "cancelled",
			}, stats)
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A single problematic listing never aborts the session.
		log.Warn("job failed", zap.Error(err))
		c.record(jobID, pageTitle, apply.Outcome{
			Result: ledger.ResultFailed, Attempted: true, Reason: err.Error(),
		}, stats)
		return nil
	}

	c.record(jobID, pageTitle, out, stats)

	if out.Result == ledger.ResultSubmitted && c.pacer.BreakDue(stats.Submitted) {
		stats.Breaks++
		c.log.Info("taking extended break", zap.Int("submitted", stats.Submitted))
		d, breakErr := c.pacer.LongBreak(ctx)
		if breakErr != nil {
			return breakErr
		}
		c.log.Info("break over", zap.Duration("duration", d))
	}
	return nil
}

// record appends the outcome to the ledger and updates the session counters.
// A ledger write failure is logged and the session continues: losing one row
// is better than abandoning a run mid-flight.
func (c *Controller) record(jobID int64, pageTitle string, out apply.Outcome, stats *Stats) {
	title, company := listing.ParseTitle(pageTitle)
	rec := ledger.Record{
		Timestamp: c.now(),
		JobID:     jobID,
		Title:     title,
		Company:   company,
		Attempted: out.Attempted,
		Result:    out.Result,
	}
	if err := c.ledger.Append(rec); err != nil {
		c.log.Error("failed to record outcome", zap.Int64("job_id", jobID), zap.Error(err))
	}

	stats.Processed++
	switch out.Result {
	case ledger.ResultSubmitted:
		stats.Submitted++
	case ledger.ResultSkipped:
		stats.Skipped++
	case ledger.ResultFailed:
		stats.Failed++
	case ledger.ResultIncomplete:
		stats.Incomplete++
	}
	c.log.Info("outcome recorded",
		zap.Int64("job_id", jobID),
		zap.String("result", string(out.Result)),
		zap.String("reason", out.Reason))
}

func (c *Controller) exhausted(started time.Time) bool {
	return c.cfg.MaxDuration > 0 && c.now().Sub(started) >= c.cfg.MaxDuration
}

func (c *Controller) titleBlacklisted(pageTitle string) (string, bool) {
	lower := strings.ToLower(pageTitle)
	for _, word := range c.cfg.BlacklistTitles {
		if word != "" && strings.Contains(lower, strings.ToLower(word)) {
			return word, true
		}
	}
	return "", false
}

// searchURL builds the filtered listing URL for the context: Easy Apply only,
// bounded posting age, keyword, location, pagination offset. A configured
// override URL is used as-is, with only the offset appended.
func (c *Controller) searchURL(sc SearchContext) string {
	if c.cfg.SearchURL != "" {
		if sc.PageOffset == 0 {
			return c.cfg.SearchURL
		}
		sep := "?"
		if strings.Contains(c.cfg.SearchURL, "?") {
			sep = "&"
		}
		return fmt.Sprintf("%s%sstart=%d", c.cfg.SearchURL, sep, sc.PageOffset)
	}

	dateRange := c.cfg.DateRange
	if dateRange == "" {
		dateRange = "r2592000"
	}
	v := url.Values{}
	v.Set("f_AL", "true")
	v.Set("f_TPR", dateRange)
	v.Set("keywords", sc.Position)
	v.Set("location", sc.Location)
	if sc.PageOffset > 0 {
		v.Set("start", fmt.Sprintf("%d", sc.PageOffset))
	}
	return "https://www.linkedin.com/jobs/search/?" + v.Encode()
}

func jobURL(jobID int64) string {
	return fmt.Sprintf("https://www.linkedin.com/jobs/view/%d", jobID)
}
