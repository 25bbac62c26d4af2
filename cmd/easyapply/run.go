package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/usharma/easyapply/internal/apply"
	"github.com/usharma/easyapply/internal/browser"
	"github.com/usharma/easyapply/internal/config"
	"github.com/usharma/easyapply/internal/ledger"
	"github.com/usharma/easyapply/internal/listing"
	"github.com/usharma/easyapply/internal/logging"
	"github.com/usharma/easyapply/internal/pacing"
	"github.com/usharma/easyapply/internal/report"
	"github.com/usharma/easyapply/internal/session"
	"github.com/usharma/easyapply/internal/signal"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run an Easy Apply session end-to-end",
	Long: `Logs in, iterates every (position, location) search combination, applies to
each unseen Easy Apply listing, and appends one ledger row per processed job.

While the session runs, stdin accepts operator commands, one per line:
  p [reason]   pause before the next step
  r            resume
  c            cancel the session

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values. Credentials fall back to the
LINKEDIN_EMAIL and LINKEDIN_PASSWORD environment variables.`,
	RunE: runSessionCmd,
}

var (
	runConfigPath  string
	runEmail       string
	runPassword    string
	runPositions   []string
	runLocations   []string
	runBlacklist   []string
	runSearchURL   string
	runDateRange   string
	runFirstName   string
	runLastName    string
	runCity        string
	runPhone       string
	runFallback    string
	runResumePath  string
	runLedgerPath  string
	runLogDir      string
	runUserDataDir string
	runMaxMinutes  int
	runHeadless    bool
	runVerbose     bool
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVar(&runEmail, "email", "", "LinkedIn account email (defaults to LINKEDIN_EMAIL env var)")
	runCommand.Flags().StringVar(&runPassword, "password", "", "LinkedIn account password (defaults to LINKEDIN_PASSWORD env var)")
	runCommand.Flags().StringSliceVarP(&runPositions, "position", "p", nil, "Position to search for (repeatable)")
	runCommand.Flags().StringSliceVarP(&runLocations, "location", "l", nil, "Location to search in (repeatable)")
	runCommand.Flags().StringSliceVar(&runBlacklist, "blacklist-title", nil, "Skip jobs whose title contains this word (repeatable)")
	runCommand.Flags().StringVar(&runSearchURL, "search-url", "", "Use this listing URL verbatim instead of building one")
	runCommand.Flags().StringVar(&runDateRange, "date-range", "", "Posted-date filter, e.g. r86400 for 24h")
	runCommand.Flags().StringVar(&runFirstName, "first-name", "", "First name for form fields")
	runCommand.Flags().StringVar(&runLastName, "last-name", "", "Last name for form fields")
	runCommand.Flags().StringVar(&runCity, "city", "", "City for form fields")
	runCommand.Flags().StringVar(&runPhone, "phone", "", "Phone number for form fields")
	runCommand.Flags().StringVar(&runFallback, "fallback-answer", "", "Answer used for unrecognized free-text questions")
	runCommand.Flags().StringVarP(&runResumePath, "resume", "r", "", "Path to the resume file to upload")
	runCommand.Flags().StringVar(&runLedgerPath, "ledger", "", "Path to the CSV ledger of processed jobs")
	runCommand.Flags().StringVar(&runLogDir, "log-dir", "", "Directory for session log files")
	runCommand.Flags().StringVar(&runUserDataDir, "user-data-dir", "", "Chrome profile directory to reuse")
	runCommand.Flags().IntVar(&runMaxMinutes, "max-minutes", 0, "End the session after this many minutes (0 = unlimited)")
	runCommand.Flags().BoolVar(&runHeadless, "headless", false, "Run Chrome without a window (login challenges cannot be solved headless)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(runCommand)
}

func runSessionCmd(cmd *cobra.Command, _ []string) error {
	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loadedCfg
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("email") {
		cfg.Email = runEmail
	}
	if cmd.Flags().Changed("password") {
		cfg.Password = runPassword
	}
	if cmd.Flags().Changed("position") {
		cfg.Positions = runPositions
	}
	if cmd.Flags().Changed("location") {
		cfg.Locations = runLocations
	}
	if cmd.Flags().Changed("blacklist-title") {
		cfg.BlacklistTitles = runBlacklist
	}
	if cmd.Flags().Changed("search-url") {
		cfg.SearchURL = runSearchURL
	}
	if cmd.Flags().Changed("date-range") {
		cfg.DateRange = runDateRange
	}
	if cmd.Flags().Changed("first-name") {
		cfg.Profile.FirstName = runFirstName
	}
	if cmd.Flags().Changed("last-name") {
		cfg.Profile.LastName = runLastName
	}
	if cmd.Flags().Changed("city") {
		cfg.Profile.City = runCity
	}
	if cmd.Flags().Changed("phone") {
		cfg.Profile.Phone = runPhone
	}
	if cmd.Flags().Changed("fallback-answer") {
		cfg.Profile.FallbackAnswer = runFallback
	}
	if cmd.Flags().Changed("resume") {
		cfg.ResumePath = runResumePath
	}
	if cmd.Flags().Changed("ledger") {
		cfg.LedgerPath = runLedgerPath
	}
	if cmd.Flags().Changed("log-dir") {
		cfg.LogDir = runLogDir
	}
	if cmd.Flags().Changed("user-data-dir") {
		cfg.UserDataDir = runUserDataDir
	}
	if cmd.Flags().Changed("max-minutes") {
		cfg.MaxSessionMinutes = runMaxMinutes
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless = runHeadless
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	// Step 3: Apply defaults for unset values
	defaults := config.Config{
		Positions:  []string{"Software Engineer"},
		Locations:  []string{"United States"},
		DateRange:  "r2592000",
		LedgerPath: "applied.csv",
		LogDir:     "logs",
		Profile:    config.Profile{FallbackAnswer: "5"},
	}
	cfg = cfg.MergeWithDefaults(defaults)

	// Step 4: Credentials from environment when not set elsewhere
	if cfg.Email == "" {
		cfg.Email = os.Getenv("LINKEDIN_EMAIL")
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("LINKEDIN_PASSWORD")
	}
	if cfg.Email == "" || cfg.Password == "" {
		return fmt.Errorf("credentials are required: set --email/--password, the config file, or LINKEDIN_EMAIL/LINKEDIN_PASSWORD")
	}

	// Step 5: Validate the merged configuration
	if err := cfg.Validate(); err != nil {
		return err
	}

	return runSession(cfg)
}

func runSession(cfg config.Config) error {
	logSession, err := logging.New(cfg.LogDir, cfg.Verbose)
	if err != nil {
		return err
	}
	defer logSession.Close()
	log := logSession.Logger

	log.Info("session starting",
		zap.Strings("positions", cfg.Positions),
		zap.Strings("locations", cfg.Locations),
		zap.Int("max_minutes", cfg.MaxSessionMinutes),
		zap.String("ledger", cfg.LedgerPath))

	led := ledger.Load(cfg.LedgerPath)
	log.Info("ledger loaded", zap.Int("known_jobs", led.Len()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chrome, err := browser.Launch(ctx, browser.Options{
		Headless:    cfg.Headless,
		UserDataDir: cfg.UserDataDir,
	}, log)
	if err != nil {
		return err
	}
	defer chrome.Close()

	coord := signal.NewCoordinator()
	listener := signal.NewListener(coord, os.Stdin, log)

	var stats session.Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := listener.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		// Stop the listener once the automation loop ends.
		defer cancel()
		s, err := drive(gctx, cfg, chrome, coord, led, log)
		stats = s
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("session finished",
		zap.Int("processed", stats.Processed),
		zap.Int("submitted", stats.Submitted),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("incomplete", stats.Incomplete),
		zap.Int("breaks", stats.Breaks))

	return report.Summarize(led.Records()).Render(os.Stdout)
}

// drive logs in and runs the session loop on its own goroutine. Operator
// commands only ever reach it through the coordinator.
func drive(ctx context.Context, cfg config.Config, chrome *browser.Chrome,
	coord *signal.Coordinator, led *ledger.Ledger, log *zap.Logger) (session.Stats, error) {

	if err := chrome.Login(ctx, cfg.Email, cfg.Password); err != nil {
		var challenge *browser.ChallengeError
		if !errors.As(err, &challenge) {
			return session.Stats{}, err
		}
		// A verification challenge needs a human in the browser window. Hold
		// the session until the operator resumes with 'r'.
		log.Warn("verification challenge encountered; solve it in the browser, then type 'r' to resume",
			zap.String("url", challenge.URL))
		coord.Pause("verification challenge")
		if err := coord.Checkpoint(ctx); err != nil {
			return session.Stats{}, err
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	pacer := pacing.New(rng)
	scanner := listing.NewScanner(led, cfg.BlacklistTitles, log)
	machine := apply.NewMachine(chrome, coord, pacer, apply.Profile{
		FirstName:  cfg.Profile.FirstName,
		LastName:   cfg.Profile.LastName,
		City:       cfg.Profile.City,
		Phone:      cfg.Profile.Phone,
		ResumePath: cfg.ResumePath,
		Fallback:   cfg.Profile.FallbackAnswer,
	}, log)

	controller := session.NewController(session.Config{
		Positions:       cfg.Positions,
		Locations:       cfg.Locations,
		SearchURL:       cfg.SearchURL,
		DateRange:       cfg.DateRange,
		BlacklistTitles: cfg.BlacklistTitles,
		MaxDuration:     time.Duration(cfg.MaxSessionMinutes) * time.Minute,
	}, chrome, scanner, machine, led, coord, pacer, rng, log)

	return controller.Run(ctx)
}
