// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Profile holds the fixed answers used to populate application forms.
type Profile struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	City      string `json:"city,omitempty"`
	Phone     string `json:"phone,omitempty"`
	// FallbackAnswer is written into free-text questions the form filler
	// does not recognize, so a required field never stalls a step.
	FallbackAnswer string `json:"fallback_answer,omitempty"`
}

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided by
// CLI flags. Credentials may also come from the LINKEDIN_EMAIL and
// LINKEDIN_PASSWORD environment variables.
type Config struct {
	// Credentials
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Password string `json:"password,omitempty"`

	// Search space
	Positions []string `json:"positions,omitempty"`
	Locations []string `json:"locations,omitempty"`
	SearchURL string   `json:"search_url,omitempty" validate:"omitempty,url"` // Overrides the generated search URL
	DateRange string   `json:"date_range,omitempty"`                          // LinkedIn f_TPR value, e.g. r86400

	// Filtering
	BlacklistTitles []string `json:"blacklist_titles,omitempty"` // Title keywords to skip

	// Operator profile and uploads
	Profile    Profile `json:"profile,omitempty"`
	ResumePath string  `json:"resume_path,omitempty"`

	// Paths
	LedgerPath  string `json:"ledger_path,omitempty"`   // CSV record of processed jobs
	LogDir      string `json:"log_dir,omitempty"`       // Directory for session log files
	UserDataDir string `json:"user_data_dir,omitempty"` // Chrome profile directory

	// Behavior
	MaxSessionMinutes int  `json:"max_session_minutes,omitempty" validate:"omitempty,min=1"`
	Headless          bool `json:"headless,omitempty"`
	Verbose           bool `json:"verbose,omitempty"` // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	// Validate file paths exist (if specified)
	if c.ResumePath != "" {
		if _, err := os.Stat(c.ResumePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: resume file not found: %s", c.ResumePath)
		}
	}

	if c.UserDataDir != "" {
		if _, err := os.Stat(c.UserDataDir); os.IsNotExist(err) {
			return fmt.Errorf("config error: user data directory not found: %s", c.UserDataDir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DateRange == "" {
		result.DateRange = defaults.DateRange
	}
	if result.LedgerPath == "" {
		result.LedgerPath = defaults.LedgerPath
	}
	if result.LogDir == "" {
		result.LogDir = defaults.LogDir
	}
	if result.Profile.FallbackAnswer == "" {
		result.Profile.FallbackAnswer = defaults.Profile.FallbackAnswer
	}

	// Slice fields: use default if empty
	if len(result.Positions) == 0 {
		result.Positions = defaults.Positions
	}
	if len(result.Locations) == 0 {
		result.Locations = defaults.Locations
	}

	// Int fields: use default if zero
	if result.MaxSessionMinutes == 0 {
		result.MaxSessionMinutes = defaults.MaxSessionMinutes
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
