// Package config loads the per-extension phpguard configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	m "github.com/mouse-blink/phpguard/internal/model"
)

// FileName is the configuration file looked up in the base directory.
const FileName = ".phpguard.toml"

// FailOnNone disables the exit status policy.
const FailOnNone = "none"

// Config is the decoded .phpguard.toml.
type Config struct {
	Sentinel     string      `toml:"sentinel"`
	TestDirs     []string    `toml:"test_dirs"`
	LanguageDirs []string    `toml:"language_dirs"`
	Exclude      []string    `toml:"exclude"`
	Parallel     int         `toml:"parallel"`
	FailOn       string      `toml:"fail_on"` // notice | warning | fatal | none
	Reports      string      `toml:"reports"`
	Misspelling  Misspelling `toml:"misspelling"`
	// LegacyLabel reports findings under the check name used by older
	// extension validators.
	LegacyLabel bool `toml:"legacy_label"`
}

// Misspelling configures the near-miss sentinel notice.
type Misspelling struct {
	Enabled     bool `toml:"enabled"`
	MaxDistance int  `toml:"max_distance"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Sentinel:     "IN_PHPBB",
		TestDirs:     []string{"test", "tests"},
		LanguageDirs: []string{"language"},
		Exclude:      []string{"vendor/**", "node_modules/**"},
		Parallel:     1,
		FailOn:       "warning",
		Reports:      ".phpguard-reports",
		Misspelling:  Misspelling{Enabled: true, MaxDistance: 2},
	}
}

// Load reads <basedir>/.phpguard.toml on top of the defaults. A missing file
// is not an error.
func Load(basedir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(basedir, FileName)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes TOML data into cfg and validates the result. Keys not present
// in data keep their current value; unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	return cfg.Validate()
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Sentinel) == "" {
		return errors.New("sentinel cannot be empty")
	}

	if c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", c.Parallel)
	}

	if c.Misspelling.MaxDistance < 0 {
		return fmt.Errorf("misspelling.max_distance cannot be negative, got %d", c.Misspelling.MaxDistance)
	}

	if _, err := ParseFailOn(c.FailOn); err != nil {
		return err
	}

	if c.Reports == "" {
		return errors.New("reports cannot be empty")
	}

	return nil
}

// Threshold returns the lowest severity that fails a run, or 0 for none.
// It assumes the config has been validated.
func (c *Config) Threshold() m.Severity {
	s, _ := ParseFailOn(c.FailOn)

	return s
}

// ParseFailOn converts a fail_on value. "none" yields 0.
func ParseFailOn(s string) (m.Severity, error) {
	if strings.EqualFold(strings.TrimSpace(s), FailOnNone) {
		return 0, nil
	}

	sev, err := m.ParseSeverity(s)
	if err != nil {
		return 0, fmt.Errorf("fail_on: %w (want notice, warning, fatal or none)", err)
	}

	return sev, nil
}
