// Package controller provides output adapters for displaying guard check results.
package controller

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	m "github.com/mouse-blink/phpguard/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeCheck StartMode = iota
	ModeList
	ModeView
	ModeWatch
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithCheckMode sets the UI to check mode.
func WithCheckMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeCheck
	}
}

// WithListMode sets the UI to source listing mode.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithViewMode sets the UI to stored report viewing mode.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

// WithWatchMode sets the UI to watch mode.
func WithWatchMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeWatch
	}
}

func newStartConfig(options ...StartOption) StartConfig {
	cfg := StartConfig{mode: ModeCheck}
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// UI defines the interface for displaying sources and reports.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(options ...StartOption) error
	Close()
	Wait() // Wait for UI to finish (user closes it)
	// Done is closed when the user dismisses an interactive UI. It is nil
	// for non-interactive implementations.
	Done() <-chan struct{}
	DisplaySources(sources []m.Source) error
	DisplayProgress(checked, total int)
	DisplayReports(reports []m.Report) error
	DisplayWatchBatch(paths []m.Path)
}

// Summary aggregates a set of reports.
type Summary struct {
	Files    int
	Guarded  int
	Exempt   int
	Notices  int
	Warnings int
	Fatals   int
}

// Summarize counts files and findings across reports.
func Summarize(reports []m.Report) Summary {
	var s Summary

	for _, r := range reports {
		s.Files++

		if r.GuardFound {
			s.Guarded++
		}

		if r.Exempt {
			s.Exempt++
		}

		s.Notices += r.Count(m.SeverityNotice)
		s.Warnings += r.Count(m.SeverityWarning)
		s.Fatals += r.Count(m.SeverityFatal)
	}

	return s
}

// Findings returns the total number of findings.
func (s Summary) Findings() int {
	return s.Notices + s.Warnings + s.Fatals
}

// String renders the summary with grouped digits.
func (s Summary) String() string {
	p := message.NewPrinter(language.English)

	return p.Sprintf("%d files checked: %d guarded, %d exempt, %d notices, %d warnings, %d fatal",
		s.Files, s.Guarded, s.Exempt, s.Notices, s.Warnings, s.Fatals)
}
