package model

import (
	"fmt"
	"strings"
)

// Severity orders findings from informational to fatal.
type Severity int

const (
	// SeverityNotice flags an almost correct guard.
	SeverityNotice Severity = iota + 1
	// SeverityWarning flags a missing guard or a misplaced namespace.
	SeverityWarning
	// SeverityFatal means the file could not be checked at all.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityNotice:
		return "NOTICE"
	case SeverityWarning:
		return "WARNING"
	case SeverityFatal:
		return "FATAL"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity converts the textual form used in configuration and reports.
// The comparison ignores case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NOTICE":
		return SeverityNotice, nil
	case "WARNING":
		return SeverityWarning, nil
	case "FATAL":
		return SeverityFatal, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}

	*s = v

	return nil
}

// Finding is a single diagnostic produced by a check. Findings are values and
// never change after they are emitted.
type Finding struct {
	Severity Severity
	Message  string
	File     Path
	Line     int // 0 when the finding concerns the whole file
	Check    string
	Code     string // short identifier usable in ignore directives
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
}
