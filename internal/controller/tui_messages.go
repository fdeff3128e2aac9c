package controller

import (
	"time"

	m "github.com/mouse-blink/phpguard/internal/model"
)

// Message types.
type tickMsg time.Time

type sourcesMsg struct {
	sources []m.Source
}

type progressMsg struct {
	checked int
	total   int
}

type reportsMsg struct {
	reports []m.Report
}

type watchMsg struct {
	paths []m.Path
	at    time.Time
}

// List item types.
type fileItem struct {
	path string
	kind m.FileKind
}

func (f fileItem) FilterValue() string {
	return f.path
}

type findingItem struct {
	severity m.Severity
	path     string
	line     int
	code     string
	message  string
}

func (f findingItem) FilterValue() string {
	return f.path + " " + f.severity.String() + " " + f.code + " " + f.message
}
