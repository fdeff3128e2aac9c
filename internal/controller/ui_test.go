package controller

import (
	"testing"

	m "github.com/mouse-blink/phpguard/internal/model"
)

func TestStartOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []StartOption
		want StartMode
	}{
		{"default", nil, ModeCheck},
		{"check", []StartOption{WithCheckMode()}, ModeCheck},
		{"list", []StartOption{WithListMode()}, ModeList},
		{"view", []StartOption{WithViewMode()}, ModeView},
		{"watch", []StartOption{WithWatchMode()}, ModeWatch},
		{"last wins", []StartOption{WithListMode(), WithViewMode()}, ModeView},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newStartConfig(tt.opts...).mode; got != tt.want {
				t.Fatalf("mode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	reports := sampleReports()
	reports = append(reports, m.Report{
		Findings: []m.Finding{
			{Severity: m.SeverityNotice},
			{Severity: m.SeverityNotice},
			{Severity: m.SeverityFatal},
		},
	})

	got := Summarize(reports)
	want := Summary{Files: 4, Guarded: 1, Exempt: 1, Notices: 2, Warnings: 1, Fatals: 1}

	if got != want {
		t.Fatalf("Summarize() = %+v, want %+v", got, want)
	}

	if got.Findings() != 4 {
		t.Fatalf("Findings() = %d, want 4", got.Findings())
	}
}

func TestSummary_StringGroupsDigits(t *testing.T) {
	s := Summary{Files: 12345, Guarded: 12000, Exempt: 345}

	want := "12,345 files checked: 12,000 guarded, 345 exempt, 0 notices, 0 warnings, 0 fatal"
	if got := s.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
