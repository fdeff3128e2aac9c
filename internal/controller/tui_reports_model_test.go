package controller

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	m "github.com/mouse-blink/phpguard/internal/model"
)

func sampleReports() []m.Report {
	return []m.Report{
		{
			RunID:      "0190a6f2-7c1e-7000-8000-000000000001",
			Source:     m.Source{Origin: &m.File{Path: "/ext/ext.php"}, Rel: "ext.php"},
			GuardFound: true,
		},
		{
			RunID:  "0190a6f2-7c1e-7000-8000-000000000001",
			Source: m.Source{Origin: &m.File{Path: "/ext/includes/functions.php"}, Rel: "includes/functions.php"},
			Findings: []m.Finding{{
				Severity: m.SeverityWarning,
				Message:  "IN_PHPBB is not defined in /ext/includes/functions.php",
				File:     "/ext/includes/functions.php",
				Code:     "missing-guard",
			}},
		},
		{
			RunID:  "0190a6f2-7c1e-7000-8000-000000000001",
			Source: m.Source{Origin: &m.File{Path: "/ext/controller/main.php"}, Rel: "controller/main.php"},
			Exempt: true,
		},
	}
}

func TestReportsModel_ProgressView(t *testing.T) {
	model := newReportsModel(ModeCheck)

	if got := model.View(); got != "Checking PHP files…\n" {
		t.Fatalf("View() before progress = %q", got)
	}

	next, _ := model.Update(progressMsg{checked: 1, total: 4})
	model = next.(reportsModel)

	if got := model.progressPercent(); got != 0.25 {
		t.Fatalf("progressPercent() = %v, want 0.25", got)
	}

	if view := model.View(); !strings.Contains(view, "Checked:") || !strings.Contains(view, "phpguard check") {
		t.Fatalf("progress view missing header\n%s", view)
	}
}

func TestReportsModel_HandleReportsMsg(t *testing.T) {
	model := newReportsModel(ModeView)
	model = model.handleReportsMsg(reportsMsg{reports: sampleReports()})

	if !model.rendered {
		t.Fatalf("expected rendered")
	}

	if got := len(model.findings.Items()); got != 1 {
		t.Fatalf("items = %d, want 1", got)
	}

	want := Summary{Files: 3, Guarded: 1, Exempt: 1, Warnings: 1}
	if model.summary != want {
		t.Fatalf("summary = %+v, want %+v", model.summary, want)
	}

	model.width = 120
	model.height = 30

	view := model.View()
	for _, s := range []string{"phpguard report 0190a6f2", "missing-guard", "WARNING", "Severity"} {
		if !strings.Contains(view, s) {
			t.Fatalf("View() missing %q\n%s", s, view)
		}
	}
}

func TestReportsModel_NoFindings(t *testing.T) {
	model := newReportsModel(ModeCheck)
	model = model.handleReportsMsg(reportsMsg{reports: sampleReports()[:1]})
	model.width = 80
	model.height = 20

	if view := model.View(); !strings.Contains(view, "No findings") {
		t.Fatalf("View() missing empty state\n%s", view)
	}
}

func TestReportsModel_WatchStatus(t *testing.T) {
	model := newReportsModel(ModeWatch)

	if got := model.watchStatus(); got != "Watching for changes…" {
		t.Fatalf("watchStatus() = %q", got)
	}

	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	next, _ := model.Update(watchMsg{paths: []m.Path{"a.php", "b.php"}, at: at})
	model = next.(reportsModel)

	if got := model.watchStatus(); got != "10:30:00 re-checked 2 changed file(s)" {
		t.Fatalf("watchStatus() = %q", got)
	}

	if got := newReportsModel(ModeCheck).watchStatus(); got != "" {
		t.Fatalf("watchStatus() outside watch mode = %q", got)
	}
}

func TestReportsModel_UpdateBranches(t *testing.T) {
	model := newReportsModel(ModeCheck)
	model = model.handleReportsMsg(reportsMsg{reports: sampleReports()})

	next, cmd := model.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatalf("expected tick cmd")
	}

	if next.(reportsModel).animOffset != 1 {
		t.Fatalf("tick did not advance the animation")
	}

	next, _ = model.Update(tea.WindowSizeMsg{Width: 90, Height: 30})
	if got := next.(reportsModel); got.width != 90 || got.height != 30 {
		t.Fatalf("window size not applied")
	}

	if _, cmd = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); cmd == nil {
		t.Fatalf("expected quit cmd")
	}

	if cmd := model.Init(); cmd == nil {
		t.Fatalf("Init() returned nil cmd")
	}
}

func TestFindingDelegate_Render(t *testing.T) {
	delegate := findingDelegate{}
	items := []list.Item{findingItem{
		severity: m.SeverityFatal,
		path:     "broken.php",
		line:     7,
		code:     "parse-error",
		message:  "PHP parse error in file broken.php",
	}}
	l := list.New(items, delegate, 120, 5)

	var buf bytes.Buffer

	delegate.Render(&buf, l, 0, items[0])

	for _, want := range []string{"FATAL", "7", "parse-error", "PHP parse error"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("render output missing %q: %q", want, buf.String())
		}
	}

	buf.Reset()
	delegate.Render(&buf, l, 0, fileItem{path: "x.php"})

	if buf.Len() != 0 {
		t.Fatalf("render of foreign item wrote %q", buf.String())
	}
}

func TestFindingItem_FilterValue(t *testing.T) {
	item := findingItem{severity: m.SeverityNotice, path: "ext.php", code: "no-exit", message: "msg"}
	if got := item.FilterValue(); got != "ext.php NOTICE no-exit msg" {
		t.Fatalf("FilterValue() = %q", got)
	}
}

func TestSeverityColor(t *testing.T) {
	if severityColor(m.SeverityFatal) == severityColor(m.SeverityNotice) {
		t.Fatalf("fatal and notice share a colour")
	}
}
