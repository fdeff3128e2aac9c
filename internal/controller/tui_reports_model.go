package controller

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "github.com/mouse-blink/phpguard/internal/model"
)

// findingDelegate renders one finding per line.
type findingDelegate struct {
	offset int
}

func (d findingDelegate) Height() int  { return 1 }
func (d findingDelegate) Spacing() int { return 0 }
func (d findingDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d findingDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	finding, ok := item.(findingItem)
	if !ok {
		return
	}

	// severity (9) + line (6) + code (20) + spacing (6)
	textWidth := m.Width() - 41

	severityStyle := lipgloss.NewStyle().Foreground(severityColor(finding.severity)).Bold(true).Width(9)
	lineStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(6).Align(lipgloss.Right)
	codeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Width(20)
	textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	text := truncateToWidth(finding.message, textWidth)

	if index == m.Index() {
		selected := func(s lipgloss.Style) lipgloss.Style {
			return s.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
		}

		severityStyle = selected(severityStyle)
		lineStyle = selected(lineStyle)
		codeStyle = selected(codeStyle)
		textStyle = selected(textStyle).Bold(true)
		text = animateScroll(finding.message, textWidth, d.offset)
	}

	line := ""
	if finding.line > 0 {
		line = fmt.Sprintf("%d", finding.line)
	}

	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s",
		severityStyle.Render(finding.severity.String()),
		lineStyle.Render(line),
		codeStyle.Render(truncateToWidth(finding.code, 20)),
		textStyle.Render(text),
	)
}

func severityColor(s m.Severity) lipgloss.Color {
	switch s {
	case m.SeverityFatal:
		return lipgloss.Color("1") // Red
	case m.SeverityWarning:
		return lipgloss.Color("3") // Yellow
	default:
		return lipgloss.Color("8") // Gray
	}
}

// reportsModel shows check progress, then the findings of a run.
type reportsModel struct {
	mode         StartMode
	width        int
	height       int
	progressBar  progress.Model
	checked      int
	total        int
	runID        string
	summary      Summary
	findings     list.Model
	delegate     findingDelegate
	rendered     bool
	changed      []m.Path
	changedAt    time.Time
	animOffset   int
	lastSelected int
}

func newReportsModel(mode StartMode) reportsModel {
	prog := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	delegate := findingDelegate{}
	findings := list.New([]list.Item{}, delegate, 80, 20)
	findings.SetShowPagination(false)
	findings.SetShowFilter(true)
	findings.SetShowHelp(false)
	findings.SetShowTitle(false)
	findings.SetShowStatusBar(false)
	findings.FilterInput.Placeholder = "Filter findings…"

	return reportsModel{
		mode:         mode,
		progressBar:  prog,
		findings:     findings,
		delegate:     delegate,
		lastSelected: -1,
	}
}

func (m reportsModel) Init() tea.Cmd {
	return tick()
}

func (m reportsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.findings.SetWidth(m.width)

	case tickMsg:
		if m.findings.FilterState() != list.Filtering && m.rendered {
			m.animOffset++
			m.delegate.offset = m.animOffset
			m.findings.SetDelegate(m.delegate)
		}

		return m, tick()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || (msg.String() == "q" && m.findings.FilterState() != list.Filtering) {
			return m, tea.Quit
		}

		m.findings, cmd = m.findings.Update(msg)

		if m.findings.Index() != m.lastSelected {
			m.lastSelected = m.findings.Index()
			m.animOffset = 0
			m.delegate.offset = 0
			m.findings.SetDelegate(m.delegate)
		}

		return m, cmd

	case progressMsg:
		m.checked = msg.checked
		m.total = msg.total

	case reportsMsg:
		m = m.handleReportsMsg(msg)

	case watchMsg:
		m.changed = msg.paths
		m.changedAt = msg.at
	}

	return m, cmd
}

func (m reportsModel) handleReportsMsg(msg reportsMsg) reportsModel {
	m.summary = Summarize(msg.reports)
	m.runID = ""

	if len(msg.reports) > 0 {
		m.runID = msg.reports[0].RunID
	}

	var items []list.Item

	for _, report := range msg.reports {
		for _, f := range report.Findings {
			items = append(items, findingItem{
				severity: f.Severity,
				path:     string(report.Source.Rel),
				line:     f.Line,
				code:     f.Code,
				message:  f.Message,
			})
		}
	}

	m.findings.SetItems(items)
	m.rendered = true
	m.checked = m.summary.Files
	m.total = m.summary.Files

	if len(items) > 0 && m.lastSelected == -1 {
		m.lastSelected = 0
	}

	return m
}

func (m reportsModel) progressPercent() float64 {
	if m.total == 0 {
		return 0
	}

	return float64(m.checked) / float64(m.total)
}

func (m reportsModel) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true).
		Padding(1, 0, 0, 2)

	summaryStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Padding(0, 0, 1, 2)

	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	title := titleStyle.Render(m.title())

	if !m.rendered {
		if m.total == 0 {
			return "Checking PHP files…\n"
		}

		summary := summaryStyle.Render(fmt.Sprintf("Checked: %s / %s",
			accentStyle.Render(fmt.Sprintf("%d", m.checked)),
			accentStyle.Render(fmt.Sprintf("%d", m.total)),
		))

		bar := lipgloss.NewStyle().Padding(0, 2).Render(m.progressBar.ViewAs(m.progressPercent()))

		return lipgloss.JoinVertical(lipgloss.Left, title, summary, bar)
	}

	summary := summaryStyle.Render(fmt.Sprintf(
		"Files: %s  •  Guarded: %s  •  Exempt: %s  •  Notices: %s  •  Warnings: %s  •  Fatal: %s",
		accentStyle.Render(fmt.Sprintf("%d", m.summary.Files)),
		accentStyle.Render(fmt.Sprintf("%d", m.summary.Guarded)),
		accentStyle.Render(fmt.Sprintf("%d", m.summary.Exempt)),
		accentStyle.Render(fmt.Sprintf("%d", m.summary.Notices)),
		accentStyle.Render(fmt.Sprintf("%d", m.summary.Warnings)),
		accentStyle.Render(fmt.Sprintf("%d", m.summary.Fatals)),
	))

	parts := []string{title, summary}

	if status := m.watchStatus(); status != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Padding(0, 0, 1, 2).Render(status))
	}

	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Align(lipgloss.Center).
		Width(m.width)

	parts = append(parts,
		m.renderFindings(),
		footerStyle.Render("↑/k up • ↓/j down • g/G top/bottom • / filter • q quit"),
	)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m reportsModel) title() string {
	switch m.mode {
	case ModeView:
		if m.runID != "" {
			return "phpguard report " + m.runID
		}

		return "phpguard report"
	case ModeWatch:
		return "phpguard watch"
	default:
		return "phpguard check"
	}
}

func (m reportsModel) watchStatus() string {
	if m.mode != ModeWatch {
		return ""
	}

	if len(m.changed) == 0 {
		return "Watching for changes…"
	}

	return fmt.Sprintf("%s re-checked %d changed file(s)", m.changedAt.Format(time.TimeOnly), len(m.changed))
}

func (m reportsModel) renderFindings() string {
	if len(m.findings.Items()) == 0 {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true).
			Padding(0, 2).
			Render("No findings")
	}

	// title (2) + summary (2) + footer (1) + border (2) + header (2)
	listHeight := m.height - 9
	if listHeight < 5 {
		listHeight = 5
	}

	listWidth := m.width - 6

	m.findings.SetHeight(listHeight)
	m.findings.SetWidth(listWidth)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Bold(true).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("8")).
		Width(listWidth)

	headers := headerStyle.Render(fmt.Sprintf("%-9s  %6s  %-20s  %s", "Severity", "Line", "Code", "Message"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("6")).
		Margin(0, 1).
		Padding(0, 1)

	return box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			headers,
			m.findings.View(),
		),
	)
}
