package controller

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "github.com/mouse-blink/phpguard/internal/model"
)

const animationTick = 150 * time.Millisecond

func tick() tea.Cmd {
	return tea.Tick(animationTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Simple delegate for source list items.
type sourceDelegate struct {
	offset int
}

func (d sourceDelegate) Height() int  { return 1 }
func (d sourceDelegate) Spacing() int { return 0 }
func (d sourceDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d sourceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	file, ok := item.(fileItem)
	if !ok {
		return
	}

	isSelected := index == m.Index()

	var pathStyle, kindStyle lipgloss.Style

	var displayPath string

	width := m.Width() - 12 // kind column (10) + spacing (2)

	if isSelected {
		pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("6")).
			Bold(true)
		kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("6")).
			Bold(true).
			Width(10)

		displayPath = animateScroll(file.path, width, d.offset)
	} else {
		pathStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
		kindStyle = lipgloss.NewStyle().
			Foreground(kindColor(file.kind)).
			Width(10)

		displayPath = truncateToWidth(file.path, width)
	}

	line := fmt.Sprintf("%s  %s",
		kindStyle.Render(string(file.kind)),
		pathStyle.Render(displayPath),
	)
	_, _ = fmt.Fprint(w, line)
}

func isLanguage(kind m.FileKind) bool {
	return kind == m.LanguageResource
}

func kindColor(kind m.FileKind) lipgloss.Color {
	if isLanguage(kind) {
		return lipgloss.Color("5")
	}

	return lipgloss.Color("11")
}

func animateScroll(text string, width int, offset int) string {
	if width <= 0 {
		return ""
	}

	textWidth := lipgloss.Width(text)
	if textWidth <= width {
		return text
	}

	gap := "   "

	// ticks before scrolling starts
	pause := 5

	if offset < pause {
		return truncateToWidth(text, width)
	}

	runes := []rune(text + gap)
	n := len(runes)
	start := (offset - pause) % n

	res := make([]rune, 0, width)
	for i := range width {
		res = append(res, runes[(start+i)%n])
	}

	return string(res)
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}

	if lipgloss.Width(text) <= width {
		return text
	}

	const ellipsis = "…"

	maxWidth := width - lipgloss.Width(ellipsis)
	if maxWidth <= 0 {
		return ellipsis
	}

	currentWidth := 0

	result := make([]rune, 0, len(text))
	for _, r := range text {
		rWidth := lipgloss.Width(string(r))
		if currentWidth+rWidth > maxWidth {
			break
		}

		result = append(result, r)
		currentWidth += rWidth
	}

	return string(result) + ellipsis
}

// sourcesModel lists discovered files and their classification.
type sourcesModel struct {
	width        int
	height       int
	fileList     list.Model
	delegate     sourceDelegate
	total        int
	languages    int
	rendered     bool
	animOffset   int
	lastSelected int
}

func newSourcesModel() sourcesModel {
	delegate := sourceDelegate{}
	fileList := list.New([]list.Item{}, delegate, 80, 20)
	fileList.SetShowPagination(false)
	fileList.SetShowFilter(true)
	fileList.SetShowHelp(false)
	fileList.SetShowTitle(false)
	fileList.SetShowStatusBar(false)
	fileList.FilterInput.Placeholder = "Filter by path…"

	return sourcesModel{
		fileList:     fileList,
		delegate:     delegate,
		lastSelected: -1,
	}
}

func (m sourcesModel) Init() tea.Cmd {
	return tick()
}

func (m sourcesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.fileList.SetWidth(m.width)

	case tickMsg:
		if m.fileList.FilterState() != list.Filtering && m.rendered {
			m.animOffset++
			m.delegate.offset = m.animOffset
			m.fileList.SetDelegate(m.delegate)
		}

		return m, tick()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || (msg.String() == "q" && m.fileList.FilterState() != list.Filtering) {
			return m, tea.Quit
		}

		m.fileList, cmd = m.fileList.Update(msg)

		if m.fileList.Index() != m.lastSelected {
			m.lastSelected = m.fileList.Index()
			m.animOffset = 0
			m.delegate.offset = 0
			m.fileList.SetDelegate(m.delegate)
		}

		return m, cmd

	case sourcesMsg:
		m = m.handleSourcesMsg(msg)
	}

	return m, cmd
}

func (m sourcesModel) handleSourcesMsg(msg sourcesMsg) sourcesModel {
	m.total = len(msg.sources)
	m.languages = 0

	items := make([]list.Item, 0, len(msg.sources))
	for _, source := range msg.sources {
		if isLanguage(source.Kind) {
			m.languages++
		}

		items = append(items, fileItem{path: string(source.Rel), kind: source.Kind})
	}

	m.fileList.SetItems(items)
	m.rendered = true

	if len(items) > 0 && m.lastSelected == -1 {
		m.lastSelected = 0
	}

	return m
}

func (m sourcesModel) View() string {
	if !m.rendered {
		return "Discovering PHP files…\n"
	}

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true).
		Padding(1, 0, 0, 2)

	summaryStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Padding(0, 0, 1, 2)

	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	title := titleStyle.Render("phpguard sources")

	summary := summaryStyle.Render(fmt.Sprintf(
		"Files: %s   Language resources: %s",
		accentStyle.Render(fmt.Sprintf("%d", m.total)),
		accentStyle.Render(fmt.Sprintf("%d", m.languages)),
	))

	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Align(lipgloss.Center).
		Width(m.width)

	footer := footerStyle.Render("↑/k up • ↓/j down • g/G top/bottom • / filter • q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		summary,
		m.renderTable(),
		footer,
	)
}

func (m sourcesModel) renderTable() string {
	// title (2) + summary (2) + footer (1) + border (2) + header (2)
	listHeight := m.height - 9
	if listHeight < 5 {
		listHeight = 5
	}

	// margin (2) + border (2) + padding (2)
	listWidth := m.width - 6

	m.fileList.SetHeight(listHeight)
	m.fileList.SetWidth(listWidth)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Bold(true).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("8")).
		Width(listWidth)

	headers := headerStyle.Render(fmt.Sprintf("%-10s  %s", "Kind", "File Path"))

	tableContainer := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("6")).
		Margin(0, 1).
		Padding(0, 1)

	return tableContainer.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			headers,
			m.fileList.View(),
		),
	)
}
