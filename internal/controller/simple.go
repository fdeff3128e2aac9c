package controller

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "github.com/mouse-blink/phpguard/internal/model"
)

// SimpleUI implements UI using the cobra command's output writer.
type SimpleUI struct {
	cmd  *cobra.Command
	mode StartMode
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(options ...StartOption) error {
	s.mode = newStartConfig(options...).mode

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close() {}

// Wait returns immediately; plain output needs no dismissal.
func (s *SimpleUI) Wait() {}

// Done returns nil.
func (s *SimpleUI) Done() <-chan struct{} {
	return nil
}

// DisplaySources prints the discovered files as a table.
func (s *SimpleUI) DisplaySources(sources []m.Source) error {
	if len(sources) == 0 {
		s.printf("No PHP files found\n")

		return nil
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Kind", "Hash"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT})

	languages := 0

	for _, source := range sources {
		hash := ""
		if source.Origin != nil {
			hash = source.Origin.Hash
		}

		if source.Kind == m.LanguageResource {
			languages++
		}

		table.Append([]string{string(source.Rel), string(source.Kind), hash})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(sources)),
		fmt.Sprintf("%d language", languages),
		"",
	})

	table.Render()
	s.printf("\n%s", tableBuffer.String())

	return nil
}

// DisplayProgress is silent in plain output.
func (s *SimpleUI) DisplayProgress(_, _ int) {}

// DisplayReports prints every finding followed by a summary line.
func (s *SimpleUI) DisplayReports(reports []m.Report) error {
	summary := Summarize(reports)

	if s.mode == ModeView && len(reports) > 0 && reports[0].RunID != "" {
		s.printf("Run %s\n", reports[0].RunID)
	}

	if summary.Findings() == 0 {
		s.printf("No findings\n%s\n", summary)

		return nil
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Severity", "File", "Line", "Code", "Message"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
	})

	for _, report := range reports {
		for _, f := range report.Findings {
			line := ""
			if f.Line > 0 {
				line = strconv.Itoa(f.Line)
			}

			table.Append([]string{f.Severity.String(), string(report.Source.Rel), line, f.Code, f.Message})
		}
	}

	table.Render()
	s.printf("\n%s\n%s\n", tableBuffer.String(), summary)

	return nil
}

// DisplayWatchBatch announces the files about to be re-checked.
func (s *SimpleUI) DisplayWatchBatch(paths []m.Path) {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, string(p))
	}

	s.printf("\nChanged: %s\n", strings.Join(names, ", "))
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
