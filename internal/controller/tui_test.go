package controller

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	m "github.com/mouse-blink/phpguard/internal/model"
)

type quitModel struct{}

func (m quitModel) Init() tea.Cmd { return tea.Quit }
func (m quitModel) Update(_ tea.Msg) (tea.Model, tea.Cmd) {
	return m, tea.Quit
}
func (m quitModel) View() string { return "" }

func newTestTUI() *TUI {
	tui := NewTUI(&bytes.Buffer{}, nil)
	tui.programOptions = []tea.ProgramOption{tea.WithInput(nil), tea.WithoutSignalHandler()}

	return tui
}

func waitFor(t *testing.T, name string, fn func()) {
	t.Helper()

	done := make(chan struct{})

	go func() {
		fn()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s timed out", name)
	}
}

func TestTUI_StartWithModel_WaitAndClose(t *testing.T) {
	tui := newTestTUI()

	if err := tui.startWithModel(quitModel{}); err != nil {
		t.Fatalf("startWithModel error = %v", err)
	}

	waitFor(t, "Wait()", tui.Wait)

	select {
	case <-tui.Done():
	default:
		t.Fatalf("Done() not closed after Wait")
	}

	// sending to a finished program must not block
	waitFor(t, "send", func() { tui.send(progressMsg{checked: 1, total: 1}) })
	waitFor(t, "Close()", tui.Close)
}

func TestTUI_ProgramErrorIsKeptAndLogged(t *testing.T) {
	var logs bytes.Buffer

	tui := NewTUI(&bytes.Buffer{}, slog.New(slog.NewTextHandler(&logs, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tui.programOptions = []tea.ProgramOption{tea.WithInput(nil), tea.WithoutSignalHandler(), tea.WithContext(ctx)}

	if err := tui.Start(WithCheckMode()); err != nil {
		t.Fatalf("Start error = %v", err)
	}

	waitFor(t, "Wait()", tui.Wait)

	if tui.Err() == nil {
		t.Fatalf("Err() = nil, want the program's exit error")
	}

	if !strings.Contains(logs.String(), "Terminal UI stopped") {
		t.Fatalf("exit error not logged, got %q", logs.String())
	}
}

func TestTUI_CleanQuitHasNoError(t *testing.T) {
	tui := newTestTUI()

	if err := tui.startWithModel(quitModel{}); err != nil {
		t.Fatalf("startWithModel error = %v", err)
	}

	waitFor(t, "Wait()", tui.Wait)

	if err := tui.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
}

func TestTUI_StartTwiceKeepsFirstProgram(t *testing.T) {
	tui := newTestTUI()

	if err := tui.Start(WithCheckMode()); err != nil {
		t.Fatalf("Start error = %v", err)
	}

	first := tui.program

	if err := tui.Start(WithListMode()); err != nil {
		t.Fatalf("second Start error = %v", err)
	}

	if tui.program != first {
		t.Fatalf("second Start replaced the program")
	}

	waitFor(t, "Close()", tui.Close)
}

func TestTUI_DisplayMethods_WhileRunning(t *testing.T) {
	tui := newTestTUI()

	if err := tui.Start(WithWatchMode()); err != nil {
		t.Fatalf("Start error = %v", err)
	}

	waitFor(t, "display", func() {
		tui.DisplayProgress(0, 3)
		tui.DisplayWatchBatch([]m.Path{"a.php"})

		if err := tui.DisplayReports(sampleReports()); err != nil {
			t.Errorf("DisplayReports error = %v", err)
		}
	})

	waitFor(t, "Close()", tui.Close)
}

func TestTUI_NotStarted(t *testing.T) {
	tui := NewTUI(&bytes.Buffer{}, nil)

	if tui.Done() != nil {
		t.Fatalf("Done() before Start should be nil")
	}

	// all of these are no-ops without a program
	tui.Wait()
	tui.Close()
	tui.DisplayProgress(1, 2)
	tui.DisplayWatchBatch(nil)

	if err := tui.DisplaySources(nil); err != nil {
		t.Fatalf("DisplaySources error = %v", err)
	}

	if err := tui.DisplayReports(nil); err != nil {
		t.Fatalf("DisplayReports error = %v", err)
	}
}

func TestTUI_MultipleClose(t *testing.T) {
	tui := newTestTUI()

	if err := tui.Start(WithListMode()); err != nil {
		t.Fatalf("Start error = %v", err)
	}

	waitFor(t, "Close()", tui.Close)
	waitFor(t, "second Close()", tui.Close)
}
