package controller

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	m "github.com/mouse-blink/phpguard/internal/model"
)

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output io.Writer

	// programOptions are appended when the program is created.
	programOptions []tea.ProgramOption

	log *slog.Logger

	mu      sync.Mutex
	program *tea.Program
	started bool
	done    chan struct{}
	err     error
}

// NewTUI creates a new TUI. A nil log discards the program's exit error;
// it is still available from Err.
func NewTUI(output io.Writer, log *slog.Logger) *TUI {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &TUI{output: output, log: log}
}

// Start launches the Bubble Tea program for the requested mode.
func (t *TUI) Start(options ...StartOption) error {
	cfg := newStartConfig(options...)

	if cfg.mode == ModeList {
		return t.startWithModel(newSourcesModel())
	}

	return t.startWithModel(newReportsModel(cfg.mode))
}

func (t *TUI) startWithModel(model tea.Model) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return nil
	}

	opts := append([]tea.ProgramOption{
		tea.WithOutput(t.output),
		tea.WithAltScreen(),
	}, t.programOptions...)

	t.program = tea.NewProgram(model, opts...)
	t.done = make(chan struct{})
	t.started = true

	go func(p *tea.Program, done chan struct{}) {
		defer close(done)

		if _, err := p.Run(); err != nil {
			t.log.Error("Terminal UI stopped", slog.Any("error", err))

			t.mu.Lock()
			t.err = err
			t.mu.Unlock()
		}
	}(t.program, t.done)

	return nil
}

// Close stops the program and waits for it to exit.
func (t *TUI) Close() {
	t.mu.Lock()
	p, done := t.program, t.done
	t.mu.Unlock()

	if p == nil {
		return
	}

	p.Quit()
	<-done
}

// Wait blocks until the user closes the program.
func (t *TUI) Wait() {
	if done := t.Done(); done != nil {
		<-done
	}
}

// Err returns the error the program exited with, if any. It is only
// meaningful once Done is closed.
func (t *TUI) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.err
}

// Done is closed once the program has exited.
func (t *TUI) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.done
}

// DisplaySources sends the discovered files to the program.
func (t *TUI) DisplaySources(sources []m.Source) error {
	t.send(sourcesMsg{sources: slices.Clone(sources)})

	return nil
}

// DisplayProgress updates the progress bar.
func (t *TUI) DisplayProgress(checked, total int) {
	t.send(progressMsg{checked: checked, total: total})
}

// DisplayReports sends a run's reports to the program.
func (t *TUI) DisplayReports(reports []m.Report) error {
	t.send(reportsMsg{reports: slices.Clone(reports)})

	return nil
}

// DisplayWatchBatch records the files a watch cycle is re-checking.
func (t *TUI) DisplayWatchBatch(paths []m.Path) {
	t.send(watchMsg{paths: slices.Clone(paths), at: time.Now()})
}

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	p := t.program
	t.mu.Unlock()

	if p == nil {
		return
	}

	p.Send(msg)
}
