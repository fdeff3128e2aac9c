package domain

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mouse-blink/phpguard/internal/adapter"
	"github.com/mouse-blink/phpguard/internal/controller"
	m "github.com/mouse-blink/phpguard/internal/model"
	"github.com/mouse-blink/phpguard/internal/phpast"
)

var (
	// ErrFindings is returned when a finding reaches the failure threshold.
	ErrFindings = errors.New("guard check failed")
	// ErrNoReports is returned by View when the reports directory is empty.
	ErrNoReports = errors.New("no reports found")
)

// CheckArgs holds the arguments of a check run.
type CheckArgs struct {
	Paths   []m.Path
	Reports m.Path
	// Parallel bounds the number of files checked at once.
	Parallel int
	// FailOn is the lowest severity that makes the run fail; 0 never fails.
	FailOn m.Severity
	// OnlyChanged re-checks only files whose stored report is missing or
	// outdated.
	OnlyChanged bool
}

// ListArgs holds the arguments for listing sources.
type ListArgs struct {
	Paths []m.Path
}

// ViewArgs holds the arguments for viewing stored reports.
type ViewArgs struct {
	Reports m.Path
	FailOn  m.Severity
}

// WatchArgs holds the arguments of watch mode.
type WatchArgs struct {
	CheckArgs
}

// Workflow defines the phpguard use cases.
type Workflow interface {
	Check(ctx context.Context, args CheckArgs) error
	List(args ListArgs) error
	View(args ViewArgs) error
	Watch(ctx context.Context, args WatchArgs) error
}

// WorkflowOption customises a workflow.
type WorkflowOption func(*workflow)

// WithBasedir sets the directory test paths are resolved against.
func WithBasedir(basedir m.Path) WorkflowOption {
	return func(w *workflow) {
		w.basedir = basedir
	}
}

// WithLogger sets the workflow logger.
func WithLogger(log *slog.Logger) WorkflowOption {
	return func(w *workflow) {
		if log != nil {
			w.log = log
		}
	}
}

type workflow struct {
	fsAdapter   adapter.SourceFSAdapter
	phpAdapter  adapter.PHPFileAdapter
	reportStore adapter.ReportStore
	watcher     adapter.FileWatcher
	ui          controller.UI
	checker     *GuardChecker
	basedir     m.Path
	log         *slog.Logger
}

// NewWorkflow creates a new Workflow instance with the provided adapters.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	phpAdapter adapter.PHPFileAdapter,
	reportStore adapter.ReportStore,
	watcher adapter.FileWatcher,
	ui controller.UI,
	checker *GuardChecker,
	options ...WorkflowOption,
) Workflow {
	w := &workflow{
		fsAdapter:   fsAdapter,
		phpAdapter:  phpAdapter,
		reportStore: reportStore,
		watcher:     watcher,
		ui:          ui,
		checker:     checker,
		log:         slog.New(slog.DiscardHandler),
	}

	for _, opt := range options {
		opt(w)
	}

	return w
}

// Check discovers, checks and stores the reports of the files under
// args.Paths, then displays them.
func (w *workflow) Check(ctx context.Context, args CheckArgs) error {
	if err := w.ui.Start(controller.WithCheckMode()); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}

	defer w.ui.Close()

	reports, err := w.run(ctx, args)
	if err != nil {
		return err
	}

	if err := w.ui.DisplayReports(reports); err != nil {
		return err
	}

	w.ui.Wait()

	return failures(reports, args.FailOn)
}

// List displays the files a check would visit.
func (w *workflow) List(args ListArgs) error {
	sources, err := w.fsAdapter.Get(args.Paths)
	if err != nil {
		return fmt.Errorf("get sources: %w", err)
	}

	if err := w.ui.Start(controller.WithListMode()); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}

	defer w.ui.Close()

	sortSources(sources)

	if err := w.ui.DisplaySources(sources); err != nil {
		return err
	}

	w.ui.Wait()

	return nil
}

// View displays the stored reports.
func (w *workflow) View(args ViewArgs) error {
	reports, err := w.reportStore.LoadReports(args.Reports)
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}

	if len(reports) == 0 {
		return fmt.Errorf("%w in %s", ErrNoReports, args.Reports)
	}

	if err := w.ui.Start(controller.WithViewMode()); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}

	defer w.ui.Close()

	if err := w.ui.DisplayReports(reports); err != nil {
		return err
	}

	w.ui.Wait()

	return failures(reports, args.FailOn)
}

// Watch runs an initial check and re-checks changed files until ctx is done
// or the user closes the UI.
func (w *workflow) Watch(ctx context.Context, args WatchArgs) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.ui.Start(controller.WithWatchMode()); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}

	defer w.ui.Close()

	go func() {
		select {
		case <-w.ui.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	reports, err := w.run(ctx, args.CheckArgs)
	if err != nil {
		return err
	}

	if err := w.ui.DisplayReports(reports); err != nil {
		return err
	}

	return w.watcher.Watch(ctx, args.Paths, func(batch []m.Path) {
		w.ui.DisplayWatchBatch(batch)

		reports, err := w.recheck(ctx, args.CheckArgs, batch)
		if err != nil {
			w.log.Warn("Re-check failed", slog.Any("error", err))

			return
		}

		if err := w.ui.DisplayReports(reports); err != nil {
			w.log.Warn("Display failed", slog.Any("error", err))
		}
	})
}

// run checks the sources under args.Paths, stores the reports and returns
// the reports to display.
func (w *workflow) run(ctx context.Context, args CheckArgs) ([]m.Report, error) {
	sources, err := w.fsAdapter.Get(args.Paths)
	if err != nil {
		return nil, fmt.Errorf("get sources: %w", err)
	}

	if !args.OnlyChanged {
		reports, err := w.checkSources(ctx, sources, args.Parallel)
		if err != nil {
			return nil, err
		}

		return reports, w.store(args.Reports, reports)
	}

	changed, err := w.reportStore.CheckUpdates(args.Reports, sources)
	if err != nil {
		return nil, fmt.Errorf("check updates: %w", err)
	}

	toCheck, outside := splitStale(changed, sources)
	stale := w.removedSources(outside)

	w.log.Debug("Incremental check",
		slog.Int("sources", len(sources)),
		slog.Int("changed", len(toCheck)),
		slog.Int("removed", len(stale)))

	if len(stale) > 0 {
		if err := w.reportStore.CleanReports(args.Reports, stale); err != nil {
			return nil, fmt.Errorf("clean reports: %w", err)
		}
	}

	reports, err := w.checkSources(ctx, toCheck, args.Parallel)
	if err != nil {
		return nil, err
	}

	if err := w.store(args.Reports, reports); err != nil {
		return nil, err
	}

	all, err := w.reportStore.LoadReports(args.Reports)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}

	return all, nil
}

// recheck handles one watch batch: removed files lose their report, the
// others are checked again. It returns every stored report.
func (w *workflow) recheck(ctx context.Context, args CheckArgs, batch []m.Path) ([]m.Report, error) {
	var (
		present []m.Path
		removed []m.Source
	)

	for _, p := range batch {
		if _, err := w.fsAdapter.FileInfo(p); err != nil {
			removed = append(removed, m.Source{Origin: &m.File{Path: p}})

			continue
		}

		present = append(present, p)
	}

	if len(removed) > 0 {
		if err := w.reportStore.CleanReports(args.Reports, removed); err != nil {
			return nil, fmt.Errorf("clean reports: %w", err)
		}
	}

	if len(present) > 0 {
		sources, err := w.fsAdapter.Get(present)
		if err != nil {
			return nil, fmt.Errorf("get sources: %w", err)
		}

		reports, err := w.checkSources(ctx, sources, args.Parallel)
		if err != nil {
			return nil, err
		}

		if err := w.store(args.Reports, reports); err != nil {
			return nil, err
		}
	}

	reports, err := w.reportStore.LoadReports(args.Reports)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}

	return reports, nil
}

// checkSources checks every source under one run ID. Each file is parsed
// and checked on its own goroutine; findings meet in a shared sink.
func (w *workflow) checkSources(ctx context.Context, sources []m.Source, parallel int) ([]m.Report, error) {
	if parallel <= 0 {
		parallel = 1
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	runID := id.String()
	sink := NewMemorySink()
	reports := make([]m.Report, len(sources))

	var checked atomic.Int64

	total := len(sources)
	w.ui.DisplayProgress(0, total)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, source := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res, err := w.checkSource(source, sink)
			if err != nil {
				return err
			}

			reports[i] = m.Report{
				RunID:      runID,
				Source:     source,
				GuardFound: res.GuardFound,
				Exempt:     res.Exempt,
			}

			w.ui.DisplayProgress(int(checked.Add(1)), total)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range reports {
		reports[i].Findings = sink.ForFile(reports[i].Source.Origin.Path)
	}

	sortReports(reports)

	w.log.Info("Checked files",
		slog.String("run_id", runID),
		slog.Int("files", total),
		slog.Int("findings", len(sink.Findings())))

	return reports, nil
}

func (w *workflow) checkSource(source m.Source, sink Sink) (CheckResult, error) {
	path := source.Origin.Path

	src, err := w.fsAdapter.ReadFile(path)
	if err != nil {
		return CheckResult{}, fmt.Errorf("read %s: %w", path, err)
	}

	w.log.Debug("Trying to parse file", slog.String("path", string(path)))

	in := CheckInput{Path: path, Basedir: w.basedir, Kind: source.Kind}

	file, err := w.phpAdapter.Parse(path, src)
	if err != nil {
		var perr *phpast.ParseError
		if !errors.As(err, &perr) {
			return CheckResult{}, fmt.Errorf("parse %s: %w", path, err)
		}

		in.ParseErr = perr
	}

	in.File = file

	return w.checker.CheckTo(in, sink), nil
}

func (w *workflow) store(dir m.Path, reports []m.Report) error {
	if len(reports) == 0 {
		return nil
	}

	if err := w.reportStore.SaveReports(dir, reports); err != nil {
		return fmt.Errorf("save reports: %w", err)
	}

	if err := w.reportStore.RegenerateIndex(dir); err != nil {
		return fmt.Errorf("regenerate index: %w", err)
	}

	return nil
}

// splitStale separates changed sources still present in sources from the
// stored ones that were not discovered this run.
func splitStale(changed, sources []m.Source) (toCheck, stale []m.Source) {
	current := make(map[m.Path]struct{}, len(sources))
	for _, s := range sources {
		current[s.Origin.Path] = struct{}{}
	}

	for _, s := range changed {
		if _, ok := current[s.Origin.Path]; ok {
			toCheck = append(toCheck, s)
		} else {
			stale = append(stale, s)
		}
	}

	return toCheck, stale
}

// removedSources keeps the candidates whose file no longer exists. Reports
// of files that were merely outside the checked roots stay stored.
func (w *workflow) removedSources(candidates []m.Source) []m.Source {
	var gone []m.Source

	for _, s := range candidates {
		if _, err := w.fsAdapter.FileInfo(s.Origin.Path); errors.Is(err, os.ErrNotExist) {
			gone = append(gone, s)
		}
	}

	return gone
}

// failures wraps ErrFindings with the number of files at or above threshold.
func failures(reports []m.Report, threshold m.Severity) error {
	if threshold == 0 {
		return nil
	}

	n := 0

	for _, r := range reports {
		if r.Worst() >= threshold {
			n++
		}
	}

	if n == 0 {
		return nil
	}

	return fmt.Errorf("%w: %d file(s) with %s or worse findings", ErrFindings, n, threshold)
}

func sortReports(reports []m.Report) {
	slices.SortFunc(reports, func(a, b m.Report) int {
		return cmp.Compare(a.Source.Origin.Path, b.Source.Origin.Path)
	})
}

func sortSources(sources []m.Source) {
	slices.SortFunc(sources, func(a, b m.Source) int {
		return cmp.Compare(a.Origin.Path, b.Origin.Path)
	})
}
