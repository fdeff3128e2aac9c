package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	m "github.com/mouse-blink/phpguard/internal/model"
)

// DefaultDebounce is how long the watcher waits for a burst of events to end.
const DefaultDebounce = 200 * time.Millisecond

// FileWatcher reports changed PHP files.
type FileWatcher interface {
	// Watch blocks until ctx is done, calling onChange with each batch of
	// created, written, renamed or removed .php files under roots.
	Watch(ctx context.Context, roots []m.Path, onChange func([]m.Path)) error
}

// LocalWatcher is an fsnotify-backed FileWatcher. Events are debounced and
// delivered from the goroutine that called Watch.
type LocalWatcher struct {
	opts     SourceFSOptions
	debounce time.Duration
	log      *slog.Logger

	// ready is called once every root is watched.
	ready func()
}

// NewLocalWatcher constructs a LocalWatcher honouring the exclusions in opts.
func NewLocalWatcher(opts SourceFSOptions, debounce time.Duration, log *slog.Logger) *LocalWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &LocalWatcher{opts: opts, debounce: debounce, log: log}
}

// Watch implements FileWatcher.
func (w *LocalWatcher) Watch(ctx context.Context, roots []m.Path, onChange func([]m.Path)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	basedir, err := filepath.Abs(string(w.opts.Basedir))
	if err != nil {
		return err
	}

	scope := newWatchScope()

	for _, root := range roots {
		rootPath, rec, err := normalizeRootPath(string(root))
		if err != nil {
			return err
		}

		if err := w.addWatches(watcher, basedir, rootPath, rec, scope); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
	}

	if w.ready != nil {
		w.ready()
	}

	pending := make(map[m.Path]struct{})

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	defer timer.Stop()

	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !w.handleEvent(watcher, basedir, scope, event, pending) {
				continue
			}

			timer.Reset(w.debounce)
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			w.log.Warn("File watcher error", slog.Any("error", err))

		case <-fire:
			fire = nil

			if len(pending) == 0 {
				continue
			}

			batch := make([]m.Path, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}

			clear(pending)
			slices.Sort(batch)

			onChange(batch)
		}
	}
}

// watchScope records which paths the requested roots cover. A file root
// watches its parent directory but only that file is reported.
type watchScope struct {
	files map[string]struct{}
	// dirs maps each watched directory to whether new subdirectories are
	// watched too.
	dirs map[string]bool
}

func newWatchScope() *watchScope {
	return &watchScope{files: make(map[string]struct{}), dirs: make(map[string]bool)}
}

func (s *watchScope) addDir(dir string, recursive bool) {
	dir = filepath.Clean(dir)
	s.dirs[dir] = s.dirs[dir] || recursive
}

func (s *watchScope) includes(path string) bool {
	path = filepath.Clean(path)
	if _, ok := s.files[path]; ok {
		return true
	}

	_, ok := s.dirs[filepath.Dir(path)]

	return ok
}

func (s *watchScope) recursiveParent(path string) bool {
	return s.dirs[filepath.Dir(filepath.Clean(path))]
}

// handleEvent records a PHP file event and reports whether one was recorded.
func (w *LocalWatcher) handleEvent(watcher *fsnotify.Watcher, basedir string, scope *watchScope, event fsnotify.Event, pending map[m.Path]struct{}) bool {
	path := event.Name

	w.log.Debug("File watcher event", slog.String("path", path), slog.String("op", event.Op.String()))

	if event.Op&fsnotify.Create != 0 && scope.recursiveParent(path) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addWatches(watcher, basedir, path, true, scope); err != nil {
				w.log.Warn("Failed to watch new directory", slog.String("path", path), slog.Any("error", err))
			}

			return false
		}
	}

	if !strings.EqualFold(filepath.Ext(path), ".php") || matchesAny(w.opts.Exclude, basedir, path) {
		return false
	}

	if !scope.includes(path) {
		return false
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	pending[m.Path(path)] = struct{}{}

	return true
}

func (w *LocalWatcher) addWatches(watcher *fsnotify.Watcher, basedir, root string, recursive bool, scope *watchScope) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		scope.files[filepath.Clean(root)] = struct{}{}

		return watcher.Add(filepath.Dir(root))
	}

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if path != root {
			if !recursive || info.Name() == ".git" || matchesAny(w.opts.Exclude, basedir, path) {
				return filepath.SkipDir
			}
		}

		scope.addDir(path, recursive)

		return watcher.Add(path)
	})
}
