package adapter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	m "github.com/mouse-blink/phpguard/internal/model"
)

func startWatcher(t *testing.T, w *LocalWatcher, roots ...m.Path) (<-chan []m.Path, context.CancelFunc, <-chan error) {
	t.Helper()

	ready := make(chan struct{})
	w.ready = func() { close(ready) }

	ctx, cancel := context.WithCancel(context.Background())
	batches := make(chan []m.Path, 8)
	done := make(chan error, 1)

	go func() {
		done <- w.Watch(ctx, roots, func(b []m.Path) {
			select {
			case batches <- b:
			default:
			}
		})
	}()

	select {
	case <-ready:
	case err := <-done:
		cancel()
		require.FailNow(t, "watcher stopped early", "%v", err)
	case <-time.After(5 * time.Second):
		cancel()
		require.FailNow(t, "watcher did not start")
	}

	return batches, cancel, done
}

func TestLocalWatcher_ReportsChangedPHPFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "vendor"))

	w := NewLocalWatcher(SourceFSOptions{Basedir: m.Path(root), Exclude: []string{"vendor/**"}}, 20*time.Millisecond, nil)
	batches, cancel, done := startWatcher(t, w, m.Path(root+"/..."))

	writeTestFile(t, filepath.Join(root, "vendor", "autoload.php"), "<?php\n")
	writeTestFile(t, filepath.Join(root, "notes.txt"), "x")
	writeTestFile(t, filepath.Join(root, "ext.php"), guardedPHP)

	select {
	case batch := <-batches:
		assert.Equal(t, []m.Path{m.Path(filepath.Join(root, "ext.php"))}, batch)
	case <-time.After(5 * time.Second):
		assert.Fail(t, "no change reported")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestLocalWatcher_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	w := NewLocalWatcher(SourceFSOptions{}, 0, nil)
	_, cancel, done := startWatcher(t, w, m.Path(t.TempDir()))

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		assert.Fail(t, "watcher did not stop")
	}
}

func TestLocalWatcher_MissingRoot(t *testing.T) {
	w := NewLocalWatcher(SourceFSOptions{}, 0, nil)

	err := w.Watch(context.Background(), []m.Path{m.Path(filepath.Join(t.TempDir(), "missing"))}, func([]m.Path) {})
	assert.Error(t, err)
}

func TestLocalWatcher_FileRootIgnoresSiblings(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	root := t.TempDir()
	ext := filepath.Join(root, "ext.php")
	writeTestFile(t, ext, guardedPHP)
	writeTestFile(t, filepath.Join(root, "other.php"), guardedPHP)

	w := NewLocalWatcher(SourceFSOptions{Basedir: m.Path(root)}, 20*time.Millisecond, nil)
	batches, cancel, done := startWatcher(t, w, m.Path(ext))

	writeTestFile(t, filepath.Join(root, "other.php"), "<?php\n")
	writeTestFile(t, ext, "<?php\n")

	select {
	case batch := <-batches:
		assert.Equal(t, []m.Path{m.Path(ext)}, batch)
	case <-time.After(5 * time.Second):
		assert.Fail(t, "no change reported")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestLocalWatcher_RecursionIsPerRoot(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	root := t.TempDir()
	flat := filepath.Join(root, "includes")
	deep := filepath.Join(root, "acp")
	mustMkdir(t, flat)
	mustMkdir(t, deep)

	w := NewLocalWatcher(SourceFSOptions{Basedir: m.Path(root)}, 20*time.Millisecond, nil)
	batches, cancel, done := startWatcher(t, w, m.Path(flat), m.Path(deep+"/..."))

	mustMkdir(t, filepath.Join(flat, "sub"))
	time.Sleep(100 * time.Millisecond)
	writeTestFile(t, filepath.Join(flat, "sub", "nested.php"), "<?php\n")
	writeTestFile(t, filepath.Join(flat, "functions.php"), "<?php\n")

	select {
	case batch := <-batches:
		assert.Equal(t, []m.Path{m.Path(filepath.Join(flat, "functions.php"))}, batch)
	case <-time.After(5 * time.Second):
		assert.Fail(t, "no change reported")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatchScope(t *testing.T) {
	scope := newWatchScope()
	scope.files["/ext/ext.php"] = struct{}{}
	scope.addDir("/ext/includes", false)
	scope.addDir("/ext/acp", true)
	scope.addDir("/ext/acp", false)

	assert.True(t, scope.includes("/ext/ext.php"))
	assert.False(t, scope.includes("/ext/other.php"), "siblings of a file root are not covered")
	assert.True(t, scope.includes("/ext/includes/functions.php"))
	assert.False(t, scope.includes("/ext/includes/sub/nested.php"))

	assert.True(t, scope.recursiveParent("/ext/acp/new"), "recursion survives a later non-recursive add")
	assert.False(t, scope.recursiveParent("/ext/includes/new"))
	assert.False(t, scope.recursiveParent("/ext/ext.php"))
}
