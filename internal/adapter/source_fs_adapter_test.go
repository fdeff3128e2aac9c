package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/phpguard/internal/model"
)

const guardedPHP = "<?php\nif (!defined('IN_PHPBB'))\n{\n\texit;\n}\n"

func TestLocalSourceFSAdapter_Walk(t *testing.T) {
	t.Run("non recursive skips nested files", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter(SourceFSOptions{})

		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "ext.php"), guardedPHP)

		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		writeTestFile(t, filepath.Join(nestedDir, "child.php"), guardedPHP)

		var visited []string
		err := adapter.Walk(m.Path(root), false, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		require.NoError(t, err)

		for _, forbidden := range []string{nestedDir, filepath.Join(nestedDir, "child.php")} {
			assert.Falsef(t, containsPath(visited, forbidden), "Walk() unexpectedly visited %s when recursive is false", forbidden)
		}

		assert.True(t, containsPath(visited, filepath.Join(root, "ext.php")), "Walk() did not visit top-level file")
	})

	t.Run("recursive visits nested files", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter(SourceFSOptions{})

		root := t.TempDir()
		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		child := filepath.Join(nestedDir, "child.php")
		writeTestFile(t, child, guardedPHP)

		var visited []string
		err := adapter.Walk(m.Path(root), true, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		require.NoError(t, err)

		assert.True(t, containsPath(visited, child), "Walk() did not visit nested file when recursive")
	})
}

func TestLocalSourceFSAdapter_ReadFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter(SourceFSOptions{})

	path := filepath.Join(t.TempDir(), "ext.php")
	writeTestFile(t, path, guardedPHP)

	got, err := adapter.ReadFile(m.Path(path))
	require.NoError(t, err)

	assert.Equal(t, guardedPHP, string(got))
}

func TestLocalSourceFSAdapter_HashFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter(SourceFSOptions{})

	path := filepath.Join(t.TempDir(), "ext.php")
	content := []byte(guardedPHP)
	writeTestBytes(t, path, content)

	hash, err := adapter.HashFile(m.Path(path))
	require.NoError(t, err)

	assert.Equal(t, hashBytes(content), hash)
	assert.Len(t, hash, 16)

	_, err = adapter.HashFile(m.Path(filepath.Join(t.TempDir(), "missing.php")))
	assert.Error(t, err)
}

func TestLocalSourceFSAdapter_FileInfo(t *testing.T) {
	adapter := NewLocalSourceFSAdapter(SourceFSOptions{})

	root := t.TempDir()
	path := filepath.Join(root, "ext.php")
	writeTestFile(t, path, guardedPHP)

	info, err := adapter.FileInfo(m.Path(path))
	require.NoError(t, err)

	assert.False(t, info.IsDir(), "FileInfo() reported file as directory")

	dirInfo, err := adapter.FileInfo(m.Path(root))
	require.NoError(t, err)
	assert.True(t, dirInfo.IsDir(), "FileInfo() reported directory as file")
}

func TestLocalSourceFSAdapter_FindProjectRoot(t *testing.T) {
	adapter := NewLocalSourceFSAdapter(SourceFSOptions{})

	root := t.TempDir()
	extDir := filepath.Join(root, "acme", "demo")
	require.NoError(t, os.MkdirAll(extDir, 0o755))
	writeTestFile(t, filepath.Join(extDir, "composer.json"), "{}\n")

	subDir := filepath.Join(extDir, "includes", "sub")
	require.NoError(t, os.MkdirAll(subDir, 0o755))

	t.Run("from a file", func(t *testing.T) {
		got, err := adapter.FindProjectRoot(m.Path(filepath.Join(subDir, "functions.php")))
		require.NoError(t, err)
		assert.Equal(t, m.Path(extDir), got)
	})

	t.Run("from a directory", func(t *testing.T) {
		got, err := adapter.FindProjectRoot(m.Path(subDir))
		require.NoError(t, err)
		assert.Equal(t, m.Path(extDir), got)
	})

	t.Run("from the root itself", func(t *testing.T) {
		got, err := adapter.FindProjectRoot(m.Path(extDir))
		require.NoError(t, err)
		assert.Equal(t, m.Path(extDir), got)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := adapter.FindProjectRoot(m.Path(root))
		assert.Error(t, err)
	})
}

func TestLocalSourceFSAdapter_Get(t *testing.T) {
	t.Run("dot selects current directory non-recursive", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter(SourceFSOptions{})

		root := t.TempDir()
		extPath := filepath.Join(root, "ext.php")
		copyExampleFile(t, filepath.Join(examplePath(t, "acme_demo"), "ext.php"), extPath)

		nestedPath := filepath.Join(root, "includes", "functions.php")
		copyExampleFile(t, filepath.Join(examplePath(t, "acme_demo", "includes"), "functions.php"), nestedPath)

		chdir(t, root)

		sources, err := adapter.Get([]m.Path{"."})
		require.NoError(t, err)
		require.Len(t, sources, 1)

		source := findSourceByOrigin(sources, extPath)
		require.NotNilf(t, source, "Get() did not include %s", extPath)
		assertSource(t, source, extPath, readFileBytes(t, extPath), "ext.php", m.GenericSource)

		assert.Nil(t, findSourceByOrigin(sources, nestedPath), "Get() unexpectedly included nested file for '.'")
	})

	t.Run("tilde expands home directory", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter(SourceFSOptions{})

		home := t.TempDir()
		t.Setenv("HOME", home)

		path := filepath.Join(home, "home.php")
		writeTestFile(t, path, guardedPHP)

		sources, err := adapter.Get([]m.Path{"~"})
		require.NoError(t, err)

		assert.NotNil(t, findSourceByOrigin(sources, path))
	})

	t.Run("recursive path classifies and relativises", func(t *testing.T) {
		dir := examplePath(t, "acme_demo")
		adapter := NewLocalSourceFSAdapter(SourceFSOptions{
			Basedir:      m.Path(dir),
			LanguageDirs: []string{"language"},
		})

		sources, err := adapter.Get([]m.Path{m.Path(dir + "/...")})
		require.NoError(t, err)

		byRel := make(map[m.Path]m.Source, len(sources))
		for _, s := range sources {
			byRel[s.Rel] = s
		}

		require.Contains(t, byRel, m.Path("ext.php"))
		require.Contains(t, byRel, m.Path("language/en/common.php"))
		require.Contains(t, byRel, m.Path("tests/functions_test.php"))

		assert.Equal(t, m.GenericSource, byRel["ext.php"].Kind)
		assert.Equal(t, m.LanguageResource, byRel["language/en/common.php"].Kind)
		assert.Equal(t, m.GenericSource, byRel["includes/functions.php"].Kind)
		assert.NotContains(t, byRel, m.Path("composer.json"))
	})

	t.Run("exclusions skip files and directories", func(t *testing.T) {
		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "ext.php"), guardedPHP)
		require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor", "lib"), 0o755))
		writeTestFile(t, filepath.Join(root, "vendor", "lib", "autoload.php"), "<?php\n")
		require.NoError(t, os.MkdirAll(filepath.Join(root, "includes"), 0o755))
		writeTestFile(t, filepath.Join(root, "includes", "generated.php"), "<?php\n")
		writeTestFile(t, filepath.Join(root, "includes", "kept.php"), guardedPHP)
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
		writeTestFile(t, filepath.Join(root, ".git", "hook.php"), "<?php\n")

		adapter := NewLocalSourceFSAdapter(SourceFSOptions{
			Basedir: m.Path(root),
			Exclude: []string{"vendor/**", "**/generated.php"},
		})

		sources, err := adapter.Get([]m.Path{m.Path(root + "/...")})
		require.NoError(t, err)

		var rels []string
		for _, s := range sources {
			rels = append(rels, string(s.Rel))
		}

		assert.ElementsMatch(t, []string{"ext.php", "includes/kept.php"}, rels)
	})

	t.Run("returns error for missing root", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter(SourceFSOptions{})

		_, err := adapter.Get([]m.Path{"/path/does/not/exist"})
		assert.Error(t, err)
	})

	t.Run("file path returns single source", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, "ext.php")
		writeTestFile(t, path, guardedPHP)

		adapter := NewLocalSourceFSAdapter(SourceFSOptions{Basedir: m.Path(root)})

		sources, err := adapter.Get([]m.Path{m.Path(path)})
		require.NoError(t, err)
		require.Len(t, sources, 1)

		assertSource(t, &sources[0], path, []byte(guardedPHP), "ext.php", m.GenericSource)
	})

	t.Run("non-php files are ignored", func(t *testing.T) {
		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "composer.json"), "{}\n")
		writeTestFile(t, filepath.Join(root, "style.css"), "body {}\n")

		sources, err := NewLocalSourceFSAdapter(SourceFSOptions{}).Get([]m.Path{m.Path(root)})
		require.NoError(t, err)
		assert.Empty(t, sources)
	})

	t.Run("broken php files are still returned", func(t *testing.T) {
		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "broken.php"), "<?php\nfunction {\n")

		sources, err := NewLocalSourceFSAdapter(SourceFSOptions{}).Get([]m.Path{m.Path(root)})
		require.NoError(t, err)
		assert.Len(t, sources, 1)
	})

	t.Run("duplicate roots are de-duplicated", func(t *testing.T) {
		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "ext.php"), guardedPHP)

		sources, err := NewLocalSourceFSAdapter(SourceFSOptions{}).Get([]m.Path{m.Path(root), m.Path(root + "/...")})
		require.NoError(t, err)
		assert.Len(t, sources, 1)
	})

	t.Run("no roots", func(t *testing.T) {
		sources, err := NewLocalSourceFSAdapter(SourceFSOptions{}).Get(nil)
		require.NoError(t, err)
		assert.Empty(t, sources)
	})
}

func TestParseRootPath(t *testing.T) {
	tests := []struct {
		in        string
		path      string
		recursive bool
	}{
		{"./...", ".", true},
		{"...", ".", true},
		{"ext/acme/...", "ext/acme", true},
		{".", ".", false},
		{"ext/acme", "ext/acme", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			path, recursive := parseRootPath(tt.in)

			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.recursive, recursive)
		})
	}
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()
	writeTestBytes(t, path, []byte(contents))
}

func writeTestBytes(t *testing.T, path string, contents []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("failed to create dir %s: %v", path, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func containsPath(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}

	return false
}

func findSourceByOrigin(sources []m.Source, origin string) *m.Source {
	for i := range sources {
		if sources[i].Origin == nil {
			continue
		}
		if string(sources[i].Origin.Path) == origin {
			return &sources[i]
		}
	}

	return nil
}

func assertSource(t *testing.T, source *m.Source, originPath string, originContent []byte, rel string, kind m.FileKind) {
	t.Helper()

	require.NotNil(t, source, "source is nil")
	require.NotNil(t, source.Origin, "Origin is nil")

	assert.Equal(t, m.Path(originPath), source.Origin.Path)
	assert.Equal(t, hashBytes(originContent), source.Origin.Hash)
	assert.Equal(t, m.Path(rel), source.Rel)
	assert.Equal(t, kind, source.Kind)
}

func hashBytes(content []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}

func examplePath(t *testing.T, elem ...string) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)

	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))
	parts := append([]string{repoRoot, "examples"}, elem...)

	return filepath.Join(parts...)
}

func copyExampleFile(t *testing.T, src, dst string) {
	t.Helper()
	content := readFileBytes(t, src)
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.WriteFile(dst, content, 0o644))
}

func readFileBytes(t *testing.T, path string) []byte {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	return content
}
