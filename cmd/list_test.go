package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/phpguard/internal/domain"
	domainmocks "github.com/mouse-blink/phpguard/internal/domain/mocks"
	m "github.com/mouse-blink/phpguard/internal/model"
)

func TestListCmd_DefaultsToWholeExtension(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)
	cmd, _ := newTestRoot(t, mockWorkflow)
	dir := t.TempDir()

	mockWorkflow.EXPECT().List(domain.ListArgs{
		Paths: []m.Path{m.Path(filepath.Join(dir, "..."))},
	}).Return(nil)

	cmd.SetArgs([]string{"--basedir", dir, "list"})
	require.NoError(t, cmd.Execute())
}

func TestListCmd_PassesPaths(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)
	cmd, _ := newTestRoot(t, mockWorkflow)

	mockWorkflow.EXPECT().List(mock.MatchedBy(func(args domain.ListArgs) bool {
		return len(args.Paths) == 2 && args.Paths[0] == "./acp/..." && args.Paths[1] == "ext.php"
	})).Return(nil)

	cmd.SetArgs([]string{"--basedir", t.TempDir(), "list", "./acp/...", "ext.php"})
	require.NoError(t, cmd.Execute())
}

func TestListCmd_ExcludeExtendsConfig(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)
	cmd, _ := newTestRoot(t, mockWorkflow)

	mockWorkflow.EXPECT().List(mock.Anything).Return(nil)

	cmd.SetArgs([]string{"--basedir", t.TempDir(), "list", "-x", "build/**", "--exclude", "*.tpl.php"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []string{"vendor/**", "node_modules/**", "build/**", "*.tpl.php"}, current.cfg.Exclude)
}

func TestListCmd_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ext.php"), guardedPHP)
	writeFile(t, filepath.Join(dir, "language", "en", "common.php"), guardedPHP)
	writeFile(t, filepath.Join(dir, "vendor", "lib.php"), unguardedPHP)

	cmd, out := newTestRoot(t, nil)

	cmd.SetArgs([]string{"--basedir", dir, "--plain", "list"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "ext.php")
	assert.Contains(t, out.String(), "common.php")
	assert.NotContains(t, out.String(), "lib.php", "vendor is excluded by default")
}
