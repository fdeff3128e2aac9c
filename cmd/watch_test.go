package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/phpguard/internal/domain"
	domainmocks "github.com/mouse-blink/phpguard/internal/domain/mocks"
)

func TestWatchCmd_PassesCheckArgs(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)
	cmd, _ := newTestRoot(t, mockWorkflow)

	mockWorkflow.EXPECT().Watch(mock.Anything, mock.MatchedBy(func(args domain.WatchArgs) bool {
		return len(args.Paths) == 1 && args.Paths[0] == "./..." && args.Parallel == 2
	})).RunAndReturn(func(ctx context.Context, _ domain.WatchArgs) error {
		assert.NoError(t, ctx.Err(), "watch starts with a live context")

		return nil
	})

	cmd.SetArgs([]string{"--basedir", t.TempDir(), "watch", "-p", "2", "./..."})
	require.NoError(t, cmd.Execute())
}

func TestWatchCmd_StopsWithParentContext(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)
	cmd, _ := newTestRoot(t, mockWorkflow)

	mockWorkflow.EXPECT().Watch(mock.Anything, mock.Anything).RunAndReturn(func(ctx context.Context, _ domain.WatchArgs) error {
		<-ctx.Done()

		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd.SetArgs([]string{"--basedir", t.TempDir(), "watch"})
	require.ErrorIs(t, cmd.ExecuteContext(ctx), context.Canceled)
}
