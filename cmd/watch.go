package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mouse-blink/phpguard/internal/domain"
)

// watchCmd represents the watch command.
var watchCmd = newWatchCmd()

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Check the extension and re-check files as they change",
		Long: `Runs a check, then watches the checked directories and re-checks every
batch of changed PHP files. Stops on interrupt or when the UI is closed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return current.wf.Watch(ctx, domain.WatchArgs{CheckArgs: current.checkArgs(args)})
		},
	}
	addCheckFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
