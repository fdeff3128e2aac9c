package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mouse-blink/phpguard/internal/domain"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View previously stored guard reports",
		Long:  "View the guard reports stored by the last check in the reports directory.",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			return current.wf.View(domain.ViewArgs{
				Reports: current.reportsDir(),
				FailOn:  current.cfg.Threshold(),
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
