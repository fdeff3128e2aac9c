package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mouse-blink/phpguard/internal/domain"
)

// listCmd represents the list command.
var listCmd = newListCmd()

const listLongDescription = `Lists the PHP files that a check would visit, with their kind and
content hash. Language resources are marked so that their exemption from
the guard is visible before running a check.`

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "List the PHP files of the extension",
		Long:  listLongDescription,
		RunE: func(_ *cobra.Command, args []string) error {
			return current.wf.List(domain.ListArgs{Paths: current.parsePaths(args)})
		},
	}
	cmd.Flags().StringArrayVarP(&excludeFlags, "exclude", "x", nil, "exclude files matching a glob relative to the base directory (can be repeated)")

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
