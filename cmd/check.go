package cmd

import (
	"github.com/spf13/cobra"
)

// checkCmd represents the check command. It behaves like the root command.
var checkCmd = newCheckCmd()

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check PHP files for the include guard",
		Long:  checkLongDescription,
		RunE:  runCheck,
	}
	addCheckFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
