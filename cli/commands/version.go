package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/cli/internal/ui"
	"github.com/quarrydb/quarry/cli/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			if short {
				fmt.Fprintln(ui.Out, info.String())
				return
			}
			fmt.Fprintln(ui.Out, info.FullString())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print a single line")
	return cmd
}
