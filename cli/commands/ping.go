package commands

import (
	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/cli/internal/compat"
	"github.com/quarrydb/quarry/cli/internal/ui"
)

func newPingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the connection and print the server version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openClient()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx := cmd.Context()
			if err := c.Ping(ctx); err != nil {
				return err
			}
			raw, err := c.ServerVersion(ctx)
			if err != nil {
				return err
			}

			ui.PrintSuccess("Connected to %s", c.Options().Addr())

			server, err := compat.Parse(raw)
			if err != nil {
				ui.PrintWarning("Unrecognized server version %q", raw)
				return nil
			}
			ui.PrintInfo("Server: %s (%s)", server, raw)
			if !server.SupportsForShare() {
				ui.PrintInfo("FOR SHARE is not available, row share locks use LOCK IN SHARE MODE")
			}
			return nil
		},
	}
}
