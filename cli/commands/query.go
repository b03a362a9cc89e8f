package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/cli/internal/paramexpr"
	"github.com/quarrydb/quarry/cli/internal/ui"
	"github.com/quarrydb/quarry/query"
	"github.com/quarrydb/quarry/runtime/client"
)

type queryOptions struct {
	params []string
	raw    bool
	cache  bool
	tx     bool
}

func newQueryCommand(a *app) *cobra.Command {
	o := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query <sql>...",
		Short: "Run statements with :name parameters",
		Long: `Run one or more statements over a single connection.

Placeholders are written as :name and bound from --param flags:

  quarry query "SELECT * FROM users WHERE id IN (:ids) AND active = :active" \
    --param 'ids=[1, 2, 3]' --param active=true`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := paramexpr.ParseAll(o.params)
			if err != nil {
				return err
			}

			c, err := a.openClient()
			if err != nil {
				return err
			}
			defer c.Close()
			if cmd.Flags().Changed("cache") {
				c.SetStmtCacheEnabled(o.cache)
			}

			run := func(c *client.Client) error {
				return runStatements(cmd.Context(), c, args, values, o.raw)
			}
			if o.tx {
				err = c.Transaction(cmd.Context(), run)
			} else {
				err = run(c)
			}
			if err != nil {
				return err
			}

			if c.StmtCacheEnabled() && !o.raw {
				stats := c.CacheStats()
				ui.ColorPrint(ui.Printers()["secondary"], "statement cache: %d hit(s), %d miss(es)\n", stats.Hits, stats.Misses)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&o.params, "param", "p", nil, "named parameter as name=literal (repeatable)")
	cmd.Flags().BoolVar(&o.raw, "raw", false, "send the text as is, without parameter binding")
	cmd.Flags().BoolVar(&o.cache, "cache", false, "reuse prepared statements")
	cmd.Flags().BoolVar(&o.tx, "tx", false, "run all statements in one transaction")

	return cmd
}

func runStatements(ctx context.Context, c *client.Client, statements []string, values map[string]any, raw bool) error {
	for _, stmt := range statements {
		var (
			res query.Result
			err error
		)
		if raw {
			res, err = c.QueryRaw(ctx, stmt)
		} else {
			res, err = c.Query(ctx, stmt, values)
		}
		if err != nil {
			return err
		}
		if err := ui.PrintResult(res); err != nil {
			return err
		}
	}
	return nil
}
