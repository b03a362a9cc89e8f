package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/cli/internal/config"
	"github.com/quarrydb/quarry/cli/internal/stmtfile"
	"github.com/quarrydb/quarry/cli/internal/ui"
	"github.com/quarrydb/quarry/cli/internal/watch"
	"github.com/quarrydb/quarry/query/params"
)

type renderOptions struct {
	markdown bool
	watch    bool
}

func newRenderCommand(a *app) *cobra.Command {
	o := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <file.yaml>",
		Short: "Compile a statement file to SQL without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			render := func() error { return renderFile(path, o.markdown) }

			if !o.watch {
				return render()
			}

			w, err := watch.New(path, render, watch.WithErrorHandler(func(err error) {
				ui.PrintError("%v", err)
			}))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ui.PrintInfo("Watching %s, press Ctrl+C to stop", path)
			return w.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&o.markdown, "markdown", false, "render the output as markdown")
	cmd.Flags().BoolVarP(&o.watch, "watch", "w", false, "re-render whenever the file changes")

	return cmd
}

// rendered is the compiled form of a statement file
type rendered struct {
	template string
	values   map[string]any
	bound    *params.Bound
	bindErr  error
}

func compileFile(path string) (*rendered, error) {
	desc, err := stmtfile.Load(config.AppFs, path)
	if err != nil {
		return nil, err
	}
	b, err := desc.Builder(nil)
	if err != nil {
		return nil, err
	}
	template, err := b.SQL()
	if err != nil {
		return nil, err
	}

	r := &rendered{template: template, values: b.Values()}
	r.bound, r.bindErr = params.Bind(template, r.values)
	return r, nil
}

func renderFile(path string, markdown bool) error {
	r, err := compileFile(path)
	if err != nil {
		return err
	}
	if markdown {
		return ui.PrintMarkdown(r.markdown())
	}

	ui.PrintSection("Template")
	ui.PrintCodeBlock(r.template)
	if r.bindErr != nil {
		ui.PrintWarning("%v", r.bindErr)
	} else {
		ui.PrintSection("Prepared (" + r.bound.Types() + ")")
		ui.PrintCodeBlock(r.bound.SQL)
	}
	if len(r.values) > 0 {
		return ui.PrintKeyValues("param", "value", r.values)
	}
	return nil
}

func (r *rendered) markdown() string {
	var md strings.Builder
	md.WriteString("```sql\n" + r.template + "\n```\n\n")

	if r.bindErr != nil {
		fmt.Fprintf(&md, "> **%v**\n\n", r.bindErr)
	} else {
		fmt.Fprintf(&md, "Prepared with types `%s`:\n\n```sql\n%s\n```\n\n", r.bound.Types(), r.bound.SQL)
	}

	if len(r.values) == 0 {
		return md.String()
	}
	names := make([]string, 0, len(r.values))
	for name := range r.values {
		names = append(names, name)
	}
	sort.Strings(names)

	md.WriteString("| param | value |\n|---|---|\n")
	for _, name := range names {
		fmt.Fprintf(&md, "| `%s` | %s |\n", name, ui.FormatValue(r.values[name]))
	}
	return md.String()
}
