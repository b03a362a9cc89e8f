package commands

import (
	"errors"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/cli/internal/config"
	"github.com/quarrydb/quarry/cli/internal/ui"
)

var errInvalidPort = errors.New("port must be a number between 1 and 65535")

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the quarry configuration",
	}
	cmd.AddCommand(newConfigShowCommand(a))
	cmd.AddCommand(newConfigInitCommand(a))
	return cmd
}

func newConfigShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective connection settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.resolveOptions()
			if err != nil {
				return err
			}

			password := ""
			if opts.Password != "" {
				password = "********"
			}
			return ui.PrintKeyValues("setting", "value", map[string]any{
				"host":            opts.Host,
				"port":            opts.Port,
				"user":            opts.User,
				"password":        password,
				"schema":          opts.Schema,
				"charset":         opts.Charset,
				"stmt_cache":      opts.StmtCache,
				"connect_timeout": opts.ConnectTimeout.String(),
				"read_timeout":    opts.ReadTimeout.String(),
				"write_timeout":   opts.WriteTimeout.String(),
			})
		},
	}
}

// configAnswers holds the interactive answers of config init
type configAnswers struct {
	Host      string
	Port      string
	User      string
	Schema    string
	StmtCache bool `survey:"stmt_cache"`
}

func newConfigInitCommand(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively write a .quarry.yaml file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			answers := configAnswers{}
			questions := []*survey.Question{
				{Name: "host", Prompt: &survey.Input{Message: "Host:", Default: a.cfg.Host}, Validate: survey.Required},
				{Name: "port", Prompt: &survey.Input{Message: "Port:", Default: strconv.Itoa(a.cfg.Port)}, Validate: validPort},
				{Name: "user", Prompt: &survey.Input{Message: "User:", Default: a.cfg.User}},
				{Name: "schema", Prompt: &survey.Input{Message: "Schema:", Default: a.cfg.Schema}},
				{Name: "stmt_cache", Prompt: &survey.Confirm{Message: "Cache prepared statements?", Default: a.cfg.StmtCache}},
			}
			if err := survey.Ask(questions, &answers); err != nil {
				return err
			}

			cfg := *a.cfg
			cfg.Host = answers.Host
			cfg.Port, _ = strconv.Atoi(answers.Port)
			cfg.User = answers.User
			cfg.Schema = answers.Schema
			cfg.StmtCache = answers.StmtCache

			written, err := config.SaveConfig(&cfg, path)
			if err != nil {
				return err
			}
			ui.PrintSuccess("Configuration written to %s", written)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "output", "o", ".quarry.yaml", "file to write")
	return cmd
}

func validPort(ans interface{}) error {
	s, _ := ans.(string)
	port, err := strconv.Atoi(s)
	if err != nil || port <= 0 || port > 65535 {
		return errInvalidPort
	}
	return nil
}
