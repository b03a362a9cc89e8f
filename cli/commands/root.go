// Package commands implements the quarry CLI commands.
package commands

import (
	"context"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/cli/internal/config"
	"github.com/quarrydb/quarry/cli/internal/ui"
	"github.com/quarrydb/quarry/cli/internal/version"
	"github.com/quarrydb/quarry/internal/debug"
	"github.com/quarrydb/quarry/runtime/client"
)

// app carries the global flags and resolved configuration shared by commands
type app struct {
	configFile  string
	dsn         string
	debug       bool
	askPassword bool

	cfg *config.Config

	// clientOptions are appended when a client is opened
	clientOptions []client.Option
	// promptPassword asks for the password when --ask-password is set
	promptPassword func() (string, error)
}

func newApp() *app {
	return &app{promptPassword: surveyPassword}
}

func surveyPassword() (string, error) {
	var password string
	err := survey.AskOne(&survey.Password{Message: "MySQL password:"}, &password)
	return password, err
}

// NewRootCommand creates the quarry command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(newApp())
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "quarry",
		Short:         "Compile and run MySQL statements",
		Long:          "quarry builds MySQL statements, binds named parameters and runs them over a single connection.",
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			debug.Init(a.debug || cfg.Debug)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default searches .quarry.yaml in ., $HOME and $HOME/.config/quarry)")
	flags.StringVar(&a.dsn, "dsn", "", "connection DSN, e.g. user:pass@tcp(127.0.0.1:3306)/db")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&a.askPassword, "ask-password", false, "prompt for the password")

	root.AddCommand(newPingCommand(a))
	root.AddCommand(newQueryCommand(a))
	root.AddCommand(newRenderCommand(a))
	root.AddCommand(newConfigCommand(a))
	root.AddCommand(NewVersionCommand())

	return root
}

// Execute runs the CLI
func Execute() error {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}

// resolveOptions resolves the connection options: config, then --dsn, then --ask-password
func (a *app) resolveOptions() (client.Options, error) {
	opts, err := a.cfg.ClientOptions()
	if err != nil {
		return client.Options{}, err
	}

	if a.dsn != "" {
		cache := opts.StmtCache
		opts, err = client.OptionsFromDSN(a.dsn)
		if err != nil {
			return client.Options{}, fmt.Errorf("invalid --dsn: %w", err)
		}
		opts.StmtCache = cache
	}

	if a.askPassword {
		password, err := a.promptPassword()
		if err != nil {
			return client.Options{}, err
		}
		opts.Password = password
	}
	return opts, nil
}

// openClient creates a client; the connection opens on first use
func (a *app) openClient() (*client.Client, error) {
	opts, err := a.resolveOptions()
	if err != nil {
		return nil, err
	}

	logger := debug.Tagged("mysql")
	options := []client.Option{client.WithLogger(logger)}
	if debug.Enabled() {
		options = append(options, client.WithMiddleware(client.LoggingMiddleware(logger)))
	}
	options = append(options, a.clientOptions...)

	return client.New(opts, options...)
}
