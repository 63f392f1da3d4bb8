// Package commands implements the abctl commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// CLI is the abctl command line interface.
type CLI struct {
	rootCmd *cobra.Command
	flags   globalFlags

	env     *env
	closers []func(context.Context) error
}

type globalFlags struct {
	configPath  string
	sessionPath string
	logLevel    string
	output      string
	trace       string
	metrics     string
}

// New creates the CLI.
func New() *CLI {
	rootCmd := &cobra.Command{
		Use:           "abctl",
		Short:         "Manage A/B experiments, audiences, tenants and API keys",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{rootCmd: rootCmd}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.flags.configPath, "config", defaultPath("config.yaml"), "Path of the YAML configuration file")
	pf.StringVar(&c.flags.sessionPath, "session", defaultPath("session.yaml"), "Path of the session file holding credentials")
	pf.StringVar(&c.flags.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	pf.StringVarP(&c.flags.output, "output", "o", "table", "Output format: table, json or yaml")
	pf.StringVar(&c.flags.trace, "trace", "none", "Trace exporter: none, stdout or otlp")
	pf.StringVar(&c.flags.metrics, "metrics", "none", "Metrics exporter: none, stdout, otlp or prometheus")

	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		switch c.flags.output {
		case "table", "json", "yaml":
			return nil
		}
		return fmt.Errorf("unknown output format %q", c.flags.output)
	}

	rootCmd.AddCommand(c.newExperimentsCmd())
	rootCmd.AddCommand(c.newAudiencesCmd())
	rootCmd.AddCommand(c.newTenantsCmd())
	rootCmd.AddCommand(c.newProjectsCmd())
	rootCmd.AddCommand(c.newAPIKeysCmd())
	rootCmd.AddCommand(c.newUseKeyCmd())
	rootCmd.AddCommand(c.newHealthCmd())
	rootCmd.AddCommand(c.newMockServerCmd())

	return c
}

// Execute runs the root command with the given context and releases what
// the command set up.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	err := c.rootCmd.Execute()

	shutdownCtx := context.WithoutCancel(ctx)
	for i := len(c.closers) - 1; i >= 0; i-- {
		if cerr := c.closers[i](shutdownCtx); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	c.closers = nil
	c.env = nil
	return err
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func defaultPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, "abctl", name)
}
