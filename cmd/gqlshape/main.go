package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hanpama/gqlshape/internal/casing"
	"github.com/hanpama/gqlshape/internal/config"
	"github.com/hanpama/gqlshape/internal/eventbus"
)

const rootLong = `gqlshape projects documents through a GraphQL-like selection.

A selection lists field names, renames them with name:alias and nests
sub-selections in braces:

  id name:display_name orders { id total }

Configuration sources (in order of precedence):
  1. Command line flags
  2. GQLSHAPE_* environment variables (GQLSHAPE_CASE, GQLSHAPE_PRELOAD)
  3. gqlshape.yaml in the working directory, or the file named by GQLSHAPE_CONFIG`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli holds the state shared by all subcommands of one invocation.
type cli struct {
	v        *viper.Viper
	policy   casing.Policy
	preload  bool
	logLevel string

	unsubscribe func()
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.NewViper()}

	root := &cobra.Command{
		Use:           "gqlshape",
		Short:         "Project documents through a GraphQL-like selection",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
	}

	flags := root.PersistentFlags()
	flags.Var(&c.policy, "case", "Output key case: none|snake|camel")
	flags.BoolVar(&c.preload, "preload", true, "Load associations in place instead of reloading copies")
	flags.StringVar(&c.logLevel, "log-level", "warn", "Log level: debug|info|warn|error")
	for _, name := range []string{"case", "preload"} {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(newProjectCmd(), newParseCmd(), newServeCmd())
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	initLogging(c.logLevel, cmd.ErrOrStderr())

	if err := config.ReadConfigFile(c.v); err != nil {
		return err
	}
	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}
	if err := config.Set(cfg); err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	c.unsubscribe = subscribeLogging()
	return nil
}

func (c *cli) teardown() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	eventbus.Use(nil)
}
