// Package cli provides the command-line interface for crimestats.
// The CLI serves the HTTP API, runs the statistics queries locally against
// the configured store and diagnoses the store and configuration.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seguridad-santander/crimestats/internal/bootstrap"
	"github.com/seguridad-santander/crimestats/internal/config"
	"github.com/seguridad-santander/crimestats/internal/errors"
	"github.com/seguridad-santander/crimestats/internal/logging"
)

// Exit codes follow the error codes of internal/errors.
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitDataAccess = 3
	ExitInternal   = 4
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// CLI holds the command-line interface state.
type CLI struct {
	rootCmd *cobra.Command
	cfg     *config.Config
	logger  zerolog.Logger

	out    io.Writer
	errOut io.Writer

	// Global flags
	configPath string
	envFile    string
	output     string
	quiet      bool
	debug      bool
}

// New creates a new CLI instance writing to stdout and stderr.
func New() *CLI {
	cli := &CLI{out: os.Stdout, errOut: os.Stderr}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

// SetOutput redirects command output and diagnostics.
func (c *CLI) SetOutput(out, errOut io.Writer) {
	c.out = out
	c.errOut = errOut
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(errOut)
}

// SetArgs overrides os.Args for the next Execute.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// Execute runs the CLI and returns the process exit code.
func (c *CLI) Execute() int {
	return c.ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI with ctx and returns the process exit code.
func (c *CLI) ExecuteContext(ctx context.Context) int {
	err := c.rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	c.errorf("Error: %v\n", err)
	switch errors.CodeOf(err) {
	case errors.CodeValidation:
		return ExitValidation
	case errors.CodeDataAccess:
		return ExitDataAccess
	default:
		return ExitInternal
	}
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crimestats",
		Short: "crimestats - Santander crime statistics query service",
		Long: `crimestats serves read-only crime statistics for the municipalities of
Santander over HTTP and answers the same queries from the command line.

It provides:
  • crime and risk listings filtered by municipality, category and period
  • annual per-municipality summaries with the dominant weapon
  • heatmap points joined with municipality coordinates
  • store diagnostics and development schema migrations`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./crimestats.yaml or ~/.crimestats/crimestats.yaml)")
	cmd.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	cmd.PersistentFlags().StringVarP(&c.output, "output", "o", outputTable, "output format: table, json or yaml")
	cmd.PersistentFlags().BoolVar(&c.quiet, "quiet", false, "suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "verbose debug logs")

	cmd.AddCommand(c.newServeCmd())
	cmd.AddCommand(c.newQueryCmd())
	cmd.AddCommand(c.newDoctorCmd())
	cmd.AddCommand(c.newMigrateCmd())
	cmd.AddCommand(c.newVersionCmd())

	return cmd
}

func (c *CLI) initConfig() error {
	if err := checkOutputFormat(c.output); err != nil {
		return err
	}
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	if c.debug {
		c.cfg.Logging.Level = "debug"
	}
	c.logger = logging.New(logging.Config{
		Level:  c.cfg.Logging.Level,
		Format: c.cfg.Logging.Format,
		Output: c.errOut,
	})
	return nil
}

// startSystem opens the configured store and everything built on it. The
// caller closes the returned system.
func (c *CLI) startSystem(ctx context.Context, migrate bool) (*bootstrap.System, error) {
	return bootstrap.Start(ctx, c.cfg, bootstrap.Options{
		Version: Version,
		Logger:  c.logger,
		Migrate: migrate,
	})
}

// Helper functions for output

func (c *CLI) printf(format string, args ...interface{}) {
	if !c.quiet {
		fmt.Fprintf(c.out, format, args...)
	}
}

func (c *CLI) println(args ...interface{}) {
	if !c.quiet {
		fmt.Fprintln(c.out, args...)
	}
}

func (c *CLI) errorf(format string, args ...interface{}) {
	fmt.Fprintf(c.errOut, format, args...)
}

func (c *CLI) debugf(format string, args ...interface{}) {
	if c.debug {
		fmt.Fprintf(c.errOut, "[DEBUG] "+format, args...)
	}
}
