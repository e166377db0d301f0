package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func (c *CLI) newServeCmd() *cobra.Command {
	var (
		addr    string
		migrate bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the statistics HTTP API",
		Long: `Serve the statistics HTTP API until interrupted.

The store must already expose the statistics tables; use --migrate against a
development database to create them first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sys, err := c.startSystem(ctx, migrate)
			if err != nil {
				return err
			}
			defer sys.Close()

			gw, err := sys.Gateway()
			if err != nil {
				return err
			}
			return gw.ListenAndServe(ctx, sys.ServerConfig())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the development schema migrations before serving")
	return cmd
}
