package cli

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the statistics tables in a development store",
		Long: `Apply the embedded schema migrations to the configured store.

Production stores are populated by the ETL; this command is meant for local
SQLite or DuckDB files and test databases. Applied migrations are recorded in
schema_migrations, so running it twice is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := c.startSystem(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer sys.Close()

			applied := sys.Applied
			if applied == nil {
				applied = []string{}
			}
			if done, err := c.outputStructured(map[string]interface{}{"applied": applied}); done {
				return err
			}

			if len(applied) == 0 {
				c.println("Schema is up to date")
				return nil
			}
			for _, name := range applied {
				c.printf("✓ applied %s\n", name)
			}
			return nil
		},
	}
}
