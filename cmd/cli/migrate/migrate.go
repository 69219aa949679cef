package migrate

import (
	"fmt"

	cliconfig "github.com/crucial707/webdemo/cmd/cli/config"
	"github.com/crucial707/webdemo/cmd/cli/output"
	"github.com/crucial707/webdemo/internal/db"
	"github.com/spf13/cobra"
)

// InitMigrate registers the migrate command tree on the root command.
func InitMigrate(rootCmd *cobra.Command) {
	rootCmd.AddCommand(migrateCmd())
}

// ==========================
// CLI Command Init
// ==========================
func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert database migrations",
	}
	cmd.AddCommand(upCmd(), downCmd(), versionsCmd())
	return cmd
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cliconfig.LoadDatabase()
			if err != nil {
				return err
			}
			if err := db.MigrateUp(cfg.DatabaseURL()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
			return nil
		},
	}
}

func downCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations (all of them unless --steps is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cliconfig.LoadDatabase()
			if err != nil {
				return err
			}
			if err := db.MigrateDown(cfg.DatabaseURL(), steps); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations reverted.")
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 0, "Number of migrations to revert (0 = all)")
	return cmd
}

func versionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List the migrations embedded in this binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := db.MigrationVersions()
			if err != nil {
				return err
			}
			rows := make([][]interface{}, 0, len(versions))
			for _, v := range versions {
				rows = append(rows, []interface{}{v})
			}
			output.RenderTable(cmd.OutOrStdout(), []string{"Version"}, rows)
			return nil
		},
	}
}
