package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finbook/finbook/internal/platform/postgres/repository"
)

func newSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := repository.EnsureSchema(cmd.Context(), app.pool); err != nil {
				return err
			}
			fmt.Println("schema ready")
			return nil
		},
	}
}

func newCategorizeCommand() *cobra.Command {
	var userID string
	var limit int

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Assign categories to uncategorized transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if limit <= 0 {
				limit = app.cfg.UncategorizedPageSize
			}
			n, err := app.importer.AutoCategorizeTransactions(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			fmt.Printf("categorized %d transactions\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owning user id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().IntVar(&limit, "limit", 0, "max transactions to scan (default from config)")

	return cmd
}
