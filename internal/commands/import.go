package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finbook/finbook/internal/importer"
)

func newImportCommand() *cobra.Command {
	var userID string
	var accountID string

	cmd := &cobra.Command{
		Use:   "import <candidates.csv>",
		Short: "Import statement transactions into the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			candidates, err := importer.ReadCandidates(f, accountID)
			if err != nil {
				return err
			}

			result, err := app.importer.RunImport(cmd.Context(), userID, candidates)
			if err != nil {
				return err
			}

			fmt.Printf("import %s: %d submitted, %d created, %d skipped\n",
				result.ImportID, result.Total, result.Created, result.Skipped)
			for _, dup := range result.Duplicates {
				fmt.Printf("  duplicate: %s\n", dup)
			}
			for _, msg := range result.Errors {
				fmt.Printf("  error: %s\n", msg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owning user id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&accountID, "account", "", "target account id (required)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
