package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finbook/finbook/internal/importer"
)

func newPreviewCommand() *cobra.Command {
	var userID string
	var accountID string

	cmd := &cobra.Command{
		Use:   "preview <candidates.csv>",
		Short: "Preview category suggestions without importing",
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

			result, err := app.importer.PreviewImport(cmd.Context(), userID, candidates)
			if err != nil {
				return err
			}

			fmt.Printf("%d candidates, %d would be categorized (%.0f%%)\n",
				result.Total, result.WillCategorize, result.SuccessRate*100)
			for _, item := range result.Items {
				if item.WillBeCategorized {
					fmt.Printf("  %3d %-40q -> %s (%.2f, %s)\n",
						item.Index, item.Description, item.CategoryName, item.Confidence, item.Method)
				} else {
					fmt.Printf("  %3d %-40q -> (no suggestion)\n", item.Index, item.Description)
				}
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
