package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMatchCommand() *cobra.Command {
	var userID string
	var stats bool

	cmd := &cobra.Command{
		Use:   "match <merchant name>",
		Short: "Match a merchant name against category rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			name := args[0]

			if stats {
				matchingStats, err := app.matcher.GetMatchingStats(cmd.Context(), userID, name)
				if err != nil {
					return err
				}
				if len(matchingStats) == 0 {
					fmt.Println("no matches")
					return nil
				}
				for method, s := range matchingStats {
					fmt.Printf("%-18s best=%.2f count=%d category=%s\n",
						method, s.BestScore, s.Count, s.BestCategory)
				}
				return nil
			}

			match, err := app.matcher.MatchMerchant(cmd.Context(), userID, name)
			if err != nil {
				return err
			}
			if match == nil {
				fmt.Println("no match")
				return nil
			}
			fmt.Printf("%s (%.2f, %s, matched %q)\n",
				match.CategoryName, match.Confidence, match.Method, match.MatchedText)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owning user id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().BoolVar(&stats, "stats", false, "print per-method matching stats")

	return cmd
}
