package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adjudex/adjudex/internal/ledger"
)

var pendingLedgerPath string

// pendingCmd represents the pending command
var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List claims awaiting adjudication",
	Long: `Pending lists every claim whose latest ledger version still has
status pending_judge_review, grouped by source document. Only the current
version of each document is consulted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := ledger.Open(pendingLedgerPath)
		if err != nil {
			return err
		}

		pending := store.ExtractPending()
		if len(pending) == 0 {
			fmt.Println("No pending claims.")
			return nil
		}

		lastDoc := ""
		for _, claim := range pending {
			if claim.DocumentID != lastDoc {
				fmt.Printf("%s\n", claim.DocumentID)
				lastDoc = claim.DocumentID
			}
			fmt.Printf("  %s  %s\n", claim.ClaimID, claim.SubRequirement)
			if verbose && claim.ClaimSummary != "" {
				fmt.Printf("      %s\n", claim.ClaimSummary)
			}
		}
		fmt.Printf("\n%d pending claim(s)\n", len(pending))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd)
	pendingCmd.Flags().StringVar(&pendingLedgerPath, "ledger", "ledger.json", "path to the version-history ledger")
}
