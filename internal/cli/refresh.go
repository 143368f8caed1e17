package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewRefreshCmd creates the 'refresh' command for re-fetching specs.
func NewRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh <api-id>",
		Short: "Re-fetch an API's spec and reconcile fragments",
		Long: `Fetch the API's spec again and reconcile stored fragments: new
operations are added, changed ones updated in place (usage statistics
survive), and unchanged ones left alone.`,
		Example: `  api-hub-mcp refresh github`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(args[0])
		},
	}

	return cmd
}

func runRefresh(apiID string) error {
	h, cleanup, err := openHub()
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := h.Refresh(context.Background(), apiID)
	if err != nil {
		return fmt.Errorf("failed to refresh '%s': %w", apiID, err)
	}

	fmt.Printf("✓ Refreshed '%s': %d extracted (%d new, %d updated, %d unchanged)\n",
		apiID, report.Extracted, report.New, report.Updated, report.Unchanged)
	if len(report.Skipped) > 0 {
		fmt.Printf("  Skipped %d malformed entries:\n", len(report.Skipped))
		for _, s := range report.Skipped {
			fmt.Printf("    - %s\n", s)
		}
	}
	return nil
}
