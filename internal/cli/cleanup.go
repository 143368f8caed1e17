package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCleanupCmd creates the 'cleanup' command for retention sweeps.
func NewCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Evict fragments unused beyond the retention period",
		Long: `Delete fragments that have not been used within the configured
retention period (default 30 days). Evicted fragments come back on the
next refresh or lazy population of their API.`,
		Example: `  api-hub-mcp cleanup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup()
		},
	}

	return cmd
}

func runCleanup() error {
	h, cleanup, err := openHub()
	if err != nil {
		return err
	}
	defer cleanup()

	evicted, err := h.Cleanup()
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	if evicted == 0 {
		fmt.Println("Nothing to evict.")
		return nil
	}
	fmt.Printf("✓ Evicted %d stale fragments\n", evicted)
	return nil
}
