package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatsCmd creates the 'stats' command for fragment statistics.
func NewStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats <api-id>",
		Short: "Show fragment and usage statistics for an API",
		Example: `  api-hub-mcp stats github
  api-hub-mcp stats github --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func runStats(apiID string, jsonOutput bool) error {
	h, cleanup, err := openHub()
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := h.Stats(apiID)
	if err != nil {
		return fmt.Errorf("failed to get stats for '%s': %w", apiID, err)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Statistics for '%s':\n", apiID)
	fmt.Printf("  Fragments:   %d\n", stats.FragmentCount)
	for fragmentType, count := range stats.TypeBreakdown {
		fmt.Printf("    %-10s %d\n", fragmentType+":", count)
	}
	fmt.Printf("  Total usage: %d\n", stats.TotalUsage)
	if !stats.LastUsed.IsZero() {
		fmt.Printf("  Last used:   %s\n", stats.LastUsed.Format("2006-01-02 15:04:05"))
	}
	return nil
}
