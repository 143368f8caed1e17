package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/api-hub-mcp/internal/benchmark"
)

// NewBenchmarkCmd creates the 'benchmark' command comparing context cost
// of matched fragments against the full spec.
func NewBenchmarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark <api-id> <intent>",
		Short: "Estimate context token savings for an intent",
		Long: `Compare the estimated context tokens of handing an agent the whole
spec against handing it only the fragments matching the intent.`,
		Example: `  api-hub-mcp benchmark github "create a new issue"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(args[0], args[1])
		},
	}

	return cmd
}

func runBenchmark(apiID, intent string) error {
	h, cleanup, err := openHub()
	if err != nil {
		return err
	}
	defer cleanup()

	matches, err := h.Search(context.Background(), apiID, intent, 0)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	all, err := h.Fragments(apiID)
	if err != nil {
		return fmt.Errorf("failed to load fragments: %w", err)
	}

	result := benchmark.Run(apiID, intent, all, matches)
	fmt.Print(benchmark.FormatResult(result))
	return nil
}
