package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRemoveCmd creates the 'remove' command for removing APIs.
func NewRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <api-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a registered API",
		Long:    `Remove an API registration along with all of its stored fragments.`,
		Example: `  api-hub-mcp remove github
  api-hub-mcp rm github`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(args[0])
		},
	}

	return cmd
}

func runRemove(apiID string) error {
	h, cleanup, err := openHub()
	if err != nil {
		return err
	}
	defer cleanup()

	deleted, err := h.Remove(apiID)
	if err != nil {
		return fmt.Errorf("failed to remove '%s': %w", apiID, err)
	}

	fmt.Printf("✓ Removed '%s' (%d fragments deleted)\n", apiID, deleted)
	return nil
}
