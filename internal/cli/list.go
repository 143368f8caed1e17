package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/khanglvm/api-hub-mcp/internal/config"
)

// NewListCmd creates the 'list' command for listing registered APIs.
func NewListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all registered APIs",
		Long:    `Display all APIs registered in ~/.api-hub-mcp.json`,
		Example: `  api-hub-mcp list
  api-hub-mcp ls
  api-hub-mcp list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func runList(jsonOutput bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(cfg.APIs) == 0 {
		fmt.Println("No APIs registered.")
		fmt.Println("Run 'api-hub-mcp register <api-id> <spec-url>' to add one.")
		return nil
	}

	if jsonOutput {
		data, err := json.MarshalIndent(cfg.APIs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	names := make([]string, 0, len(cfg.APIs))
	for name := range cfg.APIs {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Registered APIs (%d):\n\n", len(cfg.APIs))
	for _, name := range names {
		api := cfg.APIs[name]
		fmt.Printf("  %s\n", name)
		fmt.Printf("    Spec:     %s\n", api.SpecURL)
		if api.BaseURL != "" {
			fmt.Printf("    Base URL: %s\n", api.BaseURL)
		}
		if api.AuthType != "" {
			fmt.Printf("    Auth:     %s (env %s)\n", api.AuthType, api.AuthEnv)
		}
		if api.RateLimit > 0 {
			fmt.Printf("    Rate:     %d calls / %ds\n", api.RateLimit, api.RateWindowSeconds)
		}
		if api.Description != "" {
			fmt.Printf("    About:    %s\n", api.Description)
		}
		fmt.Println()
	}

	return nil
}
