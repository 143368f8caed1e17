package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/api-hub-mcp/internal/config"
)

// NewRegisterCmd creates the 'register' command for adding APIs.
func NewRegisterCmd() *cobra.Command {
	var (
		baseURL     string
		authType    string
		authEnv     string
		rateLimit   int
		rateWindow  int
		description string
	)

	cmd := &cobra.Command{
		Use:   "register <api-id> <spec-url>",
		Short: "Register an API by its OpenAPI spec URL",
		Long: `Register an API so its spec can be fragmented and served to agents.

The spec is fetched immediately and decomposed into endpoint, schema,
parameter, and security fragments. Credentials are never stored: pass
the name of an environment variable with --auth-env instead.`,
		Example: `  api-hub-mcp register github https://api.github.com/openapi.json
  api-hub-mcp register jira https://jira.example.com/openapi.json \
      --base-url https://jira.example.com \
      --auth-type bearer --auth-env JIRA_TOKEN \
      --rate-limit 100 --rate-window 3600`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(args[0], &config.APIConfig{
				BaseURL:           baseURL,
				SpecURL:           args[1],
				AuthType:          authType,
				AuthEnv:           authEnv,
				RateLimit:         rateLimit,
				RateWindowSeconds: rateWindow,
				Description:       description,
			})
		},
	}

	cmd.Flags().StringVarP(&baseURL, "base-url", "b", "", "Base URL calls are made against")
	cmd.Flags().StringVar(&authType, "auth-type", "", "Auth scheme: bearer, api-key, none")
	cmd.Flags().StringVar(&authEnv, "auth-env", "", "Environment variable holding the credential")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "Max call attempts per window (0 = default)")
	cmd.Flags().IntVar(&rateWindow, "rate-window", 0, "Rate window length in seconds (0 = default)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Human-readable description")

	return cmd
}

func runRegister(apiID string, api *config.APIConfig) error {
	h, cleanup, err := openHub()
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := h.Register(context.Background(), apiID, api)
	if err != nil {
		return fmt.Errorf("failed to register '%s': %w", apiID, err)
	}

	fmt.Printf("✓ Registered '%s'\n", apiID)
	if report.Extracted > 0 {
		fmt.Printf("  Fragments: %d extracted (%d new, %d updated, %d unchanged)\n",
			report.Extracted, report.New, report.Updated, report.Unchanged)
		if len(report.Skipped) > 0 {
			fmt.Printf("  Skipped %d malformed entries\n", len(report.Skipped))
		}
	} else {
		fmt.Println("  Spec fetch deferred; fragments will populate on first use")
	}
	return nil
}
