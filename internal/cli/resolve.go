package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewResolveCmd creates the 'resolve' command for intent resolution.
func NewResolveCmd() *cobra.Command {
	var (
		params     []string
		jsonParams string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <api-id> <intent>",
		Short: "Resolve an intent into a validated API call",
		Long: `Resolve a natural-language intent into a concrete endpoint, method,
and parameter set, validated against the stored spec and security rules.

Known parameter values can be supplied with --param (repeatable) or as a
JSON object with --params; supplied values override generated ones.`,
		Example: `  api-hub-mcp resolve github "create a new issue"
  api-hub-mcp resolve github "create a new issue" --param title="Login broken"
  api-hub-mcp resolve github "create a new issue" --params '{"title": "Login broken"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			callParams, err := parseParams(params, jsonParams)
			if err != nil {
				return err
			}
			return runResolve(args[0], args[1], callParams, jsonOutput)
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Known parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&jsonParams, "params", "", "Known parameters as a JSON object")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

// parseParams merges --param pairs over a --params JSON object.
func parseParams(pairs []string, jsonParams string) (map[string]interface{}, error) {
	result := map[string]interface{}{}

	if jsonParams != "" {
		if err := json.Unmarshal([]byte(jsonParams), &result); err != nil {
			return nil, fmt.Errorf("invalid --params JSON: %w", err)
		}
	}

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		result[key] = value
	}

	if len(result) == 0 {
		return nil, nil
	}
	return result, nil
}

func runResolve(apiID, intent string, params map[string]interface{}, jsonOutput bool) error {
	h, cleanup, err := openHub()
	if err != nil {
		return err
	}
	defer cleanup()

	resolution, err := h.Resolve(context.Background(), apiID, intent, params)
	if err != nil {
		return fmt.Errorf("failed to resolve: %w", err)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(resolution, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	c := resolution.Candidate
	fmt.Printf("%s %s\n", c.Method, c.Endpoint)
	if len(c.Parameters) > 0 {
		data, err := json.MarshalIndent(c.Parameters, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("  Parameters: %s\n", data)
	}
	fmt.Printf("  Confidence: %.2f\n", c.Confidence)
	if c.Reasoning != "" {
		fmt.Printf("  Reasoning:  %s\n", c.Reasoning)
	}

	v := resolution.Verdict
	if v.Accepted {
		fmt.Println("  Verdict:    ✓ accepted")
	} else {
		fmt.Printf("  Verdict:    ✗ rejected (%s)\n", v.Reason)
		if v.Detail != "" {
			fmt.Printf("              %s\n", v.Detail)
		}
	}
	return nil
}
