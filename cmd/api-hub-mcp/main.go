/*
Package main is the entry point for the api-hub-mcp CLI.

api-hub-mcp is a spec fragment cache for LLM agents: it decomposes
OpenAPI documents into content-addressed fragments, serves only the
fragments relevant to an intent, and resolves intents into validated
API calls.

Usage:
  api-hub-mcp [command]

Available Commands:
  register    Register an API by its OpenAPI spec URL
  remove      Remove a registered API
  list        List all registered APIs
  stats       Show fragment and usage statistics for an API
  resolve     Resolve an intent into a validated API call
  refresh     Re-fetch an API's spec and reconcile fragments
  cleanup     Evict fragments unused beyond the retention period
  benchmark   Estimate context token savings for an intent
  serve       Run the MCP server (stdio transport)
  version     Show version information

Examples:
  # Register an API
  api-hub-mcp register github https://api.github.com/openapi.json

  # Resolve an intent into a call
  api-hub-mcp resolve github "create a new issue"

  # Run as MCP server
  api-hub-mcp serve
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/khanglvm/api-hub-mcp/internal/cli"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "api-hub-mcp",
		Short: "OpenAPI fragment cache for LLM agents",
		Long: `api-hub-mcp keeps agents from swallowing whole OpenAPI documents.

Specs are decomposed into content-addressed fragments (endpoints,
schemas, parameters, security schemes). An agent asks for what it wants
in natural language and gets back only the matching fragments, or a
fully validated call descriptor:
  • api_list    - List all registered APIs
  • api_search  - Rank spec fragments against an intent
  • api_resolve - Turn an intent into a validated call descriptor
  • api_stats   - Fragment and usage statistics
  • api_refresh - Re-fetch a spec and reconcile fragments

A 200-endpoint spec costs tens of thousands of context tokens; the
handful of fragments an intent actually needs costs a few hundred.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	// Add subcommands
	rootCmd.AddCommand(cli.NewRegisterCmd())
	rootCmd.AddCommand(cli.NewRemoveCmd())
	rootCmd.AddCommand(cli.NewListCmd())
	rootCmd.AddCommand(cli.NewStatsCmd())
	rootCmd.AddCommand(cli.NewResolveCmd())
	rootCmd.AddCommand(cli.NewRefreshCmd())
	rootCmd.AddCommand(cli.NewCleanupCmd())
	rootCmd.AddCommand(cli.NewBenchmarkCmd())
	rootCmd.AddCommand(cli.NewServeCmd())
	rootCmd.AddCommand(cli.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
