package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanglvm/api-hub-mcp/internal/hub"
	"github.com/khanglvm/api-hub-mcp/internal/mcp"
	"github.com/khanglvm/api-hub-mcp/internal/version"
)

// NewServeCmd creates the 'serve' command for running the MCP server.
//
// This is the main command that exposes the 5 meta-tools via stdio transport:
// - api_list, api_search, api_resolve, api_stats, api_refresh
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio transport)",
		Long: `Start the api-hub-mcp server using stdio transport.

This server exposes 5 meta-tools to AI clients:
  • api_list    - List all registered APIs
  • api_search  - Rank spec fragments against an intent
  • api_resolve - Turn an intent into a validated call descriptor
  • api_stats   - Fragment and usage statistics
  • api_refresh - Re-fetch a spec and reconcile fragments

Specs are fetched lazily: an API's fragments populate the first time a
search or resolution touches it.`,
		Example: `  # Run directly
  api-hub-mcp serve

  # Add to Claude Code
  claude mcp add api-hub -- api-hub-mcp serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	return cmd
}

// runServe starts the MCP server with stdio transport and signal handling.
// Implements graceful shutdown on SIGINT/SIGTERM/SIGQUIT.
func runServe() error {
	h, cleanup, err := openHub()
	if err != nil {
		return err
	}
	defer cleanup()

	wireAuditLog(h)

	server := mcp.NewServer(h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background tasks: periodic retention sweeps and an update check.
	go h.RunRetention(ctx)
	go checkForUpdates(ctx)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	// Run server in separate goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	// Wait for either signal or server error
	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v, shutting down gracefully...", sig)
		return nil

	case err := <-errChan:
		// Server.Run() returned (stdin closed or error)
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

// wireAuditLog attaches a file-backed audit sink next to the fragment db.
func wireAuditLog(h *hub.Hub) {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: audit log disabled: %v", err)
		return
	}

	sink, err := hub.NewFileSink(filepath.Join(home, ".api-hub-mcp", "audit.jsonl"))
	if err != nil {
		log.Printf("Warning: audit log disabled: %v", err)
		return
	}
	h.SetAuditLog(hub.NewAuditLog(sink))
}

// checkForUpdates checks for new version in background (context-aware).
func checkForUpdates(parentCtx context.Context) {
	// Check if cancelled before starting
	select {
	case <-parentCtx.Done():
		return
	default:
	}

	ctx, cancel := context.WithTimeout(parentCtx, 10*time.Second)
	defer cancel()

	release, err := version.CheckUpdate(ctx)
	if err != nil {
		log.Printf("Update check failed: %v", err)
		return
	}

	if release != nil {
		log.Printf("Update available: %s (current: %s): %s", release.Version, version.Version, release.URL)
	}
}
