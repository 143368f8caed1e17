/*
Package cli implements the api-hub-mcp command line interface.

Each command file exposes a NewXxxCmd constructor returning a cobra
command; main wires them onto the root. Commands that need the full
pipeline build it through openHub.
*/
package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/khanglvm/api-hub-mcp/internal/config"
	"github.com/khanglvm/api-hub-mcp/internal/hub"
	"github.com/khanglvm/api-hub-mcp/internal/llm"
	"github.com/khanglvm/api-hub-mcp/internal/storage"
	"github.com/khanglvm/api-hub-mcp/internal/synth"
)

// openHub loads config, opens the fragment store, and assembles a hub.
// The returned cleanup closes both.
func openHub() (*hub.Hub, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	configPath, err := config.GetDefaultConfigPath()
	if err != nil {
		return nil, nil, err
	}

	dbPath, err := storage.DefaultDBPath()
	if err != nil {
		return nil, nil, err
	}
	store := storage.NewStore(dbPath)
	if err := store.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to open fragment store: %w", err)
	}

	h, err := hub.New(cfg, configPath, store, newGenerator(cfg))
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := h.Close(); err != nil {
			log.Printf("Warning: failed to close search index: %v", err)
		}
		if err := store.Close(); err != nil {
			log.Printf("Warning: failed to close fragment store: %v", err)
		}
	}
	return h, cleanup, nil
}

// newGenerator builds the LLM generator from settings. Returns nil when
// no key is available; the hub then resolves heuristically.
func newGenerator(cfg *config.Config) synth.Generator {
	settings := cfg.Settings
	if settings == nil {
		return nil
	}

	keyEnv := settings.LLMAPIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" && settings.LLMBaseURL == "" {
		// No key and no local server configured.
		return nil
	}

	model := settings.LLMModel
	if model == "" {
		model = "gpt-4o-mini"
	}

	client, err := llm.NewClient(llm.Options{
		BaseURL: settings.LLMBaseURL,
		APIKey:  apiKey,
		Model:   model,
	})
	if err != nil {
		log.Printf("Warning: llm client unavailable, using heuristic synthesis: %v", err)
		return nil
	}
	return client
}
