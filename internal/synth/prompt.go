package synth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/khanglvm/api-hub-mcp/internal/search"
	"github.com/khanglvm/api-hub-mcp/internal/storage"
)

// buildPrompt renders the minimal context for the generator: only the
// matched fragments, the intent, and any explicit parameters. The full
// specification never appears here.
func buildPrompt(apiID, intent string, matches []search.Match, explicitParams map[string]interface{}) string {
	var b strings.Builder

	b.WriteString("You are an API expert. Pick the best endpoint for the user request ")
	b.WriteString("from the fragments below. These are the only parts of the API you may use.\n\n")

	fmt.Fprintf(&b, "USER INTENT: %q\n\nAPI: %s\n\nAVAILABLE FRAGMENTS:\n", intent, apiID)

	for _, m := range matches {
		b.WriteString(renderFragment(m.Fragment))
		b.WriteString("---\n")
	}

	if len(explicitParams) > 0 {
		params, _ := json.Marshal(explicitParams)
		fmt.Fprintf(&b, "\nKNOWN PARAMETERS (use as-is): %s\n", params)
	}

	b.WriteString(`
Respond with a single JSON object:
{
  "endpoint": "/repos/{owner}/{repo}/issues",
  "method": "POST",
  "parameters": {"title": "..."},
  "confidence": 0.95,
  "reasoning": "why this endpoint fits"
}

Rules:
1. Only use endpoints that appear in the fragments above.
2. Set plausible parameters based on the intent.
3. confidence is a number between 0 and 1.
`)

	return b.String()
}

// renderFragment formats one fragment for the prompt context.
func renderFragment(f *storage.Fragment) string {
	var b strings.Builder

	switch f.Type {
	case storage.FragmentEndpoint:
		fmt.Fprintf(&b, "Endpoint: %s %s\n", f.Method(), f.Path())
		if f.Metadata.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", f.Metadata.Summary)
		}
		if f.Metadata.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", f.Metadata.Description)
		}
		if params, ok := f.Content["parameters"]; ok {
			if rendered, err := json.Marshal(params); err == nil {
				fmt.Fprintf(&b, "Parameters: %s\n", rendered)
			}
		}
		if body, ok := f.Content["request_body"]; ok {
			if rendered, err := json.Marshal(body); err == nil {
				fmt.Fprintf(&b, "Request body: %s\n", rendered)
			}
		}

	case storage.FragmentSchema:
		fmt.Fprintf(&b, "Schema: %s\n", f.Name())
		if f.Metadata.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", f.Metadata.Description)
		}
		if def, ok := f.Content["schema"]; ok {
			if rendered, err := json.Marshal(def); err == nil {
				fmt.Fprintf(&b, "Definition: %s\n", rendered)
			}
		}

	case storage.FragmentParameter:
		fmt.Fprintf(&b, "Shared parameter: %s\n", f.Name())
		if def, ok := f.Content["parameter"]; ok {
			if rendered, err := json.Marshal(def); err == nil {
				fmt.Fprintf(&b, "Definition: %s\n", rendered)
			}
		}

	case storage.FragmentSecurity:
		fmt.Fprintf(&b, "Security scheme: %s\n", f.Name())
		if def, ok := f.Content["scheme"]; ok {
			if rendered, err := json.Marshal(def); err == nil {
				fmt.Fprintf(&b, "Definition: %s\n", rendered)
			}
		}
	}

	if len(f.Metadata.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(f.Metadata.Keywords, ", "))
	}

	return b.String()
}
