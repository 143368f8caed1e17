/*
Package benchmark provides context token benchmarking for api-hub-mcp.

It compares context token consumption between:
1. Full spec: handing an agent the entire OpenAPI document
2. api-hub-mcp: handing it only the fragments matching the intent

Token estimation uses tiktoken-compatible counting (GPT-4/Claude
approximation: ~3 characters per token for JSON/code).
*/
package benchmark

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/khanglvm/api-hub-mcp/internal/search"
	"github.com/khanglvm/api-hub-mcp/internal/storage"
)

// TokenEstimate represents token consumption estimates.
type TokenEstimate struct {
	FragmentCount    int    `json:"fragmentCount"`
	DefinitionTokens int    `json:"definitionTokens"`
	Description      string `json:"description"`
}

// Result contains comparison results for one intent.
type Result struct {
	APIID          string        `json:"apiId"`
	Intent         string        `json:"intent"`
	FullSpec       TokenEstimate `json:"fullSpec"`
	Fragments      TokenEstimate `json:"fragments"`
	TokenSavings   int           `json:"tokenSavings"`
	SavingsPercent float64       `json:"savingsPercent"`
}

// Run compares shipping the whole fragment corpus against shipping only
// the matched fragments.
func Run(apiID, intent string, all []*storage.Fragment, matches []search.Match) *Result {
	fullTokens := 0
	for _, f := range all {
		fullTokens += fragmentTokens(f)
	}

	matchedTokens := 0
	for _, m := range matches {
		matchedTokens += fragmentTokens(m.Fragment)
	}

	savings := fullTokens - matchedTokens
	savingsPercent := 0.0
	if fullTokens > 0 {
		savingsPercent = float64(savings) / float64(fullTokens) * 100
	}

	return &Result{
		APIID:  apiID,
		Intent: intent,
		FullSpec: TokenEstimate{
			FragmentCount:    len(all),
			DefinitionTokens: fullTokens,
			Description:      fmt.Sprintf("entire spec of '%s' as %d fragments", apiID, len(all)),
		},
		Fragments: TokenEstimate{
			FragmentCount:    len(matches),
			DefinitionTokens: matchedTokens,
			Description:      fmt.Sprintf("%d fragments matching '%s'", len(matches), intent),
		},
		TokenSavings:   savings,
		SavingsPercent: savingsPercent,
	}
}

// fragmentTokens estimates the context cost of one fragment as an agent
// would receive it: content plus metadata.
func fragmentTokens(f *storage.Fragment) int {
	return CountTokens(map[string]interface{}{
		"natural_key": f.NaturalKey,
		"type":        f.Type,
		"content":     f.Content,
		"summary":     f.Metadata.Summary,
		"description": f.Metadata.Description,
	})
}

// CountTokens estimates token count for a JSON structure.
// Uses approximation: ~3 characters per token for JSON/code.
func CountTokens(v interface{}) int {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	// JSON/code is more token-dense than natural language
	// Approximate: 3 characters per token
	return len(data) / 3
}

// FormatResult formats the benchmark result for display.
func FormatResult(result *Result) string {
	var sb strings.Builder

	sb.WriteString("╔══════════════════════════════════════════════════════════════╗\n")
	sb.WriteString("║           TOKEN EFFICIENCY BENCHMARK RESULTS                 ║\n")
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	sb.WriteString("║                                                              ║\n")
	sb.WriteString("║  📊 FULL SPEC IN CONTEXT                                     ║\n")
	sb.WriteString(fmt.Sprintf("║     Fragments: %-5d                                         ║\n", result.FullSpec.FragmentCount))
	sb.WriteString(fmt.Sprintf("║     Tokens:    ~%-6d                                       ║\n", result.FullSpec.DefinitionTokens))
	sb.WriteString("║                                                              ║\n")
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	sb.WriteString("║                                                              ║\n")
	sb.WriteString("║  🚀 MATCHED FRAGMENTS ONLY                                   ║\n")
	sb.WriteString(fmt.Sprintf("║     Fragments: %-5d                                         ║\n", result.Fragments.FragmentCount))
	sb.WriteString(fmt.Sprintf("║     Tokens:    ~%-6d                                       ║\n", result.Fragments.DefinitionTokens))
	sb.WriteString("║                                                              ║\n")
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	sb.WriteString("║                                                              ║\n")
	sb.WriteString("║  💰 SAVINGS                                                  ║\n")
	sb.WriteString(fmt.Sprintf("║     Tokens saved: ~%-6d                                    ║\n", result.TokenSavings))
	sb.WriteString(fmt.Sprintf("║     Reduction:    %.1f%%                                      ║\n", result.SavingsPercent))
	sb.WriteString("║                                                              ║\n")
	sb.WriteString("╚══════════════════════════════════════════════════════════════╝\n")

	return sb.String()
}
