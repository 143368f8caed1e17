package synth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/khanglvm/api-hub-mcp/internal/search"
	"github.com/khanglvm/api-hub-mcp/internal/storage"
)

// stubGenerator returns a fixed response (or error) and records prompts.
type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func newTestRanker(t *testing.T) (*storage.Store, *search.Ranker) {
	t.Helper()

	store := storage.NewStore(filepath.Join(t.TempDir(), "fragments.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store, search.NewRanker(store)
}

func seedIssueEndpoints(t *testing.T, store *storage.Store) {
	t.Helper()

	fragments := []*storage.Fragment{
		{
			FragmentID: storage.NewFragmentID("github", storage.FragmentEndpoint, "POST /repos/{owner}/{repo}/issues"),
			APIID:      "github",
			Type:       storage.FragmentEndpoint,
			NaturalKey: "POST /repos/{owner}/{repo}/issues",
			Content: map[string]interface{}{
				"path":   "/repos/{owner}/{repo}/issues",
				"method": "POST",
			},
			Metadata: storage.Metadata{
				Summary:  "Create an issue",
				Keywords: []string{"issue", "create", "bug"},
			},
		},
		{
			FragmentID: storage.NewFragmentID("github", storage.FragmentEndpoint, "GET /repos/{owner}/{repo}/issues/{id}"),
			APIID:      "github",
			Type:       storage.FragmentEndpoint,
			NaturalKey: "GET /repos/{owner}/{repo}/issues/{id}",
			Content: map[string]interface{}{
				"path":   "/repos/{owner}/{repo}/issues/{id}",
				"method": "GET",
			},
			Metadata: storage.Metadata{
				Summary:  "Get an issue",
				Keywords: []string{"issue", "get", "retrieve"},
			},
		},
	}
	for _, f := range fragments {
		if _, err := store.UpsertFragment(f); err != nil {
			t.Fatalf("UpsertFragment failed: %v", err)
		}
	}
}

func TestResolve_StructuredResponse(t *testing.T) {
	store, ranker := newTestRanker(t)
	seedIssueEndpoints(t, store)

	generator := &stubGenerator{response: `Here is the call:
{
  "endpoint": "/repos/{owner}/{repo}/issues",
  "method": "post",
  "parameters": {"title": "Crash on startup"},
  "confidence": 0.92,
  "reasoning": "POST creates issues"
}`}

	synthesizer := NewSynthesizer(ranker, generator)
	candidate, err := synthesizer.Resolve(context.Background(), "github", "create a new issue", nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if candidate.Endpoint != "/repos/{owner}/{repo}/issues" {
		t.Errorf("unexpected endpoint: %s", candidate.Endpoint)
	}
	if candidate.Method != "POST" {
		t.Errorf("method must be upper-cased, got %s", candidate.Method)
	}
	if candidate.Confidence != 0.92 {
		t.Errorf("unexpected confidence: %f", candidate.Confidence)
	}
	if len(candidate.FragmentIDs) == 0 {
		t.Error("contributing fragment ids missing")
	}
}

func TestResolve_NoMatches(t *testing.T) {
	_, ranker := newTestRanker(t)
	generator := &stubGenerator{response: "should not be called"}

	synthesizer := NewSynthesizer(ranker, generator)
	candidate, err := synthesizer.Resolve(context.Background(), "github", "launch the rocket", nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if candidate.Confidence != 0.0 {
		t.Errorf("expected zero confidence, got %f", candidate.Confidence)
	}
	if candidate.Reasoning != "no relevant endpoint found" {
		t.Errorf("unexpected reasoning: %q", candidate.Reasoning)
	}
	if len(generator.prompts) != 0 {
		t.Error("generator must not be called when nothing matched")
	}
}

func TestResolve_MalformedOutputFallsBack(t *testing.T) {
	store, ranker := newTestRanker(t)
	seedIssueEndpoints(t, store)

	generator := &stubGenerator{response: "I think you should use the issues endpoint."}

	synthesizer := NewSynthesizer(ranker, generator)
	candidate, err := synthesizer.Resolve(context.Background(), "github", "create a new issue", nil)
	if err != nil {
		t.Fatalf("Resolve must recover from parse errors: %v", err)
	}

	// Heuristic picks the best-ranked fragment with its own method.
	if candidate.Endpoint != "/repos/{owner}/{repo}/issues" {
		t.Errorf("unexpected fallback endpoint: %s", candidate.Endpoint)
	}
	if candidate.Method != "POST" {
		t.Errorf("fallback must use the fragment's method, got %s", candidate.Method)
	}
	if candidate.Confidence != 0.0 {
		t.Errorf("fallback must signal zero confidence, got %f", candidate.Confidence)
	}
}

func TestResolve_GeneratorErrorFallsBack(t *testing.T) {
	store, ranker := newTestRanker(t)
	seedIssueEndpoints(t, store)

	generator := &stubGenerator{err: errors.New("model overloaded")}

	synthesizer := NewSynthesizer(ranker, generator)
	candidate, err := synthesizer.Resolve(context.Background(), "github", "get the issue", nil)
	if err != nil {
		t.Fatalf("Resolve must recover from generator errors: %v", err)
	}
	if candidate.Method != "GET" {
		t.Errorf("expected GET fallback, got %s", candidate.Method)
	}
}

func TestResolve_ExplicitParamsWin(t *testing.T) {
	store, ranker := newTestRanker(t)
	seedIssueEndpoints(t, store)

	generator := &stubGenerator{response: `{
		"endpoint": "/repos/{owner}/{repo}/issues",
		"method": "POST",
		"parameters": {"owner": "guessed", "title": "Bug"},
		"confidence": 0.9,
		"reasoning": "fits"
	}`}

	synthesizer := NewSynthesizer(ranker, generator)
	candidate, err := synthesizer.Resolve(context.Background(), "github", "create issue",
		map[string]interface{}{"owner": "khanglvm"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if candidate.Parameters["owner"] != "khanglvm" {
		t.Errorf("explicit parameter must override generated one, got %v", candidate.Parameters["owner"])
	}
	if candidate.Parameters["title"] != "Bug" {
		t.Error("generated parameters must be preserved")
	}
}

func TestResolve_PromptContainsOnlyMatchedFragments(t *testing.T) {
	store, ranker := newTestRanker(t)
	seedIssueEndpoints(t, store)

	generator := &stubGenerator{response: `{"endpoint": "/repos/{owner}/{repo}/issues", "method": "POST", "confidence": 0.9}`}

	synthesizer := NewSynthesizer(ranker, generator)
	if _, err := synthesizer.Resolve(context.Background(), "github", "create a new issue", nil); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(generator.prompts) != 1 {
		t.Fatalf("expected 1 generation, got %d", len(generator.prompts))
	}
	prompt := generator.prompts[0]
	if !strings.Contains(prompt, "POST /repos/{owner}/{repo}/issues") {
		t.Error("prompt missing matched endpoint")
	}
	if !strings.Contains(prompt, "create a new issue") {
		t.Error("prompt missing the intent")
	}
}

func TestParseCallResponse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"clean json", `{"endpoint": "/x", "method": "GET", "confidence": 0.5}`, false},
		{"fenced json", "```json\n{\"endpoint\": \"/x\", \"method\": \"GET\"}\n```", false},
		{"prose wrapped", `Sure! {"endpoint": "/x", "method": "GET"} Hope that helps.`, false},
		{"no json", "I cannot determine the endpoint.", true},
		{"missing endpoint", `{"method": "GET"}`, true},
		{"missing method", `{"endpoint": "/x"}`, true},
		{"broken json", `{"endpoint": "/x", "method":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCallResponse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseCallResponse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
