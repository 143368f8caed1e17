/*
Package synth turns a ranked fragment set and a free-text intent into a
concrete API call candidate.

The LLM is a black box behind the Generator interface; its output is
parsed defensively and a deterministic heuristic fallback guarantees that
synthesis always produces a candidate. Low confidence is reported, not
rejected here; acceptance is the validator's and the caller's decision.
*/
package synth

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/khanglvm/api-hub-mcp/internal/search"
)

// DefaultConfidenceThreshold is the confidence below which a candidate is
// flagged (but still returned).
const DefaultConfidenceThreshold = 0.7

// Generator is the external LLM capability: prompt text in, completion
// text out. No structural guarantee on the output.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Candidate is a synthesized API call descriptor. It lives for one
// resolution request; it is never persisted.
type Candidate struct {
	APIID       string                 `json:"api_id"`
	Endpoint    string                 `json:"endpoint"`
	Method      string                 `json:"method"`
	Parameters  map[string]interface{} `json:"parameters"`
	Confidence  float64                `json:"confidence"`
	Reasoning   string                 `json:"reasoning"`
	FragmentIDs []string               `json:"fragment_ids"`
}

// Synthesizer builds call candidates from ranked fragments.
type Synthesizer struct {
	ranker    *search.Ranker
	generator Generator

	// TopK bounds the fragment context handed to the generator.
	TopK int

	// ConfidenceThreshold is the warning threshold for low-trust results.
	ConfidenceThreshold float64
}

// NewSynthesizer creates a synthesizer with default bounds.
func NewSynthesizer(ranker *search.Ranker, generator Generator) *Synthesizer {
	return &Synthesizer{
		ranker:              ranker,
		generator:           generator,
		TopK:                search.DefaultTopK,
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}

// Resolve synthesizes a call candidate for the intent against apiID.
// explicitParams are caller-supplied values that override anything the
// generator proposes.
func (s *Synthesizer) Resolve(ctx context.Context, apiID, intent string, explicitParams map[string]interface{}) (*Candidate, error) {
	matches, err := s.ranker.Search(apiID, intent, s.TopK)
	if err != nil {
		return nil, fmt.Errorf("fragment search failed: %w", err)
	}

	// Fail fast on zero matches: no point spending an LLM call on an
	// empty context.
	if len(matches) == 0 {
		return &Candidate{
			APIID:      apiID,
			Endpoint:   "/",
			Method:     "GET",
			Parameters: mergeParams(nil, explicitParams),
			Confidence: 0.0,
			Reasoning:  "no relevant endpoint found",
		}, nil
	}

	fragmentIDs := make([]string, len(matches))
	for i, m := range matches {
		fragmentIDs[i] = m.Fragment.FragmentID
	}

	prompt := buildPrompt(apiID, intent, matches, explicitParams)

	response, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		log.Printf("Warning: generation failed for %s, using heuristic fallback: %v", apiID, err)
		return s.heuristic(apiID, matches, fragmentIDs, explicitParams), nil
	}

	parsed, err := parseCallResponse(response)
	if err != nil {
		log.Printf("Warning: unparseable generation for %s, using heuristic fallback: %v", apiID, err)
		return s.heuristic(apiID, matches, fragmentIDs, explicitParams), nil
	}

	candidate := &Candidate{
		APIID:       apiID,
		Endpoint:    parsed.Endpoint,
		Method:      strings.ToUpper(parsed.Method),
		Parameters:  mergeParams(parsed.Parameters, explicitParams),
		Confidence:  clampConfidence(parsed.Confidence),
		Reasoning:   parsed.Reasoning,
		FragmentIDs: fragmentIDs,
	}

	if candidate.Confidence < s.ConfidenceThreshold {
		log.Printf("Warning: low confidence %.2f for intent %q against %s",
			candidate.Confidence, intent, apiID)
	}

	return candidate, nil
}

// heuristic is the deterministic fallback: take the highest-scoring
// fragment as the endpoint, defaulting the method to GET unless the
// fragment says otherwise. Confidence 0.0 signals low trust.
func (s *Synthesizer) heuristic(apiID string, matches []search.Match, fragmentIDs []string, explicitParams map[string]interface{}) *Candidate {
	best := matches[0].Fragment

	endpoint := best.Path()
	if endpoint == "" {
		endpoint = "/"
	}
	method := best.Method()
	if method == "" {
		method = "GET"
	}

	return &Candidate{
		APIID:      apiID,
		Endpoint:   endpoint,
		Method:     method,
		Parameters: mergeParams(nil, explicitParams),
		Confidence: 0.0,
		Reasoning: fmt.Sprintf("heuristic fallback: best keyword match %s (keywords: %s)",
			best.NaturalKey, strings.Join(best.Metadata.Keywords, ", ")),
		FragmentIDs: fragmentIDs,
	}
}

// mergeParams overlays explicit caller parameters on generated ones.
// Explicit values always win.
func mergeParams(generated, explicit map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(generated)+len(explicit))
	for k, v := range generated {
		merged[k] = v
	}
	for k, v := range explicit {
		merged[k] = v
	}
	return merged
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
