package synth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// callResponse is the structured descriptor expected from the generator.
type callResponse struct {
	Endpoint   string                 `json:"endpoint"`
	Method     string                 `json:"method"`
	Parameters map[string]interface{} `json:"parameters"`
	Confidence float64                `json:"confidence"`
	Reasoning  string                 `json:"reasoning"`
}

var errNoJSON = errors.New("no JSON object in response")

// parseCallResponse extracts the descriptor from raw generator output.
// Models routinely wrap JSON in prose or code fences, so the parser
// slices from the first '{' to the last '}' before unmarshaling.
func parseCallResponse(response string) (*callResponse, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return nil, errNoJSON
	}

	var parsed callResponse
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON in response: %w", err)
	}

	if parsed.Endpoint == "" {
		return nil, errors.New("response missing endpoint")
	}
	if parsed.Method == "" {
		return nil, errors.New("response missing method")
	}

	return &parsed, nil
}
