/*
Package mcp implements the MCP server that exposes meta-tools.

The server uses stdio transport and exposes 5 meta-tools:
  - api_list: List all registered APIs
  - api_search: Rank spec fragments of an API against an intent
  - api_resolve: Turn an intent into a validated call descriptor
  - api_stats: Fragment and usage statistics for an API
  - api_refresh: Re-fetch an API's spec and reconcile fragments
*/
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/khanglvm/api-hub-mcp/internal/hub"
)

// Server represents the api-hub-mcp MCP server.
type Server struct {
	hub *hub.Hub
}

// NewServer creates a new MCP server backed by the given hub.
func NewServer(h *hub.Hub) *Server {
	return &Server{hub: h}
}

// Run starts the MCP server using stdio transport.
// This blocks until stdin is closed.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := scanner.Bytes()

		response, err := s.handleRequest(line)
		if err != nil {
			// Send error response
			s.sendError(err)
			continue
		}

		if response != nil {
			s.sendResponse(response)
		}
	}

	return scanner.Err()
}

// MCPRequest represents an incoming MCP JSON-RPC request.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing MCP JSON-RPC response.
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents an MCP error.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// handleRequest processes an incoming MCP request.
func (s *Server) handleRequest(data []byte) (*MCPResponse, error) {
	var req MCPRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON-RPC request: %w", err)
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(&req)
	case "tools/list":
		return s.handleToolsList(&req)
	case "tools/call":
		return s.handleToolsCall(&req)
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &MCPError{Code: -32601, Message: "Method not found"},
		}, nil
	}
}

// handleInitialize handles the MCP initialize request.
func (s *Server) handleInitialize(req *MCPRequest) (*MCPResponse, error) {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "api-hub-mcp",
				"version": "0.1.0",
			},
		},
	}, nil
}

// handleToolsList returns the list of available meta-tools with AI-native descriptions.
func (s *Server) handleToolsList(req *MCPRequest) (*MCPResponse, error) {
	apiCatalog := s.buildAPICatalog()

	tools := []map[string]interface{}{
		{
			"name": "api_list",
			"description": fmt.Sprintf(`List all registered APIs and their base URLs.

WHEN TO USE: Call this first to discover which APIs are available.

REGISTERED APIS:
%s
Returns: API identifiers with base URLs and descriptions.`, apiCatalog),
			"inputSchema": map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			"name": "api_search",
			"description": fmt.Sprintf(`Search one API's spec fragments using natural language.

WHEN TO USE: To find which endpoints, schemas, or parameters are relevant
to a task before resolving a call. Only the matching fragments come back,
never the whole spec.

REGISTERED APIS: %s

Example: api_search(api="github", intent="create a new issue")`, s.getAPINames()),
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"api": map[string]interface{}{
						"type":        "string",
						"description": "API identifier from the registered list",
						"enum":        s.getAPINamesList(),
					},
					"intent": map[string]interface{}{
						"type":        "string",
						"description": "Natural language description of what you want to do",
					},
					"top_k": map[string]interface{}{
						"type":        "number",
						"description": "Max fragments to return (optional)",
					},
				},
				"required": []string{"api", "intent"},
			},
		},
		{
			"name": "api_resolve",
			"description": fmt.Sprintf(`Resolve an intent into a concrete, validated API call.

WHEN TO USE: When you know what you want done and need the exact
endpoint, method, and parameters. The result is validated against the
stored spec and security rules; check "accepted" before acting on it.

REGISTERED APIS: %s

Example:
  api_resolve(api="github", intent="create a new issue",
              parameters={"title": "Login broken"})`, s.getAPINames()),
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"api": map[string]interface{}{
						"type":        "string",
						"description": "API identifier",
						"enum":        s.getAPINamesList(),
					},
					"intent": map[string]interface{}{
						"type":        "string",
						"description": "Natural language description of the call to make",
					},
					"parameters": map[string]interface{}{
						"type":        "object",
						"description": "Known parameter values; these override generated ones",
					},
				},
				"required": []string{"api", "intent"},
			},
		},
		{
			"name": "api_stats",
			"description": `Get fragment and usage statistics for a registered API.

WHEN TO USE: To check whether an API's spec is populated and which
fragment types it holds.

Returns: Fragment counts by type, total usage, and last-used time.`,
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"api": map[string]interface{}{
						"type":        "string",
						"description": "API identifier",
						"enum":        s.getAPINamesList(),
					},
				},
				"required": []string{"api"},
			},
		},
		{
			"name": "api_refresh",
			"description": `Re-fetch an API's spec and reconcile stored fragments.

WHEN TO USE: When the upstream API has changed and resolutions come back
with unknown endpoints.

Returns: Counts of new, updated, and unchanged fragments.`,
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"api": map[string]interface{}{
						"type":        "string",
						"description": "API identifier",
						"enum":        s.getAPINamesList(),
					},
				},
				"required": []string{"api"},
			},
		},
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": tools,
		},
	}, nil
}

// buildAPICatalog creates a formatted list of APIs with descriptions.
func (s *Server) buildAPICatalog() string {
	catalog := ""
	for _, name := range s.getAPINamesList() {
		api := s.hub.APIs()[name]
		desc := api.Description
		if desc == "" {
			desc = api.BaseURL
		}
		if desc == "" {
			desc = "registered API"
		}
		catalog += fmt.Sprintf("  • %s: %s\n", name, desc)
	}
	return catalog
}

// getAPINames returns a comma-separated list of API identifiers.
func (s *Server) getAPINames() string {
	return strings.Join(s.getAPINamesList(), ", ")
}

// getAPINamesList returns API identifiers as a sorted slice for enum.
func (s *Server) getAPINamesList() []string {
	names := []string{}
	for name := range s.hub.APIs() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// handleToolsCall handles tool execution requests.
func (s *Server) handleToolsCall(req *MCPRequest) (*MCPResponse, error) {
	var params struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}

	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	ctx := context.Background()

	var result interface{}
	var err error

	switch params.Name {
	case "api_list":
		result, err = s.execAPIList()
	case "api_search":
		apiID, _ := params.Arguments["api"].(string)
		intent, _ := params.Arguments["intent"].(string)
		topK, _ := params.Arguments["top_k"].(float64)
		result, err = s.execAPISearch(ctx, apiID, intent, int(topK))
	case "api_resolve":
		apiID, _ := params.Arguments["api"].(string)
		intent, _ := params.Arguments["intent"].(string)
		callParams, _ := params.Arguments["parameters"].(map[string]interface{})
		result, err = s.execAPIResolve(ctx, apiID, intent, callParams)
	case "api_stats":
		apiID, _ := params.Arguments["api"].(string)
		result, err = s.execAPIStats(apiID)
	case "api_refresh":
		apiID, _ := params.Arguments["api"].(string)
		result, err = s.execAPIRefresh(ctx, apiID)
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &MCPError{Code: -32602, Message: fmt.Sprintf("Unknown tool: %s", params.Name)},
		}, nil
	}

	if err != nil {
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &MCPError{Code: -32000, Message: err.Error()},
		}, nil
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": result,
				},
			},
		},
	}, nil
}

// execAPIList returns the registered APIs.
func (s *Server) execAPIList() (string, error) {
	apis := s.hub.APIs()
	if len(apis) == 0 {
		return "No APIs registered. Run 'api-hub-mcp register <api-id> <spec-url>' first.", nil
	}

	result := fmt.Sprintf("Registered APIs (%d):\n", len(apis))
	for _, name := range s.getAPINamesList() {
		api := apis[name]
		line := fmt.Sprintf("  • %s", name)
		if api.BaseURL != "" {
			line += fmt.Sprintf(" (%s)", api.BaseURL)
		}
		if api.Description != "" {
			line += ": " + api.Description
		}
		result += line + "\n"
	}
	return result, nil
}

// execAPISearch ranks fragments against the intent.
func (s *Server) execAPISearch(ctx context.Context, apiID, intent string, topK int) (string, error) {
	if apiID == "" || intent == "" {
		return "", fmt.Errorf("api and intent are required")
	}

	matches, err := s.hub.Search(ctx, apiID, intent, topK)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	if len(matches) == 0 {
		return fmt.Sprintf("No fragments of '%s' match '%s'. Try different wording or api_refresh.", apiID, intent), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Matching fragments of '%s' (%d):\n", apiID, len(matches)))
	for _, m := range matches {
		result.WriteString(fmt.Sprintf("  • [%s] %s (score %.2f)", m.Fragment.Type, m.Fragment.NaturalKey, m.Score))
		if m.Fragment.Metadata.Summary != "" {
			result.WriteString(": " + m.Fragment.Metadata.Summary)
		}
		result.WriteString("\n")
	}
	result.WriteString("\nNext step: api_resolve with the same intent to get a validated call.")
	return result.String(), nil
}

// execAPIResolve resolves an intent into a validated call descriptor.
func (s *Server) execAPIResolve(ctx context.Context, apiID, intent string, callParams map[string]interface{}) (string, error) {
	if apiID == "" || intent == "" {
		return "", fmt.Errorf("api and intent are required")
	}

	resolution, err := s.hub.Resolve(ctx, apiID, intent, callParams)
	if err != nil {
		return "", fmt.Errorf("resolve failed: %w", err)
	}

	data, err := json.MarshalIndent(resolution, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// execAPIStats returns fragment statistics.
func (s *Server) execAPIStats(apiID string) (string, error) {
	if apiID == "" {
		return "", fmt.Errorf("api is required")
	}

	stats, err := s.hub.Stats(apiID)
	if err != nil {
		return "", fmt.Errorf("stats failed: %w", err)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// execAPIRefresh re-fetches the spec.
func (s *Server) execAPIRefresh(ctx context.Context, apiID string) (string, error) {
	if apiID == "" {
		return "", fmt.Errorf("api is required")
	}

	report, err := s.hub.Refresh(ctx, apiID)
	if err != nil {
		return "", fmt.Errorf("refresh failed: %w", err)
	}

	return fmt.Sprintf("Refreshed '%s': %d extracted (%d new, %d updated, %d unchanged, %d skipped)",
		apiID, report.Extracted, report.New, report.Updated, report.Unchanged, len(report.Skipped)), nil
}

// sendResponse writes a JSON-RPC response to stdout.
func (s *Server) sendResponse(resp *MCPResponse) {
	data, _ := json.Marshal(resp)
	fmt.Println(string(data))
}

// sendError writes an error response to stdout.
func (s *Server) sendError(err error) {
	resp := &MCPResponse{
		JSONRPC: "2.0",
		ID:      nil,
		Error:   &MCPError{Code: -32700, Message: err.Error()},
	}
	s.sendResponse(resp)
}
