package openapi

import (
	"testing"

	"github.com/khanglvm/api-hub-mcp/internal/storage"
)

const issuesSpec = `{
	"openapi": "3.0.0",
	"info": {"title": "Issues API", "version": "1.0.0"},
	"paths": {
		"/repos/{owner}/{repo}/issues": {
			"post": {
				"summary": "Create an issue",
				"description": "Create a new bug report or issue",
				"operationId": "createIssue",
				"tags": ["issues"],
				"parameters": [
					{"name": "owner", "in": "path", "required": true, "schema": {"type": "string"}},
					{"name": "repo", "in": "path", "required": true, "schema": {"type": "string"}}
				],
				"requestBody": {
					"required": true,
					"content": {
						"application/json": {
							"schema": {"$ref": "#/components/schemas/Issue"}
						}
					}
				}
			}
		},
		"/repos/{owner}/{repo}/issues/{id}": {
			"get": {
				"summary": "Get an issue",
				"description": "Retrieve a single issue",
				"operationId": "getIssue",
				"tags": ["issues"]
			},
			"parameters": [
				{"name": "id", "in": "path", "required": true}
			]
		}
	},
	"components": {
		"schemas": {
			"Issue": {
				"type": "object",
				"description": "An issue or bug report",
				"properties": {
					"title": {"type": "string"},
					"body": {"type": "string"}
				}
			}
		},
		"securitySchemes": {
			"bearerAuth": {"type": "http", "scheme": "bearer"}
		}
	}
}`

func fragmentsByType(fragments []*storage.Fragment, t storage.FragmentType) []*storage.Fragment {
	var out []*storage.Fragment
	for _, f := range fragments {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

func TestExtract_Endpoints(t *testing.T) {
	fragments, skipped, err := Extract("github", []byte(issuesSpec))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("unexpected skipped entries: %v", skipped)
	}

	endpoints := fragmentsByType(fragments, storage.FragmentEndpoint)
	if len(endpoints) != 2 {
		t.Fatalf("expected 2 endpoint fragments, got %d", len(endpoints))
	}

	var post *storage.Fragment
	for _, f := range endpoints {
		if f.Method() == "POST" {
			post = f
		}
	}
	if post == nil {
		t.Fatal("POST endpoint not extracted")
	}

	if post.NaturalKey != "POST /repos/{owner}/{repo}/issues" {
		t.Errorf("unexpected natural key: %q", post.NaturalKey)
	}
	if post.Path() != "/repos/{owner}/{repo}/issues" {
		t.Errorf("unexpected path: %q", post.Path())
	}

	wantKeywords := map[string]bool{"issue": true, "create": true, "bug": true}
	found := 0
	for _, kw := range post.Metadata.Keywords {
		if wantKeywords[kw] {
			found++
		}
	}
	if found != len(wantKeywords) {
		t.Errorf("expected keywords issue/create/bug in %v", post.Metadata.Keywords)
	}
}

func TestExtract_EndpointContent(t *testing.T) {
	fragments, _, err := Extract("github", []byte(issuesSpec))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	for _, f := range fragmentsByType(fragments, storage.FragmentEndpoint) {
		if f.Method() != "POST" {
			continue
		}

		params, ok := f.Content["parameters"].([]map[string]interface{})
		if !ok || len(params) != 2 {
			t.Fatalf("expected 2 parameter shapes, got %v", f.Content["parameters"])
		}
		if params[0]["name"] != "owner" || params[0]["required"] != true {
			t.Errorf("unexpected parameter shape: %v", params[0])
		}

		body, ok := f.Content["request_body"].(map[string]interface{})
		if !ok {
			t.Fatal("request_body shape missing")
		}
		if body["schema_ref"] != "Issue" {
			t.Errorf("expected schema_ref Issue, got %v", body["schema_ref"])
		}
	}
}

func TestExtract_SchemasAndSecurity(t *testing.T) {
	fragments, _, err := Extract("github", []byte(issuesSpec))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	schemas := fragmentsByType(fragments, storage.FragmentSchema)
	if len(schemas) != 1 {
		t.Fatalf("expected 1 schema fragment, got %d", len(schemas))
	}
	if schemas[0].NaturalKey != "Issue" {
		t.Errorf("unexpected schema natural key: %q", schemas[0].NaturalKey)
	}

	security := fragmentsByType(fragments, storage.FragmentSecurity)
	if len(security) != 1 {
		t.Fatalf("expected 1 security fragment, got %d", len(security))
	}
	if security[0].NaturalKey != "bearerAuth" {
		t.Errorf("unexpected security natural key: %q", security[0].NaturalKey)
	}
}

func TestExtract_NestedSchemaSplit(t *testing.T) {
	spec := `{
		"openapi": "3.0.0",
		"paths": {},
		"components": {
			"schemas": {
				"User": {
					"type": "object",
					"properties": {
						"name": {"type": "string"},
						"profile": {
							"type": "object",
							"properties": {
								"bio": {"type": "string"},
								"location": {"type": "string"},
								"website": {"type": "string"},
								"company": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}`

	fragments, _, err := Extract("github", []byte(spec))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	schemas := fragmentsByType(fragments, storage.FragmentSchema)
	if len(schemas) != 2 {
		t.Fatalf("expected parent and child schema fragments, got %d", len(schemas))
	}

	byKey := make(map[string]*storage.Fragment)
	for _, f := range schemas {
		byKey[f.NaturalKey] = f
	}

	if byKey["User.profile"] == nil {
		t.Fatal("nested object not split into its own fragment")
	}

	// Parent must reference, not inline, the extracted child.
	parent := byKey["User"]
	def := parent.Content["schema"].(map[string]interface{})
	props := def["properties"].(map[string]interface{})
	profile := props["profile"].(map[string]interface{})
	if profile["$ref"] != "#/components/schemas/User.profile" {
		t.Errorf("parent should hold a $ref stub, got %v", profile)
	}
}

func TestExtract_MalformedEntriesSkipped(t *testing.T) {
	spec := `{
		"openapi": "3.0.0",
		"paths": {
			"/good": {"get": {"summary": "Works"}},
			"/bad": {"post": "not an object"},
			"/worse": 42
		}
	}`

	fragments, skipped, err := Extract("github", []byte(spec))
	if err != nil {
		t.Fatalf("Extract must not fail on malformed entries: %v", err)
	}

	if len(fragmentsByType(fragments, storage.FragmentEndpoint)) != 1 {
		t.Errorf("expected 1 valid endpoint, got %d", len(fragments))
	}
	if len(skipped) != 2 {
		t.Errorf("expected 2 skipped entries, got %v", skipped)
	}
}

func TestExtract_InvalidJSON(t *testing.T) {
	_, _, err := Extract("github", []byte("{not json"))
	if err == nil {
		t.Fatal("expected error for unparseable document")
	}
}

func TestExtract_Deterministic(t *testing.T) {
	first, _, err := Extract("github", []byte(issuesSpec))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	second, _, err := Extract("github", []byte(issuesSpec))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("fragment counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].FragmentID != second[i].FragmentID {
			t.Errorf("fragment order or identity differs at %d", i)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"stop words dropped", "create a new issue", []string{"create", "issue"}},
		{"camel case split", "createIssueComment", []string{"create", "issue", "comment"}},
		{"dedupe keeps first", "issue Issue ISSUE", []string{"issue"}},
		{"short tokens dropped", "go to it", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
				}
			}
		})
	}
}
