/*
Package openapi extracts content-addressed fragments from raw OpenAPI
specification documents.

Extraction is lossy on purpose: a fragment carries only what retrieval and
call synthesis need (path, method, parameter shapes, keywords), never the
whole document. Malformed entries are skipped and reported rather than
failing the ingest.
*/
package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/khanglvm/api-hub-mcp/internal/storage"
)

// httpMethods is the set of path-item keys treated as operations.
var httpMethods = map[string]bool{
	"get": true, "post": true, "put": true, "patch": true, "delete": true,
	"head": true, "options": true,
}

// nestedSchemaThreshold is the minimum property count for an inline nested
// object to be split into its own schema fragment.
const nestedSchemaThreshold = 4

// Extract parses a raw OpenAPI document (v2 or v3 JSON) and produces the
// fragment set for apiID. The second return value lists skipped entries.
//
// An unparseable document is a hard error; a malformed individual entry
// is not.
func Extract(apiID string, raw []byte) ([]*storage.Fragment, []string, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("spec is not valid JSON: %w", err)
	}

	var fragments []*storage.Fragment
	var skipped []string

	endpoints, endpointSkipped := extractEndpoints(apiID, doc)
	fragments = append(fragments, endpoints...)
	skipped = append(skipped, endpointSkipped...)

	schemas, schemaSkipped := extractSchemas(apiID, doc)
	fragments = append(fragments, schemas...)
	skipped = append(skipped, schemaSkipped...)

	fragments = append(fragments, extractParameters(apiID, doc)...)
	fragments = append(fragments, extractSecurity(apiID, doc)...)

	return fragments, skipped, nil
}

// extractEndpoints walks the paths object. The natural key of an endpoint
// fragment is "METHOD path-template".
func extractEndpoints(apiID string, doc map[string]interface{}) ([]*storage.Fragment, []string) {
	paths, ok := doc["paths"].(map[string]interface{})
	if !ok {
		return nil, nil
	}

	var fragments []*storage.Fragment
	var skipped []string

	// Sorted iteration keeps extraction order (and reports) deterministic.
	for _, path := range sortedKeys(paths) {
		item, ok := paths[path].(map[string]interface{})
		if !ok {
			skipped = append(skipped, fmt.Sprintf("%s: path item is not an object", path))
			continue
		}

		for _, method := range sortedKeys(item) {
			if !httpMethods[strings.ToLower(method)] {
				continue // shared parameters, summary, extensions
			}

			op, ok := item[method].(map[string]interface{})
			if !ok {
				skipped = append(skipped,
					fmt.Sprintf("%s %s: operation is not an object", strings.ToUpper(method), path))
				continue
			}

			fragments = append(fragments, endpointFragment(apiID, path, strings.ToUpper(method), op))
		}
	}

	return fragments, skipped
}

func endpointFragment(apiID, path, method string, op map[string]interface{}) *storage.Fragment {
	summary, _ := op["summary"].(string)
	description, _ := op["description"].(string)
	operationID, _ := op["operationId"].(string)
	tags := stringSlice(op["tags"])

	content := map[string]interface{}{
		"path":   path,
		"method": method,
	}
	if summary != "" {
		content["summary"] = summary
	}
	if operationID != "" {
		content["operation_id"] = operationID
	}
	if params := parameterShapes(op["parameters"]); len(params) > 0 {
		content["parameters"] = params
	}
	if body := requestBodyShape(op["requestBody"]); body != nil {
		content["request_body"] = body
	}

	naturalKey := method + " " + path
	return &storage.Fragment{
		FragmentID: storage.NewFragmentID(apiID, storage.FragmentEndpoint, naturalKey),
		APIID:      apiID,
		Type:       storage.FragmentEndpoint,
		NaturalKey: naturalKey,
		Content:    content,
		Metadata: storage.Metadata{
			Summary:     summary,
			Description: description,
			OperationID: operationID,
			Tags:        tags,
			Keywords: KeywordSet(summary, description, operationID,
				strings.Join(tags, " ")),
		},
	}
}

// parameterShapes reduces an operation's parameter list to the fields the
// synthesizer needs: name, location, required flag, type.
func parameterShapes(raw interface{}) []map[string]interface{} {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	var shapes []map[string]interface{}
	for _, entry := range list {
		param, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		name, _ := param["name"].(string)
		if name == "" {
			continue
		}

		shape := map[string]interface{}{"name": name}
		if in, _ := param["in"].(string); in != "" {
			shape["in"] = in
		}
		if required, _ := param["required"].(bool); required {
			shape["required"] = true
		}
		if schema, ok := param["schema"].(map[string]interface{}); ok {
			if typ, _ := schema["type"].(string); typ != "" {
				shape["type"] = typ
			}
		} else if typ, _ := param["type"].(string); typ != "" { // swagger 2
			shape["type"] = typ
		}

		shapes = append(shapes, shape)
	}

	return shapes
}

// requestBodyShape extracts required property names from a v3 requestBody.
func requestBodyShape(raw interface{}) map[string]interface{} {
	body, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}

	shape := map[string]interface{}{}
	if required, _ := body["required"].(bool); required {
		shape["required"] = true
	}

	content, _ := body["content"].(map[string]interface{})
	for _, mediaType := range content {
		mt, ok := mediaType.(map[string]interface{})
		if !ok {
			continue
		}
		schema, ok := mt["schema"].(map[string]interface{})
		if !ok {
			continue
		}
		if ref, _ := schema["$ref"].(string); ref != "" {
			shape["schema_ref"] = refName(ref)
		}
		if fields := stringSlice(schema["required"]); len(fields) > 0 {
			shape["required_fields"] = fields
		}
		break
	}

	if len(shape) == 0 {
		return nil
	}
	return shape
}

// extractSchemas produces one fragment per named schema. Inline nested
// objects above nestedSchemaThreshold properties are split into their own
// fragments (named "Parent.property") and replaced by a $ref in the parent,
// so the synthesizer can load a parent without its heavy children.
func extractSchemas(apiID string, doc map[string]interface{}) ([]*storage.Fragment, []string) {
	schemas := schemaDefinitions(doc)
	if len(schemas) == 0 {
		return nil, nil
	}

	var fragments []*storage.Fragment
	var skipped []string

	for _, name := range sortedKeys(schemas) {
		def, ok := schemas[name].(map[string]interface{})
		if !ok {
			skipped = append(skipped, fmt.Sprintf("schema %s: definition is not an object", name))
			continue
		}

		trimmed, children := splitNestedSchemas(name, def)
		fragments = append(fragments, schemaFragment(apiID, name, trimmed))
		for _, child := range children {
			fragments = append(fragments, schemaFragment(apiID, child.name, child.def))
		}
	}

	return fragments, skipped
}

// schemaDefinitions locates named schemas for both OpenAPI v3 and Swagger v2.
func schemaDefinitions(doc map[string]interface{}) map[string]interface{} {
	if components, ok := doc["components"].(map[string]interface{}); ok {
		if schemas, ok := components["schemas"].(map[string]interface{}); ok {
			return schemas
		}
	}
	if definitions, ok := doc["definitions"].(map[string]interface{}); ok {
		return definitions
	}
	return nil
}

type childSchema struct {
	name string
	def  map[string]interface{}
}

// splitNestedSchemas returns def with heavy inline sub-objects replaced by
// $ref stubs, plus the extracted children.
func splitNestedSchemas(parent string, def map[string]interface{}) (map[string]interface{}, []childSchema) {
	properties, ok := def["properties"].(map[string]interface{})
	if !ok {
		return def, nil
	}

	var children []childSchema
	trimmedProps := make(map[string]interface{}, len(properties))

	for _, propName := range sortedKeys(properties) {
		prop, ok := properties[propName].(map[string]interface{})
		if !ok {
			trimmedProps[propName] = properties[propName]
			continue
		}

		nested, ok := prop["properties"].(map[string]interface{})
		if ok && len(nested) >= nestedSchemaThreshold {
			childName := parent + "." + propName
			children = append(children, childSchema{name: childName, def: prop})
			trimmedProps[propName] = map[string]interface{}{
				"$ref": "#/components/schemas/" + childName,
			}
			continue
		}

		trimmedProps[propName] = prop
	}

	if len(children) == 0 {
		return def, nil
	}

	trimmed := make(map[string]interface{}, len(def))
	for k, v := range def {
		trimmed[k] = v
	}
	trimmed["properties"] = trimmedProps

	return trimmed, children
}

func schemaFragment(apiID, name string, def map[string]interface{}) *storage.Fragment {
	description, _ := def["description"].(string)
	schemaType, _ := def["type"].(string)
	if schemaType == "" {
		schemaType = "object"
	}

	return &storage.Fragment{
		FragmentID: storage.NewFragmentID(apiID, storage.FragmentSchema, name),
		APIID:      apiID,
		Type:       storage.FragmentSchema,
		NaturalKey: name,
		Content: map[string]interface{}{
			"name":   name,
			"type":   schemaType,
			"schema": def,
		},
		Metadata: storage.Metadata{
			Description: description,
			Keywords:    KeywordSet(name, description),
		},
	}
}

// extractParameters produces fragments for shared component parameters.
func extractParameters(apiID string, doc map[string]interface{}) []*storage.Fragment {
	components, ok := doc["components"].(map[string]interface{})
	if !ok {
		return nil
	}
	parameters, ok := components["parameters"].(map[string]interface{})
	if !ok {
		return nil
	}

	var fragments []*storage.Fragment
	for _, name := range sortedKeys(parameters) {
		def, ok := parameters[name].(map[string]interface{})
		if !ok {
			continue
		}
		description, _ := def["description"].(string)

		fragments = append(fragments, &storage.Fragment{
			FragmentID: storage.NewFragmentID(apiID, storage.FragmentParameter, name),
			APIID:      apiID,
			Type:       storage.FragmentParameter,
			NaturalKey: name,
			Content: map[string]interface{}{
				"name":      name,
				"parameter": def,
			},
			Metadata: storage.Metadata{
				Description: description,
				Keywords:    KeywordSet(name, description),
			},
		})
	}

	return fragments
}

// extractSecurity produces fragments for security schemes (v3
// securitySchemes or v2 securityDefinitions).
func extractSecurity(apiID string, doc map[string]interface{}) []*storage.Fragment {
	var schemes map[string]interface{}
	if components, ok := doc["components"].(map[string]interface{}); ok {
		schemes, _ = components["securitySchemes"].(map[string]interface{})
	}
	if schemes == nil {
		schemes, _ = doc["securityDefinitions"].(map[string]interface{})
	}
	if schemes == nil {
		return nil
	}

	var fragments []*storage.Fragment
	for _, name := range sortedKeys(schemes) {
		def, ok := schemes[name].(map[string]interface{})
		if !ok {
			continue
		}
		schemeType, _ := def["type"].(string)
		description, _ := def["description"].(string)

		fragments = append(fragments, &storage.Fragment{
			FragmentID: storage.NewFragmentID(apiID, storage.FragmentSecurity, name),
			APIID:      apiID,
			Type:       storage.FragmentSecurity,
			NaturalKey: name,
			Content: map[string]interface{}{
				"name":   name,
				"scheme": def,
			},
			Metadata: storage.Metadata{
				Description: description,
				Keywords:    KeywordSet(name, schemeType, description),
			},
		})
	}

	return fragments
}

// refName strips the pointer prefix from a $ref value.
func refName(ref string) string {
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}

func stringSlice(raw interface{}) []string {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
