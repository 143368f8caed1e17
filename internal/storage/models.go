/*
Package storage provides data models for the fragment store.

A fragment is an atomic, content-addressed unit of API knowledge extracted
from an OpenAPI specification: a single endpoint, a named schema, a shared
parameter, or a security scheme. Fragments are retrieved independently so
an LLM never needs the full specification in its context.
*/
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// FragmentType discriminates the closed set of fragment payloads.
type FragmentType string

const (
	FragmentEndpoint  FragmentType = "endpoint"
	FragmentSchema    FragmentType = "schema"
	FragmentParameter FragmentType = "parameter"
	FragmentSecurity  FragmentType = "security"
)

// Valid reports whether t is a known fragment type.
func (t FragmentType) Valid() bool {
	switch t {
	case FragmentEndpoint, FragmentSchema, FragmentParameter, FragmentSecurity:
		return true
	}
	return false
}

// Fragment represents one independently retrievable piece of an API spec.
type Fragment struct {
	// FragmentID is derived from (api_id, type, natural key) via SHA256,
	// so re-ingesting the same spec never creates duplicates.
	FragmentID string `json:"fragment_id"`

	// APIID is the owning API identifier (e.g., "github").
	APIID string `json:"api_id"`

	// Type is the fragment type discriminator.
	Type FragmentType `json:"fragment_type"`

	// NaturalKey is the human-meaningful identity within the API:
	// "METHOD path" for endpoints, the schema/parameter/scheme name otherwise.
	NaturalKey string `json:"natural_key"`

	// Content is the type-specific payload. For endpoints: path, method,
	// operation metadata. For schemas: name and definition.
	Content map[string]interface{} `json:"content"`

	// Metadata holds the free-text summary/description and the normalized
	// keyword set used for intent matching.
	Metadata Metadata `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UsageCount increases every time the fragment is returned by a search.
	// It is reset only by an explicit administrative action.
	UsageCount int64 `json:"usage_count"`

	// LastUsed is the most recent retrieval time (zero if never retrieved).
	LastUsed time.Time `json:"last_used,omitempty"`

	// Embedding is reserved for future semantic search. Unset in the
	// keyword-based baseline.
	Embedding []float32 `json:"embedding,omitempty"`
}

// Metadata describes a fragment for retrieval purposes.
type Metadata struct {
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	OperationID string   `json:"operation_id,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Keywords    []string `json:"keywords"`
}

// NewFragmentID derives the deterministic fragment identifier.
func NewFragmentID(apiID string, fragmentType FragmentType, naturalKey string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", apiID, fragmentType, naturalKey)))
	return hex.EncodeToString(sum[:])[:32]
}

// Path returns the endpoint path template, or "" for non-endpoint fragments.
func (f *Fragment) Path() string {
	s, _ := f.Content["path"].(string)
	return s
}

// Method returns the endpoint HTTP method, or "" for non-endpoint fragments.
func (f *Fragment) Method() string {
	s, _ := f.Content["method"].(string)
	return s
}

// Name returns the schema/parameter/scheme name, or "" for endpoints.
func (f *Fragment) Name() string {
	s, _ := f.Content["name"].(string)
	return s
}

// IngestReport summarizes one spec ingestion run.
type IngestReport struct {
	// APIID is the API the spec was ingested for.
	APIID string `json:"api_id"`

	// Extracted is the number of fragments produced by extraction.
	Extracted int `json:"extracted"`

	// New is the number of fragments not previously stored.
	New int `json:"new"`

	// Updated is the number of fragments whose content changed in place.
	Updated int `json:"updated"`

	// Unchanged is the number of fragments identical to the stored copy.
	Unchanged int `json:"unchanged"`

	// Skipped lists malformed entries that were dropped (partial success).
	Skipped []string `json:"skipped,omitempty"`
}

// APIStats aggregates fragment statistics for one API.
type APIStats struct {
	APIID         string               `json:"api_id"`
	FragmentCount int                  `json:"fragment_count"`
	TotalUsage    int64                `json:"total_usage"`
	TypeBreakdown map[FragmentType]int `json:"fragment_type_breakdown"`
	LastUsed      time.Time            `json:"last_used,omitempty"`
}
