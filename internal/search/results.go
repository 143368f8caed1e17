/*
Package search implements intent-based retrieval over stored API fragments.

The baseline scorer is deterministic keyword matching (Jaccard similarity
over normalized token sets). An optional Bleve BM25 index can be fused in
for better recall on descriptive queries; the ranked-sequence contract is
the same either way.
*/
package search

import "github.com/khanglvm/api-hub-mcp/internal/storage"

// Match is a fragment paired with its relevance score for one query.
type Match struct {
	Fragment *storage.Fragment `json:"fragment"`
	Score    float64           `json:"score"`
}

// scoredID is an index hit before fragment resolution.
type scoredID struct {
	FragmentID string
	Score      float64
}
