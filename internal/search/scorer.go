package search

import "github.com/khanglvm/api-hub-mcp/internal/storage"

// Scorer computes a relevance score in [0,1] for a fragment against a
// normalized intent token set. Implementations must be pure: the same
// inputs always produce the same score.
//
// The scorer is pluggable; an embedding-based cosine scorer can replace
// the keyword baseline without changing the Ranker contract.
type Scorer interface {
	Score(intentTokens []string, fragment *storage.Fragment) float64
}

// JaccardScorer is the baseline keyword scorer:
// |intent ∩ keywords| / |intent ∪ keywords|.
type JaccardScorer struct{}

// Score implements Scorer.
func (JaccardScorer) Score(intentTokens []string, fragment *storage.Fragment) float64 {
	if len(intentTokens) == 0 || len(fragment.Metadata.Keywords) == 0 {
		return 0
	}

	intent := make(map[string]struct{}, len(intentTokens))
	for _, t := range intentTokens {
		intent[t] = struct{}{}
	}

	union := len(intent)
	intersection := 0
	seen := make(map[string]struct{}, len(fragment.Metadata.Keywords))
	for _, kw := range fragment.Metadata.Keywords {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		if _, ok := intent[kw]; ok {
			intersection++
		} else {
			union++
		}
	}

	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
