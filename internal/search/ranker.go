package search

import (
	"fmt"
	"log"
	"sort"

	"github.com/khanglvm/api-hub-mcp/internal/openapi"
	"github.com/khanglvm/api-hub-mcp/internal/storage"
)

// DefaultTopK bounds how many fragments a search returns (and therefore
// how much context the synthesizer builds).
const DefaultTopK = 8

// Ranker scores and returns the top-K fragments for an intent.
type Ranker struct {
	store  *storage.Store
	scorer Scorer

	// indexer, when set, contributes BM25 scores fused with the keyword
	// scorer. Nil means pure keyword ranking.
	indexer *Indexer
	fusion  FusionConfig
}

// NewRanker creates a keyword-only ranker with the Jaccard baseline scorer.
func NewRanker(store *storage.Store) *Ranker {
	return &Ranker{store: store, scorer: JaccardScorer{}}
}

// NewHybridRanker creates a ranker that fuses BM25 index scores with the
// keyword baseline.
func NewHybridRanker(store *storage.Store, indexer *Indexer, fusion FusionConfig) *Ranker {
	return &Ranker{store: store, scorer: JaccardScorer{}, indexer: indexer, fusion: fusion}
}

// SetScorer replaces the keyword scorer. The replacement must keep the
// zero-score contract: fragments it scores 0 are excluded from results.
func (r *Ranker) SetScorer(scorer Scorer) {
	if scorer != nil {
		r.scorer = scorer
	}
}

// Search returns up to topK fragments ranked by relevance to intent.
// Zero-score fragments are excluded even when topK is not filled.
//
// Every fragment returned has its usage statistics updated: retrieval
// consumed cache value whether or not the synthesizer ends up using it.
func (r *Ranker) Search(apiID, intent string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	fragments, err := r.store.FragmentsByAPI(apiID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fragments: %w", err)
	}

	intentTokens := openapi.Tokenize(intent)

	matches := make([]Match, 0, len(fragments))
	for _, f := range fragments {
		score := r.scorer.Score(intentTokens, f)
		if score > 0 {
			matches = append(matches, Match{Fragment: f, Score: score})
		}
	}

	if r.indexer != nil {
		matches = r.fuseWithIndex(apiID, intent, fragments, matches, topK)
	}

	sortMatches(matches)

	if len(matches) > topK {
		matches = matches[:topK]
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.Fragment.FragmentID
	}
	if err := r.store.TouchFragments(ids); err != nil {
		// Retrieval still succeeded; stats drift is tolerable.
		log.Printf("Warning: failed to update usage stats: %v", err)
	}

	return matches, nil
}

// fuseWithIndex merges BM25 hits into the keyword matches using weighted
// score fusion. Index failures degrade to keyword-only results.
func (r *Ranker) fuseWithIndex(apiID, intent string, fragments []*storage.Fragment, keyword []Match, topK int) []Match {
	hits, err := r.indexer.SearchBM25(apiID, intent, topK*2)
	if err != nil {
		log.Printf("Warning: index search failed, falling back to keyword ranking: %v", err)
		return keyword
	}
	if len(hits) == 0 {
		return keyword
	}

	byID := make(map[string]*storage.Fragment, len(fragments))
	for _, f := range fragments {
		byID[f.FragmentID] = f
	}

	indexMatches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		f, ok := byID[hit.FragmentID]
		if !ok {
			continue // index lag after eviction
		}
		indexMatches = append(indexMatches, Match{Fragment: f, Score: hit.Score})
	}

	return dropZeroScores(fuseScores(keyword, indexMatches, r.fusion))
}

// dropZeroScores removes fused matches that landed at zero. Fusion must
// not resurrect fragments the scorers excluded.
func dropZeroScores(matches []Match) []Match {
	kept := matches[:0]
	for _, m := range matches {
		if m.Score > 0 {
			kept = append(kept, m)
		}
	}
	return kept
}

// sortMatches orders by score descending, breaking ties by preferring
// endpoint fragments, then higher usage count, then lexicographically
// smaller fragment id. The last tie-break makes the ordering total, so
// repeated searches over an unchanged store return identical sequences.
func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}

		aEndpoint := a.Fragment.Type == storage.FragmentEndpoint
		bEndpoint := b.Fragment.Type == storage.FragmentEndpoint
		if aEndpoint != bEndpoint {
			return aEndpoint
		}

		if a.Fragment.UsageCount != b.Fragment.UsageCount {
			return a.Fragment.UsageCount > b.Fragment.UsageCount
		}

		return a.Fragment.FragmentID < b.Fragment.FragmentID
	})
}
