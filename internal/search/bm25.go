package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
)

// SearchBM25 performs BM25 keyword search scoped to one API.
func (i *Indexer) SearchBM25(apiID, query string, limit int) ([]scoredID, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultTopK
	}

	// (match query) AND (api filter)
	matchQuery := bleve.NewMatchQuery(query)
	apiQuery := bleve.NewTermQuery(apiID)
	apiQuery.SetField("api_id")
	conjunction := bleve.NewConjunctionQuery(matchQuery, apiQuery)

	searchRequest := bleve.NewSearchRequestOptions(conjunction, limit, 0, false)

	results, err := i.bleveIndex.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	hits := make([]scoredID, 0, len(results.Hits))
	for _, hit := range results.Hits {
		hits = append(hits, scoredID{FragmentID: hit.ID, Score: hit.Score})
	}

	return hits, nil
}
