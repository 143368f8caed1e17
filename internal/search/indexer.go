package search

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/khanglvm/api-hub-mcp/internal/storage"
)

// Indexer maintains a Bleve full-text index over fragment metadata.
type Indexer struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
	indexPath  string
}

// NewIndexer creates an in-memory index; contents are rebuilt from the
// fragment store on startup.
func NewIndexer() (*Indexer, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	return &Indexer{bleveIndex: index}, nil
}

// NewIndexerWithPath creates an indexer with persistent disk storage.
func NewIndexerWithPath(indexPath string) (*Indexer, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	index, err := bleve.NewUsing(indexPath, buildIndexMapping(), scorch.Name, scorch.Name, nil)
	if err != nil {
		// Index already exists on disk.
		index, err = bleve.Open(indexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open/create index: %w", err)
		}
	}

	return &Indexer{bleveIndex: index, indexPath: indexPath}, nil
}

// buildIndexMapping creates the Bleve index mapping for fragment documents.
func buildIndexMapping() mapping.IndexMapping {
	fragmentMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	fragmentMapping.AddFieldMappingsAt("natural_key", textField)
	fragmentMapping.AddFieldMappingsAt("summary", textField)
	fragmentMapping.AddFieldMappingsAt("description", textField)
	fragmentMapping.AddFieldMappingsAt("keywords", textField)

	// api_id is an exact-match filter, not analyzed text.
	apiField := bleve.NewKeywordFieldMapping()
	fragmentMapping.AddFieldMappingsAt("api_id", apiField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", fragmentMapping)

	return indexMapping
}

// IndexFragments (re)indexes all fragments of one API in a single batch.
// The fragment id doubles as the document id, so reindexing overwrites.
func (i *Indexer) IndexFragments(apiID string, fragments []*storage.Fragment) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()

	for _, f := range fragments {
		doc := map[string]interface{}{
			"api_id":      f.APIID,
			"natural_key": f.NaturalKey,
			"summary":     f.Metadata.Summary,
			"description": f.Metadata.Description,
			"keywords":    f.Metadata.Keywords,
		}

		if err := batch.Index(f.FragmentID, doc); err != nil {
			log.Printf("Warning: failed to index fragment %s: %v", f.FragmentID, err)
		}
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index fragments: %w", err)
	}

	return nil
}

// RemoveAPI drops all indexed fragments of an API (before reindex or on
// API removal).
func (i *Indexer) RemoveAPI(apiID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	apiQuery := bleve.NewTermQuery(apiID)
	apiQuery.SetField("api_id")
	searchRequest := bleve.NewSearchRequestOptions(apiQuery, 10000, 0, false)

	results, err := i.bleveIndex.Search(searchRequest)
	if err != nil {
		return fmt.Errorf("failed to find api docs: %w", err)
	}

	batch := i.bleveIndex.NewBatch()
	for _, hit := range results.Hits {
		batch.Delete(hit.ID)
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch delete: %w", err)
	}

	return nil
}

// RemoveFragments deletes individual documents (after an eviction sweep).
func (i *Indexer) RemoveFragments(fragmentIDs []string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()
	for _, id := range fragmentIDs {
		batch.Delete(id)
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch delete: %w", err)
	}

	return nil
}

// Count returns the total number of indexed fragments.
func (i *Indexer) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docCount, err := i.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}

	return docCount, nil
}

// Close closes the index and releases resources.
func (i *Indexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		return i.bleveIndex.Close()
	}

	return nil
}
