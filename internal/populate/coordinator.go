/*
Package populate lazily loads fragments for APIs on first use.

When a search targets an API with no stored fragments, the coordinator
fetches the raw spec, extracts fragments, and ingests them exactly once
per API under concurrent demand. Late arrivals wait for the in-flight
fetch instead of re-triggering it; a failed attempt is never cached, so
the next caller retries immediately.
*/
package populate

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/singleflight"

	"github.com/khanglvm/api-hub-mcp/internal/openapi"
	"github.com/khanglvm/api-hub-mcp/internal/storage"
)

// SpecSource fetches a raw specification document for an API. Timeout and
// retry policy live behind this interface, not in the coordinator.
type SpecSource interface {
	FetchRawSpec(ctx context.Context, apiID string) ([]byte, error)
}

// Coordinator ensures single-flight population of missing APIs.
type Coordinator struct {
	store  *storage.Store
	source SpecSource
	group  singleflight.Group
}

// NewCoordinator creates a population coordinator.
func NewCoordinator(store *storage.Store, source SpecSource) *Coordinator {
	return &Coordinator{store: store, source: source}
}

// EnsurePopulated fetches and ingests the API's spec if the store holds no
// fragments for it. Concurrent callers for the same apiID share one
// fetch+ingest; different APIs populate independently.
//
// The caller's ctx cancels its wait, not the shared fetch: other waiters
// may still need the result.
func (c *Coordinator) EnsurePopulated(ctx context.Context, apiID string) (*storage.IngestReport, error) {
	count, err := c.store.FragmentCount(apiID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}

	ch := c.group.DoChan(apiID, func() (interface{}, error) {
		// Re-check under the flight: a racing caller may have populated
		// between our count and joining the group.
		count, err := c.store.FragmentCount(apiID)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return (*storage.IngestReport)(nil), nil
		}
		return c.populate(apiID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		report, _ := res.Val.(*storage.IngestReport)
		return report, nil
	case <-ctx.Done():
		// Abandon the wait only; the flight keeps running and later
		// callers still join it.
		return nil, ctx.Err()
	}
}

// Refresh unconditionally re-fetches and re-ingests the API's spec,
// coalescing concurrent refreshes the same way as initial population.
func (c *Coordinator) Refresh(ctx context.Context, apiID string) (*storage.IngestReport, error) {
	ch := c.group.DoChan("refresh:"+apiID, func() (interface{}, error) {
		return c.populate(apiID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*storage.IngestReport), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// populate runs the fetch+extract+ingest pipeline. The fetch uses a
// background context because its lifetime belongs to all waiters, with
// the source's own deadline bounding it.
func (c *Coordinator) populate(apiID string) (*storage.IngestReport, error) {
	raw, err := c.source.FetchRawSpec(context.Background(), apiID)
	if err != nil {
		return nil, fmt.Errorf("spec unavailable for %s: %w", apiID, err)
	}

	fragments, skipped, err := openapi.Extract(apiID, raw)
	if err != nil {
		return nil, fmt.Errorf("spec unavailable for %s: %w", apiID, err)
	}

	report, err := c.store.IngestFragments(apiID, fragments, skipped)
	if err != nil {
		return nil, err
	}

	if len(report.Skipped) > 0 {
		log.Printf("Warning: ingest for %s skipped %d entries", apiID, len(report.Skipped))
	}
	log.Printf("Populated %s: %d new, %d updated, %d unchanged fragments",
		apiID, report.New, report.Updated, report.Unchanged)

	return report, nil
}
