// Package retention evicts fragments that have not been used within the
// configured retention period.
package retention

import (
	"context"
	"log"
	"time"

	"github.com/khanglvm/api-hub-mcp/internal/storage"
)

// DefaultRetention is how long an unused fragment survives.
const DefaultRetention = 30 * 24 * time.Hour

// DefaultInterval is how often the background sweep runs.
const DefaultInterval = 6 * time.Hour

// Index purges evicted fragments from derived search state.
type Index interface {
	RemoveFragments(fragmentIDs []string) error
}

// Manager runs retention sweeps against the fragment store.
type Manager struct {
	store     *storage.Store
	index     Index
	retention time.Duration
	interval  time.Duration
}

// NewManager creates a manager with the given retention period.
// Non-positive durations fall back to the defaults; a nil index skips
// index cleanup.
func NewManager(store *storage.Store, index Index, retention, interval time.Duration) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Manager{store: store, index: index, retention: retention, interval: interval}
}

// RunOnce performs a single sweep and returns the number of evicted
// fragments. Evicted ids are removed from the search index too, so the
// index does not accumulate documents for rows that no longer exist.
// Running it again immediately is a no-op.
func (m *Manager) RunOnce() (int, error) {
	evicted, err := m.store.EvictOlderThan(m.retention)
	if err != nil {
		return 0, err
	}
	if m.index != nil && len(evicted) > 0 {
		if err := m.index.RemoveFragments(evicted); err != nil {
			log.Printf("Warning: failed to remove %d evicted fragments from search index: %v", len(evicted), err)
		}
	}
	return len(evicted), nil
}

// Run sweeps on the configured interval until ctx is cancelled. Sweep
// failures are logged and do not stop the loop.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted, err := m.RunOnce()
			if err != nil {
				log.Printf("Warning: retention sweep failed: %v", err)
				continue
			}
			if evicted > 0 {
				log.Printf("Retention sweep evicted %d fragments", evicted)
			}
		}
	}
}
