package populate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/khanglvm/api-hub-mcp/internal/storage"
)

const testSpec = `{
	"openapi": "3.0.0",
	"paths": {
		"/issues": {
			"post": {"summary": "Create an issue", "tags": ["issues"]}
		}
	}
}`

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	store := storage.NewStore(filepath.Join(t.TempDir(), "fragments.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

// fakeSource counts fetches and optionally blocks until released.
type fakeSource struct {
	fetchCount atomic.Int64
	spec       []byte
	err        error
	gate       chan struct{}
}

func (s *fakeSource) FetchRawSpec(ctx context.Context, apiID string) ([]byte, error) {
	s.fetchCount.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.spec, nil
}

func TestEnsurePopulated(t *testing.T) {
	store := newTestStore(t)
	source := &fakeSource{spec: []byte(testSpec)}
	coordinator := NewCoordinator(store, source)

	report, err := coordinator.EnsurePopulated(context.Background(), "github")
	if err != nil {
		t.Fatalf("EnsurePopulated failed: %v", err)
	}
	if report == nil || report.New != 1 {
		t.Fatalf("expected 1 new fragment, got %+v", report)
	}

	// Already populated: no fetch, nil report.
	report, err = coordinator.EnsurePopulated(context.Background(), "github")
	if err != nil {
		t.Fatalf("EnsurePopulated failed: %v", err)
	}
	if report != nil {
		t.Error("expected nil report for an already populated API")
	}
	if got := source.fetchCount.Load(); got != 1 {
		t.Errorf("expected exactly 1 fetch, got %d", got)
	}
}

// TestEnsurePopulated_SingleFlight verifies that N concurrent callers for
// an unpopulated API trigger exactly one fetch.
func TestEnsurePopulated_SingleFlight(t *testing.T) {
	store := newTestStore(t)
	source := &fakeSource{spec: []byte(testSpec), gate: make(chan struct{})}
	coordinator := NewCoordinator(store, source)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = coordinator.EnsurePopulated(context.Background(), "github")
		}(i)
	}

	// Let all callers pile up on the in-flight fetch, then release it.
	close(source.gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d failed: %v", i, err)
		}
	}
	if got := source.fetchCount.Load(); got != 1 {
		t.Errorf("expected exactly 1 fetch under concurrency, got %d", got)
	}
}

func TestEnsurePopulated_FailureNotCached(t *testing.T) {
	store := newTestStore(t)
	source := &fakeSource{err: errors.New("registry down")}
	coordinator := NewCoordinator(store, source)

	if _, err := coordinator.EnsurePopulated(context.Background(), "github"); err == nil {
		t.Fatal("expected failure")
	}

	// Next attempt retries immediately instead of replaying the failure.
	source.err = nil
	source.spec = []byte(testSpec)
	report, err := coordinator.EnsurePopulated(context.Background(), "github")
	if err != nil {
		t.Fatalf("retry after failure should succeed: %v", err)
	}
	if report == nil || report.New != 1 {
		t.Errorf("expected retry to populate, got %+v", report)
	}
}

func TestRefresh(t *testing.T) {
	store := newTestStore(t)
	source := &fakeSource{spec: []byte(testSpec)}
	coordinator := NewCoordinator(store, source)

	if _, err := coordinator.EnsurePopulated(context.Background(), "github"); err != nil {
		t.Fatalf("EnsurePopulated failed: %v", err)
	}

	// Refresh fetches even though fragments exist.
	report, err := coordinator.Refresh(context.Background(), "github")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if report.Unchanged != 1 {
		t.Errorf("expected unchanged re-ingest, got %+v", report)
	}
	if got := source.fetchCount.Load(); got != 2 {
		t.Errorf("expected 2 fetches, got %d", got)
	}
}

func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testSpec))
	}))
	defer server.Close()

	source := NewHTTPSource(func(apiID string) (string, error) {
		return server.URL + "/" + apiID + ".json", nil
	})

	raw, err := source.FetchRawSpec(context.Background(), "github")
	if err != nil {
		t.Fatalf("FetchRawSpec failed: %v", err)
	}
	if string(raw) != testSpec {
		t.Error("unexpected spec body")
	}
}

func TestHTTPSource_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	source := NewHTTPSource(func(apiID string) (string, error) {
		return server.URL, nil
	})

	if _, err := source.FetchRawSpec(context.Background(), "github"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
