package populate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const (
	// defaultFetchTimeout bounds a single spec download. This deadline is
	// the only timeout in the population path; the coordinator just
	// propagates the failure when it elapses.
	defaultFetchTimeout = 30 * time.Second

	// maxSpecSize caps the accepted document size (16 MiB). Specs larger
	// than this would blow up extraction memory for no retrieval benefit.
	maxSpecSize = 16 << 20
)

// SpecURLResolver maps an apiID to the URL its spec is served from.
type SpecURLResolver func(apiID string) (string, error)

// HTTPSource fetches raw specs over HTTP. A circuit breaker sits in front
// of each upstream so a registry outage fails fast instead of piling up
// blocked population waiters.
type HTTPSource struct {
	client   *http.Client
	resolver SpecURLResolver
	breaker  *gobreaker.CircuitBreaker
}

// NewHTTPSource creates an HTTP spec source.
func NewHTTPSource(resolver SpecURLResolver) *HTTPSource {
	settings := gobreaker.Settings{
		Name:    "spec-source",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}

	return &HTTPSource{
		client:   &http.Client{Timeout: defaultFetchTimeout},
		resolver: resolver,
		breaker:  gobreaker.NewCircuitBreaker(settings),
	}
}

// FetchRawSpec implements SpecSource.
func (s *HTTPSource) FetchRawSpec(ctx context.Context, apiID string) ([]byte, error) {
	url, err := s.resolver(apiID)
	if err != nil {
		return nil, err
	}

	raw, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx, apiID, url)
	})
	if err != nil {
		return nil, err
	}

	return raw.([]byte), nil
}

func (s *HTTPSource) fetch(ctx context.Context, apiID, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build spec request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spec for %s: %w", apiID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spec fetch for %s returned %s", apiID, resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSpecSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read spec body: %w", err)
	}
	if len(raw) > maxSpecSize {
		return nil, fmt.Errorf("spec for %s exceeds %d bytes", apiID, maxSpecSize)
	}

	return raw, nil
}
