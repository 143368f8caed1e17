/*
Package hub wires the fragment store, spec population, search, call
synthesis, and security validation into one front door.

The CLI and the MCP server both talk to a Hub; neither assembles the
pipeline themselves.
*/
package hub

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/khanglvm/api-hub-mcp/internal/config"
	"github.com/khanglvm/api-hub-mcp/internal/learning"
	"github.com/khanglvm/api-hub-mcp/internal/populate"
	"github.com/khanglvm/api-hub-mcp/internal/ratelimit"
	"github.com/khanglvm/api-hub-mcp/internal/retention"
	"github.com/khanglvm/api-hub-mcp/internal/search"
	"github.com/khanglvm/api-hub-mcp/internal/security"
	"github.com/khanglvm/api-hub-mcp/internal/storage"
	"github.com/khanglvm/api-hub-mcp/internal/synth"
)

// ErrUnknownAPI is returned for operations against an unregistered API.
var ErrUnknownAPI = errors.New("api is not registered")

// Resolution is the combined outcome of synthesis and validation.
type Resolution struct {
	Candidate *synth.Candidate  `json:"candidate"`
	Verdict   *security.Verdict `json:"verdict"`
}

// Hub is the composition root for the fragment pipeline.
type Hub struct {
	cfg        *config.Config
	configPath string

	store       *storage.Store
	indexer     *search.Indexer
	ranker      *search.Ranker
	coordinator *populate.Coordinator
	synthesizer *synth.Synthesizer
	validator   *security.Validator
	limiter     *ratelimit.Limiter
	retention   *retention.Manager
	audit       *AuditLog
}

// New assembles a hub from configuration. The generator may be nil, in
// which case call synthesis always uses the deterministic heuristic.
func New(cfg *config.Config, configPath string, store *storage.Store, generator synth.Generator) (*Hub, error) {
	if cfg.Settings == nil {
		cfg.Settings = config.NewConfig().Settings
	}

	indexer, err := search.NewIndexer()
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}

	ranker := search.NewHybridRanker(store, indexer, search.DefaultFusionConfig)
	if cfg.Settings.UsageBoost {
		ranker.SetScorer(learning.NewUsageScorer(nil))
	}

	limiter := ratelimit.NewLimiter()
	for apiID, api := range cfg.APIs {
		if api.RateLimit > 0 || api.RateWindowSeconds > 0 {
			limiter.SetPolicy(apiID, ratelimit.Policy{
				Limit:  api.RateLimit,
				Window: api.RateWindow(),
			})
		}
	}

	validator := security.NewValidator(store, limiter)
	if len(cfg.Settings.ForbiddenPatterns) > 0 {
		patterns, err := security.CompilePatterns(cfg.Settings.ForbiddenPatterns)
		if err != nil {
			return nil, fmt.Errorf("invalid forbiddenPatterns: %w", err)
		}
		validator.SetPatterns(patterns)
	}
	if cfg.Settings.MaxParamLength > 0 {
		validator.MaxParamLength = cfg.Settings.MaxParamLength
	}

	if generator == nil {
		generator = unavailableGenerator{}
	}
	synthesizer := synth.NewSynthesizer(ranker, generator)
	if cfg.Settings.TopK > 0 {
		synthesizer.TopK = cfg.Settings.TopK
	}
	if cfg.Settings.ConfidenceThreshold > 0 {
		synthesizer.ConfidenceThreshold = cfg.Settings.ConfidenceThreshold
	}

	h := &Hub{
		cfg:        cfg,
		configPath: configPath,
		store:      store,
		indexer:    indexer,
		ranker:     ranker,
		limiter:    limiter,
		validator:  validator,
		retention:  retention.NewManager(store, indexer, cfg.Settings.Retention(), 0),
		audit:      NewAuditLog(nil),
	}
	h.coordinator = populate.NewCoordinator(store, populate.NewHTTPSource(h.specURL))
	h.synthesizer = synthesizer

	return h, nil
}

// SetAuditLog replaces the audit sink.
func (h *Hub) SetAuditLog(audit *AuditLog) {
	h.audit = audit
}

// SetSpecSource replaces the spec source (used by tests).
func (h *Hub) SetSpecSource(source populate.SpecSource) {
	h.coordinator = populate.NewCoordinator(h.store, source)
}

// specURL resolves an apiID to its registered spec URL.
func (h *Hub) specURL(apiID string) (string, error) {
	api, ok := h.cfg.APIs[apiID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAPI, apiID)
	}
	return api.SpecURL, nil
}

// Register adds an API to the configuration and populates its fragments
// immediately. Population failure does not roll back the registration:
// the fragments arrive lazily on first use instead.
func (h *Hub) Register(ctx context.Context, apiID string, api *config.APIConfig) (*storage.IngestReport, error) {
	if err := config.ValidateAPI(apiID, api); err != nil {
		return nil, err
	}

	h.cfg.APIs[apiID] = api
	if api.RateLimit > 0 || api.RateWindowSeconds > 0 {
		h.limiter.SetPolicy(apiID, ratelimit.Policy{
			Limit:  api.RateLimit,
			Window: api.RateWindow(),
		})
	}

	if err := h.saveConfig(); err != nil {
		delete(h.cfg.APIs, apiID)
		return nil, err
	}

	report, err := h.coordinator.Refresh(ctx, apiID)
	if err != nil {
		log.Printf("Warning: initial population of %s failed: %v", apiID, err)
		return &storage.IngestReport{APIID: apiID}, nil
	}
	h.reindex(apiID)

	return report, nil
}

// Remove deletes an API's registration, fragments, and index entries.
// The registration is unregistered and persisted first; fragments are
// only deleted once the config change is durable, so a failed save
// leaves the API fully intact. Returns the number of fragments removed.
func (h *Hub) Remove(apiID string) (int, error) {
	api, ok := h.cfg.APIs[apiID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAPI, apiID)
	}

	delete(h.cfg.APIs, apiID)
	if err := h.saveConfig(); err != nil {
		h.cfg.APIs[apiID] = api
		return 0, err
	}

	deleted, err := h.store.DeleteAPI(apiID)
	if err != nil {
		return 0, err
	}
	if err := h.indexer.RemoveAPI(apiID); err != nil {
		log.Printf("Warning: failed to remove %s from search index: %v", apiID, err)
	}

	return deleted, nil
}

// Refresh re-fetches an API's spec and reconciles stored fragments.
// When the upstream is unreachable the stored fragments stay as they
// are, so callers keep working from the last good copy.
func (h *Hub) Refresh(ctx context.Context, apiID string) (*storage.IngestReport, error) {
	if _, ok := h.cfg.APIs[apiID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAPI, apiID)
	}

	report, err := h.coordinator.Refresh(ctx, apiID)
	if err != nil {
		return nil, err
	}
	h.reindex(apiID)

	return report, nil
}

// Search ensures the API is populated, then ranks fragments against
// the intent.
func (h *Hub) Search(ctx context.Context, apiID, intent string, topK int) ([]search.Match, error) {
	if err := h.ensurePopulated(ctx, apiID); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = h.synthesizer.TopK
	}
	return h.ranker.Search(apiID, intent, topK)
}

// Resolve turns an intent into a validated call descriptor. The verdict
// is part of the result: a rejected candidate is a normal outcome, not
// an error.
func (h *Hub) Resolve(ctx context.Context, apiID, intent string, params map[string]interface{}) (*Resolution, error) {
	if err := h.ensurePopulated(ctx, apiID); err != nil {
		return nil, err
	}

	candidate, err := h.synthesizer.Resolve(ctx, apiID, intent, params)
	if err != nil {
		return nil, err
	}

	verdict, err := h.validator.Validate(candidate, apiID)
	if err != nil {
		return nil, err
	}

	h.audit.Record(apiID, intent, candidate, verdict)

	return &Resolution{Candidate: candidate, Verdict: verdict}, nil
}

// Fragments returns every stored fragment of one API.
func (h *Hub) Fragments(apiID string) ([]*storage.Fragment, error) {
	if _, ok := h.cfg.APIs[apiID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAPI, apiID)
	}
	return h.store.FragmentsByAPI(apiID)
}

// Stats reports fragment statistics for one API.
func (h *Hub) Stats(apiID string) (*storage.APIStats, error) {
	if _, ok := h.cfg.APIs[apiID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAPI, apiID)
	}
	return h.store.Stats(apiID)
}

// APIs returns the registered API identifiers and their configs.
func (h *Hub) APIs() map[string]*config.APIConfig {
	return h.cfg.APIs
}

// Cleanup runs one retention sweep.
func (h *Hub) Cleanup() (int, error) {
	return h.retention.RunOnce()
}

// RunRetention sweeps periodically until ctx is cancelled.
func (h *Hub) RunRetention(ctx context.Context) {
	h.retention.Run(ctx)
}

// Close flushes pending audit records and releases the search index.
// The store is owned by the caller.
func (h *Hub) Close() error {
	h.audit.Flush()
	return h.indexer.Close()
}

// ensurePopulated lazily populates the API on first use. A population
// failure is tolerated when stored fragments already exist: serving a
// stale spec beats serving nothing.
func (h *Hub) ensurePopulated(ctx context.Context, apiID string) error {
	if _, ok := h.cfg.APIs[apiID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAPI, apiID)
	}

	report, err := h.coordinator.EnsurePopulated(ctx, apiID)
	if err != nil {
		count, countErr := h.store.FragmentCount(apiID)
		if countErr == nil && count > 0 {
			log.Printf("Warning: population of %s failed, serving stored fragments: %v", apiID, err)
			return nil
		}
		return err
	}
	if report != nil && report.New+report.Updated > 0 {
		h.reindex(apiID)
	}

	return nil
}

// reindex rebuilds the BM25 index entries for one API. Index failures
// degrade ranking, not correctness, so they are logged and swallowed.
func (h *Hub) reindex(apiID string) {
	fragments, err := h.store.FragmentsByAPI(apiID)
	if err != nil {
		log.Printf("Warning: failed to load fragments of %s for indexing: %v", apiID, err)
		return
	}
	if err := h.indexer.IndexFragments(apiID, fragments); err != nil {
		log.Printf("Warning: failed to index fragments of %s: %v", apiID, err)
	}
}

// saveConfig persists the config when a path is set. An in-memory hub
// (tests) skips persistence.
func (h *Hub) saveConfig() error {
	if h.configPath == "" {
		return nil
	}
	return config.Save(h.cfg, h.configPath)
}

// unavailableGenerator stands in when no LLM is configured. Its error
// routes every resolution through the heuristic fallback.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("no llm configured")
}
