/*
Package learning adjusts fragment relevance using accumulated usage
statistics.

The baseline keyword scorer treats every fragment the same. In practice
agents hit a small set of endpoints over and over; boosting fragments
with recent, frequent use gets the right candidate to the top of close
races without overriding a clear keyword winner.
*/
package learning

import (
	"math"
	"time"

	"github.com/khanglvm/api-hub-mcp/internal/search"
	"github.com/khanglvm/api-hub-mcp/internal/storage"
)

const (
	// frequencyWeight is the weight for frequency in the boost (60%).
	frequencyWeight = 0.6

	// recencyWeight is the weight for recency in the boost (40%).
	recencyWeight = 0.4

	// recencyHalfLife is the half-life for exponential decay (24 hours).
	recencyHalfLife = 24 * time.Hour

	// frequencyCeiling is the usage count treated as "high frequency".
	frequencyCeiling = 100.0

	// maxBoostFactor caps how much usage can amplify a base score. A
	// heavily used fragment scores at most 1.25x its keyword score, so
	// usage settles ties instead of beating relevance.
	maxBoostFactor = 0.25
)

// UsageScorer wraps a base scorer and amplifies scores of fragments
// with frequent, recent use. A zero base score stays zero: usage never
// makes an irrelevant fragment relevant.
type UsageScorer struct {
	base search.Scorer

	// now is replaceable for tests.
	now func() time.Time
}

// NewUsageScorer wraps base with usage boosting. A nil base uses the
// Jaccard baseline.
func NewUsageScorer(base search.Scorer) *UsageScorer {
	if base == nil {
		base = search.JaccardScorer{}
	}
	return &UsageScorer{base: base, now: time.Now}
}

// Score implements search.Scorer.
func (u *UsageScorer) Score(intentTokens []string, fragment *storage.Fragment) float64 {
	score := u.base.Score(intentTokens, fragment)
	if score == 0 {
		return 0
	}
	return score * (1 + maxBoostFactor*u.Boost(fragment))
}

// Boost returns the usage boost for a fragment in [0, 1].
// Formula: 0.6*frequency + 0.4*recency
func (u *UsageScorer) Boost(fragment *storage.Fragment) float64 {
	freq := frequency(fragment.UsageCount)
	rec := u.recency(fragment.LastUsed)
	return frequencyWeight*freq + recencyWeight*rec
}

// frequency normalizes the lifetime usage count to 0-1.
func frequency(usageCount int64) float64 {
	if usageCount <= 0 {
		return 0.0
	}
	return math.Min(float64(usageCount)/frequencyCeiling, 1.0)
}

// recency decays exponentially from the last use (normalized 0-1).
// After 24 hours: 0.5. After 48 hours: 0.25.
func (u *UsageScorer) recency(lastUsed time.Time) float64 {
	if lastUsed.IsZero() {
		return 0.0
	}

	hoursSince := u.now().Sub(lastUsed).Hours()
	if hoursSince <= 0 {
		return 1.0
	}

	decay := math.Exp(-math.Ln2 * hoursSince / recencyHalfLife.Hours())
	return math.Min(decay, 1.0)
}
