package learning

import (
	"math"
	"testing"
	"time"

	"github.com/khanglvm/api-hub-mcp/internal/storage"
)

func newTestScorer(now time.Time) *UsageScorer {
	s := NewUsageScorer(nil)
	s.now = func() time.Time { return now }
	return s
}

func endpointFragment(usageCount int64, lastUsed time.Time, keywords ...string) *storage.Fragment {
	return &storage.Fragment{
		FragmentID: "test-fragment",
		APIID:      "github",
		Type:       storage.FragmentEndpoint,
		NaturalKey: "POST /issues",
		UsageCount: usageCount,
		LastUsed:   lastUsed,
		Metadata:   storage.Metadata{Keywords: keywords},
	}
}

func TestScore_ZeroBaseStaysZero(t *testing.T) {
	now := time.Now()
	scorer := newTestScorer(now)

	// Heavy usage, but no keyword overlap.
	f := endpointFragment(1000, now, "payments", "refund")
	if got := scorer.Score([]string{"issue", "create"}, f); got != 0 {
		t.Errorf("usage must not resurrect a zero keyword score, got %f", got)
	}
}

func TestScore_BoostsUsedFragments(t *testing.T) {
	now := time.Now()
	scorer := newTestScorer(now)
	tokens := []string{"issue", "create"}

	fresh := endpointFragment(0, time.Time{}, "issue", "create")
	used := endpointFragment(100, now, "issue", "create")

	freshScore := scorer.Score(tokens, fresh)
	usedScore := scorer.Score(tokens, used)

	if usedScore <= freshScore {
		t.Errorf("used fragment should outscore unused: %f vs %f", usedScore, freshScore)
	}
	if usedScore > freshScore*(1+maxBoostFactor) {
		t.Errorf("boost exceeds cap: %f vs base %f", usedScore, freshScore)
	}
}

func TestBoost_FrequencyNormalization(t *testing.T) {
	now := time.Now()
	scorer := newTestScorer(now)

	low := scorer.Boost(endpointFragment(1, now))
	high := scorer.Boost(endpointFragment(100, now))
	saturated := scorer.Boost(endpointFragment(10000, now))

	if low >= high {
		t.Errorf("more usage should boost more: %f vs %f", low, high)
	}
	if high != saturated {
		t.Errorf("frequency should saturate at the ceiling: %f vs %f", high, saturated)
	}
}

func TestRecency_HalfLifeDecay(t *testing.T) {
	now := time.Now()
	scorer := newTestScorer(now)

	fresh := scorer.recency(now)
	dayOld := scorer.recency(now.Add(-24 * time.Hour))
	twoDaysOld := scorer.recency(now.Add(-48 * time.Hour))

	if fresh != 1.0 {
		t.Errorf("just-used recency should be 1.0, got %f", fresh)
	}
	if math.Abs(dayOld-0.5) > 0.001 {
		t.Errorf("24h recency should be ~0.5, got %f", dayOld)
	}
	if math.Abs(twoDaysOld-0.25) > 0.001 {
		t.Errorf("48h recency should be ~0.25, got %f", twoDaysOld)
	}
}

func TestRecency_NeverUsed(t *testing.T) {
	scorer := newTestScorer(time.Now())
	if got := scorer.recency(time.Time{}); got != 0.0 {
		t.Errorf("never-used recency should be 0, got %f", got)
	}
}
