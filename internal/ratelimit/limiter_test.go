package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func newTestLimiter(start time.Time) (*Limiter, *time.Time) {
	current := start
	l := NewLimiter()
	l.now = func() time.Time { return current }
	return l, &current
}

func TestAllow_FixedWindow(t *testing.T) {
	l, clock := newTestLimiter(time.Unix(1000, 0))
	l.SetPolicy("github", Policy{Limit: 5, Window: time.Minute})

	for i := 0; i < 5; i++ {
		if !l.Allow("github") {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	if l.Allow("github") {
		t.Fatal("6th call within window should be rejected")
	}

	// Advance past the window; budget resets.
	*clock = clock.Add(61 * time.Second)
	if !l.Allow("github") {
		t.Fatal("call after window elapsed should be allowed")
	}
}

func TestAllow_PerAPIIsolation(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	l.SetPolicy("github", Policy{Limit: 1, Window: time.Minute})
	l.SetPolicy("jira", Policy{Limit: 1, Window: time.Minute})

	if !l.Allow("github") {
		t.Fatal("first github call should be allowed")
	}
	if l.Allow("github") {
		t.Fatal("second github call should be rejected")
	}
	if !l.Allow("jira") {
		t.Fatal("jira budget must be independent of github")
	}
}

func TestAllow_DefaultPolicy(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))

	for i := 0; i < DefaultLimit; i++ {
		if !l.Allow("unconfigured") {
			t.Fatalf("call %d should be allowed under default policy", i+1)
		}
	}
	if l.Allow("unconfigured") {
		t.Fatal("call beyond default limit should be rejected")
	}
}

func TestSetPolicy_ZeroFieldsFallBack(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	l.SetPolicy("partial", Policy{Limit: 2})

	if !l.Allow("partial") || !l.Allow("partial") {
		t.Fatal("calls within explicit limit should be allowed")
	}
	if l.Allow("partial") {
		t.Fatal("call beyond explicit limit should be rejected")
	}
}

func TestReset_ClearsWindows(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	l.SetPolicy("github", Policy{Limit: 1, Window: time.Minute})

	l.Allow("github")
	if l.Allow("github") {
		t.Fatal("budget should be exhausted")
	}

	l.Reset()
	if !l.Allow("github") {
		t.Fatal("reset should restore the budget")
	}
}

func TestAllow_ConcurrentCounting(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	l.SetPolicy("github", Policy{Limit: 50, Window: time.Minute})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("github") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Fatalf("expected exactly 50 allowed calls, got %d", allowed)
	}
}
