/*
Package security gates synthesized call candidates before they may reach
the network.

A generator can hallucinate endpoints, emit disallowed methods, or pass
through injected parameter values from a hostile intent. The validator
runs its checks in a fixed order and short-circuits on the first failure;
the rate limiter runs last so unsafe calls never consume rate budget.
*/
package security

import (
	"fmt"
	"regexp"

	"github.com/khanglvm/api-hub-mcp/internal/ratelimit"
	"github.com/khanglvm/api-hub-mcp/internal/storage"
	"github.com/khanglvm/api-hub-mcp/internal/synth"
)

// Reason identifies why a candidate was rejected.
type Reason string

const (
	ReasonAccepted          Reason = "accepted"
	ReasonUnknownEndpoint   Reason = "unknown_endpoint"
	ReasonDisallowedMethod  Reason = "disallowed_method"
	ReasonUnsafeParameter   Reason = "unsafe_parameter"
	ReasonRateLimitExceeded Reason = "rate_limit_exceeded"
)

// Verdict is the validation outcome for one candidate. Rejections are
// structured results callers branch on, not errors.
type Verdict struct {
	Accepted bool   `json:"accepted"`
	Reason   Reason `json:"reason"`
	Detail   string `json:"detail,omitempty"`
}

// DefaultMaxParamLength caps string parameter values.
const DefaultMaxParamLength = 10000

// allowedMethods is the closed set of permitted HTTP methods.
var allowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// Validator checks candidates against the known fragment set, a
// forbidden-pattern list, and size bounds.
type Validator struct {
	store    *storage.Store
	limiter  *ratelimit.Limiter
	patterns []*regexp.Regexp

	// MaxParamLength is the string parameter length bound.
	MaxParamLength int
}

// NewValidator creates a validator with the default forbidden patterns.
func NewValidator(store *storage.Store, limiter *ratelimit.Limiter) *Validator {
	return &Validator{
		store:          store,
		limiter:        limiter,
		patterns:       defaultPatterns(),
		MaxParamLength: DefaultMaxParamLength,
	}
}

// SetPatterns replaces the forbidden-pattern set (from configuration).
func (v *Validator) SetPatterns(patterns []*regexp.Regexp) {
	v.patterns = patterns
}

// Validate runs all checks against the candidate. Check order is fixed:
// endpoint existence, method, parameter safety, then rate limit.
func (v *Validator) Validate(candidate *synth.Candidate, apiID string) (*Verdict, error) {
	exists, err := v.store.EndpointExists(apiID, candidate.Method, candidate.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("endpoint lookup failed: %w", err)
	}
	if !exists {
		return &Verdict{
			Accepted: false,
			Reason:   ReasonUnknownEndpoint,
			Detail:   fmt.Sprintf("%s %s is not in the stored spec for %s", candidate.Method, candidate.Endpoint, apiID),
		}, nil
	}

	if !allowedMethods[candidate.Method] {
		return &Verdict{
			Accepted: false,
			Reason:   ReasonDisallowedMethod,
			Detail:   fmt.Sprintf("method %s is not allowed", candidate.Method),
		}, nil
	}

	if verdict := v.checkParameters(candidate.Parameters); verdict != nil {
		return verdict, nil
	}

	if !v.limiter.Allow(apiID) {
		return &Verdict{
			Accepted: false,
			Reason:   ReasonRateLimitExceeded,
			Detail:   fmt.Sprintf("rate limit exceeded for %s", apiID),
		}, nil
	}

	return &Verdict{Accepted: true, Reason: ReasonAccepted}, nil
}

// checkParameters scans every string-valued parameter, including values
// nested inside objects and arrays, against the forbidden patterns and
// the length bound. Returns nil when everything is safe.
func (v *Validator) checkParameters(params map[string]interface{}) *Verdict {
	for name, value := range params {
		if verdict := v.checkValue(name, value); verdict != nil {
			return verdict
		}
	}
	return nil
}

func (v *Validator) checkValue(name string, value interface{}) *Verdict {
	switch val := value.(type) {
	case string:
		if len(val) > v.MaxParamLength {
			return &Verdict{
				Accepted: false,
				Reason:   ReasonUnsafeParameter,
				Detail:   fmt.Sprintf("parameter %q exceeds %d characters", name, v.MaxParamLength),
			}
		}
		for _, pattern := range v.patterns {
			if pattern.MatchString(val) {
				return &Verdict{
					Accepted: false,
					Reason:   ReasonUnsafeParameter,
					Detail:   fmt.Sprintf("parameter %q matches forbidden pattern %s", name, pattern),
				}
			}
		}

	case map[string]interface{}:
		for k, nested := range val {
			if verdict := v.checkValue(name+"."+k, nested); verdict != nil {
				return verdict
			}
		}

	case []interface{}:
		for _, nested := range val {
			if verdict := v.checkValue(name, nested); verdict != nil {
				return verdict
			}
		}
	}

	return nil
}
