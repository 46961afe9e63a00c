// Package retry implements an exponential-backoff retry helper whose
// DefaultPolicy carries the provider_transient constants (spec §4.4d, §7).
// No other package in agentrt calls it; the providers retry on their own.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Policy parameterizes exponential backoff with jitter.
type Policy struct {
	BaseMs  float64
	Factor  float64
	MaxMs   float64
	Jitter  float64 // 0.0-1.0, applied as +/- around the computed delay
	Attempts int
}

// DefaultPolicy is spec §7's provider_transient policy: base 200ms, factor 2,
// 5 attempts, jitter +/-20%.
func DefaultPolicy() Policy {
	return Policy{BaseMs: 200, Factor: 2, MaxMs: 10000, Jitter: 0.2, Attempts: 5}
}

// ComputeDelay returns the backoff duration for a 1-indexed attempt number,
// using randomValue (expected in [0,1)) for the jitter term so callers can
// pass a fixed value in tests.
func ComputeDelay(p Policy, attempt int, randomValue float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := p.BaseMs * math.Pow(p.Factor, exp)
	// jitter is +/- Jitter fraction of base, not one-sided
	spread := base * p.Jitter * (2*randomValue - 1)
	total := math.Min(p.MaxMs, math.Max(0, base+spread))
	return time.Duration(math.Round(total)) * time.Millisecond
}

func computeDelay(p Policy, attempt int) time.Duration {
	return ComputeDelay(p, attempt, rand.Float64()) //nolint:gosec // jitter, not security sensitive
}
