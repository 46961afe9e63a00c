package classifier

import (
	"context"
	"time"

	"github.com/haasonsaas/agentrt/pkg/models"
)

// Escalator is the optional secondary-tier re-scorer spec §4.2 allows when a
// deterministic Weight falls within the uncertainty band around the
// threshold. Implementers may omit it entirely; NoiseFilter treats a nil
// Escalator as "tier not present".
type Escalator interface {
	// Rescore returns a refined weight for sig, or an error if the
	// escalation call failed or exceeded its own timeout. On error, callers
	// must fall back to sig.Weight.
	Rescore(ctx context.Context, sig models.Signal) (float64, error)
}

// FilterConfig configures the Noise Filter.
type FilterConfig struct {
	// Threshold is the noise_threshold (spec default 0.3).
	Threshold float64

	// UncertaintyBand is delta in spec §4.2's [threshold-delta, threshold+delta].
	// Zero disables escalation even if Escalator is set.
	UncertaintyBand float64

	// EscalationTimeout bounds the optional secondary-tier call (spec: <= 300ms).
	EscalationTimeout time.Duration

	Escalator Escalator
}

// DefaultFilterConfig returns the spec's defaults with escalation disabled.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Threshold:         DefaultNoiseThreshold,
		UncertaintyBand:   0,
		EscalationTimeout: 300 * time.Millisecond,
	}
}

// NoiseFilter is the stateless guard in front of the Session Registry
// (spec §4.2). It never mutates state and never calls a provider unless an
// Escalator is configured and the Signal falls in the uncertainty band.
type NoiseFilter struct {
	cfg FilterConfig
}

// NewNoiseFilter constructs a NoiseFilter from cfg, applying the spec default
// threshold when cfg.Threshold is zero.
func NewNoiseFilter(cfg FilterConfig) *NoiseFilter {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultNoiseThreshold
	}
	if cfg.EscalationTimeout <= 0 {
		cfg.EscalationTimeout = 300 * time.Millisecond
	}
	return &NoiseFilter{cfg: cfg}
}

// Decision is the outcome of running a Signal through the Noise Filter.
type Decision struct {
	Pass   bool
	Signal models.Signal
}

// Apply runs the filter. When an Escalator is configured and the Signal's
// deterministic weight lands within [threshold-band, threshold+band], the
// Escalator is consulted and its result takes precedence unless it errors or
// times out, in which case the deterministic weight is used as-is (spec
// §4.2 fallback-on-timeout rule).
func (f *NoiseFilter) Apply(ctx context.Context, sig models.Signal) Decision {
	weight := sig.Weight

	if f.cfg.Escalator != nil && f.cfg.UncertaintyBand > 0 {
		lo := f.cfg.Threshold - f.cfg.UncertaintyBand
		hi := f.cfg.Threshold + f.cfg.UncertaintyBand
		if weight >= lo && weight <= hi {
			escCtx, cancel := context.WithTimeout(ctx, f.cfg.EscalationTimeout)
			rescored, err := f.cfg.Escalator.Rescore(escCtx, sig)
			cancel()
			if err == nil {
				weight = clamp01(rescored)
			}
		}
	}

	sig.Weight = weight
	return Decision{Pass: weight >= f.cfg.Threshold, Signal: sig}
}
