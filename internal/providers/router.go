package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/agentrt/pkg/models"
)

// Target names a provider/model pair a Rule routes to.
type Target struct {
	Provider string
	Model    string
}

// Rule matches a Signal by mode and/or genre; an empty field matches any
// value. Rules are evaluated in order, first match wins (spec §4.11).
type Rule struct {
	Name   string
	Mode   models.Mode
	Genre  models.Genre
	Target Target
}

// Router selects a concrete LLMProvider and model for a classified Signal.
// Matching is pure: same Signal and same provider map always yield the same
// Target (testable property 12), so Router carries no per-request mutable
// health state, unlike the teacher's cooldown-tracking router.
type Router struct {
	providers       map[string]LLMProvider
	rules           []Rule
	defaultProvider string
	defaultModel    string
}

// RouterConfig configures a Router.
type RouterConfig struct {
	DefaultProvider string
	DefaultModel    string
	Rules           []Rule
}

// NewRouter builds a Router over a name->provider map.
func NewRouter(cfg RouterConfig, providers map[string]LLMProvider) *Router {
	return &Router{
		providers:       providers,
		rules:           cfg.Rules,
		defaultProvider: normalizeID(cfg.DefaultProvider),
		defaultModel:    cfg.DefaultModel,
	}
}

// SelectProvider returns the provider and model a Signal routes to. Falls
// back to the default provider when no rule matches or the matched
// provider isn't registered.
func (r *Router) SelectProvider(signal models.Signal) (LLMProvider, string) {
	for _, rule := range r.rules {
		if ruleMatches(rule, signal) {
			if p, ok := r.providers[normalizeID(rule.Target.Provider)]; ok {
				return p, rule.Target.Model
			}
		}
	}
	return r.providers[r.defaultProvider], r.defaultModel
}

// Complete routes req by classifying its system/signal metadata is not
// available here, so callers that already hold a Signal should call
// SelectProvider directly; Complete exists so Router itself satisfies
// LLMProvider and can be dropped in wherever a single provider is expected,
// always dispatching to the configured default.
func (r *Router) Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error) {
	p, ok := r.providers[r.defaultProvider]
	if !ok {
		return nil, fmt.Errorf("router: no default provider configured")
	}
	if req.Model == "" {
		req.Model = r.defaultModel
	}
	return p.Complete(ctx, req)
}

func (r *Router) Name() string { return "router:" + r.defaultProvider }

func (r *Router) Models() []Model {
	seen := make(map[string]struct{})
	var out []Model
	for _, p := range r.providers {
		for _, m := range p.Models() {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

func (r *Router) SupportsTools() bool {
	for _, p := range r.providers {
		if p.SupportsTools() {
			return true
		}
	}
	return false
}

func ruleMatches(rule Rule, signal models.Signal) bool {
	if rule.Mode != "" && rule.Mode != signal.Mode {
		return false
	}
	if rule.Genre != "" && rule.Genre != signal.Genre {
		return false
	}
	return rule.Mode != "" || rule.Genre != ""
}

func normalizeID(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
