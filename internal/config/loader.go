package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/agentrt/internal/classifier"
	"github.com/haasonsaas/agentrt/internal/swarm"
	"github.com/haasonsaas/agentrt/internal/tools"
)

// Load reads and parses path, applies environment overrides, fills in
// spec-mandated defaults, and validates the result — grounded on the
// teacher's config.Load (read file, os.ExpandEnv, strict-decode, apply
// defaults, validate).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills every spec §6 "Configuration surface" default that
// was left unset.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9090
	}

	if cfg.LLM.DefaultProvider == "" {
		cfg.LLM.DefaultProvider = "anthropic"
	}

	if cfg.Loop.MaxIterations == 0 {
		cfg.Loop.MaxIterations = 20
	}
	if cfg.Loop.MaxTokens == 0 {
		cfg.Loop.MaxTokens = 128000
	}
	if cfg.Loop.ResponseReserve == 0 {
		cfg.Loop.ResponseReserve = 4096
	}

	if cfg.Noise.Threshold == 0 {
		cfg.Noise.Threshold = classifier.DefaultNoiseThreshold
	}

	if cfg.Swarm.MaxConcurrentSwarms == 0 {
		cfg.Swarm.MaxConcurrentSwarms = swarm.DefaultMaxConcurrentSwarms
	}
	if cfg.Swarm.MaxAgentsPerSwarm == 0 {
		cfg.Swarm.MaxAgentsPerSwarm = swarm.DefaultMaxAgentsPerSwarm
	}
	if cfg.Swarm.DefaultTimeoutMS == 0 {
		cfg.Swarm.DefaultTimeoutMS = int(swarm.DefaultTimeout / time.Millisecond)
	}

	if cfg.Session.IdleSessionTTLMS == 0 {
		cfg.Session.IdleSessionTTLMS = int(time.Hour / time.Millisecond)
	}

	if cfg.Tools.TimeoutMS == 0 {
		cfg.Tools.TimeoutMS = int(tools.DefaultTimeout / time.Millisecond)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// applyEnvOverrides lets deploy-time secrets and ports override the file
// without editing it, the way the teacher's NEXUS_*/DATABASE_URL/JWT_SECRET
// overrides do.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("AGENTRT_HOST")); v != "" {
		cfg.Server.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("AGENTRT_PORT")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("AGENTRT_SHARED_SECRET")); v != "" {
		cfg.Auth.SharedSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		setProviderKey(cfg, "anthropic", v)
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		setProviderKey(cfg, "openai", v)
	}
}

func setProviderKey(cfg *Config, provider, key string) {
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = make(map[string]LLMProviderConfig)
	}
	entry := cfg.LLM.Providers[provider]
	entry.APIKey = key
	cfg.LLM.Providers[provider] = entry
}

// ValidationError collects every config problem found, grounded on the
// teacher's ConfigValidationError ("report everything wrong in one pass").
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validate(cfg *Config) error {
	var issues []string

	if cfg.Loop.MaxIterations <= 0 {
		issues = append(issues, "loop.max_iterations must be > 0")
	}
	if cfg.Loop.MaxTokens <= cfg.Loop.ResponseReserve {
		issues = append(issues, "loop.max_tokens must exceed loop.response_reserve")
	}
	if cfg.Noise.Threshold < 0 || cfg.Noise.Threshold > 1 {
		issues = append(issues, "noise.noise_threshold must be between 0 and 1")
	}
	if cfg.Auth.RequireAuth && strings.TrimSpace(cfg.Auth.SharedSecret) == "" {
		issues = append(issues, "auth.shared_secret is required when auth.require_auth is true")
	}
	if cfg.Swarm.MaxConcurrentSwarms < 0 {
		issues = append(issues, "swarm.max_concurrent_swarms must be >= 0")
	}
	if cfg.Swarm.MaxAgentsPerSwarm <= 0 {
		issues = append(issues, "swarm.max_agents_per_swarm must be > 0")
	}
	if cfg.LLM.DefaultProvider != "" {
		if _, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; !ok {
			issues = append(issues, fmt.Sprintf("llm.providers is missing an entry for default_provider %q", cfg.LLM.DefaultProvider))
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
