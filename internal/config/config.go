// Package config loads agentrt's YAML configuration surface (spec §6
// "Configuration surface"), grounded on the teacher's
// internal/config.Config: a root struct with nested structs per concern,
// defaults applied post-unmarshal, then validated.
package config

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Loop    LoopConfig    `yaml:"loop"`
	Noise   NoiseConfig   `yaml:"noise"`
	Budget  BudgetConfig  `yaml:"budget"`
	Auth    AuthConfig    `yaml:"auth"`
	Swarm   SwarmConfig   `yaml:"swarm"`
	Session SessionConfig `yaml:"session"`
	Tools   ToolsConfig   `yaml:"tools"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP surface's listen address.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
}

// LLMConfig selects the default provider/model pair and per-provider
// credentials consumed by internal/providers.
type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	DefaultModel    string                        `yaml:"default_model"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`
}

// LLMProviderConfig configures one concrete vendor adapter.
type LLMProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// LoopConfig configures the Agent Loop (spec §4.4).
type LoopConfig struct {
	MaxIterations   int `yaml:"max_iterations"`
	MaxTokens       int `yaml:"max_tokens"`
	ResponseReserve int `yaml:"response_reserve"`
}

// NoiseConfig configures the Noise Filter (spec §4.2).
type NoiseConfig struct {
	Threshold float64 `yaml:"noise_threshold"`
}

// BudgetConfig configures the Budget & Safety Gate (spec §4.9).
type BudgetConfig struct {
	DailyLimitUSD  float64 `yaml:"daily_limit_usd"`
	MonthlyLimitUSD float64 `yaml:"monthly_limit_usd"`
	PerCallLimitUSD float64 `yaml:"per_call_limit_usd"`
}

// AuthConfig configures the HTTP surface's authentication layer (spec §6
// "Authentication").
type AuthConfig struct {
	RequireAuth  bool   `yaml:"require_auth"`
	SharedSecret string `yaml:"shared_secret"`
}

// SwarmConfig configures the Swarm Orchestrator (spec §4.10).
type SwarmConfig struct {
	MaxConcurrentSwarms  int `yaml:"max_concurrent_swarms"`
	MaxAgentsPerSwarm    int `yaml:"max_agents_per_swarm"`
	DefaultTimeoutMS     int `yaml:"swarm_default_timeout_ms"`
}

// SessionConfig configures the Session Registry (spec §4.3).
type SessionConfig struct {
	IdleSessionTTLMS int `yaml:"idle_session_ttl_ms"`
	MaxSessions      int `yaml:"max_sessions"`
}

// ToolsConfig configures the Tool Registry's filesystem/shell sandboxing
// (spec §6 "Tool allow-paths, tool deny-commands").
type ToolsConfig struct {
	AllowPaths    []string `yaml:"allow_paths"`
	DenyCommands  []string `yaml:"deny_commands"`
	TimeoutMS     int      `yaml:"timeout_ms"`
}

// LoggingConfig configures log/slog's handler selection (SPEC_FULL.md §2
// "Logging").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
