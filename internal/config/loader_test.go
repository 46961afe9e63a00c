package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agentrt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  default_provider: anthropic
  providers:
    anthropic:
      api_key: test-key
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Loop.MaxIterations)
	assert.Equal(t, 128000, cfg.Loop.MaxTokens)
	assert.Equal(t, 4096, cfg.Loop.ResponseReserve)
	assert.Equal(t, 0.3, cfg.Noise.Threshold)
	assert.Equal(t, 10, cfg.Swarm.MaxConcurrentSwarms)
	assert.Equal(t, 10, cfg.Swarm.MaxAgentsPerSwarm)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadRejectsUnauthedSharedSecretMismatch(t *testing.T) {
	path := writeConfig(t, `
llm:
  default_provider: anthropic
  providers:
    anthropic:
      api_key: test-key
auth:
  require_auth: true
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shared_secret")
}

func TestLoadRejectsMissingDefaultProvider(t *testing.T) {
	path := writeConfig(t, `
llm:
  default_provider: anthropic
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_provider")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
bogus_top_level_key: true
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesApplyAfterFileParse(t *testing.T) {
	path := writeConfig(t, `
llm:
  default_provider: anthropic
  providers:
    anthropic:
      api_key: file-key
`)
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.LLM.Providers["anthropic"].APIKey)
}
