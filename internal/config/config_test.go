package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecastnet/roundcast/internal/protocol"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"REDIS_URL", "REDIS_ADDR", "ROUNDCAST_AGENT_ID", "ROUNDCAST_AGENT_IDS", "ROUNDCAST_ORACLE",
		"ROUNDCAST_MODEL", "OPENAI_BASE_URL", "ROUNDCAST_LOG_FILE", "ROUNDCAST_SEED_FILE",
		"ROUNDCAST_ROUNDS", "ROUNDCAST_DEBUG", "OPENAI_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roundcast.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Rounds)
	assert.Equal(t, protocol.DefaultEvents(), cfg.Events)
	assert.Equal(t, []string{"agent_1"}, cfg.AgentIDs())
	assert.Equal(t, 2*time.Second, cfg.Agent.RoundDelay)
	assert.Equal(t, ProviderOpenAI, cfg.Oracle.Provider)
	assert.Equal(t, 250, cfg.Oracle.MaxTokens)
	assert.Error(t, cfg.RequireOracleKey())

	opts, err := cfg.RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	rounds, err := cfg.RoundLayout()
	require.NoError(t, err)
	assert.Equal(t, "forecast_event_2", rounds.EventChannel(2))
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
redis:
  addr: broker:6380
rounds: 5
events:
  - "Will it rain?"
agent:
  id: agent_7
  round_delay: 500ms
oracle:
  provider: gemini
  max_tokens: 100
moderator:
  start_delay: 3s
log:
  debug: true
`)
	t.Setenv("ROUNDCAST_ROUNDS", "4")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "o-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "broker:6380", cfg.Redis.Addr)
	assert.Equal(t, 4, cfg.Rounds)
	assert.Equal(t, []string{"Will it rain?"}, cfg.Events)
	assert.Equal(t, "agent_7", cfg.Agent.ID)
	assert.Equal(t, 500*time.Millisecond, cfg.Agent.RoundDelay)
	assert.Equal(t, 3*time.Second, cfg.Moderator.StartDelay)
	assert.Equal(t, ProviderGemini, cfg.Oracle.Provider)
	assert.Equal(t, "g-key", cfg.Oracle.APIKey)
	assert.True(t, cfg.Log.Debug)
	assert.NoError(t, cfg.RequireOracleKey())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "roundz: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roundz")
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://:secret@cache:6390/2")
	t.Setenv("ROUNDCAST_AGENT_IDS", "agent_1, agent_2,")
	t.Setenv("ROUNDCAST_DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"agent_1", "agent_2"}, cfg.AgentIDs())
	assert.True(t, cfg.Log.Debug)

	opts, err := cfg.RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "cache:6390", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)
}

func TestEnvParseErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROUNDCAST_ROUNDS", "three")
	_, err := Load("")
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("ROUNDCAST_DEBUG", "maybe")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no rounds", func(c *Config) { c.Rounds = 0 }, "rounds must be positive"},
		{"no events", func(c *Config) { c.Events = nil }, "at least one event"},
		{"blank event", func(c *Config) { c.Events = []string{" "} }, "event 0 is empty"},
		{"duplicate ids", func(c *Config) { c.Agent.IDs = []string{"agent_1", "agent_1"} }, "duplicate agent id"},
		{"shared label", func(c *Config) { c.Agent.IDs = []string{"agent_1", "agent_2"}; c.Agent.Label = "X" }, "label"},
		{"negative delay", func(c *Config) { c.Agent.RoundDelay = -time.Second }, "negative"},
		{"provider", func(c *Config) { c.Oracle.Provider = "llama" }, "unsupported oracle provider"},
		{"tokens", func(c *Config) { c.Oracle.MaxTokens = 0 }, "max_tokens"},
		{"redis", func(c *Config) { c.Redis = RedisConfig{} }, "redis address"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestInvalidRedisURL(t *testing.T) {
	cfg := Default()
	cfg.Redis.URL = "http://not-redis"
	_, err := cfg.RedisOptions()
	assert.Error(t, err)
}
