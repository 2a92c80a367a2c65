package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/forecastnet/roundcast/internal/protocol"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is the runtime configuration shared by every roundcast process.
// Rounds and Events must be identical across processes or announcements are
// never delivered.
type Config struct {
	Redis     RedisConfig     `yaml:"redis"`
	Rounds    int             `yaml:"rounds"`
	Events    []string        `yaml:"events"`
	Agent     AgentConfig     `yaml:"agent"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Moderator ModeratorConfig `yaml:"moderator"`
	Seed      SeedConfig      `yaml:"seed"`
	Log       LogConfig       `yaml:"log"`
}

// RedisConfig locates the broker. URL wins over Addr when both are set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	URL      string `yaml:"url,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Password string `yaml:"password,omitempty"`
}

type AgentConfig struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label,omitempty"`
	// IDs runs several agents in one process when set.
	IDs        []string      `yaml:"ids,omitempty"`
	RoundDelay time.Duration `yaml:"round_delay"`
}

type OracleConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model,omitempty"`
	BaseURL   string        `yaml:"base_url,omitempty"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	// APIKey is only read from the environment.
	APIKey string `yaml:"-"`
}

type ModeratorConfig struct {
	StartDelay    time.Duration `yaml:"start_delay,omitempty"`
	RoundInterval time.Duration `yaml:"round_interval,omitempty"`
}

type SeedConfig struct {
	File string `yaml:"file,omitempty"`
}

type LogConfig struct {
	File  string `yaml:"file,omitempty"`
	Debug bool   `yaml:"debug,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Rounds: protocol.DefaultRoundCount,
		Events: protocol.DefaultEvents(),
		Agent: AgentConfig{
			ID:         "agent_1",
			RoundDelay: 2 * time.Second,
		},
		Oracle: OracleConfig{
			Provider:  ProviderOpenAI,
			MaxTokens: protocol.DefaultMaxTokens,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, a .env file in the working directory and the process environment,
// in that order of precedence (environment wins).
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("REDIS_URL", &c.Redis.URL)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("ROUNDCAST_AGENT_ID", &c.Agent.ID)
	str("ROUNDCAST_ORACLE", &c.Oracle.Provider)
	str("ROUNDCAST_MODEL", &c.Oracle.Model)
	str("OPENAI_BASE_URL", &c.Oracle.BaseURL)
	str("ROUNDCAST_LOG_FILE", &c.Log.File)
	str("ROUNDCAST_SEED_FILE", &c.Seed.File)

	if v, ok := lookup("ROUNDCAST_AGENT_IDS"); ok && v != "" {
		c.Agent.IDs = nil
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				c.Agent.IDs = append(c.Agent.IDs, id)
			}
		}
	}
	if v, ok := lookup("ROUNDCAST_ROUNDS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ROUNDCAST_ROUNDS must be an integer: %w", err)
		}
		c.Rounds = n
	}
	if v, ok := lookup("ROUNDCAST_DEBUG"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ROUNDCAST_DEBUG must be a boolean: %w", err)
		}
		c.Log.Debug = b
	}

	switch c.Oracle.Provider {
	case ProviderGemini:
		str("GEMINI_API_KEY", &c.Oracle.APIKey)
	default:
		str("OPENAI_API_KEY", &c.Oracle.APIKey)
	}
	return nil
}

// Validate checks that the configuration is usable. It does not require an
// oracle key; only agents need one (see RequireOracleKey).
func (c *Config) Validate() error {
	if c.Redis.URL == "" && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if c.Rounds <= 0 {
		return fmt.Errorf("rounds must be positive, got %d", c.Rounds)
	}
	if len(c.Events) == 0 {
		return fmt.Errorf("at least one event is required")
	}
	for i, e := range c.Events {
		if strings.TrimSpace(e) == "" {
			return fmt.Errorf("event %d is empty", i)
		}
	}
	seen := make(map[string]bool)
	for _, id := range c.AgentIDs() {
		if id == "" {
			return fmt.Errorf("agent id cannot be empty")
		}
		if seen[id] {
			return fmt.Errorf("duplicate agent id '%s'", id)
		}
		seen[id] = true
	}
	if len(c.Agent.IDs) > 1 && c.Agent.Label != "" {
		return fmt.Errorf("agent label cannot be shared by several agent ids")
	}
	if c.Agent.RoundDelay < 0 || c.Moderator.StartDelay < 0 || c.Moderator.RoundInterval < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	switch c.Oracle.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported oracle provider: %s (expected: %s or %s)", c.Oracle.Provider, ProviderOpenAI, ProviderGemini)
	}
	if c.Oracle.MaxTokens <= 0 {
		return fmt.Errorf("oracle max_tokens must be positive")
	}
	return nil
}

// RequireOracleKey fails when the provider's API key is missing.
func (c *Config) RequireOracleKey() error {
	if c.Oracle.APIKey != "" {
		return nil
	}
	if c.Oracle.Provider == ProviderGemini {
		return fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	return fmt.Errorf("OPENAI_API_KEY environment variable not set")
}

// AgentIDs lists the identities this process plays.
func (c *Config) AgentIDs() []string {
	if len(c.Agent.IDs) > 0 {
		return c.Agent.IDs
	}
	return []string{c.Agent.ID}
}

// RedisOptions turns the broker settings into client options.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.Redis.URL != "" {
		opts, err := redis.ParseURL(c.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: c.Redis.Addr, DB: c.Redis.DB, Password: c.Redis.Password}, nil
}

// RoundLayout builds the shared round layout.
func (c *Config) RoundLayout() (protocol.Rounds, error) {
	return protocol.NewRounds(c.Rounds, c.Events, nil)
}
