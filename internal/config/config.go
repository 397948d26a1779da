// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/internal/judge"
	"github.com/alienxp03/courtroom/internal/search"
)

// Provider kinds a role may be bound to.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderMock   = "mock"
)

// Config represents the application configuration.
type Config struct {
	// Mock binds every role to the offline mock provider and disables search.
	Mock bool `yaml:"mock"`

	Roles     map[core.Role]RoleConfig  `yaml:"roles"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Judge     JudgeConfig               `yaml:"judge"`
	Search    SearchConfig              `yaml:"search"`
	Timeouts  TimeoutsConfig            `yaml:"timeouts"`
	Server    ServerConfig              `yaml:"server,omitempty"`
}

// RoleConfig binds one courtroom role to a provider account.
type RoleConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model,omitempty"`

	// KeyEnv names the environment variable holding this role's API key.
	KeyEnv string `yaml:"key_env"`

	// Temperature overrides the persona default when set.
	Temperature *float32 `yaml:"temperature,omitempty"`
}

// ProviderConfig holds provider-specific settings.
type ProviderConfig struct {
	BaseURL      string        `yaml:"base_url,omitempty"`
	DefaultModel string        `yaml:"default_model,omitempty"`
	Models       []string      `yaml:"models,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	MaxRetries   int           `yaml:"max_retries,omitempty"`
}

// JudgeConfig controls readiness and scoring.
type JudgeConfig struct {
	// Readiness is "rounds" (deterministic) or "model".
	Readiness string `yaml:"readiness"`
	MinRounds int    `yaml:"min_rounds"`
	Scorecard bool   `yaml:"scorecard"`
}

// SearchConfig configures the evidence search service.
type SearchConfig struct {
	KeyEnv     string       `yaml:"key_env"`
	BaseURL    string       `yaml:"base_url,omitempty"`
	Depth      search.Depth `yaml:"depth"`
	MaxResults int          `yaml:"max_results"`
	CacheSize  int          `yaml:"cache_size"`
}

// TimeoutsConfig bounds external calls.
type TimeoutsConfig struct {
	Generation time.Duration `yaml:"generation"`
	Search     time.Duration `yaml:"search"`
}

// ServerConfig holds server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns the default configuration: advocates on Gemini,
// strategists and judge on Groq, each with its own account.
func Default() *Config {
	return &Config{
		Roles: map[core.Role]RoleConfig{
			core.RoleDefenseAttorney:       {Provider: ProviderGemini, KeyEnv: "GEMINI_API_KEY1"},
			core.RoleProsecutor:            {Provider: ProviderGemini, KeyEnv: "GEMINI_API_KEY2"},
			core.RoleDefenseStrategist:     {Provider: ProviderGroq, KeyEnv: "GROQ_API_KEY1"},
			core.RoleProsecutionStrategist: {Provider: ProviderGroq, KeyEnv: "GROQ_API_KEY2"},
			core.RoleJudge:                 {Provider: ProviderGroq, KeyEnv: "GROQ_API_KEY3"},
			core.RoleClerk:                 {Provider: ProviderGemini, KeyEnv: "GEMINI_API_KEY"},
		},
		Providers: map[string]ProviderConfig{
			ProviderGemini: {
				DefaultModel: "gemini-2.5-flash-lite",
				Models:       []string{"gemini-2.5-flash-lite", "gemini-2.5-flash", "gemini-2.5-pro"},
				MaxRetries:   1,
			},
			ProviderGroq: {
				DefaultModel: "llama-3.3-70b-versatile",
				Models:       []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
				MaxRetries:   1,
			},
		},
		Judge: JudgeConfig{
			Readiness: judge.PolicyRounds,
			MinRounds: 1,
			Scorecard: false,
		},
		Search: SearchConfig{
			KeyEnv:     "TAVILY_API_KEY",
			Depth:      search.DepthAdvanced,
			MaxResults: search.DefaultMaxResults,
			CacheSize:  search.DefaultCacheSize,
		},
		Timeouts: TimeoutsConfig{
			Generation: 45 * time.Second,
			Search:     search.DefaultTimeout,
		},
		Server: ServerConfig{
			Port: 8182,
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from a specific path and applies overrides
// from .env and the process environment.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file, proceed with defaults
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Merge with defaults for any missing roles or providers
	defaultCfg := Default()
	if cfg.Roles == nil {
		cfg.Roles = map[core.Role]RoleConfig{}
	}
	for role, def := range defaultCfg.Roles {
		rc, exists := cfg.Roles[role]
		if !exists {
			cfg.Roles[role] = def
			continue
		}
		// A partially specified role keeps its default account.
		if rc.Provider == "" {
			rc.Provider = def.Provider
		}
		if rc.KeyEnv == "" && rc.Provider == def.Provider {
			rc.KeyEnv = def.KeyEnv
		}
		cfg.Roles[role] = rc
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	for name, pc := range defaultCfg.Providers {
		if _, exists := cfg.Providers[name]; !exists {
			cfg.Providers[name] = pc
		}
	}

	ApplyEnvOverrides(cfg, Environment(".env"))

	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// check rejects settings that can never work, independent of credentials.
func (c *Config) check() error {
	for role, rc := range c.Roles {
		if !role.Valid() {
			return &core.ConfigurationError{Message: fmt.Sprintf("unknown role %q", role)}
		}
		switch rc.Provider {
		case ProviderGemini, ProviderGroq, ProviderMock:
		default:
			return &core.ConfigurationError{Message: fmt.Sprintf("role %s: unknown provider %q", role, rc.Provider)}
		}
		if t := rc.Temperature; t != nil && (*t < 0 || *t > 1) {
			return &core.ConfigurationError{Message: fmt.Sprintf("role %s: temperature %.2f outside 0.0-1.0", role, *t)}
		}
	}
	switch c.Judge.Readiness {
	case "", judge.PolicyRounds, judge.PolicyModel:
	default:
		return &core.ConfigurationError{Message: fmt.Sprintf("unknown readiness policy %q", c.Judge.Readiness)}
	}
	switch c.Search.Depth {
	case "", search.DepthBasic, search.DepthAdvanced:
	default:
		return &core.ConfigurationError{Message: fmt.Sprintf("unknown search depth %q", c.Search.Depth)}
	}
	return nil
}

// Validate reports every credential missing from env, and every hosted
// role that names no credential at all. Mock mode needs none.
func (c *Config) Validate(env map[string]string) error {
	if c.Mock {
		return nil
	}

	seen := map[string]bool{}
	var missing []string
	need := func(key string) {
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		if env[key] == "" {
			missing = append(missing, key)
		}
	}

	for _, role := range core.Roles {
		rc := c.Roles[role]
		if rc.Provider == ProviderMock {
			continue
		}
		if strings.TrimSpace(rc.KeyEnv) == "" {
			// A role bound to a hosted provider without naming its key.
			missing = append(missing, fmt.Sprintf("roles.%s.key_env", role))
			continue
		}
		need(rc.KeyEnv)
	}
	need(c.Search.KeyEnv)

	if len(missing) > 0 {
		sort.Strings(missing)
		return &core.ConfigurationError{Missing: missing}
	}
	return nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo saves the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "courtroom.yaml"
	}
	return filepath.Join(home, ".courtroom", "config.yaml")
}

// GenerateExample generates an example configuration file.
func GenerateExample() string {
	example := `# courtroom configuration file
# Place this file at ~/.courtroom/config.yaml
# API keys are never stored here; each role names the environment
# variable (or .env entry) that holds its key.

mock: false                 # true = offline mock provider, no search

roles:
  defense_attorney:
    provider: gemini
    key_env: GEMINI_API_KEY1
  prosecutor:
    provider: gemini
    key_env: GEMINI_API_KEY2
  defense_strategist:
    provider: groq
    key_env: GROQ_API_KEY1
    temperature: 0.4
  prosecution_strategist:
    provider: groq
    key_env: GROQ_API_KEY2
  judge:
    provider: groq
    model: llama-3.3-70b-versatile
    key_env: GROQ_API_KEY3
  clerk:
    provider: gemini
    key_env: GEMINI_API_KEY

providers:
  gemini:
    default_model: gemini-2.5-flash-lite
    max_retries: 1          # Retries after a transient failure (negative = none)
  groq:
    default_model: llama-3.3-70b-versatile
    timeout: 45s

judge:
  readiness: rounds         # rounds (deterministic) or model
  min_rounds: 1
  scorecard: false          # Ask for a structured score after the verdict

search:
  key_env: TAVILY_API_KEY
  depth: advanced           # basic or advanced
  max_results: 3
  cache_size: 128

timeouts:
  generation: 45s
  search: 15s

server:
  port: 8182
`
	return example
}
