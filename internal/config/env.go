package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alienxp03/courtroom/internal/core"
)

// LoadEnv reads a .env file and returns a map of key-value pairs.
func LoadEnv(path string) (map[string]string, error) {
	return godotenv.Read(path)
}

// Environment merges the .env file at path (if any) with the process
// environment. Process variables win, matching godotenv.Load.
func Environment(path string) map[string]string {
	env, err := LoadEnv(path)
	if err != nil {
		env = make(map[string]string)
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// ApplyEnvOverrides updates the configuration based on environment variables.
func ApplyEnvOverrides(cfg *Config, env map[string]string) {
	// Server
	if val, ok := env["SERVER_PORT"]; ok {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}

	if val, ok := env["COURTROOM_MOCK"]; ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Mock = b
		}
	}

	// Judge
	if val, ok := env["COURTROOM_READINESS"]; ok && val != "" {
		cfg.Judge.Readiness = val
	}
	if val, ok := env["COURTROOM_MIN_ROUNDS"]; ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Judge.MinRounds = n
		}
	}
	if val, ok := env["COURTROOM_SCORECARD"]; ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Judge.Scorecard = b
		}
	}

	// Timeouts
	if d, ok := parseTimeout(env["GENERATION_TIMEOUT"]); ok {
		cfg.Timeouts.Generation = d
	}
	if d, ok := parseTimeout(env["SEARCH_TIMEOUT"]); ok {
		cfg.Timeouts.Search = d
	}

	// Per-role bindings, e.g. ROLE_JUDGE_PROVIDER=gemini
	for _, role := range core.Roles {
		prefix := "ROLE_" + strings.ToUpper(string(role)) + "_"
		rc := cfg.Roles[role]
		if val, ok := env[prefix+"PROVIDER"]; ok && val != "" {
			rc.Provider = val
		}
		if val, ok := env[prefix+"MODEL"]; ok {
			rc.Model = val
		}
		if val, ok := env[prefix+"KEY_ENV"]; ok && val != "" {
			rc.KeyEnv = val
		}
		cfg.Roles[role] = rc
	}
}

// parseTimeout accepts whole seconds or a Go duration string.
func parseTimeout(val string) (time.Duration, bool) {
	if val == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(val); err == nil {
		return time.Duration(seconds) * time.Second, true
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d, true
	}
	return 0, false
}
