package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/internal/judge"
	"github.com/alienxp03/courtroom/internal/search"
)

func fullEnv() map[string]string {
	return map[string]string{
		"GEMINI_API_KEY":  "g0",
		"GEMINI_API_KEY1": "g1",
		"GEMINI_API_KEY2": "g2",
		"GROQ_API_KEY1":   "q1",
		"GROQ_API_KEY2":   "q2",
		"GROQ_API_KEY3":   "q3",
		"TAVILY_API_KEY":  "t",
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(fullEnv()); err != nil {
		t.Fatalf("unexpected error with all keys: %v", err)
	}

	env := fullEnv()
	delete(env, "GROQ_API_KEY3")
	delete(env, "TAVILY_API_KEY")
	env["GEMINI_API_KEY1"] = ""

	err := cfg.Validate(env)
	var cerr *core.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	want := []string{"GEMINI_API_KEY1", "GROQ_API_KEY3", "TAVILY_API_KEY"}
	if !reflect.DeepEqual(cerr.Missing, want) {
		t.Errorf("missing = %v, want %v", cerr.Missing, want)
	}

	unkeyed := Default()
	unkeyed.Roles[core.RoleClerk] = RoleConfig{Provider: ProviderGroq}
	err = unkeyed.Validate(fullEnv())
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError for unkeyed role, got %v", err)
	}
	if !reflect.DeepEqual(cerr.Missing, []string{"roles.clerk.key_env"}) {
		t.Errorf("missing = %v, want [roles.clerk.key_env]", cerr.Missing)
	}
}

func TestValidateMock(t *testing.T) {
	cfg := Default()
	cfg.Mock = true
	if err := cfg.Validate(map[string]string{}); err != nil {
		t.Errorf("mock mode should need no keys: %v", err)
	}
}

func TestLoadFrom(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Judge.Readiness != judge.PolicyRounds {
			t.Errorf("expected default readiness, got %s", cfg.Judge.Readiness)
		}
		if len(cfg.Roles) != len(core.Roles) {
			t.Errorf("expected all roles bound, got %d", len(cfg.Roles))
		}
	})

	t.Run("PartialFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
judge:
  readiness: model
  min_rounds: 2
  scorecard: true
roles:
  judge:
    model: llama-3.1-8b-instant
timeouts:
  generation: 30s
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Judge.Readiness != judge.PolicyModel || cfg.Judge.MinRounds != 2 || !cfg.Judge.Scorecard {
			t.Errorf("judge not loaded: %+v", cfg.Judge)
		}
		j := cfg.Roles[core.RoleJudge]
		if j.Model != "llama-3.1-8b-instant" || j.Provider != ProviderGroq || j.KeyEnv != "GROQ_API_KEY3" {
			t.Errorf("judge role not merged with defaults: %+v", j)
		}
		if cfg.Roles[core.RoleProsecutor].KeyEnv != "GEMINI_API_KEY2" {
			t.Error("unlisted role lost its default")
		}
		if cfg.Timeouts.Generation.Seconds() != 30 {
			t.Errorf("expected 30s generation timeout, got %v", cfg.Timeouts.Generation)
		}
		if _, ok := cfg.Providers[ProviderGemini]; !ok {
			t.Error("default providers not merged")
		}
	})

	t.Run("BadValues", func(t *testing.T) {
		tests := []string{
			"judge:\n  readiness: vibes\n",
			"roles:\n  bailiff:\n    provider: groq\n",
			"roles:\n  judge:\n    provider: openai\n",
			"roles:\n  judge:\n    temperature: 1.5\n",
			"search:\n  depth: deep\n",
		}
		for _, content := range tests {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFrom(path)
			var cerr *core.ConfigurationError
			if !errors.As(err, &cerr) {
				t.Errorf("%q: expected ConfigurationError, got %v", content, err)
			}
		}
	})

	t.Run("RebindWithoutKey", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("roles:\n  clerk:\n    provider: groq\n"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Roles[core.RoleClerk].KeyEnv != "" {
			t.Fatalf("expected no inherited key for a new provider kind, got %q", cfg.Roles[core.RoleClerk].KeyEnv)
		}

		err = cfg.Validate(fullEnv())
		var cerr *core.ConfigurationError
		if !errors.As(err, &cerr) {
			t.Fatalf("expected ConfigurationError, got %v", err)
		}
		if !reflect.DeepEqual(cerr.Missing, []string{"roles.clerk.key_env"}) {
			t.Errorf("missing = %v", cerr.Missing)
		}

		if _, err := cfg.BuildCourt(context.Background(), fullEnv(), nil); !errors.As(err, &cerr) {
			t.Errorf("expected court assembly to refuse an unkeyed role, got %v", err)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		os.WriteFile(path, []byte("judge: [unclosed"), 0644)
		if _, err := LoadFrom(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Judge.MinRounds = 4

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Judge.MinRounds != 4 {
		t.Errorf("expected min_rounds 4, got %d", loaded.Judge.MinRounds)
	}
	if loaded.Timeouts.Generation != cfg.Timeouts.Generation {
		t.Errorf("timeout changed: %v", loaded.Timeouts.Generation)
	}
}

func TestGenerateExampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(GenerateExample()), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("example does not load: %v", err)
	}
	if cfg.Roles[core.RoleDefenseStrategist].Temperature == nil {
		t.Error("expected example temperature override")
	}
}

func TestBuildCourt(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingKeys", func(t *testing.T) {
		_, err := Default().BuildCourt(ctx, map[string]string{}, nil)
		var cerr *core.ConfigurationError
		if !errors.As(err, &cerr) {
			t.Fatalf("expected ConfigurationError, got %v", err)
		}
		if len(cerr.Missing) != 7 {
			t.Errorf("expected 7 missing keys, got %v", cerr.Missing)
		}
	})

	t.Run("Mock", func(t *testing.T) {
		cfg := Default()
		cfg.Mock = true
		court, err := cfg.BuildCourt(ctx, nil, nil)
		if err != nil {
			t.Fatalf("BuildCourt failed: %v", err)
		}
		if err := court.Cast.Validate(); err != nil {
			t.Errorf("incomplete cast: %v", err)
		}
		if _, ok := court.Searcher.(search.Nop); !ok {
			t.Errorf("expected Nop searcher, got %T", court.Searcher)
		}
		if names := court.Registry.Names(); len(names) != 1 || names[0] != "mock" {
			t.Errorf("expected one shared mock provider, got %v", names)
		}
	})

	t.Run("Live", func(t *testing.T) {
		cfg := Default()
		court, err := cfg.BuildCourt(ctx, fullEnv(), nil)
		if err != nil {
			t.Fatalf("BuildCourt failed: %v", err)
		}
		if got := len(court.Registry.Names()); got != 6 {
			t.Errorf("expected one generator per account, got %d", got)
		}
		if got := court.Registry.Binding(core.RoleJudge); got != "groq/GROQ_API_KEY3" {
			t.Errorf("unexpected judge binding %q", got)
		}
		if _, ok := court.Searcher.(*search.CachedSearcher); !ok {
			t.Errorf("expected cached searcher, got %T", court.Searcher)
		}
	})

	t.Run("SharedAccount", func(t *testing.T) {
		cfg := Default()
		rc := cfg.Roles[core.RoleClerk]
		rc.KeyEnv = "GEMINI_API_KEY1"
		cfg.Roles[core.RoleClerk] = rc

		court, err := cfg.BuildCourt(ctx, fullEnv(), nil)
		if err != nil {
			t.Fatalf("BuildCourt failed: %v", err)
		}
		if got := len(court.Registry.Names()); got != 5 {
			t.Errorf("expected clerk to share the defense account, got %d generators", got)
		}
		roles := court.Registry.Roles("gemini/GEMINI_API_KEY1")
		if !reflect.DeepEqual(roles, []core.Role{core.RoleDefenseAttorney, core.RoleClerk}) {
			t.Errorf("unexpected roles on shared account: %v", roles)
		}
	})

	t.Run("ModelPolicy", func(t *testing.T) {
		cfg := Default()
		cfg.Mock = true
		cfg.Judge.Readiness = judge.PolicyModel
		court, err := cfg.BuildCourt(ctx, nil, nil)
		if err != nil {
			t.Fatalf("BuildCourt failed: %v", err)
		}
		j, ok := court.Cast.Judge.(*judge.Judge)
		if !ok {
			t.Fatalf("unexpected judge type %T", court.Cast.Judge)
		}
		if j.Policy().Deterministic() {
			t.Error("expected model-backed policy")
		}
	})
}
