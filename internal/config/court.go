package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alienxp03/courtroom/internal/agent"
	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/internal/engine"
	"github.com/alienxp03/courtroom/internal/judge"
	"github.com/alienxp03/courtroom/internal/persona"
	"github.com/alienxp03/courtroom/internal/search"
	"github.com/alienxp03/courtroom/provider"
	"github.com/alienxp03/courtroom/provider/gemini"
	"github.com/alienxp03/courtroom/provider/groq"
)

// Court is everything a trial needs, built from a Config.
type Court struct {
	Cast engine.Cast

	// Registry records the generator bound to each role. Roles sharing an
	// account share a generator.
	Registry *provider.Registry

	Searcher search.Searcher
}

// BuildCourt validates credentials in env and wires generators, the
// searcher, the four advocates, the clerk and the judge. It fails fast with
// a ConfigurationError before any session can start.
func (c *Config) BuildCourt(ctx context.Context, env map[string]string, logger *slog.Logger) (*Court, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	if err := c.Validate(env); err != nil {
		return nil, err
	}

	court := &Court{Registry: provider.NewRegistry()}

	gens := make(map[core.Role]provider.Provider)
	for _, role := range core.Roles {
		p, err := c.createProvider(ctx, role, env)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider for %s: %w", role, err)
		}
		gens[role] = court.Registry.Bind(role, p)
	}

	srch, err := c.createSearcher(env)
	if err != nil {
		return nil, err
	}
	court.Searcher = srch

	advocate := func(role core.Role) engine.Advocate {
		rc := c.Roles[role]
		return agent.New(*persona.Get(role), gens[role], agent.Options{
			Model:       rc.Model,
			Temperature: rc.Temperature,
			Searcher:    srch,
			Depth:       c.Search.Depth,
			MaxResults:  c.Search.MaxResults,
			Logger:      logger,
		})
	}

	clerkCfg := c.Roles[core.RoleClerk]
	clerk := agent.NewClerk(gens[core.RoleClerk], agent.Options{
		Model:       clerkCfg.Model,
		Temperature: clerkCfg.Temperature,
		Logger:      logger,
	})

	judgeCfg := c.Roles[core.RoleJudge]
	policy, err := judge.NewPolicy(c.Judge.Readiness, c.Judge.MinRounds, gens[core.RoleJudge], judgeCfg.Model)
	if err != nil {
		return nil, &core.ConfigurationError{Message: err.Error()}
	}
	if mp, ok := policy.(*judge.ModelPolicy); ok {
		mp.Logger = logger
	}
	j := judge.New(gens[core.RoleJudge], judge.Options{
		Model:       judgeCfg.Model,
		Temperature: judgeCfg.Temperature,
		Searcher:    srch,
		Policy:      policy,
		Scorecard:   c.Judge.Scorecard,
		Logger:      logger,
	})

	court.Cast = engine.Cast{
		ProsecutionStrategist: advocate(core.RoleProsecutionStrategist),
		Prosecutor:            advocate(core.RoleProsecutor),
		DefenseStrategist:     advocate(core.RoleDefenseStrategist),
		DefenseAttorney:       advocate(core.RoleDefenseAttorney),
		Clerk:                 clerk,
		Judge:                 j,
	}

	logger.Info("Court assembled",
		"mock", c.Mock,
		"readiness", policy.Name(),
		"min_rounds", c.Judge.MinRounds,
		"providers", court.Registry.Names())
	return court, nil
}

// createProvider builds the generator for one role. Roles sharing a
// provider kind and key share a generator.
func (c *Config) createProvider(ctx context.Context, role core.Role, env map[string]string) (provider.Provider, error) {
	rc := c.Roles[role]
	kind := rc.Provider
	if c.Mock {
		kind = ProviderMock
	}

	if kind == ProviderMock {
		return provider.NewMockProvider(0), nil
	}

	pc := c.Providers[kind]
	timeout := pc.Timeout
	if timeout == 0 {
		timeout = c.Timeouts.Generation
	}
	cfg := provider.Config{
		Name:         kind + "/" + rc.KeyEnv,
		DisplayName:  fmt.Sprintf("%s (%s)", kind, rc.KeyEnv),
		APIKey:       env[rc.KeyEnv],
		BaseURL:      pc.BaseURL,
		DefaultModel: pc.DefaultModel,
		Models:       pc.Models,
		Timeout:      timeout,
		MaxRetries:   pc.MaxRetries,
	}

	switch kind {
	case ProviderGemini:
		return gemini.New(ctx, cfg)
	case ProviderGroq:
		return groq.New(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", kind)
	}
}

func (c *Config) createSearcher(env map[string]string) (search.Searcher, error) {
	if c.Mock {
		return search.Nop{}, nil
	}
	client := search.NewTavilyClient(env[c.Search.KeyEnv], c.Search.BaseURL, c.Timeouts.Search)
	cached, err := search.NewCachedSearcher(client, c.Search.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create search cache: %w", err)
	}
	return cached, nil
}
