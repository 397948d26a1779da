// Package judge decides when a trial is ready and renders the verdict.
package judge

import (
	"context"
	"log/slog"

	"github.com/alienxp03/courtroom/internal/agent"
	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/internal/persona"
	"github.com/alienxp03/courtroom/internal/search"
	"github.com/alienxp03/courtroom/provider"
)

// Options configure a Judge.
type Options struct {
	Model       string
	Temperature *float32

	// Searcher runs the fact check before deliberation. Nil skips it.
	Searcher search.Searcher

	// Policy decides readiness. Nil means RoundCountPolicy{MinRounds: 1}.
	Policy ReadinessPolicy

	// Scorecard enables the structured score after the verdict.
	Scorecard bool

	Logger *slog.Logger
}

// Judge weighs the briefs and rules.
type Judge struct {
	persona     persona.Persona
	provider    provider.Provider
	searcher    search.Searcher
	policy      ReadinessPolicy
	model       string
	temperature float32
	scorecard   bool
	logger      *slog.Logger
}

// New binds the judge persona to a provider.
func New(prov provider.Provider, opts Options) *Judge {
	p := *persona.Get(core.RoleJudge)
	temp := p.Temperature
	if opts.Temperature != nil {
		temp = *opts.Temperature
	}
	policy := opts.Policy
	if policy == nil {
		policy = RoundCountPolicy{MinRounds: 1}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Judge{
		persona:     p,
		provider:    prov,
		searcher:    opts.Searcher,
		policy:      policy,
		model:       opts.Model,
		temperature: temp,
		scorecard:   opts.Scorecard,
		logger:      logger.With("role", core.RoleJudge),
	}
}

// Persona returns a copy of the judge's persona.
func (j *Judge) Persona() persona.Persona {
	return j.persona
}

// Policy returns the readiness policy in use.
func (j *Judge) Policy() ReadinessPolicy {
	return j.policy
}

// ScoringEnabled reports whether Score should be called after Deliberate.
func (j *Judge) ScoringEnabled() bool {
	return j.scorecard
}

// HasSufficientEvidence reports whether the court can rule on b.
func (j *Judge) HasSufficientEvidence(ctx context.Context, b core.Briefs) bool {
	ready := j.policy.Ready(ctx, b)
	j.logger.Debug("Readiness evaluated", "policy", j.policy.Name(), "rounds", b.Rounds, "ready", ready)
	return ready
}

// Deliberate renders the verdict text from all four transcripts. Failures
// come back as error text.
func (j *Judge) Deliberate(ctx context.Context, caseSummary string, b core.Briefs) string {
	evidence := agent.Evidence(ctx, j.searcher, search.Query{
		Text:       j.persona.EvidenceQuery,
		Depth:      search.DepthAdvanced,
		MaxResults: search.DefaultMaxResults,
	}, j.logger)

	prompt, err := j.persona.Render(persona.VerdictInput{
		Evidence:            evidence,
		Case:                caseSummary,
		DefenseBrief:        b.Defense,
		ProsecutionBrief:    b.Prosecution,
		DefenseStrategy:     b.DefenseStrategy,
		ProsecutionStrategy: b.ProsecutionStrategy,
	})
	if err != nil {
		j.logger.Error("Failed to build prompt", "error", err)
		return core.ErrorText(j.persona.Label, err)
	}

	j.logger.Info("Deliberating", "rounds", b.Rounds, "provider", j.provider.Name())
	resp, err := j.provider.Execute(ctx, &provider.Request{
		System:      j.persona.SystemPrompt,
		Prompt:      prompt,
		Model:       j.model,
		Temperature: provider.Float32(j.temperature),
	})
	if err != nil {
		j.logger.Error("Deliberation failed", "error", &core.GenerationError{Role: core.RoleJudge, Err: err})
		return core.ErrorText(j.persona.Label, err)
	}
	return resp.Content
}
