package judge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/provider"
)

// Policy names accepted by NewPolicy.
const (
	PolicyRounds = "rounds"
	PolicyModel  = "model"
)

// ReadinessPolicy decides whether the court has heard enough to rule.
// Implementations must not modify the briefs.
type ReadinessPolicy interface {
	Name() string
	Ready(ctx context.Context, b core.Briefs) bool

	// Deterministic reports whether Ready always gives the same answer
	// for the same briefs.
	Deterministic() bool
}

// RoundCountPolicy is ready once MinRounds rounds are recorded and both
// briefs carry text. Adding rounds never makes it unready.
type RoundCountPolicy struct {
	MinRounds int
}

// Name implements ReadinessPolicy.
func (p RoundCountPolicy) Name() string {
	return PolicyRounds
}

// Ready implements ReadinessPolicy.
func (p RoundCountPolicy) Ready(_ context.Context, b core.Briefs) bool {
	min := p.MinRounds
	if min < 1 {
		min = 1
	}
	return b.Rounds >= min &&
		strings.TrimSpace(b.Defense) != "" &&
		strings.TrimSpace(b.Prosecution) != ""
}

// Deterministic implements ReadinessPolicy.
func (p RoundCountPolicy) Deterministic() bool {
	return true
}

// ModelPolicy asks a model whether the briefs are sufficient. Answers vary
// between runs and any failure counts as "not ready". MinRounds still has
// to be met before the model is consulted.
type ModelPolicy struct {
	Provider  provider.Provider
	Model     string
	MinRounds int
	Logger    *slog.Logger
}

// Name implements ReadinessPolicy.
func (p *ModelPolicy) Name() string {
	return PolicyModel
}

// Deterministic implements ReadinessPolicy.
func (p *ModelPolicy) Deterministic() bool {
	return false
}

// Ready implements ReadinessPolicy.
func (p *ModelPolicy) Ready(ctx context.Context, b core.Briefs) bool {
	if !(RoundCountPolicy{MinRounds: p.MinRounds}).Ready(ctx, b) {
		return false
	}

	prompt := fmt.Sprintf(`You are the presiding judge reviewing an ongoing trial.

DEFENSE BRIEF:
%s

PROSECUTION BRIEF:
%s

Has each side presented enough argument and evidence for you to render a fair verdict now?

Answer with only YES or NO.`, b.Defense, b.Prosecution)

	resp, err := p.Provider.Execute(ctx, &provider.Request{
		Prompt:      prompt,
		Model:       p.Model,
		Temperature: provider.Float32(0),
	})
	if err != nil {
		logger := p.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("Readiness check failed, treating as not ready", "error", err)
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Content))
	answer = strings.TrimLeft(answer, "*_\"' ")
	return strings.HasPrefix(answer, "yes")
}

// NewPolicy builds a policy by name. The model policy needs prov.
func NewPolicy(name string, minRounds int, prov provider.Provider, model string) (ReadinessPolicy, error) {
	switch name {
	case "", PolicyRounds:
		return RoundCountPolicy{MinRounds: minRounds}, nil
	case PolicyModel:
		if prov == nil {
			return nil, fmt.Errorf("readiness policy %q requires a provider", name)
		}
		return &ModelPolicy{Provider: prov, Model: model, MinRounds: minRounds}, nil
	default:
		return nil, fmt.Errorf("unknown readiness policy: %s", name)
	}
}
