// Package agent implements the courtroom participants that argue a case.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/internal/persona"
	"github.com/alienxp03/courtroom/internal/search"
	"github.com/alienxp03/courtroom/provider"
)

// Options tune an agent beyond its persona defaults.
type Options struct {
	// Model overrides the provider's default model.
	Model string

	// Temperature overrides the persona's default temperature.
	Temperature *float32

	// Searcher fetches evidence. Nil disables evidence lookups.
	Searcher search.Searcher

	// Depth and MaxResults shape the evidence query.
	Depth      search.Depth
	MaxResults int

	Logger *slog.Logger
}

// Agent is one of the four advocates: it renders its persona's template
// around the case and the opponent's last statement and returns the model
// text verbatim.
type Agent struct {
	persona     persona.Persona
	provider    provider.Provider
	searcher    search.Searcher
	model       string
	temperature float32
	depth       search.Depth
	maxResults  int
	logger      *slog.Logger
}

// New binds a persona to a provider.
func New(p persona.Persona, prov provider.Provider, opts Options) *Agent {
	temp := p.Temperature
	if opts.Temperature != nil {
		temp = *opts.Temperature
	}
	depth := opts.Depth
	if depth == "" {
		depth = search.DepthAdvanced
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = search.DefaultMaxResults
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		persona:     p,
		provider:    prov,
		searcher:    opts.Searcher,
		model:       opts.Model,
		temperature: temp,
		depth:       depth,
		maxResults:  maxResults,
		logger:      logger.With("role", p.Role),
	}
}

// Role returns the agent's role.
func (a *Agent) Role() core.Role {
	return a.persona.Role
}

// Persona returns a copy of the agent's persona.
func (a *Agent) Persona() persona.Persona {
	return a.persona
}

// ProviderName returns the name of the bound provider.
func (a *Agent) ProviderName() string {
	return a.provider.Name()
}

// Model returns the configured model override, if any.
func (a *Agent) Model() string {
	return a.model
}

// Produce argues one turn. It never fails: a missing summary or a failed
// model call comes back as text prefixed with core.ErrorMarker.
func (a *Agent) Produce(ctx context.Context, caseSummary, opponentContext string) string {
	if strings.TrimSpace(caseSummary) == "" {
		err := &core.ValidationError{Field: "case summary", Message: "must not be empty"}
		a.logger.Warn("Refusing turn without case summary")
		return core.ErrorText(a.persona.Label, err)
	}

	evidence := Evidence(ctx, a.searcher, a.query(), a.logger)

	prompt, err := a.persona.Render(persona.Input{
		Evidence: evidence,
		Case:     caseSummary,
		Context:  a.persona.ContextOrPlaceholder(opponentContext),
	})
	if err != nil {
		a.logger.Error("Failed to build prompt", "error", err)
		return core.ErrorText(a.persona.Label, err)
	}

	a.logger.Debug("Producing turn", "provider", a.provider.Name(), "evidence_len", len(evidence))
	resp, err := a.provider.Execute(ctx, &provider.Request{
		System:      a.persona.SystemPrompt,
		Prompt:      prompt,
		Model:       a.model,
		Temperature: provider.Float32(a.temperature),
	})
	if err != nil {
		genErr := &core.GenerationError{Role: a.persona.Role, Err: err}
		a.logger.Error("Turn generation failed", "error", genErr)
		return core.ErrorText(a.persona.Label, err)
	}
	return resp.Content
}

func (a *Agent) query() search.Query {
	return search.Query{Text: a.persona.EvidenceQuery, Depth: a.depth, MaxResults: a.maxResults}
}

// Evidence runs q against s and formats the snippets. A nil searcher, an
// empty query or a failed search all yield an empty block.
func Evidence(ctx context.Context, s search.Searcher, q search.Query, logger *slog.Logger) string {
	if s == nil || q.Text == "" {
		return ""
	}
	snippets, err := s.Search(ctx, q)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("Search failed, continuing without evidence", "error", &core.SearchError{Query: q.Text, Err: err})
		return ""
	}
	return search.Format(snippets)
}

// String implements fmt.Stringer for logs.
func (a *Agent) String() string {
	return fmt.Sprintf("%s (%s)", a.persona.Name, a.provider.Name())
}
