package agent

import (
	"context"
	"log/slog"

	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/internal/persona"
	"github.com/alienxp03/courtroom/provider"
)

// Clerk turns the raw case text into the summary every agent argues from.
type Clerk struct {
	persona     persona.Persona
	provider    provider.Provider
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewClerk binds the clerk persona to a provider.
func NewClerk(prov provider.Provider, opts Options) *Clerk {
	p := *persona.Get(core.RoleClerk)
	temp := p.Temperature
	if opts.Temperature != nil {
		temp = *opts.Temperature
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Clerk{
		persona:     p,
		provider:    prov,
		model:       opts.Model,
		temperature: temp,
		logger:      logger.With("role", core.RoleClerk),
	}
}

// Persona returns a copy of the clerk's persona.
func (c *Clerk) Persona() persona.Persona {
	return c.persona
}

// Summarize extracts the key facts of caseText. On failure the returned
// summary is error text, so the trial can still proceed on a visible marker.
func (c *Clerk) Summarize(ctx context.Context, caseText string) string {
	prompt, err := c.persona.Render(persona.SummaryInput{Case: caseText})
	if err != nil {
		c.logger.Error("Failed to build prompt", "error", err)
		return core.ErrorText(c.persona.Label, err)
	}

	resp, err := c.provider.Execute(ctx, &provider.Request{
		System:      c.persona.SystemPrompt,
		Prompt:      prompt,
		Model:       c.model,
		Temperature: provider.Float32(c.temperature),
	})
	if err != nil {
		c.logger.Error("Case summary failed", "error", &core.GenerationError{Role: core.RoleClerk, Err: err})
		return core.ErrorText(c.persona.Label, err)
	}
	return resp.Content
}
