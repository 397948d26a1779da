package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/provider"
)

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

const scorecardPrompt = `You have already ruled on this trial. Now score it.

PROSECUTION'S ARGUMENTS:
%s

DEFENSE'S ARGUMENTS:
%s

YOUR VERDICT:
%s

Respond with ONLY a JSON object in this exact format:
{"prosecution_score": <int 0-100>, "defense_score": <int 0-100>, "agreement": "low|medium|high", "commentary": "<one paragraph>"}

prosecution_score and defense_score rate how convincingly each side argued.
agreement rates how far the two sides converged on the facts.`

// Score asks the judge for a structured scorecard of the trial. Output that
// is not valid JSON or fails validation is rejected.
func (j *Judge) Score(ctx context.Context, b core.Briefs, verdict string) (*core.Scorecard, error) {
	resp, err := j.provider.Execute(ctx, &provider.Request{
		System:      j.persona.SystemPrompt,
		Prompt:      fmt.Sprintf(scorecardPrompt, b.Prosecution, b.Defense, verdict),
		Model:       j.model,
		Temperature: provider.Float32(0),
	})
	if err != nil {
		return nil, &core.GenerationError{Role: core.RoleJudge, Err: err}
	}

	card, err := ParseScorecard(resp.Content)
	if err != nil {
		j.logger.Warn("Rejected scorecard", "error", err)
		return nil, err
	}
	return card, nil
}

// ParseScorecard extracts and validates a scorecard from model output. It
// accepts a bare object, a fenced code block, or the first {...} span.
// Both scores must be present; an absent score is not read as zero.
func ParseScorecard(raw string) (*core.Scorecard, error) {
	wire, ok := parseScorecardJSON(raw)
	if !ok {
		return nil, &core.ValidationError{Field: "scorecard", Message: "no JSON object found"}
	}
	if wire.ProsecutionScore == nil {
		return nil, &core.ValidationError{Field: "prosecution_score", Message: "missing"}
	}
	if wire.DefenseScore == nil {
		return nil, &core.ValidationError{Field: "defense_score", Message: "missing"}
	}

	card := &core.Scorecard{
		ProsecutionScore: *wire.ProsecutionScore,
		DefenseScore:     *wire.DefenseScore,
		Agreement:        wire.Agreement,
		Commentary:       wire.Commentary,
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return card, nil
}

// scorecardJSON is the model's reply as decoded, before validation.
type scorecardJSON struct {
	ProsecutionScore *int           `json:"prosecution_score"`
	DefenseScore     *int           `json:"defense_score"`
	Agreement        core.Agreement `json:"agreement"`
	Commentary       string         `json:"commentary"`
}

func parseScorecardJSON(raw string) (*scorecardJSON, bool) {
	if card, ok := tryScorecard(strings.TrimSpace(raw)); ok {
		return card, true
	}

	if matches := codeBlockRe.FindStringSubmatch(raw); len(matches) > 1 {
		if card, ok := tryScorecard(strings.TrimSpace(matches[1])); ok {
			return card, true
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if card, ok := tryScorecard(raw[start : end+1]); ok {
			return card, true
		}
	}

	return nil, false
}

// tryScorecard decodes s, rejecting unknown fields so that unrelated JSON
// is not mistaken for a scorecard.
func tryScorecard(s string) (*scorecardJSON, bool) {
	var card scorecardJSON
	dec := json.NewDecoder(strings.NewReader(s))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&card); err != nil {
		return nil, false
	}
	return &card, true
}
