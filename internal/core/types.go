// Package core contains the core domain types for courtroom.
package core

import (
	"time"
)

// State is the position of a session in the trial lifecycle.
type State string

const (
	StateAwaitingCase    State = "awaiting_case"
	StateCaseSummarized  State = "case_summarized"
	StateRoundInProgress State = "round_in_progress"
	StateRoundComplete   State = "round_complete"
	StateVerdictPending  State = "verdict_pending"
	StateVerdictRendered State = "verdict_rendered"
)

// Role identifies one of the fixed courtroom participants.
type Role string

const (
	RoleProsecutionStrategist Role = "prosecution_strategist"
	RoleProsecutor            Role = "prosecutor"
	RoleDefenseStrategist     Role = "defense_strategist"
	RoleDefenseAttorney       Role = "defense_attorney"
	RoleJudge                 Role = "judge"
	RoleClerk                 Role = "clerk"
)

// Roles lists every role in the order they speak during a round, followed by
// the judge and the clerk.
var Roles = []Role{
	RoleProsecutionStrategist,
	RoleProsecutor,
	RoleDefenseStrategist,
	RoleDefenseAttorney,
	RoleJudge,
	RoleClerk,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

const (
	// ErrorMarker prefixes any transcript text that stands in for a failed call.
	ErrorMarker = "❌"

	// OpeningStatement is the prosecutor's context for the first round.
	OpeningStatement = "Opening Statement"

	// InitialStrategy is the prosecution strategist's context for the first round.
	InitialStrategy = "Initial Opening Strategy"
)

// Round is one full cycle of prosecution then defense, with both sides'
// internal strategy notes. Fields are written once and never edited.
type Round struct {
	Number              int       `json:"number"`
	ProsecutionStrategy string    `json:"prosecution_strategy"`
	ProsecutionArgument string    `json:"prosecution_argument"`
	DefenseStrategy     string    `json:"defense_strategy"`
	DefenseArgument     string    `json:"defense_argument"`
	CreatedAt           time.Time `json:"created_at"`
}

// Verdict is the judge's final ruling for a session.
type Verdict struct {
	Text       string     `json:"text"`
	Scorecard  *Scorecard `json:"scorecard,omitempty"`
	RenderedAt time.Time  `json:"rendered_at"`
}

// Snapshot is a read-only copy of a session, safe to render while the
// session keeps running.
type Snapshot struct {
	ID           string    `json:"id"`
	State        State     `json:"state"`
	Case         string    `json:"case"`
	Summary      string    `json:"summary"`
	Rounds       []Round   `json:"rounds"`
	VerdictReady bool      `json:"verdict_ready"`
	Verdict      *Verdict  `json:"verdict,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Briefs recomputes the transcripts from the recorded rounds.
func (s *Snapshot) Briefs() Briefs {
	return BuildBriefs(s.Rounds)
}

// SessionSummary is a lightweight representation for listing sessions.
type SessionSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	State      State     `json:"state"`
	RoundCount int       `json:"round_count"`
	HasVerdict bool      `json:"has_verdict"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StatusEvent reports progress of an agent call.
type StatusEvent struct {
	SessionID string    `json:"session_id,omitempty"`
	Role      Role      `json:"role"`
	Round     int       `json:"round,omitempty"`
	Message   string    `json:"message"`
	Done      bool      `json:"done"`
	At        time.Time `json:"at"`
}

// StatusFunc receives status events. It must not block.
type StatusFunc func(StatusEvent)
