package engine

import (
	"sync"
	"time"

	"github.com/alienxp03/courtroom/internal/core"
)

// Session is one trial. All mutation goes through Engine; readers use
// Snapshot.
type Session struct {
	id string

	// opMu serializes engine operations so agent calls for one session
	// never overlap.
	opMu sync.Mutex

	// persistMu orders docket writes against Discard. discarded is guarded
	// by it.
	persistMu sync.Mutex
	discarded bool

	mu           sync.RWMutex
	state        core.State
	caseText     string
	summary      string
	rounds       []core.Round
	verdictReady bool
	verdict      *core.Verdict
	createdAt    time.Time
	updatedAt    time.Time
}

// NewSession creates an empty session awaiting a case.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		id:        core.GenerateID(),
		state:     core.StateAwaitingCase,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() core.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// RoundCount returns the number of recorded rounds.
func (s *Session) RoundCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rounds)
}

// Snapshot returns a deep copy of the session. While a round is running it
// shows only the rounds already recorded.
func (s *Session) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := core.Snapshot{
		ID:           s.id,
		State:        s.state,
		Case:         s.caseText,
		Summary:      s.summary,
		Rounds:       append([]core.Round(nil), s.rounds...),
		VerdictReady: s.verdictReady,
		CreatedAt:    s.createdAt,
		UpdatedAt:    s.updatedAt,
	}
	if s.verdict != nil {
		v := *s.verdict
		if v.Scorecard != nil {
			card := *v.Scorecard
			v.Scorecard = &card
		}
		snap.Verdict = &v
	}
	return snap
}

func (s *Session) setState(state core.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.updatedAt = time.Now()
}

// briefs must be called with opMu held.
func (s *Session) briefs() (string, core.Briefs) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary, core.BuildBriefs(s.rounds)
}
