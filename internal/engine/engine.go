// Package engine orchestrates trial sessions between the courtroom agents.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/internal/persona"
	"github.com/alienxp03/courtroom/internal/storage"
)

// Advocate argues one side of a round.
type Advocate interface {
	Persona() persona.Persona
	Produce(ctx context.Context, caseSummary, opponentContext string) string
}

// Summarizer prepares the case summary.
type Summarizer interface {
	Persona() persona.Persona
	Summarize(ctx context.Context, caseText string) string
}

// Adjudicator decides readiness and rules.
type Adjudicator interface {
	Persona() persona.Persona
	HasSufficientEvidence(ctx context.Context, b core.Briefs) bool
	Deliberate(ctx context.Context, caseSummary string, b core.Briefs) string
	ScoringEnabled() bool
	Score(ctx context.Context, b core.Briefs, verdict string) (*core.Scorecard, error)
}

// Cast is the full set of participants a trial needs.
type Cast struct {
	ProsecutionStrategist Advocate
	Prosecutor            Advocate
	DefenseStrategist     Advocate
	DefenseAttorney       Advocate
	Clerk                 Summarizer
	Judge                 Adjudicator
}

// Validate reports the first missing participant.
func (c Cast) Validate() error {
	switch {
	case c.ProsecutionStrategist == nil:
		return fmt.Errorf("cast is missing the prosecution strategist")
	case c.Prosecutor == nil:
		return fmt.Errorf("cast is missing the prosecutor")
	case c.DefenseStrategist == nil:
		return fmt.Errorf("cast is missing the defense strategist")
	case c.DefenseAttorney == nil:
		return fmt.Errorf("cast is missing the defense attorney")
	case c.Clerk == nil:
		return fmt.Errorf("cast is missing the clerk")
	case c.Judge == nil:
		return fmt.Errorf("cast is missing the judge")
	}
	return nil
}

// Engine runs the trial state machine.
type Engine struct {
	cast     Cast
	storage  storage.Storage
	logger   *slog.Logger
	onStatus core.StatusFunc
}

// New creates a new trial engine. store may be nil, in which case nothing
// is mirrored to the docket.
func New(cast Cast, store storage.Storage) (*Engine, error) {
	if err := cast.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cast:    cast,
		storage: store,
		logger:  slog.Default(),
	}, nil
}

// SetLogger replaces the engine's logger.
func (e *Engine) SetLogger(l *slog.Logger) {
	e.logger = l
}

// OnStatus registers a callback for agent progress events.
func (e *Engine) OnStatus(fn core.StatusFunc) {
	e.onStatus = fn
}

// Storage returns the docket, which may be nil.
func (e *Engine) Storage() storage.Storage {
	return e.storage
}

// Start records the case and has the clerk summarize it. Blank case text
// is rejected with a ValidationError and leaves the session untouched.
func (e *Engine) Start(ctx context.Context, s *Session, caseText string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if state := s.State(); state != core.StateAwaitingCase {
		return &core.TransitionError{From: state, Operation: "start a case"}
	}
	if strings.TrimSpace(caseText) == "" {
		return &core.ValidationError{Field: "case", Message: "please enter a case description"}
	}

	e.logger.Info("Starting case", "session", s.ID(), "case_len", len(caseText))

	clerk := e.cast.Clerk.Persona()
	e.emit(s, clerk, 0, false)
	summary := e.cast.Clerk.Summarize(ctx, caseText)
	if err := ctx.Err(); err != nil {
		return err
	}
	e.emit(s, clerk, 0, true)

	s.mu.Lock()
	s.caseText = caseText
	s.summary = summary
	s.state = core.StateCaseSummarized
	s.updatedAt = time.Now()
	s.mu.Unlock()

	e.persistSession(s)
	return nil
}

// AdvanceRound runs one full round: prosecution strategist, prosecutor,
// defense strategist, defense attorney, in that order. The round is only
// recorded once all four have spoken. If the context is cancelled midway
// the partial round is discarded.
func (e *Engine) AdvanceRound(ctx context.Context, s *Session) (core.Round, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	prev := s.State()
	if prev != core.StateCaseSummarized && prev != core.StateRoundComplete {
		return core.Round{}, &core.TransitionError{From: prev, Operation: "advance a round"}
	}

	summary, briefs := s.briefs()
	number := briefs.Rounds + 1

	strategyContext, prosecutionContext := core.InitialStrategy, core.OpeningStatement
	if number > 1 {
		strategyContext, prosecutionContext = briefs.Defense, briefs.Defense
	}

	s.setState(core.StateRoundInProgress)
	e.logger.Info("Executing round", "session", s.ID(), "round", number)

	abort := func(err error) (core.Round, error) {
		s.setState(prev)
		e.logger.Warn("Round abandoned", "session", s.ID(), "round", number, "error", err)
		return core.Round{}, err
	}

	round := core.Round{Number: number}

	round.ProsecutionStrategy = e.turn(ctx, s, e.cast.ProsecutionStrategist, number, summary, strategyContext)
	if err := ctx.Err(); err != nil {
		return abort(err)
	}
	round.ProsecutionArgument = e.turn(ctx, s, e.cast.Prosecutor, number, summary, prosecutionContext)
	if err := ctx.Err(); err != nil {
		return abort(err)
	}
	round.DefenseStrategy = e.turn(ctx, s, e.cast.DefenseStrategist, number, summary, round.ProsecutionArgument)
	if err := ctx.Err(); err != nil {
		return abort(err)
	}
	round.DefenseArgument = e.turn(ctx, s, e.cast.DefenseAttorney, number, summary, round.ProsecutionArgument)
	if err := ctx.Err(); err != nil {
		return abort(err)
	}
	round.CreatedAt = time.Now()

	s.mu.Lock()
	s.rounds = append(s.rounds, round)
	s.state = core.StateRoundComplete
	s.updatedAt = round.CreatedAt
	rounds := append([]core.Round(nil), s.rounds...)
	s.mu.Unlock()

	e.persistRound(s, round)

	if e.cast.Judge.HasSufficientEvidence(ctx, core.BuildBriefs(rounds)) {
		e.logger.Info("Court has sufficient evidence", "session", s.ID(), "rounds", len(rounds))
		s.mu.Lock()
		s.state = core.StateVerdictPending
		s.verdictReady = true
		s.updatedAt = time.Now()
		s.mu.Unlock()
	}

	e.persistSession(s)
	return round, nil
}

// ForceVerdict moves a session with at least one complete round to
// verdict_pending without waiting for the readiness check.
func (e *Engine) ForceVerdict(s *Session) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	switch state := s.State(); state {
	case core.StateVerdictPending, core.StateVerdictRendered:
		return nil
	case core.StateRoundComplete:
		s.mu.Lock()
		s.state = core.StateVerdictPending
		s.verdictReady = true
		s.updatedAt = time.Now()
		s.mu.Unlock()
		e.persistSession(s)
		return nil
	default:
		return &core.TransitionError{From: state, Operation: "call for a verdict"}
	}
}

// RenderVerdict has the judge deliberate once. Later calls return the
// stored verdict without consulting the judge again.
func (e *Engine) RenderVerdict(ctx context.Context, s *Session) (core.Verdict, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	switch state := s.State(); state {
	case core.StateVerdictRendered:
		return *s.Snapshot().Verdict, nil
	case core.StateVerdictPending:
	default:
		return core.Verdict{}, &core.TransitionError{From: state, Operation: "render a verdict"}
	}

	summary, briefs := s.briefs()
	judge := e.cast.Judge.Persona()

	e.emit(s, judge, briefs.Rounds, false)
	text := e.cast.Judge.Deliberate(ctx, summary, briefs)
	if err := ctx.Err(); err != nil {
		return core.Verdict{}, err
	}

	verdict := core.Verdict{Text: text}
	if e.cast.Judge.ScoringEnabled() && !core.IsErrorText(text) {
		card, err := e.cast.Judge.Score(ctx, briefs, text)
		if err != nil {
			e.logger.Warn("Scorecard unavailable", "session", s.ID(), "error", err)
		} else {
			verdict.Scorecard = card
		}
	}
	verdict.RenderedAt = time.Now()
	e.emit(s, judge, briefs.Rounds, true)

	s.mu.Lock()
	s.verdict = &verdict
	s.state = core.StateVerdictRendered
	s.updatedAt = verdict.RenderedAt
	s.mu.Unlock()

	e.logger.Info("Verdict rendered", "session", s.ID(), "rounds", briefs.Rounds)
	e.persistSession(s)
	return verdict, nil
}

// Reset clears the case, rounds and verdict and returns the session to
// awaiting_case. It waits for any running operation to finish.
func (e *Engine) Reset(s *Session) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.caseText = ""
	s.summary = ""
	s.rounds = nil
	s.verdictReady = false
	s.verdict = nil
	s.state = core.StateAwaitingCase
	s.updatedAt = time.Now()
	s.mu.Unlock()

	e.logger.Info("Session reset", "session", s.ID())
	e.persist(s, func() {
		if err := e.storage.ClearRounds(s.ID()); err != nil {
			e.logger.Error("Failed to clear docket rounds", "session", s.ID(), "error", err)
		}
		e.saveSnapshot(s)
	})
}

// Discard removes s from the docket. It does not wait for a running
// operation: that operation finishes, but nothing it records is written
// back, so a deleted session never reappears.
func (e *Engine) Discard(s *Session) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.discarded = true
	e.logger.Info("Session discarded", "session", s.ID())
	if e.storage == nil {
		return nil
	}
	if err := e.storage.DeleteSession(s.ID()); err != nil {
		return fmt.Errorf("failed to remove session from docket: %w", err)
	}
	return nil
}

// RoundCallback is called after each recorded round.
type RoundCallback func(round core.Round, snap core.Snapshot)

// TrialOptions controls an unattended trial.
type TrialOptions struct {
	// MaxRounds caps the rounds argued. Values below 1 mean a single round.
	MaxRounds int

	// ForceVerdict calls for a verdict once MaxRounds is reached even if the
	// judge is not ready. Otherwise the court adjourns without one.
	ForceVerdict bool

	// OnStart is called once the clerk has summarized the case.
	OnStart func(snap core.Snapshot)

	// OnRound is called after each recorded round.
	OnRound RoundCallback
}

// RunTrial starts the case and advances rounds until the judge is ready or
// MaxRounds is reached, then renders the verdict. It returns a nil verdict
// when the court adjourns because the judge was not ready and ForceVerdict
// is unset.
func (e *Engine) RunTrial(ctx context.Context, s *Session, caseText string, opts TrialOptions) (*core.Verdict, error) {
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 1
	}
	if err := e.Start(ctx, s, caseText); err != nil {
		return nil, err
	}
	if opts.OnStart != nil {
		opts.OnStart(s.Snapshot())
	}

	for i := 0; i < maxRounds && s.State() != core.StateVerdictPending; i++ {
		round, err := e.AdvanceRound(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("failed to execute round %d: %w", i+1, err)
		}
		if opts.OnRound != nil {
			opts.OnRound(round, s.Snapshot())
		}
	}

	if s.State() != core.StateVerdictPending {
		if !opts.ForceVerdict {
			e.logger.Info("Court adjourned without a verdict", "session", s.ID(), "rounds", s.RoundCount())
			return nil, nil
		}
		if err := e.ForceVerdict(s); err != nil {
			return nil, err
		}
	}

	v, err := e.RenderVerdict(ctx, s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (e *Engine) turn(ctx context.Context, s *Session, a Advocate, round int, summary, opponentContext string) string {
	p := a.Persona()
	e.emit(s, p, round, false)
	out := a.Produce(ctx, summary, opponentContext)
	e.emit(s, p, round, true)
	if core.IsErrorText(out) {
		e.logger.Warn("Turn recorded with error marker", "session", s.ID(), "role", p.Role, "round", round)
	}
	return out
}

func (e *Engine) emit(s *Session, p persona.Persona, round int, done bool) {
	if e.onStatus == nil {
		return
	}
	msg := p.StatusStart
	if done {
		msg = p.StatusDone
	}
	e.onStatus(core.StatusEvent{
		SessionID: s.ID(),
		Role:      p.Role,
		Round:     round,
		Message:   msg,
		Done:      done,
		At:        time.Now(),
	})
}

func (e *Engine) persistSession(s *Session) {
	e.persist(s, func() { e.saveSnapshot(s) })
}

func (e *Engine) persistRound(s *Session, r core.Round) {
	e.persist(s, func() {
		if e.saveSnapshot(s) != nil {
			return
		}
		if err := e.storage.AddRound(s.ID(), r); err != nil {
			e.logger.Error("Failed to record round in docket", "session", s.ID(), "round", r.Number, "error", err)
		}
	})
}

// persist runs write against the docket unless s has been discarded.
func (e *Engine) persist(s *Session, write func()) {
	if e.storage == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if s.discarded {
		e.logger.Debug("Skipping docket write for discarded session", "session", s.ID())
		return
	}
	write()
}

func (e *Engine) saveSnapshot(s *Session) error {
	snap := s.Snapshot()
	if err := e.storage.SaveSession(&snap); err != nil {
		e.logger.Error("Failed to update docket", "session", s.ID(), "error", err)
		return err
	}
	return nil
}
