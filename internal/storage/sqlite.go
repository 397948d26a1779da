package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alienxp03/courtroom/internal/core"
)

var memoryDBCounter atomic.Int64

// SQLiteStorage implements Storage using an in-memory SQLite database.
// Nothing outlives the process.
type SQLiteStorage struct {
	db   *sql.DB
	name string
}

// NewSQLiteStorage opens a fresh in-memory docket.
func NewSQLiteStorage() (*SQLiteStorage, error) {
	name := fmt.Sprintf("courtroom-%d", memoryDBCounter.Add(1))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives as long as its last connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStorage{
		db:   db,
		name: name,
	}, nil
}

// Initialize creates the database schema.
func (s *SQLiteStorage) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		case_text TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		verdict_ready INTEGER NOT NULL DEFAULT 0,
		verdict_json TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rounds (
		session_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		prosecution_strategy TEXT NOT NULL,
		prosecution_argument TEXT NOT NULL,
		defense_strategy TEXT NOT NULL,
		defense_argument TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, number),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection, discarding the docket.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveSession inserts or updates the session row. Rounds are stored
// separately through AddRound.
func (s *SQLiteStorage) SaveSession(snap *core.Snapshot) error {
	var verdictJSON *string
	if snap.Verdict != nil {
		data, err := json.Marshal(snap.Verdict)
		if err != nil {
			return fmt.Errorf("failed to marshal verdict: %w", err)
		}
		str := string(data)
		verdictJSON = &str
	}

	query := `
	INSERT INTO sessions (id, title, state, case_text, summary, verdict_ready, verdict_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		state = excluded.state,
		case_text = excluded.case_text,
		summary = excluded.summary,
		verdict_ready = excluded.verdict_ready,
		verdict_json = excluded.verdict_json,
		updated_at = excluded.updated_at
	`

	_, err := s.db.Exec(query,
		snap.ID,
		core.TitleFromCase(snap.Case),
		snap.State,
		snap.Case,
		snap.Summary,
		snap.VerdictReady,
		verdictJSON,
		snap.CreatedAt,
		snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession retrieves a session with its rounds. It returns nil, nil when
// the session does not exist.
func (s *SQLiteStorage) GetSession(id string) (*core.Snapshot, error) {
	query := `
	SELECT id, state, case_text, summary, verdict_ready, verdict_json, created_at, updated_at
	FROM sessions
	WHERE id = ?
	`

	var snap core.Snapshot
	var verdictJSON sql.NullString

	err := s.db.QueryRow(query, id).Scan(
		&snap.ID,
		&snap.State,
		&snap.Case,
		&snap.Summary,
		&snap.VerdictReady,
		&verdictJSON,
		&snap.CreatedAt,
		&snap.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if verdictJSON.Valid {
		var verdict core.Verdict
		if err := json.Unmarshal([]byte(verdictJSON.String), &verdict); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verdict: %w", err)
		}
		snap.Verdict = &verdict
	}

	rounds, err := s.GetRounds(id)
	if err != nil {
		return nil, err
	}
	snap.Rounds = rounds

	return &snap, nil
}

// DeleteSession deletes a session and its rounds.
func (s *SQLiteStorage) DeleteSession(id string) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListSessions returns session summaries, newest first.
func (s *SQLiteStorage) ListSessions(limit, offset int) ([]*core.SessionSummary, error) {
	query := `
	SELECT s.id, s.title, s.state, s.verdict_json IS NOT NULL, s.created_at, s.updated_at,
		   (SELECT COUNT(*) FROM rounds WHERE session_id = s.id) as round_count
	FROM sessions s
	ORDER BY s.created_at DESC
	LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var summaries []*core.SessionSummary
	for rows.Next() {
		var summary core.SessionSummary
		err := rows.Scan(
			&summary.ID,
			&summary.Title,
			&summary.State,
			&summary.HasVerdict,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&summary.RoundCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}
		summaries = append(summaries, &summary)
	}

	return summaries, rows.Err()
}

// AddRound records a completed round.
func (s *SQLiteStorage) AddRound(sessionID string, r core.Round) error {
	query := `
	INSERT INTO rounds (session_id, number, prosecution_strategy, prosecution_argument, defense_strategy, defense_argument, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.Exec(query,
		sessionID,
		r.Number,
		r.ProsecutionStrategy,
		r.ProsecutionArgument,
		r.DefenseStrategy,
		r.DefenseArgument,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}

	return nil
}

// GetRounds returns all rounds for a session in order.
func (s *SQLiteStorage) GetRounds(sessionID string) ([]core.Round, error) {
	query := `
	SELECT number, prosecution_strategy, prosecution_argument, defense_strategy, defense_argument, created_at
	FROM rounds
	WHERE session_id = ?
	ORDER BY number ASC
	`

	rows, err := s.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rounds: %w", err)
	}
	defer rows.Close()

	var rounds []core.Round
	for rows.Next() {
		var r core.Round
		err := rows.Scan(
			&r.Number,
			&r.ProsecutionStrategy,
			&r.ProsecutionArgument,
			&r.DefenseStrategy,
			&r.DefenseArgument,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, r)
	}

	return rounds, rows.Err()
}

// ClearRounds removes every round of a session.
func (s *SQLiteStorage) ClearRounds(sessionID string) error {
	_, err := s.db.Exec("DELETE FROM rounds WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear rounds: %w", err)
	}
	return nil
}
