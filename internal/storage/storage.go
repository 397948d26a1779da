// Package storage keeps the docket: a queryable record of trial sessions,
// their rounds and verdicts, used for listing and export.
package storage

import (
	"github.com/alienxp03/courtroom/internal/core"
)

// Storage defines the interface for the docket.
type Storage interface {
	// Initialize sets up the storage (creates tables, etc.)
	Initialize() error

	// Close closes the storage connection.
	Close() error

	// Session operations
	SaveSession(s *core.Snapshot) error
	GetSession(id string) (*core.Snapshot, error)
	DeleteSession(id string) error
	ListSessions(limit, offset int) ([]*core.SessionSummary, error)

	// Round operations
	AddRound(sessionID string, r core.Round) error
	GetRounds(sessionID string) ([]core.Round, error)
	ClearRounds(sessionID string) error
}
