// Package store provides storage backends for the QAAQ conversation engine.
//
// It includes an in-memory store for tests and development, plus SQLite and
// PostgreSQL backed stores selected by DSN auto-detection.
package store

import (
	"strings"
	"time"

	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
)

// Store is the persistence abstraction consumed by the engine. All writes are
// single-row upserts scoped to one user key; the orchestrator serializes
// access per key, so implementations need no cross-user coordination.
type Store interface {
	// GetConversationState returns the state for a user, or nil if the user
	// has never been seen.
	GetConversationState(userKey string) (*models.ConversationState, error)

	// SaveConversationState upserts the state record for state.UserKey.
	SaveConversationState(state models.ConversationState) error

	// GetPendingClarification returns the pending clarification for a user,
	// or nil if none exists. Expiry is the caller's concern.
	GetPendingClarification(userKey string) (*models.PendingClarification, error)

	// SavePendingClarification upserts the clarification, superseding any
	// earlier record for the same user.
	SavePendingClarification(c models.PendingClarification) error

	// ClearPendingClarification removes the clarification for a user.
	ClearPendingClarification(userKey string) error

	// DeleteExpiredClarifications removes clarifications that expired before
	// the given time and returns the number deleted.
	DeleteExpiredClarifications(before time.Time) (int64, error)

	// AppendMessageLog appends one audit record. Entries are never mutated.
	AppendMessageLog(entry models.MessageLogEntry) error

	// GetMessageLog returns up to limit most recent entries for a user,
	// newest first.
	GetMessageLog(userKey string, limit int) ([]models.MessageLogEntry, error)

	// GetUserProfile returns the profile for a user, or nil if the user has
	// not completed onboarding.
	GetUserProfile(userKey string) (*models.UserProfile, error)

	// SaveUserProfile upserts the profile record for p.UserKey.
	SaveUserProfile(p models.UserProfile) error

	// Close releases the underlying resources.
	Close() error
}

// Opts holds configuration options for store construction.
type Opts struct {
	DSN string
}

// Option defines a configuration option for a store.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType reports "postgres" for PostgreSQL-style connection strings
// and "sqlite" for everything else (file paths).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite"
}
