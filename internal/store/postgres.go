// Package store provides storage backends for the QAAQ conversation engine.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// GetConversationState retrieves the conversation state for a user.
func (s *PostgresStore) GetConversationState(userKey string) (*models.ConversationState, error) {
	row := s.db.QueryRow(`SELECT user_key, current_flow, current_step, step_data, daily_question_count,
		last_question_date, last_activity, created_at, updated_at
		FROM conversation_states WHERE user_key = $1`, userKey)
	state, err := scanConversationState(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetConversationState not found", "userKey", userKey)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversationState failed", "error", err, "userKey", userKey)
		return nil, err
	}
	return state, nil
}

// SaveConversationState upserts the conversation state.
func (s *PostgresStore) SaveConversationState(state models.ConversationState) error {
	stepDataJSON, err := marshalStepData(state.StepData)
	if err != nil {
		slog.Error("PostgresStore SaveConversationState marshal failed", "error", err, "userKey", state.UserKey)
		return err
	}
	_, err = s.db.Exec(`INSERT INTO conversation_states
		(user_key, current_flow, current_step, step_data, daily_question_count, last_question_date, last_activity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_key) DO UPDATE SET
			current_flow = EXCLUDED.current_flow,
			current_step = EXCLUDED.current_step,
			step_data = EXCLUDED.step_data,
			daily_question_count = EXCLUDED.daily_question_count,
			last_question_date = EXCLUDED.last_question_date,
			last_activity = EXCLUDED.last_activity,
			updated_at = EXCLUDED.updated_at`,
		state.UserKey, string(state.CurrentFlow), state.CurrentStep, stepDataJSON,
		state.DailyQuestionCount, nullableTime(state.LastQuestionDate), state.LastActivity,
		state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveConversationState failed", "error", err, "userKey", state.UserKey)
		return fmt.Errorf("failed to upsert conversation state for %s: %w", state.UserKey, err)
	}
	slog.Debug("PostgresStore SaveConversationState succeeded", "userKey", state.UserKey, "flow", state.CurrentFlow)
	return nil
}

// GetPendingClarification retrieves the pending clarification for a user.
func (s *PostgresStore) GetPendingClarification(userKey string) (*models.PendingClarification, error) {
	var c models.PendingClarification
	var resolution string
	err := s.db.QueryRow(`SELECT user_key, original_question, created_at, expires_at, resolution
		FROM pending_clarifications WHERE user_key = $1`, userKey).
		Scan(&c.UserKey, &c.OriginalQuestion, &c.CreatedAt, &c.ExpiresAt, &resolution)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetPendingClarification failed", "error", err, "userKey", userKey)
		return nil, err
	}
	c.Resolution = models.ClarificationResolution(resolution)
	return &c, nil
}

// SavePendingClarification upserts the clarification, superseding any earlier
// record for the user.
func (s *PostgresStore) SavePendingClarification(c models.PendingClarification) error {
	_, err := s.db.Exec(`INSERT INTO pending_clarifications
		(user_key, original_question, created_at, expires_at, resolution)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_key) DO UPDATE SET
			original_question = EXCLUDED.original_question,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at,
			resolution = EXCLUDED.resolution`,
		c.UserKey, c.OriginalQuestion, c.CreatedAt, c.ExpiresAt, string(c.Resolution))
	if err != nil {
		slog.Error("PostgresStore SavePendingClarification failed", "error", err, "userKey", c.UserKey)
		return fmt.Errorf("failed to upsert clarification for %s: %w", c.UserKey, err)
	}
	return nil
}

// ClearPendingClarification removes the clarification for a user.
func (s *PostgresStore) ClearPendingClarification(userKey string) error {
	_, err := s.db.Exec(`DELETE FROM pending_clarifications WHERE user_key = $1`, userKey)
	if err != nil {
		slog.Error("PostgresStore ClearPendingClarification failed", "error", err, "userKey", userKey)
		return err
	}
	return nil
}

// DeleteExpiredClarifications removes clarifications expired before the given time.
func (s *PostgresStore) DeleteExpiredClarifications(before time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM pending_clarifications WHERE expires_at < $1`, before)
	if err != nil {
		slog.Error("PostgresStore DeleteExpiredClarifications failed", "error", err)
		return 0, err
	}
	n, _ := res.RowsAffected()
	slog.Debug("PostgresStore DeleteExpiredClarifications succeeded", "deleted", n)
	return n, nil
}

// AppendMessageLog appends one audit record.
func (s *PostgresStore) AppendMessageLog(entry models.MessageLogEntry) error {
	_, err := s.db.Exec(`INSERT INTO message_log (id, user_key, direction, text, classification, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.UserKey, string(entry.Direction), entry.Text, entry.Classification, entry.Timestamp)
	if err != nil {
		slog.Error("PostgresStore AppendMessageLog failed", "error", err, "userKey", entry.UserKey)
		return fmt.Errorf("failed to append message log for %s: %w", entry.UserKey, err)
	}
	return nil
}

// GetMessageLog returns up to limit most recent entries for a user, newest first.
func (s *PostgresStore) GetMessageLog(userKey string, limit int) ([]models.MessageLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT id, user_key, direction, text, classification, timestamp
		FROM message_log WHERE user_key = $1 ORDER BY timestamp DESC LIMIT $2`, userKey, limit)
	if err != nil {
		slog.Error("PostgresStore GetMessageLog query failed", "error", err, "userKey", userKey)
		return nil, err
	}
	defer rows.Close()

	var entries []models.MessageLogEntry
	for rows.Next() {
		var e models.MessageLogEntry
		var direction string
		if err := rows.Scan(&e.ID, &e.UserKey, &direction, &e.Text, &e.Classification, &e.Timestamp); err != nil {
			slog.Error("PostgresStore GetMessageLog scan failed", "error", err)
			return nil, err
		}
		e.Direction = models.Direction(direction)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetUserProfile retrieves the profile for a user.
func (s *PostgresStore) GetUserProfile(userKey string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.QueryRow(`SELECT user_key, name, rank, vessel_type, company, email, city, premium, created_at, updated_at
		FROM user_profiles WHERE user_key = $1`, userKey).
		Scan(&p.UserKey, &p.Name, &p.Rank, &p.VesselType, &p.Company, &p.Email, &p.City, &p.Premium, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetUserProfile failed", "error", err, "userKey", userKey)
		return nil, err
	}
	return &p, nil
}

// SaveUserProfile upserts the profile record.
func (s *PostgresStore) SaveUserProfile(p models.UserProfile) error {
	_, err := s.db.Exec(`INSERT INTO user_profiles
		(user_key, name, rank, vessel_type, company, email, city, premium, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_key) DO UPDATE SET
			name = EXCLUDED.name,
			rank = EXCLUDED.rank,
			vessel_type = EXCLUDED.vessel_type,
			company = EXCLUDED.company,
			email = EXCLUDED.email,
			city = EXCLUDED.city,
			premium = EXCLUDED.premium,
			updated_at = EXCLUDED.updated_at`,
		p.UserKey, p.Name, p.Rank, p.VesselType, p.Company, p.Email, p.City, p.Premium, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveUserProfile failed", "error", err, "userKey", p.UserKey)
		return fmt.Errorf("failed to upsert profile for %s: %w", p.UserKey, err)
	}
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
