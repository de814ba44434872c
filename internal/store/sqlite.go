// Package store provides storage backends for the QAAQ conversation engine.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN. The DSN is a
// file path; the containing directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// GetConversationState retrieves the conversation state for a user.
func (s *SQLiteStore) GetConversationState(userKey string) (*models.ConversationState, error) {
	row := s.db.QueryRow(`SELECT user_key, current_flow, current_step, step_data, daily_question_count,
		last_question_date, last_activity, created_at, updated_at
		FROM conversation_states WHERE user_key = ?`, userKey)
	state, err := scanConversationState(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetConversationState not found", "userKey", userKey)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversationState failed", "error", err, "userKey", userKey)
		return nil, err
	}
	return state, nil
}

// SaveConversationState upserts the conversation state.
func (s *SQLiteStore) SaveConversationState(state models.ConversationState) error {
	stepDataJSON, err := marshalStepData(state.StepData)
	if err != nil {
		slog.Error("SQLiteStore SaveConversationState marshal failed", "error", err, "userKey", state.UserKey)
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO conversation_states
		(user_key, current_flow, current_step, step_data, daily_question_count, last_question_date, last_activity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		state.UserKey, string(state.CurrentFlow), state.CurrentStep, stepDataJSON,
		state.DailyQuestionCount, nullableTime(state.LastQuestionDate), state.LastActivity,
		state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveConversationState failed", "error", err, "userKey", state.UserKey)
		return fmt.Errorf("failed to upsert conversation state for %s: %w", state.UserKey, err)
	}
	slog.Debug("SQLiteStore SaveConversationState succeeded", "userKey", state.UserKey, "flow", state.CurrentFlow)
	return nil
}

// GetPendingClarification retrieves the pending clarification for a user.
func (s *SQLiteStore) GetPendingClarification(userKey string) (*models.PendingClarification, error) {
	var c models.PendingClarification
	var resolution string
	err := s.db.QueryRow(`SELECT user_key, original_question, created_at, expires_at, resolution
		FROM pending_clarifications WHERE user_key = ?`, userKey).
		Scan(&c.UserKey, &c.OriginalQuestion, &c.CreatedAt, &c.ExpiresAt, &resolution)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetPendingClarification failed", "error", err, "userKey", userKey)
		return nil, err
	}
	c.Resolution = models.ClarificationResolution(resolution)
	return &c, nil
}

// SavePendingClarification upserts the clarification, superseding any earlier
// record for the user.
func (s *SQLiteStore) SavePendingClarification(c models.PendingClarification) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO pending_clarifications
		(user_key, original_question, created_at, expires_at, resolution)
		VALUES (?, ?, ?, ?, ?)`,
		c.UserKey, c.OriginalQuestion, c.CreatedAt, c.ExpiresAt, string(c.Resolution))
	if err != nil {
		slog.Error("SQLiteStore SavePendingClarification failed", "error", err, "userKey", c.UserKey)
		return fmt.Errorf("failed to upsert clarification for %s: %w", c.UserKey, err)
	}
	return nil
}

// ClearPendingClarification removes the clarification for a user.
func (s *SQLiteStore) ClearPendingClarification(userKey string) error {
	_, err := s.db.Exec(`DELETE FROM pending_clarifications WHERE user_key = ?`, userKey)
	if err != nil {
		slog.Error("SQLiteStore ClearPendingClarification failed", "error", err, "userKey", userKey)
		return err
	}
	return nil
}

// DeleteExpiredClarifications removes clarifications expired before the given time.
func (s *SQLiteStore) DeleteExpiredClarifications(before time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM pending_clarifications WHERE expires_at < ?`, before)
	if err != nil {
		slog.Error("SQLiteStore DeleteExpiredClarifications failed", "error", err)
		return 0, err
	}
	n, _ := res.RowsAffected()
	slog.Debug("SQLiteStore DeleteExpiredClarifications succeeded", "deleted", n)
	return n, nil
}

// AppendMessageLog appends one audit record.
func (s *SQLiteStore) AppendMessageLog(entry models.MessageLogEntry) error {
	_, err := s.db.Exec(`INSERT INTO message_log (id, user_key, direction, text, classification, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserKey, string(entry.Direction), entry.Text, entry.Classification, entry.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore AppendMessageLog failed", "error", err, "userKey", entry.UserKey)
		return fmt.Errorf("failed to append message log for %s: %w", entry.UserKey, err)
	}
	return nil
}

// GetMessageLog returns up to limit most recent entries for a user, newest first.
func (s *SQLiteStore) GetMessageLog(userKey string, limit int) ([]models.MessageLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT id, user_key, direction, text, classification, timestamp
		FROM message_log WHERE user_key = ? ORDER BY timestamp DESC LIMIT ?`, userKey, limit)
	if err != nil {
		slog.Error("SQLiteStore GetMessageLog query failed", "error", err, "userKey", userKey)
		return nil, err
	}
	defer rows.Close()

	var entries []models.MessageLogEntry
	for rows.Next() {
		var e models.MessageLogEntry
		var direction string
		if err := rows.Scan(&e.ID, &e.UserKey, &direction, &e.Text, &e.Classification, &e.Timestamp); err != nil {
			slog.Error("SQLiteStore GetMessageLog scan failed", "error", err)
			return nil, err
		}
		e.Direction = models.Direction(direction)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetUserProfile retrieves the profile for a user.
func (s *SQLiteStore) GetUserProfile(userKey string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.QueryRow(`SELECT user_key, name, rank, vessel_type, company, email, city, premium, created_at, updated_at
		FROM user_profiles WHERE user_key = ?`, userKey).
		Scan(&p.UserKey, &p.Name, &p.Rank, &p.VesselType, &p.Company, &p.Email, &p.City, &p.Premium, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetUserProfile failed", "error", err, "userKey", userKey)
		return nil, err
	}
	return &p, nil
}

// SaveUserProfile upserts the profile record.
func (s *SQLiteStore) SaveUserProfile(p models.UserProfile) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO user_profiles
		(user_key, name, rank, vessel_type, company, email, city, premium, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserKey, p.Name, p.Rank, p.VesselType, p.Company, p.Email, p.City, p.Premium, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveUserProfile failed", "error", err, "userKey", p.UserKey)
		return fmt.Errorf("failed to upsert profile for %s: %w", p.UserKey, err)
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversationState(row rowScanner) (*models.ConversationState, error) {
	var state models.ConversationState
	var flow string
	var stepDataJSON sql.NullString
	var lastQuestion sql.NullTime
	err := row.Scan(&state.UserKey, &flow, &state.CurrentStep, &stepDataJSON,
		&state.DailyQuestionCount, &lastQuestion, &state.LastActivity,
		&state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		return nil, err
	}
	state.CurrentFlow = models.FlowType(flow)
	if lastQuestion.Valid {
		state.LastQuestionDate = lastQuestion.Time
	}
	state.StepData = make(map[string]string)
	if stepDataJSON.Valid && stepDataJSON.String != "" {
		if err := json.Unmarshal([]byte(stepDataJSON.String), &state.StepData); err != nil {
			// Continue with an empty map rather than failing the read.
			slog.Error("Conversation state step_data unmarshal failed", "error", err, "userKey", state.UserKey)
			state.StepData = make(map[string]string)
		}
	}
	return &state, nil
}

func marshalStepData(data map[string]string) (interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
