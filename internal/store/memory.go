package store

import (
	"sync"
	"time"

	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
)

// InMemoryStore is a map-backed Store for tests and local development.
type InMemoryStore struct {
	mu             sync.RWMutex
	states         map[string]models.ConversationState
	clarifications map[string]models.PendingClarification
	profiles       map[string]models.UserProfile
	log            []models.MessageLogEntry
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		states:         make(map[string]models.ConversationState),
		clarifications: make(map[string]models.PendingClarification),
		profiles:       make(map[string]models.UserProfile),
	}
}

// GetConversationState returns the state for a user, or nil if unseen.
func (s *InMemoryStore) GetConversationState(userKey string) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[userKey]
	if !ok {
		return nil, nil
	}
	cp := st
	if st.StepData != nil {
		cp.StepData = make(map[string]string, len(st.StepData))
		for k, v := range st.StepData {
			cp.StepData[k] = v
		}
	}
	return &cp, nil
}

// SaveConversationState upserts the state record.
func (s *InMemoryStore) SaveConversationState(state models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.UserKey] = state
	return nil
}

// GetPendingClarification returns the pending clarification, or nil.
func (s *InMemoryStore) GetPendingClarification(userKey string) (*models.PendingClarification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clarifications[userKey]
	if !ok {
		return nil, nil
	}
	cp := c
	return &cp, nil
}

// SavePendingClarification upserts the clarification record.
func (s *InMemoryStore) SavePendingClarification(c models.PendingClarification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clarifications[c.UserKey] = c
	return nil
}

// ClearPendingClarification removes the clarification for a user.
func (s *InMemoryStore) ClearPendingClarification(userKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clarifications, userKey)
	return nil
}

// DeleteExpiredClarifications removes clarifications expired before the given
// time and returns the number deleted.
func (s *InMemoryStore) DeleteExpiredClarifications(before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, c := range s.clarifications {
		if c.ExpiresAt.Before(before) {
			delete(s.clarifications, key)
			n++
		}
	}
	return n, nil
}

// AppendMessageLog appends one audit record.
func (s *InMemoryStore) AppendMessageLog(entry models.MessageLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, entry)
	return nil
}

// GetMessageLog returns up to limit most recent entries for a user, newest
// first.
func (s *InMemoryStore) GetMessageLog(userKey string, limit int) ([]models.MessageLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []models.MessageLogEntry
	for i := len(s.log) - 1; i >= 0 && (limit <= 0 || len(entries) < limit); i-- {
		if s.log[i].UserKey == userKey {
			entries = append(entries, s.log[i])
		}
	}
	return entries, nil
}

// GetUserProfile returns the profile for a user, or nil.
func (s *InMemoryStore) GetUserProfile(userKey string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userKey]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

// SaveUserProfile upserts the profile record.
func (s *InMemoryStore) SaveUserProfile(p models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserKey] = p
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
