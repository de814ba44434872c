// Package clarify manages the A/B disambiguation sub-dialog inserted before
// answering an ambiguous technical question.
//
// At most one unresolved clarification exists per user. Expiry is lazy: an
// expired record is treated as absent on the next access, with a periodic
// store sweep for hygiene.
package clarify

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
	"github.com/qaaqit/Qaaq1234-sub001/internal/store"
)

// DefaultTTL is how long a clarification prompt waits for an A/B reply.
const DefaultTTL = 10 * time.Minute

// Result is the outcome of attempting to resolve a reply against a pending
// clarification.
type Result struct {
	Resolved         bool
	OriginalQuestion string
	Resolution       models.ClarificationResolution
}

// Manager tracks pending clarifications in the state store.
type Manager struct {
	store store.Store
	ttl   time.Duration
	now   func() time.Time
}

// Option defines a configuration option for the Manager.
type Option func(*Manager)

// WithTTL overrides the clarification TTL.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// NewManager creates a Manager backed by the given store.
func NewManager(st store.Store, opts ...Option) *Manager {
	m := &Manager{store: st, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Request persists a pending clarification for the user's question,
// superseding any earlier record. Clarification turns are free: the caller
// must not consume quota for them.
func (m *Manager) Request(userKey, question string) error {
	now := m.now()
	c := models.PendingClarification{
		UserKey:          userKey,
		OriginalQuestion: question,
		CreatedAt:        now,
		ExpiresAt:        now.Add(m.ttl),
	}
	if err := m.store.SavePendingClarification(c); err != nil {
		return fmt.Errorf("request clarification for %s: %w", userKey, err)
	}
	slog.Debug("Clarification requested", "userKey", userKey, "expiresAt", c.ExpiresAt)
	return nil
}

// TryResolve checks the reply against the user's pending clarification. If a
// non-expired record exists and the reply is a recognized short token, the
// record is resolved and removed, and the stored question plus resolution are
// returned. Otherwise the reply is not a resolution: state is left untouched
// and the message should be classified fresh.
func (m *Manager) TryResolve(userKey, reply string) (Result, error) {
	pending, err := m.store.GetPendingClarification(userKey)
	if err != nil {
		return Result{}, fmt.Errorf("resolve clarification for %s: %w", userKey, err)
	}
	if pending == nil {
		return Result{}, nil
	}
	if pending.Expired(m.now()) {
		// Lazy expiry: drop the stale record and fall through to fresh
		// classification. The original question is not reused.
		if err := m.store.ClearPendingClarification(userKey); err != nil {
			slog.Error("Failed to clear expired clarification", "error", err, "userKey", userKey)
		}
		slog.Debug("Clarification expired", "userKey", userKey)
		return Result{}, nil
	}

	resolution, ok := ParseResolutionToken(reply)
	if !ok {
		return Result{}, nil
	}

	if err := m.store.ClearPendingClarification(userKey); err != nil {
		slog.Error("Failed to clear resolved clarification", "error", err, "userKey", userKey)
	}
	slog.Info("Clarification resolved", "userKey", userKey, "resolution", resolution)
	return Result{
		Resolved:         true,
		OriginalQuestion: pending.OriginalQuestion,
		Resolution:       resolution,
	}, nil
}

// ParseResolutionToken maps a literal short token to a resolution. Accepted
// forms are "a"/"1" for theory and "b"/"2" for troubleshooting,
// case-insensitive, with trailing punctuation tolerated. Anything longer is
// not a resolution.
func ParseResolutionToken(reply string) (models.ClarificationResolution, bool) {
	token := strings.ToLower(strings.TrimSpace(reply))
	token = strings.TrimRight(token, ".):")
	switch token {
	case "a", "1":
		return models.ResolutionTheory, true
	case "b", "2":
		return models.ResolutionTroubleshooting, true
	default:
		return models.ResolutionUnset, false
	}
}
