// Package quota enforces the per-user daily cap on LLM-backed technical
// answers.
//
// The cap is sized by profile completeness and rolls over at midnight in a
// single configured reference timezone. Checking and consuming are separate
// operations: the router checks before calling the LLM and consumes only
// after an answer was actually produced, so clarification prompts and failed
// attempts never cost the user a question.
package quota

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
	"github.com/qaaqit/Qaaq1234-sub001/internal/store"
)

// Quota policy constants.
const (
	// CompleteProfileDailyLimit is the daily question cap for users whose
	// profile completeness meets the threshold.
	CompleteProfileDailyLimit = 10
	// LimitedProfileDailyLimit is the daily question cap below the threshold.
	LimitedProfileDailyLimit = 3
	// CompleteProfileThreshold is the completeness percent at which the
	// larger cap applies.
	CompleteProfileThreshold = 50
)

// User-facing denial messages. The distinction between the two is a contract:
// complete profiles are told when the quota resets, incomplete profiles are
// told how to earn more questions.
const (
	DenialCompleteProfile = "You have reached your daily limit of 10 questions. Your quota resets at midnight - see you tomorrow! ⚓"
	DenialLimitedProfile  = "You have reached your daily limit of 3 questions. Complete your profile to unlock 10 questions per day. Reply 'profile' to see what is missing."
)

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed   bool
	Remaining int
	// DenialMessage is the user-facing reply when Allowed is false.
	DenialMessage string
}

// Tracker evaluates and consumes the daily question quota against the state
// store.
type Tracker struct {
	store store.Store
	loc   *time.Location
	now   func() time.Time
}

// NewTracker creates a Tracker using the given reference timezone for day
// rollover. A nil location defaults to UTC.
func NewTracker(st store.Store, loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{store: st, loc: loc, now: time.Now}
}

// DailyLimit returns the cap that applies at the given profile completeness.
func DailyLimit(completenessPercent int) int {
	if completenessPercent >= CompleteProfileThreshold {
		return CompleteProfileDailyLimit
	}
	return LimitedProfileDailyLimit
}

// Check evaluates whether the user may have another question answered today.
// Premium users are never denied. Check performs no writes; counters reset
// lazily by comparing calendar days in the reference timezone.
func (t *Tracker) Check(userKey string, completenessPercent int, premium bool) (Decision, error) {
	if premium {
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	state, err := t.store.GetConversationState(userKey)
	if err != nil {
		return Decision{}, fmt.Errorf("quota check for %s: %w", userKey, err)
	}

	count := 0
	if state != nil {
		count = t.effectiveCount(state)
	}

	limit := DailyLimit(completenessPercent)
	if count >= limit {
		msg := DenialLimitedProfile
		if limit == CompleteProfileDailyLimit {
			msg = DenialCompleteProfile
		}
		slog.Info("Quota denied", "userKey", userKey, "count", count, "limit", limit)
		return Decision{Allowed: false, Remaining: 0, DenialMessage: msg}, nil
	}

	return Decision{Allowed: true, Remaining: limit - count}, nil
}

// Consume records one answered question for the user. It must only be called
// after a technical answer was successfully produced.
func (t *Tracker) Consume(userKey string) error {
	now := t.now().In(t.loc)
	state, err := t.store.GetConversationState(userKey)
	if err != nil {
		return fmt.Errorf("quota consume read for %s: %w", userKey, err)
	}
	if state == nil {
		fresh := models.NewConversationState(userKey, now)
		state = &fresh
	}

	state.DailyQuestionCount = t.effectiveCount(state) + 1
	state.LastQuestionDate = now
	state.LastActivity = now
	state.UpdatedAt = now

	if err := t.store.SaveConversationState(*state); err != nil {
		return fmt.Errorf("quota consume write for %s: %w", userKey, err)
	}
	slog.Debug("Quota consumed", "userKey", userKey, "count", state.DailyQuestionCount)
	return nil
}

// effectiveCount applies lazy day rollover: a count from a previous calendar
// day reads as zero.
func (t *Tracker) effectiveCount(state *models.ConversationState) int {
	if state.LastQuestionDate.IsZero() {
		return 0
	}
	if !sameDay(state.LastQuestionDate.In(t.loc), t.now().In(t.loc)) {
		return 0
	}
	return state.DailyQuestionCount
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
