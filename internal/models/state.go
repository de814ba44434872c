// Package models defines conversation state structures for the QAAQ engine.
package models

import "time"

// FlowType names a conversational mode governing which handler processes a
// message.
type FlowType string

const (
	// FlowConversation is the default mode for registered users.
	FlowConversation FlowType = "conversation"
	// FlowTechnical is active while a technical exchange is in progress.
	FlowTechnical FlowType = "technical"
	// FlowOnboarding collects the profile of a newly seen user.
	FlowOnboarding FlowType = "onboarding"
)

// Step tags for positions within a flow.
const (
	StepNameCollection        = "name_collection"
	StepRankCollection        = "rank_collection"
	StepAwaitingClarification = "awaiting_clarification"
)

// StepData keys used by the onboarding flow.
const (
	DataKeyName = "name"
	DataKeyRank = "rank"
)

// ConversationState is the per-user state record, keyed by a phone-number-like
// external identifier. Created lazily on first contact, updated on every flow
// transition, never hard-deleted (quota fields merely roll over).
type ConversationState struct {
	UserKey     string            `json:"user_key"`
	CurrentFlow FlowType          `json:"current_flow"`
	CurrentStep string            `json:"current_step,omitempty"`
	StepData    map[string]string `json:"step_data,omitempty"`
	// DailyQuestionCount is incremented only after a successfully answered
	// technical question, never on a clarification prompt.
	DailyQuestionCount int       `json:"daily_question_count"`
	LastQuestionDate   time.Time `json:"last_question_date,omitempty"`
	LastActivity       time.Time `json:"last_activity"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewConversationState returns the initial state for a user first seen at now.
func NewConversationState(userKey string, now time.Time) ConversationState {
	return ConversationState{
		UserKey:      userKey,
		CurrentFlow:  FlowConversation,
		StepData:     make(map[string]string),
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ClarificationResolution is the outcome of the A/B disambiguation dialog.
type ClarificationResolution string

const (
	// ResolutionUnset means the clarification is still pending.
	ResolutionUnset ClarificationResolution = ""
	// ResolutionTheory requests a definition/explanation style answer.
	ResolutionTheory ClarificationResolution = "theory"
	// ResolutionTroubleshooting requests a diagnostic style answer.
	ResolutionTroubleshooting ClarificationResolution = "troubleshooting"
)

// PendingClarification tracks one unresolved disambiguation dialog per user.
// A new ambiguous question supersedes an expired or resolved record.
type PendingClarification struct {
	UserKey          string                  `json:"user_key"`
	OriginalQuestion string                  `json:"original_question"`
	CreatedAt        time.Time               `json:"created_at"`
	ExpiresAt        time.Time               `json:"expires_at"`
	Resolution       ClarificationResolution `json:"resolution,omitempty"`
}

// Expired reports whether the clarification is past its TTL at the given time.
func (c *PendingClarification) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
