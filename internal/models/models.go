// Package models defines the core data structures for the QAAQ conversation engine.
//
// It includes message classification values, the append-only message log, and
// user profile records shared across modules.
package models

import (
	"errors"
	"time"
)

// MessageType is the category assigned to an inbound message by the classifier.
type MessageType string

const (
	// MessageTypeGreeting is a salutation with no question content.
	MessageTypeGreeting MessageType = "greeting"
	// MessageTypeQuestion is a technical question eligible for an LLM answer.
	MessageTypeQuestion MessageType = "question"
	// MessageTypeCommand is a bot command such as /help or profile.
	MessageTypeCommand MessageType = "command"
	// MessageTypeLocation is a request to discover nearby users.
	MessageTypeLocation MessageType = "location"
	// MessageTypeCommercial is a purchase or pricing inquiry.
	MessageTypeCommercial MessageType = "commercial"
	// MessageTypeEmergency is a distress or safety message.
	MessageTypeEmergency MessageType = "emergency"
	// MessageTypeCasual is maritime small talk with no other match.
	MessageTypeCasual MessageType = "casual"
	// MessageTypeUnclear is the fallback when no rule matches.
	MessageTypeUnclear MessageType = "unclear"
)

// IsValidMessageType checks if the given message type is supported.
func IsValidMessageType(mt MessageType) bool {
	switch mt {
	case MessageTypeGreeting, MessageTypeQuestion, MessageTypeCommand,
		MessageTypeLocation, MessageTypeCommercial, MessageTypeEmergency,
		MessageTypeCasual, MessageTypeUnclear:
		return true
	default:
		return false
	}
}

// Classification is the transient result of classifying one inbound message.
// It is never persisted; the message log stores only the type tag.
type Classification struct {
	Type       MessageType `json:"type"`
	Confidence float64     `json:"confidence"`
	// IsAmbiguous marks definitional phrasing ("what is", "purpose of", ...).
	IsAmbiguous bool `json:"is_ambiguous"`
	// NeedsClarification gates the A/B clarification sub-dialog: the text
	// names equipment but carries no problem-indicating language.
	NeedsClarification bool `json:"needs_clarification"`
}

// Direction marks a message log entry as inbound or outbound.
type Direction string

const (
	// DirectionInbound is a message received from a user.
	DirectionInbound Direction = "inbound"
	// DirectionOutbound is a message sent to a user.
	DirectionOutbound Direction = "outbound"
)

// MessageLogEntry is an append-only audit record of one exchanged message.
// Entries are never mutated or deleted by the engine.
type MessageLogEntry struct {
	ID             string    `json:"id"`
	UserKey        string    `json:"user_key"`
	Direction      Direction `json:"direction"`
	Text           string    `json:"text"`
	Classification string    `json:"classification,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// InboundMessage is one message received from the transport.
type InboundMessage struct {
	From     string `json:"from"`
	Body     string `json:"body"`
	PushName string `json:"push_name,omitempty"`
	Time     int64  `json:"time"`
}

// Error variables for better error handling and testability.
var (
	ErrEmptyUserKey = errors.New("user key cannot be empty")
	ErrEmptyBody    = errors.New("message body cannot be empty")
)

// ProfileFieldCount is the fixed number of identity fields counted toward
// profile completeness.
const ProfileFieldCount = 6

// UserProfile holds the maritime identity of a registered user.
type UserProfile struct {
	UserKey    string    `json:"user_key"`
	Name       string    `json:"name,omitempty"`
	Rank       string    `json:"rank,omitempty"`        // e.g. "Chief Engineer"
	VesselType string    `json:"vessel_type,omitempty"` // e.g. "Oil Tanker"
	Company    string    `json:"company,omitempty"`
	Email      string    `json:"email,omitempty"`
	City       string    `json:"city,omitempty"`
	Premium    bool      `json:"premium"` // billing capability flag
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CompletenessPercent returns the share (0-100) of identity fields that are
// non-empty. The quota tracker sizes the daily limit from this value.
func (p *UserProfile) CompletenessPercent() int {
	if p == nil {
		return 0
	}
	filled := 0
	for _, f := range []string{p.Name, p.Rank, p.VesselType, p.Company, p.Email, p.City} {
		if f != "" {
			filled++
		}
	}
	return filled * 100 / ProfileFieldCount
}

// Validate performs basic validation on an inbound message.
func (m *InboundMessage) Validate() error {
	if m.From == "" {
		return ErrEmptyUserKey
	}
	if m.Body == "" {
		return ErrEmptyBody
	}
	return nil
}
