package classifier

import (
	"strings"

	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
)

// MinQuestionLength is the minimum trimmed length for the question rule; a
// bare "ok?" is not a technical question.
const MinQuestionLength = 10

// Classify assigns a category to raw message text. It is a pure function:
// same input, same output, no I/O. Empty or whitespace-only input yields
// unclear with confidence 0.
//
// Rules are evaluated in order and the first match wins. The ordering is a
// deliberate tie-break policy: greetings beat trailing question marks,
// commands and location requests beat emergencies (short commands cannot
// contain distress phrasing), and emergencies beat commercial matches.
func Classify(text string) models.Classification {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.Classification{Type: models.MessageTypeUnclear, Confidence: 0}
	}

	lower := strings.ToLower(trimmed)
	normalized := normalize(lower)

	if matchesAny(normalized, GreetingLexicon) {
		return models.Classification{Type: models.MessageTypeGreeting, Confidence: 0.9}
	}

	if strings.HasSuffix(trimmed, "?") && len(trimmed) >= MinQuestionLength {
		return models.Classification{
			Type:               models.MessageTypeQuestion,
			Confidence:         0.9,
			IsAmbiguous:        IsDefinitional(lower),
			NeedsClarification: matchesAny(normalized, EquipmentLexicon) && !HasProblemIndicator(lower),
		}
	}

	for _, cmd := range CommandLexicon {
		if lower == cmd {
			return models.Classification{Type: models.MessageTypeCommand, Confidence: 0.95}
		}
	}

	if matchesAny(normalized, LocationLexicon) {
		return models.Classification{Type: models.MessageTypeLocation, Confidence: 0.8}
	}

	// Safety over commerce: emergency terms are checked before commercial so
	// "urgent, need to buy a life raft" routes to the emergency flow.
	if matchesAny(normalized, EmergencyLexicon) {
		return models.Classification{Type: models.MessageTypeEmergency, Confidence: 1.0}
	}

	if matchesAny(normalized, CommercialLexicon) {
		return models.Classification{Type: models.MessageTypeCommercial, Confidence: 0.8}
	}

	if matchesAny(normalized, DomainLexicon) || matchesAny(normalized, EquipmentLexicon) {
		return models.Classification{Type: models.MessageTypeCasual, Confidence: 0.6}
	}

	return models.Classification{Type: models.MessageTypeUnclear, Confidence: 0.5}
}

// IsDefinitional reports whether lowercased text carries definitional
// phrasing. The flow router reuses it to pick the theory answer template for
// unambiguous questions.
func IsDefinitional(lower string) bool {
	for _, pattern := range DefinitionalLexicon {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// HasProblemIndicator reports whether lowercased text carries
// problem-indicating language.
func HasProblemIndicator(lower string) bool {
	for _, pattern := range ProblemLexicon {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// normalize maps punctuation to spaces and pads the text so lexicon terms
// match on word boundaries. Without this "hi" would match inside "ship".
func normalize(lower string) string {
	var b strings.Builder
	b.Grow(len(lower) + 2)
	b.WriteByte(' ')
	for _, r := range lower {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteByte(' ')
	return b.String()
}

// matchesAny reports whether any lexicon term occurs in the normalized text
// as a whole word or phrase.
func matchesAny(normalized string, lexicon []string) bool {
	for _, term := range lexicon {
		if strings.Contains(normalized, " "+term+" ") {
			return true
		}
	}
	return false
}
