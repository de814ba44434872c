// Package flow routes classified messages to their conversational handlers.
//
// This file centralizes every user-facing template and LLM system prompt so
// reply wording lives in one place.
package flow

import "fmt"

// Templated replies for the deterministic flows.
const (
	// TemplateGreeting answers salutations.
	TemplateGreeting = "Ahoy! \U0001F44B I am the QAAQ assistant for mariners. Ask me any technical question about shipboard machinery, or reply 'help' to see what I can do."

	// TemplateUnclear is the fallback when no rule matched.
	TemplateUnclear = "I did not quite catch that. You can ask me a technical question (end it with a '?'), reply 'help' for commands, or 'koi hai' to find mariners near you."

	// TemplateCasual acknowledges maritime small talk.
	TemplateCasual = "Always good to talk shop! ⚓ If you have a technical question about machinery or regulations, just ask - end it with a '?'."

	// TemplateLocation answers who-is-here discovery requests.
	TemplateLocation = "Looking for mariners nearby? Open the QAAQ app and tap 'Koi Hai?' to see professionals around your port. Location sharing works only inside the app."

	// TemplateCommercial hands off purchase inquiries.
	TemplateCommercial = "For spares, stores and service quotations please use the QAAQ marketplace in the app, or email shop@qaaq.app - this chat handles technical Q&A only."

	// TemplateEmergency is the fixed safety-first reply. It is sent
	// immediately, regardless of quota or any pending dialog.
	TemplateEmergency = "⚠️ If this is a real emergency, act now:\n" +
		"1. Alert your bridge / duty officer immediately.\n" +
		"2. Call the nearest MRCC or coast guard on VHF Ch 16 (156.8 MHz).\n" +
		"3. For medical emergencies request TMAS via your flag state.\n" +
		"Do not wait for this chat - radio and your chain of command are faster. Stay safe."

	// TemplateAnswerFallback is sent when the LLM call fails or times out.
	// A failed attempt never costs the user a question.
	TemplateAnswerFallback = "Sorry, I could not prepare an answer just now. Please try your question again in a few minutes - this attempt did not count against your daily limit."

	// TemplateTechnicalDifficulty is the generic apology for internal errors.
	TemplateTechnicalDifficulty = "We hit a technical snag on our side. Your message was received - please try again shortly."

	// TemplateHelp lists the available commands.
	TemplateHelp = "Here is what I can do:\n" +
		"• Ask any technical question ending with '?' - I answer from marine engineering knowledge.\n" +
		"• 'profile' - see your profile and completeness.\n" +
		"• 'status' - see how many questions you have left today.\n" +
		"• 'koi hai' - find mariners near you.\n" +
		"• In an emergency, use VHF Ch 16 and your bridge first."
)

// System prompts for the two mutually exclusive technical answer styles. The
// style is fixed by the clarification resolution (or the definitional
// lexicon) and never re-derived from the question text afterwards.
const (
	// SystemPromptTheory requests an education-only explanation.
	SystemPromptTheory = "You are a marine engineering instructor answering a mariner on a low-bandwidth chat. " +
		"Explain what the asked-about equipment or concept is, its purpose and working principle, in under 200 words. " +
		"Education only: do NOT include troubleshooting steps, fault diagnosis, or repair instructions."

	// SystemPromptTroubleshooting requests diagnostic guidance.
	SystemPromptTroubleshooting = "You are a senior marine engineer helping a colleague troubleshoot equipment over a low-bandwidth chat. " +
		"Give a numbered list of practical diagnostic steps, most likely causes first, in under 200 words. " +
		"Diagnostics only: do NOT give a textbook definition or theory lecture. " +
		"Remind them to follow their vessel's permit-to-work and safety procedures."
)

// Onboarding step templates.
const (
	// TemplateOnboardingRank asks for the user's rank after the name step.
	TemplateOnboardingRank = "Thanks, %s! What is your rank? (e.g. Chief Engineer, 2nd Officer, ETO, Cadet)"

	// TemplateOnboardingComplete closes onboarding.
	TemplateOnboardingComplete = "Welcome aboard! ⚓ You are all set. Ask me any technical question (end it with a '?'), or reply 'help' to see everything I can do. Completing the rest of your profile in the app unlocks more daily questions."
)

// OnboardingWelcome greets a newly seen user and asks for their name. The
// transport display name, when present, personalizes the greeting.
func OnboardingWelcome(displayName string) string {
	if displayName != "" {
		return fmt.Sprintf("Welcome to QAAQ, %s! \U0001F6A2 I connect maritime professionals and answer technical questions.\n\nTo get you started: what is your full name?", displayName)
	}
	return "Welcome to QAAQ! \U0001F6A2 I connect maritime professionals and answer technical questions.\n\nTo get you started: what is your full name?"
}

// ClarificationPrompt builds the A/B prompt offering the two mutually
// exclusive resolutions for an ambiguous question.
func ClarificationPrompt(question string) string {
	return fmt.Sprintf("Your question: \"%s\"\n\nWhat kind of answer do you need?\n"+
		"A) Definition / theory - how it works\n"+
		"B) Troubleshooting - diagnosing a problem\n\n"+
		"Reply with A or B. (This choice is free - it does not count against your daily questions.)", question)
}
