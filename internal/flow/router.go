package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/qaaqit/Qaaq1234-sub001/internal/clarify"
	"github.com/qaaqit/Qaaq1234-sub001/internal/classifier"
	"github.com/qaaqit/Qaaq1234-sub001/internal/messaging"
	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
	"github.com/qaaqit/Qaaq1234-sub001/internal/quota"
)

// ActionType names the routing outcome for one classified message.
type ActionType string

const (
	// ActionSendTemplate replies with a fixed template.
	ActionSendTemplate ActionType = "send_template"
	// ActionCommand replies to a bot command (help, profile, status).
	ActionCommand ActionType = "command"
	// ActionAnswerTechnical answers a technical question via the LLM.
	ActionAnswerTechnical ActionType = "answer_technical"
	// ActionRequestClarification starts the A/B disambiguation dialog.
	ActionRequestClarification ActionType = "request_clarification"
	// ActionEmergencyReply sends the safety template, bypassing quota.
	ActionEmergencyReply ActionType = "emergency_reply"
)

// Action is the routing decision for one message. Decide produces it purely;
// Execute performs the side effects.
type Action struct {
	Type ActionType
	// Reply is the template text for ActionSendTemplate.
	Reply string
	// Question is the text to answer, clarify, or interpret as a command.
	Question string
	// Style fixes the answer template for ActionAnswerTechnical.
	Style models.ClarificationResolution
}

// AnswerGenerator produces an LLM answer for a question under a system prompt.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, systemPrompt, userText string) (string, error)
}

// Decide maps a classification to an action. It is pure: no I/O, no state
// mutation. A resolved clarification takes priority over the classification
// of the bare A/B reply; the answer style is then the stored resolution, not
// re-derived from the original text.
func Decide(cls models.Classification, text string, resolved *clarify.Result) Action {
	if resolved != nil && resolved.Resolved {
		return Action{
			Type:     ActionAnswerTechnical,
			Question: resolved.OriginalQuestion,
			Style:    resolved.Resolution,
		}
	}

	switch cls.Type {
	case models.MessageTypeGreeting:
		return Action{Type: ActionSendTemplate, Reply: TemplateGreeting}
	case models.MessageTypeQuestion:
		if cls.NeedsClarification {
			return Action{Type: ActionRequestClarification, Question: text}
		}
		style := models.ResolutionTroubleshooting
		if classifier.IsDefinitional(strings.ToLower(text)) {
			style = models.ResolutionTheory
		}
		return Action{Type: ActionAnswerTechnical, Question: text, Style: style}
	case models.MessageTypeCommand:
		return Action{Type: ActionCommand, Question: text}
	case models.MessageTypeLocation:
		return Action{Type: ActionSendTemplate, Reply: TemplateLocation}
	case models.MessageTypeCommercial:
		return Action{Type: ActionSendTemplate, Reply: TemplateCommercial}
	case models.MessageTypeEmergency:
		return Action{Type: ActionEmergencyReply}
	case models.MessageTypeCasual:
		return Action{Type: ActionSendTemplate, Reply: TemplateCasual}
	default:
		return Action{Type: ActionSendTemplate, Reply: TemplateUnclear}
	}
}

// Router executes routing actions against the external collaborators.
type Router struct {
	quota   *quota.Tracker
	clarify *clarify.Manager
	llm     AnswerGenerator
	msg     messaging.Service
}

// NewRouter creates a Router with its collaborators injected.
func NewRouter(qt *quota.Tracker, cm *clarify.Manager, llm AnswerGenerator, msg messaging.Service) *Router {
	return &Router{quota: qt, clarify: cm, llm: llm, msg: msg}
}

// Execute performs the side effects of an action and returns the outbound
// reply text that was attempted. Send failures are logged, never propagated:
// a failed outbound send must not roll back consumed quota or block the state
// update.
func (r *Router) Execute(ctx context.Context, userKey string, act Action, profile *models.UserProfile) string {
	switch act.Type {
	case ActionSendTemplate:
		r.send(ctx, userKey, act.Reply)
		return act.Reply

	case ActionCommand:
		reply := r.commandReply(userKey, act.Question, profile)
		r.send(ctx, userKey, reply)
		return reply

	case ActionRequestClarification:
		return r.requestClarification(ctx, userKey, act.Question)

	case ActionEmergencyReply:
		// Emergency replies are exempt from all quota and clarification
		// logic and are never withheld.
		slog.Warn("Emergency message received", "userKey", userKey)
		r.send(ctx, userKey, TemplateEmergency)
		return TemplateEmergency

	case ActionAnswerTechnical:
		return r.answerTechnical(ctx, userKey, act, profile)

	default:
		slog.Error("Router received unknown action type", "type", act.Type, "userKey", userKey)
		r.send(ctx, userKey, TemplateUnclear)
		return TemplateUnclear
	}
}

// requestClarification persists the pending dialog and sends the A/B prompt.
// No quota is consumed and no LLM call is made.
func (r *Router) requestClarification(ctx context.Context, userKey, question string) string {
	if err := r.clarify.Request(userKey, question); err != nil {
		slog.Error("Failed to persist clarification", "error", err, "userKey", userKey)
		r.send(ctx, userKey, TemplateTechnicalDifficulty)
		return TemplateTechnicalDifficulty
	}
	prompt := ClarificationPrompt(question)
	r.send(ctx, userKey, prompt)
	return prompt
}

// answerTechnical runs the technical-answer sub-flow: quota check first (the
// LLM is never invoked for a request that will be denied), then the bounded
// LLM call, then consume-send-log in that order.
func (r *Router) answerTechnical(ctx context.Context, userKey string, act Action, profile *models.UserProfile) string {
	decision, err := r.quota.Check(userKey, profile.CompletenessPercent(), profile != nil && profile.Premium)
	if err != nil {
		// Read failures degrade to new-user semantics rather than blocking
		// the answer.
		slog.Error("Quota check failed, allowing question", "error", err, "userKey", userKey)
		decision = quota.Decision{Allowed: true}
	}
	if !decision.Allowed {
		r.send(ctx, userKey, decision.DenialMessage)
		return decision.DenialMessage
	}

	systemPrompt := SystemPromptTroubleshooting
	if act.Style == models.ResolutionTheory {
		systemPrompt = SystemPromptTheory
	}

	answer, err := r.llm.GenerateAnswer(ctx, systemPrompt, act.Question)
	if err != nil {
		// A failed attempt must not cost the user a question.
		slog.Warn("LLM answer failed, sending fallback", "error", err, "userKey", userKey)
		r.send(ctx, userKey, TemplateAnswerFallback)
		return TemplateAnswerFallback
	}

	if err := r.quota.Consume(userKey); err != nil {
		slog.Error("Failed to consume quota after answer", "error", err, "userKey", userKey)
	}
	r.send(ctx, userKey, answer)
	return answer
}

// commandReply builds the deterministic reply for a command message.
func (r *Router) commandReply(userKey, text string, profile *models.UserProfile) string {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(text)), "/") {
	case "profile":
		return profileSummary(profile)
	case "status":
		return r.statusSummary(userKey, profile)
	default:
		return TemplateHelp
	}
}

func profileSummary(p *models.UserProfile) string {
	if p == nil {
		return "No profile on record yet. Send any message to start onboarding."
	}
	field := func(v string) string {
		if v == "" {
			return "-"
		}
		return v
	}
	return fmt.Sprintf("Your QAAQ profile (%d%% complete):\n"+
		"Name: %s\nRank: %s\nVessel type: %s\nCompany: %s\nEmail: %s\nCity: %s\n\n"+
		"A profile at %d%% or more unlocks %d questions per day.",
		p.CompletenessPercent(), field(p.Name), field(p.Rank), field(p.VesselType),
		field(p.Company), field(p.Email), field(p.City),
		quota.CompleteProfileThreshold, quota.CompleteProfileDailyLimit)
}

func (r *Router) statusSummary(userKey string, profile *models.UserProfile) string {
	if profile != nil && profile.Premium {
		return "Premium account: unlimited technical questions. Ask away!"
	}
	decision, err := r.quota.Check(userKey, profile.CompletenessPercent(), false)
	if err != nil {
		slog.Error("Status quota check failed", "error", err, "userKey", userKey)
		return TemplateTechnicalDifficulty
	}
	limit := quota.DailyLimit(profile.CompletenessPercent())
	if !decision.Allowed {
		return decision.DenialMessage
	}
	return fmt.Sprintf("You have %d of %d technical questions left today.", decision.Remaining, limit)
}

// send attempts one outbound message and logs failures.
func (r *Router) send(ctx context.Context, userKey, body string) {
	if err := r.msg.SendMessage(ctx, userKey, body); err != nil {
		slog.Error("Failed to send message", "error", err, "userKey", userKey)
	}
}
