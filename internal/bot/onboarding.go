package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/qaaqit/Qaaq1234-sub001/internal/flow"
	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
)

// handleOnboarding drives the welcome / name / rank collection steps for a
// user without a profile. The gate deliberately precedes all routing: even
// emergency-looking text from an unknown sender lands here first (the source
// network behaves the same way; revisit if that proves a safety gap).
func (o *Orchestrator) handleOnboarding(ctx context.Context, userKey, text, displayName string) {
	o.logMessage(userKey, models.DirectionInbound, text, "")

	now := o.now()
	state, err := o.store.GetConversationState(userKey)
	if err != nil {
		slog.Error("Onboarding state read failed, starting fresh", "error", err, "userKey", userKey)
		state = nil
	}
	if state == nil {
		fresh := models.NewConversationState(userKey, now)
		state = &fresh
	}
	if state.StepData == nil {
		state.StepData = make(map[string]string)
	}

	var reply string
	switch {
	case state.CurrentFlow != models.FlowOnboarding:
		state.CurrentFlow = models.FlowOnboarding
		state.CurrentStep = models.StepNameCollection
		reply = flow.OnboardingWelcome(displayName)

	case state.CurrentStep == models.StepNameCollection:
		name := strings.TrimSpace(text)
		if name == "" {
			reply = flow.OnboardingWelcome(displayName)
			break
		}
		state.StepData[models.DataKeyName] = name
		state.CurrentStep = models.StepRankCollection
		reply = fmt.Sprintf(flow.TemplateOnboardingRank, name)

	case state.CurrentStep == models.StepRankCollection:
		rank := strings.TrimSpace(text)
		profile := models.UserProfile{
			UserKey:   userKey,
			Name:      state.StepData[models.DataKeyName],
			Rank:      rank,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := o.store.SaveUserProfile(profile); err != nil {
			slog.Error("Onboarding profile write failed", "error", err, "userKey", userKey)
			reply = flow.TemplateTechnicalDifficulty
			break
		}
		state.CurrentFlow = models.FlowConversation
		state.CurrentStep = ""
		state.StepData = make(map[string]string)
		reply = flow.TemplateOnboardingComplete
		slog.Info("Onboarding completed", "userKey", userKey)

	default:
		// Unknown step tag; restart the flow rather than strand the user.
		state.CurrentStep = models.StepNameCollection
		reply = flow.OnboardingWelcome(displayName)
	}

	state.LastActivity = now
	state.UpdatedAt = now
	if err := o.store.SaveConversationState(*state); err != nil {
		slog.Error("Onboarding state write failed", "error", err, "userKey", userKey)
		reply = flow.TemplateTechnicalDifficulty
	}

	if err := o.msg.SendMessage(ctx, userKey, reply); err != nil {
		slog.Error("Onboarding reply send failed", "error", err, "userKey", userKey)
	}
	o.logMessage(userKey, models.DirectionOutbound, reply, "")
}
