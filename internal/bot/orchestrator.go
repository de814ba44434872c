// Package bot contains the conversation orchestrator: the single entry point
// that drives classification, clarification, quota, routing and persistence
// for every inbound message.
package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qaaqit/Qaaq1234-sub001/internal/clarify"
	"github.com/qaaqit/Qaaq1234-sub001/internal/classifier"
	"github.com/qaaqit/Qaaq1234-sub001/internal/flow"
	"github.com/qaaqit/Qaaq1234-sub001/internal/messaging"
	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
	"github.com/qaaqit/Qaaq1234-sub001/internal/store"
)

// Orchestrator receives inbound messages and guarantees a reply is always
// attempted, even on internal failure. Messages for the same user key are
// processed to completion in order; different user keys proceed concurrently.
type Orchestrator struct {
	store   store.Store
	msg     messaging.Service
	router  *flow.Router
	clarify *clarify.Manager
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an Orchestrator with its collaborators injected.
func New(st store.Store, msg messaging.Service, router *flow.Router, cm *clarify.Manager) *Orchestrator {
	return &Orchestrator{
		store:   st,
		msg:     msg,
		router:  router,
		clarify: cm,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Start consumes the transport's inbound channel until the context is
// cancelled. Each message is handled on its own goroutine; the per-key lock
// serializes messages from the same user.
func (o *Orchestrator) Start(ctx context.Context) {
	slog.Info("Orchestrator starting message processing")
	go func() {
		defer slog.Info("Orchestrator stopped message processing")
		for {
			select {
			case msg, ok := <-o.msg.Responses():
				if !ok {
					return
				}
				go o.OnMessage(ctx, msg.From, msg.Body, msg.PushName)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// OnMessage processes one inbound message to completion: classification,
// routing, reply, state persistence and audit logging. It never panics
// through to the transport layer.
func (o *Orchestrator) OnMessage(ctx context.Context, userKey, text, displayName string) {
	canonical, err := o.msg.ValidateAndCanonicalizeRecipient(userKey)
	if err != nil {
		slog.Error("Orchestrator rejected invalid sender", "error", err, "from", userKey)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Orchestrator recovered from panic", "panic", rec, "userKey", canonical)
			// Best-effort apology; the failure must stay on our side of the
			// transport boundary.
			if sendErr := o.msg.SendMessage(ctx, canonical, flow.TemplateTechnicalDifficulty); sendErr != nil {
				slog.Error("Failed to send panic apology", "error", sendErr, "userKey", canonical)
			}
		}
	}()

	lock := o.userLock(canonical)
	lock.Lock()
	defer lock.Unlock()

	// The onboarding gate precedes classification: a user without a profile
	// is always onboarded first, whatever they wrote.
	profile, err := o.store.GetUserProfile(canonical)
	if err != nil {
		// A read failure degrades to new-user semantics.
		slog.Error("Profile read failed, treating as new user", "error", err, "userKey", canonical)
		profile = nil
	}
	if profile == nil {
		o.handleOnboarding(ctx, canonical, text, displayName)
		return
	}

	cls := classifier.Classify(text)
	o.logMessage(canonical, models.DirectionInbound, text, string(cls.Type))

	// An unresolved, non-expired clarification takes priority over fresh
	// classification of a bare A/B reply.
	var resolved *clarify.Result
	if res, err := o.clarify.TryResolve(canonical, text); err != nil {
		slog.Error("Clarification resolve failed", "error", err, "userKey", canonical)
	} else if res.Resolved {
		resolved = &res
	}

	act := flow.Decide(cls, text, resolved)
	outbound := o.router.Execute(ctx, canonical, act, profile)
	o.logMessage(canonical, models.DirectionOutbound, outbound, "")

	if err := o.touchState(canonical, act); err != nil {
		slog.Error("Conversation state write failed", "error", err, "userKey", canonical)
		if sendErr := o.msg.SendMessage(ctx, canonical, flow.TemplateTechnicalDifficulty); sendErr != nil {
			slog.Error("Failed to send write-failure apology", "error", sendErr, "userKey", canonical)
		}
	}
}

// touchState records the flow transition implied by the executed action and
// refreshes activity timestamps. It re-reads the state because the quota
// tracker may have written during routing; the per-key lock makes the
// read-modify-write safe.
func (o *Orchestrator) touchState(userKey string, act flow.Action) error {
	now := o.now()
	state, err := o.store.GetConversationState(userKey)
	if err != nil {
		return err
	}
	if state == nil {
		fresh := models.NewConversationState(userKey, now)
		state = &fresh
	}

	switch act.Type {
	case flow.ActionAnswerTechnical:
		state.CurrentFlow = models.FlowTechnical
		state.CurrentStep = ""
	case flow.ActionRequestClarification:
		state.CurrentFlow = models.FlowTechnical
		state.CurrentStep = models.StepAwaitingClarification
	default:
		state.CurrentFlow = models.FlowConversation
		state.CurrentStep = ""
	}
	state.LastActivity = now
	state.UpdatedAt = now

	return o.store.SaveConversationState(*state)
}

// logMessage appends one audit record. Log failures are reported but never
// interrupt message handling.
func (o *Orchestrator) logMessage(userKey string, direction models.Direction, text, classification string) {
	entry := models.MessageLogEntry{
		ID:             uuid.NewString(),
		UserKey:        userKey,
		Direction:      direction,
		Text:           text,
		Classification: classification,
		Timestamp:      o.now(),
	}
	if err := o.store.AppendMessageLog(entry); err != nil {
		slog.Error("Message log append failed", "error", err, "userKey", userKey, "direction", direction)
	}
}

// userLock returns the mutex serializing message handling for one user key.
func (o *Orchestrator) userLock(userKey string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[userKey]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[userKey] = lock
	}
	return lock
}
