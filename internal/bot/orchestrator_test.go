package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/qaaqit/Qaaq1234-sub001/internal/clarify"
	"github.com/qaaqit/Qaaq1234-sub001/internal/flow"
	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
	"github.com/qaaqit/Qaaq1234-sub001/internal/quota"
	"github.com/qaaqit/Qaaq1234-sub001/internal/store"
)

// stubTransport records outbound sends and feeds inbound messages manually.
type stubTransport struct {
	mu        sync.Mutex
	sent      []string
	responses chan models.InboundMessage
}

func newStubTransport() *stubTransport {
	return &stubTransport{responses: make(chan models.InboundMessage, 10)}
}

func (s *stubTransport) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, recipient)
	if len(digits) < 6 {
		return "", fmt.Errorf("invalid recipient %q", recipient)
	}
	return digits, nil
}

func (s *stubTransport) SendMessage(ctx context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, body)
	return nil
}

func (s *stubTransport) sentCopy() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func (s *stubTransport) Start(ctx context.Context) error { return nil }
func (s *stubTransport) Stop() error                     { return nil }
func (s *stubTransport) Responses() <-chan models.InboundMessage {
	return s.responses
}

func (s *stubTransport) lastSent(t *testing.T) string {
	t.Helper()
	sent := s.sentCopy()
	if len(sent) == 0 {
		t.Fatal("no outbound messages were sent")
	}
	return sent[len(sent)-1]
}

// stubLLM answers every question with a fixed string.
type stubLLM struct {
	answer string
	err    error
	calls  int
}

func (s *stubLLM) GenerateAnswer(ctx context.Context, systemPrompt, userText string) (string, error) {
	s.calls++
	return s.answer, s.err
}

func newTestOrchestrator(st store.Store, llm *stubLLM, msg *stubTransport) *Orchestrator {
	cm := clarify.NewManager(st)
	router := flow.NewRouter(quota.NewTracker(st, time.UTC), cm, llm, msg)
	return New(st, msg, router, cm)
}

func saveProfile(t *testing.T, st store.Store, userKey string) {
	t.Helper()
	p := models.UserProfile{UserKey: userKey, Name: "Asha", Rank: "2nd Engineer"}
	if err := st.SaveUserProfile(p); err != nil {
		t.Fatalf("save profile: %v", err)
	}
}

const testUser = "919876543210"

func TestOnMessage_InvalidSenderIgnored(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := newStubTransport()
	o := newTestOrchestrator(st, &stubLLM{}, msg)

	o.OnMessage(context.Background(), "not-a-number", "hello", "")
	if len(msg.sent) != 0 {
		t.Errorf("sent %d messages for an invalid sender, want 0", len(msg.sent))
	}
}

func TestOnMessage_GreetingEndToEnd(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := newStubTransport()
	o := newTestOrchestrator(st, &stubLLM{}, msg)
	saveProfile(t, st, testUser)

	o.OnMessage(context.Background(), testUser, "hi", "Asha")

	if got := msg.lastSent(t); got != flow.TemplateGreeting {
		t.Errorf("reply = %q, want greeting template", got)
	}

	entries, err := st.GetMessageLog(testUser, 10)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("log has %d entries, want inbound + outbound", len(entries))
	}
	if entries[1].Direction != models.DirectionInbound || entries[1].Classification != string(models.MessageTypeGreeting) {
		t.Errorf("inbound entry = %+v, want greeting classification", entries[1])
	}
	if entries[0].Direction != models.DirectionOutbound {
		t.Errorf("outbound entry = %+v", entries[0])
	}
}

func TestOnMessage_OnboardingFlow(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := newStubTransport()
	o := newTestOrchestrator(st, &stubLLM{}, msg)
	ctx := context.Background()

	// First contact: whatever the text, the user is asked for their name.
	o.OnMessage(ctx, testUser, "hello", "Capt. Rao")
	if got := msg.lastSent(t); !strings.Contains(got, "name") {
		t.Fatalf("first reply = %q, want name prompt", got)
	}

	o.OnMessage(ctx, testUser, "Ravi", "")
	if got := msg.lastSent(t); !strings.Contains(got, "rank") {
		t.Fatalf("second reply = %q, want rank prompt", got)
	}

	o.OnMessage(ctx, testUser, "Chief Engineer", "")
	if got := msg.lastSent(t); got != flow.TemplateOnboardingComplete {
		t.Fatalf("third reply = %q, want completion template", got)
	}

	profile, err := st.GetUserProfile(testUser)
	if err != nil || profile == nil {
		t.Fatalf("profile = (%v, %v), want persisted record", profile, err)
	}
	if profile.Name != "Ravi" || profile.Rank != "Chief Engineer" {
		t.Errorf("profile = %+v, want collected name and rank", profile)
	}

	// With onboarding done, a greeting routes normally.
	o.OnMessage(ctx, testUser, "hi", "")
	if got := msg.lastSent(t); got != flow.TemplateGreeting {
		t.Errorf("post-onboarding reply = %q, want greeting template", got)
	}
}

func TestUnknownUserEmergencyStillOnboards(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := newStubTransport()
	o := newTestOrchestrator(st, &stubLLM{}, msg)

	o.OnMessage(context.Background(), testUser, "mayday engine room fire", "")
	if got := msg.lastSent(t); got == flow.TemplateEmergency {
		t.Error("unknown user skipped onboarding on emergency text")
	} else if !strings.Contains(got, "name") {
		t.Errorf("reply = %q, want onboarding name prompt", got)
	}
}

func TestOnMessage_ClarificationRoundTrip(t *testing.T) {
	st := store.NewInMemoryStore()
	llm := &stubLLM{answer: "MARPOL is the marine pollution convention."}
	msg := newStubTransport()
	o := newTestOrchestrator(st, llm, msg)
	saveProfile(t, st, testUser)
	ctx := context.Background()

	o.OnMessage(ctx, testUser, "What is MARPOL?", "")
	if got := msg.lastSent(t); got != flow.ClarificationPrompt("What is MARPOL?") {
		t.Fatalf("reply = %q, want the A/B prompt", got)
	}
	if llm.calls != 0 {
		t.Fatal("LLM called before the clarification resolved")
	}

	o.OnMessage(ctx, testUser, "A", "")
	if got := msg.lastSent(t); got != llm.answer {
		t.Fatalf("reply = %q, want the LLM answer", got)
	}
	if llm.calls != 1 {
		t.Errorf("LLM calls = %d, want 1", llm.calls)
	}

	// The clarification turn was free; only the answered question counts.
	state, err := st.GetConversationState(testUser)
	if err != nil || state == nil {
		t.Fatalf("state = (%v, %v)", state, err)
	}
	if state.DailyQuestionCount != 1 {
		t.Errorf("question count = %d, want 1", state.DailyQuestionCount)
	}
	if state.CurrentFlow != models.FlowTechnical {
		t.Errorf("flow = %s, want technical", state.CurrentFlow)
	}
}

func TestOnMessage_FreeTextDuringClarificationClassifiesFresh(t *testing.T) {
	st := store.NewInMemoryStore()
	llm := &stubLLM{answer: "answer"}
	msg := newStubTransport()
	o := newTestOrchestrator(st, llm, msg)
	saveProfile(t, st, testUser)
	ctx := context.Background()

	o.OnMessage(ctx, testUser, "What is a turbocharger?", "")
	o.OnMessage(ctx, testUser, "hi", "")

	if got := msg.lastSent(t); got != flow.TemplateGreeting {
		t.Errorf("reply = %q, want greeting from fresh classification", got)
	}
	// The pending clarification survives a non-token reply.
	pending, err := st.GetPendingClarification(testUser)
	if err != nil || pending == nil {
		t.Errorf("pending clarification = (%v, %v), want still present", pending, err)
	}
}

// panicStore triggers the orchestrator's recovery path.
type panicStore struct {
	store.Store
}

func (p *panicStore) GetConversationState(userKey string) (*models.ConversationState, error) {
	panic("store exploded")
}

func TestOnMessage_RecoversFromPanic(t *testing.T) {
	inner := store.NewInMemoryStore()
	st := &panicStore{Store: inner}
	msg := newStubTransport()
	llm := &stubLLM{answer: "answer"}
	o := newTestOrchestrator(st, llm, msg)
	saveProfile(t, inner, testUser)

	// A technical question reaches the quota tracker, which hits the
	// panicking state read.
	o.OnMessage(context.Background(), testUser, "how to overhaul the purifier bowl?", "")

	if got := msg.lastSent(t); got != flow.TemplateTechnicalDifficulty {
		t.Errorf("reply = %q, want the apology template", got)
	}
}

func TestStart_ConsumesInboundChannel(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := newStubTransport()
	o := newTestOrchestrator(st, &stubLLM{}, msg)
	saveProfile(t, st, testUser)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)

	msg.responses <- models.InboundMessage{From: testUser, Body: "hi", Time: time.Now().Unix()}

	deadline := time.After(2 * time.Second)
	for len(msg.sentCopy()) == 0 {
		select {
		case <-deadline:
			t.Fatal("inbound message was never processed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if got := msg.sentCopy()[0]; got != flow.TemplateGreeting {
		t.Errorf("reply = %q, want greeting template", got)
	}
}
