package quota

import (
	"testing"
	"time"

	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
	"github.com/qaaqit/Qaaq1234-sub001/internal/store"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDailyLimit(t *testing.T) {
	cases := []struct {
		percent int
		want    int
	}{
		{0, LimitedProfileDailyLimit},
		{33, LimitedProfileDailyLimit},
		{49, LimitedProfileDailyLimit},
		{50, CompleteProfileDailyLimit},
		{100, CompleteProfileDailyLimit},
	}
	for _, tc := range cases {
		if got := DailyLimit(tc.percent); got != tc.want {
			t.Errorf("DailyLimit(%d) = %d, want %d", tc.percent, got, tc.want)
		}
	}
}

func TestCheck_NewUserAllowed(t *testing.T) {
	tr := NewTracker(store.NewInMemoryStore(), time.UTC)
	dec, err := tr.Check("user1", 0, false)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !dec.Allowed {
		t.Error("new user should be allowed")
	}
	if dec.Remaining != LimitedProfileDailyLimit {
		t.Errorf("remaining = %d, want %d", dec.Remaining, LimitedProfileDailyLimit)
	}
}

func TestCheck_LimitedProfileDenied(t *testing.T) {
	st := store.NewInMemoryStore()
	tr := NewTracker(st, time.UTC)
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	tr.now = fixedClock(now)

	state := models.NewConversationState("user1", now)
	state.DailyQuestionCount = LimitedProfileDailyLimit
	state.LastQuestionDate = now
	if err := st.SaveConversationState(state); err != nil {
		t.Fatalf("save state: %v", err)
	}

	dec, err := tr.Check("user1", 33, false)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if dec.Allowed {
		t.Error("exhausted limited profile should be denied")
	}
	if dec.DenialMessage != DenialLimitedProfile {
		t.Errorf("denial message = %q, want limited-profile variant", dec.DenialMessage)
	}
}

func TestCheck_CompleteProfileDenialMessage(t *testing.T) {
	st := store.NewInMemoryStore()
	tr := NewTracker(st, time.UTC)
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	tr.now = fixedClock(now)

	state := models.NewConversationState("user1", now)
	state.DailyQuestionCount = CompleteProfileDailyLimit
	state.LastQuestionDate = now
	if err := st.SaveConversationState(state); err != nil {
		t.Fatalf("save state: %v", err)
	}

	dec, err := tr.Check("user1", 100, false)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if dec.Allowed {
		t.Error("exhausted complete profile should be denied")
	}
	if dec.DenialMessage != DenialCompleteProfile {
		t.Errorf("denial message = %q, want complete-profile variant", dec.DenialMessage)
	}
}

func TestCheck_CompleteProfileGetsLargerCap(t *testing.T) {
	st := store.NewInMemoryStore()
	tr := NewTracker(st, time.UTC)
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	tr.now = fixedClock(now)

	state := models.NewConversationState("user1", now)
	state.DailyQuestionCount = LimitedProfileDailyLimit
	state.LastQuestionDate = now
	if err := st.SaveConversationState(state); err != nil {
		t.Fatalf("save state: %v", err)
	}

	dec, err := tr.Check("user1", 67, false)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !dec.Allowed {
		t.Error("complete profile at count 3 should still be allowed")
	}
	if dec.Remaining != CompleteProfileDailyLimit-LimitedProfileDailyLimit {
		t.Errorf("remaining = %d, want %d", dec.Remaining, CompleteProfileDailyLimit-LimitedProfileDailyLimit)
	}
}

func TestCheck_PremiumBypassesQuota(t *testing.T) {
	st := store.NewInMemoryStore()
	tr := NewTracker(st, time.UTC)
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	tr.now = fixedClock(now)

	state := models.NewConversationState("user1", now)
	state.DailyQuestionCount = 99
	state.LastQuestionDate = now
	if err := st.SaveConversationState(state); err != nil {
		t.Fatalf("save state: %v", err)
	}

	dec, err := tr.Check("user1", 0, true)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !dec.Allowed {
		t.Error("premium user should never be denied")
	}
}

func TestCheck_RollsOverAtMidnight(t *testing.T) {
	st := store.NewInMemoryStore()
	tr := NewTracker(st, time.UTC)
	yesterday := time.Date(2025, 6, 9, 23, 50, 0, 0, time.UTC)
	today := time.Date(2025, 6, 10, 0, 5, 0, 0, time.UTC)

	state := models.NewConversationState("user1", yesterday)
	state.DailyQuestionCount = LimitedProfileDailyLimit
	state.LastQuestionDate = yesterday
	if err := st.SaveConversationState(state); err != nil {
		t.Fatalf("save state: %v", err)
	}

	tr.now = fixedClock(today)
	dec, err := tr.Check("user1", 0, false)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !dec.Allowed {
		t.Error("count from yesterday should read as zero after midnight")
	}
	if dec.Remaining != LimitedProfileDailyLimit {
		t.Errorf("remaining = %d, want full limit after rollover", dec.Remaining)
	}
}

func TestCheck_RolloverRespectsTimezone(t *testing.T) {
	// 23:30 in UTC+5:30 on June 9 is 18:00 UTC June 9; 00:30 local June 10
	// is 19:00 UTC June 9. Same UTC day, different local day.
	loc := time.FixedZone("IST", 5*3600+1800)
	st := store.NewInMemoryStore()
	tr := NewTracker(st, loc)

	before := time.Date(2025, 6, 9, 18, 0, 0, 0, time.UTC)
	after := time.Date(2025, 6, 9, 19, 0, 0, 0, time.UTC)

	state := models.NewConversationState("user1", before)
	state.DailyQuestionCount = LimitedProfileDailyLimit
	state.LastQuestionDate = before
	if err := st.SaveConversationState(state); err != nil {
		t.Fatalf("save state: %v", err)
	}

	tr.now = fixedClock(after)
	dec, err := tr.Check("user1", 0, false)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !dec.Allowed {
		t.Error("local midnight passed, count should have rolled over")
	}
}

func TestConsume_IncrementsAndPersists(t *testing.T) {
	st := store.NewInMemoryStore()
	tr := NewTracker(st, time.UTC)
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	tr.now = fixedClock(now)

	for i := 1; i <= 2; i++ {
		if err := tr.Consume("user1"); err != nil {
			t.Fatalf("Consume %d failed: %v", i, err)
		}
	}

	state, err := st.GetConversationState("user1")
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if state == nil {
		t.Fatal("Consume did not create state")
	}
	if state.DailyQuestionCount != 2 {
		t.Errorf("count = %d, want 2", state.DailyQuestionCount)
	}
	if !state.LastQuestionDate.Equal(now) {
		t.Errorf("last question date = %v, want %v", state.LastQuestionDate, now)
	}
}

func TestConsume_ResetsStaleCount(t *testing.T) {
	st := store.NewInMemoryStore()
	tr := NewTracker(st, time.UTC)
	yesterday := time.Date(2025, 6, 9, 22, 0, 0, 0, time.UTC)
	today := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	state := models.NewConversationState("user1", yesterday)
	state.DailyQuestionCount = 7
	state.LastQuestionDate = yesterday
	if err := st.SaveConversationState(state); err != nil {
		t.Fatalf("save state: %v", err)
	}

	tr.now = fixedClock(today)
	if err := tr.Consume("user1"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}

	got, err := st.GetConversationState("user1")
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if got.DailyQuestionCount != 1 {
		t.Errorf("count after stale consume = %d, want 1", got.DailyQuestionCount)
	}
}
