package clarify

import (
	"testing"
	"time"

	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
	"github.com/qaaqit/Qaaq1234-sub001/internal/store"
)

func TestParseResolutionToken(t *testing.T) {
	cases := []struct {
		reply string
		want  models.ClarificationResolution
		ok    bool
	}{
		{"a", models.ResolutionTheory, true},
		{"A", models.ResolutionTheory, true},
		{"1", models.ResolutionTheory, true},
		{" a. ", models.ResolutionTheory, true},
		{"b", models.ResolutionTroubleshooting, true},
		{"B)", models.ResolutionTroubleshooting, true},
		{"2", models.ResolutionTroubleshooting, true},
		{"ab", models.ResolutionUnset, false},
		{"option a please", models.ResolutionUnset, false},
		{"3", models.ResolutionUnset, false},
		{"", models.ResolutionUnset, false},
	}
	for _, tc := range cases {
		got, ok := ParseResolutionToken(tc.reply)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseResolutionToken(%q) = (%s, %v), want (%s, %v)", tc.reply, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTryResolve_NoPending(t *testing.T) {
	m := NewManager(store.NewInMemoryStore())
	res, err := m.TryResolve("user1", "a")
	if err != nil {
		t.Fatalf("TryResolve failed: %v", err)
	}
	if res.Resolved {
		t.Error("resolved without a pending clarification")
	}
}

func TestTryResolve_Lifecycle(t *testing.T) {
	st := store.NewInMemoryStore()
	m := NewManager(st)

	question := "What is a turbocharger?"
	if err := m.Request("user1", question); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	res, err := m.TryResolve("user1", "B")
	if err != nil {
		t.Fatalf("TryResolve failed: %v", err)
	}
	if !res.Resolved {
		t.Fatal("expected resolution")
	}
	if res.OriginalQuestion != question {
		t.Errorf("original question = %q, want %q", res.OriginalQuestion, question)
	}
	if res.Resolution != models.ResolutionTroubleshooting {
		t.Errorf("resolution = %s, want troubleshooting", res.Resolution)
	}

	// Resolution is one-shot: the record must be gone.
	pending, err := st.GetPendingClarification("user1")
	if err != nil {
		t.Fatalf("read pending: %v", err)
	}
	if pending != nil {
		t.Error("pending clarification not cleared after resolution")
	}
}

func TestTryResolve_NonTokenLeavesPending(t *testing.T) {
	st := store.NewInMemoryStore()
	m := NewManager(st)

	if err := m.Request("user1", "What is a purifier?"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	res, err := m.TryResolve("user1", "actually tell me about boilers")
	if err != nil {
		t.Fatalf("TryResolve failed: %v", err)
	}
	if res.Resolved {
		t.Error("free-text reply must not resolve the clarification")
	}

	pending, err := st.GetPendingClarification("user1")
	if err != nil {
		t.Fatalf("read pending: %v", err)
	}
	if pending == nil {
		t.Error("pending clarification removed by a non-token reply")
	}
}

func TestTryResolve_Expired(t *testing.T) {
	st := store.NewInMemoryStore()
	m := NewManager(st, WithTTL(10*time.Minute))

	start := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }
	if err := m.Request("user1", "What is a boiler?"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	// 11 minutes later the record is past its TTL.
	m.now = func() time.Time { return start.Add(11 * time.Minute) }
	res, err := m.TryResolve("user1", "a")
	if err != nil {
		t.Fatalf("TryResolve failed: %v", err)
	}
	if res.Resolved {
		t.Error("expired clarification must not resolve")
	}

	pending, err := st.GetPendingClarification("user1")
	if err != nil {
		t.Fatalf("read pending: %v", err)
	}
	if pending != nil {
		t.Error("expired clarification not cleared lazily")
	}
}

func TestRequest_Supersedes(t *testing.T) {
	st := store.NewInMemoryStore()
	m := NewManager(st)

	if err := m.Request("user1", "What is a boiler?"); err != nil {
		t.Fatalf("first Request failed: %v", err)
	}
	if err := m.Request("user1", "What is a compressor?"); err != nil {
		t.Fatalf("second Request failed: %v", err)
	}

	res, err := m.TryResolve("user1", "a")
	if err != nil {
		t.Fatalf("TryResolve failed: %v", err)
	}
	if !res.Resolved {
		t.Fatal("expected resolution")
	}
	if res.OriginalQuestion != "What is a compressor?" {
		t.Errorf("resolved question = %q, want the superseding one", res.OriginalQuestion)
	}
}

func TestPendingClarificationExpiredBoundary(t *testing.T) {
	at := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	c := models.PendingClarification{ExpiresAt: at}
	if c.Expired(at.Add(-time.Second)) {
		t.Error("clarification expired before its deadline")
	}
	if !c.Expired(at) {
		t.Error("clarification not expired exactly at its deadline")
	}
}
