package messaging

import (
	"testing"
	"time"
)

func TestCanonicalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+91 98765 43210", "919876543210", false},
		{"whatsapp:+14155238886", "14155238886", false},
		{"1234567890", "1234567890", false},
		{"(415) 523-8886", "4155238886", false},
		{"", "", true},
		{"no digits", "", true},
		{"12345", "", true},
	}
	for _, tc := range cases {
		got, err := canonicalizePhone(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("canonicalizePhone(%q) = %q, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("canonicalizePhone(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("canonicalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTwilioService_RequiresCredentials(t *testing.T) {
	if _, err := NewTwilioService("", "token", "14155238886"); err == nil {
		t.Error("expected error for missing account SID")
	}
	if _, err := NewTwilioService("sid", "", "14155238886"); err == nil {
		t.Error("expected error for missing auth token")
	}
	if _, err := NewTwilioService("sid", "token", ""); err == nil {
		t.Error("expected error for missing sending number")
	}
}

func TestTwilioService_EnqueueInbound(t *testing.T) {
	svc, err := NewTwilioService("sid", "token", "14155238886")
	if err != nil {
		t.Fatalf("NewTwilioService failed: %v", err)
	}

	if err := svc.EnqueueInbound("whatsapp:+919876543210", "hello there"); err != nil {
		t.Fatalf("EnqueueInbound failed: %v", err)
	}

	select {
	case msg := <-svc.Responses():
		if msg.From != "919876543210" {
			t.Errorf("from = %q, want canonical digits", msg.From)
		}
		if msg.Body != "hello there" {
			t.Errorf("body = %q, want the enqueued text", msg.Body)
		}
	case <-time.After(time.Second):
		t.Fatal("enqueued inbound message never arrived on Responses()")
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// Stop is idempotent.
	if err := svc.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}
