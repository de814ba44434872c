package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/qaaqit/Qaaq1234-sub001/internal/models"
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioService implements Service using the Twilio WhatsApp Business API.
// It is the fallback gateway for deployments where a direct WhatsApp login is
// not available. Inbound messages arrive via Twilio webhooks; the webhook
// handler feeds them in through EnqueueInbound.
type TwilioService struct {
	client     *twilio.RestClient
	fromNumber string
	responses  chan models.InboundMessage
	done       chan struct{}
	mu         sync.Mutex
	stopped    bool
}

// NewTwilioService creates a TwilioService with the given account
// credentials and sending number (digits only, no whatsapp: prefix).
func NewTwilioService(accountSID, authToken, fromNumber string) (*TwilioService, error) {
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("twilio credentials not set")
	}
	if fromNumber == "" {
		return nil, fmt.Errorf("twilio sending number not set")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioService{
		client:     client,
		fromNumber: fromNumber,
		responses:  make(chan models.InboundMessage, DefaultChannelBufferSize),
		done:       make(chan struct{}),
	}, nil
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp
// phone number.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// SendMessage sends a WhatsApp message through the Twilio REST API.
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetFrom("whatsapp:+" + s.fromNumber)
	params.SetTo("whatsapp:+" + canonical)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		slog.Error("TwilioService SendMessage failed", "error", err, "to", canonical)
		return fmt.Errorf("failed to send message to %s: %w", canonical, err)
	}
	slog.Debug("TwilioService message sent", "to", canonical, "body_length", len(body))
	return nil
}

// Start is a no-op: inbound delivery is webhook-driven.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop closes the inbound channel.
func (s *TwilioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.done)
	close(s.responses)
	return nil
}

// Responses returns the channel of incoming user messages.
func (s *TwilioService) Responses() <-chan models.InboundMessage {
	return s.responses
}

// EnqueueInbound feeds one webhook-delivered message into the responses
// channel. It drops the message rather than blocking the webhook handler.
func (s *TwilioService) EnqueueInbound(from, body string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(from)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	msg := models.InboundMessage{From: canonical, Body: body, Time: time.Now().Unix()}
	select {
	case s.responses <- msg:
		return nil
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TwilioService responses channel blocked, dropping message", "from", canonical)
		return fmt.Errorf("inbound queue full")
	}
}
