package twiliowhatsapp

import (
	"context"
	"testing"
)

var (
	_ TwilioWhatsAppSender = (*Client)(nil)
	_ TwilioWhatsAppSender = (*MockClient)(nil)
)

func TestMockClientSendMessage(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	if err := mock.SendMessage(ctx, "+989121234567", "سلام!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.SentMessages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.SentMessages))
	}
	if mock.SentMessages[0].To != "+989121234567" || mock.SentMessages[0].Body != "سلام!" {
		t.Errorf("recorded message = %+v", mock.SentMessages[0])
	}
}

func TestMockClientRecordsTyping(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	if err := mock.SendTypingIndicator(ctx, "+989121234567", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.TypingEvents) != 1 || !mock.TypingEvents[0].Typing {
		t.Errorf("recorded typing events = %+v", mock.TypingEvents)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); err == nil {
		t.Error("expected error when credentials are missing")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("token")); err == nil {
		t.Error("expected error when from number is missing")
	}
}
