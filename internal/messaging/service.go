// Package messaging provides the transport layer for InterviewPipe.
//
// A Service delivers bot replies and surfaces incoming participant messages
// through a channel. Three backends are provided: Telegram long polling (the
// default), WhatsApp via the Twilio API, and WhatsApp via whatsmeow.
package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/danualab/InterviewPipe/internal/models"
)

// Constants for messaging service configuration
const (
	// DefaultChannelBufferSize defines the default buffer size for response channels
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel operations
	DefaultChannelTimeout = 1 * time.Second
)

// Backend names accepted by the -backend flag and INTERVIEWPIPE_BACKEND.
const (
	BackendTelegram = "telegram"
	BackendTwilio   = "twilio"
	BackendWhatsApp = "whatsapp"
)

// ErrServiceStopped is returned when an operation is attempted on a stopped service.
var ErrServiceStopped = errors.New("messaging service stopped")

// Service defines a pluggable message delivery abstraction.
// It supports sending messages and typing indicators and provides a channel
// of incoming participant responses.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient identifier.
	// Returns the canonicalized recipient and an error if validation fails.
	// This allows each service to implement its own recipient validation rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// SendTypingIndicator shows a typing notification to the recipient. The
	// indicator expires on its own; backends without typing support treat
	// this as a no-op.
	SendTypingIndicator(ctx context.Context, to string) error

	// Start begins any background processing (e.g., polling for events).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Responses returns a channel of incoming participant responses.
	Responses() <-chan models.Response
}
