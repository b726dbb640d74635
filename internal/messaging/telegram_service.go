package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danualab/InterviewPipe/internal/models"
)

// Constants for TelegramService configuration
const (
	// DefaultTelegramAPIBaseURL is the Telegram Bot API endpoint.
	DefaultTelegramAPIBaseURL = "https://api.telegram.org"
	// DefaultPollTimeoutSeconds is the getUpdates long-poll timeout.
	DefaultPollTimeoutSeconds = 30
	// DefaultPollRetryDelay is how long to back off after a failed poll.
	DefaultPollRetryDelay = 5 * time.Second
)

// TelegramOpts holds configuration options for the Telegram service.
type TelegramOpts struct {
	APIBaseURL string
	HTTPClient *http.Client
}

// TelegramOption defines a configuration option for the Telegram service.
type TelegramOption func(*TelegramOpts)

// WithTelegramAPIBaseURL overrides the Bot API endpoint (used in tests).
func WithTelegramAPIBaseURL(baseURL string) TelegramOption {
	return func(o *TelegramOpts) { o.APIBaseURL = baseURL }
}

// WithTelegramHTTPClient overrides the HTTP client used for API calls.
func WithTelegramHTTPClient(client *http.Client) TelegramOption {
	return func(o *TelegramOpts) { o.HTTPClient = client }
}

// TelegramService implements Service over the Telegram Bot API using
// getUpdates long polling. Recipients are numeric chat IDs.
type TelegramService struct {
	baseURL   string
	client    *http.Client
	responses chan models.Response
	done      chan struct{}
	mu        sync.RWMutex
	stopped   bool
	offset    int64
}

// NewTelegramService creates a Telegram backend for the given bot token.
func NewTelegramService(token string, opts ...TelegramOption) (*TelegramService, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token must be provided")
	}
	cfg := TelegramOpts{
		APIBaseURL: DefaultTelegramAPIBaseURL,
		// The poll holds for DefaultPollTimeoutSeconds, so the client
		// timeout must sit above it.
		HTTPClient: &http.Client{Timeout: (DefaultPollTimeoutSeconds + 10) * time.Second},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	service := &TelegramService{
		baseURL:   fmt.Sprintf("%s/bot%s", strings.TrimSuffix(cfg.APIBaseURL, "/"), token),
		client:    cfg.HTTPClient,
		responses: make(chan models.Response, DefaultChannelBufferSize),
		done:      make(chan struct{}),
	}
	slog.Debug("TelegramService created", "api_base_set", cfg.APIBaseURL != DefaultTelegramAPIBaseURL)
	return service, nil
}

// ValidateAndCanonicalizeRecipient validates a Telegram chat ID. Group chat
// IDs are negative, so a leading minus sign is allowed.
func (s *TelegramService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical := strings.TrimSpace(recipient)
	if canonical == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	if _, err := strconv.ParseInt(canonical, 10, 64); err != nil {
		return "", fmt.Errorf("invalid telegram chat ID %q", recipient)
	}
	return canonical, nil
}

// SendMessage sends a text message to the given chat.
func (s *TelegramService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TelegramService SendMessage validation error", "error", err, "to", to)
		return err
	}
	chatID, _ := strconv.ParseInt(canonical, 10, 64)

	if err := s.call(ctx, "sendMessage", telegramSendMessageRequest{ChatID: chatID, Text: body}); err != nil {
		slog.Error("TelegramService SendMessage failed", "error", err, "to", canonical)
		return err
	}
	slog.Debug("TelegramService message sent", "to", canonical, "body_length", len(body))
	return nil
}

// SendTypingIndicator shows the "typing..." chat action. Telegram expires the
// action on its own after a few seconds.
func (s *TelegramService) SendTypingIndicator(ctx context.Context, to string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return err
	}
	chatID, _ := strconv.ParseInt(canonical, 10, 64)

	if err := s.call(ctx, "sendChatAction", telegramChatActionRequest{ChatID: chatID, Action: "typing"}); err != nil {
		slog.Debug("TelegramService typing indicator failed", "error", err, "to", canonical)
		return err
	}
	return nil
}

// Start begins the long-polling loop.
func (s *TelegramService) Start(ctx context.Context) error {
	slog.Debug("TelegramService Start invoked")
	go s.poll(ctx)
	return nil
}

// Stop stops polling and closes the responses channel.
func (s *TelegramService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.done)

	// Give in-flight emits a moment to finish before closing the channel.
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(s.responses)
	}()

	slog.Info("TelegramService stopped")
	return nil
}

// Responses returns the channel of incoming chat messages.
func (s *TelegramService) Responses() <-chan models.Response {
	return s.responses
}

// poll repeatedly long-polls getUpdates and forwards text messages into the
// responses channel, advancing the update offset as it goes.
func (s *TelegramService) poll(ctx context.Context) {
	slog.Info("TelegramService polling started")
	for {
		select {
		case <-ctx.Done():
			slog.Debug("TelegramService polling stopped by context")
			return
		case <-s.done:
			slog.Debug("TelegramService polling stopped")
			return
		default:
		}

		updates, err := s.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("TelegramService getUpdates failed, backing off", "error", err, "delay", DefaultPollRetryDelay)
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-time.After(DefaultPollRetryDelay):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= s.offset {
				s.offset = update.UpdateID + 1
			}
			if update.Message == nil || update.Message.Chat == nil || update.Message.Text == "" {
				slog.Debug("TelegramService ignoring non-text update", "update_id", update.UpdateID)
				continue
			}
			s.emitResponse(models.Response{
				From: strconv.FormatInt(update.Message.Chat.ID, 10),
				Body: update.Message.Text,
				Time: update.Message.Date,
			})
		}
	}
}

// emitResponse forwards an incoming message without blocking the poll loop.
func (s *TelegramService) emitResponse(response models.Response) {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		slog.Warn("TelegramService dropping inbound message (service stopped)", "from", response.From)
		return
	}

	select {
	case s.responses <- response:
		slog.Debug("TelegramService incoming message forwarded", "from", response.From, "body_length", len(response.Body))
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TelegramService responses channel blocked, dropping message", "from", response.From, "timeout", DefaultChannelTimeout)
	}
}

func (s *TelegramService) getUpdates(ctx context.Context) ([]telegramUpdate, error) {
	url := fmt.Sprintf("%s/getUpdates?offset=%d&timeout=%d", s.baseURL, s.offset, DefaultPollTimeoutSeconds)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build getUpdates request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getUpdates request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read getUpdates response: %w", err)
	}

	var parsed telegramUpdatesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse getUpdates response: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram API error: %s", parsed.Description)
	}
	return parsed.Result, nil
}

// call POSTs a JSON request to a Bot API method and checks the ok flag.
func (s *TelegramService) call(ctx context.Context, method string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+method, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var parsed telegramAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", method, err)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram %s failed: %s", method, parsed.Description)
	}
	return nil
}

// Bot API wire types, limited to the fields the service reads.

type telegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message,omitempty"`
}

type telegramMessage struct {
	MessageID int64         `json:"message_id"`
	Date      int64         `json:"date"`
	Chat      *telegramChat `json:"chat"`
	Text      string        `json:"text,omitempty"`
}

type telegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type telegramUpdatesResponse struct {
	OK          bool             `json:"ok"`
	Description string           `json:"description,omitempty"`
	Result      []telegramUpdate `json:"result"`
}

type telegramAPIResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

type telegramSendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramChatActionRequest struct {
	ChatID int64  `json:"chat_id"`
	Action string `json:"action"`
}
