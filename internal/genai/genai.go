// Package genai provides the language model completion client used by the
// interview analyzer, the name/age extractor, and the report generator.
//
// The client serializes requests process-wide, retries transient failures,
// and can translate terminal failures into localized replies so conversation
// flows always have something to tell the user.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Defaults for client construction. The endpoint speaks the OpenAI chat
// completion protocol; OpenRouter is the deployment target.
const (
	// DefaultModel is the completion model requested from the API.
	DefaultModel = "google/gemini-2.0-flash-exp:free"
	// DefaultBaseURL points at the OpenRouter endpoint.
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	// DefaultRequestTimeout bounds a single completion request.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultMaxAttempts is how many times a completion is tried before giving up.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the base delay between retry attempts.
	DefaultRetryDelay = 2 * time.Second
	// DefaultMinInterval is the process-wide spacing between completion requests.
	DefaultMinInterval = 2 * time.Second
)

// Error variables for better error handling and testability
var (
	ErrMissingAPIKey     = errors.New("api key not set")
	ErrNoMessages        = errors.New("no messages to send")
	ErrMalformedReply    = errors.New("malformed completion response")
	ErrAttemptsExhausted = errors.New("all completion attempts failed")
)

// Localized failure replies returned by Complete. Conversation flows forward
// these to users verbatim, so they are written in the bot's voice.
const (
	msgRateLimitExhausted = "⏳ متاسفم، در حال حاضر تعداد درخواست‌های زیادی ارسال شده است. لطفاً چند لحظه صبر کنید و دوباره تلاش کنید."
	msgRateLimited        = "⏳ در حال حاضر تعداد درخواست‌های زیادی ارسال شده است. لطفاً چند دقیقه صبر کنید و دوباره تلاش کنید."
	msgTimeout            = "⏱️ درخواست شما بیش از حد طول کشید. لطفاً دوباره تلاش کنید."
	msgUnauthorized       = "❌ خطا در احراز هویت API. لطفاً کلید API را بررسی کنید."
	msgPaymentRequired    = "💰 موجودی حساب شما کافی نیست. لطفاً حساب OpenRouter خود را بررسی کنید."
	msgExhausted          = "⏳ متاسفم، بعد از چندین تلاش موفق به دریافت پاسخ نشد. لطفاً چند لحظه صبر کنید و دوباره تلاش کنید."
)

const (
	msgHTTPErrorFormat  = "⚠️ خطای HTTP %d: %v"
	msgTransportFormat  = "🔌 خطا در ارتباط با API: %v"
	msgParseFormat      = "⚠️ خطا در پردازش پاسخ API: %v"
	msgUnexpectedFormat = "❌ خطای غیرمنتظره: %v"
)

// ClientInterface captures the completion operations consumers depend on.
// Tests substitute scripted implementations.
type ClientInterface interface {
	// GenerateWithMessages sends a prepared message list and returns the reply text.
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
	// GeneratePromptWithContext sends a system/user prompt pair and returns the reply text.
	GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// Complete never fails: terminal errors come back as localized reply text.
	Complete(ctx context.Context, userMessage string, history []openai.ChatCompletionMessageParamUnion, systemPrompt string) string
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	MinInterval time.Duration
}

// Option defines a functional option for configuring the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL sets the API endpoint base URL.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithModel sets the completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithMaxAttempts sets how many times a completion is tried.
func WithMaxAttempts(n int) Option {
	return func(o *Opts) { o.MaxAttempts = n }
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Opts) { o.RetryDelay = d }
}

// WithMinInterval sets the process-wide spacing between requests.
func WithMinInterval(d time.Duration) Option {
	return func(o *Opts) { o.MinInterval = d }
}

// Client wraps the chat completion API with pacing and retry behavior.
type Client struct {
	client      openai.Client
	model       string
	maxAttempts int
	retryDelay  time.Duration
	minInterval time.Duration

	pacingMu    sync.Mutex
	lastRequest time.Time
}

// NewClient initializes a GenAI client. The API key falls back to the
// OPENROUTER_API_KEY environment variable when no option provides one.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		BaseURL:     DefaultBaseURL,
		Model:       DefaultModel,
		Timeout:     DefaultRequestTimeout,
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
		MinInterval: DefaultMinInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	// Retries are owned here so the rate limit pacing applies between attempts.
	cli := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	)

	slog.Info("GenAIClient initialized", "model", cfg.Model, "baseURL", cfg.BaseURL, "timeout", cfg.Timeout)
	return &Client{
		client:      cli,
		model:       cfg.Model,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		minInterval: cfg.MinInterval,
	}, nil
}

// pace enforces the minimum interval between requests. The lock is held
// across the wait so concurrent callers queue instead of bursting.
func (c *Client) pace(ctx context.Context) error {
	c.pacingMu.Lock()
	defer c.pacingMu.Unlock()
	wait := c.minInterval - time.Since(c.lastRequest)
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	c.lastRequest = time.Now()
	return nil
}

// GenerateWithMessages sends a prepared message list and returns the reply
// text. Rate limit responses honor Retry-After when present; timeouts retry
// after the base delay. Other failures return immediately.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := c.pace(ctx); err != nil {
			return "", err
		}

		resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(c.model),
			Messages: messages,
		})
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("%w: empty choices", ErrMalformedReply)
			}
			content := resp.Choices[0].Message.Content
			slog.Debug("GenAIClient completion succeeded", "attempt", attempt+1, "responseLength", len(content))
			return content, nil
		}

		lastErr = err
		if !shouldRetry(err) {
			slog.Warn("GenAIClient completion failed", "attempt", attempt+1, "error", err)
			return "", err
		}
		if attempt == c.maxAttempts-1 {
			break
		}

		delay := c.retryBackoff(err, attempt)
		slog.Warn("GenAIClient retrying after transient failure", "attempt", attempt+1, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	slog.Warn("GenAIClient attempts exhausted", "attempts", c.maxAttempts, "error", lastErr)
	return "", fmt.Errorf("%w: %w", ErrAttemptsExhausted, lastErr)
}

// GeneratePromptWithContext sends a system/user prompt pair and returns the reply text.
func (c *Client) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))
	return c.GenerateWithMessages(ctx, messages)
}

// Complete sends one user message with optional history and system prompt.
// It never returns an error: terminal failures are mapped to localized reply
// text so callers always have something to say.
func (c *Client) Complete(ctx context.Context, userMessage string, history []openai.ChatCompletionMessageParamUnion, systemPrompt string) string {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, history...)
	messages = append(messages, openai.UserMessage(userMessage))

	resp, err := c.GenerateWithMessages(ctx, messages)
	if err != nil {
		return localizeError(err)
	}
	return resp
}

// shouldRetry reports whether the failure is transient.
func shouldRetry(err error) bool {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode == http.StatusTooManyRequests
	}
	return isTimeout(err)
}

// retryBackoff picks the delay before the next attempt.
func (c *Client) retryBackoff(err error, attempt int) time.Duration {
	var apierr *openai.Error
	if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
		return retryAfterDelay(apierr, c.retryDelay*time.Duration(attempt+1))
	}
	return c.retryDelay
}

// retryAfterDelay honors the Retry-After header on rate limit responses.
func retryAfterDelay(apierr *openai.Error, fallback time.Duration) time.Duration {
	if apierr.Response == nil {
		return fallback
	}
	v := apierr.Response.Header.Get("Retry-After")
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// localizeError maps a completion failure to the reply text users see.
func localizeError(err error) string {
	var apierr *openai.Error
	switch {
	case errors.As(err, &apierr):
		switch apierr.StatusCode {
		case http.StatusTooManyRequests:
			if errors.Is(err, ErrAttemptsExhausted) {
				return msgRateLimitExhausted
			}
			return msgRateLimited
		case http.StatusUnauthorized:
			return msgUnauthorized
		case http.StatusPaymentRequired:
			return msgPaymentRequired
		default:
			return fmt.Sprintf(msgHTTPErrorFormat, apierr.StatusCode, err)
		}
	case isTimeout(err):
		return msgTimeout
	case errors.Is(err, ErrMalformedReply):
		return fmt.Sprintf(msgParseFormat, err)
	case errors.Is(err, ErrAttemptsExhausted):
		return msgExhausted
	default:
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Sprintf(msgTransportFormat, err)
		}
		return fmt.Sprintf(msgUnexpectedFormat, err)
	}
}
