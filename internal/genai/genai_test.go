package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go"
)

func apiError(status int) *openai.Error {
	return &openai.Error{
		StatusCode: status,
		Request: &http.Request{
			Method: http.MethodPost,
			URL:    &url.URL{Scheme: "https", Host: "openrouter.ai", Path: "/api/v1/chat/completions"},
		},
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	if _, err := NewClient(); err != ErrMissingAPIKey {
		t.Errorf("NewClient() without key = %v, want %v", err, ErrMissingAPIKey)
	}
}

func TestNewClientReadsEnvironmentKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	c, err := NewClient(WithModel("test-model"))
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}
	if c.model != "test-model" {
		t.Errorf("model = %q, want %q", c.model, "test-model")
	}
	if c.maxAttempts != DefaultMaxAttempts {
		t.Errorf("maxAttempts = %d, want %d", c.maxAttempts, DefaultMaxAttempts)
	}
}

func TestGenerateWithMessagesRejectsEmptyInput(t *testing.T) {
	c := &Client{maxAttempts: 1}
	if _, err := c.GenerateWithMessages(context.Background(), nil); err != ErrNoMessages {
		t.Errorf("GenerateWithMessages(nil) = %v, want %v", err, ErrNoMessages)
	}
}

func TestPaceSpacesConsecutiveRequests(t *testing.T) {
	c := &Client{minInterval: 40 * time.Millisecond}
	ctx := context.Background()
	if err := c.pace(ctx); err != nil {
		t.Fatalf("first pace() = %v", err)
	}
	start := time.Now()
	if err := c.pace(ctx); err != nil {
		t.Fatalf("second pace() = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("second request after %v, want at least the configured interval", elapsed)
	}
}

func TestPaceHonorsContextCancellation(t *testing.T) {
	c := &Client{minInterval: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	if err := c.pace(ctx); err != nil {
		t.Fatalf("first pace() = %v", err)
	}
	cancel()
	if err := c.pace(ctx); err != context.Canceled {
		t.Errorf("pace() on cancelled context = %v, want %v", err, context.Canceled)
	}
}

func TestShouldRetry(t *testing.T) {
	if !shouldRetry(apiError(http.StatusTooManyRequests)) {
		t.Error("rate limit response should retry")
	}
	if shouldRetry(apiError(http.StatusInternalServerError)) {
		t.Error("server error should not retry")
	}
	if shouldRetry(apiError(http.StatusUnauthorized)) {
		t.Error("auth failure should not retry")
	}
	if !shouldRetry(context.DeadlineExceeded) {
		t.Error("timeout should retry")
	}
	if shouldRetry(errors.New("boom")) {
		t.Error("arbitrary error should not retry")
	}
}

func TestRetryAfterDelay(t *testing.T) {
	fallback := 5 * time.Second

	withHeader := apiError(http.StatusTooManyRequests)
	withHeader.Response = &http.Response{Header: http.Header{"Retry-After": []string{"7"}}}
	if d := retryAfterDelay(withHeader, fallback); d != 7*time.Second {
		t.Errorf("delay with Retry-After header = %v, want 7s", d)
	}

	if d := retryAfterDelay(apiError(http.StatusTooManyRequests), fallback); d != fallback {
		t.Errorf("delay without response = %v, want fallback %v", d, fallback)
	}

	badHeader := apiError(http.StatusTooManyRequests)
	badHeader.Response = &http.Response{Header: http.Header{"Retry-After": []string{"soon"}}}
	if d := retryAfterDelay(badHeader, fallback); d != fallback {
		t.Errorf("delay with unparsable header = %v, want fallback %v", d, fallback)
	}
}

func TestLocalizeErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"unauthorized", apiError(http.StatusUnauthorized), msgUnauthorized},
		{"payment required", apiError(http.StatusPaymentRequired), msgPaymentRequired},
		{"rate limited", apiError(http.StatusTooManyRequests), msgRateLimited},
		{
			"rate limited after retries",
			fmt.Errorf("%w: %w", ErrAttemptsExhausted, apiError(http.StatusTooManyRequests)),
			msgRateLimitExhausted,
		},
		{"timeout", context.DeadlineExceeded, msgTimeout},
		{
			"timeout after retries",
			fmt.Errorf("%w: %w", ErrAttemptsExhausted, context.DeadlineExceeded),
			msgTimeout,
		},
		{
			"exhausted for another reason",
			fmt.Errorf("%w: %w", ErrAttemptsExhausted, errors.New("boom")),
			msgExhausted,
		},
	}
	for _, tc := range cases {
		if got := localizeError(tc.err); got != tc.want {
			t.Errorf("%s: localizeError() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestLocalizeErrorFormattedReplies(t *testing.T) {
	if got := localizeError(apiError(http.StatusInternalServerError)); !strings.Contains(got, "500") {
		t.Errorf("server error reply %q does not mention the status", got)
	}

	transport := &url.Error{Op: "Post", URL: "https://openrouter.ai", Err: errors.New("connection refused")}
	if got := localizeError(transport); !strings.HasPrefix(got, "🔌") {
		t.Errorf("transport reply %q does not use the transport prefix", got)
	}

	malformed := fmt.Errorf("%w: empty choices", ErrMalformedReply)
	if got := localizeError(malformed); !strings.HasPrefix(got, "⚠️ خطا در پردازش") {
		t.Errorf("malformed reply %q does not use the parse prefix", got)
	}

	if got := localizeError(errors.New("boom")); !strings.HasPrefix(got, "❌") {
		t.Errorf("unexpected reply %q does not use the unexpected prefix", got)
	}
}
