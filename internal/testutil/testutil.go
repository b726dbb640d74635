// Package testutil provides common test utilities and helpers for InterviewPipe tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/openai/openai-go"

	"github.com/danualab/InterviewPipe/internal/models"
)

// ErrScriptExhausted is returned when a ScriptedCompleter runs out of steps.
var ErrScriptExhausted = errors.New("completer script exhausted")

type scriptStep struct {
	reply string
	err   error
}

// ScriptedCompleter is a genai.ClientInterface implementation that replays
// canned replies in order and records the prompts it was asked.
type ScriptedCompleter struct {
	mu    sync.Mutex
	queue []scriptStep

	// Prompts collects the user-visible prompt of every call, in order.
	Prompts []string
	// SystemPrompts collects the system prompt of every call, in order.
	SystemPrompts []string
}

// NewScriptedCompleter creates an empty completer; enqueue steps with Reply and Fail.
func NewScriptedCompleter() *ScriptedCompleter {
	return &ScriptedCompleter{}
}

// Reply enqueues a successful completion.
func (s *ScriptedCompleter) Reply(text string) *ScriptedCompleter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, scriptStep{reply: text})
	return s
}

// Fail enqueues a failing completion.
func (s *ScriptedCompleter) Fail(err error) *ScriptedCompleter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, scriptStep{err: err})
	return s
}

// Calls reports how many completions have been consumed.
func (s *ScriptedCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}

func (s *ScriptedCompleter) next(userPrompt, systemPrompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, userPrompt)
	s.SystemPrompts = append(s.SystemPrompts, systemPrompt)
	if len(s.queue) == 0 {
		return "", ErrScriptExhausted
	}
	step := s.queue[0]
	s.queue = s.queue[1:]
	return step.reply, step.err
}

// GenerateWithMessages implements genai.ClientInterface.
func (s *ScriptedCompleter) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	return s.next("", "")
}

// GeneratePromptWithContext implements genai.ClientInterface.
func (s *ScriptedCompleter) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.next(userPrompt, systemPrompt)
}

// Complete implements genai.ClientInterface. Failures surface as reply text,
// matching the real client's contract.
func (s *ScriptedCompleter) Complete(ctx context.Context, userMessage string, history []openai.ChatCompletionMessageParamUnion, systemPrompt string) string {
	reply, err := s.next(userMessage, systemPrompt)
	if err != nil {
		return "❌ خطای غیرمنتظره: " + err.Error()
	}
	return reply
}

// SampleQuestions returns a small question set using the canonical element
// vocabulary, so keyword heuristics behave the same as with the real bank.
func SampleQuestions() []models.Question {
	return []models.Question{
		{
			Text:             "یه زمانی رو بگو که یاد گرفتن یه چیزی خیلی برات جذاب شد. چی بود و چه حسی داشتی؟",
			Topic:            "یادگیری معتادکننده",
			RequiredElements: []string{"موضوع یادگیری", "محرک انگیزشی", "احساس یا هیجان"},
		},
		{
			Text:             "چه بازی‌هایی دوست داری و چه حسی بهت می‌دن؟",
			Topic:            "بازی‌های مورد علاقه",
			RequiredElements: []string{"بازی یا فعالیت", "احساس یا هیجان"},
		},
		{
			Text:             "دوست داری تنهایی یاد بگیری یا تیمی؟",
			Topic:            "یادگیری تیمی یا شخصی",
			RequiredElements: []string{"ترجیح تیمی/شخصی", "احساس یا هیجان"},
		},
	}
}

// SampleQuestion returns the first sample question.
func SampleQuestion() models.Question {
	return SampleQuestions()[0]
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes a JSON response body and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with an optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}
