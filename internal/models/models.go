// Package models defines the core data structures for InterviewPipe.
//
// It includes the interview state machine vocabulary, per-user session data,
// analyzer verdicts, and orchestration results, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// InterviewState identifies where a user is in the interview lifecycle.
type InterviewState string

const (
	// StateWaitingForStart means the user has not begun the interview yet.
	StateWaitingForStart InterviewState = "WAITING_FOR_START"
	// StateGettingNameAge means the bot is collecting the user's name and age.
	StateGettingNameAge InterviewState = "GETTING_NAME_AGE"
	// StateAskingQuestion means a main question has been asked and awaits its first answer.
	StateAskingQuestion InterviewState = "ASKING_QUESTION"
	// StateFollowingUp means the last answer was judged incomplete and a follow-up was sent.
	StateFollowingUp InterviewState = "FOLLOWING_UP"
	// StateCompleted means every question has been answered.
	StateCompleted InterviewState = "COMPLETED"
)

// Validation constants shared across modules.
const (
	// MaxMessageLength defines the longest message body a chat transport accepts.
	MaxMessageLength = 4096
	// MinTypicalAge is the youngest age the interview expects.
	MinTypicalAge = 3
	// MaxTypicalAge is the oldest age the interview expects.
	MaxTypicalAge = 20
	// MinNameLength is the shortest plausible participant name, in runes.
	MinNameLength = 2
)

// Error variables for better error handling and testability
var (
	ErrEmptyUserID          = errors.New("user id cannot be empty")
	ErrEmptyRecipient       = errors.New("recipient cannot be empty")
	ErrEmptyBody            = errors.New("message body cannot be empty")
	ErrSessionNotFound      = errors.New("session not found")
	ErrInvalidState         = errors.New("invalid interview state")
	ErrNoInterviewData      = errors.New("interview data is missing")
	ErrInterviewIncomplete  = errors.New("interview is not complete")
	ErrEmptyQuestionText    = errors.New("question text cannot be empty")
	ErrEmptyQuestionTopic   = errors.New("question topic cannot be empty")
	ErrNoRequiredElements   = errors.New("question needs at least one required element")
	ErrEmptyQuestionBank    = errors.New("question bank cannot be empty")
	ErrEmptyRecordID        = errors.New("record id cannot be empty")
	ErrEmptyReportContent   = errors.New("report content cannot be empty")
	ErrEmptyAnalysisAnswers = errors.New("no answers available for analysis")
)

// IsValidInterviewState checks if the given state is part of the interview lifecycle.
func IsValidInterviewState(s InterviewState) bool {
	switch s {
	case StateWaitingForStart, StateGettingNameAge, StateAskingQuestion, StateFollowingUp, StateCompleted:
		return true
	default:
		return false
	}
}

// Question is one interview question together with the content elements a
// complete answer must cover.
type Question struct {
	Text             string   `json:"text"`
	Topic            string   `json:"topic"`
	RequiredElements []string `json:"required_elements"`
}

// Validate performs validation on a Question structure.
func (q *Question) Validate() error {
	if q.Text == "" {
		return ErrEmptyQuestionText
	}
	if q.Topic == "" {
		return ErrEmptyQuestionTopic
	}
	if len(q.RequiredElements) == 0 {
		return ErrNoRequiredElements
	}
	return nil
}

// Session holds the full in-flight interview state for one user.
//
// Answers and FollowUpCounts are keyed by zero-based question index.
// Sessions live in memory only; completed interviews are archived separately.
type Session struct {
	UserID               string         `json:"user_id"`
	State                InterviewState `json:"state"`
	Name                 string         `json:"name,omitempty"`
	Age                  int            `json:"age,omitempty"`
	CurrentQuestionIndex int            `json:"current_question_index"`
	Answers              map[int]string `json:"answers,omitempty"`
	FollowUpCounts       map[int]int    `json:"follow_up_counts,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// NewSession creates a Session in the initial state with allocated maps.
func NewSession(userID string) *Session {
	now := time.Now()
	return &Session{
		UserID:         userID,
		State:          StateWaitingForStart,
		Answers:        make(map[int]string),
		FollowUpCounts: make(map[int]int),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AppendAnswer accumulates an answer fragment for the question at index idx.
// Successive fragments for the same question are joined with a blank line so
// the full answer reads as one narrative.
func (s *Session) AppendAnswer(idx int, text string) {
	if existing, ok := s.Answers[idx]; ok && existing != "" {
		s.Answers[idx] = existing + "\n\n" + text
	} else {
		s.Answers[idx] = text
	}
}

// AnalysisVerdict is the analyzer's judgment of one answer.
type AnalysisVerdict struct {
	IsComplete      bool     `json:"is_complete"`
	MissingElements []string `json:"missing_elements,omitempty"`
	Feedback        string   `json:"feedback"`
}

// InterviewResult is the flattened payload of a finished interview, keyed the
// way downstream consumers expect: Answers maps one-based question numbers to
// the accumulated answer text.
type InterviewResult struct {
	UserID  string         `json:"user_id"`
	Name    string         `json:"name"`
	Age     int            `json:"age"`
	Answers map[int]string `json:"answers"`
}

// TurnResult is what the supervisor returns for one processed user message.
type TurnResult struct {
	Message               string           `json:"message"`
	State                 InterviewState   `json:"state"`
	IsComplete            bool             `json:"is_complete"`
	ShouldTriggerAnalysis bool             `json:"should_trigger_analysis"`
	Data                  *InterviewResult `json:"interview_data,omitempty"`
	ValidationMessage     string           `json:"validation_message,omitempty"`
}

// Progress summarizes how far a user has advanced through the interview.
type Progress struct {
	CurrentQuestion    int            `json:"current_question"`
	TotalQuestions     int            `json:"total_questions"`
	ProgressPercentage int            `json:"progress_percentage"`
	AnswersCount       int            `json:"answers_count"`
	State              InterviewState `json:"state"`
}

// Response represents an incoming message from a participant.
type Response struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// API Response types for consistent JSON responses

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
