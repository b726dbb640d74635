// Package interview drives the multi-turn interview: one in-memory session
// per user, persona question interception, name and age capture, and the
// question/follow-up loop judged by the response analyzer.
package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danualab/InterviewPipe/internal/analyzer"
	"github.com/danualab/InterviewPipe/internal/config"
	"github.com/danualab/InterviewPipe/internal/genai"
	"github.com/danualab/InterviewPipe/internal/models"
)

const (
	completedMessage = "مصاحبه قبلاً تمام شده. برای شروع مصاحبه جدید، /start رو بزن. اگر سوال دیگه‌ای داری، می‌تونی بپرسی! 😊"

	acknowledgeFormat = "عالی %s! 😊 حالا بذار سوالات رو شروع کنیم.\n\n%s"
	askMissingFormat  = "لطفاً %s خودت رو بهم بده.\nمثلاً: «من [نام] هستم و [سن] سال دارم»"
)

// Turn is the outcome of one processed user message. JustCompleted is set
// only on the turn that finishes the interview; later turns in a completed
// session carry IsComplete and the re-derived Result but not JustCompleted.
type Turn struct {
	Message       string
	State         models.InterviewState
	IsComplete    bool
	JustCompleted bool
	Result        *models.InterviewResult
}

// Agent owns the interview sessions and moves each one through its states.
type Agent struct {
	sessions  *SessionStore
	analyzer  *analyzer.Analyzer
	client    genai.ClientInterface
	bank      *config.Bank
	questions []models.Question
}

// NewAgent creates an interview agent over a validated question bank. The
// completion client serves both answer analysis and name/age extraction.
func NewAgent(client genai.ClientInterface, bank *config.Bank) *Agent {
	return &Agent{
		sessions:  NewSessionStore(),
		analyzer:  analyzer.New(client, bank.Persona.SystemPrompt),
		client:    client,
		bank:      bank,
		questions: bank.ModelQuestions(),
	}
}

// Start begins a fresh interview for userID, replacing any existing session,
// and returns the introduction text.
func (a *Agent) Start(userID string) string {
	sess := models.NewSession(userID)
	sess.State = models.StateGettingNameAge
	a.sessions.Put(sess)
	slog.Debug("InterviewAgent interview started", "userID", userID)
	return a.bank.Messages.Introduction
}

// ProcessMessage advances the user's interview by one turn. Persona
// questions short-circuit before any state logic and leave the session
// untouched. A message from a user with no session starts one.
func (a *Agent) ProcessMessage(ctx context.Context, userID, message string) Turn {
	if reply, ok := a.personaReply(message); ok {
		slog.Debug("InterviewAgent persona question intercepted", "userID", userID)
		return Turn{Message: reply, State: a.StateOf(userID)}
	}

	sess, ok := a.sessions.Get(userID)
	if !ok {
		return Turn{Message: a.Start(userID), State: models.StateGettingNameAge}
	}

	switch sess.State {
	case models.StateGettingNameAge:
		return a.handleGettingNameAge(ctx, sess, message)
	case models.StateAskingQuestion:
		return a.handleAskingQuestion(ctx, sess, message)
	case models.StateFollowingUp:
		return a.handleFollowingUp(ctx, sess, message)
	case models.StateCompleted:
		return a.handleCompleted(sess)
	default:
		slog.Warn("InterviewAgent session in unknown state, restarting", "userID", userID, "state", sess.State)
		return Turn{Message: a.Start(userID), State: models.StateGettingNameAge}
	}
}

// handleGettingNameAge captures the user's name and age, trying structured
// extraction before a one-shot model call. Both fields must resolve before
// the first question is asked; otherwise the user is asked again for the
// missing field(s).
func (a *Agent) handleGettingNameAge(ctx context.Context, sess *models.Session, message string) Turn {
	sess.UpdatedAt = time.Now()

	name, age := extractNameAge(message)
	if name == "" || age == 0 {
		mname, mage := a.extractWithModel(ctx, message)
		if mname != "" {
			name = mname
		}
		if mage != 0 {
			age = mage
		}
	}

	if name != "" && age != 0 {
		sess.Name = name
		sess.Age = age
		sess.State = models.StateAskingQuestion
		slog.Debug("InterviewAgent captured name and age", "userID", sess.UserID, "name", name, "age", age)
		return Turn{
			Message: fmt.Sprintf(acknowledgeFormat, name, a.questions[0].Text),
			State:   models.StateAskingQuestion,
		}
	}

	missing := make([]string, 0, 2)
	if name == "" {
		missing = append(missing, "نام")
	}
	if age == 0 {
		missing = append(missing, "سن")
	}
	slog.Debug("InterviewAgent still missing identity fields", "userID", sess.UserID, "missing", missing)
	return Turn{
		Message: fmt.Sprintf(askMissingFormat, strings.Join(missing, "، ")),
		State:   models.StateGettingNameAge,
	}
}

// handleAskingQuestion records the answer to the current question and either
// advances or opens a follow-up round. The analysis runs with the follow-up
// count as stored; it is incremented only when the answer falls short.
func (a *Agent) handleAskingQuestion(ctx context.Context, sess *models.Session, message string) Turn {
	sess.UpdatedAt = time.Now()
	idx := sess.CurrentQuestionIndex
	question := a.questions[idx]

	sess.AppendAnswer(idx, message)
	verdict := a.analyzer.Analyze(ctx, question, sess.Answers[idx], sess.FollowUpCounts[idx])
	if verdict.IsComplete {
		return a.advance(sess)
	}

	sess.FollowUpCounts[idx]++
	sess.State = models.StateFollowingUp
	slog.Debug("InterviewAgent requesting follow-up",
		"userID", sess.UserID, "questionIndex", idx,
		"followUpCount", sess.FollowUpCounts[idx], "missing", verdict.MissingElements)
	return Turn{Message: verdict.Feedback, State: models.StateFollowingUp}
}

// handleFollowingUp folds the reply into the accumulated answer and
// re-analyzes. The follow-up count is incremented first: this reply is one
// more round, and the analyzer grows more lenient as rounds pass.
func (a *Agent) handleFollowingUp(ctx context.Context, sess *models.Session, message string) Turn {
	sess.UpdatedAt = time.Now()
	idx := sess.CurrentQuestionIndex
	question := a.questions[idx]

	sess.AppendAnswer(idx, message)
	sess.FollowUpCounts[idx]++
	verdict := a.analyzer.Analyze(ctx, question, sess.Answers[idx], sess.FollowUpCounts[idx])
	if verdict.IsComplete {
		return a.advance(sess)
	}

	slog.Debug("InterviewAgent follow-up still incomplete",
		"userID", sess.UserID, "questionIndex", idx,
		"followUpCount", sess.FollowUpCounts[idx], "missing", verdict.MissingElements)
	return Turn{Message: verdict.Feedback, State: models.StateFollowingUp}
}

// handleCompleted answers messages that arrive after the interview is done.
func (a *Agent) handleCompleted(sess *models.Session) Turn {
	return Turn{
		Message:    completedMessage,
		State:      models.StateCompleted,
		IsComplete: true,
		Result:     a.result(sess),
	}
}

// advance marks the current question complete and either asks the next one,
// prefixed with an encouragement, or finishes the interview.
func (a *Agent) advance(sess *models.Session) Turn {
	sess.FollowUpCounts[sess.CurrentQuestionIndex] = 0
	sess.CurrentQuestionIndex++

	if sess.CurrentQuestionIndex >= len(a.questions) {
		sess.State = models.StateCompleted
		slog.Info("InterviewAgent interview completed",
			"userID", sess.UserID, "questions", len(a.questions))
		return Turn{
			Message:       a.bank.Messages.Completion,
			State:         models.StateCompleted,
			IsComplete:    true,
			JustCompleted: true,
			Result:        a.result(sess),
		}
	}

	sess.State = models.StateAskingQuestion
	next := a.questions[sess.CurrentQuestionIndex]
	message := next.Text
	if enc := a.bank.Encouragement(sess.CurrentQuestionIndex); enc != "" {
		message = enc + "\n\n" + next.Text
	}
	return Turn{Message: message, State: models.StateAskingQuestion}
}

// result derives the final interview record from a session. Answers are
// keyed 1-based to match the question numbering users see.
func (a *Agent) result(sess *models.Session) *models.InterviewResult {
	res := &models.InterviewResult{
		UserID:  sess.UserID,
		Name:    sess.Name,
		Age:     sess.Age,
		Answers: make(map[int]string, len(a.questions)),
	}
	for i := range a.questions {
		res.Answers[i+1] = sess.Answers[i]
	}
	return res
}

// Reset discards the user's session. The next message starts over.
func (a *Agent) Reset(userID string) {
	a.sessions.Delete(userID)
	slog.Debug("InterviewAgent session reset", "userID", userID)
}

// StateOf reports the user's current state, WaitingForStart when no session
// exists.
func (a *Agent) StateOf(userID string) models.InterviewState {
	if sess, ok := a.sessions.Get(userID); ok {
		return sess.State
	}
	return models.StateWaitingForStart
}

// Session exposes the live session for progress reporting.
func (a *Agent) Session(userID string) (*models.Session, bool) {
	return a.sessions.Get(userID)
}

// QuestionCount reports how many questions the interview asks.
func (a *Agent) QuestionCount() int {
	return len(a.questions)
}

// ActiveSessions reports the number of interviews currently in flight.
func (a *Agent) ActiveSessions() int {
	return a.sessions.Len()
}
