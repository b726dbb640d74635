// Package supervisor orchestrates the interview workflow.
//
// It runs each user turn through the interview agent, validates completed
// interviews before any analysis is triggered, archives results and reports,
// and exposes progress for the operational API. Validation failures never
// block the conversation: the user still receives the agent's reply and the
// problem is surfaced through the turn's validation message and the logs.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/danualab/InterviewPipe/internal/analyst"
	"github.com/danualab/InterviewPipe/internal/config"
	"github.com/danualab/InterviewPipe/internal/genai"
	"github.com/danualab/InterviewPipe/internal/interview"
	"github.com/danualab/InterviewPipe/internal/models"
	"github.com/danualab/InterviewPipe/internal/store"
	"github.com/danualab/InterviewPipe/internal/validator"
	"github.com/google/uuid"
)

const (
	validationOKMessage     = "✅ مصاحبه کامل و معتبر است"
	validationFailedFormat  = "⚠️ خطا در اعتبارسنجی: %v"
	reportNoDataMessage     = "⚠️ داده‌های مصاحبه موجود نیست"
	reportInvalidDataFormat = "⚠️ خطا در اعتبارسنجی داده‌ها: %v"
)

// Supervisor coordinates the interview agent, the data validator, the
// analyst, and the archive store.
type Supervisor struct {
	agent     *interview.Agent
	validator *validator.Validator
	analyst   *analyst.Analyst
	store     store.Store
}

// New assembles the full interview workflow on top of a completion client,
// a question bank, and an archive store.
func New(client genai.ClientInterface, bank *config.Bank, st store.Store) *Supervisor {
	questions := bank.ModelQuestions()
	return &Supervisor{
		agent:     interview.NewAgent(client, bank),
		validator: validator.New(len(questions)),
		analyst:   analyst.New(client, questions),
		store:     st,
	}
}

// HandleTurn processes one user message. On the turn that completes an
// interview it validates the derived result; analysis is triggered and the
// result archived only when validation passes. Turns after completion repeat
// the agent's reminder without re-triggering analysis.
func (s *Supervisor) HandleTurn(ctx context.Context, userID, message string) models.TurnResult {
	turn := s.agent.ProcessMessage(ctx, userID, message)

	result := models.TurnResult{
		Message:    turn.Message,
		State:      turn.State,
		IsComplete: turn.IsComplete,
	}
	if !turn.JustCompleted || turn.Result == nil {
		return result
	}

	if err := s.validator.ValidateCompletion(turn.Result); err != nil {
		slog.Warn("Supervisor validation failed for completed interview", "userID", userID, "error", err)
		result.ValidationMessage = fmt.Sprintf(validationFailedFormat, err)
		return result
	}
	if _, warnings := s.validator.ValidateQuality(turn.Result); len(warnings) > 0 {
		slog.Warn("Supervisor data quality warnings", "userID", userID, "warnings", warnings)
	}

	result.ShouldTriggerAnalysis = true
	result.Data = turn.Result
	result.ValidationMessage = validationOKMessage
	s.archiveResult(turn.Result)
	return result
}

// GenerateReport validates the interview data once more and produces the
// analysis report, archiving whatever was generated. The returned string is
// always presentable: validation problems come back as localized notices and
// analysis degradation is covered by the analyst's fallback report.
func (s *Supervisor) GenerateReport(ctx context.Context, data *models.InterviewResult) string {
	if data == nil {
		slog.Warn("Supervisor report requested without interview data")
		return reportNoDataMessage
	}
	if err := s.validator.ValidateCompletion(data); err != nil {
		slog.Warn("Supervisor report data failed validation", "userID", data.UserID, "error", err)
		return fmt.Sprintf(reportInvalidDataFormat, err)
	}

	report, fallback := s.analyst.Generate(ctx, data)
	s.archiveReport(data, report, fallback)
	return report
}

// Progress reports how far a user's interview has advanced, or nil when the
// user has no session.
func (s *Supervisor) Progress(userID string) *models.Progress {
	sess, ok := s.agent.Session(userID)
	if !ok {
		return nil
	}
	total := s.agent.QuestionCount()
	pct := 0
	if total > 0 {
		pct = sess.CurrentQuestionIndex * 100 / total
	}
	return &models.Progress{
		CurrentQuestion:    sess.CurrentQuestionIndex + 1,
		TotalQuestions:     total,
		ProgressPercentage: pct,
		AnswersCount:       len(sess.Answers),
		State:              sess.State,
	}
}

// Start begins a fresh interview for the user and returns the introduction.
func (s *Supervisor) Start(userID string) string {
	return s.agent.Start(userID)
}

// Reset discards the user's interview session.
func (s *Supervisor) Reset(userID string) {
	s.agent.Reset(userID)
}

// ActiveSessions reports how many interview sessions are currently held.
func (s *Supervisor) ActiveSessions() int {
	return s.agent.ActiveSessions()
}

// archiveResult stores a completed interview. Archiving is best effort:
// failures are logged and never affect the user-facing turn.
func (s *Supervisor) archiveResult(res *models.InterviewResult) {
	rec := models.InterviewRecord{
		ID:        uuid.New().String(),
		UserID:    res.UserID,
		Name:      res.Name,
		Age:       res.Age,
		Answers:   res.Answers,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveInterviewResult(rec); err != nil {
		slog.Warn("Supervisor failed to archive interview result", "userID", res.UserID, "error", err)
		return
	}
	slog.Debug("Supervisor archived interview result", "userID", res.UserID, "recordID", rec.ID)
}

// archiveReport stores a generated report, linked to the user's most recent
// archived interview when one exists.
func (s *Supervisor) archiveReport(data *models.InterviewResult, content string, fallback bool) {
	var interviewID string
	if records, err := s.store.ListInterviewResults(data.UserID); err == nil && len(records) > 0 {
		interviewID = records[0].ID
	}
	rec := models.ReportRecord{
		ID:          uuid.New().String(),
		UserID:      data.UserID,
		InterviewID: interviewID,
		Content:     content,
		IsFallback:  fallback,
		CreatedAt:   time.Now(),
	}
	if err := s.store.SaveReport(rec); err != nil {
		slog.Warn("Supervisor failed to archive report", "userID", data.UserID, "error", err)
		return
	}
	slog.Debug("Supervisor archived report", "userID", data.UserID, "reportID", rec.ID, "fallback", fallback)
}
