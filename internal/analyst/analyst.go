// Package analyst turns a validated interview result into a narrative
// learning report through one completion call, with a deterministic fallback
// report when generation fails.
package analyst

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/danualab/InterviewPipe/internal/genai"
	"github.com/danualab/InterviewPipe/internal/models"
	"github.com/danualab/InterviewPipe/internal/validator"
)

const reportSystemPrompt = `تو یک تحلیلگر یادگیری حرفه‌ای هستی که مصاحبه‌های کودکان و نوجوانان درباره یادگیری را تحلیل می‌کنی. گزارش‌هایت ساختارمند، دقیق و به زبان فارسی هستند.`

const reportPromptFormat = `بر اساس مصاحبه زیر، یک گزارش تحلیل یادگیری کامل بنویس.

اطلاعات کاربر:
نام: %s
سن: %s

پاسخ‌های مصاحبه:
%s
گزارش را با این ساختار بنویس:
🟩 1. اطلاعات اولیه
🟩 2. علایق و انگیزه‌های یادگیری
🟩 3. روش یادگیری ترجیحی
🟩 4. عوامل بی‌انگیزگی
🟩 5. پیشنهادهای آموزشی

برای هر بخش چند جمله تحلیل بنویس. فقط گزارش را برگردان.`

// Analyst generates learning reports from completed interviews.
type Analyst struct {
	client    genai.ClientInterface
	validator *validator.Validator
	questions []models.Question
}

// New creates an analyst for the given question sequence.
func New(client genai.ClientInterface, questions []models.Question) *Analyst {
	return &Analyst{
		client:    client,
		validator: validator.New(len(questions)),
		questions: questions,
	}
}

// Generate produces the learning report for result. It never fails: data
// gaps, generation errors, and blank replies all degrade to the fallback
// report. The second return reports whether the fallback was used.
func (a *Analyst) Generate(ctx context.Context, result *models.InterviewResult) (string, bool) {
	if err := a.validator.ValidateCompletion(result); err != nil {
		slog.Warn("Analyst interview data incomplete, using fallback report", "error", err)
		return a.FallbackReport(result), true
	}

	prompt := fmt.Sprintf(reportPromptFormat,
		nameLabel(result.Name), ageLabel(result.Age), a.transcript(result))
	report, err := a.client.GeneratePromptWithContext(ctx, reportSystemPrompt, prompt)
	if err != nil {
		slog.Error("Analyst report generation failed", "userID", result.UserID, "error", err)
		return a.FallbackReport(result), true
	}
	if strings.TrimSpace(report) == "" {
		slog.Warn("Analyst report reply was empty, using fallback", "userID", result.UserID)
		return a.FallbackReport(result), true
	}

	slog.Debug("Analyst report generated", "userID", result.UserID, "length", len(report))
	return report, false
}

// transcript renders the answers as numbered, topic-labeled lines for the
// report prompt.
func (a *Analyst) transcript(result *models.InterviewResult) string {
	var b strings.Builder
	for i, q := range a.questions {
		answer := result.Answers[i+1]
		if strings.TrimSpace(answer) == "" {
			answer = "ندارد"
		}
		fmt.Fprintf(&b, "سوال %d (%s): %s\n", i+1, q.Topic, answer)
	}
	return b.String()
}
