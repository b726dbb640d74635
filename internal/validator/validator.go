// Package validator checks interview results for completeness before any
// analysis runs, and flags quality concerns without blocking.
package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/danualab/InterviewPipe/internal/models"
)

// minAnswerRunes is the advisory lower bound below which an answer is
// flagged as very short.
const minAnswerRunes = 10

// Validator validates interview results against the configured question
// count.
type Validator struct {
	questionCount int
}

// New creates a validator for interviews of questionCount questions.
func New(questionCount int) *Validator {
	return &Validator{questionCount: questionCount}
}

// ValidateCompletion checks that the result carries every required field: a
// name, an age, and a non-blank answer for every question. It returns nil
// for a complete result, otherwise an error naming what is missing.
func (v *Validator) ValidateCompletion(result *models.InterviewResult) error {
	if result == nil {
		return models.ErrNoInterviewData
	}

	var missing []string
	for i := 1; i <= v.questionCount; i++ {
		if _, ok := result.Answers[i]; !ok {
			missing = append(missing, fmt.Sprintf("q%d", i))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	var empty []string
	for i := 1; i <= v.questionCount; i++ {
		if strings.TrimSpace(result.Answers[i]) == "" {
			empty = append(empty, fmt.Sprintf("سوال %d", i))
		}
	}
	if len(empty) > 0 {
		return fmt.Errorf("empty answers for: %s", strings.Join(empty, ", "))
	}

	if strings.TrimSpace(result.Name) == "" {
		return errors.New("name is missing or empty")
	}
	if result.Age == 0 {
		return errors.New("age is missing")
	}
	return nil
}

// CheckQuestionCount reports how many questions hold a non-blank answer and
// whether that satisfies the configured count.
func (v *Validator) CheckQuestionCount(answers map[int]string) (bool, int, int) {
	answered := 0
	for i := 1; i <= v.questionCount; i++ {
		if strings.TrimSpace(answers[i]) != "" {
			answered++
		}
	}
	return answered >= v.questionCount, answered, v.questionCount
}

// MissingQuestions lists the question keys that are absent or blank.
func (v *Validator) MissingQuestions(answers map[int]string) []string {
	var missing []string
	for i := 1; i <= v.questionCount; i++ {
		if strings.TrimSpace(answers[i]) == "" {
			missing = append(missing, fmt.Sprintf("q%d", i))
		}
	}
	return missing
}

// ValidateQuality flags quality concerns: very short answers, a too-short
// name, an age outside the typical range. Warnings inform logging only and
// never block processing, so the result is always acceptable.
func (v *Validator) ValidateQuality(result *models.InterviewResult) (bool, []string) {
	var warnings []string
	if result == nil {
		return true, warnings
	}

	for i := 1; i <= v.questionCount; i++ {
		answer := result.Answers[i]
		if answer != "" && utf8.RuneCountInString(strings.TrimSpace(answer)) < minAnswerRunes {
			warnings = append(warnings, fmt.Sprintf("سوال %d پاسخ خیلی کوتاهی دارد", i))
		}
	}

	if name := strings.TrimSpace(result.Name); name != "" && utf8.RuneCountInString(name) < models.MinNameLength {
		warnings = append(warnings, "نام خیلی کوتاه است")
	}

	if result.Age != 0 && (result.Age < models.MinTypicalAge || result.Age > models.MaxTypicalAge) {
		warnings = append(warnings, fmt.Sprintf("سن (%d) خارج از محدوده معمول است", result.Age))
	}

	return true, warnings
}
