package validator

import (
	"strings"
	"testing"

	"github.com/danualab/InterviewPipe/internal/models"
)

func validResult() *models.InterviewResult {
	return &models.InterviewResult{
		UserID: "100",
		Name:   "سارا",
		Age:    10,
		Answers: map[int]string{
			1: "دوست دارم ریاضی یاد بگیرم چون قشنگه",
			2: "فوتبال و نقاشی رو خیلی دوست دارم",
			3: "درس‌های طولانی حوصله‌م رو سر می‌برن",
		},
	}
}

func TestValidateCompletion(t *testing.T) {
	v := New(3)
	if err := v.ValidateCompletion(validResult()); err != nil {
		t.Errorf("valid result rejected: %v", err)
	}
	if err := v.ValidateCompletion(nil); err != models.ErrNoInterviewData {
		t.Errorf("nil result: err = %v", err)
	}
}

func TestValidateCompletionMissingAnswers(t *testing.T) {
	v := New(3)

	result := validResult()
	delete(result.Answers, 2)
	delete(result.Answers, 3)
	err := v.ValidateCompletion(result)
	if err == nil || !strings.Contains(err.Error(), "missing required fields: q2, q3") {
		t.Errorf("err = %v", err)
	}

	result = validResult()
	result.Answers[2] = "   "
	err = v.ValidateCompletion(result)
	if err == nil || !strings.Contains(err.Error(), "سوال 2") {
		t.Errorf("err = %v", err)
	}
}

func TestValidateCompletionIdentityFields(t *testing.T) {
	v := New(3)

	result := validResult()
	result.Name = "  "
	if err := v.ValidateCompletion(result); err == nil || !strings.Contains(err.Error(), "name") {
		t.Errorf("blank name: err = %v", err)
	}

	result = validResult()
	result.Age = 0
	if err := v.ValidateCompletion(result); err == nil || !strings.Contains(err.Error(), "age") {
		t.Errorf("zero age: err = %v", err)
	}
}

func TestValidateQuality(t *testing.T) {
	v := New(3)

	ok, warnings := v.ValidateQuality(validResult())
	if !ok || len(warnings) != 0 {
		t.Errorf("clean result: ok=%v warnings=%v", ok, warnings)
	}

	result := validResult()
	result.Answers[1] = "کوتاه"
	result.Name = "س"
	result.Age = 42
	ok, warnings = v.ValidateQuality(result)
	if !ok {
		t.Error("quality warnings must never block")
	}
	if len(warnings) != 3 {
		t.Fatalf("warnings = %v, want 3 entries", warnings)
	}
	if warnings[0] != "سوال 1 پاسخ خیلی کوتاهی دارد" {
		t.Errorf("short answer warning = %q", warnings[0])
	}
	if warnings[1] != "نام خیلی کوتاه است" {
		t.Errorf("name warning = %q", warnings[1])
	}
	if warnings[2] != "سن (42) خارج از محدوده معمول است" {
		t.Errorf("age warning = %q", warnings[2])
	}
}

func TestValidateQualitySkipsAbsentFields(t *testing.T) {
	v := New(3)
	ok, warnings := v.ValidateQuality(&models.InterviewResult{Answers: map[int]string{}})
	if !ok || len(warnings) != 0 {
		t.Errorf("absent fields flagged: ok=%v warnings=%v", ok, warnings)
	}
}

func TestCheckQuestionCount(t *testing.T) {
	v := New(3)

	complete, answered, required := v.CheckQuestionCount(validResult().Answers)
	if !complete || answered != 3 || required != 3 {
		t.Errorf("full set: complete=%v answered=%d required=%d", complete, answered, required)
	}

	answers := map[int]string{1: "جواب اول", 3: "  "}
	complete, answered, required = v.CheckQuestionCount(answers)
	if complete || answered != 1 || required != 3 {
		t.Errorf("partial set: complete=%v answered=%d required=%d", complete, answered, required)
	}
}

func TestMissingQuestions(t *testing.T) {
	v := New(3)

	if missing := v.MissingQuestions(validResult().Answers); len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}

	missing := v.MissingQuestions(map[int]string{1: "جواب", 2: " "})
	if len(missing) != 2 || missing[0] != "q2" || missing[1] != "q3" {
		t.Errorf("missing = %v, want [q2 q3]", missing)
	}
}
