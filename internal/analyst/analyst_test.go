package analyst

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/danualab/InterviewPipe/internal/models"
	"github.com/danualab/InterviewPipe/internal/testutil"
)

func sampleResult() *models.InterviewResult {
	return &models.InterviewResult{
		UserID: "310",
		Name:   "سارا",
		Age:    10,
		Answers: map[int]string{
			1: "داشتم ریاضی یاد می‌گرفتم و کلی ذوق داشتم",
			2: "فوتبال بازی می‌کنم و حس خوبی بهم می‌ده",
			3: "تنهایی یاد می‌گیرم چون تمرکزم بیشتره",
		},
	}
}

func TestGenerateReturnsModelReport(t *testing.T) {
	sc := testutil.NewScriptedCompleter().Reply("🟩 1. اطلاعات اولیه\nتحلیل نمونه")
	a := New(sc, testutil.SampleQuestions())

	report, fallback := a.Generate(context.Background(), sampleResult())
	if fallback {
		t.Error("successful generation reported as fallback")
	}
	if report != "🟩 1. اطلاعات اولیه\nتحلیل نمونه" {
		t.Errorf("report = %q", report)
	}

	prompt := sc.Prompts[0]
	for _, want := range []string{"سارا", "10", "یادگیری معتادکننده", "فوتبال بازی می‌کنم"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt lacks %q", want)
		}
	}
	if sc.SystemPrompts[0] != reportSystemPrompt {
		t.Errorf("system prompt = %q", sc.SystemPrompts[0])
	}
}

func TestGenerateFallsBackOnError(t *testing.T) {
	sc := testutil.NewScriptedCompleter().Fail(errors.New("boom"))
	a := New(sc, testutil.SampleQuestions())

	report, fallback := a.Generate(context.Background(), sampleResult())
	if !fallback {
		t.Error("failed generation not reported as fallback")
	}
	if !strings.HasPrefix(report, "🟩 1. اطلاعات اولیه") {
		t.Errorf("report = %q, want the fallback layout", report)
	}
	if !strings.Contains(report, "نام: سارا") || !strings.Contains(report, "سن: 10") {
		t.Errorf("fallback lost the identity: %q", report)
	}
}

func TestGenerateFallsBackOnBlankReply(t *testing.T) {
	sc := testutil.NewScriptedCompleter().Reply("   ")
	a := New(sc, testutil.SampleQuestions())

	_, fallback := a.Generate(context.Background(), sampleResult())
	if !fallback {
		t.Error("blank reply not reported as fallback")
	}
}

func TestGenerateSkipsModelOnIncompleteData(t *testing.T) {
	sc := testutil.NewScriptedCompleter()
	a := New(sc, testutil.SampleQuestions())

	result := sampleResult()
	delete(result.Answers, 2)
	report, fallback := a.Generate(context.Background(), result)
	if !fallback {
		t.Error("incomplete data not reported as fallback")
	}
	if sc.Calls() != 0 {
		t.Errorf("incomplete data still consumed %d completions", sc.Calls())
	}
	if !strings.Contains(report, "- سوال 2: ندارد") {
		t.Errorf("missing answer not marked: %q", report)
	}
}

func TestFallbackReportPreviews(t *testing.T) {
	a := New(testutil.NewScriptedCompleter(), testutil.SampleQuestions())

	long := strings.Repeat("ب", 150)
	result := sampleResult()
	result.Answers[1] = long
	report := a.FallbackReport(result)

	wantPreview := strings.Repeat("ب", 100) + "..."
	if !strings.Contains(report, "- سوال 1: "+wantPreview) {
		t.Error("long answer not truncated to a preview")
	}
	if strings.Contains(report, long) {
		t.Error("full long answer leaked into the fallback report")
	}

	report = a.FallbackReport(nil)
	if !strings.Contains(report, "نام: نامشخص") || !strings.Contains(report, "سن: نامشخص") {
		t.Errorf("nil result defaults missing: %q", report)
	}
}

func TestReportHeader(t *testing.T) {
	got := ReportHeader(sampleResult())
	want := "📊 گزارش تحلیل یادگیری\n\n👤 کاربر: سارا (سن: 10)\n🆔 User ID: 310\n\n" +
		strings.Repeat("=", 50) + "\n\n"
	if got != want {
		t.Errorf("header = %q, want %q", got, want)
	}
}
