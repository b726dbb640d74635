package supervisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/danualab/InterviewPipe/internal/config"
	"github.com/danualab/InterviewPipe/internal/models"
	"github.com/danualab/InterviewPipe/internal/store"
	"github.com/danualab/InterviewPipe/internal/testutil"
)

const completeReply = `{"is_complete": true, "missing_elements": [], "feedback": "عالی"}`

func testBank() *config.Bank {
	bank := &config.Bank{
		Persona: config.Persona{
			Name:             "دانوا",
			SystemPrompt:     "تو دانوا هستی.",
			IdentityResponse: "من دانوا هستم!",
			SystemResponse:   "هدفم شناخت بهتر توئه!",
			IdentityKeywords: []string{"تو کی هستی"},
			SystemKeywords:   []string{"هدفت چیه"},
		},
		Messages: config.Messages{
			Introduction:   "سلام! اسمت چیه و چند سالته؟",
			Completion:     "🎉 آفرین! مصاحبه تموم شد!",
			Encouragements: []string{"آفرین!", "عالیه!"},
		},
	}
	for _, q := range testutil.SampleQuestions()[:2] {
		bank.Questions = append(bank.Questions, config.Question{
			Text:             q.Text,
			Topic:            q.Topic,
			RequiredElements: q.RequiredElements,
		})
	}
	return bank
}

func newTestSupervisor(sc *testutil.ScriptedCompleter) (*Supervisor, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	return New(sc, testBank(), st), st
}

func TestHandleTurnCompletesAndTriggersAnalysis(t *testing.T) {
	ctx := context.Background()
	sc := testutil.NewScriptedCompleter().Reply(completeReply).Reply(completeReply)
	sup, st := newTestSupervisor(sc)

	sup.Start("42")
	turn := sup.HandleTurn(ctx, "42", "سارا ۱۰ ساله")
	if turn.State != models.StateAskingQuestion {
		t.Fatalf("expected asking state after identity, got %s", turn.State)
	}

	turn = sup.HandleTurn(ctx, "42", "داشتم شنا یاد می‌گرفتم و کلی ذوق داشتم")
	if turn.ShouldTriggerAnalysis || turn.ValidationMessage != "" || turn.Data != nil {
		t.Errorf("mid-interview turn should carry no analysis fields: %+v", turn)
	}

	final := sup.HandleTurn(ctx, "42", "فوتبال دوست دارم چون پر از هیجانه")
	if !final.IsComplete || final.State != models.StateCompleted {
		t.Fatalf("expected completed interview, got %+v", final)
	}
	if final.Message != "🎉 آفرین! مصاحبه تموم شد!" {
		t.Errorf("completion message = %q", final.Message)
	}
	if !final.ShouldTriggerAnalysis {
		t.Error("expected analysis trigger on the completing turn")
	}
	if final.ValidationMessage != "✅ مصاحبه کامل و معتبر است" {
		t.Errorf("validation message = %q", final.ValidationMessage)
	}
	if final.Data == nil || final.Data.Name != "سارا" || final.Data.Age != 10 {
		t.Fatalf("expected interview data in completing turn, got %+v", final.Data)
	}
	if final.Data.Answers[2] != "فوتبال دوست دارم چون پر از هیجانه" {
		t.Errorf("answers = %v", final.Data.Answers)
	}

	recs, err := st.ListInterviewResults("42")
	if err != nil {
		t.Fatalf("ListInterviewResults failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 archived interview, got %d", len(recs))
	}
	if recs[0].ID == "" || recs[0].Name != "سارا" || recs[0].Age != 10 {
		t.Errorf("archived record = %+v", recs[0])
	}
	if recs[0].Answers[1] != "داشتم شنا یاد می‌گرفتم و کلی ذوق داشتم" {
		t.Errorf("archived answers = %v", recs[0].Answers)
	}
}

func TestHandleTurnAfterCompletionDoesNotRetrigger(t *testing.T) {
	ctx := context.Background()
	sc := testutil.NewScriptedCompleter().Reply(completeReply).Reply(completeReply)
	sup, st := newTestSupervisor(sc)

	sup.Start("42")
	sup.HandleTurn(ctx, "42", "سارا ۱۰ ساله")
	sup.HandleTurn(ctx, "42", "داشتم شنا یاد می‌گرفتم و کلی ذوق داشتم")
	sup.HandleTurn(ctx, "42", "فوتبال دوست دارم چون پر از هیجانه")

	turn := sup.HandleTurn(ctx, "42", "الان چی می‌شه؟")
	if !turn.IsComplete {
		t.Error("post-completion turn should still report completion")
	}
	if turn.ShouldTriggerAnalysis || turn.Data != nil || turn.ValidationMessage != "" {
		t.Errorf("post-completion turn must not retrigger analysis: %+v", turn)
	}
	if !strings.Contains(turn.Message, "/start") {
		t.Errorf("expected the restart reminder, got %q", turn.Message)
	}

	recs, err := st.ListInterviewResults("42")
	if err != nil {
		t.Fatalf("ListInterviewResults failed: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("expected a single archived interview, got %d", len(recs))
	}
}

func TestHandleTurnValidationFailureBlocksAnalysis(t *testing.T) {
	ctx := context.Background()
	sc := testutil.NewScriptedCompleter().Reply(completeReply).Reply(completeReply)
	sup, st := newTestSupervisor(sc)

	sup.Start("42")
	sup.HandleTurn(ctx, "42", "سارا ۱۰ ساله")
	sup.HandleTurn(ctx, "42", "   ")

	final := sup.HandleTurn(ctx, "42", "فوتبال دوست دارم چون پر از هیجانه")
	if !final.IsComplete {
		t.Fatal("interview should still complete for the user")
	}
	if final.ShouldTriggerAnalysis || final.Data != nil {
		t.Errorf("invalid interview must not trigger analysis: %+v", final)
	}
	want := "⚠️ خطا در اعتبارسنجی: empty answers for: سوال 1"
	if final.ValidationMessage != want {
		t.Errorf("validation message = %q, want %q", final.ValidationMessage, want)
	}

	recs, err := st.ListInterviewResults("42")
	if err != nil {
		t.Fatalf("ListInterviewResults failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("invalid interview should not be archived, got %d records", len(recs))
	}
}

func completedData() *models.InterviewResult {
	return &models.InterviewResult{
		UserID: "42",
		Name:   "سارا",
		Age:    10,
		Answers: map[int]string{
			1: "داشتم شنا یاد می‌گرفتم و کلی ذوق داشتم",
			2: "فوتبال دوست دارم چون پر از هیجانه",
		},
	}
}

func TestGenerateReportProducesAndArchives(t *testing.T) {
	ctx := context.Background()
	sc := testutil.NewScriptedCompleter().Reply("🟩 1. اطلاعات اولیه\nگزارش کامل تحلیل")
	sup, st := newTestSupervisor(sc)

	seed := models.InterviewRecord{ID: "rec-7", UserID: "42", Name: "سارا", Age: 10}
	if err := st.SaveInterviewResult(seed); err != nil {
		t.Fatalf("seeding interview record failed: %v", err)
	}

	report := sup.GenerateReport(ctx, completedData())
	if report != "🟩 1. اطلاعات اولیه\nگزارش کامل تحلیل" {
		t.Errorf("report = %q", report)
	}

	reports, err := st.ListReports("42")
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 archived report, got %d", len(reports))
	}
	if reports[0].IsFallback {
		t.Error("model-generated report must not be marked fallback")
	}
	if reports[0].InterviewID != "rec-7" {
		t.Errorf("report should link the archived interview, got %q", reports[0].InterviewID)
	}
	if reports[0].Content != report {
		t.Errorf("archived content = %q", reports[0].Content)
	}
}

func TestGenerateReportFallsBackWhenModelFails(t *testing.T) {
	ctx := context.Background()
	sc := testutil.NewScriptedCompleter().Fail(errors.New("request timed out"))
	sup, st := newTestSupervisor(sc)

	report := sup.GenerateReport(ctx, completedData())
	if !strings.Contains(report, "🟩 1. اطلاعات اولیه") {
		t.Errorf("expected fallback report layout, got %q", report)
	}
	if !strings.Contains(report, "نام: سارا") {
		t.Errorf("fallback report should carry user info, got %q", report)
	}

	reports, err := st.ListReports("42")
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 1 || !reports[0].IsFallback {
		t.Errorf("expected archived fallback report, got %+v", reports)
	}
}

func TestGenerateReportRejectsBadData(t *testing.T) {
	ctx := context.Background()
	sc := testutil.NewScriptedCompleter()
	sup, st := newTestSupervisor(sc)

	if got := sup.GenerateReport(ctx, nil); got != "⚠️ داده‌های مصاحبه موجود نیست" {
		t.Errorf("nil data notice = %q", got)
	}

	incomplete := completedData()
	delete(incomplete.Answers, 2)
	got := sup.GenerateReport(ctx, incomplete)
	if !strings.HasPrefix(got, "⚠️ خطا در اعتبارسنجی داده‌ها:") {
		t.Errorf("invalid data notice = %q", got)
	}
	if sc.Calls() != 0 {
		t.Errorf("model must not be called for invalid data, got %d calls", sc.Calls())
	}

	reports, err := st.ListReports("42")
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("rejected data should archive nothing, got %d reports", len(reports))
	}
}

func TestProgress(t *testing.T) {
	ctx := context.Background()
	sc := testutil.NewScriptedCompleter().Reply(completeReply)
	sup, _ := newTestSupervisor(sc)

	if p := sup.Progress("42"); p != nil {
		t.Errorf("expected nil progress before any session, got %+v", p)
	}

	sup.Start("42")
	p := sup.Progress("42")
	if p == nil {
		t.Fatal("expected progress after start")
	}
	if p.CurrentQuestion != 1 || p.TotalQuestions != 2 || p.ProgressPercentage != 0 {
		t.Errorf("fresh progress = %+v", p)
	}
	if p.State != models.StateGettingNameAge || p.AnswersCount != 0 {
		t.Errorf("fresh progress = %+v", p)
	}

	sup.HandleTurn(ctx, "42", "سارا ۱۰ ساله")
	sup.HandleTurn(ctx, "42", "داشتم شنا یاد می‌گرفتم و کلی ذوق داشتم")
	p = sup.Progress("42")
	if p == nil || p.CurrentQuestion != 2 || p.ProgressPercentage != 50 || p.AnswersCount != 1 {
		t.Errorf("mid-interview progress = %+v", p)
	}
	if p.State != models.StateAskingQuestion {
		t.Errorf("mid-interview state = %s", p.State)
	}

	sup.Reset("42")
	if p := sup.Progress("42"); p != nil {
		t.Errorf("expected nil progress after reset, got %+v", p)
	}
}
