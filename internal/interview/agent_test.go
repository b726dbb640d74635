package interview

import (
	"context"
	"strings"
	"testing"

	"github.com/danualab/InterviewPipe/internal/config"
	"github.com/danualab/InterviewPipe/internal/models"
	"github.com/danualab/InterviewPipe/internal/testutil"
)

const (
	completeReply   = `{"is_complete": true, "missing_elements": [], "feedback": "عالی"}`
	incompleteReply = `{"is_complete": false, "missing_elements": ["موضوع یادگیری"], "feedback": "می‌بینم که باید بیشتر بگی"}`
)

func testBank() *config.Bank {
	return &config.Bank{
		Persona: config.Persona{
			Name:             "دانوا",
			SystemPrompt:     "تو دانوا هستی، یک همراه مهربان.",
			IdentityResponse: "من دانوا هستم! 🤖",
			SystemResponse:   "دارم درباره یادگیری ازت سوال می‌پرسم. 📚",
			IdentityKeywords: []string{"تو کی هستی", "اسمت چیه"},
			SystemKeywords:   []string{"هدفت چیه", "این سوالا برای چیه"},
		},
		Messages: config.Messages{
			Introduction:   "سلام! اسمت چیه و چند سالته؟",
			Completion:     "🎉 آفرین! مصاحبه تموم شد!",
			Encouragements: []string{"آفرین!", "عالیه!"},
		},
		Questions: []config.Question{
			{Text: "دوست داری چی یاد بگیری؟", Topic: "علاقه", RequiredElements: []string{"موضوع یادگیری"}},
			{Text: "چه بازی‌ای دوست داری؟", Topic: "بازی", RequiredElements: []string{"بازی یا فعالیت"}},
		},
	}
}

func TestAgentHappyPath(t *testing.T) {
	sc := testutil.NewScriptedCompleter().Reply(completeReply).Reply(completeReply)
	agent := NewAgent(sc, testBank())
	ctx := context.Background()

	turn := agent.ProcessMessage(ctx, "310", "سلام")
	if turn.State != models.StateGettingNameAge {
		t.Fatalf("state = %s, want %s", turn.State, models.StateGettingNameAge)
	}
	if turn.Message != "سلام! اسمت چیه و چند سالته؟" {
		t.Errorf("message = %q, want the introduction", turn.Message)
	}

	turn = agent.ProcessMessage(ctx, "310", "سارا ۱۰ ساله")
	if turn.State != models.StateAskingQuestion {
		t.Fatalf("state = %s, want %s", turn.State, models.StateAskingQuestion)
	}
	if !strings.Contains(turn.Message, "عالی سارا!") || !strings.Contains(turn.Message, "دوست داری چی یاد بگیری؟") {
		t.Errorf("acknowledgment = %q", turn.Message)
	}
	if sc.Calls() != 0 {
		t.Errorf("deterministic extraction consumed %d completions", sc.Calls())
	}

	turn = agent.ProcessMessage(ctx, "310", "دوست دارم ریاضی یاد بگیرم چون قشنگه")
	if turn.State != models.StateAskingQuestion {
		t.Fatalf("state = %s after a complete answer, want %s", turn.State, models.StateAskingQuestion)
	}
	if turn.Message != "عالیه!\n\nچه بازی‌ای دوست داری؟" {
		t.Errorf("transition = %q, want encouragement + next question", turn.Message)
	}
	sess, ok := agent.Session("310")
	if !ok {
		t.Fatal("session missing")
	}
	if sess.CurrentQuestionIndex != 1 || sess.FollowUpCounts[0] != 0 {
		t.Errorf("index=%d followUps=%v", sess.CurrentQuestionIndex, sess.FollowUpCounts)
	}

	turn = agent.ProcessMessage(ctx, "310", "فوتبال رو خیلی دوست دارم")
	if turn.State != models.StateCompleted || !turn.IsComplete {
		t.Fatalf("final turn state=%s complete=%v", turn.State, turn.IsComplete)
	}
	if turn.Message != "🎉 آفرین! مصاحبه تموم شد!" {
		t.Errorf("message = %q, want the completion text", turn.Message)
	}
	if turn.Result == nil {
		t.Fatal("completed turn carries no result")
	}
	if turn.Result.Name != "سارا" || turn.Result.Age != 10 {
		t.Errorf("result identity = %q/%d", turn.Result.Name, turn.Result.Age)
	}
	if turn.Result.Answers[1] != "دوست دارم ریاضی یاد بگیرم چون قشنگه" {
		t.Errorf("answer 1 = %q", turn.Result.Answers[1])
	}
	if turn.Result.Answers[2] != "فوتبال رو خیلی دوست دارم" {
		t.Errorf("answer 2 = %q", turn.Result.Answers[2])
	}
}

func TestAgentFollowUpLoop(t *testing.T) {
	bank := testBank()
	bank.Questions = bank.Questions[:1]
	sc := testutil.NewScriptedCompleter().
		Reply(incompleteReply).
		Reply(incompleteReply).
		Reply(completeReply)
	agent := NewAgent(sc, bank)
	ctx := context.Background()

	agent.ProcessMessage(ctx, "55", "سلام")
	agent.ProcessMessage(ctx, "55", "علی ۸ ساله")

	turn := agent.ProcessMessage(ctx, "55", "یه چیزایی")
	if turn.State != models.StateFollowingUp {
		t.Fatalf("state = %s, want %s", turn.State, models.StateFollowingUp)
	}
	if turn.Message != "می‌بینم که باید بیشتر بگی" {
		t.Errorf("feedback = %q, want it verbatim", turn.Message)
	}
	sess, _ := agent.Session("55")
	if sess.FollowUpCounts[0] != 1 {
		t.Errorf("followUpCounts[0] = %d after first shortfall, want 1", sess.FollowUpCounts[0])
	}

	turn = agent.ProcessMessage(ctx, "55", "خب ریاضی")
	if turn.State != models.StateFollowingUp {
		t.Fatalf("state = %s, want %s", turn.State, models.StateFollowingUp)
	}
	if sess.FollowUpCounts[0] != 2 {
		t.Errorf("followUpCounts[0] = %d after second round, want 2", sess.FollowUpCounts[0])
	}
	// The count was bumped before this analysis ran, so the second round is
	// already judged at the lenient tier.
	if !strings.Contains(sc.Prompts[1], "۸۰ درصد") {
		t.Errorf("second analysis prompt not lenient: %q", sc.Prompts[1])
	}

	turn = agent.ProcessMessage(ctx, "55", "چون حل کردن مسئله حس خوبی داره")
	if !turn.IsComplete || turn.State != models.StateCompleted {
		t.Fatalf("final turn state=%s complete=%v", turn.State, turn.IsComplete)
	}
	if !strings.Contains(sc.Prompts[2], "۶۰ درصد") {
		t.Errorf("third analysis prompt not very lenient: %q", sc.Prompts[2])
	}
	if sess.FollowUpCounts[0] != 0 {
		t.Errorf("followUpCounts[0] = %d after completion, want 0", sess.FollowUpCounts[0])
	}
	want := "یه چیزایی\n\nخب ریاضی\n\nچون حل کردن مسئله حس خوبی داره"
	if turn.Result.Answers[1] != want {
		t.Errorf("accumulated answer = %q, want %q", turn.Result.Answers[1], want)
	}
}

func TestAgentPersonaInterception(t *testing.T) {
	sc := testutil.NewScriptedCompleter().Reply(incompleteReply)
	agent := NewAgent(sc, testBank())
	ctx := context.Background()

	// Without a session: answered without starting an interview.
	turn := agent.ProcessMessage(ctx, "9", "تو کی هستی؟")
	if turn.Message != "من دانوا هستم! 🤖" {
		t.Errorf("identity reply = %q", turn.Message)
	}
	if turn.State != models.StateWaitingForStart {
		t.Errorf("state = %s, want %s", turn.State, models.StateWaitingForStart)
	}
	if _, ok := agent.Session("9"); ok {
		t.Error("persona question created a session")
	}

	// Mid follow-up: the session is left exactly as it was.
	agent.ProcessMessage(ctx, "9", "سلام")
	agent.ProcessMessage(ctx, "9", "مینا ۱۲ ساله")
	agent.ProcessMessage(ctx, "9", "یه چیزایی")
	sess, _ := agent.Session("9")

	turn = agent.ProcessMessage(ctx, "9", "راستی هدفت چیه؟")
	if turn.Message != "دارم درباره یادگیری ازت سوال می‌پرسم. 📚" {
		t.Errorf("system reply = %q", turn.Message)
	}
	if turn.State != models.StateFollowingUp {
		t.Errorf("state = %s, want %s", turn.State, models.StateFollowingUp)
	}
	if sess.CurrentQuestionIndex != 0 || sess.FollowUpCounts[0] != 1 {
		t.Errorf("session mutated: index=%d counts=%v", sess.CurrentQuestionIndex, sess.FollowUpCounts)
	}
	if got := sess.Answers[0]; got != "یه چیزایی" {
		t.Errorf("answers mutated: %q", got)
	}
}

func TestAgentCompletedState(t *testing.T) {
	bank := testBank()
	bank.Questions = bank.Questions[:1]
	sc := testutil.NewScriptedCompleter().Reply(completeReply)
	agent := NewAgent(sc, bank)
	ctx := context.Background()

	agent.ProcessMessage(ctx, "77", "شروع")
	agent.ProcessMessage(ctx, "77", "رضا ۹ ساله")
	turn := agent.ProcessMessage(ctx, "77", "ریاضی دوست دارم چون کشف کردنش باحاله")
	if !turn.IsComplete {
		t.Fatalf("interview not completed: state=%s", turn.State)
	}

	// Persona questions still answered after completion, state untouched.
	turn = agent.ProcessMessage(ctx, "77", "اسمت چیه؟")
	if turn.Message != "من دانوا هستم! 🤖" || turn.State != models.StateCompleted {
		t.Errorf("persona turn after completion = %q in %s", turn.Message, turn.State)
	}

	// Anything else: fixed reminder plus the result derived on demand.
	turn = agent.ProcessMessage(ctx, "77", "یه سوال دیگه دارم")
	if !strings.Contains(turn.Message, "مصاحبه قبلاً تمام شده") {
		t.Errorf("completed reply = %q", turn.Message)
	}
	if !turn.IsComplete || turn.Result == nil || turn.Result.Answers[1] == "" {
		t.Errorf("completed turn lost the result: %+v", turn)
	}

	// Restart wipes the session; the next message reintroduces the bot.
	agent.Reset("77")
	if agent.StateOf("77") != models.StateWaitingForStart {
		t.Error("reset did not clear the session")
	}
	turn = agent.ProcessMessage(ctx, "77", "سلام دوباره")
	if turn.State != models.StateGettingNameAge || turn.Message != bank.Messages.Introduction {
		t.Errorf("post-reset turn = %q in %s", turn.Message, turn.State)
	}
}

func TestAgentModelExtraction(t *testing.T) {
	sc := testutil.NewScriptedCompleter().Reply(`{"name": "مریم", "age": 9}`)
	bank := testBank()
	agent := NewAgent(sc, bank)
	ctx := context.Background()

	agent.ProcessMessage(ctx, "42", "سلام")
	turn := agent.ProcessMessage(ctx, "42", "اسم من مریمه")
	if turn.State != models.StateAskingQuestion {
		t.Fatalf("state = %s, want %s", turn.State, models.StateAskingQuestion)
	}
	if !strings.Contains(turn.Message, "عالی مریم!") {
		t.Errorf("acknowledgment = %q", turn.Message)
	}
	if len(sc.SystemPrompts) != 1 || sc.SystemPrompts[0] != bank.Persona.SystemPrompt {
		t.Errorf("system prompts = %v, want the persona prompt", sc.SystemPrompts)
	}
	if !strings.Contains(sc.Prompts[0], "اسم من مریمه") {
		t.Errorf("extraction prompt does not quote the message: %q", sc.Prompts[0])
	}
}

func TestAgentExtractionOutage(t *testing.T) {
	sc := testutil.NewScriptedCompleter().
		Reply("⏳ متاسفم، بعد از چندین تلاش موفق به دریافت پاسخ نشد.").
		Reply(`{"name": null, "age": null}`)
	agent := NewAgent(sc, testBank())
	ctx := context.Background()

	agent.ProcessMessage(ctx, "13", "سلام")
	turn := agent.ProcessMessage(ctx, "13", "نمی‌خوام بگم")
	if turn.State != models.StateGettingNameAge {
		t.Fatalf("state = %s, want %s", turn.State, models.StateGettingNameAge)
	}
	if !strings.HasPrefix(turn.Message, "لطفاً نام، سن خودت رو بهم بده.") {
		t.Errorf("re-ask = %q", turn.Message)
	}

	// A bare age leaves only the name missing.
	turn = agent.ProcessMessage(ctx, "13", "۱۲")
	if turn.State != models.StateGettingNameAge {
		t.Fatalf("state = %s, want %s", turn.State, models.StateGettingNameAge)
	}
	if !strings.HasPrefix(turn.Message, "لطفاً نام خودت رو بهم بده.") {
		t.Errorf("re-ask = %q", turn.Message)
	}
	sess, _ := agent.Session("13")
	if sess.Name != "" || sess.Age != 0 {
		t.Errorf("partial identity stored: %q/%d", sess.Name, sess.Age)
	}
}
