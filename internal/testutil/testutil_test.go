package testutil

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestScriptedCompleterReplaysInOrder(t *testing.T) {
	sc := NewScriptedCompleter().Reply("one").Reply("two")

	if got := sc.Complete(context.Background(), "p1", nil, "s1"); got != "one" {
		t.Errorf("first reply = %q, want %q", got, "one")
	}
	if got, err := sc.GeneratePromptWithContext(context.Background(), "s2", "p2"); err != nil || got != "two" {
		t.Errorf("second reply = %q, %v", got, err)
	}
	if sc.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", sc.Calls())
	}
	if sc.Prompts[0] != "p1" || sc.Prompts[1] != "p2" {
		t.Errorf("recorded prompts = %v", sc.Prompts)
	}
	if sc.SystemPrompts[0] != "s1" || sc.SystemPrompts[1] != "s2" {
		t.Errorf("recorded system prompts = %v", sc.SystemPrompts)
	}
}

func TestScriptedCompleterFailures(t *testing.T) {
	boom := errors.New("boom")
	sc := NewScriptedCompleter().Fail(boom)

	if _, err := sc.GenerateWithMessages(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("GenerateWithMessages error = %v, want %v", err, boom)
	}

	// An exhausted script surfaces as text on Complete, like the real contract.
	if got := sc.Complete(context.Background(), "p", nil, ""); !strings.Contains(got, ErrScriptExhausted.Error()) {
		t.Errorf("exhausted Complete = %q", got)
	}
}

func TestSampleQuestionsAreValid(t *testing.T) {
	qs := SampleQuestions()
	if len(qs) == 0 {
		t.Fatal("no sample questions")
	}
	for i, q := range qs {
		if err := q.Validate(); err != nil {
			t.Errorf("sample question %d invalid: %v", i+1, err)
		}
	}
}
