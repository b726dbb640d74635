package tone

import (
	"strings"
	"testing"
)

func TestApplyReplacements_InformalRegister(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"پاسخ شما کامل نیست", "می‌بینم که کامل نیست"},
		{"شما باید بیشتر توضیح بدهید", "می‌تونی بیشتر توضیح بدهید"},
		{"لطفاً بیشتر بگو", "بیشتر بگو"},
		{"مشخص نکرده‌اید چه چیزی", "نگفتی چه چیزی"},
		{"مباحث درسی", "درس‌ها درسی"},
	}
	for _, tc := range cases {
		if got := applyReplacements(tc.in); got != tc.want {
			t.Errorf("applyReplacements(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestApplyReplacements_OrderMatters(t *testing.T) {
	// The compound rule must fire before the bare pronoun rule.
	got := applyReplacements("شما باید تلاش کنید")
	if got != "می‌تونی تلاش کنید" {
		t.Errorf("applyReplacements = %q, the compound rule did not win", got)
	}
}

func TestNormalize_KeepsExistingOpener(t *testing.T) {
	feedback := "عالی! پاسخت کامل بود"
	got := Normalize(feedback, "دوست دارم بازی کنم")
	if !strings.HasPrefix(got, "عالی!") {
		t.Errorf("Normalize = %q, existing opener was not kept", got)
	}
	if strings.HasPrefix(got, "خوبه که گفتی") {
		t.Errorf("Normalize = %q, a second opener was prepended", got)
	}
}

func TestNormalize_AddsOpenerFromContext(t *testing.T) {
	cases := []struct {
		name         string
		userResponse string
		wantPrefix   string
	}{
		{"learning response", "داشتم ریاضی یاد می‌گرفتم", "عالی! می‌بینم که"},
		{"language with story", "زبان می‌خوندم و داستان می‌خوندم", "چه باحال گفتی که داشتی زبان می‌خوندی"},
		{"neutral response", "فوتبال بازی می‌کردم", "خوبه که گفتی!"},
	}
	for _, tc := range cases {
		got := Normalize("هنوز همه‌چیز رو نگفتی", tc.userResponse)
		if !strings.HasPrefix(got, tc.wantPrefix) {
			t.Errorf("%s: Normalize = %q, want prefix %q", tc.name, got, tc.wantPrefix)
		}
	}
}

func TestNormalize_AppendsFeelingExamples(t *testing.T) {
	got := Normalize("چه احساسی داشتی؟", "")
	if !strings.Contains(got, "مثلاً خوشحال بودی؟") {
		t.Errorf("Normalize = %q, feeling examples were not appended", got)
	}
}

func TestAppendExamples_SkipsWhenExamplesPresent(t *testing.T) {
	feedback := "چه احساسی داشتی؟ مثلاً خوشحال؟"
	if got := appendExamples(feedback); got != feedback {
		t.Errorf("appendExamples changed feedback that already had examples: %q", got)
	}
}

func TestAppendExamples_SkipsStatements(t *testing.T) {
	feedback := "پاسخت کامل بود"
	if got := appendExamples(feedback); got != feedback {
		t.Errorf("appendExamples changed a statement: %q", got)
	}
}
