// Package tone rewrites analyzer feedback into the bot's informal,
// child-friendly Persian register.
//
// Normalization is purely textual: replacement rules run in declaration
// order, a friendly opener is prepended when missing, and concrete examples
// are appended to bare questions. Verdict fields other than the feedback
// text are never touched.
package tone

import "strings"

// Rule rewrites one phrase into another.
type Rule struct {
	From string
	To   string
}

// ReplacementRules maps formal interviewer phrasing to the informal register
// used with children. Rules run in order, so multi-word phrases must come
// before the single words they contain.
var ReplacementRules = []Rule{
	{"پاسخ شما", "می‌بینم که"},
	{"شما باید", "می‌تونی"},
	{"شما", "تو"},
	{"لطفاً", ""},
	{"لطفا", ""},
	{"مشخص نکرده‌اید", "نگفتی"},
	{"مشخص نکرده اید", "نگفتی"},
	{"پوشش می‌دهد", "گفتی"},
	{"پوشش می دهد", "گفتی"},
	{"لطفاً دقیق‌تر توضیح بده", ""},
	{"لطفا دقیق تر توضیح بده", ""},
	{"مهارت هنری", "نقاشی یا کاردستی"},
	{"موضوع علمی", "ریاضی یا علوم"},
	{"زبان جدید", "زبان انگلیسی یا زبان دیگه"},
	{"مباحث", "درس‌ها"},
	{"روش یادگیری", "طریقه یاد گرفتن"},
}

// FriendlyStarters are accepted feedback openers. Feedback that does not
// begin with one gets an opener prepended.
var FriendlyStarters = []string{"چه باحال", "عالی", "خوبه", "جالب", "می‌بینم"}

// Normalize rewrites feedback into the bot's voice. The user's response
// steers which opener fits when the feedback lacks one.
func Normalize(feedback, userResponse string) string {
	out := applyReplacements(feedback)
	out = ensureFriendlyOpening(out, userResponse)
	return appendExamples(out)
}

// applyReplacements runs the rule table and tidies the leftover whitespace.
func applyReplacements(s string) string {
	for _, r := range ReplacementRules {
		s = strings.ReplaceAll(s, r.From, r.To)
	}
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}

// ensureFriendlyOpening prepends an opener matched to what the user talked about.
func ensureFriendlyOpening(feedback, userResponse string) string {
	for _, starter := range FriendlyStarters {
		if strings.HasPrefix(feedback, starter) {
			return feedback
		}
	}
	if strings.Contains(userResponse, "زبان") || strings.Contains(userResponse, "یاد") {
		if strings.Contains(userResponse, "داستان") {
			return "چه باحال گفتی که داشتی زبان می‌خوندی و به شکل داستان بود! ✨ " + feedback
		}
		return "عالی! می‌بینم که " + feedback
	}
	return "خوبه که گفتی! " + feedback
}

// appendExamples turns a bare question into one with concrete examples, so
// children know what kind of answer is expected.
func appendExamples(feedback string) string {
	if !strings.Contains(feedback, "؟") || strings.Contains(feedback, "مثلاً") || strings.Contains(feedback, "یا") {
		return feedback
	}
	switch {
	case strings.Contains(feedback, "چی یاد"), strings.Contains(feedback, "چیزی یاد"):
		return strings.ReplaceAll(feedback, "؟", "؟ مثلاً زبان انگلیسی؟ یا نقاشی؟ یا ریاضی؟")
	case strings.Contains(feedback, "احساس"):
		return strings.ReplaceAll(feedback, "؟", "؟ مثلاً خوشحال بودی؟ یا هیجان‌زده بودی؟")
	}
	return feedback
}
