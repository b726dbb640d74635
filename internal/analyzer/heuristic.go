package analyzer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/danualab/InterviewPipe/internal/models"
)

// Heuristic length and coverage bounds, in runes of trimmed answer text.
const (
	shortAnswerRunes = 30
	solidAnswerRunes = 50
	partialCoverage  = 0.7
)

const completeFeedback = "عالی! پاسخت کامل بود ✨"

// elementKeywords maps each canonical required element to the answer words
// that count as covering it. Elements outside this vocabulary are never
// covered by the heuristic.
var elementKeywords = map[string][]string{
	"موضوع یادگیری":   {"یاد", "آموخت", "یادگیری", "مهارت", "موضوع"},
	"محرک انگیزشی":    {"رقابت", "بردن", "ساختن", "کشف", "انتخاب"},
	"احساس یا هیجان":  {"احساس", "هیجان", "خوشحال", "ذوق", "لذت"},
	"بازی یا فعالیت":  {"بازی", "فعالیت", "ورزش", "نقاشی"},
	"لحظه خاص":        {"لحظه", "زمان", "وقتی", "اون موقع"},
	"دلیل خسته‌شدن":   {"خسته", "حوصله", "کسل", "طولانی"},
	"ترجیح روش":       {"ترجیح", "دوست دارم", "ترجیح می‌دم"},
	"روش یادگیری":     {"یاد گرفتم", "یاد داد", "دیدن", "انجام دادن"},
	"ترجیح تیمی/شخصی": {"تنهایی", "تیمی", "با دوست", "خودم"},
	"نوع بازخورد":     {"بازخورد", "تحسین", "تشویق", "نظر"},
}

// heuristicVerdict judges an answer without the model, by keyword coverage
// of the required elements. Branch order matters: short answers are rejected
// before any leniency applies, and leniency acceptance is checked before the
// missing-element reply.
func heuristicVerdict(question models.Question, answer string, followUpCount int) models.AnalysisVerdict {
	trimmed := strings.TrimSpace(answer)
	missing, coverage := elementCoverage(question, trimmed)
	length := utf8.RuneCountInString(trimmed)

	if length < shortAnswerRunes {
		return models.AnalysisVerdict{
			IsComplete:      false,
			MissingElements: append([]string(nil), question.RequiredElements...),
			Feedback: fmt.Sprintf(
				"پاسخت کوتاهه! 😊 می‌خوام بیشتر بفهمم درباره %s. می‌تونی بیشتر برام بگی؟",
				simplifiedList(question.RequiredElements, 2),
			),
		}
	}

	if followUpCount >= veryLenientFollowUps && coverage >= veryLenientCoverage {
		return models.AnalysisVerdict{IsComplete: true, Feedback: completeFeedback}
	}
	if followUpCount >= lenientFollowUps && coverage >= lenientCoverage {
		return models.AnalysisVerdict{IsComplete: true, Feedback: completeFeedback}
	}

	if len(missing) > 0 {
		if followUpCount >= lenientFollowUps && coverage >= partialCoverage {
			return models.AnalysisVerdict{IsComplete: true, Feedback: completeFeedback}
		}
		return models.AnalysisVerdict{
			IsComplete:      false,
			MissingElements: missing,
			Feedback: fmt.Sprintf(
				"چه باحال گفتی که چیزهایی! ✨ ولی می‌خوام بیشتر بفهمم: %s. مثلاً چی بود؟ 🌟",
				simplifiedList(missing, 2),
			),
		}
	}

	if strings.Count(trimmed, "?")+strings.Count(trimmed, "؟") > 2 {
		return models.AnalysisVerdict{
			IsComplete:      false,
			MissingElements: []string{"اطلاعات بیشتر"},
			Feedback:        "به نظر می‌رسه سوال داری. اگر چیزی واضح نیست بپرس و جوابت رو کامل کن.",
		}
	}

	if length > solidAnswerRunes && len(missing) == 0 && coverage >= lenientCoverage {
		return models.AnalysisVerdict{IsComplete: true, Feedback: completeFeedback}
	}

	first := ""
	if len(question.RequiredElements) > 0 {
		first = question.RequiredElements[0]
	}
	return models.AnalysisVerdict{
		IsComplete:      false,
		MissingElements: []string{first},
		Feedback:        fmt.Sprintf("می‌خوام بیشتر بفهمم: %s. مثلاً چی بود؟ 😊", simplifyElement(first)),
	}
}

// elementCoverage reports which required elements the answer fails to
// mention and the covered fraction.
func elementCoverage(question models.Question, answer string) (missing []string, coverage float64) {
	required := question.RequiredElements
	if len(required) == 0 {
		return nil, 0
	}
	covered := 0
	for _, element := range required {
		if elementMentioned(element, answer) {
			covered++
		} else {
			missing = append(missing, element)
		}
	}
	return missing, float64(covered) / float64(len(required))
}

func elementMentioned(element, answer string) bool {
	for _, kw := range elementKeywords[element] {
		if strings.Contains(answer, kw) {
			return true
		}
	}
	return false
}

// simplifiedList renders up to max elements in child-friendly wording.
func simplifiedList(elements []string, max int) string {
	if len(elements) > max {
		elements = elements[:max]
	}
	parts := make([]string, len(elements))
	for i, e := range elements {
		parts[i] = simplifyElement(e)
	}
	return strings.Join(parts, "، ")
}

// simplifyElement maps an element label to the phrasing children hear.
func simplifyElement(element string) string {
	switch {
	case strings.Contains(element, "یادگیری"):
		return "چی یاد می‌گرفتی"
	case strings.Contains(element, "محرک"):
		return "چی باعث شد جذاب بشه"
	case strings.Contains(element, "احساس"):
		return "چه احساسی داشتی"
	default:
		return element
	}
}
