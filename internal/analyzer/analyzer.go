// Package analyzer judges whether an interview answer covers the question's
// required elements.
//
// The primary judge is the language model: it receives the question, the
// required elements, the accumulated answer, and a leniency instruction that
// relaxes as follow-ups pile up. Its JSON verdict is scraped out of the raw
// reply; when that fails a feedback line is salvaged by regex, and when even
// that fails a deterministic keyword heuristic produces the verdict. The
// analyzer therefore always returns something actionable.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/danualab/InterviewPipe/internal/genai"
	"github.com/danualab/InterviewPipe/internal/jsonextract"
	"github.com/danualab/InterviewPipe/internal/models"
	"github.com/danualab/InterviewPipe/internal/tone"
)

// Leniency thresholds. After lenientFollowUps follow-ups the judge accepts
// answers covering lenientCoverage of the required elements; after
// veryLenientFollowUps it accepts veryLenientCoverage.
const (
	lenientFollowUps     = 2
	veryLenientFollowUps = 3
	lenientCoverage      = 0.8
	veryLenientCoverage  = 0.6
)

const analysisPromptFormat = `تو تحلیلگر پاسخ‌های یک مصاحبه یادگیری با بچه‌ها هستی.

سوال پرسیده شده:
%s

عناصری که یک پاسخ کامل باید پوشش بده:
%s

پاسخ کاربر:
%s

%s

فقط و فقط یک شیء JSON با این ساختار برگردان:
{"is_complete": true یا false, "missing_elements": ["عنصرهای جا‌مانده"], "feedback": "بازخورد کوتاه"}

feedback باید به فارسی، کوتاه و دوستانه باشه و بگه چی کم بود.`

const (
	strictInstruction      = "سخت‌گیرانه بررسی کن: پاسخ فقط وقتی کامله که همه عناصر بالا پوشش داده شده باشن."
	lenientInstruction     = "آسون‌تر بگیر: اگر حدود ۸۰ درصد عناصر پوشش داده شده، پاسخ رو کامل در نظر بگیر."
	veryLenientInstruction = "خیلی آسون بگیر: اگر حدود ۶۰ درصد عناصر پوشش داده شده، پاسخ رو کامل در نظر بگیر."
)

// Feedback salvage patterns, tried in order against replies that carry no
// parsable JSON object.
var (
	quotedFeedbackRegex = regexp.MustCompile(`feedback["']?\s*:\s*["']([^"']+)["']`)
	bareFeedbackRegex   = regexp.MustCompile(`feedback["']?\s*:\s*([^\n,}]+)`)
)

// Analyzer judges answers with the language model, degrading to a keyword
// heuristic when the model is unreachable or unparsable.
type Analyzer struct {
	client       genai.ClientInterface
	systemPrompt string
}

// New creates an Analyzer backed by the given completion client. The system
// prompt is the persona prompt, so the judge's feedback keeps the persona's
// tone.
func New(client genai.ClientInterface, systemPrompt string) *Analyzer {
	return &Analyzer{client: client, systemPrompt: systemPrompt}
}

// Analyze judges one accumulated answer. followUpCount is how many follow-ups
// have already been asked for this question; higher counts make the judge
// more lenient. Analyze never fails: it always returns a usable verdict.
func (a *Analyzer) Analyze(ctx context.Context, question models.Question, answer string, followUpCount int) models.AnalysisVerdict {
	slog.Debug("Analyzer judging answer", "topic", question.Topic, "followUpCount", followUpCount, "answerLength", len(answer))

	prompt := buildAnalysisPrompt(question, answer, followUpCount)
	raw := a.client.Complete(ctx, prompt, nil, a.systemPrompt)

	if verdict, ok := parseVerdict(raw); ok {
		verdict.Feedback = tone.Normalize(verdict.Feedback, answer)
		slog.Debug("Analyzer parsed model verdict", "topic", question.Topic, "isComplete", verdict.IsComplete, "missing", len(verdict.MissingElements))
		return verdict
	}

	if verdict, ok := salvageVerdict(raw); ok {
		if !verdict.IsComplete {
			verdict.MissingElements = append([]string(nil), question.RequiredElements...)
		}
		verdict.Feedback = tone.Normalize(verdict.Feedback, answer)
		slog.Debug("Analyzer salvaged feedback from model reply", "topic", question.Topic, "isComplete", verdict.IsComplete)
		return verdict
	}

	slog.Debug("Analyzer falling back to keyword heuristic", "topic", question.Topic)
	return heuristicVerdict(question, answer, followUpCount)
}

// buildAnalysisPrompt renders the judgment prompt with the leniency tier for
// the current follow-up count.
func buildAnalysisPrompt(question models.Question, answer string, followUpCount int) string {
	return fmt.Sprintf(analysisPromptFormat,
		question.Text,
		strings.Join(question.RequiredElements, "، "),
		answer,
		leniencyInstruction(followUpCount),
	)
}

func leniencyInstruction(followUpCount int) string {
	switch {
	case followUpCount >= veryLenientFollowUps:
		return veryLenientInstruction
	case followUpCount >= lenientFollowUps:
		return lenientInstruction
	default:
		return strictInstruction
	}
}

// parseVerdict extracts and decodes a verdict object from the raw reply.
// A decoded object only counts when it carries both the is_complete and
// feedback keys.
func parseVerdict(raw string) (models.AnalysisVerdict, bool) {
	obj, ok := jsonextract.Find(raw, "is_complete")
	if !ok {
		return models.AnalysisVerdict{}, false
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		return models.AnalysisVerdict{}, false
	}
	rawComplete, hasComplete := m["is_complete"]
	rawFeedback, hasFeedback := m["feedback"]
	if !hasComplete || !hasFeedback {
		return models.AnalysisVerdict{}, false
	}

	verdict := models.AnalysisVerdict{
		IsComplete: coerceBool(rawComplete),
		Feedback:   coerceString(rawFeedback),
	}
	if elements, ok := m["missing_elements"].([]interface{}); ok {
		for _, e := range elements {
			if s, ok := e.(string); ok && s != "" {
				verdict.MissingElements = append(verdict.MissingElements, s)
			}
		}
	}
	return verdict, true
}

// salvageVerdict pulls a bare feedback line out of an unparsable reply and
// infers completeness from the reply wording.
func salvageVerdict(raw string) (models.AnalysisVerdict, bool) {
	var feedback string
	if m := quotedFeedbackRegex.FindStringSubmatch(raw); m != nil {
		feedback = m[1]
	} else if m := bareFeedbackRegex.FindStringSubmatch(raw); m != nil {
		feedback = strings.TrimSpace(m[1])
	} else {
		return models.AnalysisVerdict{}, false
	}
	return models.AnalysisVerdict{
		IsComplete: strings.Contains(raw, "کامل") || strings.Contains(raw, "تمام"),
		Feedback:   feedback,
	}, true
}

func coerceBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	case float64:
		return t != 0
	default:
		return false
	}
}

func coerceString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
