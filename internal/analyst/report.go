package analyst

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danualab/InterviewPipe/internal/models"
)

// previewRunes caps the answer excerpts shown in the fallback report.
const previewRunes = 100

const fallbackReportFormat = `🟩 1. اطلاعات اولیه

نام: %s
سن: %s

⚠️ متاسفانه تحلیل کامل در دسترس نیست. لطفاً داده‌های مصاحبه را به صورت دستی بررسی کنید.

پاسخ‌های مصاحبه:
%s`

// FallbackReport builds the deterministic report used when generation is not
// possible: the subject's identity plus a truncated preview of every answer.
func (a *Analyst) FallbackReport(result *models.InterviewResult) string {
	if result == nil {
		result = &models.InterviewResult{}
	}
	previews := make([]string, 0, len(a.questions))
	for i := range a.questions {
		answer, ok := result.Answers[i+1]
		if !ok {
			answer = "ندارد"
		}
		previews = append(previews, fmt.Sprintf("- سوال %d: %s", i+1, answerPreview(answer)))
	}
	return fmt.Sprintf(fallbackReportFormat,
		nameLabel(result.Name), ageLabel(result.Age), strings.Join(previews, "\n"))
}

// ReportHeader prefixes a delivered report with the subject's identity for
// the admin recipient.
func ReportHeader(result *models.InterviewResult) string {
	return fmt.Sprintf("📊 گزارش تحلیل یادگیری\n\n👤 کاربر: %s (سن: %s)\n🆔 User ID: %s\n\n%s\n\n",
		nameLabel(result.Name), ageLabel(result.Age), result.UserID, strings.Repeat("=", 50))
}

func answerPreview(answer string) string {
	runes := []rune(answer)
	if len(runes) <= previewRunes {
		return answer
	}
	return string(runes[:previewRunes]) + "..."
}

func nameLabel(name string) string {
	if strings.TrimSpace(name) == "" {
		return "نامشخص"
	}
	return name
}

func ageLabel(age int) string {
	if age == 0 {
		return "نامشخص"
	}
	return strconv.Itoa(age)
}
