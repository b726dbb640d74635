package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/danualab/InterviewPipe/internal/jsonextract"
	"github.com/danualab/InterviewPipe/internal/models"
)

const extractionPromptFormat = `این پیام یک کاربر است که می‌خواهد نام و سن خود را بگوید:

%s

لطفاً نام و سن را استخراج کن و به این فرمت JSON پاسخ بده:
{
    "name": "نام",
    "age": عدد
}

اگر پیدا نکردی، null بگذار. فقط JSON را برگردان.`

// extractNameAge runs the deterministic extraction stages: structured
// "key: value" lines first, then a token scan for a number in the typical
// age range next to a word long enough to be a name.
func extractNameAge(message string) (name string, age int) {
	name, age = extractStructured(message)
	if name == "" || age == 0 {
		tname, tage := scanTokens(message)
		if tage != 0 {
			age = tage
		}
		if tname != "" {
			name = tname
		}
	}
	return name, age
}

// extractStructured scans each line for a name marker ("نام"/"اسم") or age
// marker ("سن") followed by a colon-separated value.
func extractStructured(message string) (name string, age int) {
	for _, line := range strings.Split(message, "\n") {
		switch {
		case strings.Contains(line, "نام") || strings.Contains(line, "اسم"):
			if parts := strings.Split(line, ":"); len(parts) > 1 {
				name = strings.TrimSpace(parts[1])
			}
		case strings.Contains(line, "سن"):
			if parts := strings.Split(line, ":"); len(parts) > 1 {
				if n, err := strconv.Atoi(normalizeDigits(strings.TrimSpace(parts[1]))); err == nil {
					age = n
				}
			}
		}
	}
	return name, age
}

// scanTokens looks for a standalone integer in the typical age range and
// takes an adjacent word of more than two letters as the name candidate,
// preferring the word before the number. Later matches win.
func scanTokens(message string) (name string, age int) {
	words := strings.Fields(message)
	for i, word := range words {
		digits := normalizeDigits(word)
		if !allDigits(digits) {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n < models.MinTypicalAge || n > models.MaxTypicalAge {
			continue
		}
		age = n
		if i > 0 && utf8.RuneCountInString(words[i-1]) > 2 {
			name = words[i-1]
		} else if i+1 < len(words) && utf8.RuneCountInString(words[i+1]) > 2 {
			name = words[i+1]
		}
	}
	return name, age
}

// extractWithModel asks the completion service for a strict {name, age} JSON
// extraction. Failures and unparsable replies yield empty results so the
// caller falls back to re-asking the user.
func (a *Agent) extractWithModel(ctx context.Context, message string) (string, int) {
	prompt := fmt.Sprintf(extractionPromptFormat, message)
	reply := a.client.Complete(ctx, prompt, nil, a.bank.Persona.SystemPrompt)

	var extracted map[string]interface{}
	if err := jsonextract.Decode(reply, "name", &extracted); err != nil {
		slog.Debug("InterviewAgent model extraction returned no JSON", "error", err)
		return "", 0
	}

	name, _ := extracted["name"].(string)
	age := 0
	switch v := extracted["age"].(type) {
	case float64:
		age = int(v)
	case string:
		if n, err := strconv.Atoi(normalizeDigits(strings.TrimSpace(v))); err == nil {
			age = n
		}
	}
	if age < 0 {
		age = 0
	}
	return strings.TrimSpace(name), age
}

// normalizeDigits maps Persian (۰-۹) and Arabic-Indic (٠-٩) digits to their
// ASCII equivalents so ages typed either way parse.
func normalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		}
		return r
	}, s)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
