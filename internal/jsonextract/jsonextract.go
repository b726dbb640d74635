// Package jsonextract locates JSON objects embedded in free-form model output.
//
// Language models asked for JSON routinely wrap it in code fences, prepend
// prose, or truncate the tail. The helpers here scrape the first plausible
// object out of such text so callers can unmarshal it.
package jsonextract

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoObject indicates no JSON object could be located in the text.
var ErrNoObject = errors.New("no json object found in text")

var (
	fenceRegex = regexp.MustCompile("```(?:json)?")
	spanRegex  = regexp.MustCompile(`(?s)\{.*?\}`)
)

// StripFences removes Markdown code fence markers so embedded JSON can be scanned.
func StripFences(text string) string {
	return strings.TrimSpace(fenceRegex.ReplaceAllString(text, ""))
}

// Find returns the first plausible JSON object embedded in text.
//
// Strategies are tried in order: a balanced-brace scan, the smallest flat
// object containing anchorKey (skipped when anchorKey is empty), and finally
// the first brace-delimited span. The returned string is not guaranteed to
// be valid JSON; callers should unmarshal and handle failure.
func Find(text, anchorKey string) (string, bool) {
	cleaned := StripFences(text)
	if obj, ok := balancedObject(cleaned); ok {
		return obj, true
	}
	if anchorKey != "" {
		if obj, ok := anchoredObject(cleaned, anchorKey); ok {
			return obj, true
		}
	}
	if m := spanRegex.FindString(cleaned); m != "" {
		return m, true
	}
	return "", false
}

// Decode locates a JSON object inside text and unmarshals it into v.
func Decode(text, anchorKey string, v interface{}) error {
	obj, ok := Find(text, anchorKey)
	if !ok {
		return ErrNoObject
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return err
	}
	return nil
}

// balancedObject scans for the first top-level object whose braces balance,
// ignoring braces inside string literals.
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// anchoredObject finds the smallest flat object literal containing the given key.
func anchoredObject(s, key string) (string, bool) {
	re := regexp.MustCompile(`\{[^{}]*"` + regexp.QuoteMeta(key) + `"[^{}]*\}`)
	m := re.FindString(s)
	return m, m != ""
}
