package util

import (
	"strings"
	"unicode/utf8"
)

// SplitMessage splits text into chunks of at most limit runes, breaking at
// line boundaries so report sections stay together. Lines grouped into a
// chunk keep their trailing newline. Text that already fits comes back as a
// single chunk. Counting runes rather than bytes keeps the limit meaningful
// for Persian text.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentRunes := 0

	flush := func() {
		if currentRunes > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentRunes = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		lineRunes := utf8.RuneCountInString(line)

		// A line that cannot fit in any chunk is cut at rune boundaries.
		if lineRunes+1 > limit {
			flush()
			chunks = append(chunks, cutRunes(line, limit)...)
			continue
		}

		if currentRunes+lineRunes+1 > limit {
			flush()
		}
		current.WriteString(line)
		current.WriteByte('\n')
		currentRunes += lineRunes + 1
	}
	flush()

	return chunks
}

// cutRunes cuts s into pieces of at most limit runes.
func cutRunes(s string, limit int) []string {
	runes := []rune(s)
	var pieces []string
	for len(runes) > limit {
		pieces = append(pieces, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}
	return pieces
}
