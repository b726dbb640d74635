package interview

import "strings"

// matchesAny reports whether any keyword occurs in the message. Matching is
// case-insensitive substring containment; the persona keywords are short
// phrases like "تو کی هستی" that users embed in longer sentences.
func matchesAny(message string, keywords []string) bool {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return false
	}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// personaReply answers questions about who the bot is or what it is doing.
// These intercept every state, completed interviews included, without
// touching the session.
func (a *Agent) personaReply(message string) (string, bool) {
	if matchesAny(message, a.bank.Persona.IdentityKeywords) {
		return a.bank.Persona.IdentityResponse, true
	}
	if matchesAny(message, a.bank.Persona.SystemKeywords) {
		return a.bank.Persona.SystemResponse, true
	}
	return "", false
}
