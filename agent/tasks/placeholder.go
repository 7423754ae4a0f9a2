package tasks

import "strings"

// Substitute replaces {name} placeholders in text with values from params.
// Substitution is a single pass, so substituted values are never re-scanned.
// Placeholders with no matching key are left literal, and a nil params map
// returns the text unchanged.
func Substitute(text string, params map[string]string) string {
	if len(params) == 0 || !strings.Contains(text, "{") {
		return text
	}
	pairs := make([]string, 0, len(params)*2)
	for key, value := range params {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
