package surmiser

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// reWord matches alphanumeric runs with optional internal apostrophes or hyphens.
var reWord = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’-][\p{L}\p{N}]+)*`)

// BuildContext snapshots text and cursor into a SuggestionContext.
// The cursor is clamped into the text and moved back to a rune boundary.
func BuildContext(text string, cursor int) SuggestionContext {
	cursor = clampCursor(text, cursor)
	tokens := WordTokens(text[:cursor])
	if len(tokens) > MaxContextTokens {
		tokens = tokens[len(tokens)-MaxContextTokens:]
	}
	return SuggestionContext{
		Text:       text,
		Cursor:     cursor,
		LastTokens: tokens,
	}
}

// WordTokens returns the lower-cased words of s in order.
func WordTokens(s string) []string {
	matches := reWord.FindAllString(strings.ToLower(s), -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

func clampCursor(text string, cursor int) int {
	if cursor < 0 {
		return 0
	}
	if cursor > len(text) {
		return len(text)
	}
	for cursor > 0 && cursor < len(text) && !utf8.RuneStart(text[cursor]) {
		cursor--
	}
	return cursor
}

// NormalizeConfidence maps a provider confidence onto the 0-1 scale.
// Values above 1 are read as percentages.
func NormalizeConfidence(c float64) float64 {
	if math.IsNaN(c) || c <= 0 {
		return 0
	}
	if c > 1 {
		c /= 100
	}
	if c > 1 {
		return 1
	}
	return c
}
