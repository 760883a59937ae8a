package corpus

import (
	"regexp"
	"strings"
)

var (
	reToken       = regexp.MustCompile(`[a-z0-9]+(?:['’-][a-z0-9]+)*|[.,!?;:(){}\[\]…—–-]+`)
	rePunctGroup  = regexp.MustCompile(`^[.,!?;:…]+$`)
	reEndsWord    = regexp.MustCompile(`[a-z0-9]$`)
	reSentenceEnd = regexp.MustCompile(`[.!?]$`)
)

// NormalizeText lower-cases and trims text.
func NormalizeText(text string) string {
	return strings.TrimSpace(strings.ToLower(text))
}

// Tokenize splits text into lower-cased word and punctuation tokens.
// Trailing punctuation such as "," or "..." is glued onto the word it follows,
// so "Hello, world." yields ["hello,", "world."].
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	raw := reToken.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		n := len(tokens)
		if n > 0 && rePunctGroup.MatchString(tok) && reEndsWord.MatchString(tokens[n-1]) {
			tokens[n-1] += tok
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// endsSentence reports whether tok closes a sentence.
func endsSentence(tok string) bool {
	return reSentenceEnd.MatchString(tok)
}
