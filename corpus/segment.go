package corpus

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxDiscard is how many leading segment tokens a match may ignore.
	MaxDiscard = 1
	// ContextWindow is the number of trailing tokens considered for matching.
	ContextWindow = 6
)

// Segment is the tail of the typed text that a phrase has to continue.
type Segment struct {
	// Tokens are the segment tokens, at most ContextWindow of them.
	Tokens []string
	// MidWord is set when the text does not end in whitespace, so the last
	// token is matched as a prefix.
	MidWord bool
	// PunctReset is set when the segment starts after sentence punctuation.
	PunctReset bool
	// Fresh is set when nothing has been accepted and the whole input is the segment.
	Fresh bool
}

// NewSegment selects the segment of before. Tokens after the last sentence
// punctuation win over segmentStart, which is the token count at the last
// accepted suggestion.
func NewSegment(before string, segmentStart int) Segment {
	all := Tokenize(NormalizeText(before))

	var seg Segment
	last := -1
	for i := len(all) - 1; i >= 0; i-- {
		if endsSentence(all[i]) {
			last = i
			break
		}
	}

	var tokens []string
	switch {
	case last >= 0:
		tokens = all[last+1:]
		seg.PunctReset = true
	case segmentStart < len(all):
		tokens = all[max(segmentStart, 0):]
	}
	if len(tokens) > ContextWindow {
		tokens = tokens[len(tokens)-ContextWindow:]
	}

	seg.Tokens = tokens
	seg.Fresh = segmentStart <= 0 && len(tokens) == len(all)
	if r, _ := utf8.DecodeLastRuneInString(before); before != "" && !unicode.IsSpace(r) {
		seg.MidWord = true
	}
	return seg
}

// Usable reports whether the segment can produce a suggestion. A lone token
// only counts at the start of the input or of a sentence.
func (s Segment) Usable() bool {
	switch len(s.Tokens) {
	case 0:
		return false
	case 1:
		return s.Fresh || s.PunctReset
	default:
		return true
	}
}

// MatchLengths returns the suffix lengths to try, longest first.
func (s Segment) MatchLengths() []int {
	n := len(s.Tokens)
	var lengths []int
	for l := n; l >= 1; l-- {
		if n-l > MaxDiscard {
			continue
		}
		if l == 1 && n > 1 {
			continue
		}
		if l == 1 && len(s.Tokens[n-1]) < 2 {
			continue
		}
		lengths = append(lengths, l)
	}
	return lengths
}

// Continue matches the last matchLen segment tokens against the start of
// phrase. It reports whether the phrase matched and the completion it offers,
// which may be empty when the phrase has nothing left to add.
func (s Segment) Continue(phrase []string, matchLen int) (string, bool) {
	if matchLen < 1 || matchLen > len(s.Tokens) || len(phrase) < matchLen {
		return "", false
	}
	input := s.Tokens[len(s.Tokens)-matchLen:]
	for i := 0; i < matchLen-1; i++ {
		if phrase[i] != input[i] {
			return "", false
		}
	}

	typed, want := input[matchLen-1], phrase[matchLen-1]
	if s.MidWord {
		if !strings.HasPrefix(want, typed) {
			return "", false
		}
	} else if want != typed {
		return "", false
	}

	var b strings.Builder
	if s.MidWord {
		b.WriteString(want[len(typed):])
	}
	if rest := phrase[matchLen:]; len(rest) > 0 {
		if s.MidWord {
			b.WriteByte(' ')
		}
		b.WriteString(strings.Join(rest, " "))
	}
	return b.String(), true
}

// Confidence maps a match length onto the 0-1 scale.
func Confidence(matchLen int) float64 {
	switch {
	case matchLen >= 3:
		return 0.85
	case matchLen >= 2:
		return 0.80
	default:
		return 0.75
	}
}
