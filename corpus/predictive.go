// Package corpus provides the built-in predictive provider, which completes
// the typed phrase from a list of known phrases.
package corpus

import (
	"context"
	"sync/atomic"

	"github.com/Paranoid-AF/surmiser"
)

// ProviderID identifies suggestions from the predictive provider.
const ProviderID = "local-predictive"

type phrase struct {
	tokens []string
}

// Predictive is a local provider matching the current segment against the
// start of each corpus phrase. It keeps no per-input state and can be shared
// between attachments.
type Predictive struct {
	phrases atomic.Pointer[[]phrase]
}

// NewPredictive returns a provider over phrases.
func NewPredictive(phrases []string) *Predictive {
	p := &Predictive{}
	p.SetPhrases(phrases)
	return p
}

// SetPhrases replaces the corpus. In-flight Suggest calls finish against the
// previous corpus.
func (p *Predictive) SetPhrases(phrases []string) {
	processed := make([]phrase, 0, len(phrases))
	for _, text := range phrases {
		tokens := Tokenize(text)
		if len(tokens) == 0 {
			continue
		}
		processed = append(processed, phrase{tokens: tokens})
	}
	p.phrases.Store(&processed)
}

// Len returns the number of usable phrases.
func (p *Predictive) Len() int {
	return len(*p.phrases.Load())
}

func (p *Predictive) ID() string    { return ProviderID }
func (p *Predictive) Priority() int { return surmiser.DefaultPriority }

// Suggest tries the longest allowed match first. The first phrase matching at
// a length decides the result; shorter lengths are not tried once any phrase
// matched.
func (p *Predictive) Suggest(ctx context.Context, sc surmiser.SuggestionContext) (*surmiser.Suggestion, error) {
	before := sc.BeforeCursor()
	if NormalizeText(before) == "" {
		return nil, nil
	}

	seg := NewSegment(before, sc.SegmentStart)
	if !seg.Usable() {
		return nil, nil
	}

	phrases := *p.phrases.Load()
	for _, matchLen := range seg.MatchLengths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found := false
		for _, ph := range phrases {
			completion, ok := seg.Continue(ph.tokens, matchLen)
			if !ok {
				continue
			}
			found = true
			if completion != "" {
				return &surmiser.Suggestion{
					Completion: completion,
					Confidence: Confidence(matchLen),
					ProviderID: ProviderID,
				}, nil
			}
		}
		if found {
			break
		}
	}
	return nil, nil
}
