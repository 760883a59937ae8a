package index

import (
	"context"
	"strings"

	"github.com/Paranoid-AF/surmiser"
	"github.com/Paranoid-AF/surmiser/corpus"
	"github.com/Paranoid-AF/surmiser/redact"
)

// ProviderID identifies suggestions from the semantic provider.
const ProviderID = "semantic"

const (
	// DefaultPriority ranks the semantic provider below the predictive one.
	DefaultPriority = 5
	// DefaultTopK is the number of neighbours inspected per query.
	DefaultTopK = 8

	minConfidence = 0.7
	maxConfidence = 0.9
)

// ProviderOptions configures a semantic Provider.
type ProviderOptions struct {
	TopK     int
	Priority int
	// Redact strips sensitive variable references from the query before it is embedded.
	Redact bool
}

// Provider suggests continuations of the indexed phrases closest in meaning
// to the current segment. A phrase only qualifies when it also continues the
// typed tokens, so it never suggests text that contradicts the input.
type Provider struct {
	idx      *Indexer
	topK     int
	priority int
	redact   bool
}

// NewProvider returns a semantic provider over idx.
func NewProvider(idx *Indexer, opts ProviderOptions) *Provider {
	p := &Provider{idx: idx, topK: opts.TopK, priority: opts.Priority, redact: opts.Redact}
	if p.topK <= 0 {
		p.topK = DefaultTopK
	}
	if p.priority == 0 {
		p.priority = DefaultPriority
	}
	return p
}

func (p *Provider) ID() string    { return ProviderID }
func (p *Provider) Priority() int { return p.priority }

func (p *Provider) Suggest(ctx context.Context, sc surmiser.SuggestionContext) (*surmiser.Suggestion, error) {
	seg := corpus.NewSegment(sc.BeforeCursor(), sc.SegmentStart)
	if !seg.Usable() {
		return nil, nil
	}

	query := strings.Join(seg.Tokens, " ")
	if p.redact {
		query = redact.Text(query)
	}
	matches, err := p.idx.Search(ctx, query, p.topK)
	if err != nil {
		return nil, err
	}

	for _, m := range matches {
		tokens := corpus.Tokenize(m.Phrase)
		for _, matchLen := range seg.MatchLengths() {
			completion, ok := seg.Continue(tokens, matchLen)
			if !ok {
				continue
			}
			if completion == "" {
				break
			}
			return &surmiser.Suggestion{
				Completion: completion,
				Confidence: scaleSimilarity(m.Similarity),
				ProviderID: ProviderID,
			}, nil
		}
	}
	return nil, nil
}

// scaleSimilarity maps a cosine similarity onto [minConfidence, maxConfidence].
func scaleSimilarity(sim float64) float64 {
	sim = max(0, min(1, sim))
	return minConfidence + sim*(maxConfidence-minConfidence)
}
