package surmiser

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrCorpusWithProviders is returned when both Corpus and Providers are set.
	ErrCorpusWithProviders = errors.New("corpus and providers are mutually exclusive")
	// ErrInvalidDebounce is returned for a negative debounce.
	ErrInvalidDebounce = errors.New("debounce must not be negative")
	// ErrInvalidConfidence is returned for a minimum confidence outside [0, 1].
	// Zero is valid and selects DefaultMinConfidence.
	ErrInvalidConfidence = errors.New("min confidence must be within [0, 1]")
	// ErrDuplicateProvider is returned when two providers share an id.
	ErrDuplicateProvider = errors.New("duplicate provider id")
	// ErrInvalidProvider is returned for a provider missing required fields.
	ErrInvalidProvider = errors.New("invalid provider")
	// ErrDetached is returned when operating on a detached controller.
	ErrDetached = errors.New("controller is detached")
)

// CorpusMode selects how Options.Corpus combines with the base corpus.
type CorpusMode int

const (
	// CorpusReplace uses Options.Corpus as the whole corpus.
	CorpusReplace CorpusMode = iota
	// CorpusAppend adds Options.Corpus after the base corpus.
	CorpusAppend
)

func (m CorpusMode) String() string {
	switch m {
	case CorpusReplace:
		return "replace"
	case CorpusAppend:
		return "append"
	default:
		return fmt.Sprintf("CorpusMode(%d)", int(m))
	}
}

// ParseCorpusMode parses "replace" or "append". Empty means replace.
func ParseCorpusMode(s string) (CorpusMode, error) {
	switch s {
	case "", "replace":
		return CorpusReplace, nil
	case "append":
		return CorpusAppend, nil
	default:
		return CorpusReplace, fmt.Errorf("unknown corpus mode %q", s)
	}
}

// Options configures one attachment.
type Options struct {
	// Providers are the suggestion sources. Mutually exclusive with Corpus.
	Providers []Provider
	// Corpus is wrapped into the built-in predictive provider.
	Corpus     []string
	CorpusMode CorpusMode
	// Debounce is the quiet period before evaluation. Zero means DefaultDebounce.
	Debounce time.Duration
	// MinConfidence is the acceptance threshold in (0, 1]. Zero means
	// DefaultMinConfidence, so a threshold of exactly zero cannot be set; a
	// small positive value such as 0.01 lets nearly every suggestion through.
	MinConfidence float64

	OnSuggestion func(*Suggestion)
	OnAccept     func(Suggestion)
}

// Validate reports every configuration problem in o.
func (o Options) Validate() error {
	var result *multierror.Error

	if len(o.Corpus) > 0 && len(o.Providers) > 0 {
		result = multierror.Append(result, ErrCorpusWithProviders)
	}
	if o.Debounce < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: %s", ErrInvalidDebounce, o.Debounce))
	}
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		result = multierror.Append(result, fmt.Errorf("%w: %v", ErrInvalidConfidence, o.MinConfidence))
	}
	if o.CorpusMode != CorpusReplace && o.CorpusMode != CorpusAppend {
		result = multierror.Append(result, fmt.Errorf("unknown corpus mode %s", o.CorpusMode))
	}

	seen := make(map[string]bool, len(o.Providers))
	for i, p := range o.Providers {
		id := p.ID()
		switch p.Kind() {
		case KindLocal:
			if _, ok := p.LocalProvider(); !ok {
				result = multierror.Append(result, fmt.Errorf("%w: provider %d has no implementation", ErrInvalidProvider, i))
				continue
			}
		case KindRemote:
			cfg, _ := p.RemoteConfig()
			if cfg.Endpoint == "" {
				result = multierror.Append(result, fmt.Errorf("%w: remote provider %q has no endpoint", ErrInvalidProvider, id))
			}
			if cfg.TimeoutMs < 0 {
				result = multierror.Append(result, fmt.Errorf("%w: remote provider %q has negative timeout", ErrInvalidProvider, id))
			}
		}
		if id == "" {
			result = multierror.Append(result, fmt.Errorf("%w: provider %d has no id", ErrInvalidProvider, i))
			continue
		}
		if seen[id] {
			result = multierror.Append(result, fmt.Errorf("%w: %q", ErrDuplicateProvider, id))
		}
		seen[id] = true
	}

	return result.ErrorOrNil()
}

// DebounceOrDefault returns the effective debounce.
func (o Options) DebounceOrDefault() time.Duration {
	if o.Debounce <= 0 {
		return DefaultDebounce
	}
	return o.Debounce
}

// MinConfidenceOrDefault returns the effective acceptance threshold. The
// zero value maps to DefaultMinConfidence.
func (o Options) MinConfidenceOrDefault() float64 {
	if o.MinConfidence <= 0 {
		return DefaultMinConfidence
	}
	return o.MinConfidence
}
