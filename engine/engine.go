// Package engine debounces suggestion requests and resolves each one against
// a priority-ordered set of providers.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Paranoid-AF/surmiser"
)

// Fetcher resolves a remote provider call. It never fails: network errors,
// timeouts, cancellation and empty answers all yield nil.
type Fetcher interface {
	Fetch(ctx context.Context, cfg surmiser.RemoteProviderConfig, sc surmiser.SuggestionContext) *surmiser.Suggestion
}

// Config holds the engine settings. Zero values select the package defaults.
type Config struct {
	Providers      []surmiser.Provider
	Debounce       time.Duration
	MinConfidence  float64
	HighConfidence float64
	// OnSuggestion is invoked with every newly resolved suggestion, or nil.
	// It runs on the evaluation goroutine, or on the caller's goroutine for ClearSuggestion.
	OnSuggestion func(*surmiser.Suggestion)
	Clock        Clock
	Fetcher      Fetcher
	Logger       *slog.Logger
}

// Engine owns the request lifecycle of one attached input.
type Engine struct {
	providers      []surmiser.Provider
	debounce       time.Duration
	minConfidence  float64
	highConfidence float64
	onSuggestion   func(*surmiser.Suggestion)
	clock          Clock
	fetcher        Fetcher
	log            *slog.Logger

	mu        sync.Mutex
	current   *surmiser.Suggestion
	timer     Timer
	cancel    context.CancelFunc
	gen       uint64
	destroyed bool
}

// New creates an engine. Providers are sorted by descending priority once;
// ties keep their given order.
func New(cfg Config) *Engine {
	providers := make([]surmiser.Provider, len(cfg.Providers))
	copy(providers, cfg.Providers)
	sort.SliceStable(providers, func(i, j int) bool {
		return providers[i].Priority() > providers[j].Priority()
	})

	e := &Engine{
		providers:      providers,
		debounce:       cfg.Debounce,
		minConfidence:  cfg.MinConfidence,
		highConfidence: cfg.HighConfidence,
		onSuggestion:   cfg.OnSuggestion,
		clock:          cfg.Clock,
		fetcher:        cfg.Fetcher,
		log:            cfg.Logger,
	}
	if e.debounce <= 0 {
		e.debounce = surmiser.DefaultDebounce
	}
	if e.minConfidence <= 0 {
		e.minConfidence = surmiser.DefaultMinConfidence
	}
	if e.highConfidence <= 0 {
		e.highConfidence = surmiser.HighConfidence
	}
	if e.clock == nil {
		e.clock = SystemClock
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.fetcher == nil && hasRemote(providers) {
		e.fetcher = NewHTTPFetcher(nil, "", e.log)
	}
	return e
}

func hasRemote(providers []surmiser.Provider) bool {
	for _, p := range providers {
		if p.Kind() == surmiser.KindRemote {
			return true
		}
	}
	return false
}

// RequestSuggestion supersedes any pending or in-flight request and
// evaluates sc once the debounce period passes without another request.
func (e *Engine) RequestSuggestion(sc surmiser.SuggestionContext) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return
	}
	e.cancelLocked()

	e.gen++
	gen := e.gen
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.timer = e.clock.AfterFunc(e.debounce, func() {
		e.evaluate(ctx, gen, sc)
	})
}

// Cancel drops any pending or in-flight request without touching the
// current suggestion.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.cancelLocked()
}

// cancelLocked stops the debounce timer and cancels the in-flight evaluation.
func (e *Engine) cancelLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// evaluate queries providers in priority order, one at a time, so that a
// high-confidence answer from a higher priority provider skips the rest.
func (e *Engine) evaluate(ctx context.Context, gen uint64, sc surmiser.SuggestionContext) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()

	var best *surmiser.Suggestion
	for _, p := range e.providers {
		if ctx.Err() != nil {
			return
		}

		s, err := e.suggest(ctx, p, sc)
		if ctx.Err() != nil {
			e.log.Debug("evaluation superseded", "provider", p.ID())
			return
		}
		if err != nil {
			e.log.Warn("provider failed", "provider", p.ID(), "error", err)
			continue
		}
		if s == nil || s.Completion == "" {
			continue
		}

		accepted := *s
		accepted.Confidence = surmiser.NormalizeConfidence(accepted.Confidence)
		if accepted.ProviderID == "" {
			accepted.ProviderID = p.ID()
		}
		if accepted.Confidence < e.minConfidence {
			continue
		}
		if accepted.Confidence >= e.highConfidence {
			best = &accepted
			break
		}
		if best == nil || accepted.Confidence > best.Confidence {
			best = &accepted
		}
	}

	e.mu.Lock()
	if gen != e.gen || e.destroyed || ctx.Err() != nil {
		e.mu.Unlock()
		return
	}
	e.current = best
	e.mu.Unlock()

	if best != nil {
		e.log.Debug("suggestion resolved", "provider", best.ProviderID, "confidence", best.Confidence, "elapsed", time.Since(start))
	}
	e.notify(best)
}

// suggest calls one provider, converting panics into errors.
func (e *Engine) suggest(ctx context.Context, p surmiser.Provider, sc surmiser.SuggestionContext) (s *surmiser.Suggestion, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("provider panicked: %v", r)
		}
	}()

	if cfg, ok := p.RemoteConfig(); ok {
		if e.fetcher == nil {
			return nil, fmt.Errorf("no fetcher for remote provider %q", cfg.ID)
		}
		return e.fetcher.Fetch(ctx, cfg, sc), nil
	}
	local, ok := p.LocalProvider()
	if !ok {
		return nil, fmt.Errorf("provider %q has no implementation", p.ID())
	}
	return local.Suggest(ctx, sc)
}

func (e *Engine) notify(s *surmiser.Suggestion) {
	if e.onSuggestion != nil {
		e.onSuggestion(s)
	}
}

// CurrentSuggestion returns the last accepted result, or nil.
func (e *Engine) CurrentSuggestion() *surmiser.Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// ClearSuggestion drops the current suggestion and notifies the callback.
// An in-flight evaluation is left running.
func (e *Engine) ClearSuggestion() {
	e.mu.Lock()
	e.current = nil
	e.mu.Unlock()
	e.notify(nil)
}

// MarkSegmentBoundary forwards tokenCount to every local provider that tracks segments.
func (e *Engine) MarkSegmentBoundary(tokenCount int) {
	for _, p := range e.providers {
		local, ok := p.LocalProvider()
		if !ok {
			continue
		}
		if m, ok := local.(surmiser.SegmentMarker); ok {
			m.MarkSegmentBoundary(tokenCount)
		}
	}
}

// Providers returns the providers in evaluation order.
func (e *Engine) Providers() []surmiser.Provider {
	out := make([]surmiser.Provider, len(e.providers))
	copy(out, e.providers)
	return out
}

// Destroy cancels pending work. It is safe to call more than once.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.cancelLocked()
}
