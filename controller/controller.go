// Package controller binds a suggestion engine to one input element. It turns
// the element's event stream into engine requests and decides what ghost text
// the renderer shows.
package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Paranoid-AF/surmiser"
	"github.com/Paranoid-AF/surmiser/corpus"
	"github.com/Paranoid-AF/surmiser/engine"
)

// Env carries the host collaborators shared by attachments. The zero value
// uses the system clock, the HTTP fetcher, no renderer and the default logger.
type Env struct {
	Clock       engine.Clock
	Fetcher     engine.Fetcher
	NewRenderer RendererFactory
	Logger      *slog.Logger
	// BaseCorpus is the shared corpus that Options.Corpus replaces or extends.
	// Nil selects the embedded default corpus.
	BaseCorpus []string
}

type listener struct {
	fn func(*Event)
}

func (l *listener) HandleEvent(e *Event) { l.fn(e) }

type binding struct {
	typ EventType
	l   *listener
}

// Controller is the state machine of one attachment. Host events are
// expected to arrive one at a time; engine results arrive on the engine's
// timer goroutine and are serialized against them by an internal lock.
// Renderer calls are made while that lock is held, so a Renderer must not
// call back into the controller synchronously.
type Controller struct {
	id       string
	el       Element
	env      Env
	log      *slog.Logger
	renderer Renderer
	bindings []binding

	accepting atomic.Bool

	mu           sync.Mutex
	engine       *engine.Engine
	opts         surmiser.Options
	lastValue    string
	cursor       int
	atEnd        bool
	composing    bool
	dismissed    bool
	touchStart   *Point
	segmentStart int
	display      string
	requested    surmiser.SuggestionContext
	detached     bool
}

// Attach validates opts, creates the engine and renderer, and starts
// listening on el. A configuration error leaves el untouched.
func Attach(el Element, opts surmiser.Options, env Env) (*Controller, error) {
	if el == nil {
		return nil, errors.New("attach: nil element")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}

	id := uuid.NewString()
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		id:   id,
		el:   el,
		env:  env,
		log:  logger.With("attachment", id),
		opts: opts,
	}
	c.engine = c.newEngine(opts)

	newRenderer := env.NewRenderer
	if newRenderer == nil {
		newRenderer = func(Element, func()) Renderer { return nopRenderer{} }
	}
	c.renderer = newRenderer(el, func() { c.Accept() })

	value := el.Value()
	c.lastValue = value
	c.cursor = clampCursor(value, el.SelectionStart())
	c.atEnd = c.cursor == len(value)

	c.bindings = []binding{
		{EventInput, &listener{c.handleInput}},
		{EventKeyDown, &listener{c.handleKeyDown}},
		{EventKeyUp, &listener{c.handleCursorMove}},
		{EventClick, &listener{c.handleCursorMove}},
		{EventBlur, &listener{c.handleBlur}},
		{EventCompositionStart, &listener{c.handleCompositionStart}},
		{EventCompositionEnd, &listener{c.handleCompositionEnd}},
		{EventTouchStart, &listener{c.handleTouchStart}},
		{EventTouchEnd, &listener{c.handleTouchEnd}},
	}
	for _, b := range c.bindings {
		el.AddEventListener(b.typ, b.l)
	}

	c.log.Debug("attached", "providers", len(c.engine.Providers()))
	return c, nil
}

func (c *Controller) newEngine(opts surmiser.Options) *engine.Engine {
	var eng *engine.Engine
	eng = engine.New(engine.Config{
		Providers:     c.providers(opts),
		Debounce:      opts.DebounceOrDefault(),
		MinConfidence: opts.MinConfidenceOrDefault(),
		OnSuggestion: func(s *surmiser.Suggestion) {
			c.onSuggestion(eng, s)
		},
		Clock:   c.env.Clock,
		Fetcher: c.env.Fetcher,
		Logger:  c.log,
	})
	return eng
}

// providers resolves the provider set of opts. A corpus is wrapped into a
// predictive provider; with neither, the base or default corpus is used.
func (c *Controller) providers(opts surmiser.Options) []surmiser.Provider {
	switch {
	case len(opts.Providers) > 0:
		return opts.Providers
	case len(opts.Corpus) > 0:
		phrases := corpus.Compose(c.env.BaseCorpus, opts.Corpus, opts.CorpusMode)
		return []surmiser.Provider{surmiser.Local(corpus.NewPredictive(phrases))}
	case c.env.BaseCorpus != nil:
		return []surmiser.Provider{surmiser.Local(corpus.NewPredictive(c.env.BaseCorpus))}
	default:
		return []surmiser.Provider{surmiser.Local(corpus.Default())}
	}
}

// ID returns the attachment identifier used in log records.
func (c *Controller) ID() string { return c.id }

// Current returns the engine's current suggestion, or nil.
func (c *Controller) Current() *surmiser.Suggestion {
	c.mu.Lock()
	eng := c.engine
	c.mu.Unlock()
	return eng.CurrentSuggestion()
}

// Display returns the ghost text currently shown.
func (c *Controller) Display() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// onSuggestion receives every engine notification. Results of a replaced
// engine, or computed for text that is no longer in the element, are dropped.
func (c *Controller) onSuggestion(eng *engine.Engine, s *surmiser.Suggestion) {
	c.mu.Lock()
	if c.detached || c.engine != eng {
		c.mu.Unlock()
		return
	}
	text := ""
	if s != nil && !c.composing && !c.dismissed &&
		c.requested.Text == c.lastValue && c.requested.Cursor == c.cursor {
		text = s.Completion
	}
	c.renderLocked(text)
	cb := c.opts.OnSuggestion
	c.mu.Unlock()

	if cb != nil {
		cb(s)
	}
}

func (c *Controller) renderLocked(text string) {
	c.display = text
	c.renderer.Render(c.lastValue, c.cursor, text)
}

// requestLocked asks the engine for a suggestion for the recorded value.
func (c *Controller) requestLocked() {
	sc := surmiser.BuildContext(c.lastValue, c.cursor)
	sc.SegmentStart = c.segmentStart
	c.requested = sc
	c.engine.RequestSuggestion(sc)
}

// clear drops pending work and the current suggestion. The engine's
// notification renders the empty ghost text. Must be called without c.mu.
func (c *Controller) clear() {
	c.mu.Lock()
	eng := c.engine
	eng.Cancel()
	c.mu.Unlock()
	eng.ClearSuggestion()
}

// Clear hides the suggestion without changing the dismissed state.
func (c *Controller) Clear() {
	c.clear()
}

// Dismiss hides the suggestion and stops requesting new ones until the user
// types a non-space character or deletes text.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return
	}
	c.dismissed = true
	c.mu.Unlock()
	c.log.Debug("suggestions dismissed")
	c.clear()
}

// Accept inserts the displayed suggestion at the cursor. It reports whether
// anything was inserted.
func (c *Controller) Accept() bool {
	if !c.accepting.CompareAndSwap(false, true) {
		return false
	}
	defer c.accepting.Store(false)

	c.mu.Lock()
	if c.detached || c.composing || c.dismissed || c.display == "" {
		c.mu.Unlock()
		return false
	}
	eng := c.engine
	accepted := surmiser.Suggestion{Completion: c.display}
	if s := eng.CurrentSuggestion(); s != nil {
		accepted.Confidence = s.Confidence
		accepted.ProviderID = s.ProviderID
	}
	onAccept := c.opts.OnAccept
	c.mu.Unlock()

	c.insert(accepted.Completion)

	value := c.el.Value()
	cursor := clampCursor(value, c.el.SelectionStart())
	tokens := len(corpus.Tokenize(corpus.NormalizeText(value[:cursor])))

	c.mu.Lock()
	c.lastValue = value
	c.cursor = cursor
	c.atEnd = cursor == len(value)
	c.dismissed = false
	c.segmentStart = tokens
	eng.Cancel()
	c.mu.Unlock()

	eng.ClearSuggestion()
	if onAccept != nil {
		onAccept(accepted)
	}
	eng.MarkSegmentBoundary(tokens)

	c.log.Debug("suggestion accepted", "provider", accepted.ProviderID, "tokens", tokens)
	return true
}

// insert puts text at the cursor, through the host's native insertion when
// it has one.
func (c *Controller) insert(text string) {
	if ins, ok := c.el.(TextInserter); ok && ins.InsertText(text) {
		c.el.ScrollToCursor()
		return
	}

	value := c.el.Value()
	cursor := clampCursor(value, c.el.SelectionStart())
	end := cursor + len(text)
	c.el.SetValue(value[:cursor] + text + value[cursor:])
	c.el.SetSelectionRange(end, end)
	c.el.DispatchEvent(&Event{Type: EventInput, Synthetic: true})
	c.el.ScrollToCursor()
}

// Reconfigure replaces the engine with one built from opts. The current
// suggestion is dropped and, unless suggestions are suppressed, a new one is
// requested for the current text.
func (c *Controller) Reconfigure(opts surmiser.Options) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("reconfigure: %w", err)
	}

	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return surmiser.ErrDetached
	}
	old := c.engine
	c.engine = c.newEngine(opts)
	c.opts = opts
	c.renderLocked("")
	if !c.composing && !c.dismissed && c.lastValue != "" {
		c.requestLocked()
	}
	c.mu.Unlock()

	old.Destroy()
	c.log.Debug("reconfigured", "providers", len(opts.Providers), "corpus", len(opts.Corpus))
	return nil
}

// Detach removes every listener and releases the engine and renderer.
// Calling it again has no effect.
func (c *Controller) Detach() {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return
	}
	c.detached = true
	eng := c.engine
	bindings := c.bindings
	c.bindings = nil
	c.composing = false
	c.dismissed = false
	c.touchStart = nil
	c.display = ""
	c.mu.Unlock()

	for _, b := range bindings {
		c.el.RemoveEventListener(b.typ, b.l)
	}
	eng.Destroy()
	c.renderer.Destroy()
	c.log.Debug("detached")
}

func (c *Controller) handleInput(*Event) {
	if c.accepting.Load() {
		return
	}
	value := c.el.Value()
	cursor := clampCursor(value, c.el.SelectionStart())

	c.mu.Lock()
	if c.detached || c.composing {
		c.mu.Unlock()
		return
	}
	last := c.lastValue
	c.lastValue = value
	c.cursor = cursor
	c.atEnd = cursor == len(value)

	if endsWithDoubleSpace(value[:cursor]) {
		c.dismissed = true
		c.mu.Unlock()
		c.clear()
		return
	}
	if c.dismissed && resumes(value, last, cursor) {
		c.dismissed = false
	}
	if value == "" {
		c.dismissed = false
		c.segmentStart = 0
		c.mu.Unlock()
		c.clear()
		return
	}
	if c.dismissed {
		c.mu.Unlock()
		return
	}

	if c.segmentStart > 0 && len(corpus.Tokenize(corpus.NormalizeText(value[:cursor]))) < c.segmentStart {
		c.segmentStart = 0
	}
	c.renderLocked(displaySuggestion(c.display, value, last))
	c.requestLocked()
	c.mu.Unlock()
}

// visible reports whether a suggestion is on screen and can be acted on.
func (c *Controller) visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.detached && !c.composing && !c.dismissed && c.display != ""
}

func (c *Controller) handleKeyDown(e *Event) {
	if !c.visible() {
		return
	}
	switch e.Key {
	case KeyTab:
		if c.Accept() {
			e.PreventDefault()
		}
	case KeyArrowRight:
		if c.el.SelectionStart() != len(c.el.Value()) {
			return
		}
		if c.Accept() {
			e.PreventDefault()
		}
	case KeyEscape:
		c.Dismiss()
	}
}

// handleCursorMove reacts only when the cursor leaves or returns to the end
// of the text.
func (c *Controller) handleCursorMove(*Event) {
	value := c.el.Value()
	cursor := clampCursor(value, c.el.SelectionStart())
	atEnd := cursor == len(value)

	c.mu.Lock()
	if c.detached || c.composing || atEnd == c.atEnd {
		c.mu.Unlock()
		return
	}
	c.atEnd = atEnd
	c.lastValue = value
	c.cursor = cursor
	if !atEnd {
		c.mu.Unlock()
		c.clear()
		return
	}
	if !c.dismissed && value != "" {
		c.requestLocked()
	}
	c.mu.Unlock()
}

func (c *Controller) handleBlur(*Event) {
	c.clear()
}

func (c *Controller) handleCompositionStart(*Event) {
	c.mu.Lock()
	c.composing = true
	c.mu.Unlock()
	c.clear()
}

func (c *Controller) handleCompositionEnd(e *Event) {
	c.mu.Lock()
	c.composing = false
	c.mu.Unlock()
	c.handleInput(e)
}

func (c *Controller) handleTouchStart(e *Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchStart = nil
	if len(e.Touches) == 1 {
		p := e.Touches[0]
		c.touchStart = &p
	}
}

func (c *Controller) handleTouchEnd(e *Event) {
	c.mu.Lock()
	start := c.touchStart
	c.touchStart = nil
	c.mu.Unlock()

	if start == nil || len(e.ChangedTouches) == 0 || !c.visible() {
		return
	}
	if isSwipeRight(*start, e.ChangedTouches[0]) && c.Accept() {
		e.PreventDefault()
	}
}
