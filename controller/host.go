package controller

import "sync"

// EventType names an input element event.
type EventType string

const (
	EventInput            EventType = "input"
	EventKeyDown          EventType = "keydown"
	EventKeyUp            EventType = "keyup"
	EventClick            EventType = "click"
	EventBlur             EventType = "blur"
	EventCompositionStart EventType = "compositionstart"
	EventCompositionEnd   EventType = "compositionend"
	EventTouchStart       EventType = "touchstart"
	EventTouchEnd         EventType = "touchend"
)

// Key names understood by the keydown handler.
const (
	KeyTab        = "Tab"
	KeyArrowRight = "ArrowRight"
	KeyEscape     = "Escape"
)

// Point is a touch position in pixels.
type Point struct {
	X, Y float64
}

// Event is a host event delivered to listeners.
type Event struct {
	Type EventType
	// Key is set for keyboard events.
	Key string
	// Touches are the active touches of a touchstart event.
	Touches []Point
	// ChangedTouches are the touches that ended in a touchend event.
	ChangedTouches []Point
	// Synthetic marks events dispatched by the controller itself.
	Synthetic bool

	defaultPrevented bool
}

// PreventDefault asks the host to skip its default action for e.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// Listener receives events. Listeners are compared by identity, so the same
// value must be passed to AddEventListener and RemoveEventListener.
type Listener interface {
	HandleEvent(e *Event)
}

// Element is the input-like element a controller attaches to. Offsets are
// byte offsets into Value.
type Element interface {
	Value() string
	SelectionStart() int
	SetValue(v string)
	SetSelectionRange(start, end int)
	// ScrollToCursor reveals the caret after a programmatic edit.
	ScrollToCursor()

	AddEventListener(t EventType, l Listener)
	RemoveEventListener(t EventType, l Listener)
	DispatchEvent(e *Event)
}

// TextInserter is implemented by elements with a native insertion primitive
// that keeps the host's undo history. InsertText inserts at the cursor,
// leaves the cursor after the inserted text and reports whether it succeeded.
type TextInserter interface {
	InsertText(text string) bool
}

// Renderer paints the ghost text. An empty suggestion clears it.
type Renderer interface {
	Render(text string, cursor int, suggestion string)
	Destroy()
}

// RendererFactory creates the renderer of an attachment. onTap accepts the
// current suggestion and may be wired to a tap on the ghost text.
type RendererFactory func(el Element, onTap func()) Renderer

type nopRenderer struct{}

func (nopRenderer) Render(string, int, string) {}
func (nopRenderer) Destroy()                   {}

// EventTarget is a listener registry that hosts can embed to implement the
// listener half of Element. Adding a listener twice for the same type has no
// effect.
type EventTarget struct {
	mu        sync.Mutex
	listeners map[EventType][]Listener
}

func (t *EventTarget) AddEventListener(typ EventType, l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listeners == nil {
		t.listeners = make(map[EventType][]Listener)
	}
	for _, existing := range t.listeners[typ] {
		if existing == l {
			return
		}
	}
	t.listeners[typ] = append(t.listeners[typ], l)
}

func (t *EventTarget) RemoveEventListener(typ EventType, l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ls := t.listeners[typ]
	for i, existing := range ls {
		if existing == l {
			t.listeners[typ] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// DispatchEvent calls every listener registered for e.Type, in registration
// order, on the calling goroutine.
func (t *EventTarget) DispatchEvent(e *Event) {
	t.mu.Lock()
	ls := append([]Listener(nil), t.listeners[e.Type]...)
	t.mu.Unlock()
	for _, l := range ls {
		l.HandleEvent(e)
	}
}

// ListenerCount returns the number of registered listeners of all types.
func (t *EventTarget) ListenerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, ls := range t.listeners {
		n += len(ls)
	}
	return n
}
