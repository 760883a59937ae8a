package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Paranoid-AF/surmiser/controller"
)

// escTimeout separates a lone Escape key from the start of an escape sequence.
const escTimeout = 30 * time.Millisecond

// ErrInterrupt is returned when the user presses Ctrl-C.
var ErrInterrupt = errors.New("interrupted")

// Editor is a minimal line editor that acts as the input element of an
// attachment. It reads from /dev/tty so it works even when stdout is
// redirected. Key presses are turned into input, keydown and keyup events.
type Editor struct {
	controller.EventTarget

	tty      *os.File
	oldState *term.State
	prompt   string
	faint    lipgloss.Style

	mu    sync.Mutex // guards the fields below and writes to tty
	buf   []byte
	pos   int // cursor byte offset into buf
	ghost string
}

// NewEditor opens /dev/tty and switches to raw mode.
func NewEditor(prompt string) (*Editor, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/tty: %w", err)
	}

	old, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("raw mode: %w", err)
	}

	renderer := lipgloss.NewRenderer(tty)
	return &Editor{
		tty:      tty,
		oldState: old,
		prompt:   prompt,
		faint:    renderer.NewStyle().Faint(true),
	}, nil
}

// Close restores terminal state and closes the tty fd.
func (e *Editor) Close() {
	term.Restore(int(e.tty.Fd()), e.oldState)
	e.tty.Close()
}

func (e *Editor) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return string(e.buf)
}

func (e *Editor) SelectionStart() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos
}

func (e *Editor) SetValue(v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buf = []byte(v)
	e.pos = len(e.buf)
	e.redrawLocked()
}

func (e *Editor) SetSelectionRange(start, _ int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos = max(0, min(start, len(e.buf)))
	e.redrawLocked()
}

// ScrollToCursor redraws the line; a single terminal line has nothing to scroll.
func (e *Editor) ScrollToCursor() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.redrawLocked()
}

// Above runs print with the prompt line cleared and redraws the line after.
func (e *Editor) Above(print func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprint(e.tty, "\r\x1b[K")
	print()
	e.redrawLocked()
}

// NewRenderer implements controller.RendererFactory with faint ghost text
// drawn at the cursor.
func (e *Editor) NewRenderer(controller.Element, func()) controller.Renderer {
	return ghostRenderer{e: e}
}

type ghostRenderer struct {
	e *Editor
}

func (r ghostRenderer) Render(_ string, _ int, suggestion string) {
	r.e.mu.Lock()
	defer r.e.mu.Unlock()
	r.e.ghost = suggestion
	r.e.redrawLocked()
}

func (r ghostRenderer) Destroy() {
	r.Render("", 0, "")
}

// readKeys forwards bytes from r one at a time until a read fails or done
// is closed. A Read already in progress when done closes still has to return
// before the goroutine exits.
func readKeys(r io.Reader, done <-chan struct{}) (<-chan byte, <-chan error) {
	keys := make(chan byte)
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		var b [1]byte
		for {
			if _, err := r.Read(b[:]); err != nil {
				errc <- err
				return
			}
			select {
			case keys <- b[0]:
			case <-done:
				return
			}
		}
	}()
	return keys, errc
}

// Run reads keys until ctx is done, Ctrl-C, or Ctrl-D on an empty line.
// Enter submits the line and starts a new one.
func (e *Editor) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	keys, errc := readKeys(e.tty, done)

	next := func(timeout <-chan time.Time) (byte, bool) {
		select {
		case b := <-keys:
			return b, true
		case <-timeout:
			return 0, false
		}
	}

	e.redraw()
	for {
		var b byte
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			return err
		case b = <-keys:
		}

		switch b {
		case 3: // Ctrl-C
			fmt.Fprint(e.tty, "\r\n")
			return ErrInterrupt

		case 4: // Ctrl-D
			if e.Value() == "" {
				fmt.Fprint(e.tty, "\r\n")
				return io.EOF
			}

		case 13, 10: // Enter
			e.submit()

		case 9: // Tab
			e.DispatchEvent(&controller.Event{Type: controller.EventKeyDown, Key: controller.KeyTab})

		case 127, 8: // Backspace / Ctrl-H
			e.edit(func() bool {
				if e.pos == 0 {
					return false
				}
				size := prevRuneSize(e.buf, e.pos)
				e.buf = append(e.buf[:e.pos-size], e.buf[e.pos:]...)
				e.pos -= size
				return true
			})

		case 21: // Ctrl-U (clear line)
			e.edit(func() bool {
				e.buf, e.pos = e.buf[:0], 0
				return true
			})

		case 1: // Ctrl-A (Home)
			e.move(func() { e.pos = 0 })

		case 5: // Ctrl-E (End)
			e.move(func() { e.pos = len(e.buf) })

		case 27: // Escape or escape sequence
			c, ok := next(time.After(escTimeout))
			if !ok {
				e.DispatchEvent(&controller.Event{Type: controller.EventKeyDown, Key: controller.KeyEscape})
				continue
			}
			if c != '[' {
				continue
			}
			c, ok = next(time.After(escTimeout))
			if !ok {
				continue
			}
			e.sequence(c, next)

		default:
			if b < 32 {
				continue
			}
			ch := []byte{b}
			for range utf8RuneLen(b) - 1 {
				c, ok := next(time.After(escTimeout))
				if !ok {
					break
				}
				ch = append(ch, c)
			}
			e.edit(func() bool {
				e.buf = append(e.buf[:e.pos], append(ch, e.buf[e.pos:]...)...)
				e.pos += len(ch)
				return true
			})
		}
	}
}

// sequence handles the CSI sequence starting with c.
func (e *Editor) sequence(c byte, next func(<-chan time.Time) (byte, bool)) {
	switch c {
	case 'D': // Left
		e.move(func() { e.pos -= prevRuneSize(e.buf, e.pos) })
	case 'C': // Right
		ev := &controller.Event{Type: controller.EventKeyDown, Key: controller.KeyArrowRight}
		e.DispatchEvent(ev)
		if ev.DefaultPrevented() {
			return
		}
		e.move(func() {
			if e.pos < len(e.buf) {
				_, size := utf8.DecodeRune(e.buf[e.pos:])
				e.pos += size
			}
		})
	case 'H': // Home
		e.move(func() { e.pos = 0 })
	case 'F': // End
		e.move(func() { e.pos = len(e.buf) })
	case '1', '4': // Home / End: \x1b[1~ \x1b[4~
		next(time.After(escTimeout))
		if c == '1' {
			e.move(func() { e.pos = 0 })
		} else {
			e.move(func() { e.pos = len(e.buf) })
		}
	case '3': // Delete: \x1b[3~
		next(time.After(escTimeout))
		e.edit(func() bool {
			if e.pos >= len(e.buf) {
				return false
			}
			_, size := utf8.DecodeRune(e.buf[e.pos:])
			e.buf = append(e.buf[:e.pos], e.buf[e.pos+size:]...)
			return true
		})
	}
}

// edit applies fn to the buffer and fires an input event when it changed
// something. Events are dispatched without holding the lock.
func (e *Editor) edit(fn func() bool) {
	e.mu.Lock()
	changed := fn()
	e.redrawLocked()
	e.mu.Unlock()
	if changed {
		e.DispatchEvent(&controller.Event{Type: controller.EventInput})
	}
}

// move applies a cursor movement and fires keyup.
func (e *Editor) move(fn func()) {
	e.mu.Lock()
	fn()
	e.redrawLocked()
	e.mu.Unlock()
	e.DispatchEvent(&controller.Event{Type: controller.EventKeyUp})
}

// submit ends the current line and starts an empty one.
func (e *Editor) submit() {
	e.DispatchEvent(&controller.Event{Type: controller.EventBlur})
	e.mu.Lock()
	e.ghost = ""
	e.redrawLocked()
	fmt.Fprint(e.tty, "\r\n")
	e.buf, e.pos = nil, 0
	e.redrawLocked()
	e.mu.Unlock()
	e.DispatchEvent(&controller.Event{Type: controller.EventInput})
}

func (e *Editor) redraw() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.redrawLocked()
}

// redrawLocked clears the current line and draws prompt, text before the
// cursor, ghost text and the rest of the line, then moves the cursor back.
func (e *Editor) redrawLocked() {
	head, tail := string(e.buf[:e.pos]), string(e.buf[e.pos:])
	ghost := ""
	if e.ghost != "" {
		ghost = e.faint.Render(e.ghost)
	}
	// \r = carriage return, \x1b[K = clear to end of line
	fmt.Fprintf(e.tty, "\r\x1b[K%s%s%s%s", e.prompt, head, ghost, tail)

	if back := utf8.RuneCountInString(e.ghost) + utf8.RuneCountInString(tail); back > 0 {
		fmt.Fprintf(e.tty, "\x1b[%dD", back)
	}
}

// prevRuneSize returns the byte size of the rune before pos.
func prevRuneSize(buf []byte, pos int) int {
	if pos <= 0 {
		return 0
	}
	_, size := utf8.DecodeLastRune(buf[:pos])
	return size
}

// utf8RuneLen returns the expected byte length of a UTF-8 sequence
// from its leading byte.
func utf8RuneLen(lead byte) int {
	if lead < 0xC0 {
		return 1
	}
	if lead < 0xE0 {
		return 2
	}
	if lead < 0xF0 {
		return 3
	}
	return 4
}
