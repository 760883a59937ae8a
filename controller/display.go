package controller

import (
	"strings"

	"github.com/Paranoid-AF/surmiser"
)

// SwipeThreshold is the minimum rightward travel of a swipe-to-accept gesture.
const SwipeThreshold = 50.0

// displaySuggestion returns the ghost text to show right after the value
// changed from last to value, before a new suggestion arrives. Typing the
// next characters of the suggestion consumes them; any other edit hides it.
func displaySuggestion(current, value, last string) string {
	if current == "" || value == last {
		return current
	}
	if len(value) <= len(last) || !strings.HasPrefix(value, last) {
		return ""
	}
	typed := value[len(last):]
	if !strings.HasPrefix(current, typed) {
		return ""
	}
	return current[len(typed):]
}

// endsWithDoubleSpace reports the dismiss gesture.
func endsWithDoubleSpace(text string) bool {
	return strings.HasSuffix(text, "  ")
}

// resumes reports whether an edit from last to value ends a dismissal:
// typing something other than whitespace, or deleting. cursor is the caret
// after the edit; text inserted at the caret is the span just before it.
func resumes(value, last string, cursor int) bool {
	n := len(value) - len(last)
	switch {
	case n < 0:
		return true
	case n == 0:
		return value != last
	}
	start := cursor - n
	if start < 0 || value[:start] != last[:start] || value[cursor:] != last[start:] {
		// Not a plain insertion, so some of last was replaced.
		return true
	}
	return strings.TrimSpace(value[start:cursor]) != ""
}

// isSwipeRight reports a horizontal rightward swipe from start to end.
func isSwipeRight(start, end Point) bool {
	dx := end.X - start.X
	dy := end.Y - start.Y
	if dy < 0 {
		dy = -dy
	}
	return dx > SwipeThreshold && dx > 2*dy
}

func clampCursor(value string, cursor int) int {
	return len(surmiser.BuildContext(value, cursor).BeforeCursor())
}
