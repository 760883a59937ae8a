// Package surmiser defines the shared types for inline ghost-text autocomplete:
// suggestion contexts, suggestions, the provider variants, and the JSON wire
// format spoken to remote suggestion endpoints.
package surmiser

import "time"

const (
	// DefaultPriority is used for providers that do not declare one.
	DefaultPriority = 10
	// DefaultDebounce is the quiet period before providers are queried.
	DefaultDebounce = 200 * time.Millisecond
	// DefaultMinConfidence is the minimum confidence a suggestion needs to be shown.
	DefaultMinConfidence = 0.7
	// HighConfidence short-circuits provider evaluation.
	HighConfidence = 0.95
	// DefaultRemoteTimeout bounds a single remote provider call.
	DefaultRemoteTimeout = 5 * time.Second
	// MaxContextTokens is the number of tokens kept in SuggestionContext.LastTokens.
	MaxContextTokens = 3
)

// SuggestionContext is an immutable snapshot of the input at one keystroke.
type SuggestionContext struct {
	// Text is the full input value.
	Text string
	// Cursor is the byte offset of the caret within Text.
	Cursor int
	// LastTokens holds at most MaxContextTokens lower-cased words before the cursor.
	LastTokens []string
	// SegmentStart is the token count at the last segment boundary (accept).
	// Stateful matching providers only consider tokens from this index on.
	SegmentStart int
}

// BeforeCursor returns the text preceding the cursor.
func (c SuggestionContext) BeforeCursor() string {
	return c.Text[:clampCursor(c.Text, c.Cursor)]
}

// Suggestion is a single provider result.
type Suggestion struct {
	// Completion is the suffix to insert at the cursor, not the full phrase.
	Completion string `json:"completion"`
	// Confidence is the provider's confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`
	// ProviderID identifies the provider that produced the suggestion.
	ProviderID string `json:"provider_id"`
}

// RemoteRequest is the JSON body POSTed to a remote provider endpoint.
type RemoteRequest struct {
	Text   string         `json:"text"`
	Cursor int            `json:"cursor"`
	Meta   map[string]any `json:"meta,omitempty"`
	// Prompt is an LLM completion instruction embedding Text.
	Prompt string `json:"prompt"`
}

// RemoteResponse is the JSON body returned by a remote provider endpoint.
type RemoteResponse struct {
	// Suggestion is the completion suffix. Empty or null means no suggestion.
	Suggestion *string `json:"suggestion"`
	// Confidence is accepted on either a 0-1 or a 0-100 scale.
	Confidence float64 `json:"confidence"`
}
