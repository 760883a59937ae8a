package surmiser

import (
	"log/slog"
	"strings"
	"text/template"

	defaults "github.com/Paranoid-AF/surmiser/default"
)

// PromptData holds the data passed to the prompt template.
type PromptData struct {
	// Input is the text before the cursor.
	Input string
}

// ParsePrompt parses a prompt template. An empty or invalid source falls
// back to the embedded default prompt.
func ParsePrompt(src string) *template.Template {
	if src != "" {
		t, err := template.New("prompt").Parse(src)
		if err == nil {
			return t
		}
		slog.Warn("failed to parse prompt template, falling back to default", "error", err)
	}
	return template.Must(template.New("prompt").Parse(defaults.DefaultPrompt))
}

// RenderPrompt executes t for input. Execution errors fall back to the default prompt.
func RenderPrompt(t *template.Template, input string) string {
	data := PromptData{Input: input}
	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		slog.Warn("failed to execute prompt template, falling back to default", "error", err)
		buf.Reset()
		template.Must(template.New("prompt").Parse(defaults.DefaultPrompt)).Execute(&buf, data)
	}
	return strings.TrimRight(buf.String(), " \t\n")
}
