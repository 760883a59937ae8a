// Package generate asks an LLM for ghost-text completions.
package generate

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/Paranoid-AF/surmiser"
	"github.com/Paranoid-AF/surmiser/redact"
)

// ProviderID identifies suggestions from the LLM provider.
const ProviderID = "llm"

const (
	// DefaultPriority ranks the LLM provider above the corpus providers.
	DefaultPriority = 20
	// fallbackConfidence is used when the model answers without a score.
	fallbackConfidence = 0.75
)

// Options configures a Provider.
type Options struct {
	Priority int
	// Timeout bounds one generation. Zero means surmiser.DefaultRemoteTimeout.
	Timeout time.Duration
	// Prompt is a custom prompt template; empty uses the embedded default.
	Prompt string
	// Redact strips sensitive variable references before the text is sent.
	Redact bool
}

// Provider is a local provider backed by a Generator.
type Provider struct {
	generator *Generator
	prompt    *template.Template
	priority  int
	timeout   time.Duration
	redact    bool
}

// NewProvider creates an LLM provider.
func NewProvider(gen *Generator, opts Options) *Provider {
	p := &Provider{
		generator: gen,
		prompt:    surmiser.ParsePrompt(opts.Prompt),
		priority:  opts.Priority,
		timeout:   opts.Timeout,
		redact:    opts.Redact,
	}
	if p.priority == 0 {
		p.priority = DefaultPriority
	}
	if p.timeout <= 0 {
		p.timeout = surmiser.DefaultRemoteTimeout
	}
	return p
}

// FromConfig builds the provider described by cfg, or returns nil when no
// generation API key is configured. A prompt.md in the config directory
// replaces the default prompt.
func FromConfig(cfg *surmiser.Config) *Provider {
	apiKey := surmiser.ResolveGenerationAPIKey(cfg)
	if apiKey == "" {
		slog.Debug("generation API key not configured, LLM provider disabled")
		return nil
	}

	gen := NewGenerator(GeneratorConfig{
		BaseURL:     surmiser.ResolveGenerationBaseURL(cfg),
		APIKey:      apiKey,
		Model:       surmiser.ResolveGenerationModel(cfg),
		APIType:     cfg.Generation.APIType,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Stop:        cfg.Generation.Stop,
		RawText:     cfg.Generation.RawText,
	})
	return NewProvider(gen, Options{
		Priority: cfg.Generation.Priority,
		Timeout:  time.Duration(cfg.Generation.TimeoutMs) * time.Millisecond,
		Prompt:   loadCustomPrompt(),
		Redact:   cfg.Privacy.Redact,
	})
}

// loadCustomPrompt loads a custom prompt template.
// Returns empty string if no custom prompt exists.
func loadCustomPrompt() string {
	promptPath := surmiser.PromptPath()
	data, err := os.ReadFile(promptPath)
	if err != nil {
		return ""
	}
	slog.Info("loaded custom prompt", "path", promptPath)
	return string(data)
}

func (p *Provider) ID() string    { return ProviderID }
func (p *Provider) Priority() int { return p.priority }

// Suggest renders the prompt for the text before the cursor and parses the
// model's answer.
func (p *Provider) Suggest(ctx context.Context, sc surmiser.SuggestionContext) (*surmiser.Suggestion, error) {
	input := sc.BeforeCursor()
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	if p.redact {
		input = redact.Text(input)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	userMessage := surmiser.RenderPrompt(p.prompt, input)
	slog.Debug("prompt", "user", userMessage)

	output, err := p.generator.Complete(ctx, userMessage)
	if err != nil {
		return nil, err
	}
	return parseOutput(output, input), nil
}

// parseOutput reads a JSON answer, falling back to treating the output as
// the completion itself. "null" and empty answers yield nil.
func parseOutput(output, input string) *surmiser.Suggestion {
	text := stripCodeFence(strings.TrimSpace(output))

	var structured surmiser.RemoteResponse
	if strings.HasPrefix(text, "{") && json.Unmarshal([]byte(text), &structured) == nil {
		if structured.Suggestion == nil {
			return nil
		}
		return newSuggestion(*structured.Suggestion, structured.Confidence, input)
	}

	raw := strings.TrimRight(output, " \t\r\n")
	raw = strings.TrimLeft(raw, "\r\n")
	raw = strings.TrimPrefix(raw, "Output:")
	return newSuggestion(raw, fallbackConfidence, input)
}

func newSuggestion(completion string, confidence float64, input string) *surmiser.Suggestion {
	if t := strings.TrimSpace(completion); t == "" || t == "null" {
		return nil
	}
	// Models sometimes repeat the input before continuing it.
	if input != "" && strings.HasPrefix(completion, input) {
		completion = completion[len(input):]
		if completion == "" {
			return nil
		}
	}
	if confidence == 0 {
		confidence = fallbackConfidence
	}
	return &surmiser.Suggestion{
		Completion: completion,
		Confidence: surmiser.NormalizeConfidence(confidence),
		ProviderID: ProviderID,
	}
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
