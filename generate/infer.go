package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	// APIResponses selects the OpenAI Responses API.
	APIResponses = "responses"
	// APIChatCompletions selects the Chat Completions API.
	APIChatCompletions = "chat_completions"
)

// instructions pins the answer to the shape parseOutput decodes. JSON output
// mode also requires the word "JSON" to appear in the conversation.
const instructions = `You continue the user's text inline. Answer with a single JSON object {"suggestion": string or null, "confidence": number between 0 and 1} and nothing else. "suggestion" holds only the characters to insert after the input, including a leading space when a new word starts; use null when no continuation is likely.`

// maxReplyBytes bounds the body read from the API.
const maxReplyBytes = 1 << 20

var errNoText = errors.New("no text content in response")

// GeneratorConfig describes an OpenAI-compatible completion endpoint.
type GeneratorConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	APIType     string // APIResponses or APIChatCompletions
	MaxTokens   int
	Temperature float64
	Stop        []string
	// RawText turns off the JSON output format for servers that reject it.
	// The instructions still ask for JSON; parseOutput accepts either.
	RawText bool
}

// Generator asks a chat model to continue a piece of text.
type Generator struct {
	cfg    GeneratorConfig
	client *http.Client
}

// NewGenerator creates a generator. Requests are bounded by the caller's
// context rather than a client timeout.
func NewGenerator(cfg GeneratorConfig) *Generator {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Generator{cfg: cfg, client: cleanhttp.DefaultPooledClient()}
}

// Model returns the generation model name.
func (g *Generator) Model() string { return g.cfg.Model }

// Complete sends prompt as the user turn and returns the model's answer
// verbatim.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	msgs := []chatMessage{
		{Role: "system", Content: instructions},
		{Role: "user", Content: prompt},
	}
	if g.cfg.APIType == APIChatCompletions {
		var reply chatCompletionsResponse
		if err := g.post(ctx, "/chat/completions", g.chatRequest(msgs), &reply); err != nil {
			return "", err
		}
		return reply.text()
	}
	var reply responsesResponse
	if err := g.post(ctx, "/responses", g.responsesRequest(msgs), &reply); err != nil {
		return "", err
	}
	return reply.text()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type outputFormat struct {
	Type string `json:"type"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// apiReply is implemented by both response shapes so post can surface an
// error object returned with a 200 status.
type apiReply interface {
	apiErr() *apiError
}

// --- Chat Completions API ---

type chatCompletionsRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Temperature    float64       `json:"temperature,omitempty"`
	Stop           []string      `json:"stop,omitempty"`
	ResponseFormat *outputFormat `json:"response_format,omitempty"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

func (g *Generator) chatRequest(msgs []chatMessage) chatCompletionsRequest {
	req := chatCompletionsRequest{
		Model:       g.cfg.Model,
		Messages:    msgs,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Stop:        g.cfg.Stop,
	}
	if !g.cfg.RawText {
		req.ResponseFormat = &outputFormat{Type: "json_object"}
	}
	return req
}

func (r *chatCompletionsResponse) apiErr() *apiError { return r.Error }

func (r *chatCompletionsResponse) text() (string, error) {
	if len(r.Choices) == 0 {
		return "", errNoText
	}
	return r.Choices[0].Message.Content, nil
}

// --- Responses API ---

type responsesRequest struct {
	Model       string         `json:"model"`
	Input       []chatMessage  `json:"input"`
	MaxTokens   int            `json:"max_output_tokens,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
	Stop        []string       `json:"stop,omitempty"`
	Text        *responsesText `json:"text,omitempty"`
}

type responsesText struct {
	Format outputFormat `json:"format"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Error *apiError `json:"error,omitempty"`
}

func (g *Generator) responsesRequest(msgs []chatMessage) responsesRequest {
	req := responsesRequest{
		Model:       g.cfg.Model,
		Input:       msgs,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Stop:        g.cfg.Stop,
	}
	if !g.cfg.RawText {
		req.Text = &responsesText{Format: outputFormat{Type: "json_object"}}
	}
	return req
}

func (r *responsesResponse) apiErr() *apiError { return r.Error }

// text returns the first output_text of the first message item. Reasoning
// items before it are skipped.
func (r *responsesResponse) text() (string, error) {
	for _, out := range r.Output {
		if out.Type != "message" {
			continue
		}
		for _, c := range out.Content {
			if c.Type == "output_text" {
				return c.Text, nil
			}
		}
	}
	return "", errNoText
}

// post sends body as JSON to path and decodes the reply into out.
func (g *Generator) post(ctx context.Context, path string, body any, out apiReply) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(reply)))
	}
	if err := json.Unmarshal(reply, out); err != nil {
		return fmt.Errorf("%s: decode reply: %w", path, err)
	}
	if e := out.apiErr(); e != nil {
		return fmt.Errorf("%s: %s", path, e.Message)
	}
	return nil
}
