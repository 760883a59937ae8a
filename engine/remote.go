package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"text/template"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/jellydator/ttlcache/v3"

	"github.com/Paranoid-AF/surmiser"
	"github.com/Paranoid-AF/surmiser/redact"
)

const (
	maxResponseBytes = 64 << 10
	cacheCapacity    = 256
)

// HTTPFetcher implements the remote suggestion protocol over HTTP.
type HTTPFetcher struct {
	client *http.Client
	prompt *template.Template
	log    *slog.Logger

	mu     sync.Mutex
	caches map[string]*ttlcache.Cache[string, surmiser.Suggestion]
}

// NewHTTPFetcher creates a fetcher. A nil client uses a pooled cleanhttp
// client; an empty promptTemplate uses the embedded default prompt.
func NewHTTPFetcher(client *http.Client, promptTemplate string, logger *slog.Logger) *HTTPFetcher {
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		client: client,
		prompt: surmiser.ParsePrompt(promptTemplate),
		log:    logger,
		caches: make(map[string]*ttlcache.Cache[string, surmiser.Suggestion]),
	}
}

// Fetch posts the context to cfg.Endpoint and returns the suggestion, or nil.
func (f *HTTPFetcher) Fetch(ctx context.Context, cfg surmiser.RemoteProviderConfig, sc surmiser.SuggestionContext) *surmiser.Suggestion {
	text, cursor := sc.Text, len(sc.BeforeCursor())
	if cfg.Redact {
		text, cursor = redact.Split(text, cursor)
	}
	before := text[:cursor]

	cache := f.cacheFor(cfg)
	if cache != nil {
		if item := cache.Get(before); item != nil {
			s := item.Value()
			return &s
		}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	data, err := json.Marshal(surmiser.RemoteRequest{
		Text:   text,
		Cursor: cursor,
		Meta:   cfg.Meta,
		Prompt: surmiser.RenderPrompt(f.prompt, before),
	})
	if err != nil {
		f.log.Warn("remote provider request encoding failed", "provider", cfg.ID, "error", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(data))
	if err != nil {
		f.log.Warn("remote provider request invalid", "provider", cfg.ID, "error", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			f.log.Warn("remote provider timed out", "provider", cfg.ID, "timeout", cfg.Timeout())
		case ctx.Err() != nil:
			// Superseded by a newer request.
		default:
			f.log.Warn("remote provider failed", "provider", cfg.ID, "error", err)
		}
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() == nil {
			f.log.Warn("remote provider read failed", "provider", cfg.ID, "error", err)
		}
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.log.Warn("remote provider returned error status", "provider", cfg.ID, "status", resp.StatusCode)
		return nil
	}

	var result surmiser.RemoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		f.log.Warn("remote provider returned invalid JSON", "provider", cfg.ID, "error", err)
		return nil
	}
	if result.Suggestion == nil || *result.Suggestion == "" || strings.TrimSpace(*result.Suggestion) == "null" {
		f.log.Debug("remote provider returned no suggestion", "provider", cfg.ID)
		return nil
	}

	s := surmiser.Suggestion{
		Completion: *result.Suggestion,
		Confidence: surmiser.NormalizeConfidence(result.Confidence),
		ProviderID: cfg.ID,
	}
	if cache != nil {
		cache.Set(before, s, ttlcache.DefaultTTL)
	}
	return &s
}

// cacheFor returns the response cache of cfg, or nil when caching is off.
// Expired entries are skipped on read, so no cleanup goroutine is started.
func (f *HTTPFetcher) cacheFor(cfg surmiser.RemoteProviderConfig) *ttlcache.Cache[string, surmiser.Suggestion] {
	ttl := cfg.CacheTTL()
	if ttl == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := cfg.ID + "\x00" + cfg.Endpoint
	c, ok := f.caches[key]
	if !ok {
		c = ttlcache.New[string, surmiser.Suggestion](
			ttlcache.WithTTL[string, surmiser.Suggestion](ttl),
			ttlcache.WithCapacity[string, surmiser.Suggestion](cacheCapacity),
			ttlcache.WithDisableTouchOnHit[string, surmiser.Suggestion](),
		)
		f.caches[key] = c
	}
	return c
}
