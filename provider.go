package surmiser

import (
	"context"
	"time"
)

// LocalProvider is a suggestion source running in-process.
// Suggest must return promptly once ctx is cancelled.
type LocalProvider interface {
	ID() string
	Priority() int
	Suggest(ctx context.Context, sc SuggestionContext) (*Suggestion, error)
}

// SegmentMarker is implemented by local providers that track where the
// current phrase starts. The engine forwards segment boundaries to them.
type SegmentMarker interface {
	MarkSegmentBoundary(tokenCount int)
}

// RemoteProviderConfig describes an HTTP suggestion endpoint. It carries no
// logic; the engine's fetcher turns it into a request.
type RemoteProviderConfig struct {
	ID        string            `json:"id" koanf:"id"`
	Priority  *int              `json:"priority,omitempty" koanf:"priority"`
	Endpoint  string            `json:"endpoint" koanf:"endpoint"`
	TimeoutMs int               `json:"timeout_ms,omitempty" koanf:"timeout_ms"`
	Headers   map[string]string `json:"headers,omitempty" koanf:"headers"`
	Meta      map[string]any    `json:"meta,omitempty" koanf:"meta"`

	// CacheTTLMs enables caching responses per text-before-cursor. Zero disables.
	CacheTTLMs int `json:"cache_ttl_ms,omitempty" koanf:"cache_ttl_ms"`
	// Redact strips sensitive variable references before the text is sent.
	Redact bool `json:"redact,omitempty" koanf:"redact"`
}

// Timeout returns the configured request timeout or DefaultRemoteTimeout.
func (c RemoteProviderConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return DefaultRemoteTimeout
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// CacheTTL returns the response cache TTL, zero when caching is disabled.
func (c RemoteProviderConfig) CacheTTL() time.Duration {
	if c.CacheTTLMs <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLMs) * time.Millisecond
}

// ProviderKind tags the Provider variant.
type ProviderKind int

const (
	KindLocal ProviderKind = iota
	KindRemote
)

func (k ProviderKind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Provider is a tagged union over a LocalProvider and a RemoteProviderConfig.
// Build one with Local or Remote.
type Provider struct {
	kind   ProviderKind
	local  LocalProvider
	remote RemoteProviderConfig
}

// Local wraps an in-process provider.
func Local(p LocalProvider) Provider {
	return Provider{kind: KindLocal, local: p}
}

// Remote wraps an endpoint description.
func Remote(cfg RemoteProviderConfig) Provider {
	return Provider{kind: KindRemote, remote: cfg}
}

// Kind reports which variant p holds.
func (p Provider) Kind() ProviderKind { return p.kind }

// LocalProvider returns the wrapped local provider and true for local variants.
func (p Provider) LocalProvider() (LocalProvider, bool) {
	return p.local, p.kind == KindLocal && p.local != nil
}

// RemoteConfig returns the endpoint description and true for remote variants.
func (p Provider) RemoteConfig() (RemoteProviderConfig, bool) {
	return p.remote, p.kind == KindRemote
}

// ID returns the provider identity.
func (p Provider) ID() string {
	if p.kind == KindRemote {
		return p.remote.ID
	}
	if p.local == nil {
		return ""
	}
	return p.local.ID()
}

// Priority returns the provider priority; higher is evaluated first.
func (p Provider) Priority() int {
	if p.kind == KindRemote {
		if p.remote.Priority == nil {
			return DefaultPriority
		}
		return *p.remote.Priority
	}
	if p.local == nil {
		return DefaultPriority
	}
	return p.local.Priority()
}
