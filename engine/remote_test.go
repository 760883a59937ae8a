package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paranoid-AF/surmiser"
)

func remoteServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSendsRequestAndParsesResponse(t *testing.T) {
	var got surmiser.RemoteRequest
	var header http.Header
	srv := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		header = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"suggestion":"lo world","confidence":85}`))
	})

	f := NewHTTPFetcher(srv.Client(), "", discardLogger())
	cfg := surmiser.RemoteProviderConfig{
		ID:       "remote",
		Endpoint: srv.URL,
		Headers:  map[string]string{"Authorization": "Bearer k"},
		Meta:     map[string]any{"lang": "en"},
	}
	s := f.Fetch(context.Background(), cfg, surmiser.BuildContext("hel!", 3))

	require.NotNil(t, s)
	assert.Equal(t, "lo world", s.Completion)
	assert.InDelta(t, 0.85, s.Confidence, 1e-9)
	assert.Equal(t, "remote", s.ProviderID)

	assert.Equal(t, "hel!", got.Text)
	assert.Equal(t, 3, got.Cursor)
	assert.Equal(t, "en", got.Meta["lang"])
	assert.Contains(t, got.Prompt, "hel")
	assert.NotContains(t, got.Prompt, "hel!")
	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.Equal(t, "Bearer k", header.Get("Authorization"))
}

func TestFetchReturnsNilForUnusableResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"suggestion":"x","confidence":0.9}`},
		{"not found", http.StatusNotFound, ``},
		{"null suggestion", http.StatusOK, `{"suggestion":null,"confidence":0.9}`},
		{"empty suggestion", http.StatusOK, `{"suggestion":"","confidence":0.9}`},
		{"literal null", http.StatusOK, `{"suggestion":"null","confidence":0.9}`},
		{"missing suggestion", http.StatusOK, `{"confidence":0.9}`},
		{"invalid json", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			f := NewHTTPFetcher(srv.Client(), "", discardLogger())
			s := f.Fetch(context.Background(), surmiser.RemoteProviderConfig{ID: "r", Endpoint: srv.URL}, surmiser.BuildContext("a", 1))
			assert.Nil(t, s)
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	f := NewHTTPFetcher(srv.Client(), "", discardLogger())

	start := time.Now()
	s := f.Fetch(context.Background(), surmiser.RemoteProviderConfig{ID: "r", Endpoint: srv.URL, TimeoutMs: 20}, surmiser.BuildContext("a", 1))
	assert.Nil(t, s)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetchCancelled(t *testing.T) {
	var hits atomic.Int32
	srv := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"suggestion":"x","confidence":0.9}`))
	})
	f := NewHTTPFetcher(srv.Client(), "", discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := f.Fetch(ctx, surmiser.RemoteProviderConfig{ID: "r", Endpoint: srv.URL}, surmiser.BuildContext("a", 1))
	assert.Nil(t, s)
	assert.Equal(t, int32(0), hits.Load())
}

func TestFetchRedactsText(t *testing.T) {
	var got surmiser.RemoteRequest
	srv := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"suggestion":" now","confidence":0.9}`))
	})
	f := NewHTTPFetcher(srv.Client(), "", discardLogger())

	text := "echo $SECRET_TOKEN"
	s := f.Fetch(context.Background(), surmiser.RemoteProviderConfig{ID: "r", Endpoint: srv.URL, Redact: true}, surmiser.BuildContext(text, len(text)))
	require.NotNil(t, s)
	assert.NotContains(t, got.Text, "SECRET_TOKEN")
	assert.NotContains(t, got.Prompt, "SECRET_TOKEN")
	assert.Equal(t, len(got.Text), got.Cursor)
}

func TestFetchCachesByTextBeforeCursor(t *testing.T) {
	var hits atomic.Int32
	srv := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"suggestion":"lo","confidence":0.9}`))
	})
	f := NewHTTPFetcher(srv.Client(), "", discardLogger())
	cfg := surmiser.RemoteProviderConfig{ID: "r", Endpoint: srv.URL, CacheTTLMs: 60_000}

	first := f.Fetch(context.Background(), cfg, surmiser.BuildContext("hel", 3))
	second := f.Fetch(context.Background(), cfg, surmiser.BuildContext("hel", 3))
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, int32(1), hits.Load())

	f.Fetch(context.Background(), cfg, surmiser.BuildContext("help", 4))
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchWithoutCacheHitsServerEachTime(t *testing.T) {
	var hits atomic.Int32
	srv := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"suggestion":"lo","confidence":0.9}`))
	})
	f := NewHTTPFetcher(srv.Client(), "", discardLogger())
	cfg := surmiser.RemoteProviderConfig{ID: "r", Endpoint: srv.URL}

	f.Fetch(context.Background(), cfg, surmiser.BuildContext("hel", 3))
	f.Fetch(context.Background(), cfg, surmiser.BuildContext("hel", 3))
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchUsesCustomPrompt(t *testing.T) {
	var got surmiser.RemoteRequest
	srv := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"suggestion":null}`))
	})
	f := NewHTTPFetcher(srv.Client(), "complete: {{.Input}}", discardLogger())

	f.Fetch(context.Background(), surmiser.RemoteProviderConfig{ID: "r", Endpoint: srv.URL}, surmiser.BuildContext("good morn", 9))
	assert.Equal(t, "complete: good morn", got.Prompt)
}
