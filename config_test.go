package surmiser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DebounceMs != 200 {
		t.Errorf("expected debounce 200, got %d", cfg.DebounceMs)
	}
	if cfg.MinConfidence != DefaultMinConfidence {
		t.Errorf("expected min confidence %v, got %v", DefaultMinConfidence, cfg.MinConfidence)
	}
	if cfg.Generation.Priority != 20 || cfg.Embedding.Priority != 5 {
		t.Errorf("unexpected priorities %d/%d", cfg.Generation.Priority, cfg.Embedding.Priority)
	}
	if !cfg.Privacy.Redact {
		t.Error("expected redaction on by default")
	}
}

func TestLoadConfigFileTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
debounce_ms = 150

[corpus]
files = ["phrases.txt"]
mode = "append"

[[remote]]
id = "cloud"
endpoint = "https://example.com/suggest"
timeout_ms = 800
`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DebounceMs != 150 {
		t.Errorf("expected debounce override, got %d", cfg.DebounceMs)
	}
	if cfg.MinConfidence != DefaultMinConfidence {
		t.Errorf("expected default min confidence to survive, got %v", cfg.MinConfidence)
	}
	if cfg.Corpus.Mode != "append" || len(cfg.Corpus.Files) != 1 {
		t.Errorf("unexpected corpus config %+v", cfg.Corpus)
	}
	if len(cfg.Remote) != 1 || cfg.Remote[0].TimeoutMs != 800 {
		t.Fatalf("unexpected remote config %+v", cfg.Remote)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", "min_confidence: 80\nprivacy:\n  redact: false\n")
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MinConfidence != 80 || cfg.Privacy.Redact {
		t.Errorf("unexpected config %+v", cfg)
	}
	if opts := cfg.Options(); opts.MinConfidence != 0.8 {
		t.Errorf("expected percentage normalized to 0.8, got %v", opts.MinConfidence)
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	if _, err := LoadConfigFile(writeConfig(t, "config.ini", "x=1")); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := LoadConfigFile(writeConfig(t, "config.json", "{not json")); err == nil {
		t.Error("expected parse error")
	}
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("expected missing file to yield defaults, got %v", err)
	}
	if cfg.DebounceMs != 200 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestConfigDirResolution(t *testing.T) {
	t.Setenv("SURMISER_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := ConfigDir(); got != filepath.Join("/xdg", "surmiser") {
		t.Errorf("expected XDG path, got %s", got)
	}

	dir := t.TempDir()
	t.Setenv("SURMISER_CONFIG_DIR", dir)
	if got := ConfigPath(); got != filepath.Join(dir, "config.toml") {
		t.Errorf("expected config.toml fallback, got %s", got)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"debounce_ms": 90}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := ConfigPath(); got != filepath.Join(dir, "config.json") {
		t.Errorf("expected existing config.json, got %s", got)
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DebounceMs != 90 {
		t.Errorf("expected debounce from config dir, got %d", cfg.DebounceMs)
	}
	if PromptPath() != filepath.Join(dir, "prompt.md") {
		t.Errorf("unexpected prompt path %s", PromptPath())
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DebounceMs = 120
	cfg.Remote = []RemoteProviderConfig{
		{ID: "a", Endpoint: "http://a"},
		{Endpoint: "http://b"},
		{ID: "skipped"},
	}

	opts := cfg.Options()
	if opts.Debounce != 120*time.Millisecond {
		t.Errorf("expected 120ms debounce, got %s", opts.Debounce)
	}
	if len(opts.Providers) != 2 {
		t.Fatalf("expected 2 remote providers, got %d", len(opts.Providers))
	}
	r, _ := opts.Providers[1].RemoteConfig()
	if r.ID != "http://b" {
		t.Errorf("expected endpoint as fallback id, got %q", r.ID)
	}
	if !r.Redact {
		t.Error("expected privacy.redact to apply to remote providers")
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("expected valid options, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	if w := ValidateConfig(nil); len(w) != 0 {
		t.Errorf("expected no warnings for nil config, got %v", w)
	}
	t.Setenv("SURMISER_EMBEDDING_API_KEY", "")
	t.Setenv("SURMISER_EMBEDDING_API_BASE_URL", "")

	cfg := DefaultConfig()
	cfg.MinConfidence = 75
	cfg.Corpus.Mode = "merge"
	cfg.Corpus.Watch = true
	cfg.Remote = []RemoteProviderConfig{{ID: "x"}}
	cfg.Embedding.APIKey = "key"

	warnings := strings.Join(ValidateConfig(cfg), "\n")
	for _, want := range []string{"percentage", "merge", "corpus.watch", "no endpoint", "base_url is empty"} {
		if !strings.Contains(warnings, want) {
			t.Errorf("expected warning containing %q, got:\n%s", want, warnings)
		}
	}
}

func TestResolveEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("SURMISER_GENERATION_API_KEY", "")
	if GenerationEnabled(cfg) {
		t.Error("expected generation disabled without key")
	}

	t.Setenv("SURMISER_GENERATION_API_KEY", "sk-env")
	t.Setenv("SURMISER_GENERATION_MODEL", "env-model")
	t.Setenv("SURMISER_GENERATION_API_BASE_URL", "http://env")
	if !GenerationEnabled(cfg) || ResolveGenerationAPIKey(cfg) != "sk-env" {
		t.Error("expected env API key to win")
	}
	if ResolveGenerationModel(cfg) != "env-model" || ResolveGenerationBaseURL(cfg) != "http://env" {
		t.Error("expected env model and base URL to win")
	}

	t.Setenv("SURMISER_EMBEDDING_API_KEY", "ek")
	t.Setenv("SURMISER_EMBEDDING_API_BASE_URL", "http://embed")
	t.Setenv("SURMISER_EMBEDDING_MODEL", "")
	if !EmbeddingEnabled(cfg) {
		t.Error("expected embedding enabled with key and base URL")
	}
	if ResolveEmbeddingModel(cfg) != cfg.Embedding.Model {
		t.Errorf("expected config model, got %q", ResolveEmbeddingModel(cfg))
	}
	if EmbeddingEnabled(nil) {
		t.Error("expected nil config to disable embedding")
	}
}
