package surmiser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	defaults "github.com/Paranoid-AF/surmiser/default"
)

// Config represents the user's surmiser configuration file.
type Config struct {
	Version       int                    `json:"version" koanf:"version"`
	DebounceMs    int                    `json:"debounce_ms" koanf:"debounce_ms"`
	MinConfidence float64                `json:"min_confidence" koanf:"min_confidence"`
	Corpus        CorpusConfig           `json:"corpus" koanf:"corpus"`
	Remote        []RemoteProviderConfig `json:"remote,omitempty" koanf:"remote"`
	Generation    GenerationConfig       `json:"generation" koanf:"generation"`
	Embedding     EmbeddingConfig        `json:"embedding" koanf:"embedding"`
	Privacy       PrivacyConfig          `json:"privacy" koanf:"privacy"`
}

// CorpusConfig selects phrase files for the predictive provider.
type CorpusConfig struct {
	Files []string `json:"files,omitempty" koanf:"files"`
	// Mode is "replace" (default) or "append" to the embedded default corpus.
	Mode string `json:"mode,omitempty" koanf:"mode"`
	// Watch reloads the corpus when a file changes.
	Watch bool `json:"watch,omitempty" koanf:"watch"`
}

// GenerationConfig holds settings for the LLM provider.
type GenerationConfig struct {
	BaseURL     string   `json:"base_url" koanf:"base_url"`
	APIKey      string   `json:"api_key" koanf:"api_key"`
	APIType     string   `json:"api_type" koanf:"api_type"`
	Model       string   `json:"model" koanf:"model"`
	MaxTokens   int      `json:"max_tokens,omitempty" koanf:"max_tokens"`
	Temperature float64  `json:"temperature,omitempty" koanf:"temperature"`
	Stop        []string `json:"stop,omitempty" koanf:"stop"`
	Priority    int      `json:"priority,omitempty" koanf:"priority"`
	TimeoutMs   int      `json:"timeout_ms,omitempty" koanf:"timeout_ms"`
	// RawText skips the JSON output format for servers that do not support it.
	RawText bool `json:"raw_text,omitempty" koanf:"raw_text"`
}

// EmbeddingConfig holds settings for the semantic provider.
type EmbeddingConfig struct {
	BaseURL    string `json:"base_url" koanf:"base_url"`
	APIKey     string `json:"api_key" koanf:"api_key"`
	Model      string `json:"model" koanf:"model"`
	TTLMinutes int    `json:"ttl_minutes,omitempty" koanf:"ttl_minutes"`
	TopK       int    `json:"top_k,omitempty" koanf:"top_k"`
	Priority   int    `json:"priority,omitempty" koanf:"priority"`
}

// PrivacyConfig controls what leaves the process.
type PrivacyConfig struct {
	// Redact applies variable redaction to every remote provider.
	Redact bool `json:"redact" koanf:"redact"`
}

// configNames lists the recognised config file names, in lookup order.
var configNames = []string{"config.toml", "config.yaml", "config.yml", "config.json"}

// ConfigDir returns the config directory path.
// Resolution order: $SURMISER_CONFIG_DIR > $XDG_CONFIG_HOME/surmiser > ~/.config/surmiser
func ConfigDir() string {
	if dir := os.Getenv("SURMISER_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "surmiser")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "surmiser-config")
	}
	return filepath.Join(home, ".config", "surmiser")
}

// ConfigPath returns the first existing config file in ConfigDir,
// or the path of config.toml when none exists.
func ConfigPath() string {
	dir := ConfigDir()
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(dir, configNames[0])
}

// PromptPath returns the custom prompt template path.
func PromptPath() string {
	return filepath.Join(ConfigDir(), "prompt.md")
}

// DefaultConfig returns the configuration embedded in default_config.json.
func DefaultConfig() *Config {
	cfg, err := LoadConfigFile("")
	if err != nil {
		panic("surmiser: invalid embedded default_config.json: " + err.Error())
	}
	return cfg
}

// LoadConfig loads the config from ConfigPath, falling back to defaults.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile layers the file at path over the embedded defaults.
// A missing file is not an error. An empty path yields the defaults.
func LoadConfigFile(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaults.DefaultConfigJSON), json.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, err
		default:
			parser, err := parserFor(path)
			if err != nil {
				return nil, err
			}
			if err := k.Load(rawbytes.Provider(data), parser); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if cfg.MinConfidence > 1 && cfg.MinConfidence <= 100 {
		warnings = append(warnings, fmt.Sprintf("min_confidence %v is read as a percentage (%.2f)", cfg.MinConfidence, NormalizeConfidence(cfg.MinConfidence)))
	}
	if _, err := ParseCorpusMode(cfg.Corpus.Mode); err != nil {
		warnings = append(warnings, err.Error()+"; using replace")
	}
	if cfg.Corpus.Watch && len(cfg.Corpus.Files) == 0 {
		warnings = append(warnings, "corpus.watch is enabled but no corpus files are configured")
	}
	for i, r := range cfg.Remote {
		if r.Endpoint == "" {
			warnings = append(warnings, fmt.Sprintf("remote provider %d (%q) has no endpoint and will be skipped", i, r.ID))
		}
	}
	if ResolveEmbeddingAPIKey(cfg) != "" && ResolveEmbeddingBaseURL(cfg) == "" {
		warnings = append(warnings, "embedding api_key is set but base_url is empty; semantic suggestions are disabled")
	}
	return warnings
}

// Options converts the file configuration into attachment options.
// Only remote providers are built here; in-process providers that need
// their own packages are added by the caller.
func (cfg *Config) Options() Options {
	opts := Options{
		Debounce:      time.Duration(cfg.DebounceMs) * time.Millisecond,
		MinConfidence: NormalizeConfidence(cfg.MinConfidence),
	}
	for _, r := range cfg.Remote {
		if r.Endpoint == "" {
			continue
		}
		if r.ID == "" {
			r.ID = r.Endpoint
		}
		if cfg.Privacy.Redact {
			r.Redact = true
		}
		opts.Providers = append(opts.Providers, Remote(r))
	}
	return opts
}

// ResolveGenerationBaseURL returns the generation API base URL.
// Priority: $SURMISER_GENERATION_API_BASE_URL env > config value.
func ResolveGenerationBaseURL(cfg *Config) string {
	if url := os.Getenv("SURMISER_GENERATION_API_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Generation.BaseURL
	}
	return ""
}

// ResolveGenerationAPIKey returns the generation API key.
// Priority: $SURMISER_GENERATION_API_KEY env > config value.
func ResolveGenerationAPIKey(cfg *Config) string {
	if key := os.Getenv("SURMISER_GENERATION_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Generation.APIKey
	}
	return ""
}

// ResolveGenerationModel returns the generation model name.
// Priority: $SURMISER_GENERATION_MODEL env > config value.
func ResolveGenerationModel(cfg *Config) string {
	if model := os.Getenv("SURMISER_GENERATION_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Generation.Model
	}
	return ""
}

// ResolveEmbeddingBaseURL returns the embedding API base URL.
// Priority: $SURMISER_EMBEDDING_API_BASE_URL env > config value.
func ResolveEmbeddingBaseURL(cfg *Config) string {
	if url := os.Getenv("SURMISER_EMBEDDING_API_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Embedding.BaseURL
	}
	return ""
}

// ResolveEmbeddingAPIKey returns the embedding API key.
// Priority: $SURMISER_EMBEDDING_API_KEY env > config value.
func ResolveEmbeddingAPIKey(cfg *Config) string {
	if key := os.Getenv("SURMISER_EMBEDDING_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Embedding.APIKey
	}
	return ""
}

// ResolveEmbeddingModel returns the embedding model name.
// Priority: $SURMISER_EMBEDDING_MODEL env > config value.
func ResolveEmbeddingModel(cfg *Config) string {
	if model := os.Getenv("SURMISER_EMBEDDING_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Embedding.Model
	}
	return ""
}

// GenerationEnabled returns true when a generation API key is configured.
func GenerationEnabled(cfg *Config) bool {
	return ResolveGenerationAPIKey(cfg) != ""
}

// EmbeddingEnabled returns true when both base_url and api_key are configured for embedding.
func EmbeddingEnabled(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return ResolveEmbeddingBaseURL(cfg) != "" && ResolveEmbeddingAPIKey(cfg) != ""
}
