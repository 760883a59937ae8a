// Package defaults provides embedded default assets (prompt template, config and corpus).
package defaults

import (
	_ "embed"
	"strings"
)

//go:embed default_prompt.md
var DefaultPrompt string

//go:embed default_config.json
var DefaultConfigJSON []byte

//go:embed default_corpus.txt
var defaultCorpusText string

// DefaultCorpus returns the built-in phrases, one per non-empty, non-comment line.
func DefaultCorpus() []string {
	var phrases []string
	for _, line := range strings.Split(defaultCorpusText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		phrases = append(phrases, line)
	}
	return phrases
}
